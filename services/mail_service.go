package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
)

// Email is a single outbound message
type Email struct {
	To      string
	Subject string
	Text    string
}

// MailService delivers transactional email (OTP codes, crop reminders)
type MailService interface {
	Send(ctx context.Context, email Email) error
}

// ResendMailService sends email through the Resend HTTP API
type ResendMailService struct {
	apiKey     string
	baseURL    string
	from       string
	httpClient *http.Client
}

var mailServiceInstance MailService

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// NewResendMailService creates a Resend client from the application config
func NewResendMailService(cfg *config.Config) *ResendMailService {
	return &ResendMailService{
		apiKey:  cfg.ResendAPIKey,
		baseURL: strings.TrimRight(cfg.ResendBaseURL, "/"),
		from:    cfg.MailFrom,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitMailService sets the process-wide mail service to a Resend client
func InitMailService(cfg *config.Config) MailService {
	mailServiceInstance = NewResendMailService(cfg)
	return mailServiceInstance
}

// GetMailService returns the initialized mail service instance
func GetMailService() MailService {
	return mailServiceInstance
}

// SetMailService sets the mail service instance (primarily for testing)
func SetMailService(service MailService) {
	mailServiceInstance = service
}

// Send posts the email to Resend. Any non-2xx response is an error.
func (s *ResendMailService) Send(ctx context.Context, email Email) error {
	if s.apiKey == "" {
		return fmt.Errorf("mail: RESEND_API_KEY is not configured")
	}

	payload, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Text,
	})
	if err != nil {
		return fmt.Errorf("mail: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mail: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail: call resend: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("warning: failed to close resend response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: resend returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// OTPEmail renders the one-time code message
func OTPEmail(to, otp string, ttl time.Duration) Email {
	return Email{
		To:      to,
		Subject: "Your AgroX verification code",
		Text: fmt.Sprintf("Your AgroX verification code is %s. It expires in %d minutes.",
			otp, int(ttl.Minutes())),
	}
}
