package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendMailServiceSend(t *testing.T) {
	var received resendRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer server.Close()

	svc := NewResendMailService(&config.Config{
		ResendAPIKey:  "re_test",
		ResendBaseURL: server.URL + "/",
		MailFrom:      "AgroX <no-reply@agrox.app>",
	})

	err := svc.Send(context.Background(), OTPEmail("farmer@example.com", "0042", 10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", authHeader)
	assert.Equal(t, []string{"farmer@example.com"}, received.To)
	assert.Equal(t, "AgroX <no-reply@agrox.app>", received.From)
	assert.Contains(t, received.Text, "0042")
	assert.Contains(t, received.Text, "10 minutes")
}

func TestResendMailServiceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer server.Close()

	svc := NewResendMailService(&config.Config{ResendAPIKey: "re_test", ResendBaseURL: server.URL})
	err := svc.Send(context.Background(), Email{To: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")

	noKey := NewResendMailService(&config.Config{ResendBaseURL: server.URL})
	assert.Error(t, noKey.Send(context.Background(), Email{To: "x"}))
}

func TestResendMailServiceHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	svc := NewResendMailService(&config.Config{ResendAPIKey: "re_test", ResendBaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Send(ctx, Email{To: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type failingCloseBody struct {
	io.Reader
}

func (failingCloseBody) Close() error { return errors.New("connection reset") }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestResendMailServiceLogsBodyCloseFailure(t *testing.T) {
	var logs bytes.Buffer
	original := log.Writer()
	log.SetOutput(&logs)
	defer log.SetOutput(original)

	svc := NewResendMailService(&config.Config{ResendAPIKey: "re_test", ResendBaseURL: "http://resend.test"})
	svc.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       failingCloseBody{Reader: strings.NewReader(`{"id":"email_123"}`)},
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	err := svc.Send(context.Background(), Email{To: "farmer@example.com"})

	require.NoError(t, err)
	assert.Contains(t, logs.String(), "failed to close resend response body: connection reset")
}

func TestMockMailService(t *testing.T) {
	mock := NewMockMailService()
	mock.FailFor("bad@example.com")

	require.NoError(t, mock.Send(context.Background(), Email{To: "good@example.com", Subject: "a"}))
	require.Error(t, mock.Send(context.Background(), Email{To: "bad@example.com"}))

	sent := mock.Sent()
	require.Len(t, sent, 1)
	_, ok := mock.LastTo("bad@example.com")
	assert.False(t, ok)
}
