package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/services"
	"github.com/agrox-fyp/agrox-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// maxSignupOTPAttempts is the number of wrong codes after which an unverified account is removed
const maxSignupOTPAttempts = 2

// SignupRequest represents the request body for registering an account
type SignupRequest struct {
	FullName string `json:"full_name" binding:"required,max=120"`
	Phone    string `json:"phone" binding:"required,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// VerifySignupOTPRequest represents the request body for confirming a registration
type VerifySignupOTPRequest struct {
	UserID uint   `json:"user_id" binding:"required,gt=0"`
	OTP    string `json:"otp" binding:"required"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest represents the request body for starting a password reset
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest represents the request body for proving ownership of the email
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// ResetPasswordRequest represents the request body for setting a new password
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func otpExpired(sentAt *time.Time, ttl time.Duration) bool {
	return sentAt == nil || time.Since(*sentAt) > ttl
}

// errMailFailed marks a delivery failure so the signup transaction rolls back
var errMailFailed = errors.New("otp email could not be sent")

// Signup handles POST /api/v1/signup - registers an unverified account and emails an OTP
func Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	cfg := config.GetConfig()
	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	phone := strings.TrimSpace(req.Phone)

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, apperrors.Internal("Failed to register user", err))
		return
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		respondError(c, apperrors.Internal("Failed to register user", err))
		return
	}

	sentAt := time.Now()
	user := models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        phone,
		Email:        email,
		PasswordHash: hash,
		EmailOTP:     &otp,
		OTPSentAt:    &sentAt,
	}

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Unscoped().Model(&models.User{}).
			Where("phone = ? OR email = ?", phone, email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return apperrors.Conflict("Phone or email already registered")
		}

		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict("Phone or email already registered")
			}
			return err
		}

		if err := services.GetMailService().Send(ctx, services.OTPEmail(email, otp, cfg.OTPTTL)); err != nil {
			log.Printf("auth: signup otp to %s: %v", email, err)
			return errMailFailed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errMailFailed) {
			respondError(c, apperrors.New("MAIL_FAILED", "Failed to send OTP", http.StatusInternalServerError, err))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully. OTP sent to email.",
		"user_id": user.ID,
	})
}

// VerifySignupOTP handles POST /api/v1/signup/verify_otp
func VerifySignupOTP(c *gin.Context) {
	var req VerifySignupOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	db := config.GetDB().WithContext(ctx)

	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NotFound("User"))
			return
		}
		respondError(c, err)
		return
	}
	if user.IsVerified {
		respondError(c, apperrors.BadRequest("ALREADY_VERIFIED", "Account is already verified"))
		return
	}

	if user.EmailOTP == nil || !utils.EqualConstantTime(*user.EmailOTP, strings.TrimSpace(req.OTP)) {
		if err := db.Model(&user).UpdateColumn("otp_attempts", gorm.Expr("otp_attempts + 1")).Error; err != nil {
			respondError(c, err)
			return
		}
		if err := db.Select("otp_attempts").First(&user, user.ID).Error; err != nil {
			respondError(c, err)
			return
		}

		if user.OTPAttempts >= maxSignupOTPAttempts {
			if err := db.Unscoped().Delete(&models.User{}, user.ID).Error; err != nil {
				respondError(c, err)
				return
			}
			respondError(c, apperrors.BadRequest("TOO_MANY_ATTEMPTS", "Too many failed attempts. Please register again."))
			return
		}
		respondError(c, apperrors.Unauthorized("OTP does not match"))
		return
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"email_otp":    nil,
		"otp_attempts": 0,
		"otp_sent_at":  nil,
		"is_verified":  true,
	}).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP verified successfully, registration complete!",
	})
}

// Login handles POST /api/v1/login - exchanges phone and password for an access token
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	invalid := apperrors.Unauthorized("Invalid phone number or password")

	var user models.User
	err := config.GetDB().WithContext(c.Request.Context()).
		Where("phone = ?", strings.TrimSpace(req.Phone)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, invalid)
			return
		}
		respondError(c, err)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		respondError(c, invalid)
		return
	}
	if !user.IsVerified {
		respondError(c, apperrors.Forbidden("Please verify your email before logging in"))
		return
	}

	token, expiresAt, err := services.NewTokenService(config.GetConfig()).Issue(user.ID)
	if err != nil {
		respondError(c, apperrors.Internal("Failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Login successful",
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":        user.ID,
			"full_name": user.FullName,
			"phone":     user.Phone,
			"email":     user.Email,
		},
	})
}

// findUserByEmail loads a user or writes 404
func findUserByEmail(c *gin.Context, email string) (*models.User, bool) {
	var user models.User
	err := config.GetDB().WithContext(c.Request.Context()).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NotFound("User"))
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return &user, true
}

// SendPasswordOTP handles POST /api/v1/otp/send_otp
func SendPasswordOTP(c *gin.Context) {
	var req SendOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	user, ok := findUserByEmail(c, req.Email)
	if !ok {
		return
	}

	cfg := config.GetConfig()
	ctx := c.Request.Context()

	otp, err := utils.GenerateOTP()
	if err != nil {
		respondError(c, apperrors.Internal("Failed to generate OTP", err))
		return
	}
	if err := config.GetDB().WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"email_otp":       otp,
		"otp_sent_at":     time.Now(),
		"otp_attempts":    0,
		"otp_verified_at": nil,
	}).Error; err != nil {
		respondError(c, err)
		return
	}

	if err := services.GetMailService().Send(ctx, services.OTPEmail(user.Email, otp, cfg.OTPTTL)); err != nil {
		log.Printf("auth: reset otp to %s: %v", user.Email, err)
		respondError(c, apperrors.New("MAIL_FAILED", "Failed to send OTP", http.StatusInternalServerError, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("OTP sent to %s", user.Email),
		"token":   utils.OTPToken(otp, cfg.JWTSecret),
	})
}

// VerifyPasswordOTP handles POST /api/v1/otp/verify_otp
func VerifyPasswordOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	user, ok := findUserByEmail(c, req.Email)
	if !ok {
		return
	}

	cfg := config.GetConfig()
	if user.EmailOTP == nil {
		respondError(c, apperrors.BadRequest("OTP_NOT_REQUESTED", "No OTP has been requested for this email"))
		return
	}
	if otpExpired(user.OTPSentAt, cfg.OTPTTL) {
		respondError(c, apperrors.BadRequest("OTP_EXPIRED", "OTP has expired"))
		return
	}

	otp := strings.TrimSpace(req.OTP)
	if !utils.EqualConstantTime(*user.EmailOTP, otp) ||
		!utils.EqualConstantTime(utils.OTPToken(otp, cfg.JWTSecret), req.Token) {
		respondError(c, apperrors.BadRequest("INVALID_OTP", "Invalid OTP"))
		return
	}

	if err := config.GetDB().WithContext(c.Request.Context()).Model(user).Updates(map[string]interface{}{
		"email_otp":       nil,
		"otp_verified_at": time.Now(),
	}).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP verified successfully",
	})
}

// ResetPassword handles POST /api/v1/otp/reset_password
func ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, ok := findUserByEmail(c, req.Email)
	if !ok {
		return
	}

	if otpExpired(user.OTPVerifiedAt, config.GetConfig().ResetWindow) {
		respondError(c, apperrors.Forbidden("Verify the OTP sent to your email before resetting the password"))
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, apperrors.Internal("Failed to reset password", err))
		return
	}

	user.ClearOTP()
	if err := config.GetDB().WithContext(c.Request.Context()).Model(user).Updates(map[string]interface{}{
		"password_hash":   hash,
		"email_otp":       user.EmailOTP,
		"otp_attempts":    user.OTPAttempts,
		"otp_sent_at":     user.OTPSentAt,
		"otp_verified_at": user.OTPVerifiedAt,
	}).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successfully",
	})
}
