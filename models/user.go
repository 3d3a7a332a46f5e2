package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a marketplace account (farmer, buyer or both)
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	FullName      string         `gorm:"size:120;not null" json:"full_name"`
	Phone         string         `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	Email         string         `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash  string         `gorm:"not null" json:"-"`
	EmailOTP      *string        `gorm:"size:8" json:"-"`
	OTPAttempts   int            `gorm:"not null;default:0" json:"-"`
	OTPSentAt     *time.Time     `json:"-"`
	OTPVerifiedAt *time.Time     `json:"-"`
	IsVerified    bool           `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// ClearOTP resets every piece of one-time-code state on the user
func (u *User) ClearOTP() {
	u.EmailOTP = nil
	u.OTPAttempts = 0
	u.OTPSentAt = nil
	u.OTPVerifiedAt = nil
}
