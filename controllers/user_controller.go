package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	FullName string `json:"full_name" binding:"omitempty,max=120"`
	Email    string `json:"email" binding:"omitempty,email"`
}

func loadCurrentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	var user models.User
	if err := config.GetDB().WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NotFound("User"))
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return &user, true
}

// GetMyProfile handles GET /api/v1/users/me - returns the current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates the current user's profile
func UpdateMyProfile(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.FullName); name != "" {
		updates["full_name"] = name
	}
	if req.Email != "" {
		updates["email"] = normalizeEmail(req.Email)
	}

	if len(updates) == 0 {
		respondError(c, apperrors.BadRequest("NO_UPDATES", "No fields to update"))
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isDuplicateKey(err) {
			respondError(c, apperrors.New("EMAIL_EXISTS", "Email already in use by another user", http.StatusConflict, err))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}
