package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// respondError writes the error envelope for err. Dependency failures are
// logged with the route and reported with a generic message.
func respondError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": validationMessage(validationErrs),
			},
		})
		return
	}

	appErr := apperrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(appErr.Status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// validationMessage turns the first failed rule into a readable message
func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid request data"
	}
	err := errs[0]
	field := jsonFieldName(err.Field())
	param := err.Param()

	switch err.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "gt":
		return field + " must be greater than " + param
	case "gte":
		return field + " must be at least " + param
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "email":
		return field + " must be a valid email address"
	case "numeric":
		return field + " must contain only digits"
	case "len":
		return field + " must be exactly " + param + " characters"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	default:
		return field + " is invalid"
	}
}

// jsonFieldName converts a Go field name such as ListingID into listing_id
func jsonFieldName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// bindJSON binds the request body and writes a 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			respondError(c, err)
			return false
		}
		respondError(c, apperrors.Validation("Invalid request data"))
		return false
	}
	return true
}

// currentUserID returns the authenticated user or writes a 401
func currentUserID(c *gin.Context) (uint, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, apperrors.Unauthorized("Could not extract user information"))
		return 0, false
	}
	return userID, true
}

// idParam parses a positive numeric path parameter or writes a 400
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.Validation(name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// isDuplicateKey detects unique constraint violations across postgres, mysql and sqlite
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
