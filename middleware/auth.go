package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey          = "user_id"
	validatedClaimsKey = "validated_claims"
)

// unauthorizedBody is identical for missing, malformed, badly signed and expired tokens
const unauthorizedBody = `{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid or missing authentication token"}}`

// CustomClaims contains the application claims carried by access tokens.
type CustomClaims struct {
	UserID uint `json:"user_id"`
}

// Validate rejects tokens that do not identify a user.
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.UserID == 0 {
		return errors.New("token has no user_id claim")
	}
	return nil
}

// NewValidator builds the HS256 validator for tokens issued by services.TokenService
func NewValidator(cfg *config.Config) (*validator.Validator, error) {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	return validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	jwtValidator, err := NewValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(unauthorizedBody)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		authenticated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			claims := token.CustomClaims.(*CustomClaims)

			authenticated = true
			c.Request = r
			c.Set(userIDKey, claims.UserID)
			c.Set(validatedClaimsKey, token)

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !authenticated {
			c.Abort()
		}
	}
}

// GetUserID extracts the authenticated user's ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok || id == 0 {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not valid"}
	}

	return id, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(validatedClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
