package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	return db
}

func setupTestConfig() *config.Config {
	cfg := &config.Config{
		GoEnv:          "test",
		JWTSecret:      "test-secret",
		JWTIssuer:      "agrox-api",
		JWTAudience:    "agrox-app",
		TokenTTL:       time.Hour,
		RequestTimeout: 5 * time.Second,
		OTPTTL:         10 * time.Minute,
		ResetWindow:    5 * time.Minute,
	}
	config.SetConfig(cfg)
	return cfg
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware sets the context keys the real EnsureValidToken middleware sets
func mockAuthMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func createUser(t *testing.T, db *gorm.DB, name, phone, email string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	user := &models.User{FullName: name, Phone: phone, Email: email, PasswordHash: hash, IsVerified: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decodeBody(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return errObj["code"].(string)
}

// assertStatus fails with the body attached so broken envelopes are visible
func assertStatus(t *testing.T, expected int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, expected, w.Code, w.Body.String())
}
