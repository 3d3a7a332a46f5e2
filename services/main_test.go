package services

import (
	"testing"

	"github.com/agrox-fyp/agrox-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, phone, email string) *models.User {
	t.Helper()
	user := &models.User{FullName: name, Phone: phone, Email: email, PasswordHash: "x", IsVerified: true}
	require.NoError(t, db.Create(user).Error)
	return user
}
