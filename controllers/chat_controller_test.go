package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/agrox-fyp/agrox-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupChatRouter(userID uint) *gin.Engine {
	router := setupTestRouter()
	chat := router.Group("/api/v1/chat")
	if userID != 0 {
		chat.Use(mockAuthMiddleware(userID))
	}
	chat.POST("/rooms", CreateChatRoom)
	chat.GET("/rooms", ListChatRooms)
	chat.GET("/rooms/:id/messages", GetChatMessages)
	chat.POST("/rooms/:id/messages", SendChatMessage)
	chat.DELETE("/rooms/:id", DeleteChatRoom)
	chat.GET("/unread-count", GetUnreadCount)
	return router
}

func createWheatListing(t *testing.T, db *gorm.DB, ownerID uint, title string) *models.WheatListing {
	t.Helper()
	listing := &models.WheatListing{
		UserID:      ownerID,
		Title:       title,
		PricePerKg:  95,
		QuantityKg:  1000,
		Description: "Clean Punjab wheat",
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func openRoom(t *testing.T, buyerID uint, listingID uint) uint {
	t.Helper()
	w := performRequest(setupChatRouter(buyerID), http.MethodPost, "/api/v1/chat/rooms", gin.H{
		"listing_id":   listingID,
		"listing_type": "wheat",
	})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())
	return uint(decodeBody(t, w)["room_id"].(float64))
}

func TestCreateChatRoom(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")
	seller := createUser(t, db, "Sana Seller", "03002222222", "sana@example.com")
	listing := createWheatListing(t, db, seller.ID, "Wheat lot")

	tests := []struct {
		name           string
		userID         uint
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Buyer opens a new room",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "wheat"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Reopening returns the existing room",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "wheat"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "String listing id with listing type omitted",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": fmt.Sprint(listing.ID)},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Non-numeric listing id",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": "abc", "listing_type": "wheat"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Owner cannot chat about own listing",
			userID:         seller.ID,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "wheat"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "SELF_CHAT",
		},
		{
			name:           "Missing listing",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": 9999, "listing_type": "wheat"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "NOT_FOUND",
		},
		{
			name:           "Wheat id looked up as machinery",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "machinery"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "NOT_FOUND",
		},
		{
			name:           "Unknown listing type",
			userID:         buyer.ID,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "tractor"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Missing listing id",
			userID:         buyer.ID,
			body:           gin.H{"listing_type": "wheat"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Malformed JSON",
			userID:         buyer.ID,
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "No authenticated user",
			userID:         0,
			body:           gin.H{"listing_id": listing.ID, "listing_type": "wheat"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "UNAUTHORIZED",
		},
	}

	var firstRoomID float64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(setupChatRouter(tt.userID), http.MethodPost, "/api/v1/chat/rooms", tt.body)
			assertStatus(t, tt.expectedStatus, w)

			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
				return
			}

			response := decodeBody(t, w)
			assert.Equal(t, true, response["success"])
			assert.Equal(t, float64(seller.ID), response["other_user_id"])
			if firstRoomID == 0 {
				firstRoomID = response["room_id"].(float64)
			}
			assert.Equal(t, firstRoomID, response["room_id"])
		})
	}

	var rooms int64
	require.NoError(t, db.Model(&models.ChatRoom{}).Count(&rooms).Error)
	assert.Equal(t, int64(1), rooms)
}

func TestChatConversation(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")
	seller := createUser(t, db, "Sana Seller", "03002222222", "sana@example.com")
	listing := createWheatListing(t, db, seller.ID, "Wheat lot")
	roomID := openRoom(t, buyer.ID, listing.ID)
	messagesPath := fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID)

	w := performRequest(setupChatRouter(seller.ID), http.MethodPost, messagesPath, gin.H{"message": "  Is this still available?  "})
	assertStatus(t, http.StatusCreated, w)
	sent := decodeBody(t, w)["message"].(map[string]interface{})
	assert.Equal(t, "Is this still available?", sent["message"])
	assert.Equal(t, "Sana Seller", sent["sender_name"])
	assert.Equal(t, false, sent["is_read"])

	// Buyer has one unread message before opening the room
	w = performRequest(setupChatRouter(buyer.ID), http.MethodGet, "/api/v1/chat/unread-count", nil)
	assertStatus(t, http.StatusOK, w)
	assert.Equal(t, float64(1), decodeBody(t, w)["unread_count"])

	w = performRequest(setupChatRouter(buyer.ID), http.MethodGet, messagesPath, nil)
	assertStatus(t, http.StatusOK, w)
	messages := decodeBody(t, w)["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, true, messages[0].(map[string]interface{})["is_read"])

	w = performRequest(setupChatRouter(buyer.ID), http.MethodGet, "/api/v1/chat/unread-count", nil)
	assert.Equal(t, float64(0), decodeBody(t, w)["unread_count"])

	// Buyer's reply stays unread for the seller until the seller opens the room
	w = performRequest(setupChatRouter(buyer.ID), http.MethodPost, messagesPath, gin.H{"message": "Yes, 500kg please"})
	assertStatus(t, http.StatusCreated, w)
	w = performRequest(setupChatRouter(seller.ID), http.MethodGet, "/api/v1/chat/unread-count", nil)
	assert.Equal(t, float64(1), decodeBody(t, w)["unread_count"])

	w = performRequest(setupChatRouter(seller.ID), http.MethodGet, "/api/v1/chat/rooms", nil)
	assertStatus(t, http.StatusOK, w)
	rooms := decodeBody(t, w)["rooms"].([]interface{})
	require.Len(t, rooms, 1)
	room := rooms[0].(map[string]interface{})
	assert.Equal(t, float64(roomID), room["room_id"])
	assert.Equal(t, "Ali Buyer", room["other_user_name"])
	assert.Equal(t, "Yes, 500kg please", room["last_message"])
	assert.Equal(t, float64(1), room["unread_count"])
	assert.Equal(t, "Wheat lot", room["listing"].(map[string]interface{})["title"])
}

func TestSendChatMessageValidation(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")
	seller := createUser(t, db, "Sana Seller", "03002222222", "sana@example.com")
	outsider := createUser(t, db, "Omar Outsider", "03003333333", "omar@example.com")
	listing := createWheatListing(t, db, seller.ID, "Wheat lot")
	roomID := openRoom(t, buyer.ID, listing.ID)

	tests := []struct {
		name           string
		userID         uint
		path           string
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{"Blank message", buyer.ID, fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID), gin.H{"message": "   "}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Missing message", buyer.ID, fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID), gin.H{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Outsider", outsider.ID, fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID), gin.H{"message": "hi"}, http.StatusForbidden, "FORBIDDEN"},
		{"Unknown room", buyer.ID, "/api/v1/chat/rooms/9999/messages", gin.H{"message": "hi"}, http.StatusNotFound, "NOT_FOUND"},
		{"Non numeric room", buyer.ID, "/api/v1/chat/rooms/abc/messages", gin.H{"message": "hi"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(setupChatRouter(tt.userID), http.MethodPost, tt.path, tt.body)
			assertStatus(t, tt.expectedStatus, w)
			assert.Equal(t, tt.expectedError, errorCode(t, w))
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetChatMessagesAccess(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")
	seller := createUser(t, db, "Sana Seller", "03002222222", "sana@example.com")
	outsider := createUser(t, db, "Omar Outsider", "03003333333", "omar@example.com")
	listing := createWheatListing(t, db, seller.ID, "Wheat lot")
	roomID := openRoom(t, buyer.ID, listing.ID)

	w := performRequest(setupChatRouter(outsider.ID), http.MethodGet, fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID), nil)
	assertStatus(t, http.StatusForbidden, w)

	w = performRequest(setupChatRouter(outsider.ID), http.MethodGet, "/api/v1/chat/rooms/424242/messages", nil)
	assertStatus(t, http.StatusNotFound, w)

	w = performRequest(setupChatRouter(buyer.ID), http.MethodGet, fmt.Sprintf("/api/v1/chat/rooms/%d/messages", roomID), nil)
	assertStatus(t, http.StatusOK, w)
	assert.Empty(t, decodeBody(t, w)["messages"])
}

func TestDeleteChatRoom(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")
	seller := createUser(t, db, "Sana Seller", "03002222222", "sana@example.com")
	outsider := createUser(t, db, "Omar Outsider", "03003333333", "omar@example.com")
	listing := createWheatListing(t, db, seller.ID, "Wheat lot")
	roomID := openRoom(t, buyer.ID, listing.ID)
	roomPath := fmt.Sprintf("/api/v1/chat/rooms/%d", roomID)

	w := performRequest(setupChatRouter(seller.ID), http.MethodPost, roomPath+"/messages", gin.H{"message": "hello"})
	assertStatus(t, http.StatusCreated, w)

	w = performRequest(setupChatRouter(outsider.ID), http.MethodDelete, roomPath, nil)
	assertStatus(t, http.StatusForbidden, w)

	w = performRequest(setupChatRouter(buyer.ID), http.MethodDelete, roomPath, nil)
	assertStatus(t, http.StatusOK, w)
	assert.Equal(t, "Chat room deleted", decodeBody(t, w)["message"])

	w = performRequest(setupChatRouter(buyer.ID), http.MethodDelete, roomPath, nil)
	assertStatus(t, http.StatusNotFound, w)

	var messages int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("room_id = ?", roomID).Count(&messages).Error)
	assert.Zero(t, messages)
}

func TestGetUnreadCountDegradesToZero(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := performRequest(setupChatRouter(buyer.ID), http.MethodGet, "/api/v1/chat/unread-count", nil)
	assertStatus(t, http.StatusOK, w)
	assert.Equal(t, float64(0), decodeBody(t, w)["unread_count"])
}

func TestListChatRoomsFailureIsGeneric(t *testing.T) {
	db := setupTestDB(t)
	buyer := createUser(t, db, "Ali Buyer", "03001111111", "ali@example.com")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := performRequest(setupChatRouter(buyer.ID), http.MethodGet, "/api/v1/chat/rooms", nil)
	assertStatus(t, http.StatusInternalServerError, w)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "sql")
}
