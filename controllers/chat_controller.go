package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/services"
	"github.com/gin-gonic/gin"
)

// CreateChatRoomRequest represents the request body for opening a chat room
// ListingType defaults to wheat when omitted.
type CreateChatRoomRequest struct {
	ListingID   flexibleID `json:"listing_id" binding:"required,gt=0"`
	ListingType string     `json:"listing_type" binding:"omitempty,oneof=wheat pesticide machinery"`
}

// flexibleID accepts both 7 and "7"; mobile clients send either.
type flexibleID uint

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*id = flexibleID(v)
	return nil
}

// SendChatMessageRequest represents the request body for sending a message
type SendChatMessageRequest struct {
	Message string `json:"message"`
}

func chatService() *services.ChatService {
	return services.NewChatService(config.GetDB())
}

// CreateChatRoom handles POST /api/v1/chat/rooms - opens or reuses the room
// between the caller and the listing owner
func CreateChatRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateChatRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.ListingType == "" {
		req.ListingType = string(models.ListingWheat)
	}
	listingType, err := models.ParseListingType(req.ListingType)
	if err != nil {
		respondError(c, apperrors.Validation("listing_type must be one of: wheat, pesticide, machinery"))
		return
	}

	room, err := chatService().ResolveRoom(c.Request.Context(), userID, uint(req.ListingID), listingType)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if room.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success":       true,
		"room_id":       room.RoomID,
		"other_user_id": room.OtherUserID,
	})
}

// ListChatRooms handles GET /api/v1/chat/rooms - the caller's inbox
func ListChatRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rooms, err := chatService().ListRooms(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rooms":   rooms,
	})
}

// GetChatMessages handles GET /api/v1/chat/rooms/:id/messages
func GetChatMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := idParam(c, "id")
	if !ok {
		return
	}

	messages, err := chatService().ListMessages(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": messages,
	})
}

// SendChatMessage handles POST /api/v1/chat/rooms/:id/messages
func SendChatMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SendChatMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := chatService().SendMessage(c.Request.Context(), roomID, userID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.PureJSON(http.StatusCreated, gin.H{
		"success": true,
		"message": message,
	})
}

// DeleteChatRoom handles DELETE /api/v1/chat/rooms/:id
func DeleteChatRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	roomID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := chatService().DeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Chat room deleted",
	})
}

// GetUnreadCount handles GET /api/v1/chat/unread-count. A failed count is
// reported as zero.
func GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := chatService().UnreadCount(c.Request.Context(), userID)
	if err != nil {
		log.Printf("chat: unread count for user %d: %v", userID, err)
		count = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"unread_count": count,
	})
}
