package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatService implements buyer/seller conversations about a listing.
// Every multi-statement operation runs inside a single gorm transaction.
type ChatService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewChatService creates a chat service on db
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db, now: time.Now}
}

// ResolvedRoom is the outcome of ResolveRoom
type ResolvedRoom struct {
	RoomID      uint `json:"room_id"`
	OtherUserID uint `json:"other_user_id"`
	Created     bool `json:"-"`
}

// MessageView is a message as returned to clients
type MessageView struct {
	ID         uint      `json:"id"`
	RoomID     uint      `json:"room_id"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomSummary is one inbox entry
type RoomSummary struct {
	RoomID        uint                   `json:"room_id"`
	ListingID     uint                   `json:"listing_id"`
	ListingType   models.ListingType     `json:"listing_type"`
	BuyerID       uint                   `json:"buyer_id"`
	SellerID      uint                   `json:"seller_id"`
	OtherUserID   uint                   `json:"other_user_id"`
	OtherUserName string                 `json:"other_user_name"`
	Listing       *models.ListingSummary `json:"listing"`
	LastMessage   *string                `json:"last_message"`
	LastMessageAt *time.Time             `json:"last_message_at"`
	UnreadCount   int64                  `json:"unread_count"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at"`
}

func newListingModel(t models.ListingType) (models.Listing, error) {
	switch t {
	case models.ListingWheat:
		return &models.WheatListing{}, nil
	case models.ListingPesticide:
		return &models.PesticideListing{}, nil
	case models.ListingMachinery:
		return &models.MachineryListing{}, nil
	}
	return nil, apperrors.Validation("listing_type must be one of: wheat, pesticide, machinery")
}

func (s *ChatService) listingOwner(ctx context.Context, t models.ListingType, listingID uint) (uint, error) {
	listing, err := newListingModel(t)
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NotFound("Listing")
		}
		return 0, apperrors.Internal("Failed to load listing", err)
	}
	return listing.OwnerID(), nil
}

// ResolveRoom returns the room between requester and the listing owner for
// this listing, creating it if needed. Concurrent callers for the same key
// always end up with the same room: the insert is guarded by the unique
// index and ON CONFLICT DO NOTHING, and a lost race re-reads the winner.
func (s *ChatService) ResolveRoom(ctx context.Context, requesterID, listingID uint, listingType models.ListingType) (*ResolvedRoom, error) {
	ownerID, err := s.listingOwner(ctx, listingType, listingID)
	if err != nil {
		return nil, err
	}
	if ownerID == requesterID {
		return nil, apperrors.BadRequest("SELF_CHAT", "You cannot start a chat about your own listing")
	}

	result := &ResolvedRoom{OtherUserID: ownerID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.ChatRoom
		err := tx.Where("listing_id = ? AND listing_type = ?", listingID, listingType).
			Where("(buyer_id = ? AND seller_id = ?) OR (buyer_id = ? AND seller_id = ?)",
				requesterID, ownerID, ownerID, requesterID).
			First(&room).Error
		if err == nil {
			result.RoomID = room.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		room = models.ChatRoom{
			BuyerID:     requesterID,
			SellerID:    ownerID,
			ListingID:   listingID,
			ListingType: listingType,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&room)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 && room.ID != 0 {
			result.RoomID = room.ID
			result.Created = true
			return nil
		}

		// A locking read sees the row committed by the concurrent winner even
		// under a REPEATABLE READ snapshot.
		var existing models.ChatRoom
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Where(&models.ChatRoom{
			BuyerID:     requesterID,
			SellerID:    ownerID,
			ListingID:   listingID,
			ListingType: listingType,
		}).First(&existing).Error; err != nil {
			return err
		}
		result.RoomID = existing.ID
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to open chat room", err)
	}
	return result, nil
}

// participantRoom loads a room and checks membership. Existence is checked
// first so a missing room is always 404 and an existing foreign room is 403.
func participantRoom(tx *gorm.DB, roomID, userID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := tx.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Chat room")
		}
		return nil, apperrors.Internal("Failed to load chat room", err)
	}
	if !room.HasParticipant(userID) {
		return nil, apperrors.Forbidden("You are not a participant in this chat room")
	}
	return &room, nil
}

func selectSenderName(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Select("id", "full_name")
}

func toMessageView(m *models.ChatMessage) MessageView {
	return MessageView{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.Sender.FullName,
		Message:    m.Message,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// ListMessages returns the room's messages oldest first and marks the ones the
// other participant wrote as read. Only the ids in the returned batch are
// marked, so a message inserted concurrently stays unread.
func (s *ChatService) ListMessages(ctx context.Context, roomID, userID uint) ([]MessageView, error) {
	var views []MessageView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := participantRoom(tx, roomID, userID); err != nil {
			return err
		}

		var messages []models.ChatMessage
		if err := tx.Preload("Sender", selectSenderName).
			Where("room_id = ?", roomID).
			Order("created_at ASC").Order("id ASC").
			Find(&messages).Error; err != nil {
			return apperrors.Internal("Failed to load messages", err)
		}

		var unread []uint
		views = make([]MessageView, 0, len(messages))
		for i := range messages {
			if !messages[i].IsRead && messages[i].SenderID != userID {
				unread = append(unread, messages[i].ID)
				messages[i].IsRead = true
			}
			views = append(views, toMessageView(&messages[i]))
		}

		if len(unread) > 0 {
			if err := tx.Model(&models.ChatMessage{}).Where("id IN ?", unread).
				Update("is_read", true).Error; err != nil {
				return apperrors.Internal("Failed to mark messages as read", err)
			}
		}
		return touchRoom(tx, roomID, s.now())
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func touchRoom(tx *gorm.DB, roomID uint, at time.Time) error {
	if err := tx.Model(&models.ChatRoom{}).Where("id = ?", roomID).
		Update("updated_at", at).Error; err != nil {
		return apperrors.Internal("Failed to update chat room", err)
	}
	return nil
}

// SendMessage appends a message from userID and bumps the room's activity time
func (s *ChatService) SendMessage(ctx context.Context, roomID, userID uint, text string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("message cannot be empty")
	}

	var view MessageView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := participantRoom(tx, roomID, userID); err != nil {
			return err
		}

		msg := models.ChatMessage{RoomID: roomID, SenderID: userID, Message: text, IsRead: false}
		if err := tx.Omit("Sender").Create(&msg).Error; err != nil {
			return apperrors.Internal("Failed to send message", err)
		}
		if err := touchRoom(tx, roomID, msg.CreatedAt); err != nil {
			return err
		}
		if err := selectSenderName(tx).First(&msg.Sender, userID).Error; err != nil &&
			!errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Internal("Failed to load sender", err)
		}

		view = toMessageView(&msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteRoom removes a room and all of its messages
func (s *ChatService) DeleteRoom(ctx context.Context, roomID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := participantRoom(tx, roomID, userID); err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.ChatMessage{}).Error; err != nil {
			return apperrors.Internal("Failed to delete messages", err)
		}
		if err := tx.Delete(&models.ChatRoom{}, roomID).Error; err != nil {
			return apperrors.Internal("Failed to delete chat room", err)
		}
		return nil
	})
}

// UnreadCount counts messages in the user's rooms that others wrote and the user has not read
func (s *ChatService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Joins("JOIN chat_rooms ON chat_rooms.id = chat_messages.room_id").
		Where("chat_rooms.buyer_id = ? OR chat_rooms.seller_id = ?", userID, userID).
		Where("chat_messages.sender_id <> ? AND chat_messages.is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("Failed to count unread messages", err)
	}
	return count, nil
}

type roomCount struct {
	RoomID uint
	Count  int64
}

// ListRooms returns the user's inbox, most recently active first
func (s *ChatService) ListRooms(ctx context.Context, userID uint) ([]RoomSummary, error) {
	db := s.db.WithContext(ctx)

	var rooms []models.ChatRoom
	if err := db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("COALESCE(updated_at, created_at) DESC").Order("id DESC").
		Find(&rooms).Error; err != nil {
		return nil, apperrors.Internal("Failed to load chat rooms", err)
	}
	summaries := make([]RoomSummary, 0, len(rooms))
	if len(rooms) == 0 {
		return summaries, nil
	}

	roomIDs := make([]uint, 0, len(rooms))
	otherIDs := make([]uint, 0, len(rooms))
	listingIDs := make(map[models.ListingType][]uint)
	for i := range rooms {
		roomIDs = append(roomIDs, rooms[i].ID)
		otherIDs = append(otherIDs, rooms[i].OtherParticipant(userID))
		listingIDs[rooms[i].ListingType] = append(listingIDs[rooms[i].ListingType], rooms[i].ListingID)
	}

	var users []models.User
	if err := db.Unscoped().Select("id", "full_name").Where("id IN ?", otherIDs).Find(&users).Error; err != nil {
		return nil, apperrors.Internal("Failed to load chat participants", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	var lastMessages []models.ChatMessage
	latestIDs := db.Model(&models.ChatMessage{}).Select("MAX(id)").Where("room_id IN ?", roomIDs).Group("room_id")
	if err := db.Where("id IN (?)", latestIDs).Find(&lastMessages).Error; err != nil {
		return nil, apperrors.Internal("Failed to load last messages", err)
	}
	last := make(map[uint]*models.ChatMessage, len(lastMessages))
	for i := range lastMessages {
		last[lastMessages[i].RoomID] = &lastMessages[i]
	}

	var counts []roomCount
	if err := db.Model(&models.ChatMessage{}).
		Select("room_id, COUNT(*) AS count").
		Where("room_id IN ? AND sender_id <> ? AND is_read = ?", roomIDs, userID, false).
		Group("room_id").
		Scan(&counts).Error; err != nil {
		return nil, apperrors.Internal("Failed to count unread messages", err)
	}
	unread := make(map[uint]int64, len(counts))
	for _, c := range counts {
		unread[c.RoomID] = c.Count
	}

	listings, err := s.listingSummaries(ctx, listingIDs)
	if err != nil {
		return nil, err
	}

	for i := range rooms {
		room := &rooms[i]
		other := room.OtherParticipant(userID)
		summary := RoomSummary{
			RoomID:        room.ID,
			ListingID:     room.ListingID,
			ListingType:   room.ListingType,
			BuyerID:       room.BuyerID,
			SellerID:      room.SellerID,
			OtherUserID:   other,
			OtherUserName: names[other],
			Listing:       listings[listingKey{room.ListingType, room.ListingID}],
			UnreadCount:   unread[room.ID],
			CreatedAt:     room.CreatedAt,
			UpdatedAt:     room.UpdatedAt,
		}
		if msg, ok := last[room.ID]; ok {
			text, at := msg.Message, msg.CreatedAt
			summary.LastMessage = &text
			summary.LastMessageAt = &at
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

type listingKey struct {
	Type models.ListingType
	ID   uint
}

// listingSummaries loads the short listing view for each type with one fixed query per type
func (s *ChatService) listingSummaries(ctx context.Context, ids map[models.ListingType][]uint) (map[listingKey]*models.ListingSummary, error) {
	db := s.db.WithContext(ctx)
	out := make(map[listingKey]*models.ListingSummary)
	add := func(t models.ListingType, id uint, title string, price float64, imageKey *string) {
		out[listingKey{t, id}] = &models.ListingSummary{
			ID:       id,
			Type:     t,
			Title:    title,
			Price:    price,
			ImageURL: ResolveImageURL(ctx, imageKey),
		}
	}

	for t, listingIDs := range ids {
		switch t {
		case models.ListingWheat:
			var rows []models.WheatListing
			if err := db.Where("id IN ?", listingIDs).Find(&rows).Error; err != nil {
				return nil, apperrors.Internal("Failed to load listings", err)
			}
			for _, r := range rows {
				add(t, r.ID, r.Title, r.PricePerKg, r.ImageKey)
			}
		case models.ListingPesticide:
			var rows []models.PesticideListing
			if err := db.Where("id IN ?", listingIDs).Find(&rows).Error; err != nil {
				return nil, apperrors.Internal("Failed to load listings", err)
			}
			for _, r := range rows {
				add(t, r.ID, r.Name, r.Price, r.ImageKey)
			}
		case models.ListingMachinery:
			var rows []models.MachineryListing
			if err := db.Where("id IN ?", listingIDs).Find(&rows).Error; err != nil {
				return nil, apperrors.Internal("Failed to load listings", err)
			}
			for _, r := range rows {
				add(t, r.ID, r.Name, r.DailyRate, r.ImageKey)
			}
		}
	}
	return out, nil
}
