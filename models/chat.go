package models

import "time"

// ChatRoom is a conversation between one buyer and one seller about one listing
type ChatRoom struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	BuyerID     uint        `gorm:"not null;uniqueIndex:idx_chat_room_key,priority:1" json:"buyer_id"`
	SellerID    uint        `gorm:"not null;uniqueIndex:idx_chat_room_key,priority:2;index" json:"seller_id"`
	ListingID   uint        `gorm:"not null;uniqueIndex:idx_chat_room_key,priority:3" json:"listing_id"`
	ListingType ListingType `gorm:"size:20;not null;uniqueIndex:idx_chat_room_key,priority:4" json:"listing_type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// HasParticipant reports whether userID is the buyer or the seller of the room
func (r *ChatRoom) HasParticipant(userID uint) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// OtherParticipant returns the counterparty of userID
func (r *ChatRoom) OtherParticipant(userID uint) uint {
	if r.BuyerID == userID {
		return r.SellerID
	}
	return r.BuyerID
}

// LastActivity is updated_at when set, otherwise created_at
func (r *ChatRoom) LastActivity() time.Time {
	if r.UpdatedAt != nil {
		return *r.UpdatedAt
	}
	return r.CreatedAt
}

// ChatMessage is one message inside a room. Only IsRead ever changes after insert.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index" json:"room_id"`
	SenderID  uint      `gorm:"not null;index" json:"sender_id"`
	Sender    User      `gorm:"foreignKey:SenderID" json:"-"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
