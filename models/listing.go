package models

import (
	"fmt"
	"time"
)

// ListingType identifies which of the three listing tables a row lives in
type ListingType string

const (
	ListingWheat     ListingType = "wheat"
	ListingPesticide ListingType = "pesticide"
	ListingMachinery ListingType = "machinery"
)

// ListingTypes is every valid ListingType
var ListingTypes = []ListingType{ListingWheat, ListingPesticide, ListingMachinery}

// ParseListingType converts a client supplied tag into a ListingType
func ParseListingType(s string) (ListingType, error) {
	switch ListingType(s) {
	case ListingWheat, ListingPesticide, ListingMachinery:
		return ListingType(s), nil
	default:
		return "", fmt.Errorf("unknown listing type %q", s)
	}
}

// Listing is the behaviour shared by all listing variants
type Listing interface {
	GetID() uint
	OwnerID() uint
	Type() ListingType
	StoredImageKey() *string
	SetImageURL(url *string)
}

// ListingSummary is the short form of a listing shown next to a chat room
type ListingSummary struct {
	ID       uint        `json:"id"`
	Type     ListingType `json:"type"`
	Title    string      `json:"title"`
	Price    float64     `json:"price"`
	ImageURL *string     `json:"image_url"`
}

// WheatListing is a crop lot offered for sale
type WheatListing struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"not null;index" json:"user_id"`
	Title                  string    `gorm:"size:200;not null" json:"title"`
	PricePerKg             float64   `gorm:"not null" json:"price_per_kg"`
	QuantityKg             float64   `gorm:"not null" json:"quantity_kg"`
	Description            string    `gorm:"type:text;not null" json:"description"`
	WheatVariety           string    `gorm:"size:100" json:"wheat_variety"`
	GradeQuality           string    `gorm:"size:50" json:"grade_quality"`
	HarvestSeason          string    `gorm:"size:50" json:"harvest_season"`
	ProteinContent         *float64  `json:"protein_content"`
	MoistureLevel          *float64  `json:"moisture_level"`
	OrganicCertified       bool      `gorm:"not null;default:false" json:"organic_certified"`
	PesticidesUsed         bool      `gorm:"not null;default:false" json:"pesticides_used"`
	LocalDeliveryAvailable bool      `gorm:"not null;default:false" json:"local_delivery_available"`
	ImageKey               *string   `gorm:"size:255" json:"-"`
	ImageURL               *string   `gorm:"-" json:"image_url"`
	CreatedAt              time.Time `json:"created_at"`
}

func (WheatListing) TableName() string { return "wheat_listings" }

func (l *WheatListing) GetID() uint             { return l.ID }
func (l *WheatListing) OwnerID() uint           { return l.UserID }
func (l *WheatListing) Type() ListingType       { return ListingWheat }
func (l *WheatListing) StoredImageKey() *string { return l.ImageKey }
func (l *WheatListing) SetImageURL(url *string) { l.ImageURL = url }

// PesticideListing is an agro-chemical product offered for sale
type PesticideListing struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"not null;index" json:"user_id"`
	Name                   string    `gorm:"size:200;not null" json:"name"`
	Price                  float64   `gorm:"not null" json:"price"`
	Quantity               int       `gorm:"not null" json:"quantity"`
	Description            string    `gorm:"type:text" json:"description"`
	OrganicCertified       bool      `gorm:"not null;default:false" json:"organic_certified"`
	RestrictedUse          bool      `gorm:"not null;default:false" json:"restricted_use"`
	LocalDeliveryAvailable bool      `gorm:"not null;default:false" json:"local_delivery_available"`
	ImageKey               *string   `gorm:"size:255" json:"-"`
	ImageURL               *string   `gorm:"-" json:"image_url"`
	CreatedAt              time.Time `json:"created_at"`
}

func (PesticideListing) TableName() string { return "pesticides" }

func (l *PesticideListing) GetID() uint             { return l.ID }
func (l *PesticideListing) OwnerID() uint           { return l.UserID }
func (l *PesticideListing) Type() ListingType       { return ListingPesticide }
func (l *PesticideListing) StoredImageKey() *string { return l.ImageKey }
func (l *PesticideListing) SetImageURL(url *string) { l.ImageURL = url }

// MachineryListing is farm equipment offered for rent over a date range
type MachineryListing struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	MachineryTypeID uint      `gorm:"not null" json:"machinery_type_id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Description     string    `gorm:"type:text;not null" json:"description"`
	DailyRate       float64   `gorm:"not null" json:"daily_rate"`
	MinDays         int       `gorm:"not null" json:"min_days"`
	StartDate       string    `gorm:"size:10;not null" json:"start_date"` // YYYY-MM-DD
	EndDate         string    `gorm:"size:10;not null" json:"end_date"`   // YYYY-MM-DD
	ImageKey        *string   `gorm:"size:255" json:"-"`
	ImageURL        *string   `gorm:"-" json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

func (MachineryListing) TableName() string { return "machinery_rentals" }

func (l *MachineryListing) GetID() uint             { return l.ID }
func (l *MachineryListing) OwnerID() uint           { return l.UserID }
func (l *MachineryListing) Type() ListingType       { return ListingMachinery }
func (l *MachineryListing) StoredImageKey() *string { return l.ImageKey }
func (l *MachineryListing) SetImageURL(url *string) { l.ImageURL = url }
