package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/services"
	"github.com/agrox-fyp/agrox-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateWheatListingRequest represents the request body for listing a wheat lot
type CreateWheatListingRequest struct {
	Title                  string   `json:"title" binding:"required,max=200"`
	PricePerKg             float64  `json:"price_per_kg" binding:"required,gt=0"`
	QuantityKg             float64  `json:"quantity_kg" binding:"required,gt=0"`
	Description            string   `json:"description" binding:"required"`
	WheatVariety           string   `json:"wheat_variety" binding:"max=100"`
	GradeQuality           string   `json:"grade_quality" binding:"max=50"`
	HarvestSeason          string   `json:"harvest_season" binding:"max=50"`
	ProteinContent         *float64 `json:"protein_content" binding:"omitempty,gte=0,max=100"`
	MoistureLevel          *float64 `json:"moisture_level" binding:"omitempty,gte=0,max=100"`
	OrganicCertified       bool     `json:"organic_certified"`
	PesticidesUsed         bool     `json:"pesticides_used"`
	LocalDeliveryAvailable bool     `json:"local_delivery_available"`
	Image                  string   `json:"image"`
}

// CreatePesticideListingRequest represents the request body for listing a pesticide
type CreatePesticideListingRequest struct {
	Name                   string  `json:"name" binding:"required,max=200"`
	Price                  float64 `json:"price" binding:"required,gt=0"`
	Quantity               int     `json:"quantity" binding:"required,gt=0"`
	Description            string  `json:"description"`
	OrganicCertified       bool    `json:"organic_certified"`
	RestrictedUse          bool    `json:"restricted_use"`
	LocalDeliveryAvailable bool    `json:"local_delivery_available"`
	Image                  string  `json:"image"`
}

// CreateMachineryListingRequest represents the request body for offering machinery for rent
type CreateMachineryListingRequest struct {
	MachineryTypeID uint    `json:"machinery_type_id" binding:"required,gt=0"`
	Name            string  `json:"name" binding:"required,max=200"`
	Description     string  `json:"description" binding:"required"`
	DailyRate       float64 `json:"daily_rate" binding:"required,gt=0"`
	MinDays         int     `json:"min_days" binding:"required,gt=0"`
	StartDate       string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate         string  `json:"end_date" binding:"required,datetime=2006-01-02"`
	Image           string  `json:"image"`
}

// listingPtr constrains PT to a pointer to a listing model T
type listingPtr[T any] interface {
	*T
	models.Listing
}

// uploadListingImage stores the optional base64 image and returns its key.
// It writes the error response itself and returns ok=false on failure.
func uploadListingImage(c *gin.Context, listingType models.ListingType, ownerID uint, encoded string) (*string, bool) {
	if encoded == "" {
		return nil, true
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, apperrors.New("STORAGE_UNAVAILABLE", "Image storage is not configured", http.StatusInternalServerError, nil))
		return nil, false
	}

	key, err := imageService.UploadListingImage(c.Request.Context(), listingType, ownerID, encoded)
	if err != nil {
		var imageErr *utils.ImageError
		if errors.As(err, &imageErr) {
			respondError(c, apperrors.BadRequest(imageErr.Code, imageErr.Message))
			return nil, false
		}
		respondError(c, apperrors.New("UPLOAD_FAILED", "Failed to upload image", http.StatusInternalServerError, err))
		return nil, false
	}
	return &key, true
}

// discardImage removes an uploaded object whose row was never written
func discardImage(ctx context.Context, key *string) {
	if key == nil {
		return
	}
	// The request context may already be done when the insert timed out
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := services.GetImageService().DeleteImage(cleanupCtx, *key); err != nil {
		log.Printf("listings: discard image %s: %v", *key, err)
	}
}

// insertListing writes the row and responds with 201, removing the image on failure
func insertListing(c *gin.Context, listing models.Listing, message string) {
	ctx := c.Request.Context()
	if err := config.GetDB().WithContext(ctx).Create(listing).Error; err != nil {
		discardImage(ctx, listing.StoredImageKey())
		log.Printf("listings: create %s for user %d: %v", listing.Type(), listing.OwnerID(), err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"listing_id": listing.GetID(),
		"image_url":  services.ResolveImageURL(ctx, listing.StoredImageKey()),
		"message":    message,
	})
}

// CreateWheatListing handles POST /api/v1/wheat-listings
func CreateWheatListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateWheatListingRequest
	if !bindJSON(c, &req) {
		return
	}

	imageKey, ok := uploadListingImage(c, models.ListingWheat, userID, req.Image)
	if !ok {
		return
	}

	insertListing(c, &models.WheatListing{
		UserID:                 userID,
		Title:                  req.Title,
		PricePerKg:             req.PricePerKg,
		QuantityKg:             req.QuantityKg,
		Description:            req.Description,
		WheatVariety:           req.WheatVariety,
		GradeQuality:           req.GradeQuality,
		HarvestSeason:          req.HarvestSeason,
		ProteinContent:         req.ProteinContent,
		MoistureLevel:          req.MoistureLevel,
		OrganicCertified:       req.OrganicCertified,
		PesticidesUsed:         req.PesticidesUsed,
		LocalDeliveryAvailable: req.LocalDeliveryAvailable,
		ImageKey:               imageKey,
	}, "Wheat listing created successfully")
}

// CreatePesticideListing handles POST /api/v1/pesticides
func CreatePesticideListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreatePesticideListingRequest
	if !bindJSON(c, &req) {
		return
	}

	imageKey, ok := uploadListingImage(c, models.ListingPesticide, userID, req.Image)
	if !ok {
		return
	}

	insertListing(c, &models.PesticideListing{
		UserID:                 userID,
		Name:                   req.Name,
		Price:                  req.Price,
		Quantity:               req.Quantity,
		Description:            req.Description,
		OrganicCertified:       req.OrganicCertified,
		RestrictedUse:          req.RestrictedUse,
		LocalDeliveryAvailable: req.LocalDeliveryAvailable,
		ImageKey:               imageKey,
	}, "Pesticide listing created successfully")
}

// CreateMachineryListing handles POST /api/v1/machinery
func CreateMachineryListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateMachineryListingRequest
	if !bindJSON(c, &req) {
		return
	}
	// Both dates passed the datetime rule, so string order is date order
	if req.EndDate < req.StartDate {
		respondError(c, apperrors.Validation("End date must be after start date"))
		return
	}

	imageKey, ok := uploadListingImage(c, models.ListingMachinery, userID, req.Image)
	if !ok {
		return
	}

	insertListing(c, &models.MachineryListing{
		UserID:          userID,
		MachineryTypeID: req.MachineryTypeID,
		Name:            req.Name,
		Description:     req.Description,
		DailyRate:       req.DailyRate,
		MinDays:         req.MinDays,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		ImageKey:        imageKey,
	}, "Machinery listing created successfully")
}

func listListings[T any, PT listingPtr[T]](c *gin.Context) {
	ctx := c.Request.Context()
	query := config.GetDB().WithContext(ctx).Order("created_at DESC, id DESC")

	if raw := c.Query("user_id"); raw != "" {
		ownerID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || ownerID == 0 {
			respondError(c, apperrors.Validation("user_id must be a positive integer"))
			return
		}
		query = query.Where("user_id = ?", ownerID)
	}

	rows := []T{}
	if err := query.Find(&rows).Error; err != nil {
		respondError(c, err)
		return
	}
	for i := range rows {
		services.AttachImageURL(ctx, PT(&rows[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rows,
	})
}

// findListing loads one listing by the :id path parameter, writing 400/404 itself
func findListing[T any, PT listingPtr[T]](c *gin.Context) (PT, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}

	row := PT(new(T))
	if err := config.GetDB().WithContext(c.Request.Context()).First(row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NotFound("Listing"))
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return row, true
}

func getListing[T any, PT listingPtr[T]](c *gin.Context) {
	listing, ok := findListing[T, PT](c)
	if !ok {
		return
	}
	services.AttachImageURL(c.Request.Context(), listing)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listing,
	})
}

func deleteListing[T any, PT listingPtr[T]](c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	listing, ok := findListing[T, PT](c)
	if !ok {
		return
	}
	if listing.OwnerID() != userID {
		respondError(c, apperrors.Forbidden("You can only delete your own listings"))
		return
	}

	ctx := c.Request.Context()
	if err := config.GetDB().WithContext(ctx).Delete(listing).Error; err != nil {
		respondError(c, err)
		return
	}

	if key := listing.StoredImageKey(); key != nil {
		if imageService := services.GetImageService(); imageService != nil {
			if err := imageService.DeleteImage(ctx, *key); err != nil {
				log.Printf("listings: delete image %s: %v", *key, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Listing deleted successfully",
	})
}

// ListWheatListings handles GET /api/v1/wheat-listings
func ListWheatListings(c *gin.Context) { listListings[models.WheatListing](c) }

// GetWheatListing handles GET /api/v1/wheat-listings/:id
func GetWheatListing(c *gin.Context) { getListing[models.WheatListing](c) }

// DeleteWheatListing handles DELETE /api/v1/wheat-listings/:id
func DeleteWheatListing(c *gin.Context) { deleteListing[models.WheatListing](c) }

// ListPesticideListings handles GET /api/v1/pesticides
func ListPesticideListings(c *gin.Context) { listListings[models.PesticideListing](c) }

// GetPesticideListing handles GET /api/v1/pesticides/:id
func GetPesticideListing(c *gin.Context) { getListing[models.PesticideListing](c) }

// DeletePesticideListing handles DELETE /api/v1/pesticides/:id
func DeletePesticideListing(c *gin.Context) { deleteListing[models.PesticideListing](c) }

// ListMachineryListings handles GET /api/v1/machinery
func ListMachineryListings(c *gin.Context) { listListings[models.MachineryListing](c) }

// GetMachineryListing handles GET /api/v1/machinery/:id
func GetMachineryListing(c *gin.Context) { getListing[models.MachineryListing](c) }

// DeleteMachineryListing handles DELETE /api/v1/machinery/:id
func DeleteMachineryListing(c *gin.Context) { deleteListing[models.MachineryListing](c) }
