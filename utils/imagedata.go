package utils

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxImageSize is 10MB in bytes
	MaxImageSize = 10 * 1024 * 1024
)

// AllowedImageTypes maps accepted MIME types to the extension used for storage
var AllowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ImageError represents an image validation error
type ImageError struct {
	Code    string
	Message string
}

func (e *ImageError) Error() string {
	return e.Message
}

// DecodedImage is a validated image ready for upload
type DecodedImage struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeBase64Image accepts a raw or data-URL base64 string, tolerates missing
// padding, and checks the decoded bytes are an allowed image within MaxImageSize.
func DecodeBase64Image(encoded string) (*DecodedImage, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	payload = strings.TrimRight(payload, "=")
	if payload == "" {
		return nil, &ImageError{Code: "INVALID_IMAGE", Message: "Image data is empty"}
	}

	// Upper bound on decoded size without decoding first
	if base64.RawStdEncoding.DecodedLen(len(payload)) > MaxImageSize {
		return nil, tooLarge()
	}

	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &ImageError{Code: "INVALID_IMAGE", Message: "Invalid base64 encoding in image"}
	}
	if len(data) == 0 {
		return nil, &ImageError{Code: "INVALID_IMAGE", Message: "Image data is empty"}
	}
	if len(data) > MaxImageSize {
		return nil, tooLarge()
	}

	mime := mimetype.Detect(data)
	for allowed, ext := range AllowedImageTypes {
		if mime.Is(allowed) {
			return &DecodedImage{Data: data, ContentType: allowed, Extension: ext}, nil
		}
	}
	return nil, &ImageError{
		Code:    "INVALID_FILE_FORMAT",
		Message: "Only PNG, JPEG and WebP images are allowed",
	}
}

func tooLarge() *ImageError {
	return &ImageError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("Image exceeds maximum allowed size of %d MB", MaxImageSize/(1024*1024)),
	}
}
