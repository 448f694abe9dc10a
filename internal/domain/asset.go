package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// MediaType identifies the kind of asset being described.
type MediaType string

// Possible media type values
const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// Common validation errors for Asset and AssetMetadata
var (
	ErrEmptyAssetID       = errors.New("asset ID cannot be empty")
	ErrEmptyAssetName     = errors.New("asset name cannot be empty")
	ErrEmptyAssetPayload  = errors.New("asset payload reference cannot be empty")
	ErrInvalidMediaType   = errors.New("invalid media type")
	ErrEmptyTitle         = errors.New("metadata title cannot be empty")
	ErrEmptyDescription   = errors.New("metadata description cannot be empty")
	ErrNoKeywords         = errors.New("metadata must contain at least one keyword")
)

// Asset represents a single independent unit of media awaiting metadata.
// PayloadRef is an opaque reference the provider adapter knows how to
// interpret (a file path, a data URI, or a pre-extracted frame); the core
// never inspects it.
type Asset struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	MediaType  MediaType `json:"media_type"`
	PayloadRef string    `json:"payload_ref"`
}

// NewAsset creates a new Asset with a generated UUID.
// Returns an error if validation fails.
func NewAsset(name string, mediaType MediaType, payloadRef string) (*Asset, error) {
	asset := &Asset{
		ID:         uuid.New(),
		Name:       name,
		MediaType:  mediaType,
		PayloadRef: payloadRef,
	}

	if err := asset.Validate(); err != nil {
		return nil, err
	}

	return asset, nil
}

// Validate checks if the Asset has valid data.
// Returns an error if any field fails validation.
func (a *Asset) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAssetID
	}

	if a.Name == "" {
		return ErrEmptyAssetName
	}

	if !isValidMediaType(a.MediaType) {
		return ErrInvalidMediaType
	}

	if a.PayloadRef == "" {
		return ErrEmptyAssetPayload
	}

	return nil
}

// isValidMediaType checks if the given media type is a valid MediaType.
func isValidMediaType(mt MediaType) bool {
	switch mt {
	case MediaTypePhoto, MediaTypeVideo:
		return true
	default:
		return false
	}
}

// AssetMetadata is the generated description of one asset: a title, a
// longer description, and a keyword list suitable for stock catalogs.
type AssetMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Validate checks if the AssetMetadata has usable content.
// Returns an error if any field fails validation.
func (m *AssetMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyTitle
	}

	if strings.TrimSpace(m.Description) == "" {
		return ErrEmptyDescription
	}

	if len(m.Keywords) == 0 {
		return ErrNoKeywords
	}

	return nil
}
