package generation

import (
	"context"

	"github.com/phrazzld/tagforge/internal/domain"
)

// Describer defines the interface for generating metadata for a single
// asset. This interface serves as a boundary between the dispatch core and
// external AI/LLM services; implementations live under internal/platform.
type Describer interface {
	// Describe produces metadata for the asset using the given credential.
	// It returns the generated metadata or an error classified per this
	// package's taxonomy (see errors.go), so callers can decide between
	// retrying, rotating credentials, or failing the item.
	Describe(ctx context.Context, asset domain.Asset, credential domain.Credential) (domain.AssetMetadata, error)
}

// Prober issues the minimal validation probe for a credential secret.
// A nil return means the provider accepted the probe (HTTP 200); provider
// rejections surface as *RequestError carrying the status code; transport
// failures surface as errors wrapping ErrTransient.
type Prober interface {
	Probe(ctx context.Context, secret string) error
}
