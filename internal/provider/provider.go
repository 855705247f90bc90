// Package provider wraps the external generative image editing service.
package provider

import (
	"context"
	"errors"

	"github.com/reimagine/reimagine/internal/model"
)

// Provider errors. The gate treats every one of them as a single provider
// failure class; the distinctions exist for logging and metrics.
var (
	// ErrTextOnlyResponse means the model answered with text (usually a
	// safety refusal) instead of an edited image.
	ErrTextOnlyResponse = errors.New("provider returned text instead of an image")
	// ErrEmptyResponse means the model returned no usable candidates.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ImageEditor performs a single image edit. Implementations are expected to
// be slow (multi-second) and fallible; callers bound them with a context
// deadline.
type ImageEditor interface {
	Edit(ctx context.Context, image []byte, mediaType, instruction string) (*model.EditResult, error)
}
