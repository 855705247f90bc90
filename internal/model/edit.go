package model

// Supported source image media types. The provider accepts more, but the
// public contract is pinned to the formats the uploader produces.
const (
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
	MediaTypeWebP = "image/webp"
)

// AllowedMediaTypes is the allow-set enforced before any credit is spent.
var AllowedMediaTypes = map[string]bool{
	MediaTypePNG:  true,
	MediaTypeJPEG: true,
	MediaTypeWebP: true,
}

// IsAllowedMediaType reports whether the declared media type is accepted.
func IsAllowedMediaType(mediaType string) bool {
	return AllowedMediaTypes[mediaType]
}

// EditRequest is a single edit submission. It lives for exactly one gate
// invocation and is never persisted.
type EditRequest struct {
	EditID      string
	UserID      string
	Image       []byte
	MediaType   string
	Instruction string
}

// EditResult is the edited image returned by the provider on success.
type EditResult struct {
	Image     []byte
	MediaType string
}
