// Package dto defines request/response shapes for the HTTP API.
package dto

// EditRequest is the submit-edit payload. The image travels base64-encoded
// inside the JSON body, matching what browser clients produce from a file
// reader.
type EditRequest struct {
	Image       string `json:"image"`
	MediaType   string `json:"media_type"`
	Instruction string `json:"instruction"`
}

// EditResponse is the successful edit result.
type EditResponse struct {
	EditID    string `json:"edit_id"`
	Image     string `json:"image"`
	MediaType string `json:"media_type"`
}

// AccountResponse is the caller's ledger view.
type AccountResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Credits   int64  `json:"credits"`
	CreatedAt string `json:"created_at"`
}

// IdentityEvent is the identity provider's signup hook payload.
type IdentityEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// CheckoutEvent is the payment provider's completion hook payload.
type CheckoutEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	PackID string `json:"pack_id"`
}
