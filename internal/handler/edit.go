package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reimagine/reimagine/internal/auth"
	"github.com/reimagine/reimagine/internal/handler/dto"
	"github.com/reimagine/reimagine/internal/service"
)

// EditHandler handles HTTP requests for image edits.
type EditHandler struct {
	svc    *service.EditService
	logger *slog.Logger
}

// NewEditHandler creates a new EditHandler.
func NewEditHandler(svc *service.EditService, logger *slog.Logger) *EditHandler {
	return &EditHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/edits.
//
// Requires an authenticated caller; decoding failures are client errors and
// are reported before the service (and therefore the ledger) is touched.
func (h *EditHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing identity token")
		return
	}

	var req dto.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Image must be valid base64")
		return
	}

	outcome, err := h.svc.Edit(r.Context(), service.EditInput{
		UserID:      authCtx.UserID,
		Image:       image,
		MediaType:   req.MediaType,
		Instruction: req.Instruction,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("edit_completed",
		"edit_id", outcome.EditID,
		"user_id", authCtx.UserID,
	)

	writeJSON(w, http.StatusOK, dto.EditResponse{
		EditID:    outcome.EditID,
		Image:     base64.StdEncoding.EncodeToString(outcome.Result.Image),
		MediaType: outcome.Result.MediaType,
	})
}

// handleServiceError maps gate errors to HTTP responses. Every failure mode
// gets a stable code; nothing propagates as an unstructured fault.
func (h *EditHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
	case errors.Is(err, service.ErrNoCredit):
		// 402 lets the client open the purchase flow instead of a generic error.
		writeError(w, http.StatusPaymentRequired, "NO_CREDIT", "You are out of credits")
	case errors.Is(err, service.ErrProfileMissing):
		writeError(w, http.StatusBadRequest, "PROFILE_MISSING", "No ledger record for this user")
	case errors.Is(err, service.ErrEditInProgress):
		writeError(w, http.StatusConflict, "EDIT_IN_PROGRESS", "Another edit is already in progress")
	case errors.Is(err, service.ErrProviderFailure):
		writeError(w, http.StatusServiceUnavailable, "PROVIDER_FAILURE", "Image editing is currently unavailable; your credit was refunded")
	default:
		h.logger.Error("unexpected edit error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
