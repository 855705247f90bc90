package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reimagine/reimagine/internal/handler/dto"
	"github.com/reimagine/reimagine/internal/service"
	"github.com/reimagine/reimagine/internal/webhook"
)

// Hook event types this service consumes.
const (
	eventUserCreated       = "user.created"
	eventCheckoutCompleted = "checkout.completed"
)

// HookHandler receives signed webhooks from the identity provider (user
// provisioning) and the checkout provider (purchase fulfillment).
type HookHandler struct {
	svc            *service.AccountService
	identitySecret string
	checkoutSecret string
	logger         *slog.Logger
}

// NewHookHandler creates a new HookHandler.
func NewHookHandler(svc *service.AccountService, identitySecret, checkoutSecret string, logger *slog.Logger) *HookHandler {
	return &HookHandler{
		svc:            svc,
		identitySecret: identitySecret,
		checkoutSecret: checkoutSecret,
		logger:         logger,
	}
}

// Identity handles POST /webhooks/identity.
// The identity provider fires user.created on signup; the ledger record is
// provisioned with the starting balance. Replays are accepted and ignored.
func (h *HookHandler) Identity(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, h.identitySecret)
	if !ok {
		return
	}

	var event dto.IdentityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid event body")
		return
	}

	if event.Type != eventUserCreated {
		// Unknown event types are acknowledged so the provider stops retrying.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if event.UserID == "" || event.Email == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "user_id and email are required")
		return
	}

	if err := h.svc.Provision(r.Context(), event.UserID, event.Email); err != nil {
		h.logger.Error("provisioning failed",
			"user_id", event.UserID,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Provisioning failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Checkout handles POST /webhooks/checkout.
// The payment provider fires checkout.completed once a credit pack purchase
// settles; the purchased credits are added to the ledger.
func (h *HookHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r, h.checkoutSecret)
	if !ok {
		return
	}

	var event dto.CheckoutEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid event body")
		return
	}

	if event.Type != eventCheckoutCompleted {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if event.UserID == "" || event.PackID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "user_id and pack_id are required")
		return
	}

	credits, err := h.svc.FulfillPurchase(r.Context(), event.UserID, event.PackID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPack):
			writeError(w, http.StatusBadRequest, "UNKNOWN_PACK", "Unknown credit pack")
		case errors.Is(err, service.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "PROFILE_MISSING", "No ledger record for this user")
		default:
			h.logger.Error("purchase fulfillment failed",
				"user_id", event.UserID,
				"pack_id", event.PackID,
				"error", err.Error(),
			)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Fulfillment failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "credits_added": credits})
}

// verifiedBody reads the request body and checks the HMAC signature and
// replay window. On failure it writes the error response and returns false.
func (h *HookHandler) verifiedBody(w http.ResponseWriter, r *http.Request, secret string) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read request body")
		return nil, false
	}

	signature := r.Header.Get(webhook.HeaderSignature)
	timestampRaw := r.Header.Get(webhook.HeaderTimestamp)
	if signature == "" || timestampRaw == "" {
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Missing signature headers")
		return nil, false
	}

	timestamp, err := strconv.ParseInt(timestampRaw, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Malformed timestamp header")
		return nil, false
	}

	if err := webhook.ValidateSignature(secret, signature, timestamp, body, webhook.DefaultReplayWindow); err != nil {
		h.logger.Warn("webhook signature rejected",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Signature verification failed")
		return nil, false
	}

	return body, true
}
