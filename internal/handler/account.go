package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/reimagine/reimagine/internal/auth"
	"github.com/reimagine/reimagine/internal/handler/dto"
	"github.com/reimagine/reimagine/internal/service"
)

// AccountHandler handles HTTP requests for account state.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger,
	}
}

// Get handles GET /api/v1/account. The client polls this for the credits
// display after edits and purchases.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing identity token")
		return
	}

	user, err := h.svc.GetAccount(r.Context(), authCtx.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "PROFILE_MISSING", "No ledger record for this user")
			return
		}
		h.logger.Error("account lookup failed",
			"user_id", authCtx.UserID,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Credits:   user.Credits,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	})
}
