package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reimagine/reimagine/internal/metrics"
	"github.com/reimagine/reimagine/internal/model"
	"github.com/reimagine/reimagine/internal/repository"
)

// Account service errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUnknownPack     = errors.New("unknown credit pack")
)

// AccountStore is the subset of the repository the account service uses.
type AccountStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	EnsureUser(ctx context.Context, id, email string, startingCredits int64) (bool, error)
	AddCredits(ctx context.Context, userID string, amount int64) error
}

// AccountService handles ledger provisioning, balance reads, and purchase
// fulfillment. Checkout itself lives at the hosted payment provider; only
// the resulting credit grant flows through here.
type AccountService struct {
	store         AccountStore
	metrics       metrics.Recorder
	logger        *slog.Logger
	signupCredits int64
}

// NewAccountService creates an AccountService.
func NewAccountService(store AccountStore, recorder metrics.Recorder, logger *slog.Logger, signupCredits int64) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		store:         store,
		metrics:       recorder,
		logger:        logger,
		signupCredits: signupCredits,
	}
}

// GetAccount returns the caller's ledger record.
func (s *AccountService) GetAccount(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return user, nil
}

// Provision creates the ledger record for a newly signed-up user with the
// starting balance. Safe to replay: an existing record is not modified.
func (s *AccountService) Provision(ctx context.Context, userID, email string) error {
	created, err := s.store.EnsureUser(ctx, userID, email, s.signupCredits)
	if err != nil {
		return fmt.Errorf("failed to provision user: %w", err)
	}

	if created {
		s.metrics.IncUserProvisioned()
		s.logger.Info("user provisioned",
			slog.String("user_id", userID),
			slog.Int64("signup_credits", s.signupCredits),
		)
	} else {
		s.logger.Info("provision replay ignored, user exists",
			slog.String("user_id", userID),
		)
	}

	return nil
}

// FulfillPurchase credits a completed checkout to the user's balance using
// the same ledger increment the refund path uses.
func (s *AccountService) FulfillPurchase(ctx context.Context, userID, packID string) (int64, error) {
	pack, ok := model.PackByID(packID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPack, packID)
	}

	if err := s.store.AddCredits(ctx, userID, pack.Credits); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to fulfill purchase: %w", err)
	}

	s.metrics.IncCreditsPurchased(pack.Credits)
	s.logger.Info("purchase fulfilled",
		slog.String("user_id", userID),
		slog.String("pack_id", pack.ID),
		slog.Int64("credits", pack.Credits),
	)

	return pack.Credits, nil
}
