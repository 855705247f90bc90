// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/reimagine/reimagine/internal/alert"
	"github.com/reimagine/reimagine/internal/metrics"
	"github.com/reimagine/reimagine/internal/model"
	"github.com/reimagine/reimagine/internal/provider"
	"github.com/reimagine/reimagine/internal/repository"
)

// Service errors.
var (
	ErrInvalidPayload  = errors.New("invalid edit payload")
	ErrNoCredit        = errors.New("insufficient credits")
	ErrProfileMissing  = errors.New("user profile not found")
	ErrProviderFailure = errors.New("image provider failure")
	ErrEditInProgress  = errors.New("another edit is already in progress")
)

// Ledger is the balance authority the gate depends on. Both operations are
// atomic at the storage layer; the gate never reads a balance outside them.
type Ledger interface {
	TryDecrementCredits(ctx context.Context, userID string) (bool, error)
	AddCredits(ctx context.Context, userID string, amount int64) error
}

// EditLocker tracks a user's in-flight edit. Implementations may fail open;
// the lock is a duplicate-submission guard, not a spending control.
type EditLocker interface {
	AcquireEditLock(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	ReleaseEditLock(ctx context.Context, userID string)
}

// EditInput is one edit submission from an authenticated caller.
type EditInput struct {
	UserID      string
	Image       []byte
	MediaType   string
	Instruction string
}

// EditOutcome is a completed edit.
type EditOutcome struct {
	EditID string
	Result *model.EditResult
}

// EditService is the credit-gated edit pipeline: validate, reserve a credit,
// invoke the provider, and refund the credit if the provider lets us down.
type EditService struct {
	ledger          Ledger
	locker          EditLocker
	editor          provider.ImageEditor
	alerter         alert.Alerter
	metrics         metrics.Recorder
	logger          *slog.Logger
	providerTimeout time.Duration
	maxInstruction  int
}

// EditServiceConfig bundles EditService dependencies.
type EditServiceConfig struct {
	Ledger          Ledger
	Locker          EditLocker
	Editor          provider.ImageEditor
	Alerter         alert.Alerter
	Metrics         metrics.Recorder
	Logger          *slog.Logger
	ProviderTimeout time.Duration
	MaxInstruction  int
}

// NewEditService creates an EditService.
func NewEditService(cfg EditServiceConfig) *EditService {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Alerter == nil {
		cfg.Alerter = alert.NewNoop()
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 300 * time.Second
	}
	if cfg.MaxInstruction <= 0 {
		cfg.MaxInstruction = 2000
	}
	return &EditService{
		ledger:          cfg.Ledger,
		locker:          cfg.Locker,
		editor:          cfg.Editor,
		alerter:         cfg.Alerter,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		providerTimeout: cfg.ProviderTimeout,
		maxInstruction:  cfg.MaxInstruction,
	}
}

// Edit runs one request through the gate.
//
// Order matters: validation happens before any ledger access so a malformed
// request can never spend a credit, and the decrement happens before the
// provider call so two in-flight requests cannot both pass a stale balance
// check. Once a credit is spent, every failure path goes through the single
// refund branch below.
func (s *EditService) Edit(ctx context.Context, input EditInput) (*EditOutcome, error) {
	editID := ulid.Make().String()

	if err := s.validate(input); err != nil {
		s.metrics.IncEditRejected(metrics.RejectInvalidPayload)
		return nil, err
	}

	// The caller disconnecting must not abandon the decrement, the provider
	// call, or a pending refund: an orphaned decrement would silently eat a
	// credit. Everything past this point runs on an uncancellable base.
	base := context.WithoutCancel(ctx)

	if s.locker != nil {
		acquired, err := s.locker.AcquireEditLock(base, input.UserID, s.providerTimeout+30*time.Second)
		if err != nil {
			// Fail open: the ledger still serializes actual spending.
			s.logger.Warn("edit lock unavailable",
				slog.String("edit_id", editID),
				slog.String("user_id", input.UserID),
				slog.String("error", err.Error()),
			)
		}
		if !acquired {
			s.metrics.IncEditRejected(metrics.RejectInProgress)
			return nil, ErrEditInProgress
		}
		defer s.locker.ReleaseEditLock(base, input.UserID)
	}

	ok, err := s.ledger.TryDecrementCredits(base, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncEditRejected(metrics.RejectProfileMissing)
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("credit reservation failed: %w", err)
	}
	if !ok {
		s.metrics.IncEditRejected(metrics.RejectNoCredit)
		return nil, ErrNoCredit
	}

	s.metrics.IncEditRequested()
	s.logger.Info("credit reserved",
		slog.String("edit_id", editID),
		slog.String("user_id", input.UserID),
		slog.String("media_type", input.MediaType),
	)

	providerCtx, cancel := context.WithTimeout(base, s.providerTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.editor.Edit(providerCtx, input.Image, input.MediaType, input.Instruction)
	s.metrics.ObserveProviderDuration(time.Since(start))

	if err != nil {
		// Compensation path. Unconditional for any post-decrement failure:
		// refusals, timeouts, transport errors, and anything unclassified.
		s.metrics.IncProviderFailure()
		s.logger.Warn("provider failed, refunding credit",
			slog.String("edit_id", editID),
			slog.String("user_id", input.UserID),
			slog.String("error", err.Error()),
			slog.Float64("elapsed_s", time.Since(start).Seconds()),
		)
		s.refund(base, editID, input.UserID, err)
		return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	s.metrics.IncEditSucceeded()
	s.logger.Info("edit succeeded",
		slog.String("edit_id", editID),
		slog.String("user_id", input.UserID),
		slog.Float64("elapsed_s", time.Since(start).Seconds()),
	)

	return &EditOutcome{EditID: editID, Result: result}, nil
}

// refund compensates a spent credit after a provider failure. A failed
// refund means a permanently lost credit: it cannot be surfaced to the
// caller, so it is logged as critical and pushed to the alerter.
func (s *EditService) refund(ctx context.Context, editID, userID string, cause error) {
	refundCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.ledger.AddCredits(refundCtx, userID, 1); err != nil {
		s.metrics.IncRefund(metrics.RefundFailed)
		s.logger.Error("CRITICAL: refund failed, credit permanently lost",
			slog.String("edit_id", editID),
			slog.String("user_id", userID),
			slog.String("refund_error", err.Error()),
			slog.String("provider_error", cause.Error()),
		)
		s.alerter.Notify(refundCtx, alert.Event{
			Kind:       alert.KindRefundFailed,
			UserID:     userID,
			EditID:     editID,
			Detail:     err.Error(),
			OccurredAt: time.Now().UTC(),
		})
		return
	}

	s.metrics.IncRefund(metrics.RefundOK)
	s.logger.Info("credit refunded",
		slog.String("edit_id", editID),
		slog.String("user_id", userID),
	)
}

// validate enforces the payload invariants before any ledger mutation.
func (s *EditService) validate(input EditInput) error {
	if input.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}
	if len(input.Image) == 0 {
		return fmt.Errorf("%w: image is required", ErrInvalidPayload)
	}
	if !model.IsAllowedMediaType(input.MediaType) {
		return fmt.Errorf("%w: unsupported media type %q", ErrInvalidPayload, input.MediaType)
	}
	if strings.TrimSpace(input.Instruction) == "" {
		return fmt.Errorf("%w: instruction is required", ErrInvalidPayload)
	}
	if len(input.Instruction) > s.maxInstruction {
		return fmt.Errorf("%w: instruction exceeds %d characters", ErrInvalidPayload, s.maxInstruction)
	}
	return nil
}
