package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TryDecrementCredits atomically spends one credit if the balance allows it.
// The conditional check and the mutation are a single statement, so two
// concurrent calls against a balance of 1 can never both succeed: the row
// lock serializes them and the loser fails the WHERE clause on re-evaluation.
//
// Returns (true, nil) when a credit was spent, (false, nil) when the balance
// was below 1, and ErrUserNotFound when no ledger record exists.
func (r *Repository) TryDecrementCredits(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE users
		SET credits = credits - 1
		WHERE id = $1 AND credits >= 1
		RETURNING credits
	`

	var remaining int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&remaining)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("failed to decrement credits: %w", err)
	}

	// No row updated: either the user is out of credits or the record is
	// missing. A second probe distinguishes the two.
	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT true FROM users WHERE id = $1`, userID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return false, nil
}

// AddCredits atomically adds amount to the user's balance. This single
// operation serves both refund compensation and purchase fulfillment.
// It carries no idempotency key; a retried refund can double-credit.
func (r *Repository) AddCredits(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET credits = credits + $1 WHERE id = $2`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
