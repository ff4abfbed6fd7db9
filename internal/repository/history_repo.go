package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository records the append-only audit trails: subscription grants,
// credit movements and test attempts.
type HistoryRepository interface {
	AddSubscriptionEntry(ctx context.Context, e *model.SubscriptionHistoryEntry) error
	ListSubscriptionHistory(ctx context.Context, userID string, limit int) ([]model.SubscriptionHistoryEntry, error)

	AddCreditEvent(ctx context.Context, e *CreditEvent) error
	ListCreditEvents(ctx context.Context, userID string, limit int) ([]CreditEvent, error)

	AddTestAttempt(ctx context.Context, a *model.TestAttempt) error
	ListTestAttempts(ctx context.Context, userID string, limit int) ([]model.TestAttempt, error)
}

// CreditEvent is one ledger movement. Amount is negative for charges and
// positive for grants; BalanceAfter is the user's balance once applied.
type CreditEvent struct {
	ID           string `db:"event_id" json:"event_id"`
	UserID       string `db:"user_id" json:"user_id"`
	Amount       int    `db:"amount" json:"amount"`
	BalanceAfter int    `db:"balance_after" json:"balance_after"`
	ContentKey   string `db:"content_key" json:"content_key,omitempty"`
	ContentType  string `db:"content_type" json:"content_type,omitempty"`
	Reason       string `db:"reason" json:"reason"`
}

type historyRepo struct {
	pool *pgxpool.Pool
}

// NewHistoryRepo creates a new HistoryRepository.
func NewHistoryRepo(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepo{pool: pool}
}

func (r *historyRepo) AddSubscriptionEntry(ctx context.Context, e *model.SubscriptionHistoryEntry) error {
	const q = `
        INSERT INTO subscription_history (entry_id, user_id, tier, level, start_at, end_at, duration_hours, price, free, source)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.pool.Exec(ctx, q, e.ID, e.UserID, e.Tier, e.Level, e.StartAt, e.EndAt, e.DurationHours, e.Price, e.Free, e.Source)
	if err != nil {
		return fmt.Errorf("recording subscription entry for user %s: %w", e.UserID, err)
	}
	return nil
}

func (r *historyRepo) ListSubscriptionHistory(ctx context.Context, userID string, limit int) ([]model.SubscriptionHistoryEntry, error) {
	const q = `
        SELECT entry_id, user_id, tier, level, start_at, end_at, duration_hours, price, free, source
        FROM subscription_history
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing subscription history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []model.SubscriptionHistoryEntry
	for rows.Next() {
		var e model.SubscriptionHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Tier, &e.Level, &e.StartAt, &e.EndAt, &e.DurationHours, &e.Price, &e.Free, &e.Source); err != nil {
			return nil, fmt.Errorf("scanning subscription entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing subscription history for user %s: %w", userID, err)
	}
	return entries, nil
}

func (r *historyRepo) AddCreditEvent(ctx context.Context, e *CreditEvent) error {
	const q = `
        INSERT INTO credit_events (event_id, user_id, amount, balance_after, content_key, content_type, reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.pool.Exec(ctx, q, e.ID, e.UserID, e.Amount, e.BalanceAfter, e.ContentKey, e.ContentType, e.Reason)
	if err != nil {
		return fmt.Errorf("recording credit event for user %s: %w", e.UserID, err)
	}
	return nil
}

func (r *historyRepo) ListCreditEvents(ctx context.Context, userID string, limit int) ([]CreditEvent, error) {
	const q = `
        SELECT event_id, user_id, amount, balance_after, content_key, content_type, reason
        FROM credit_events
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing credit events for user %s: %w", userID, err)
	}
	defer rows.Close()

	var events []CreditEvent
	for rows.Next() {
		var e CreditEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.BalanceAfter, &e.ContentKey, &e.ContentType, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning credit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing credit events for user %s: %w", userID, err)
	}
	return events, nil
}

func (r *historyRepo) AddTestAttempt(ctx context.Context, a *model.TestAttempt) error {
	const q = `
        INSERT INTO test_attempts (attempt_id, test_id, test_name, user_id, score, total, started_at, submitted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.pool.Exec(ctx, q, a.ID, a.TestID, a.TestName, a.UserID, a.Score, a.Total, a.StartedAt, a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("recording test attempt for user %s: %w", a.UserID, err)
	}
	return nil
}

func (r *historyRepo) ListTestAttempts(ctx context.Context, userID string, limit int) ([]model.TestAttempt, error) {
	const q = `
        SELECT attempt_id, test_id, test_name, user_id, score, total, started_at, submitted_at
        FROM test_attempts
        WHERE user_id = $1
        ORDER BY submitted_at DESC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing test attempts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var attempts []model.TestAttempt
	for rows.Next() {
		var a model.TestAttempt
		if err := rows.Scan(&a.ID, &a.TestID, &a.TestName, &a.UserID, &a.Score, &a.Total, &a.StartedAt, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning test attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing test attempts for user %s: %w", userID, err)
	}
	return attempts, nil
}
