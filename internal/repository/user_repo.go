package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines methods for accessing user records.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser persists the full user snapshot (last write wins).
	UpdateUser(ctx context.Context, u *model.User) error
	ListExpiredSubscribers(ctx context.Context, now time.Time) ([]model.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]model.User, error)
	ArchiveUser(ctx context.Context, id string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `user_id, name, email, password_hash, role, credits,
       subscription_tier, subscription_level, subscription_end_date, granted_by_admin,
       auto_deduct_enabled, board, class_level, stream,
       last_login_reward_at, pending_rewards, surfaced_reward, daily_spin_date, daily_spin_count,
       locked, archived, created_at, updated_at`

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	rewards, err := json.Marshal(u.PendingRewards)
	if err != nil {
		return fmt.Errorf("marshal pending rewards for user %s: %w", u.ID, err)
	}
	const q = `
        INSERT INTO users (user_id, name, email, password_hash, role, credits,
                           subscription_tier, subscription_level, subscription_end_date, granted_by_admin,
                           auto_deduct_enabled, board, class_level, stream, pending_rewards)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Credits,
		u.SubscriptionTier, u.SubscriptionLevel, u.SubscriptionEndDate, u.GrantedByAdmin,
		u.AutoDeductEnabled, u.Board, u.ClassLevel, u.Stream, rewards,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.Email, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1 AND NOT archived`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND NOT archived`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepo) UpdateUser(ctx context.Context, u *model.User) error {
	rewards, err := json.Marshal(u.PendingRewards)
	if err != nil {
		return fmt.Errorf("marshal pending rewards for user %s: %w", u.ID, err)
	}
	var surfaced []byte
	if u.SurfacedReward != nil {
		surfaced, err = json.Marshal(u.SurfacedReward)
		if err != nil {
			return fmt.Errorf("marshal surfaced reward for user %s: %w", u.ID, err)
		}
	}
	const q = `
        UPDATE users SET
            name = $2, email = $3, password_hash = $4, role = $5, credits = $6,
            subscription_tier = $7, subscription_level = $8, subscription_end_date = $9,
            granted_by_admin = $10, auto_deduct_enabled = $11,
            board = $12, class_level = $13, stream = $14,
            last_login_reward_at = $15, pending_rewards = $16, surfaced_reward = $17,
            daily_spin_date = $18, daily_spin_count = $19,
            locked = $20, archived = $21, updated_at = NOW()
        WHERE user_id = $1
    `
	tag, err := r.pool.Exec(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Credits,
		u.SubscriptionTier, u.SubscriptionLevel, u.SubscriptionEndDate,
		u.GrantedByAdmin, u.AutoDeductEnabled,
		u.Board, u.ClassLevel, u.Stream,
		u.LastLoginRewardAt, rewards, surfaced,
		u.DailySpinDate, u.DailySpinCount,
		u.Locked, u.Archived,
	)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating user %s: no such user", u.ID)
	}
	return nil
}

// ListExpiredSubscribers returns non-admin users whose subscription end date
// has passed. The expiry sweep downgrades them.
func (r *userRepo) ListExpiredSubscribers(ctx context.Context, now time.Time) ([]model.User, error) {
	q := `SELECT ` + userColumns + `
        FROM users
        WHERE subscription_end_date IS NOT NULL
          AND subscription_end_date <= $1
          AND role <> 'ADMIN'
          AND NOT archived`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("listing expired subscribers: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing expired subscribers: %w", err)
	}
	return users, nil
}

func (r *userRepo) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	q := `SELECT ` + userColumns + `
        FROM users
        WHERE NOT archived
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (r *userRepo) ArchiveUser(ctx context.Context, id string) error {
	const q = `UPDATE users SET archived = TRUE, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("archiving user %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *userRepo) scanUser(row rowScanner) (*model.User, error) {
	u, err := r.scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepo) scanUserRow(row rowScanner) (*model.User, error) {
	var u model.User
	var rewards, surfaced []byte
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Credits,
		&u.SubscriptionTier, &u.SubscriptionLevel, &u.SubscriptionEndDate, &u.GrantedByAdmin,
		&u.AutoDeductEnabled, &u.Board, &u.ClassLevel, &u.Stream,
		&u.LastLoginRewardAt, &rewards, &surfaced, &u.DailySpinDate, &u.DailySpinCount,
		&u.Locked, &u.Archived, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rewards) > 0 {
		if err := json.Unmarshal(rewards, &u.PendingRewards); err != nil {
			return nil, fmt.Errorf("unmarshal pending rewards for user %s: %w", u.ID, err)
		}
	}
	if len(surfaced) > 0 {
		if err := json.Unmarshal(surfaced, &u.SurfacedReward); err != nil {
			return nil, fmt.Errorf("unmarshal surfaced reward for user %s: %w", u.ID, err)
		}
	}
	return &u, nil
}
