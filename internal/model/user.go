package model

import "time"

// Role determines which surfaces a user can reach. Admins bypass every
// entitlement check; sub-admins see the admin console but are still
// entitlement-checked like students.
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleAdmin    Role = "ADMIN"
	RoleSubAdmin Role = "SUB_ADMIN"
)

// SubscriptionTier is the duration class of a subscription.
type SubscriptionTier string

const (
	TierFree      SubscriptionTier = "FREE"
	TierWeekly    SubscriptionTier = "WEEKLY"
	TierMonthly   SubscriptionTier = "MONTHLY"
	TierQuarterly SubscriptionTier = "QUARTERLY"
	TierYearly    SubscriptionTier = "YEARLY"
	TierLifetime  SubscriptionTier = "LIFETIME"
)

// SubscriptionLevel is the feature class of a subscription. ULTRA unlocks
// every content type, BASIC only a fixed allow-list.
type SubscriptionLevel string

const (
	LevelBasic SubscriptionLevel = "BASIC"
	LevelUltra SubscriptionLevel = "ULTRA"
)

// User represents an account in the system.
type User struct {
	ID           string `db:"user_id" json:"user_id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role" json:"role"`

	Credits int `db:"credits" json:"credits"`

	SubscriptionTier    SubscriptionTier  `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionLevel   SubscriptionLevel `db:"subscription_level" json:"subscription_level"`
	SubscriptionEndDate *time.Time        `db:"subscription_end_date" json:"subscription_end_date,omitempty"`
	GrantedByAdmin      bool              `db:"granted_by_admin" json:"granted_by_admin"`

	AutoDeductEnabled bool `db:"auto_deduct_enabled" json:"auto_deduct_enabled"`

	Board      string `db:"board" json:"board"`
	ClassLevel string `db:"class_level" json:"class_level"`
	Stream     string `db:"stream" json:"stream"`

	LastLoginRewardAt *time.Time      `db:"last_login_reward_at" json:"last_login_reward_at,omitempty"`
	PendingRewards    []PendingReward `db:"pending_rewards" json:"pending_rewards,omitempty"`
	// SurfacedReward is the one reward currently shown to the user, moved out
	// of the pending queue. Claims and defers are validated against it; the
	// server never trusts a client-echoed reward body.
	SurfacedReward *PendingReward `db:"surfaced_reward" json:"surfaced_reward,omitempty"`

	DailySpinDate  string `db:"daily_spin_date" json:"daily_spin_date"`
	DailySpinCount int    `db:"daily_spin_count" json:"daily_spin_count"`

	Locked   bool `db:"locked" json:"locked"`
	Archived bool `db:"archived" json:"archived"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PremiumAt reports whether the user holds a live subscription at the given
// instant. This is derived from the end date alone; there is deliberately no
// stored is_premium flag to drift out of sync.
func (u *User) PremiumAt(now time.Time) bool {
	return u.SubscriptionEndDate != nil && now.Before(*u.SubscriptionEndDate)
}

// IsAdmin reports whether the user holds the full admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SubscriptionExpired reports whether the user carries an end date that has
// already passed. A user with no end date is not expired, just free.
func (u *User) SubscriptionExpired(now time.Time) bool {
	return u.SubscriptionEndDate != nil && !now.Before(*u.SubscriptionEndDate)
}
