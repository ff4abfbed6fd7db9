package model

import "time"

// RewardType distinguishes coin grants from subscription grants.
type RewardType string

const (
	RewardCoins        RewardType = "COINS"
	RewardSubscription RewardType = "SUBSCRIPTION"
)

// PendingReward is a reward the user has earned but not yet been shown.
// A reward becomes visible once UnlockAt has passed (nil means immediately)
// and moves from the pending queue into the user's surfaced slot the moment
// it is shown, so it is granted at most once and only via that slot.
type PendingReward struct {
	ID            string            `json:"id"`
	Type          RewardType        `json:"type"`
	Amount        int               `json:"amount,omitempty"`
	Label         string            `json:"label"`
	SubTier       SubscriptionTier  `json:"sub_tier,omitempty"`
	SubLevel      SubscriptionLevel `json:"sub_level,omitempty"`
	DurationHours int               `json:"duration_hours,omitempty"`
	UnlockAt      *time.Time        `json:"unlock_at,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// EngagementReward is one row of the study-time reward table: after the user
// accumulates Seconds of study in a day, the reward fires.
type EngagementReward struct {
	ID            string            `json:"id"`
	Seconds       int               `json:"seconds"`
	Type          RewardType        `json:"type"`
	Amount        int               `json:"amount,omitempty"`
	SubTier       SubscriptionTier  `json:"sub_tier,omitempty"`
	SubLevel      SubscriptionLevel `json:"sub_level,omitempty"`
	DurationHours int               `json:"duration_hours,omitempty"`
	Label         string            `json:"label"`
	Enabled       bool              `json:"enabled"`
}

// WheelReward is one slice of the spin wheel.
type WheelReward struct {
	ID     string     `json:"id"`
	Type   RewardType `json:"type"`
	Amount int        `json:"amount"`
	Label  string     `json:"label"`
}

// SubscriptionHistoryEntry records one subscription grant, whatever its
// source (purchase hand-off, admin, reward, test).
type SubscriptionHistoryEntry struct {
	ID            string            `db:"entry_id" json:"entry_id"`
	UserID        string            `db:"user_id" json:"user_id"`
	Tier          SubscriptionTier  `db:"tier" json:"tier"`
	Level         SubscriptionLevel `db:"level" json:"level"`
	StartAt       time.Time         `db:"start_at" json:"start_at"`
	EndAt         time.Time         `db:"end_at" json:"end_at"`
	DurationHours int               `db:"duration_hours" json:"duration_hours"`
	Price         int               `db:"price" json:"price"`
	Free          bool              `db:"free" json:"free"`
	Source        string            `db:"source" json:"source"`
}
