package dto

import "time"

// PendingRewardDTO is one surfaced reward.
type PendingRewardDTO struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Amount        int        `json:"amount,omitempty"`
	Label         string     `json:"label"`
	SubTier       string     `json:"sub_tier,omitempty"`
	SubLevel      string     `json:"sub_level,omitempty"`
	DurationHours int        `json:"duration_hours,omitempty"`
	UnlockAt      *time.Time `json:"unlock_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// RewardActionDTO claims or defers the surfaced reward by ID. The server
// resolves the reward from its own surfaced slot; the body carries no reward
// content a client could forge.
type RewardActionDTO struct {
	RewardID string `json:"reward_id" validate:"required"`
}

// StudyTimeDTO reports seconds of study since the last report.
type StudyTimeDTO struct {
	Seconds int `json:"seconds" validate:"required,min=1,max=3600"`
}
