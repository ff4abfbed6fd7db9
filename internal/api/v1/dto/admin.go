package dto

// AdjustCreditsDTO moves a user's balance by delta.
type AdjustCreditsDTO struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// GrantSubscriptionDTO applies a subscription to a user.
type GrantSubscriptionDTO struct {
	Tier          string `json:"tier" validate:"required"`
	Level         string `json:"level" validate:"required,oneof=BASIC ULTRA"`
	DurationHours int    `json:"duration_hours" validate:"required,min=1"`
	Source        string `json:"source"`
}

// LockUserDTO locks or unlocks an account.
type LockUserDTO struct {
	Locked bool `json:"locked"`
}

// ProviderKeysDTO stores generation provider API keys.
type ProviderKeysDTO struct {
	Provider string   `json:"provider" validate:"required"`
	Keys     []string `json:"keys" validate:"required,min=1,dive,required"`
}
