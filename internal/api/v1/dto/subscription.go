package dto

import "time"

// PlanResponseDTO is one purchasable subscription plan.
type PlanResponseDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	BasicPrice   int    `json:"basic_price"`
	UltraPrice   int    `json:"ultra_price"`
	Popular      bool   `json:"popular"`
}

// PackageResponseDTO is one purchasable coin bundle.
type PackageResponseDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Credits int    `json:"credits"`
}

// PurchaseDTO starts a purchase hand-off.
type PurchaseDTO struct {
	PlanID    string `json:"plan_id"`
	PackageID string `json:"package_id"`
	Level     string `json:"level"`
}

// PurchaseResponseDTO carries the deep-link the client opens.
type PurchaseResponseDTO struct {
	Link string `json:"link"`
}

// SpinResponseDTO is the outcome of one wheel spin.
type SpinResponseDTO struct {
	Label     string `json:"label"`
	Amount    int    `json:"amount"`
	Balance   int    `json:"balance"`
	SpinsLeft int    `json:"spins_left"`
}

// SubscriptionHistoryDTO is one recorded grant.
type SubscriptionHistoryDTO struct {
	EntryID       string    `json:"entry_id"`
	Tier          string    `json:"tier"`
	Level         string    `json:"level"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	DurationHours int       `json:"duration_hours"`
	Price         int       `json:"price"`
	Free          bool      `json:"free"`
	Source        string    `json:"source"`
}
