package model

// CreditPackage is one purchasable coin bundle. Purchases are handed off to a
// human operator over a messaging deep-link; nothing here touches a gateway.
type CreditPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Credits int    `json:"credits"`
}

// SubscriptionPlan is one purchasable subscription duration with prices for
// both feature levels.
type SubscriptionPlan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	BasicPrice   int    `json:"basic_price"`
	UltraPrice   int    `json:"ultra_price"`
	Popular      bool   `json:"popular"`
}

// Settings is the single admin-configured settings document.
type Settings struct {
	AllowSignup     bool   `json:"allow_signup"`
	MaintenanceMode bool   `json:"maintenance_mode"`
	SupportPhone    string `json:"support_phone"`

	SignupBonus     int `json:"signup_bonus"`
	DailyLoginBonus int `json:"daily_login_bonus"`
	ChatCost        int `json:"chat_cost"`

	GameCost       int `json:"game_cost"`
	SpinLimitFree  int `json:"spin_limit_free"`
	SpinLimitBasic int `json:"spin_limit_basic"`
	SpinLimitUltra int `json:"spin_limit_ultra"`

	ChallengeTarget int `json:"challenge_target"`

	WheelRewards      []WheelReward      `json:"wheel_rewards"`
	EngagementRewards []EngagementReward `json:"engagement_rewards"`
	Packages          []CreditPackage    `json:"packages"`
	Plans             []SubscriptionPlan `json:"plans"`
}

// DefaultSettings mirrors the seed configuration the app ships with before an
// admin has saved anything.
func DefaultSettings() Settings {
	return Settings{
		AllowSignup:     true,
		SignupBonus:     2,
		DailyLoginBonus: 10,
		ChatCost:        1,
		GameCost:        0,
		SpinLimitFree:   2,
		SpinLimitBasic:  5,
		SpinLimitUltra:  10,
		ChallengeTarget: 100,
		WheelRewards: []WheelReward{
			{ID: "1", Type: RewardCoins, Amount: 0, Label: "0 Coins"},
			{ID: "2", Type: RewardCoins, Amount: 1, Label: "1 Coin"},
			{ID: "3", Type: RewardCoins, Amount: 2, Label: "2 Coins"},
			{ID: "4", Type: RewardCoins, Amount: 5, Label: "5 Coins"},
		},
		EngagementRewards: []EngagementReward{
			{ID: "def-1", Seconds: 600, Type: RewardCoins, Amount: 2, Label: "10 Mins Study: 2 Coins", Enabled: true},
			{ID: "def-2", Seconds: 1800, Type: RewardCoins, Amount: 4, Label: "30 Mins Study: 4 Coins", Enabled: true},
			{ID: "def-3", Seconds: 3600, Type: RewardSubscription, SubTier: TierWeekly, SubLevel: LevelBasic, DurationHours: 4, Label: "1 Hour Study: Free Basic Sub (4h)", Enabled: true},
			{ID: "def-4", Seconds: 7200, Type: RewardSubscription, SubTier: TierLifetime, SubLevel: LevelUltra, DurationHours: 4, Label: "2 Hours Study: Free Ultra Sub (4h)", Enabled: true},
		},
		Packages: []CreditPackage{
			{ID: "pkg-1", Name: "Starter Pack", Price: 100, Credits: 150},
			{ID: "pkg-2", Name: "Value Pack", Price: 200, Credits: 350},
			{ID: "pkg-3", Name: "Pro Pack", Price: 500, Credits: 1500},
			{ID: "pkg-4", Name: "Ultra Pack", Price: 1000, Credits: 3000},
			{ID: "pkg-5", Name: "Mega Pack", Price: 2000, Credits: 7000},
			{ID: "pkg-6", Name: "Giga Pack", Price: 3000, Credits: 12000},
			{ID: "pkg-7", Name: "Ultimate Pack", Price: 5000, Credits: 20000},
		},
		Plans: []SubscriptionPlan{
			{ID: "weekly", Name: "Weekly", DurationDays: 7, BasicPrice: 49, UltraPrice: 79},
			{ID: "monthly", Name: "Monthly", DurationDays: 30, BasicPrice: 149, UltraPrice: 199, Popular: true},
			{ID: "quarterly", Name: "Quarterly", DurationDays: 90, BasicPrice: 399, UltraPrice: 499},
			{ID: "yearly", Name: "Yearly", DurationDays: 365, BasicPrice: 999, UltraPrice: 1499},
			{ID: "lifetime", Name: "Lifetime", DurationDays: 36500, BasicPrice: 4999, UltraPrice: 7499, Popular: true},
		},
	}
}
