package model

import "time"

// ActivityEvent is one entry of the user activity stream, published to the
// activity topic for the admin console and analytics consumers.
type ActivityEvent struct {
	UserID string    `json:"user_id"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Activity kinds published by the services.
const (
	ActivitySignup         = "SIGNUP"
	ActivityLogin          = "LOGIN"
	ActivityContentUnlock  = "CONTENT_UNLOCK"
	ActivityCreditCharge   = "CREDIT_CHARGE"
	ActivityRewardClaim    = "REWARD_CLAIM"
	ActivitySubscription   = "SUBSCRIPTION_GRANT"
	ActivityDowngrade      = "SUBSCRIPTION_EXPIRED"
	ActivityTestSubmit     = "TEST_SUBMIT"
	ActivitySpin           = "SPIN"
	ActivityAdminAction    = "ADMIN_ACTION"
	ActivityGenerationDone = "GENERATION_DONE"
)
