package entitlement

import (
	"errors"

	"app/internal/model"
)

// ErrInvalidChargeAmount is returned when a charge would drive the balance
// negative. Callers that consult Evaluate first never see it; hitting it
// means a programming error, and the balance is left untouched rather than
// clamped.
var ErrInvalidChargeAmount = errors.New("charge exceeds credit balance")

// ApplyCharge deducts amount credits and returns the updated user. The input
// is not mutated. Credits can never go negative; that is enforced here
// unconditionally.
func ApplyCharge(user model.User, amount int) (model.User, error) {
	if amount < 0 || amount > user.Credits {
		return user, ErrInvalidChargeAmount
	}
	user.Credits -= amount
	return user, nil
}
