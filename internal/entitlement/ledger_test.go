package entitlement

import (
	"errors"
	"testing"
	"time"

	"app/internal/model"
)

func TestApplyChargeDeducts(t *testing.T) {
	u := model.User{Credits: 10}
	got, err := ApplyCharge(u, 5)
	if err != nil {
		t.Fatalf("ApplyCharge: %v", err)
	}
	if got.Credits != 5 {
		t.Fatalf("expected balance 5, got %d", got.Credits)
	}
	if u.Credits != 10 {
		t.Fatal("ApplyCharge mutated its input")
	}
}

func TestApplyChargeRejectsOverdraft(t *testing.T) {
	u := model.User{Credits: 3}
	got, err := ApplyCharge(u, 5)
	if !errors.Is(err, ErrInvalidChargeAmount) {
		t.Fatalf("expected ErrInvalidChargeAmount, got %v", err)
	}
	if got.Credits != 3 {
		t.Fatalf("balance changed on rejected charge: %d", got.Credits)
	}
}

func TestApplyChargeRejectsNegativeAmount(t *testing.T) {
	u := model.User{Credits: 3}
	if _, err := ApplyCharge(u, -1); !errors.Is(err, ErrInvalidChargeAmount) {
		t.Fatalf("expected ErrInvalidChargeAmount, got %v", err)
	}
}

// Any sequence of evaluate-then-charge steps keeps the balance non-negative.
func TestEvaluateThenChargeInvariant(t *testing.T) {
	now := time.Now()
	u := model.User{Role: model.RoleStudent, Credits: 17}
	costs := []int{5, 5, 3, 3, 3, 3, 3}

	for _, cost := range costs {
		d := Evaluate(&u, model.ContentDescriptor{Type: model.ContentVideoLecture, Cost: cost}, now, false)
		if d.Verdict != VerdictCharge {
			continue
		}
		var err error
		u, err = ApplyCharge(u, d.Amount)
		if err != nil {
			t.Fatalf("charge rejected after successful evaluation: %v", err)
		}
		if u.Credits < 0 {
			t.Fatalf("balance went negative: %d", u.Credits)
		}
	}
	if u.Credits != 0 {
		t.Fatalf("expected exhausted balance, got %d", u.Credits)
	}
}
