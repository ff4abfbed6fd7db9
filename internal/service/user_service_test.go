package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/reward"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const trialDuration = 7 * 24 * time.Hour

func newTestUserService(userRepo *fakeUserRepo, settings *fakeSettingsRepo, history *fakeHistoryRepo) UserService {
	return NewUserService(userRepo, settings, history, nil, reward.NewLocks(),
		nil, "", "test-secret", trialDuration, zerolog.Nop())
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return string(hash)
}

func TestSignupGrantsBonusAndTrial(t *testing.T) {
	userRepo := newFakeUserRepo()
	history := &fakeHistoryRepo{}
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, history)

	u, token, err := svc.Signup(context.Background(), "Asha", "asha@example.com", "pw12345", "CBSE", "10", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if u.Credits != model.DefaultSettings().SignupBonus {
		t.Fatalf("expected signup bonus %d, got %d", model.DefaultSettings().SignupBonus, u.Credits)
	}
	if u.SubscriptionTier != model.TierWeekly || u.SubscriptionLevel != model.LevelUltra {
		t.Fatalf("expected WEEKLY/ULTRA trial, got %s/%s", u.SubscriptionTier, u.SubscriptionLevel)
	}
	if u.SubscriptionEndDate == nil || time.Until(*u.SubscriptionEndDate) > trialDuration {
		t.Fatalf("unexpected trial end date %v", u.SubscriptionEndDate)
	}

	entries, _ := history.ListSubscriptionHistory(context.Background(), u.ID, 10)
	if len(entries) != 1 || entries[0].Source != "SIGNUP_TRIAL" {
		t.Fatalf("trial not recorded: %+v", entries)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Email: "asha@example.com"})
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, &fakeHistoryRepo{})

	_, _, err := svc.Signup(context.Background(), "Asha", "asha@example.com", "pw12345", "CBSE", "10", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignupDisabled(t *testing.T) {
	settings := model.DefaultSettings()
	settings.AllowSignup = false
	svc := newTestUserService(newFakeUserRepo(), &fakeSettingsRepo{settings: settings}, &fakeHistoryRepo{})

	_, _, err := svc.Signup(context.Background(), "Asha", "asha@example.com", "pw12345", "CBSE", "10", "")
	if !errors.Is(err, ErrSignupDisabled) {
		t.Fatalf("expected ErrSignupDisabled, got %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID: "u1", Email: "asha@example.com", PasswordHash: hashPassword(t, "right"),
	})
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, &fakeHistoryRepo{})

	if _, _, err := svc.Login(context.Background(), "asha@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLoginRejectsLockedAccount(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID: "u1", Email: "asha@example.com", PasswordHash: hashPassword(t, "pw12345"), Locked: true,
	})
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, &fakeHistoryRepo{})

	if _, _, err := svc.Login(context.Background(), "asha@example.com", "pw12345"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestLoginDowngradesExpiredSubscription(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	userRepo := newFakeUserRepo(model.User{
		ID: "u1", Email: "asha@example.com", PasswordHash: hashPassword(t, "pw12345"),
		Role:             model.RoleStudent,
		SubscriptionTier: model.TierMonthly, SubscriptionLevel: model.LevelUltra,
		SubscriptionEndDate: &expired,
	})
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, &fakeHistoryRepo{})

	u, token, err := svc.Login(context.Background(), "asha@example.com", "pw12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if u.SubscriptionTier != model.TierFree || u.SubscriptionLevel != model.LevelBasic || u.SubscriptionEndDate != nil {
		t.Fatalf("expected downgrade to FREE/BASIC, got %s/%s end=%v",
			u.SubscriptionTier, u.SubscriptionLevel, u.SubscriptionEndDate)
	}

	stored, _ := userRepo.GetUserByID(context.Background(), "u1")
	if stored.SubscriptionTier != model.TierFree {
		t.Fatalf("downgrade not persisted: %s", stored.SubscriptionTier)
	}
}

func TestLoginBonusOncePerDay(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID: "u1", Email: "asha@example.com", PasswordHash: hashPassword(t, "pw12345"),
		Role: model.RoleStudent, Credits: 5,
	})
	svc := newTestUserService(userRepo, &fakeSettingsRepo{settings: model.DefaultSettings()}, &fakeHistoryRepo{})

	u, _, err := svc.Login(context.Background(), "asha@example.com", "pw12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCredits := 5 + model.DefaultSettings().DailyLoginBonus
	if u.Credits != wantCredits {
		t.Fatalf("expected credits %d after bonus, got %d", wantCredits, u.Credits)
	}
	if len(u.PendingRewards) != 1 {
		t.Fatalf("expected the bonus to be queued, got %+v", u.PendingRewards)
	}

	// Second login the same day grants nothing.
	u, _, err = svc.Login(context.Background(), "asha@example.com", "pw12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Credits != wantCredits || len(u.PendingRewards) != 1 {
		t.Fatalf("bonus granted twice: credits=%d pending=%d", u.Credits, len(u.PendingRewards))
	}
}
