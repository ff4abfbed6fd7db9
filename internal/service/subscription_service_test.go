package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"
	"app/internal/reward"

	"github.com/rs/zerolog"
)

func newTestSubscriptionService(userRepo *fakeUserRepo, settings model.Settings, history *fakeHistoryRepo) SubscriptionService {
	return NewSubscriptionService(userRepo, &fakeSettingsRepo{settings: settings}, history,
		nil, reward.NewLocks(), nil, "", zerolog.Nop())
}

func TestSpinCoinsSliceCreditsBalance(t *testing.T) {
	settings := model.DefaultSettings()
	settings.WheelRewards = []model.WheelReward{
		{ID: "w1", Type: model.RewardCoins, Amount: 5, Label: "5 Coins"},
	}
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent})
	history := &fakeHistoryRepo{}
	svc := newTestSubscriptionService(userRepo, settings, history)

	result, err := svc.Spin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Balance != 5 {
		t.Fatalf("expected balance 5 after spin, got %d", result.Balance)
	}
	if result.SpinsLeft != settings.SpinLimitFree-1 {
		t.Fatalf("expected %d spins left, got %d", settings.SpinLimitFree-1, result.SpinsLeft)
	}

	events, _ := history.ListCreditEvents(context.Background(), "u1", 10)
	if len(events) != 1 || events[0].Amount != 5 {
		t.Fatalf("credit event not recorded: %+v", events)
	}
}

func TestSpinSubscriptionSliceGrantsAccess(t *testing.T) {
	settings := model.DefaultSettings()
	settings.WheelRewards = []model.WheelReward{
		{ID: "w1", Type: model.RewardSubscription, Amount: 4, Label: "4h Free Access"},
	}
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent})
	history := &fakeHistoryRepo{}
	svc := newTestSubscriptionService(userRepo, settings, history)

	result, err := svc.Spin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reward.Type != model.RewardSubscription {
		t.Fatalf("expected a subscription slice, got %+v", result.Reward)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.SubscriptionEndDate == nil {
		t.Fatal("subscription slice granted no access")
	}
	if u.SubscriptionTier != model.TierWeekly || u.SubscriptionLevel != model.LevelBasic {
		t.Fatalf("expected WEEKLY/BASIC grant, got %s/%s", u.SubscriptionTier, u.SubscriptionLevel)
	}

	entries, _ := history.ListSubscriptionHistory(context.Background(), "u1", 10)
	if len(entries) != 1 || entries[0].Source != "SPIN_WHEEL" {
		t.Fatalf("spin grant not recorded: %+v", entries)
	}
	if entries[0].DurationHours != 4 {
		t.Fatalf("expected a 4 hour grant, got %d", entries[0].DurationHours)
	}
}

func TestSpinDailyLimit(t *testing.T) {
	settings := model.DefaultSettings()
	settings.SpinLimitFree = 2
	settings.WheelRewards = []model.WheelReward{
		{ID: "w1", Type: model.RewardCoins, Amount: 1, Label: "1 Coin"},
	}
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent})
	svc := newTestSubscriptionService(userRepo, settings, &fakeHistoryRepo{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Spin(context.Background(), "u1"); err != nil {
			t.Fatalf("spin %d failed: %v", i+1, err)
		}
	}
	if _, err := svc.Spin(context.Background(), "u1"); !errors.Is(err, ErrSpinLimitReached) {
		t.Fatalf("expected ErrSpinLimitReached, got %v", err)
	}
}
