package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"
	"app/internal/reward"

	"github.com/rs/zerolog"
)

func newTestRewardService(userRepo *fakeUserRepo, history *fakeHistoryRepo) RewardService {
	settings := &fakeSettingsRepo{settings: model.DefaultSettings()}
	return NewRewardService(userRepo, settings, history, nil, nil,
		reward.NewLocks(), nil, "", zerolog.Nop())
}

func TestClaimRewardRejectsUnissuedReward(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent})
	svc := newTestRewardService(userRepo, &fakeHistoryRepo{})

	// A claim for an ID the server never surfaced must not mint anything,
	// no matter what the client says the reward was worth.
	_, err := svc.ClaimReward(context.Background(), "u1", "made-up-999999-coins")
	if !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound, got %v", err)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.Credits != 0 {
		t.Fatalf("balance changed on a rejected claim: %d", u.Credits)
	}
	if u.SubscriptionEndDate != nil {
		t.Fatal("subscription granted on a rejected claim")
	}
}

func TestClaimRewardOnlyAppliesSurfacedReward(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID:   "u1",
		Role: model.RoleStudent,
		PendingRewards: []model.PendingReward{
			{ID: "r1", Type: model.RewardCoins, Amount: 25, Label: "25 coins"},
		},
	})
	svc := newTestRewardService(userRepo, &fakeHistoryRepo{})

	surfaced, err := svc.NextReward(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if surfaced == nil || surfaced.ID != "r1" {
		t.Fatalf("expected r1 surfaced, got %+v", surfaced)
	}

	claimed, err := svc.ClaimReward(context.Background(), "u1", "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed.Credits != 25 {
		t.Fatalf("expected 25 credits after claim, got %d", claimed.Credits)
	}
	if claimed.SurfacedReward != nil {
		t.Fatal("surfaced slot not cleared after claim")
	}

	// The slot is empty now, so the same ID cannot be claimed twice.
	if _, err := svc.ClaimReward(context.Background(), "u1", "r1"); !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound on repeat claim, got %v", err)
	}
}

func TestNextRewardKeepsReturningOccupiedSlot(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID:   "u1",
		Role: model.RoleStudent,
		PendingRewards: []model.PendingReward{
			{ID: "r1", Type: model.RewardCoins, Amount: 10, Label: "10 coins"},
			{ID: "r2", Type: model.RewardCoins, Amount: 20, Label: "20 coins"},
		},
	})
	svc := newTestRewardService(userRepo, &fakeHistoryRepo{})

	first, err := svc.NextReward(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.NextReward(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == nil || second == nil || first.ID != second.ID {
		t.Fatalf("slot not stable: first=%+v second=%+v", first, second)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if len(u.PendingRewards) != 1 {
		t.Fatalf("queue popped more than once: %+v", u.PendingRewards)
	}
}

func TestDeferRewardReturnsItToQueue(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{
		ID:   "u1",
		Role: model.RoleStudent,
		PendingRewards: []model.PendingReward{
			{ID: "r1", Type: model.RewardCoins, Amount: 10, Label: "10 coins"},
		},
	})
	svc := newTestRewardService(userRepo, &fakeHistoryRepo{})

	surfaced, err := svc.NextReward(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeferReward(context.Background(), "u1", "no-such-id"); !errors.Is(err, ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound for unknown ID, got %v", err)
	}
	if err := svc.DeferReward(context.Background(), "u1", surfaced.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.SurfacedReward != nil {
		t.Fatal("surfaced slot not cleared after defer")
	}
	if len(u.PendingRewards) != 1 || u.PendingRewards[0].ID != "r1" {
		t.Fatalf("deferred reward missing from queue: %+v", u.PendingRewards)
	}

	again, err := svc.NextReward(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again == nil || again.ID != "r1" {
		t.Fatalf("deferred reward not surfaced again: %+v", again)
	}
}
