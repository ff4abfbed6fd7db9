package reward

import (
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/model"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestGrantLoginBonusOncePerDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	u := model.User{ID: "u1", Credits: 5}

	u, r, changed := GrantLoginBonus(u, 10, now)
	if !changed || r == nil {
		t.Fatal("expected first grant of the day")
	}
	if u.Credits != 15 {
		t.Fatalf("expected 15 credits, got %d", u.Credits)
	}

	// Same day, later: no second grant.
	_, r2, changed := GrantLoginBonus(u, 10, now.Add(6*time.Hour))
	if changed || r2 != nil {
		t.Fatal("bonus granted twice in one day")
	}

	// Next day: grants again.
	u2, r3, changed := GrantLoginBonus(u, 10, now.Add(24*time.Hour))
	if !changed || r3 == nil {
		t.Fatal("expected grant on the next day")
	}
	if u2.Credits != 25 {
		t.Fatalf("expected 25 credits, got %d", u2.Credits)
	}
}

func TestPopUnlockedRewardAtMostOnce(t *testing.T) {
	now := time.Now()
	locked := model.PendingReward{ID: "later", UnlockAt: ptrTime(now.Add(time.Hour))}
	ready := model.PendingReward{ID: "ready", Type: model.RewardCoins, Amount: 3}
	u := model.User{ID: "u1", PendingRewards: []model.PendingReward{locked, ready}}

	u, got := PopUnlockedReward(u, now)
	if got == nil || got.ID != "ready" {
		t.Fatalf("expected the unlocked reward, got %+v", got)
	}
	if len(u.PendingRewards) != 1 || u.PendingRewards[0].ID != "later" {
		t.Fatalf("pending queue not trimmed: %+v", u.PendingRewards)
	}

	// The surfaced reward is gone; only the still-locked one remains.
	_, got = PopUnlockedReward(u, now)
	if got != nil {
		t.Fatalf("locked reward surfaced early: %+v", got)
	}
}

func TestDeferRequeues(t *testing.T) {
	now := time.Now()
	r := model.PendingReward{ID: "r1", Type: model.RewardCoins, Amount: 2}
	u := model.User{ID: "u1", PendingRewards: []model.PendingReward{r}}

	u, got := PopUnlockedReward(u, now)
	if got == nil {
		t.Fatal("expected a reward")
	}
	u = Defer(u, *got)
	if len(u.PendingRewards) != 1 || u.PendingRewards[0].ID != "r1" {
		t.Fatalf("deferred reward lost: %+v", u.PendingRewards)
	}
}

func TestClaimCoins(t *testing.T) {
	u := model.User{ID: "u1", Credits: 1}
	u, entry := Claim(u, model.PendingReward{Type: model.RewardCoins, Amount: 7}, time.Now())
	if entry != nil {
		t.Fatal("coin claim produced a history entry")
	}
	if u.Credits != 8 {
		t.Fatalf("expected 8 credits, got %d", u.Credits)
	}
}

func TestClaimSubscription(t *testing.T) {
	now := time.Now()
	u := model.User{ID: "u1"}
	u, entry := Claim(u, model.PendingReward{
		Type:          model.RewardSubscription,
		SubTier:       model.TierLifetime,
		SubLevel:      model.LevelUltra,
		DurationHours: 4,
	}, now)
	if entry == nil {
		t.Fatal("expected a history entry")
	}
	if !u.PremiumAt(now.Add(3 * time.Hour)) {
		t.Fatal("subscription not live after claim")
	}
	if u.PremiumAt(now.Add(5 * time.Hour)) {
		t.Fatal("subscription outlived its duration")
	}
	if entry.Source != "REWARD" || !entry.Free {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
}

func TestStudyMilestonesCrossing(t *testing.T) {
	table := []model.EngagementReward{
		{ID: "a", Seconds: 600, Type: model.RewardCoins, Amount: 2, Enabled: true},
		{ID: "b", Seconds: 1800, Type: model.RewardCoins, Amount: 4, Enabled: true},
		{ID: "c", Seconds: 3600, Type: model.RewardSubscription, Enabled: false},
	}

	got := StudyMilestones(table, 590, 610)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected milestone a, got %+v", got)
	}

	// Already past the threshold: fires nothing.
	if got := StudyMilestones(table, 610, 700); len(got) != 0 {
		t.Fatalf("milestone refired: %+v", got)
	}

	// A large jump crosses several at once; disabled rows never fire.
	got = StudyMilestones(table, 0, 4000)
	if len(got) != 2 {
		t.Fatalf("expected 2 milestones, got %+v", got)
	}
}

func TestTestGrantDailyChallenge(t *testing.T) {
	now := time.Now()
	u := model.User{ID: "u1"}

	// Below 90%: message only.
	_, entry, msg := TestGrant(u, DailyChallengeIDPrefix+"u1-2025-06-01", 80, 100, now)
	if entry != nil {
		t.Fatalf("reward granted below threshold: %+v", entry)
	}
	if !strings.Contains(msg, "90%") {
		t.Fatalf("unexpected message %q", msg)
	}

	// 90%+: a month of ULTRA.
	u2, entry, _ := TestGrant(u, DailyChallengeIDPrefix+"u1-2025-06-01", 95, 100, now)
	if entry == nil || entry.Source != "DAILY_CHALLENGE" {
		t.Fatalf("expected challenge grant, got %+v", entry)
	}
	if u2.SubscriptionLevel != model.LevelUltra || !u2.PremiumAt(now.Add(29*24*time.Hour)) {
		t.Fatalf("unexpected grant: %+v", u2)
	}
}

func TestTestGrantWeeklyParticipation(t *testing.T) {
	now := time.Now()
	u := model.User{ID: "u1"}
	u, entry, _ := TestGrant(u, "weekly-42", 1, 10, now)
	if entry == nil || entry.Source != "WEEKLY_TEST" {
		t.Fatalf("expected participation grant, got %+v", entry)
	}
	if !u.PremiumAt(now.Add(23*time.Hour)) || u.PremiumAt(now.Add(25*time.Hour)) {
		t.Fatal("participation grant should last 24 hours")
	}
}

func TestLocksSerializePerUser(t *testing.T) {
	locks := NewLocks()
	balance := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.Do("u1", func() error {
				v := balance
				balance = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	if balance != 50 {
		t.Fatalf("lost updates under concurrency: %d", balance)
	}
}
