package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/reward"

	"github.com/rs/zerolog"
)

func questionPool(subject string, n int) []model.MCQItem {
	items := make([]model.MCQItem, n)
	for i := range items {
		items[i] = model.MCQItem{
			Question: fmt.Sprintf("%s question %d", subject, i),
			Options:  []string{"a", "b", "c", "d"},
			Correct:  i % 4,
		}
	}
	return items
}

func newTestChallengeService(userRepo *fakeUserRepo, contentRepo *fakeContentRepo, history *fakeHistoryRepo) ChallengeService {
	settings := &fakeSettingsRepo{settings: model.DefaultSettings()}
	return NewChallengeService(contentRepo, userRepo, settings, history, nil,
		reward.NewLocks(), nil, "", zerolog.Nop())
}

func TestDailyChallengeIsStableWithinADay(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Board: "CBSE", ClassLevel: "10"})
	contentRepo := &fakeContentRepo{pools: map[string][]model.MCQItem{
		"Math":    questionPool("Math", 80),
		"Science": questionPool("Science", 80),
	}}
	svc := newTestChallengeService(userRepo, contentRepo, &fakeHistoryRepo{})

	first, err := svc.DailyChallenge(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(first.ID, reward.DailyChallengeIDPrefix) {
		t.Fatalf("challenge ID %q missing daily prefix", first.ID)
	}
	if len(first.Questions) != model.DefaultSettings().ChallengeTarget {
		t.Fatalf("expected %d questions, got %d", model.DefaultSettings().ChallengeTarget, len(first.Questions))
	}

	second, err := svc.DailyChallenge(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first.Questions {
		if first.Questions[i].Question != second.Questions[i].Question {
			t.Fatalf("question %d differs between same-day requests", i)
		}
	}
}

func TestDailyChallengeNoQuestions(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Board: "CBSE", ClassLevel: "10"})
	svc := newTestChallengeService(userRepo, &fakeContentRepo{}, &fakeHistoryRepo{})

	if _, err := svc.DailyChallenge(context.Background(), "u1"); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestSubmitDailyChallengeGradedServerSide(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent, Board: "CBSE", ClassLevel: "10"})
	contentRepo := &fakeContentRepo{pools: map[string][]model.MCQItem{
		"Math":    questionPool("Math", 80),
		"Science": questionPool("Science", 80),
	}}
	history := &fakeHistoryRepo{}
	svc := newTestChallengeService(userRepo, contentRepo, history)

	c, err := svc.DailyChallenge(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	answers := make([]int, len(c.Questions))
	for i, q := range c.Questions {
		answers[i] = q.Correct
	}

	result, err := svc.SubmitTest(context.Background(), "u1", c.ID, c.Name, answers, 0, 0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempt.Score != len(c.Questions) || result.Attempt.Total != len(c.Questions) {
		t.Fatalf("expected a perfect graded score, got %d/%d", result.Attempt.Score, result.Attempt.Total)
	}
	if result.Message == "" {
		t.Fatal("expected a reward message")
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.SubscriptionLevel != model.LevelUltra || u.SubscriptionTier != model.TierMonthly {
		t.Fatalf("expected MONTHLY/ULTRA grant, got %s/%s", u.SubscriptionTier, u.SubscriptionLevel)
	}
	if u.SubscriptionEndDate == nil {
		t.Fatal("expected a subscription end date")
	}

	entries, _ := history.ListSubscriptionHistory(context.Background(), "u1", 10)
	if len(entries) != 1 || entries[0].Source != "DAILY_CHALLENGE" {
		t.Fatalf("grant not recorded: %+v", entries)
	}
}

func TestSubmitDailyChallengeIgnoresClientScore(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent, Board: "CBSE", ClassLevel: "10"})
	contentRepo := &fakeContentRepo{pools: map[string][]model.MCQItem{
		"Math": questionPool("Math", 120),
	}}
	svc := newTestChallengeService(userRepo, contentRepo, &fakeHistoryRepo{})

	c, err := svc.DailyChallenge(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wrong := make([]int, len(c.Questions))
	for i, q := range c.Questions {
		wrong[i] = (q.Correct + 1) % len(q.Options)
	}

	// A self-reported perfect score must not survive grading.
	result, err := svc.SubmitTest(context.Background(), "u1", c.ID, c.Name, wrong, 100, 100, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempt.Score != 0 {
		t.Fatalf("expected graded score 0, got %d", result.Attempt.Score)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.SubscriptionEndDate != nil {
		t.Fatal("forged score must not grant a subscription")
	}
}

func TestSubmitChallengeForAnotherUserRejected(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent, Board: "CBSE", ClassLevel: "10"})
	svc := newTestChallengeService(userRepo, &fakeContentRepo{}, &fakeHistoryRepo{})

	testID := reward.DailyChallengeIDPrefix + "someone-else-2026-08-30"
	_, err := svc.SubmitTest(context.Background(), "u1", testID, "Daily Challenge", []int{0}, 0, 0, time.Now())
	if !errors.Is(err, ErrUnknownChallenge) {
		t.Fatalf("expected ErrUnknownChallenge, got %v", err)
	}
}

func TestSubmitWeeklyTestGrantsParticipation(t *testing.T) {
	userRepo := newFakeUserRepo(model.User{ID: "u1", Role: model.RoleStudent})
	history := &fakeHistoryRepo{}
	svc := newTestChallengeService(userRepo, &fakeContentRepo{}, history)

	if _, err := svc.SubmitTest(context.Background(), "u1", "weekly-test-7", "Weekly Test", nil, 3, 10, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, _ := userRepo.GetUserByID(context.Background(), "u1")
	if u.SubscriptionTier != model.TierWeekly || u.SubscriptionEndDate == nil {
		t.Fatalf("expected 24h WEEKLY grant, got %s end=%v", u.SubscriptionTier, u.SubscriptionEndDate)
	}
}
