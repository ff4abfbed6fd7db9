package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"app/internal/cache"
	"app/internal/challenge"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/reward"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoQuestions means the user's scope has no question pools to draw from.
	ErrNoQuestions = errors.New("no questions available for this scope")
	// ErrUnknownChallenge means the submitted challenge ID was never issued to
	// this user, so there is no paper to grade against.
	ErrUnknownChallenge = errors.New("challenge was not issued to this user")
)

// TestResult is what a submission earns: the recorded attempt plus any
// subscription reward.
type TestResult struct {
	Attempt model.TestAttempt
	Message string
}

// ChallengeService assembles the daily challenge and scores submissions.
type ChallengeService interface {
	DailyChallenge(ctx context.Context, userID string) (*model.Challenge, error)
	// SubmitTest grades and records a finished test. Daily challenges are
	// graded server-side: the day's paper is recomposed from its seed and
	// answers holds the chosen option index per question; the client-supplied
	// score and total are used only for tests whose paper the server does not
	// hold.
	SubmitTest(ctx context.Context, userID, testID, testName string, answers []int, score, total int, startedAt time.Time) (*TestResult, error)
}

type challengeService struct {
	contentRepo   repository.ContentRepository
	userRepo      repository.UserRepository
	settingsRepo  repository.SettingsRepository
	historyRepo   repository.HistoryRepository
	userCache     *cache.UserCache
	locks         *reward.Locks
	publisher     pubsub.Publisher
	activityTopic string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(
	contentRepo repository.ContentRepository,
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	locks *reward.Locks,
	publisher pubsub.Publisher,
	activityTopic string,
	logger zerolog.Logger,
) ChallengeService {
	return &challengeService{
		contentRepo:   contentRepo,
		userRepo:      userRepo,
		settingsRepo:  settingsRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		locks:         locks,
		publisher:     publisher,
		activityTopic: activityTopic,
		logger:        logger.With().Str("service", "ChallengeService").Logger(),
		now:           time.Now,
	}
}

// DailyChallenge composes today's challenge for the user's board, class and
// stream. The same user gets the same paper all day: the shuffle is seeded
// from user and date, so a page reload does not deal a fresh hand.
func (s *challengeService) DailyChallenge(ctx context.Context, userID string) (*model.Challenge, error) {
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	target := settings.ChallengeTarget
	if target <= 0 {
		target = 100
	}

	day := s.now().UTC().Format("2006-01-02")
	questions, err := s.composeForDay(ctx, u, day, target)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	return &model.Challenge{
		ID:        reward.DailyChallengeIDPrefix + userID + "-" + day,
		Name:      "Daily Challenge",
		Questions: questions,
	}, nil
}

// composeForDay rebuilds the paper for one user and one UTC day. The shuffle
// seed is derived from both, so the same paper comes back for grading.
func (s *challengeService) composeForDay(ctx context.Context, u *model.User, day string, target int) ([]model.MCQItem, error) {
	pools, err := s.contentRepo.ListQuestionPools(ctx, u.Board, u.ClassLevel, u.Stream)
	if err != nil {
		return nil, err
	}
	seed := int64(0)
	for _, c := range u.ID + day {
		seed = seed*31 + int64(c)
	}
	rng := rand.New(rand.NewSource(seed))
	return challenge.Compose(pools, target, rng), nil
}

// gradeChallenge validates that the challenge ID belongs to the user,
// recomposes that day's paper and scores the submitted answers against it.
func (s *challengeService) gradeChallenge(ctx context.Context, u *model.User, testID string, answers []int) (score, total int, err error) {
	rest := strings.TrimPrefix(testID, reward.DailyChallengeIDPrefix)
	if !strings.HasPrefix(rest, u.ID+"-") {
		return 0, 0, ErrUnknownChallenge
	}
	day := strings.TrimPrefix(rest, u.ID+"-")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return 0, 0, ErrUnknownChallenge
	}

	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("loading settings: %w", err)
	}
	target := settings.ChallengeTarget
	if target <= 0 {
		target = 100
	}
	paper, err := s.composeForDay(ctx, u, day, target)
	if err != nil {
		return 0, 0, err
	}
	if len(paper) == 0 {
		return 0, 0, ErrUnknownChallenge
	}

	for i, q := range paper {
		if i < len(answers) && answers[i] == q.Correct {
			score++
		}
	}
	return score, len(paper), nil
}

// SubmitTest records the attempt and applies the completion reward.
func (s *challengeService) SubmitTest(ctx context.Context, userID, testID, testName string, answers []int, score, total int, startedAt time.Time) (*TestResult, error) {
	now := s.now()

	if strings.HasPrefix(testID, reward.DailyChallengeIDPrefix) {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		// Never trust a self-reported challenge score; grade against the
		// server's own copy of the paper.
		score, total, err = s.gradeChallenge(ctx, u, testID, answers)
		if err != nil {
			return nil, err
		}
	}

	attempt := model.TestAttempt{
		ID:          "att-" + uuid.NewString(),
		TestID:      testID,
		TestName:    testName,
		UserID:      userID,
		Score:       score,
		Total:       total,
		StartedAt:   startedAt,
		SubmittedAt: now,
	}
	if err := s.historyRepo.AddTestAttempt(ctx, &attempt); err != nil {
		return nil, err
	}

	result := &TestResult{Attempt: attempt}
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		updated, entry, msg := reward.TestGrant(*u, testID, score, total, now)
		result.Message = msg
		if entry == nil {
			return nil
		}
		if err := s.userRepo.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		if err := s.historyRepo.AddSubscriptionEntry(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record test grant")
		}
		s.invalidate(ctx, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishActivity(ctx, userID, model.ActivityTestSubmit, fmt.Sprintf("%s %d/%d", testID, score, total))
	return result, nil
}

func (s *challengeService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *challengeService) publishActivity(ctx context.Context, userID, kind, detail string) {
	if s.publisher == nil || s.activityTopic == "" {
		return
	}
	payload, err := json.Marshal(model.ActivityEvent{UserID: userID, Kind: kind, Detail: detail, At: s.now()})
	if err != nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, s.activityTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("kind", kind).Msg("Failed to publish activity event")
	}
}
