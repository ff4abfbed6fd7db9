package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/cache"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/reward"

	"github.com/rs/zerolog"
)

// ErrRewardNotFound means the claimed reward is no longer pending: already
// claimed, expired, or never granted.
var ErrRewardNotFound = errors.New("reward not found")

// RewardService surfaces, claims and defers pending rewards, and turns study
// time into milestone grants.
type RewardService interface {
	// NextReward moves the next unlocked pending reward into the surfaced
	// slot and returns it. The slot is the only reward the server will claim
	// or defer; while it is occupied, NextReward keeps returning it.
	NextReward(ctx context.Context, userID string) (*model.PendingReward, error)
	// ClaimReward applies the surfaced reward. The ID must match the slot;
	// a client cannot submit a reward body of its own making.
	ClaimReward(ctx context.Context, userID, rewardID string) (*model.User, error)
	DeferReward(ctx context.Context, userID, rewardID string) error
	// RecordStudyTime adds seconds of study for today and queues any
	// milestone rewards crossed by the new total.
	RecordStudyTime(ctx context.Context, userID string, seconds int) ([]model.PendingReward, error)
}

type rewardService struct {
	userRepo      repository.UserRepository
	settingsRepo  repository.SettingsRepository
	historyRepo   repository.HistoryRepository
	userCache     *cache.UserCache
	studyTime     *cache.StudyTimeTracker
	locks         *reward.Locks
	publisher     pubsub.Publisher
	activityTopic string
	logger        zerolog.Logger
	now           func() time.Time
}

// NewRewardService creates a new RewardService.
func NewRewardService(
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	studyTime *cache.StudyTimeTracker,
	locks *reward.Locks,
	publisher pubsub.Publisher,
	activityTopic string,
	logger zerolog.Logger,
) RewardService {
	return &rewardService{
		userRepo:      userRepo,
		settingsRepo:  settingsRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		studyTime:     studyTime,
		locks:         locks,
		publisher:     publisher,
		activityTopic: activityTopic,
		logger:        logger.With().Str("service", "RewardService").Logger(),
		now:           time.Now,
	}
}

func (s *rewardService) NextReward(ctx context.Context, userID string) (*model.PendingReward, error) {
	var surfaced *model.PendingReward
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		now := s.now()
		cur := *u
		dropped := false
		if cur.SurfacedReward != nil {
			if cur.SurfacedReward.ExpiresAt == nil || now.Before(*cur.SurfacedReward.ExpiresAt) {
				surfaced = cur.SurfacedReward
				return nil
			}
			// The outstanding reward lapsed; drop it and surface the next.
			cur.SurfacedReward = nil
			dropped = true
		}
		updated, r := reward.PopUnlockedReward(cur, now)
		if r == nil && !dropped {
			return nil
		}
		updated.SurfacedReward = r
		if err := s.userRepo.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		surfaced = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return surfaced, nil
}

func (s *rewardService) ClaimReward(ctx context.Context, userID, rewardID string) (*model.User, error) {
	var out *model.User
	var label string
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		r := u.SurfacedReward
		if r == nil || r.ID != rewardID {
			return ErrRewardNotFound
		}
		now := s.now()
		if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
			return ErrRewardNotFound
		}
		updated, entry := reward.Claim(*u, *r, now)
		updated.SurfacedReward = nil
		if err := s.userRepo.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		if entry != nil {
			if err := s.historyRepo.AddSubscriptionEntry(ctx, entry); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record reward grant")
			}
		}
		s.invalidate(ctx, userID)
		label = r.Label
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishActivity(ctx, userID, model.ActivityRewardClaim, label)
	return out, nil
}

func (s *rewardService) DeferReward(ctx context.Context, userID, rewardID string) error {
	return s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		r := u.SurfacedReward
		if r == nil || r.ID != rewardID {
			return ErrRewardNotFound
		}
		updated := reward.Defer(*u, *r)
		updated.SurfacedReward = nil
		if err := s.userRepo.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	})
}

func (s *rewardService) RecordStudyTime(ctx context.Context, userID string, seconds int) ([]model.PendingReward, error) {
	if seconds <= 0 {
		return nil, nil
	}
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	day := s.now().UTC().Format("2006-01-02")
	prev, total, err := s.studyTime.Add(ctx, userID, day, seconds)
	if err != nil {
		return nil, err
	}

	crossed := reward.StudyMilestones(settings.EngagementRewards, prev, total)
	if len(crossed) == 0 {
		return nil, nil
	}

	var queued []model.PendingReward
	err = s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		updated := *u
		for _, er := range crossed {
			p := reward.AsPending(er)
			updated = reward.Defer(updated, p)
			queued = append(queued, p)
		}
		if err := s.userRepo.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return queued, nil
}

func (s *rewardService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *rewardService) publishActivity(ctx context.Context, userID, kind, detail string) {
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
