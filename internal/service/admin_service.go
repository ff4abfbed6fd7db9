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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCreditAdjustment is returned when an adjustment would drive the balance
// negative.
var ErrCreditAdjustment = errors.New("adjustment would make balance negative")

// AdminService is the back-office surface: user management, credit
// adjustments and the settings document.
type AdminService interface {
	ListUsers(ctx context.Context, limit, offset int) ([]model.User, error)
	AdjustCredits(ctx context.Context, userID string, delta int, reason string) (*model.User, error)
	SetLocked(ctx context.Context, userID string, locked bool) error
	Archive(ctx context.Context, userID string) error
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
	CreditEvents(ctx context.Context, userID string, limit int) ([]repository.CreditEvent, error)
	TestAttempts(ctx context.Context, userID string, limit int) ([]model.TestAttempt, error)
}

type adminService struct {
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

// NewAdminService creates a new AdminService.
func NewAdminService(
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	locks *reward.Locks,
	publisher pubsub.Publisher,
	activityTopic string,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		userRepo:      userRepo,
		settingsRepo:  settingsRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		locks:         locks,
		publisher:     publisher,
		activityTopic: activityTopic,
		logger:        logger.With().Str("service", "AdminService").Logger(),
		now:           time.Now,
	}
}

func (s *adminService) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.ListUsers(ctx, limit, offset)
}

// AdjustCredits moves the balance by delta, positive or negative. The
// non-negative balance invariant holds here too: an overdraw is rejected, not
// clamped.
func (s *adminService) AdjustCredits(ctx context.Context, userID string, delta int, reason string) (*model.User, error) {
	var out *model.User
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if u.Credits+delta < 0 {
			return ErrCreditAdjustment
		}
		u.Credits += delta
		if err := s.userRepo.UpdateUser(ctx, u); err != nil {
			return err
		}
		event := &repository.CreditEvent{
			ID:           "evt-" + uuid.NewString(),
			UserID:       userID,
			Amount:       delta,
			BalanceAfter: u.Credits,
			Reason:       reason,
		}
		if err := s.historyRepo.AddCreditEvent(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record credit adjustment")
		}
		s.invalidate(ctx, userID)
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishActivity(ctx, userID, model.ActivityAdminAction, fmt.Sprintf("credits %+d: %s", delta, reason))
	return out, nil
}

func (s *adminService) SetLocked(ctx context.Context, userID string, locked bool) error {
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		u.Locked = locked
		if err := s.userRepo.UpdateUser(ctx, u); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publishActivity(ctx, userID, model.ActivityAdminAction, fmt.Sprintf("locked=%t", locked))
	return nil
}

func (s *adminService) Archive(ctx context.Context, userID string) error {
	err := s.locks.Do(userID, func() error {
		if err := s.userRepo.ArchiveUser(ctx, userID); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publishActivity(ctx, userID, model.ActivityAdminAction, "archived")
	return nil
}

func (s *adminService) GetSettings(ctx context.Context) (model.Settings, error) {
	return s.settingsRepo.GetSettings(ctx)
}

func (s *adminService) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := s.settingsRepo.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.logger.Info().Msg("Settings updated")
	return nil
}

func (s *adminService) CreditEvents(ctx context.Context, userID string, limit int) ([]repository.CreditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.historyRepo.ListCreditEvents(ctx, userID, limit)
}

func (s *adminService) TestAttempts(ctx context.Context, userID string, limit int) ([]model.TestAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.historyRepo.ListTestAttempts(ctx, userID, limit)
}

func (s *adminService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *adminService) publishActivity(ctx context.Context, userID, kind, detail string) {
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
