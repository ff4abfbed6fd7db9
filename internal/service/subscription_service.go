package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"app/internal/cache"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/reward"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownPlan    = errors.New("unknown subscription plan")
	ErrUnknownPackage = errors.New("unknown credit package")
	// ErrSpinLimitReached means the user has used all of today's spins for
	// their subscription level.
	ErrSpinLimitReached = errors.New("daily spin limit reached")
)

// SpinResult is the outcome of one wheel spin.
type SpinResult struct {
	Reward    model.WheelReward
	Balance   int
	SpinsLeft int
}

// SubscriptionService covers the commercial surface: plans and packages,
// the purchase hand-off, admin grants and the spin wheel.
type SubscriptionService interface {
	Plans(ctx context.Context) ([]model.SubscriptionPlan, error)
	Packages(ctx context.Context) ([]model.CreditPackage, error)
	// PurchaseLink builds the messaging deep-link that hands a purchase to a
	// human operator. No payment gateway is involved.
	PurchaseLink(ctx context.Context, userID, planID string, level model.SubscriptionLevel) (string, error)
	PackagePurchaseLink(ctx context.Context, userID, packageID string) (string, error)
	Grant(ctx context.Context, userID string, tier model.SubscriptionTier, level model.SubscriptionLevel, duration time.Duration, source string) (*model.User, error)
	History(ctx context.Context, userID string, limit int) ([]model.SubscriptionHistoryEntry, error)
	Spin(ctx context.Context, userID string) (*SpinResult, error)
}

type subscriptionService struct {
	userRepo      repository.UserRepository
	settingsRepo  repository.SettingsRepository
	historyRepo   repository.HistoryRepository
	userCache     *cache.UserCache
	locks         *reward.Locks
	publisher     pubsub.Publisher
	activityTopic string
	logger        zerolog.Logger
	now           func() time.Time
	spinRand      func(n int) int
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	userRepo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	locks *reward.Locks,
	publisher pubsub.Publisher,
	activityTopic string,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		userRepo:      userRepo,
		settingsRepo:  settingsRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		locks:         locks,
		publisher:     publisher,
		activityTopic: activityTopic,
		logger:        logger.With().Str("service", "SubscriptionService").Logger(),
		now:           time.Now,
		spinRand:      rand.Intn,
	}
}

func (s *subscriptionService) Plans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Plans, nil
}

func (s *subscriptionService) Packages(ctx context.Context) ([]model.CreditPackage, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Packages, nil
}

func (s *subscriptionService) PurchaseLink(ctx context.Context, userID, planID string, level model.SubscriptionLevel) (string, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	var plan *model.SubscriptionPlan
	for i := range settings.Plans {
		if settings.Plans[i].ID == planID {
			plan = &settings.Plans[i]
			break
		}
	}
	if plan == nil {
		return "", ErrUnknownPlan
	}
	price := plan.BasicPrice
	if level == model.LevelUltra {
		price = plan.UltraPrice
	}
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	msg := fmt.Sprintf("Hi, I want to buy the %s %s plan (Rs %d). My account email is %s.",
		plan.Name, level, price, u.Email)
	return whatsappLink(settings.SupportPhone, msg), nil
}

func (s *subscriptionService) PackagePurchaseLink(ctx context.Context, userID, packageID string) (string, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	var pkg *model.CreditPackage
	for i := range settings.Packages {
		if settings.Packages[i].ID == packageID {
			pkg = &settings.Packages[i]
			break
		}
	}
	if pkg == nil {
		return "", ErrUnknownPackage
	}
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	msg := fmt.Sprintf("Hi, I want to buy the %s (%d coins, Rs %d). My account email is %s.",
		pkg.Name, pkg.Credits, pkg.Price, u.Email)
	return whatsappLink(settings.SupportPhone, msg), nil
}

// Grant applies a subscription to the user and records it. Used by the admin
// console after a purchase hand-off completes, and by reward flows.
func (s *subscriptionService) Grant(ctx context.Context, userID string, tier model.SubscriptionTier, level model.SubscriptionLevel, duration time.Duration, source string) (*model.User, error) {
	var out *model.User
	err := s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		now := s.now()
		end := now.Add(duration)
		u.SubscriptionTier = tier
		u.SubscriptionLevel = level
		u.SubscriptionEndDate = &end
		u.GrantedByAdmin = true
		if err := s.userRepo.UpdateUser(ctx, u); err != nil {
			return err
		}
		entry := &model.SubscriptionHistoryEntry{
			ID:            "hist-" + uuid.NewString(),
			UserID:        userID,
			Tier:          tier,
			Level:         level,
			StartAt:       now,
			EndAt:         end,
			DurationHours: int(duration / time.Hour),
			Free:          true,
			Source:        source,
		}
		if err := s.historyRepo.AddSubscriptionEntry(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record subscription grant")
		}
		s.invalidate(ctx, userID)
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishActivity(ctx, userID, model.ActivitySubscription, fmt.Sprintf("%s/%s via %s", tier, level, source))
	return out, nil
}

func (s *subscriptionService) History(ctx context.Context, userID string, limit int) ([]model.SubscriptionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.historyRepo.ListSubscriptionHistory(ctx, userID, limit)
}

// Spin runs one wheel spin. The daily limit depends on the user's live
// subscription level; the day counter is stored on the user record.
func (s *subscriptionService) Spin(ctx context.Context, userID string) (*SpinResult, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if len(settings.WheelRewards) == 0 {
		return nil, errors.New("spin wheel not configured")
	}

	var result *SpinResult
	err = s.locks.Do(userID, func() error {
		u, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		now := s.now()
		today := now.UTC().Format("2006-01-02")
		if u.DailySpinDate != today {
			u.DailySpinDate = today
			u.DailySpinCount = 0
		}

		limit := settings.SpinLimitFree
		if u.PremiumAt(now) {
			if u.SubscriptionLevel == model.LevelUltra {
				limit = settings.SpinLimitUltra
			} else {
				limit = settings.SpinLimitBasic
			}
		}
		if u.DailySpinCount >= limit {
			return ErrSpinLimitReached
		}

		won := settings.WheelRewards[s.spinRand(len(settings.WheelRewards))]
		u.DailySpinCount++
		// Both slice types pay out through the reward engine: coins credit
		// the balance, subscription slices grant Amount hours of access.
		p := model.PendingReward{ID: won.ID, Type: won.Type, Amount: won.Amount, Label: won.Label}
		if won.Type == model.RewardSubscription {
			p.DurationHours = won.Amount
		}
		updated, entry := reward.Claim(*u, p, now)
		*u = updated
		if err := s.userRepo.UpdateUser(ctx, u); err != nil {
			return err
		}
		s.invalidate(ctx, userID)

		if entry != nil {
			entry.Source = "SPIN_WHEEL"
			if err := s.historyRepo.AddSubscriptionEntry(ctx, entry); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record spin subscription grant")
			}
		}
		if won.Type == model.RewardCoins && won.Amount > 0 {
			event := &repository.CreditEvent{
				ID:           "evt-" + uuid.NewString(),
				UserID:       userID,
				Amount:       won.Amount,
				BalanceAfter: u.Credits,
				Reason:       "spin wheel",
			}
			if err := s.historyRepo.AddCreditEvent(ctx, event); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record spin credit event")
			}
		}
		result = &SpinResult{Reward: won, Balance: u.Credits, SpinsLeft: limit - u.DailySpinCount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishActivity(ctx, userID, model.ActivitySpin, result.Reward.Label)
	return result, nil
}

func whatsappLink(phone, message string) string {
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(message)
}

func (s *subscriptionService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *subscriptionService) publishActivity(ctx context.Context, userID, kind, detail string) {
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
