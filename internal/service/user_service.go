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
	"app/internal/sweep"
	"app/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrSignupDisabled     = errors.New("signups are currently disabled")
)

const sessionTTL = 7 * 24 * time.Hour

// UserService handles accounts: signup with the trial grant, login with the
// expiry check and daily bonus, and profile reads.
type UserService interface {
	Signup(ctx context.Context, name, email, password, board, classLevel, stream string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID, name, board, classLevel, stream string) (*model.User, error)
	SetAutoDeduct(ctx context.Context, userID string, enabled bool) (*model.User, error)
}

type userService struct {
	repo          repository.UserRepository
	settingsRepo  repository.SettingsRepository
	historyRepo   repository.HistoryRepository
	userCache     *cache.UserCache
	locks         *reward.Locks
	publisher     pubsub.Publisher
	activityTopic string
	jwtSecret     string
	trialDuration time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewUserService creates a new UserService. userCache and publisher may be nil.
func NewUserService(
	repo repository.UserRepository,
	settingsRepo repository.SettingsRepository,
	historyRepo repository.HistoryRepository,
	userCache *cache.UserCache,
	locks *reward.Locks,
	publisher pubsub.Publisher,
	activityTopic string,
	jwtSecret string,
	trialDuration time.Duration,
	logger zerolog.Logger,
) UserService {
	return &userService{
		repo:          repo,
		settingsRepo:  settingsRepo,
		historyRepo:   historyRepo,
		userCache:     userCache,
		locks:         locks,
		publisher:     publisher,
		activityTopic: activityTopic,
		jwtSecret:     jwtSecret,
		trialDuration: trialDuration,
		logger:        logger.With().Str("service", "UserService").Logger(),
		now:           time.Now,
	}
}

// Signup registers an account, credits the signup bonus and starts the free
// ULTRA trial.
func (s *userService) Signup(ctx context.Context, name, email, password, board, classLevel, stream string) (*model.User, string, error) {
	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("loading settings: %w", err)
	}
	if !settings.AllowSignup {
		return nil, "", ErrSignupDisabled
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("checking email: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	trialEnd := now.Add(s.trialDuration)
	u := &model.User{
		ID:                  uuid.NewString(),
		Name:                name,
		Email:               email,
		PasswordHash:        string(hash),
		Role:                model.RoleStudent,
		Credits:             settings.SignupBonus,
		SubscriptionTier:    model.TierWeekly,
		SubscriptionLevel:   model.LevelUltra,
		SubscriptionEndDate: &trialEnd,
		GrantedByAdmin:      true,
		Board:               board,
		ClassLevel:          classLevel,
		Stream:              stream,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	trialEntry := &model.SubscriptionHistoryEntry{
		ID:            "hist-" + uuid.NewString(),
		UserID:        u.ID,
		Tier:          model.TierWeekly,
		Level:         model.LevelUltra,
		StartAt:       now,
		EndAt:         trialEnd,
		DurationHours: int(s.trialDuration / time.Hour),
		Free:          true,
		Source:        "SIGNUP_TRIAL",
	}
	if err := s.historyRepo.AddSubscriptionEntry(ctx, trialEntry); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("Failed to record trial grant")
	}

	token, err := util.GenerateToken(u, s.jwtSecret, sessionTTL)
	if err != nil {
		return nil, "", err
	}
	s.publishActivity(ctx, u.ID, model.ActivitySignup, "account created")
	s.logger.Info().Str("user_id", u.ID).Msg("User signed up")
	return u, token, nil
}

// Login verifies credentials, applies the login-time expiry check so a lapsed
// subscription never survives into a fresh session, and grants the daily
// login bonus.
func (s *userService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if u.Locked {
		return nil, "", ErrAccountLocked
	}

	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("loading settings: %w", err)
	}

	err = s.locks.Do(u.ID, func() error {
		now := s.now()
		updated := *u
		changed := false

		if downgraded, ok := sweep.Downgrade(updated, now); ok {
			updated = downgraded
			changed = true
			s.publishActivity(ctx, u.ID, model.ActivityDowngrade, "subscription expired at login")
		}

		if granted, r, ok := reward.GrantLoginBonus(updated, settings.DailyLoginBonus, now); ok {
			updated = reward.Defer(granted, *r)
			changed = true
		}

		if changed {
			if err := s.repo.UpdateUser(ctx, &updated); err != nil {
				return err
			}
			s.invalidate(ctx, u.ID)
		}
		*u = updated
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	token, err := util.GenerateToken(u, s.jwtSecret, sessionTTL)
	if err != nil {
		return nil, "", err
	}
	s.publishActivity(ctx, u.ID, model.ActivityLogin, "logged in")
	return u, token, nil
}

// Get returns the user snapshot, cache first.
func (s *userService) Get(ctx context.Context, userID string) (*model.User, error) {
	if s.userCache != nil {
		if u, err := s.userCache.Get(ctx, userID); err == nil && u != nil {
			return u, nil
		}
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if s.userCache != nil {
		if err := s.userCache.Set(ctx, u); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache user snapshot")
		}
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID, name, board, classLevel, stream string) (*model.User, error) {
	var out *model.User
	err := s.locks.Do(userID, func() error {
		u, err := s.repo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if name != "" {
			u.Name = name
		}
		u.Board = board
		u.ClassLevel = classLevel
		u.Stream = stream
		if err := s.repo.UpdateUser(ctx, u); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		out = u
		return nil
	})
	return out, err
}

func (s *userService) SetAutoDeduct(ctx context.Context, userID string, enabled bool) (*model.User, error) {
	var out *model.User
	err := s.locks.Do(userID, func() error {
		u, err := s.repo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		u.AutoDeductEnabled = enabled
		if err := s.repo.UpdateUser(ctx, u); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		out = u
		return nil
	})
	return out, err
}

func (s *userService) invalidate(ctx context.Context, userID string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate user cache")
	}
}

func (s *userService) publishActivity(ctx context.Context, userID, kind, detail string) {
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
