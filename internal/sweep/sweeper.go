// Package sweep downgrades expired subscriptions to the free plan.
package sweep

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// UserStore is the slice of the user repository the sweeper needs.
type UserStore interface {
	ListExpiredSubscribers(ctx context.Context, now time.Time) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
}

// Invalidator drops a cached user snapshot after a downgrade.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Publisher emits activity events for downgrades.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// Downgrade applies the one-way ACTIVE -> FREE transition to a single user.
// It returns the updated record and whether anything changed. Admin accounts
// are exempt, and running it on an already-free record is a no-op, so the
// sweep is idempotent.
func Downgrade(u model.User, now time.Time) (model.User, bool) {
	if u.IsAdmin() {
		return u, false
	}
	if !u.SubscriptionExpired(now) {
		return u, false
	}
	u.SubscriptionEndDate = nil
	u.SubscriptionTier = model.TierFree
	u.SubscriptionLevel = model.LevelBasic
	u.GrantedByAdmin = false
	return u, true
}

// Sweeper periodically scans for expired subscriptions and downgrades them.
type Sweeper struct {
	store     UserStore
	cache     Invalidator
	publisher Publisher
	topic     string
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Sweeper. cache and publisher may be nil.
func New(store UserStore, cache Invalidator, publisher Publisher, topic string, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:     store,
		cache:     cache,
		publisher: publisher,
		topic:     topic,
		interval:  interval,
		logger:    logger.With().Str("service", "Sweeper").Logger(),
		now:       time.Now,
	}
}

// Run executes the sweep on a fixed interval until ctx is cancelled. One pass
// runs immediately on start so a restart does not leave expired subscriptions
// live for a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial expiry sweep failed")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Expiry sweep failed")
			}
		}
	}
}

// RunOnce downgrades every currently-expired subscriber and returns how many
// records changed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.store.ListExpiredSubscribers(ctx, now)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range expired {
		u, ok := Downgrade(expired[i], now)
		if !ok {
			continue
		}
		if err := s.store.UpdateUser(ctx, &u); err != nil {
			s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to persist downgrade")
			continue
		}
		changed++
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, u.ID); err != nil {
				s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("Failed to invalidate user cache")
			}
		}
		s.publishDowngrade(ctx, u.ID, now)
	}
	if changed > 0 {
		s.logger.Info().Int("count", changed).Msg("Downgraded expired subscriptions")
	}
	return changed, nil
}

func (s *Sweeper) publishDowngrade(ctx context.Context, userID string, now time.Time) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	payload, err := json.Marshal(model.ActivityEvent{
		UserID: userID,
		Kind:   model.ActivityDowngrade,
		Detail: "subscription period ended",
		At:     now,
	})
	if err != nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish downgrade event")
	}
}
