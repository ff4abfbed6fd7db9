package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// StudyTimeTracker accumulates per-day study seconds in Redis. Counters expire
// after 48 hours; the milestone rewards only ever look at today.
type StudyTimeTracker struct {
	client *redis.Client
}

// NewStudyTimeTracker creates a tracker.
func NewStudyTimeTracker(client *redis.Client) *StudyTimeTracker {
	return &StudyTimeTracker{client: client}
}

func studyKey(userID, day string) string {
	return fmt.Sprintf("study_seconds:%s:%s", userID, day)
}

// Add increments the user's counter for the given day and returns the totals
// before and after the increment.
func (t *StudyTimeTracker) Add(ctx context.Context, userID, day string, seconds int) (prev, total int, err error) {
	key := studyKey(userID, day)
	total64, err := t.client.IncrBy(ctx, key, int64(seconds)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("study time incr for user %s: %w", userID, err)
	}
	if err := t.client.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
		return 0, 0, fmt.Errorf("study time expire for user %s: %w", userID, err)
	}
	total = int(total64)
	return total - seconds, total, nil
}
