// Package reward implements the engagement loops: daily login bonus, the
// pending-reward queue, study-time milestones, and test-completion grants.
//
// All grant functions are pure: they take a user snapshot and return an
// updated copy; callers persist the result. Serialization of concurrent
// grants for the same user is the caller's job, via Locks.
package reward

import (
	"fmt"
	"strings"
	"time"

	"app/internal/model"

	"github.com/google/uuid"
)

// DailyChallengeIDPrefix marks challenge IDs assembled by the daily
// challenge composer, which carry their own completion reward.
const DailyChallengeIDPrefix = "daily-challenge-"

// GrantLoginBonus credits the daily login bonus if it has not been granted
// today. It returns the updated user, the reward to surface, and whether
// anything changed. Calendar days are compared in UTC.
func GrantLoginBonus(u model.User, bonus int, now time.Time) (model.User, *model.PendingReward, bool) {
	if bonus <= 0 {
		return u, nil, false
	}
	today := now.UTC().Format("2006-01-02")
	if u.LastLoginRewardAt != nil && u.LastLoginRewardAt.UTC().Format("2006-01-02") == today {
		return u, nil, false
	}
	u.Credits += bonus
	granted := now
	u.LastLoginRewardAt = &granted
	expires := now.Add(24 * time.Hour)
	r := &model.PendingReward{
		ID:        "login-bonus-" + today,
		Type:      model.RewardCoins,
		Amount:    bonus,
		Label:     "Daily Login Bonus",
		ExpiresAt: &expires,
	}
	return u, r, true
}

// PopUnlockedReward removes and returns the first pending reward whose unlock
// time has passed. Removal happens before the reward is shown, so each reward
// is surfaced at most once even if the caller crashes after presenting it.
func PopUnlockedReward(u model.User, now time.Time) (model.User, *model.PendingReward) {
	for i, r := range u.PendingRewards {
		if r.UnlockAt != nil && now.Before(*r.UnlockAt) {
			continue
		}
		reward := r
		rest := make([]model.PendingReward, 0, len(u.PendingRewards)-1)
		rest = append(rest, u.PendingRewards[:i]...)
		rest = append(rest, u.PendingRewards[i+1:]...)
		u.PendingRewards = rest
		return u, &reward
	}
	return u, nil
}

// Defer pushes a surfaced-but-ignored reward back onto the pending queue.
func Defer(u model.User, r model.PendingReward) model.User {
	u.PendingRewards = append(append([]model.PendingReward(nil), u.PendingRewards...), r)
	return u
}

// Claim applies a reward to the user. Subscription rewards produce a history
// entry; coin rewards return nil.
func Claim(u model.User, r model.PendingReward, now time.Time) (model.User, *model.SubscriptionHistoryEntry) {
	switch r.Type {
	case model.RewardCoins:
		u.Credits += r.Amount
		return u, nil
	case model.RewardSubscription:
		hours := r.DurationHours
		if hours <= 0 {
			hours = 4
		}
		tier := r.SubTier
		if tier == "" {
			tier = model.TierWeekly
		}
		level := r.SubLevel
		if level == "" {
			level = model.LevelBasic
		}
		end := now.Add(time.Duration(hours) * time.Hour)
		u.SubscriptionTier = tier
		u.SubscriptionLevel = level
		u.SubscriptionEndDate = &end
		u.GrantedByAdmin = true
		entry := &model.SubscriptionHistoryEntry{
			ID:            "hist-" + uuid.NewString(),
			UserID:        u.ID,
			Tier:          tier,
			Level:         level,
			StartAt:       now,
			EndAt:         end,
			DurationHours: hours,
			Free:          true,
			Source:        "REWARD",
		}
		return u, entry
	}
	return u, nil
}

// StudyMilestones returns the enabled engagement rewards whose thresholds
// were crossed between prevSeconds and newSeconds of study time today.
func StudyMilestones(table []model.EngagementReward, prevSeconds, newSeconds int) []model.EngagementReward {
	var crossed []model.EngagementReward
	for _, er := range table {
		if !er.Enabled || er.Seconds <= 0 {
			continue
		}
		if prevSeconds < er.Seconds && newSeconds >= er.Seconds {
			crossed = append(crossed, er)
		}
	}
	return crossed
}

// AsPending converts an engagement reward into a pending reward that unlocks
// immediately.
func AsPending(er model.EngagementReward) model.PendingReward {
	return model.PendingReward{
		ID:            "engage-" + er.ID + "-" + uuid.NewString(),
		Type:          er.Type,
		Amount:        er.Amount,
		Label:         er.Label,
		SubTier:       er.SubTier,
		SubLevel:      er.SubLevel,
		DurationHours: er.DurationHours,
	}
}

// TestGrant applies the completion reward for a submitted test: daily
// challenges pay out a month of ULTRA at 90%+, any other test grants 24 hours
// of WEEKLY for participating. It returns the updated user, a history entry
// when a subscription was granted, and a user-facing message.
func TestGrant(u model.User, testID string, score, total int, now time.Time) (model.User, *model.SubscriptionHistoryEntry, string) {
	if total <= 0 {
		return u, nil, ""
	}
	if strings.HasPrefix(testID, DailyChallengeIDPrefix) {
		pct := score * 100 / total
		if pct < 90 {
			return u, nil, fmt.Sprintf("Daily Challenge complete. Score: %d%%. Need 90%% for the reward.", pct)
		}
		end := now.Add(30 * 24 * time.Hour)
		u.SubscriptionTier = model.TierMonthly
		u.SubscriptionLevel = model.LevelUltra
		u.SubscriptionEndDate = &end
		u.GrantedByAdmin = true
		entry := &model.SubscriptionHistoryEntry{
			ID:            "hist-" + uuid.NewString(),
			UserID:        u.ID,
			Tier:          model.TierMonthly,
			Level:         model.LevelUltra,
			StartAt:       now,
			EndAt:         end,
			DurationHours: 30 * 24,
			Free:          true,
			Source:        "DAILY_CHALLENGE",
		}
		return u, entry, "You scored 90%+! Unlocked 1 month of free ULTRA."
	}

	end := now.Add(24 * time.Hour)
	u.SubscriptionTier = model.TierWeekly
	u.SubscriptionEndDate = &end
	u.GrantedByAdmin = true
	entry := &model.SubscriptionHistoryEntry{
		ID:            "hist-" + uuid.NewString(),
		UserID:        u.ID,
		Tier:          model.TierWeekly,
		Level:         u.SubscriptionLevel,
		StartAt:       now,
		EndAt:         end,
		DurationHours: 24,
		Free:          true,
		Source:        "WEEKLY_TEST",
	}
	return u, entry, "Test submitted! 24 hours of free subscription granted."
}
