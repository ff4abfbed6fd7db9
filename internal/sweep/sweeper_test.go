package sweep

import (
	"context"
	"reflect"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

type fakeUserStore struct {
	users   map[string]model.User
	updates int
}

func (f *fakeUserStore) ListExpiredSubscribers(_ context.Context, now time.Time) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		if u.SubscriptionExpired(now) && !u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) UpdateUser(_ context.Context, u *model.User) error {
	f.users[u.ID] = *u
	f.updates++
	return nil
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestDowngradeExpiredStudent(t *testing.T) {
	now := time.Now()
	u := model.User{
		ID:                  "u1",
		Role:                model.RoleStudent,
		SubscriptionTier:    model.TierMonthly,
		SubscriptionLevel:   model.LevelUltra,
		SubscriptionEndDate: ptrTime(now.Add(-24 * time.Hour)),
	}
	got, changed := Downgrade(u, now)
	if !changed {
		t.Fatal("expected a downgrade")
	}
	if got.SubscriptionEndDate != nil {
		t.Fatal("end date not cleared")
	}
	if got.SubscriptionTier != model.TierFree || got.SubscriptionLevel != model.LevelBasic {
		t.Fatalf("unexpected tier/level: %s/%s", got.SubscriptionTier, got.SubscriptionLevel)
	}
	if got.PremiumAt(now) {
		t.Fatal("downgraded user still premium")
	}
}

func TestDowngradeIdempotent(t *testing.T) {
	now := time.Now()
	u := model.User{
		ID:                  "u1",
		Role:                model.RoleStudent,
		SubscriptionTier:    model.TierWeekly,
		SubscriptionEndDate: ptrTime(now.Add(-time.Hour)),
	}
	once, changed := Downgrade(u, now)
	if !changed {
		t.Fatal("expected first downgrade to change the record")
	}
	twice, changed := Downgrade(once, now)
	if changed {
		t.Fatal("second downgrade reported a change")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second downgrade altered the record: %+v vs %+v", once, twice)
	}
}

func TestDowngradeSkipsAdminAndActive(t *testing.T) {
	now := time.Now()
	admin := model.User{
		ID:                  "a1",
		Role:                model.RoleAdmin,
		SubscriptionEndDate: ptrTime(now.Add(-time.Hour)),
	}
	if _, changed := Downgrade(admin, now); changed {
		t.Fatal("admin account was downgraded")
	}

	active := model.User{
		ID:                  "u2",
		Role:                model.RoleStudent,
		SubscriptionEndDate: ptrTime(now.Add(time.Hour)),
	}
	if _, changed := Downgrade(active, now); changed {
		t.Fatal("active subscription was downgraded")
	}
}

func TestRunOnceSweepsOnlyExpired(t *testing.T) {
	now := time.Now()
	store := &fakeUserStore{users: map[string]model.User{
		"expired": {
			ID: "expired", Role: model.RoleStudent,
			SubscriptionTier:    model.TierWeekly,
			SubscriptionLevel:   model.LevelUltra,
			SubscriptionEndDate: ptrTime(now.Add(-time.Minute)),
		},
		"active": {
			ID: "active", Role: model.RoleStudent,
			SubscriptionTier:    model.TierMonthly,
			SubscriptionEndDate: ptrTime(now.Add(time.Hour)),
		},
		"admin": {
			ID: "admin", Role: model.RoleAdmin,
			SubscriptionEndDate: ptrTime(now.Add(-time.Hour)),
		},
	}}

	s := New(store, nil, nil, "", time.Minute, zerolog.Nop())
	s.now = func() time.Time { return now }

	changed, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 downgrade, got %d", changed)
	}
	if store.users["expired"].SubscriptionTier != model.TierFree {
		t.Fatal("expired user not downgraded")
	}
	if store.users["active"].SubscriptionTier != model.TierMonthly {
		t.Fatal("active user was touched")
	}

	// A second pass finds nothing to do.
	changed, err = s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second sweep changed %d records", changed)
	}
}
