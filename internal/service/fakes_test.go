package service

import (
	"context"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo(users ...model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateUser(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) ListExpiredSubscribers(_ context.Context, now time.Time) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.Role != model.RoleAdmin && u.SubscriptionEndDate != nil && !now.Before(*u.SubscriptionEndDate) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListUsers(_ context.Context, limit, offset int) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) ArchiveUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Archived = true
	r.users[id] = u
	return nil
}

type fakeContentRepo struct {
	records map[string]model.ChapterContent
	pools   map[string][]model.MCQItem
}

func (r *fakeContentRepo) GetContent(_ context.Context, key string) (*model.ChapterContent, error) {
	c, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeContentRepo) SaveContent(_ context.Context, c *model.ChapterContent) error {
	if r.records == nil {
		r.records = make(map[string]model.ChapterContent)
	}
	r.records[c.Key] = *c
	return nil
}

func (r *fakeContentRepo) ListQuestionPools(_ context.Context, _, _, _ string) (map[string][]model.MCQItem, error) {
	return r.pools, nil
}

type fakeSettingsRepo struct {
	settings model.Settings
}

func (r *fakeSettingsRepo) GetSettings(_ context.Context) (model.Settings, error) {
	return r.settings, nil
}

func (r *fakeSettingsRepo) SaveSettings(_ context.Context, s model.Settings) error {
	r.settings = s
	return nil
}

type fakeHistoryRepo struct {
	mu           sync.Mutex
	subEntries   []model.SubscriptionHistoryEntry
	creditEvents []repository.CreditEvent
	attempts     []model.TestAttempt
}

func (r *fakeHistoryRepo) AddSubscriptionEntry(_ context.Context, e *model.SubscriptionHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subEntries = append(r.subEntries, *e)
	return nil
}

func (r *fakeHistoryRepo) ListSubscriptionHistory(_ context.Context, userID string, _ int) ([]model.SubscriptionHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SubscriptionHistoryEntry
	for _, e := range r.subEntries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) AddCreditEvent(_ context.Context, e *repository.CreditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creditEvents = append(r.creditEvents, *e)
	return nil
}

func (r *fakeHistoryRepo) ListCreditEvents(_ context.Context, userID string, _ int) ([]repository.CreditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.CreditEvent
	for _, e := range r.creditEvents {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) AddTestAttempt(_ context.Context, a *model.TestAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *fakeHistoryRepo) ListTestAttempts(_ context.Context, userID string, _ int) ([]model.TestAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range r.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
