package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type fakeContentService struct {
	lastReq service.UnlockRequest
}

func (f *fakeContentService) Unlock(_ context.Context, req service.UnlockRequest) (*service.UnlockResult, error) {
	f.lastReq = req
	return &service.UnlockResult{Outcome: service.OutcomeAllowed}, nil
}

func (f *fakeContentService) SaveContent(_ context.Context, _ *model.ChapterContent) error {
	return nil
}

func (f *fakeContentService) GetContent(_ context.Context, _ string) (*model.ChapterContent, error) {
	return nil, nil
}

func unlockRequest(t *testing.T, body string, userID string, role model.Role) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/content/unlock", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleContextKey, role)
	return req.WithContext(ctx)
}

func TestUnlockImpersonationRequiresAdminRole(t *testing.T) {
	svc := &fakeContentService{}
	h := NewContentHandler(svc, validator.New(validator.WithRequiredStructEnabled()))

	body := `{"user_id":"victim","content_key":"k1","content_type":"NOTES"}`
	rec := httptest.NewRecorder()
	h.unlock(rec, unlockRequest(t, body, "student", model.RoleStudent))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a student setting user_id, got %d", rec.Code)
	}
	if svc.lastReq.UserID != "" {
		t.Fatal("unlock ran despite the rejected impersonation")
	}
}

func TestUnlockImpersonationAsAdmin(t *testing.T) {
	svc := &fakeContentService{}
	h := NewContentHandler(svc, validator.New(validator.WithRequiredStructEnabled()))

	body := `{"user_id":"student-7","content_key":"k1","content_type":"NOTES"}`
	rec := httptest.NewRecorder()
	h.unlock(rec, unlockRequest(t, body, "admin-1", model.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastReq.UserID != "student-7" {
		t.Fatalf("expected unlock to target student-7, got %q", svc.lastReq.UserID)
	}
	if !svc.lastReq.Impersonating {
		t.Fatal("expected the request to be marked as an impersonation")
	}
}

func TestUnlockOwnAccountNotImpersonation(t *testing.T) {
	svc := &fakeContentService{}
	h := NewContentHandler(svc, validator.New(validator.WithRequiredStructEnabled()))

	body := `{"content_key":"k1","content_type":"NOTES"}`
	rec := httptest.NewRecorder()
	h.unlock(rec, unlockRequest(t, body, "student", model.RoleStudent))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastReq.UserID != "student" || svc.lastReq.Impersonating {
		t.Fatalf("plain unlock mislabeled: %+v", svc.lastReq)
	}
}
