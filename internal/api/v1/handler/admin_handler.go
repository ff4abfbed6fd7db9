package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type AdminHandler struct {
	adminService   service.AdminService
	subService     service.SubscriptionService
	contentService service.ContentService
	secretService  service.SecretService
	validate       *validator.Validate
}

func NewAdminHandler(
	adminService service.AdminService,
	subService service.SubscriptionService,
	contentService service.ContentService,
	secretService service.SecretService,
	v *validator.Validate,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		subService:     subService,
		contentService: contentService,
		secretService:  secretService,
		validate:       v,
	}
}

// RegisterRoutes mounts v1 admin routes. Every route requires an admin or
// sub-admin token; adminMw composes auth with the role check.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, adminMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/users", adminMw(http.HandlerFunc(h.listUsers)))
	mux.Handle("/admin/users/credits", adminMw(http.HandlerFunc(h.adjustCredits)))
	mux.Handle("/admin/users/subscription", adminMw(http.HandlerFunc(h.grantSubscription)))
	mux.Handle("/admin/users/lock", adminMw(http.HandlerFunc(h.lockUser)))
	mux.Handle("/admin/users/archive", adminMw(http.HandlerFunc(h.archiveUser)))
	mux.Handle("/admin/users/credit-events", adminMw(http.HandlerFunc(h.creditEvents)))
	mux.Handle("/admin/users/test-attempts", adminMw(http.HandlerFunc(h.testAttempts)))
	mux.Handle("/admin/settings", adminMw(http.HandlerFunc(h.handleSettings)))
	mux.Handle("/admin/content", adminMw(http.HandlerFunc(h.saveContent)))
	mux.Handle("/admin/provider-keys", adminMw(http.HandlerFunc(h.storeProviderKeys)))
}

func targetUserID(r *http.Request) (string, bool) {
	id := r.URL.Query().Get("user_id")
	return id, id != ""
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var resp []dto.UserResponseDTO
	for i := range users {
		resp = append(resp, toUserDTO(&users[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AdminHandler) adjustCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	var req dto.AdjustCreditsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.adminService.AdjustCredits(r.Context(), userID, req.Delta, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrCreditAdjustment):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, "Failed to adjust credits: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserDTO(user))
}

func (h *AdminHandler) grantSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	var req dto.GrantSubscriptionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	source := req.Source
	if source == "" {
		source = "ADMIN"
	}

	user, err := h.subService.Grant(r.Context(), userID,
		model.SubscriptionTier(req.Tier), model.SubscriptionLevel(req.Level),
		time.Duration(req.DurationHours)*time.Hour, source)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to grant subscription: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserDTO(user))
}

func (h *AdminHandler) lockUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	var req dto.LockUserDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.adminService.SetLocked(r.Context(), userID, req.Locked); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to update lock state: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) archiveUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.adminService.Archive(r.Context(), userID); err != nil {
		http.Error(w, "Failed to archive user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) creditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.adminService.CreditEvents(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "Failed to list credit events: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

func (h *AdminHandler) testAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := targetUserID(r)
	if !ok {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := h.adminService.TestAttempts(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "Failed to list test attempts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attempts)
}

func (h *AdminHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.adminService.GetSettings(r.Context())
		if err != nil {
			http.Error(w, "Failed to load settings: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(settings)

	case http.MethodPut:
		var settings model.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.adminService.SaveSettings(r.Context(), settings); err != nil {
			http.Error(w, "Failed to save settings: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) saveContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.SaveContentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	record := &model.ChapterContent{
		Key:              req.ContentKey,
		Board:            req.Board,
		ClassLevel:       req.ClassLevel,
		Stream:           req.Stream,
		SubjectName:      req.SubjectName,
		ChapterID:        req.ChapterID,
		FreeLink:         req.FreeLink,
		PremiumLink:      req.PremiumLink,
		UltraPDFLink:     req.UltraPDFLink,
		FreeVideoLink:    req.FreeVideoLink,
		PremiumVideoLink: req.PremiumVideoLink,
		VideoPlaylist:    req.VideoPlaylist,
		HTMLBody:         req.HTMLBody,
		Price:            req.Price,
		VideoCost:        req.VideoCost,
		VisualNotesCost:  req.VisualNotesCost,
	}
	for _, q := range req.ManualMCQs {
		record.ManualMCQs = append(record.ManualMCQs, model.MCQItem{
			Question: q.Question, Options: q.Options, Correct: q.Correct, Explanation: q.Explanation,
		})
	}
	for _, q := range req.WeeklyTestMCQs {
		record.WeeklyTestMCQs = append(record.WeeklyTestMCQs, model.MCQItem{
			Question: q.Question, Options: q.Options, Correct: q.Correct, Explanation: q.Explanation,
		})
	}

	if err := h.contentService.SaveContent(r.Context(), record); err != nil {
		http.Error(w, "Failed to save content: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) storeProviderKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secretService == nil {
		http.Error(w, "Secret storage is not configured", http.StatusServiceUnavailable)
		return
	}

	var req dto.ProviderKeysDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := h.secretService.StoreProviderKeys(ctx, req.Provider, req.Keys); err != nil {
		http.Error(w, "Failed to store provider keys: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
