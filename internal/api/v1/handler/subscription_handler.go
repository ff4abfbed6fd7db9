package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type SubscriptionHandler struct {
	subService service.SubscriptionService
	validate   *validator.Validate
}

func NewSubscriptionHandler(subService service.SubscriptionService, v *validator.Validate) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, validate: v}
}

// RegisterRoutes mounts v1 subscription routes.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/plans", authMw(http.HandlerFunc(h.plans)))
	mux.Handle("/subscriptions/packages", authMw(http.HandlerFunc(h.packages)))
	mux.Handle("/subscriptions/purchase", authMw(http.HandlerFunc(h.purchase)))
	mux.Handle("/subscriptions/history", authMw(http.HandlerFunc(h.history)))
	mux.Handle("/spin", authMw(http.HandlerFunc(h.spin)))
}

func (h *SubscriptionHandler) plans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	plans, err := h.subService.Plans(r.Context())
	if err != nil {
		http.Error(w, "Failed to list plans: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var resp []dto.PlanResponseDTO
	for _, p := range plans {
		resp = append(resp, dto.PlanResponseDTO{
			ID:           p.ID,
			Name:         p.Name,
			DurationDays: p.DurationDays,
			BasicPrice:   p.BasicPrice,
			UltraPrice:   p.UltraPrice,
			Popular:      p.Popular,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *SubscriptionHandler) packages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	packages, err := h.subService.Packages(r.Context())
	if err != nil {
		http.Error(w, "Failed to list packages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var resp []dto.PackageResponseDTO
	for _, p := range packages {
		resp = append(resp, dto.PackageResponseDTO{ID: p.ID, Name: p.Name, Price: p.Price, Credits: p.Credits})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *SubscriptionHandler) purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.PurchaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var link string
	var err error
	switch {
	case req.PlanID != "":
		level := model.SubscriptionLevel(req.Level)
		if level != model.LevelUltra {
			level = model.LevelBasic
		}
		link, err = h.subService.PurchaseLink(r.Context(), userID, req.PlanID, level)
	case req.PackageID != "":
		link, err = h.subService.PackagePurchaseLink(r.Context(), userID, req.PackageID)
	default:
		http.Error(w, "plan_id or package_id is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan), errors.Is(err, service.ErrUnknownPackage):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to start purchase: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.PurchaseResponseDTO{Link: link})
}

func (h *SubscriptionHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	entries, err := h.subService.History(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "Failed to list history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var resp []dto.SubscriptionHistoryDTO
	for _, e := range entries {
		resp = append(resp, dto.SubscriptionHistoryDTO{
			EntryID:       e.ID,
			Tier:          string(e.Tier),
			Level:         string(e.Level),
			StartAt:       e.StartAt,
			EndAt:         e.EndAt,
			DurationHours: e.DurationHours,
			Price:         e.Price,
			Free:          e.Free,
			Source:        e.Source,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *SubscriptionHandler) spin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	result, err := h.subService.Spin(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSpinLimitReached):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		default:
			http.Error(w, "Failed to spin: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.SpinResponseDTO{
		Label:     result.Reward.Label,
		Amount:    result.Reward.Amount,
		Balance:   result.Balance,
		SpinsLeft: result.SpinsLeft,
	})
}
