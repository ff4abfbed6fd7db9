package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type RewardHandler struct {
	rewardService service.RewardService
	validate      *validator.Validate
}

func NewRewardHandler(rewardService service.RewardService, v *validator.Validate) *RewardHandler {
	return &RewardHandler{rewardService: rewardService, validate: v}
}

// RegisterRoutes mounts v1 reward routes.
func (h *RewardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/rewards/next", authMw(http.HandlerFunc(h.next)))
	mux.Handle("/rewards/claim", authMw(http.HandlerFunc(h.claim)))
	mux.Handle("/rewards/defer", authMw(http.HandlerFunc(h.deferReward)))
	mux.Handle("/rewards/study-time", authMw(http.HandlerFunc(h.studyTime)))
}

func (h *RewardHandler) next(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	reward, err := h.rewardService.NextReward(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch reward: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if reward == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPendingRewardDTO(*reward))
}

func (h *RewardHandler) claim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.RewardActionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.rewardService.ClaimReward(r.Context(), userID, req.RewardID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			http.Error(w, err.Error(), http.StatusGone)
		default:
			http.Error(w, "Failed to claim reward: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserDTO(user))
}

func (h *RewardHandler) deferReward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.RewardActionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.rewardService.DeferReward(r.Context(), userID, req.RewardID); err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			http.Error(w, err.Error(), http.StatusGone)
		default:
			http.Error(w, "Failed to defer reward: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RewardHandler) studyTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.StudyTimeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	queued, err := h.rewardService.RecordStudyTime(r.Context(), userID, req.Seconds)
	if err != nil {
		http.Error(w, "Failed to record study time: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var resp []dto.PendingRewardDTO
	for _, p := range queued {
		resp = append(resp, toPendingRewardDTO(p))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toPendingRewardDTO(p model.PendingReward) dto.PendingRewardDTO {
	return dto.PendingRewardDTO{
		ID:            p.ID,
		Type:          string(p.Type),
		Amount:        p.Amount,
		Label:         p.Label,
		SubTier:       string(p.SubTier),
		SubLevel:      string(p.SubLevel),
		DurationHours: p.DurationHours,
		UnlockAt:      p.UnlockAt,
		ExpiresAt:     p.ExpiresAt,
	}
}
