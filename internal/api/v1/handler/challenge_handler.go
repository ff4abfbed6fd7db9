package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type ChallengeHandler struct {
	challengeService service.ChallengeService
	validate         *validator.Validate
}

func NewChallengeHandler(challengeService service.ChallengeService, v *validator.Validate) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService, validate: v}
}

// RegisterRoutes mounts v1 challenge routes.
func (h *ChallengeHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/challenges/daily", authMw(http.HandlerFunc(h.daily)))
	mux.Handle("/tests/submit", authMw(http.HandlerFunc(h.submit)))
}

func (h *ChallengeHandler) daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	c, err := h.challengeService.DailyChallenge(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoQuestions):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to build daily challenge: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	// The answer key stays on the server until the paper is graded.
	resp := dto.ChallengeResponseDTO{ID: c.ID, Name: c.Name}
	for _, q := range c.Questions {
		resp.Questions = append(resp.Questions, dto.ChallengeQuestionDTO{
			Question: q.Question,
			Options:  q.Options,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *ChallengeHandler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.SubmitTestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := h.challengeService.SubmitTest(r.Context(), userID, req.TestID, req.TestName, req.Answers, req.Score, req.Total, startedAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownChallenge):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to submit test: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := dto.TestResultResponseDTO{
		AttemptID: result.Attempt.ID,
		Score:     result.Attempt.Score,
		Total:     result.Attempt.Total,
		Message:   result.Message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}
