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

type ContentHandler struct {
	contentService service.ContentService
	validate       *validator.Validate
}

func NewContentHandler(contentService service.ContentService, v *validator.Validate) *ContentHandler {
	return &ContentHandler{contentService: contentService, validate: v}
}

// RegisterRoutes mounts v1 content routes.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/content/unlock", authMw(http.HandlerFunc(h.unlock)))
}

func (h *ContentHandler) unlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.UnlockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// An admin console session may unlock as another user; the evaluator
	// then treats the request as an impersonation.
	impersonating := false
	if req.UserID != "" && req.UserID != userID {
		role := middleware.Role(r)
		if role != model.RoleAdmin && role != model.RoleSubAdmin {
			http.Error(w, "Forbidden: impersonation requires an admin role", http.StatusForbidden)
			return
		}
		userID = req.UserID
		impersonating = true
	}

	result, err := h.contentService.Unlock(r.Context(), service.UnlockRequest{
		UserID:           userID,
		Impersonating:    impersonating,
		ContentKey:       req.ContentKey,
		ContentType:      model.ContentType(req.ContentType),
		Confirmed:        req.Confirmed,
		EnableAutoDeduct: req.EnableAutoDeduct,
		Board:            req.Board,
		ClassLevel:       req.ClassLevel,
		Stream:           req.Stream,
		SubjectName:      req.SubjectName,
		ChapterID:        req.ChapterID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContentPending):
			writeUnlock(w, http.StatusAccepted, result)
		case errors.Is(err, service.ErrConfirmationRequired):
			// Not an error for the client: it answers with confirmed=true.
			writeUnlock(w, http.StatusPaymentRequired, result)
		case errors.Is(err, service.ErrInsufficientCredits):
			writeUnlock(w, http.StatusForbidden, result)
		case errors.Is(err, service.ErrContentNotFound), errors.Is(err, model.ErrVariantNotPresent):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to unlock content: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeUnlock(w, http.StatusOK, result)
}

func writeUnlock(w http.ResponseWriter, status int, result *service.UnlockResult) {
	resp := dto.UnlockResponseDTO{
		Outcome: string(result.Outcome),
		Cost:    result.Cost,
		Balance: result.Balance,
		Reason:  result.Reason,
		Link:    result.Link,
		Body:    result.Body,
	}
	resp.Playlist = result.Playlist
	for _, q := range result.Questions {
		resp.Questions = append(resp.Questions, dto.MCQItemDTO{
			Question:    q.Question,
			Options:     q.Options,
			Correct:     q.Correct,
			Explanation: q.Explanation,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
