package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

type reviewCreateRequest struct {
	BusinessUser int64  `json:"business_user"`
	Rating       int    `json:"rating"`
	Description  string `json:"description"`
}

type reviewResponse struct {
	ID           int64  `json:"id"`
	BusinessUser int64  `json:"business_user"`
	Reviewer     int64  `json:"reviewer"`
	Rating       int    `json:"rating"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toReviewResponse(rev *model.Review) reviewResponse {
	return reviewResponse{
		ID:           rev.ID,
		BusinessUser: rev.BusinessID,
		Reviewer:     rev.ReviewerID,
		Rating:       rev.Rating,
		Description:  rev.Description,
		CreatedAt:    rev.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rev.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateReview создаёт отзыв текущего клиента о бизнес-пользователе.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actorID, actorType, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	var req reviewCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	if req.BusinessUser < 1 {
		writeError(w, http.StatusBadRequest, kindValidation, "business_user is required")
		return
	}

	review, err := h.service.CreateReview(r.Context(), actorID, actorType, req.BusinessUser, req.Rating, req.Description)
	if err != nil {
		h.handleError(w, err, "create review",
			zap.Int64("reviewerID", actorID), zap.Int64("businessID", req.BusinessUser))
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

func parseReviewFilter(r *http.Request) (repository.ReviewFilter, bool) {
	q := r.URL.Query()
	filter := repository.ReviewFilter{Ordering: q.Get("ordering")}

	if v := q.Get("business_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, false
		}
		filter.BusinessID = &id
	}
	if v := q.Get("reviewer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, false
		}
		filter.ReviewerID = &id
	}

	return filter, true
}

// ListReviews возвращает отзывы с учётом фильтров и сортировки.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseReviewFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid filter parameters")
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), filter)
	if err != nil {
		h.handleError(w, err, "list reviews")
		return
	}

	resp := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type reviewPatchRequest struct {
	Rating      *int    `json:"rating"`
	Description *string `json:"description"`
}

// PatchReview обновляет оценку или текст отзыва текущего пользователя.
func (h *Handler) PatchReview(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	reviewID, ok := parseIDParam(r, "reviewID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid review id")
		return
	}

	var req reviewPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	review, err := h.service.UpdateReview(r.Context(), actorID, reviewID, req.Rating, req.Description)
	if err != nil {
		h.handleError(w, err, "patch review", zap.Int64("reviewID", reviewID))
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(review))
}

// DeleteReview удаляет отзыв текущего пользователя.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	reviewID, ok := parseIDParam(r, "reviewID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid review id")
		return
	}

	if err := h.service.DeleteReview(r.Context(), actorID, reviewID); err != nil {
		h.handleError(w, err, "delete review", zap.Int64("reviewID", reviewID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
