package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

func TestCreateReview_Success(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubService{
		review: &model.Review{
			ID:          1,
			BusinessID:  20,
			ReviewerID:  10,
			Rating:      9,
			Description: "great work",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(reviewCreateRequest{
		BusinessUser: 20,
		Rating:       9,
		Description:  "great work",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewReader(body))
	authorize(t, h, req, 10, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp reviewResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BusinessUser != 20 || resp.Reviewer != 10 || resp.Rating != 9 {
		t.Fatalf("unexpected review response: %+v", resp)
	}
}

func TestCreateReview_DuplicateConflict(t *testing.T) {
	svc := &stubService{
		reviewErr: repository.ErrReviewExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(reviewCreateRequest{
		BusinessUser: 20,
		Rating:       9,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewReader(body))
	authorize(t, h, req, 10, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
	if kind := decodeError(t, res).Kind; kind != kindConflict {
		t.Fatalf("error kind = %q, want %q", kind, kindConflict)
	}
}

func TestCreateReview_InvalidRating(t *testing.T) {
	svc := &stubService{
		reviewErr: service.ErrInvalidRating,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(reviewCreateRequest{
		BusinessUser: 20,
		Rating:       11,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", bytes.NewReader(body))
	authorize(t, h, req, 10, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestListReviews_FilterByBusiness(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubService{
		reviews: []model.Review{
			{ID: 1, BusinessID: 20, ReviewerID: 10, Rating: 9, CreatedAt: now, UpdatedAt: now},
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews?business_user_id=20&ordering=-rating", nil)
	rec := httptest.NewRecorder()

	h.ListReviews(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp []reviewResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].BusinessUser != 20 {
		t.Fatalf("unexpected reviews response: %+v", resp)
	}
}

func TestListReviews_InvalidFilter(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/reviews?business_user_id=abc", nil)
	rec := httptest.NewRecorder()

	h.ListReviews(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestDeleteReview_ForbiddenForOtherUser(t *testing.T) {
	svc := &stubService{
		deleteRevErr: service.ErrPermissionDenied,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/reviews/1", nil)
	authorize(t, h, req, 11, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestDeleteReview_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/reviews/1", nil)
	authorize(t, h, req, 10, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}
