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

func testOffer() *model.Offer {
	now := time.Now().UTC()
	return &model.Offer{
		ID:        1,
		CreatorID: 10,
		Title:     "Logo design",
		Tiers: []model.OfferTier{
			{ID: 1, OfferID: 1, Type: model.TierTypeBasic, Title: "Basic", Revisions: 1, DeliveryDays: 3, PriceCents: 5000},
			{ID: 2, OfferID: 1, Type: model.TierTypeStandard, Title: "Standard", Revisions: 3, DeliveryDays: 5, PriceCents: 10000},
			{ID: 3, OfferID: 1, Type: model.TierTypePremium, Title: "Premium", Revisions: 5, DeliveryDays: 7, PriceCents: 20000},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestListOffers_PaginationEnvelope(t *testing.T) {
	svc := &stubService{
		offers:      []model.Offer{*testOffer()},
		offersTotal: 25,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/offers?page=2&page_size=10", nil)
	rec := httptest.NewRecorder()

	h.ListOffers(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp offerListResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 25 {
		t.Fatalf("count = %d, want 25", resp.Count)
	}
	if resp.Next == nil || *resp.Next != 3 {
		t.Fatalf("next = %v, want 3", resp.Next)
	}
	if resp.Previous == nil || *resp.Previous != 1 {
		t.Fatalf("previous = %v, want 1", resp.Previous)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results length = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].MinPrice != 50 {
		t.Fatalf("min_price = %v, want 50", resp.Results[0].MinPrice)
	}
	if resp.Results[0].MinDeliveryTime != 3 {
		t.Fatalf("min_delivery_time = %v, want 3", resp.Results[0].MinDeliveryTime)
	}
}

func TestListOffers_PageSizeAboveCap(t *testing.T) {
	svc := &stubService{
		offers:      []model.Offer{*testOffer()},
		offersTotal: 150,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/offers?page_size=500", nil)
	rec := httptest.NewRecorder()

	h.ListOffers(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	if got := svc.gotOfferFilter.PageSize; got != 100 {
		t.Fatalf("requested page_size = %d, want clamped to 100", got)
	}

	var resp offerListResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Выборка урезана до 100 строк из 150, поэтому вторая страница обязана
	// быть достижима через конверт.
	if resp.Next == nil || *resp.Next != 2 {
		t.Fatalf("next = %v, want 2", resp.Next)
	}
	if resp.Previous != nil {
		t.Fatalf("previous = %v, want nil", resp.Previous)
	}
}

func TestListOffers_InvalidFilter(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/offers?min_price=abc", nil)
	rec := httptest.NewRecorder()

	h.ListOffers(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if kind := decodeError(t, res).Kind; kind != kindValidation {
		t.Fatalf("error kind = %q, want %q", kind, kindValidation)
	}
}

func TestCreateOffer_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(offerCreateRequest{Title: "Logo design"})

	req := httptest.NewRequest(http.MethodPost, "/api/offers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestCreateOffer_InvalidTierSet(t *testing.T) {
	svc := &stubService{
		offerErr: service.ErrInvalidTierSet,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(offerCreateRequest{
		Title: "Logo design",
		Details: []tierRequest{
			{Title: "Basic", DeliveryTimeInDays: 3, Price: 50, OfferType: "basic"},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/offers", bytes.NewReader(body))
	authorize(t, h, req, 10, model.UserTypeBusiness)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if kind := decodeError(t, res).Kind; kind != kindValidation {
		t.Fatalf("error kind = %q, want %q", kind, kindValidation)
	}
}

func TestGetOffer_NotFound(t *testing.T) {
	svc := &stubService{
		offerErr: repository.ErrOfferNotFound,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/offers/999", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
	if kind := decodeError(t, res).Kind; kind != kindNotFound {
		t.Fatalf("error kind = %q, want %q", kind, kindNotFound)
	}
}

func TestGetOfferDetail_Success(t *testing.T) {
	svc := &stubService{
		tier: &model.OfferTier{
			ID: 2, OfferID: 1, Type: model.TierTypeStandard,
			Title: "Standard", Revisions: 3, DeliveryDays: 5, PriceCents: 10000,
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/offerdetails/2", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp tierResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 2 || resp.OfferType != "standard" || resp.Price != 100 {
		t.Fatalf("unexpected tier response: %+v", resp)
	}
	if resp.Features == nil {
		t.Fatalf("features must be an empty array, not null")
	}
}
