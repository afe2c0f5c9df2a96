package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

type tierRequest struct {
	Title              string   `json:"title"`
	Revisions          int      `json:"revisions"`
	DeliveryTimeInDays int      `json:"delivery_time_in_days"`
	Price              float64  `json:"price"`
	Features           []string `json:"features"`
	OfferType          string   `json:"offer_type"`
}

type offerCreateRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Details     []tierRequest `json:"details"`
}

type tierResponse struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Revisions          int      `json:"revisions"`
	DeliveryTimeInDays int      `json:"delivery_time_in_days"`
	Price              float64  `json:"price"`
	Features           []string `json:"features"`
	OfferType          string   `json:"offer_type"`
}

type offerResponse struct {
	ID              int64          `json:"id"`
	User            int64          `json:"user"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Details         []tierResponse `json:"details"`
	MinPrice        float64        `json:"min_price"`
	MinDeliveryTime int            `json:"min_delivery_time"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func toTierResponse(t *model.OfferTier) tierResponse {
	features := t.Features
	if features == nil {
		features = []string{}
	}
	return tierResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Revisions:          t.Revisions,
		DeliveryTimeInDays: t.DeliveryDays,
		Price:              centsToFloat(t.PriceCents),
		Features:           features,
		OfferType:          string(t.Type),
	}
}

func toOfferResponse(o *model.Offer) offerResponse {
	details := make([]tierResponse, 0, len(o.Tiers))
	for i := range o.Tiers {
		details = append(details, toTierResponse(&o.Tiers[i]))
	}

	return offerResponse{
		ID:              o.ID,
		User:            o.CreatorID,
		Title:           o.Title,
		Description:     o.Description,
		Details:         details,
		MinPrice:        centsToFloat(o.MinPriceCents()),
		MinDeliveryTime: o.MinDeliveryDays(),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateOffer создаёт предложение текущего бизнес-пользователя.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	actorID, actorType, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	var req offerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	tiers := make([]model.OfferTier, 0, len(req.Details))
	for _, d := range req.Details {
		tiers = append(tiers, model.OfferTier{
			Type:         model.TierType(d.OfferType),
			Title:        d.Title,
			Revisions:    d.Revisions,
			DeliveryDays: d.DeliveryTimeInDays,
			PriceCents:   floatToCents(d.Price),
			Features:     d.Features,
		})
	}

	offer, err := h.service.CreateOffer(r.Context(), actorID, actorType, req.Title, req.Description, tiers)
	if err != nil {
		h.handleError(w, err, "create offer", zap.Int64("userID", actorID))
		return
	}

	writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

type offerListResponse struct {
	Count    int64           `json:"count"`
	Next     *int            `json:"next"`
	Previous *int            `json:"previous"`
	Results  []offerResponse `json:"results"`
}

func parseOfferFilter(r *http.Request) (repository.OfferFilter, bool) {
	q := r.URL.Query()
	filter := repository.OfferFilter{
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Page:     1,
		PageSize: 0,
	}

	if v := q.Get("creator_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, false
		}
		filter.CreatorID = &id
	}
	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return filter, false
		}
		cents := floatToCents(price)
		filter.MaxPriceCents = &cents
	}
	if v := q.Get("max_delivery_time"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return filter, false
		}
		filter.MaxDeliveryDays = &days
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, false
		}
		filter.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return filter, false
		}
		filter.PageSize = size
	}

	return filter, true
}

// ListOffers возвращает страницу предложений с учётом фильтров и сортировки.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseOfferFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid filter parameters")
		return
	}
	// Конверт пагинации строится по тем же границам страницы, что и выборка.
	filter = service.ClampOfferFilter(filter)

	offers, total, err := h.service.ListOffers(r.Context(), filter)
	if err != nil {
		h.handleError(w, err, "list offers")
		return
	}

	results := make([]offerResponse, 0, len(offers))
	for i := range offers {
		results = append(results, toOfferResponse(&offers[i]))
	}

	page, pageSize := filter.Page, filter.PageSize

	resp := offerListResponse{
		Count:   total,
		Results: results,
	}
	if int64(page*pageSize) < total {
		next := page + 1
		resp.Next = &next
	}
	if page > 1 {
		prev := page - 1
		resp.Previous = &prev
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOffer возвращает предложение с тарифами по идентификатору.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := parseIDParam(r, "offerID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid offer id")
		return
	}

	offer, err := h.service.GetOffer(r.Context(), offerID)
	if err != nil {
		h.handleError(w, err, "get offer", zap.Int64("offerID", offerID))
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

type tierPatchRequest struct {
	OfferType          string    `json:"offer_type"`
	Title              *string   `json:"title"`
	Revisions          *int      `json:"revisions"`
	DeliveryTimeInDays *int      `json:"delivery_time_in_days"`
	Price              *float64  `json:"price"`
	Features           *[]string `json:"features"`
}

type offerPatchRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Details     []tierPatchRequest `json:"details"`
}

// PatchOffer применяет частичное обновление предложения и его тарифов.
func (h *Handler) PatchOffer(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	offerID, ok := parseIDParam(r, "offerID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid offer id")
		return
	}

	var req offerPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	upd := repository.OfferUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	for _, d := range req.Details {
		tierUpd := repository.TierUpdate{
			Type:         model.TierType(d.OfferType),
			Title:        d.Title,
			Revisions:    d.Revisions,
			DeliveryDays: d.DeliveryTimeInDays,
			Features:     d.Features,
		}
		if d.Price != nil {
			cents := floatToCents(*d.Price)
			tierUpd.PriceCents = &cents
		}
		upd.Tiers = append(upd.Tiers, tierUpd)
	}

	offer, err := h.service.UpdateOffer(r.Context(), actorID, offerID, upd)
	if err != nil {
		h.handleError(w, err, "patch offer", zap.Int64("offerID", offerID))
		return
	}

	writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

// DeleteOffer удаляет предложение текущего бизнес-пользователя.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	offerID, ok := parseIDParam(r, "offerID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid offer id")
		return
	}

	if err := h.service.DeleteOffer(r.Context(), actorID, offerID); err != nil {
		h.handleError(w, err, "delete offer", zap.Int64("offerID", offerID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOfferDetail возвращает один тариф предложения.
func (h *Handler) GetOfferDetail(w http.ResponseWriter, r *http.Request) {
	tierID, ok := parseIDParam(r, "tierID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid offer detail id")
		return
	}

	tier, err := h.service.GetTier(r.Context(), tierID)
	if err != nil {
		h.handleError(w, err, "get offer detail", zap.Int64("tierID", tierID))
		return
	}

	writeJSON(w, http.StatusOK, toTierResponse(tier))
}
