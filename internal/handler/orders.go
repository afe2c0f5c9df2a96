package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

type orderCreateRequest struct {
	OfferDetailID int64 `json:"offer_detail_id"`
}

type orderResponse struct {
	ID                 int64    `json:"id"`
	CustomerUser       int64    `json:"customer_user"`
	BusinessUser       int64    `json:"business_user"`
	Title              string   `json:"title"`
	Revisions          int      `json:"revisions"`
	DeliveryTimeInDays int      `json:"delivery_time_in_days"`
	Price              float64  `json:"price"`
	Features           []string `json:"features"`
	OfferType          string   `json:"offer_type"`
	Status             string   `json:"status"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	features := o.Features
	if features == nil {
		features = []string{}
	}
	return orderResponse{
		ID:                 o.ID,
		CustomerUser:       o.CustomerID,
		BusinessUser:       o.BusinessID,
		Title:              o.TierTitle,
		Revisions:          o.Revisions,
		DeliveryTimeInDays: o.DeliveryDays,
		Price:              centsToFloat(o.PriceCents),
		Features:           features,
		OfferType:          string(o.TierType),
		Status:             string(o.Status),
		CreatedAt:          o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          o.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateOrder создаёт заказ текущего клиента на выбранный тариф.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actorID, actorType, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	var req orderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	if req.OfferDetailID < 1 {
		writeError(w, http.StatusBadRequest, kindValidation, "offer_detail_id is required")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actorID, actorType, req.OfferDetailID)
	if err != nil {
		h.handleError(w, err, "create order", zap.Int64("userID", actorID), zap.Int64("tierID", req.OfferDetailID))
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// ListOrders возвращает заказы, в которых участвует текущий пользователь.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), actorID)
	if err != nil {
		h.handleError(w, err, "list orders", zap.Int64("userID", actorID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// PatchOrderStatus переводит заказ в новый статус.
func (h *Handler) PatchOrderStatus(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	orderID, ok := parseIDParam(r, "orderID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid order id")
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	newStatus := model.OrderStatus(req.Status)
	if !newStatus.IsValid() {
		writeError(w, http.StatusBadRequest, kindValidation, "unknown order status")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), actorID, orderID, newStatus)
	if err != nil {
		h.handleError(w, err, "patch order status", zap.Int64("orderID", orderID), zap.String("status", req.Status))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type orderCountResponse struct {
	OrderCount int64 `json:"order_count"`
}

type completedOrderCountResponse struct {
	CompletedOrderCount int64 `json:"completed_order_count"`
}

// GetOrderCount возвращает общее число заказов бизнес-пользователя.
func (h *Handler) GetOrderCount(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid user id")
		return
	}

	count, err := h.service.CountOrders(r.Context(), businessID, false)
	if err != nil {
		h.handleError(w, err, "get order count", zap.Int64("businessID", businessID))
		return
	}

	writeJSON(w, http.StatusOK, orderCountResponse{OrderCount: count})
}

// GetCompletedOrderCount возвращает число завершённых заказов бизнес-пользователя.
func (h *Handler) GetCompletedOrderCount(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid user id")
		return
	}

	count, err := h.service.CountOrders(r.Context(), businessID, true)
	if err != nil {
		h.handleError(w, err, "get completed order count", zap.Int64("businessID", businessID))
		return
	}

	writeJSON(w, http.StatusOK, completedOrderCountResponse{CompletedOrderCount: count})
}
