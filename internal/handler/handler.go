// Package handler содержит HTTP-обработчики API сервиса маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/middleware"
	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/token"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, email, password, repeatedPassword string, userType model.UserType) (*model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)

	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	UpdateProfile(ctx context.Context, actorID, userID int64, upd repository.ProfileUpdate) (*model.Profile, error)
	ListProfiles(ctx context.Context, userType model.UserType) ([]model.Profile, error)

	CreateOffer(ctx context.Context, actorID int64, actorType model.UserType, title, description string, tiers []model.OfferTier) (*model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	GetTier(ctx context.Context, id int64) (*model.OfferTier, error)
	ListOffers(ctx context.Context, filter repository.OfferFilter) ([]model.Offer, int64, error)
	UpdateOffer(ctx context.Context, actorID, offerID int64, upd repository.OfferUpdate) (*model.Offer, error)
	DeleteOffer(ctx context.Context, actorID, offerID int64) error

	CreateOrder(ctx context.Context, actorID int64, actorType model.UserType, tierID int64) (*model.Order, error)
	ListOrders(ctx context.Context, actorID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, actorID, orderID int64, newStatus model.OrderStatus) (*model.Order, error)
	CountOrders(ctx context.Context, businessUserID int64, completedOnly bool) (int64, error)

	CreateReview(ctx context.Context, actorID int64, actorType model.UserType, businessID int64, rating int, description string) (*model.Review, error)
	ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error)
	UpdateReview(ctx context.Context, actorID, reviewID int64, rating *int, description *string) (*model.Review, error)
	DeleteReview(ctx context.Context, actorID, reviewID int64) error

	GetStatistics(ctx context.Context) (*model.Statistics, error)
}

// Handler реализует HTTP-обработчики API сервиса маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	tokens         *token.Manager
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, tokens *token.Manager, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		tokens:         tokens,
		authMiddleware: auth,
	}
}

func centsToFloat(cents int64) float64 {
	return float64(cents) / 100
}

func floatToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func actorFromContext(r *http.Request) (int64, model.UserType, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return 0, "", false
	}
	userType, ok := middleware.GetUserTypeFromContext(r.Context())
	if !ok {
		return 0, "", false
	}
	return id, userType, true
}

type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	RepeatedPassword string `json:"repeated_password"`
	Type             string `json:"type"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	UserID       int64  `json:"user_id"`
	Type         string `json:"type"`
}

func (h *Handler) writeAuthResponse(w http.ResponseWriter, user *model.User, status int) {
	pair, err := h.tokens.NewPair(user.ID, user.Type)
	if err != nil {
		h.handleError(w, err, "issue token pair", zap.Int64("userID", user.ID))
		return
	}

	writeJSON(w, status, authResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Username:     user.Username,
		Email:        user.Email,
		UserID:       user.ID,
		Type:         string(user.Type),
	})
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Username, req.Email, req.Password, req.RepeatedPassword, model.UserType(req.Type))
	if err != nil {
		h.handleError(w, err, "register user")
		return
	}

	h.writeAuthResponse(w, user, http.StatusCreated)
}

// Login выполняет аутентификацию пользователя и выдаёт пару токенов.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "username and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(w, err, "login user")
		return
	}

	h.writeAuthResponse(w, user, http.StatusOK)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	claims, err := h.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		h.handleError(w, err, "refresh token")
		return
	}

	// Роль в refresh-токен не записывается: берём её из учётной записи,
	// чтобы новый access-токен отражал актуальное состояние пользователя.
	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.handleError(w, err, "refresh token", zap.Int64("userID", claims.UserID))
		return
	}

	access, err := h.tokens.NewAccess(user.ID, user.Type)
	if err != nil {
		h.handleError(w, err, "refresh token", zap.Int64("userID", user.ID))
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

type profileResponse struct {
	User         int64  `json:"user"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Type         string `json:"type"`
	Location     string `json:"location"`
	Tel          string `json:"tel"`
	Description  string `json:"description"`
	WorkingHours string `json:"working_hours"`
	CreatedAt    string `json:"created_at"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		User:         p.UserID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Type:         string(p.Type),
		Location:     p.Location,
		Tel:          p.Tel,
		Description:  p.Description,
		WorkingHours: p.WorkingHours,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

// GetProfile возвращает профиль пользователя по идентификатору.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid user id")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "get profile", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

type profilePatchRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	Location     *string `json:"location"`
	Tel          *string `json:"tel"`
	Description  *string `json:"description"`
	WorkingHours *string `json:"working_hours"`
}

// PatchProfile применяет частичное обновление профиля текущего пользователя.
func (h *Handler) PatchProfile(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := actorFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, kindAuth, "missing or invalid access token")
		return
	}

	userID, ok := parseIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid user id")
		return
	}

	var req profilePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "malformed request body")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), actorID, userID, repository.ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Location:     req.Location,
		Tel:          req.Tel,
		Description:  req.Description,
		WorkingHours: req.WorkingHours,
	})
	if err != nil {
		h.handleError(w, err, "patch profile", zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// ListBusinessProfiles возвращает профили всех бизнес-пользователей.
func (h *Handler) ListBusinessProfiles(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.UserTypeBusiness)
}

// ListCustomerProfiles возвращает профили всех клиентов.
func (h *Handler) ListCustomerProfiles(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.UserTypeCustomer)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request, userType model.UserType) {
	profiles, err := h.service.ListProfiles(r.Context(), userType)
	if err != nil {
		h.handleError(w, err, "list profiles", zap.String("type", string(userType)))
		return
	}

	resp := make([]profileResponse, 0, len(profiles))
	for i := range profiles {
		resp = append(resp, toProfileResponse(&profiles[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type baseInfoResponse struct {
	ReviewCount          int64   `json:"review_count"`
	AverageRating        float64 `json:"average_rating"`
	BusinessProfileCount int64   `json:"business_profile_count"`
	OfferCount           int64   `json:"offer_count"`
}

// GetBaseInfo возвращает публичную статистику сервиса.
func (h *Handler) GetBaseInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context())
	if err != nil {
		h.handleError(w, err, "get base info")
		return
	}

	writeJSON(w, http.StatusOK, baseInfoResponse{
		ReviewCount:          stats.ReviewCount,
		AverageRating:        stats.AverageRating,
		BusinessProfileCount: stats.BusinessProfileCount,
		OfferCount:           stats.OfferCount,
	})
}
