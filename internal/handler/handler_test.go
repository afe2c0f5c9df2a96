package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/middleware"
	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
	"github.com/mmeshcher/marketplace-system/internal/token"
)

type stubService struct {
	registerUser *model.User
	registerErr  error

	authUser *model.User
	authErr  error

	user    *model.User
	userErr error

	profile    *model.Profile
	profileErr error

	profiles    []model.Profile
	profilesErr error

	offer    *model.Offer
	offerErr error

	tier    *model.OfferTier
	tierErr error

	offers         []model.Offer
	offersTotal    int64
	offersErr      error
	gotOfferFilter repository.OfferFilter

	deleteOfferErr error

	order    *model.Order
	orderErr error

	orders    []model.Order
	ordersErr error

	orderCount    int64
	orderCountErr error

	review    *model.Review
	reviewErr error

	reviews      []model.Review
	reviewsErr   error
	deleteRevErr error

	stats    *model.Statistics
	statsErr error
}

func (s *stubService) RegisterUser(ctx context.Context, username, email, password, repeatedPassword string, userType model.UserType) (*model.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubService) UpdateProfile(ctx context.Context, actorID, userID int64, upd repository.ProfileUpdate) (*model.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubService) ListProfiles(ctx context.Context, userType model.UserType) ([]model.Profile, error) {
	return s.profiles, s.profilesErr
}

func (s *stubService) CreateOffer(ctx context.Context, actorID int64, actorType model.UserType, title, description string, tiers []model.OfferTier) (*model.Offer, error) {
	return s.offer, s.offerErr
}

func (s *stubService) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	return s.offer, s.offerErr
}

func (s *stubService) GetTier(ctx context.Context, id int64) (*model.OfferTier, error) {
	return s.tier, s.tierErr
}

func (s *stubService) ListOffers(ctx context.Context, filter repository.OfferFilter) ([]model.Offer, int64, error) {
	s.gotOfferFilter = filter
	return s.offers, s.offersTotal, s.offersErr
}

func (s *stubService) UpdateOffer(ctx context.Context, actorID, offerID int64, upd repository.OfferUpdate) (*model.Offer, error) {
	return s.offer, s.offerErr
}

func (s *stubService) DeleteOffer(ctx context.Context, actorID, offerID int64) error {
	return s.deleteOfferErr
}

func (s *stubService) CreateOrder(ctx context.Context, actorID int64, actorType model.UserType, tierID int64) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) ListOrders(ctx context.Context, actorID int64) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, actorID, orderID int64, newStatus model.OrderStatus) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) CountOrders(ctx context.Context, businessUserID int64, completedOnly bool) (int64, error) {
	return s.orderCount, s.orderCountErr
}

func (s *stubService) CreateReview(ctx context.Context, actorID int64, actorType model.UserType, businessID int64, rating int, description string) (*model.Review, error) {
	return s.review, s.reviewErr
}

func (s *stubService) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	return s.reviews, s.reviewsErr
}

func (s *stubService) UpdateReview(ctx context.Context, actorID, reviewID int64, rating *int, description *string) (*model.Review, error) {
	return s.review, s.reviewErr
}

func (s *stubService) DeleteReview(ctx context.Context, actorID, reviewID int64) error {
	return s.deleteRevErr
}

func (s *stubService) GetStatistics(ctx context.Context) (*model.Statistics, error) {
	return s.stats, s.statsErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	tokens := token.NewManager("test-secret", time.Minute, time.Hour)
	auth := middleware.NewAuthMiddleware(tokens)

	return NewHandler(svc, logger, tokens, auth)
}

func authorize(t *testing.T, h *Handler, req *http.Request, userID int64, userType model.UserType) {
	t.Helper()

	access, err := h.tokens.NewAccess(userID, userType)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+access)
}

func decodeError(t *testing.T, res *http.Response) errorBody {
	t.Helper()

	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUser: &model.User{
			ID:       42,
			Username: "newuser",
			Email:    "newuser@example.com",
			Type:     model.UserTypeCustomer,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerRequest{
		Username:         "newuser",
		Email:            "newuser@example.com",
		Password:         "password1",
		RepeatedPassword: "password1",
		Type:             "customer",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp authResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != 42 || resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("unexpected auth response: %+v", resp)
	}
}

func TestRegister_DuplicateConflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerRequest{
		Username:         "taken",
		Email:            "taken@example.com",
		Password:         "password1",
		RepeatedPassword: "password1",
		Type:             "customer",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
	if kind := decodeError(t, res).Kind; kind != kindConflict {
		t.Fatalf("error kind = %q, want %q", kind, kindConflict)
	}
}

func TestLogin_UnauthorizedOnBadCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{
		Username: "user",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
	if kind := decodeError(t, res).Kind; kind != kindAuth {
		t.Fatalf("error kind = %q, want %q", kind, kindAuth)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	access, err := h.tokens.NewAccess(1, model.UserTypeCustomer)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	body, _ := json.Marshal(refreshRequest{RefreshToken: access})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	svc := &stubService{
		user: &model.User{ID: 1, Username: "user", Type: model.UserTypeBusiness},
	}
	h := newTestHandler(t, svc)

	pair, err := h.tokens.NewPair(1, model.UserTypeBusiness)
	if err != nil {
		t.Fatalf("issue token pair: %v", err)
	}

	body, _ := json.Marshal(refreshRequest{RefreshToken: pair.Refresh})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp refreshResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := h.tokens.ParseAccess(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse issued access token: %v", err)
	}
	if claims.UserID != 1 || claims.UserType != "business" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestPatchProfile_ForbiddenForOtherUser(t *testing.T) {
	svc := &stubService{
		profileErr: service.ErrPermissionDenied,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(profilePatchRequest{})

	req := httptest.NewRequest(http.MethodPatch, "/api/profile/2", bytes.NewReader(body))
	authorize(t, h, req, 1, model.UserTypeCustomer)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestGetBaseInfo_JSONResponse(t *testing.T) {
	svc := &stubService{
		stats: &model.Statistics{
			ReviewCount:          12,
			AverageRating:        8.3,
			BusinessProfileCount: 4,
			OfferCount:           9,
		},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/base-info", nil)
	rec := httptest.NewRecorder()

	h.GetBaseInfo(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var stats map[string]any
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"review_count", "average_rating", "business_profile_count", "offer_count"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("response is missing key %q", key)
		}
	}
}

func TestGetBaseInfo_TrailingSlash(t *testing.T) {
	svc := &stubService{
		stats: &model.Statistics{ReviewCount: 1, AverageRating: 10},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	for _, path := range []string{"/api/base-info", "/api/base-info/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		res := rec.Result()
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}
