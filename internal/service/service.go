// Package service реализует бизнес-логику сервиса маркетплейса.
package service

import (
	"context"
	"errors"
	"math"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername возвращается для недопустимого имени пользователя.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidEmail возвращается для некорректного адреса почты.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword возвращается для пароля короче минимальной длины.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordMismatch возвращается при несовпадении пароля и подтверждения.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidRole возвращается для роли вне множества customer/business.
	ErrInvalidRole = errors.New("role must be either customer or business")
	// ErrPermissionDenied возвращается при нарушении владения или роли.
	ErrPermissionDenied = errors.New("operation not permitted for this user")
	// ErrEmptyTitle возвращается для предложения без названия.
	ErrEmptyTitle = errors.New("offer title must not be empty")
	// ErrInvalidTierSet возвращается, если состав тарифов отличается от
	// ровно одного basic, одного standard и одного premium.
	ErrInvalidTierSet = errors.New("offer must contain exactly one basic, one standard and one premium tier")
	// ErrInvalidTierValues возвращается для тарифа с неположительной ценой или сроком.
	ErrInvalidTierValues = errors.New("tier price and delivery time must be positive")
	// ErrInvalidRating возвращается для оценки вне допустимого диапазона.
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
	// ErrNotBusinessUser возвращается, если адресат отзыва не является бизнес-пользователем.
	ErrNotBusinessUser = errors.New("target user is not a business user")
	// ErrInvalidTransition возвращается для недопустимого перехода статуса заказа.
	ErrInvalidTransition = errors.New("order status transition is not allowed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, username, email string, passwordHash []byte, userType model.UserType) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, upd repository.ProfileUpdate) (*model.Profile, error)
	ListProfilesByType(ctx context.Context, userType model.UserType) ([]model.Profile, error)

	CreateOffer(ctx context.Context, creatorID int64, title, description string, tiers []model.OfferTier) (*model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	GetTier(ctx context.Context, id int64) (*model.OfferTier, error)
	ListOffers(ctx context.Context, filter repository.OfferFilter) ([]model.Offer, int64, error)
	UpdateOffer(ctx context.Context, offerID int64, upd repository.OfferUpdate) (*model.Offer, error)
	DeleteOffer(ctx context.Context, offerID int64) error

	CreateOrder(ctx context.Context, customerID, tierID int64) (*model.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	ListOrdersByParticipant(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) (*model.Order, error)
	CountOrdersByBusiness(ctx context.Context, businessID int64, status *model.OrderStatus) (int64, error)

	CreateReview(ctx context.Context, businessID, reviewerID int64, rating int, description string) (*model.Review, error)
	GetReview(ctx context.Context, id int64) (*model.Review, error)
	ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error)
	UpdateReview(ctx context.Context, id int64, rating *int, description *string) (*model.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	GetStatistics(ctx context.Context) (*model.Statistics, error)
}

// Service содержит бизнес-логику сервиса маркетплейса.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser проверяет регистрационные данные и создаёт пользователя с профилем.
func (s *Service) RegisterUser(ctx context.Context, username, email, password, repeatedPassword string, userType model.UserType) (*model.User, error) {
	if !validation.IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(password) {
		return nil, ErrWeakPassword
	}
	if password != repeatedPassword {
		return nil, ErrPasswordMismatch
	}
	if !userType.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.CreateUser(ctx, username, email, hash, userType)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:       id,
		Username: username,
		Email:    email,
		Type:     userType,
	}, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// GetProfile возвращает профиль пользователя.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// UpdateProfile применяет частичное обновление профиля. Менять профиль
// может только его владелец.
func (s *Service) UpdateProfile(ctx context.Context, actorID, userID int64, upd repository.ProfileUpdate) (*model.Profile, error) {
	if actorID != userID {
		return nil, ErrPermissionDenied
	}
	if upd.Email != nil && !validation.IsValidEmail(*upd.Email) {
		return nil, ErrInvalidEmail
	}
	return s.repo.UpdateProfile(ctx, userID, upd)
}

// ListProfiles возвращает профили пользователей указанной роли.
func (s *Service) ListProfiles(ctx context.Context, userType model.UserType) ([]model.Profile, error) {
	if !userType.IsValid() {
		return nil, ErrInvalidRole
	}
	return s.repo.ListProfilesByType(ctx, userType)
}

// GetStatistics возвращает публичные агрегаты сервиса. Средняя оценка
// округляется до одного знака после запятой.
func (s *Service) GetStatistics(ctx context.Context) (*model.Statistics, error) {
	stats, err := s.repo.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	stats.AverageRating = math.Round(stats.AverageRating*10) / 10
	return stats, nil
}
