package service

import (
	"context"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

const (
	minRating = 1
	maxRating = 10
)

// CreateReview создаёт отзыв клиента о бизнес-пользователе.
// На каждую пару (автор, бизнес) допускается не более одного отзыва.
func (s *Service) CreateReview(ctx context.Context, actorID int64, actorType model.UserType, businessID int64, rating int, description string) (*model.Review, error) {
	if actorType != model.UserTypeCustomer {
		return nil, ErrPermissionDenied
	}
	if rating < minRating || rating > maxRating {
		return nil, ErrInvalidRating
	}

	business, err := s.repo.GetUserByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.Type != model.UserTypeBusiness {
		return nil, ErrNotBusinessUser
	}

	return s.repo.CreateReview(ctx, businessID, actorID, rating, description)
}

// ListReviews возвращает отзывы по фильтру.
func (s *Service) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	return s.repo.ListReviews(ctx, filter)
}

// UpdateReview обновляет оценку и текст отзыва. Менять отзыв может
// только его автор.
func (s *Service) UpdateReview(ctx context.Context, actorID, reviewID int64, rating *int, description *string) (*model.Review, error) {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != actorID {
		return nil, ErrPermissionDenied
	}
	if rating != nil && (*rating < minRating || *rating > maxRating) {
		return nil, ErrInvalidRating
	}

	return s.repo.UpdateReview(ctx, reviewID, rating, description)
}

// DeleteReview удаляет отзыв. Удалять отзыв может только его автор.
func (s *Service) DeleteReview(ctx context.Context, actorID, reviewID int64) error {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.ReviewerID != actorID {
		return ErrPermissionDenied
	}

	return s.repo.DeleteReview(ctx, reviewID)
}
