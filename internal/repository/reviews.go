package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// CreateReview сохраняет отзыв. Единственность пары (бизнес, автор)
// гарантируется уникальным ограничением БД, поэтому два параллельных
// запроса разрешаются в один успех и один ErrReviewExists.
func (r *PostgresRepository) CreateReview(ctx context.Context, businessID, reviewerID int64, rating int, description string) (*model.Review, error) {
	var rev model.Review
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (business_id, reviewer_id, rating, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, business_id, reviewer_id, rating, description, created_at, updated_at`,
		businessID, reviewerID, rating, description,
	).Scan(&rev.ID, &rev.BusinessID, &rev.ReviewerID, &rev.Rating, &rev.Description, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "reviews_business_id_reviewer_id_key") {
			return nil, ErrReviewExists
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return &rev, nil
}

// GetReview возвращает отзыв по идентификатору.
func (r *PostgresRepository) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, business_id, reviewer_id, rating, description, created_at, updated_at
		 FROM reviews WHERE id = $1`,
		id,
	)
	return scanReview(row)
}

func scanReview(row pgx.Row) (*model.Review, error) {
	var rev model.Review
	err := row.Scan(&rev.ID, &rev.BusinessID, &rev.ReviewerID, &rev.Rating, &rev.Description, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rev, nil
}

// ReviewFilter описывает параметры выборки списка отзывов.
type ReviewFilter struct {
	BusinessID *int64
	ReviewerID *int64
	Ordering   string
}

var reviewOrderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"rating":      "rating ASC",
	"-rating":     "rating DESC",
}

// ListReviews возвращает отзывы по фильтру.
func (r *PostgresRepository) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	orderBy, ok := reviewOrderings[filter.Ordering]
	if !ok {
		orderBy = reviewOrderings["-created_at"]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, business_id, reviewer_id, rating, description, created_at, updated_at
		 FROM reviews
		 WHERE ($1::bigint IS NULL OR business_id = $1)
		   AND ($2::bigint IS NULL OR reviewer_id = $2)
		 ORDER BY `+orderBy+`, id`,
		filter.BusinessID, filter.ReviewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var res []model.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateReview обновляет оценку и текст отзыва: nil-поля не меняются.
func (r *PostgresRepository) UpdateReview(ctx context.Context, id int64, rating *int, description *string) (*model.Review, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE reviews SET
			rating = COALESCE($2, rating),
			description = COALESCE($3, description),
			updated_at = now()
		 WHERE id = $1
		 RETURNING id, business_id, reviewer_id, rating, description, created_at, updated_at`,
		id, rating, description,
	)
	return scanReview(row)
}

// DeleteReview удаляет отзыв.
func (r *PostgresRepository) DeleteReview(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}
