package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// GetStatistics вычисляет публичные агрегаты по текущему состоянию хранилища.
func (r *PostgresRepository) GetStatistics(ctx context.Context) (*model.Statistics, error) {
	var stats model.Statistics

	err := r.withRetry(ctx, func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews`,
		).Scan(&stats.ReviewCount, &stats.AverageRating)
		if err != nil {
			return fmt.Errorf("aggregate reviews: %w", err)
		}

		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM users WHERE type = $1`,
			string(model.UserTypeBusiness),
		).Scan(&stats.BusinessProfileCount)
		if err != nil {
			return fmt.Errorf("count business users: %w", err)
		}

		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers`).Scan(&stats.OfferCount)
		if err != nil {
			return fmt.Errorf("count offers: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
