package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// CreateOffer сохраняет предложение и его тарифы в одной транзакции.
// Состав тарифов к этому моменту уже проверен бизнес-логикой.
func (r *PostgresRepository) CreateOffer(ctx context.Context, creatorID int64, title, description string, tiers []model.OfferTier) (*model.Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	offer := &model.Offer{
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO offers (creator_id, title, description) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		creatorID, title, description,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}

	for _, tier := range tiers {
		t := tier
		t.OfferID = offer.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO offer_tiers (offer_id, tier_type, title, revisions, delivery_days, price, features)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			offer.ID, string(t.Type), t.Title, t.Revisions, t.DeliveryDays, t.PriceCents, t.Features,
		).Scan(&t.ID)
		if err != nil {
			return nil, fmt.Errorf("insert offer tier: %w", err)
		}
		offer.Tiers = append(offer.Tiers, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return offer, nil
}

// GetOffer возвращает предложение вместе с тарифами.
func (r *PostgresRepository) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	var o model.Offer
	err := r.pool.QueryRow(ctx,
		`SELECT id, creator_id, title, description, created_at, updated_at FROM offers WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.CreatorID, &o.Title, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("select offer: %w", err)
	}

	tiers, err := r.tiersForOffers(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Tiers = tiers[o.ID]

	return &o, nil
}

// GetTier возвращает один тариф предложения по идентификатору.
func (r *PostgresRepository) GetTier(ctx context.Context, id int64) (*model.OfferTier, error) {
	var t model.OfferTier
	var tierType string
	err := r.pool.QueryRow(ctx,
		`SELECT id, offer_id, tier_type, title, revisions, delivery_days, price, features
		 FROM offer_tiers WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.OfferID, &tierType, &t.Title, &t.Revisions, &t.DeliveryDays, &t.PriceCents, &t.Features)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("select offer tier: %w", err)
	}
	t.Type = model.TierType(tierType)
	return &t, nil
}

// OfferFilter описывает параметры выборки списка предложений.
// MaxPriceCents и MaxDeliveryDays оставляют предложения, у которых есть
// хотя бы один тариф не дороже и не дольше указанных значений.
type OfferFilter struct {
	CreatorID       *int64
	MaxPriceCents   *int64
	MaxDeliveryDays *int
	Search          string
	Ordering        string
	Page            int
	PageSize        int
}

const minPriceExpr = `(SELECT MIN(t.price) FROM offer_tiers t WHERE t.offer_id = o.id)`

var offerOrderings = map[string]string{
	"updated_at":  "o.updated_at ASC",
	"-updated_at": "o.updated_at DESC",
	"min_price":   minPriceExpr + " ASC",
	"-min_price":  minPriceExpr + " DESC",
}

// ListOffers возвращает страницу предложений по фильтру и общее число совпадений.
func (r *PostgresRepository) ListOffers(ctx context.Context, filter OfferFilter) ([]model.Offer, int64, error) {
	where := []string{"TRUE"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		where = append(where, fmt.Sprintf("o.creator_id = $%d", len(args)))
	}
	if filter.MaxPriceCents != nil {
		args = append(args, *filter.MaxPriceCents)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM offer_tiers t WHERE t.offer_id = o.id AND t.price <= $%d)", len(args)))
	}
	if filter.MaxDeliveryDays != nil {
		args = append(args, *filter.MaxDeliveryDays)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM offer_tiers t WHERE t.offer_id = o.id AND t.delivery_days <= $%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(o.title ILIKE $%d OR o.description ILIKE $%d)", len(args), len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers o WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}

	orderBy, ok := offerOrderings[filter.Ordering]
	if !ok {
		orderBy = offerOrderings["-updated_at"]
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(
		`SELECT o.id, o.creator_id, o.title, o.description, o.created_at, o.updated_at
		 FROM offers o
		 WHERE %s
		 ORDER BY %s, o.id
		 LIMIT $%d OFFSET $%d`,
		cond, orderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	var ids []int64
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.CreatorID, &o.Title, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	if len(ids) > 0 {
		tiers, err := r.tiersForOffers(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range offers {
			offers[i].Tiers = tiers[offers[i].ID]
		}
	}

	return offers, total, nil
}

func (r *PostgresRepository) tiersForOffers(ctx context.Context, offerIDs []int64) (map[int64][]model.OfferTier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, offer_id, tier_type, title, revisions, delivery_days, price, features
		 FROM offer_tiers
		 WHERE offer_id = ANY($1)
		 ORDER BY offer_id,
		          CASE tier_type WHEN 'basic' THEN 1 WHEN 'standard' THEN 2 ELSE 3 END`,
		offerIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select offer tiers: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.OfferTier)
	for rows.Next() {
		var t model.OfferTier
		var tierType string
		if err := rows.Scan(&t.ID, &t.OfferID, &tierType, &t.Title, &t.Revisions, &t.DeliveryDays, &t.PriceCents, &t.Features); err != nil {
			return nil, fmt.Errorf("scan offer tier: %w", err)
		}
		t.Type = model.TierType(tierType)
		res[t.OfferID] = append(res[t.OfferID], t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// TierUpdate описывает частичное обновление одного тарифа, адресуемого типом.
type TierUpdate struct {
	Type         model.TierType
	Title        *string
	Revisions    *int
	DeliveryDays *int
	PriceCents   *int64
	Features     *[]string
}

// OfferUpdate описывает частичное обновление предложения: nil-поля не меняются.
type OfferUpdate struct {
	Title       *string
	Description *string
	Tiers       []TierUpdate
}

// UpdateOffer применяет частичное обновление предложения и его тарифов
// в одной транзакции и возвращает обновлённое предложение.
func (r *PostgresRepository) UpdateOffer(ctx context.Context, offerID int64, upd OfferUpdate) (*model.Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE offers SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			updated_at = now()
		 WHERE id = $1`,
		offerID, upd.Title, upd.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("update offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOfferNotFound
	}

	for _, t := range upd.Tiers {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE offer_tiers SET
				title = COALESCE($3, title),
				revisions = COALESCE($4, revisions),
				delivery_days = COALESCE($5, delivery_days),
				price = COALESCE($6, price),
				features = COALESCE($7, features)
			 WHERE offer_id = $1 AND tier_type = $2`,
			offerID, string(t.Type), t.Title, t.Revisions, t.DeliveryDays, t.PriceCents, t.Features,
		)
		if err != nil {
			return nil, fmt.Errorf("update offer tier: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return nil, ErrTierNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetOffer(ctx, offerID)
}

// DeleteOffer удаляет предложение; тарифы удаляются каскадно на уровне БД.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, offerID int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, offerID)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}
