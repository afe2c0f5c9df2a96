package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

const orderColumns = `o.id, o.customer_id, o.business_id, o.tier_id,
	 t.title, t.tier_type, t.revisions, t.delivery_days, t.price, t.features,
	 o.status, o.created_at, o.updated_at`

// CreateOrder создаёт заказ на указанный тариф. Поиск тарифа и вставка заказа
// выполняются в одной транзакции, чтобы заказ не ссылался на удалённый тариф.
func (r *PostgresRepository) CreateOrder(ctx context.Context, customerID, tierID int64) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var businessID int64
	err = tx.QueryRow(ctx,
		`SELECT o.creator_id
		 FROM offer_tiers t
		 JOIN offers o ON o.id = t.offer_id
		 WHERE t.id = $1`,
		tierID,
	).Scan(&businessID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("select tier owner: %w", err)
	}

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (tier_id, customer_id, business_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		tierID, customerID, businessID, string(model.OrderStatusPending),
	).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	order, err := getOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

func getOrderTx(ctx context.Context, tx pgx.Tx, orderID int64) (*model.Order, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o
		 JOIN offer_tiers t ON t.id = o.tier_id
		 WHERE o.id = $1`,
		orderID,
	)
	return scanOrder(row)
}

// GetOrder возвращает заказ вместе с данными выбранного тарифа.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o
		 JOIN offer_tiers t ON t.id = o.tier_id
		 WHERE o.id = $1`,
		orderID,
	)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var tierType, status string
	err := row.Scan(&o.ID, &o.CustomerID, &o.BusinessID, &o.TierID,
		&o.TierTitle, &tierType, &o.Revisions, &o.DeliveryDays, &o.PriceCents, &o.Features,
		&status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.TierType = model.TierType(tierType)
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// ListOrdersByParticipant возвращает заказы, где пользователь выступает
// клиентом или исполнителем.
func (r *PostgresRepository) ListOrdersByParticipant(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders o
		 JOIN offer_tiers t ON t.id = o.tier_id
		 WHERE o.customer_id = $1 OR o.business_id = $1
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus переводит заказ из статуса from в статус to.
// Условие по исходному статусу защищает от параллельных переходов:
// если заказ уже переведён другим запросом, возвращается ErrOrderNotFound
// либо признак несостоявшегося перехода.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) (*model.Order, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		orderID, string(from), string(to),
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, orderID)
}

// CountOrdersByBusiness возвращает число заказов бизнес-пользователя,
// при необходимости с фильтром по статусу.
func (r *PostgresRepository) CountOrdersByBusiness(ctx context.Context, businessID int64, status *model.OrderStatus) (int64, error) {
	var count int64
	var err error
	if status == nil {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE business_id = $1`,
			businessID,
		).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE business_id = $1 AND status = $2`,
			businessID, string(*status),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}
