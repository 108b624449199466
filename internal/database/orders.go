package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_seq, order_number, mobile, order_type, quantity, distance_km,
	notes, unit_price, amount, delivery_fee, status, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderSeq,
		&i.OrderNumber,
		&i.Mobile,
		&i.OrderType,
		&i.Quantity,
		&i.DistanceKm,
		&i.Notes,
		&i.UnitPrice,
		&i.Amount,
		&i.DeliveryFee,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getNextOrderNumber = `-- name: GetNextOrderNumber :one
SELECT (COALESCE(MAX(order_seq), 0) + 1)::int4 FROM orders
`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber)
	var next int32
	err := row.Scan(&next)
	return next, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
	id, order_seq, order_number, mobile, order_type, quantity, distance_km,
	notes, unit_price, amount, delivery_fee, status, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ID          uuid.UUID      `json:"id"`
	OrderSeq    int32          `json:"order_seq"`
	OrderNumber string         `json:"order_number"`
	Mobile      string         `json:"mobile"`
	OrderType   string         `json:"order_type"`
	Quantity    int32          `json:"quantity"`
	DistanceKm  float64        `json:"distance_km"`
	Notes       pgtype.Text    `json:"notes"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Amount      pgtype.Numeric `json:"amount"`
	DeliveryFee pgtype.Numeric `json:"delivery_fee"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ID,
		arg.OrderSeq,
		arg.OrderNumber,
		arg.Mobile,
		arg.OrderType,
		arg.Quantity,
		arg.DistanceKm,
		arg.Notes,
		arg.UnitPrice,
		arg.Amount,
		arg.DeliveryFee,
		arg.Status,
		arg.CreatedAt,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR mobile = $2)
ORDER BY created_at DESC, order_seq DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	Status pgtype.Text `json:"status"`
	Mobile pgtype.Text `json:"mobile"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Mobile, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = $4
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

// UpdateOrderStatusParams moves an order from FromStatus to Status. No row
// is returned when the stored status is not FromStatus.
type UpdateOrderStatusParams struct {
	ID         uuid.UUID `json:"id"`
	Status     string    `json:"status"`
	FromStatus string    `json:"from_status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus, arg.UpdatedAt)
	return scanOrder(row)
}

const createOrderStatusEvent = `-- name: CreateOrderStatusEvent :one
INSERT INTO order_status_events (order_id, from_status, to_status, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, from_status, to_status, changed_by, changed_at
`

type CreateOrderStatusEventParams struct {
	OrderID    uuid.UUID   `json:"order_id"`
	FromStatus pgtype.Text `json:"from_status"`
	ToStatus   string      `json:"to_status"`
	ChangedBy  pgtype.Text `json:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at"`
}

func (q *Queries) CreateOrderStatusEvent(ctx context.Context, arg CreateOrderStatusEventParams) (OrderStatusEvent, error) {
	row := q.db.QueryRow(ctx, createOrderStatusEvent,
		arg.OrderID,
		arg.FromStatus,
		arg.ToStatus,
		arg.ChangedBy,
		arg.ChangedAt,
	)
	var i OrderStatusEvent
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.FromStatus,
		&i.ToStatus,
		&i.ChangedBy,
		&i.ChangedAt,
	)
	return i, err
}

const listOrderStatusEvents = `-- name: ListOrderStatusEvents :many
SELECT id, order_id, from_status, to_status, changed_by, changed_at
FROM order_status_events
WHERE order_id = $1
ORDER BY changed_at, id
`

func (q *Queries) ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]OrderStatusEvent, error) {
	rows, err := q.db.Query(ctx, listOrderStatusEvents, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderStatusEvent{}
	for rows.Next() {
		var i OrderStatusEvent
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.FromStatus,
			&i.ToStatus,
			&i.ChangedBy,
			&i.ChangedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
