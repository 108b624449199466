package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
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
	UpdatedAt   time.Time      `json:"updated_at"`
}

type OrderStatusEvent struct {
	ID         int64       `json:"id"`
	OrderID    uuid.UUID   `json:"order_id"`
	FromStatus pgtype.Text `json:"from_status"`
	ToStatus   string      `json:"to_status"`
	ChangedBy  pgtype.Text `json:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at"`
}
