package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

var _ Store = (*PostgresStore)(nil)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is satisfied by *pgxpool.Pool.
type Pool interface {
	TxBeginner
	database.DBTX
}

// OrderQueries defines the DB methods the ledger needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderQueries interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusEvent, error)
}

// NewOrderQueries creates an OrderQueries from a DBTX (pool or tx).
type NewOrderQueries func(db database.DBTX) OrderQueries

// DefaultQueries builds *database.Queries.
func DefaultQueries(db database.DBTX) OrderQueries {
	return database.New(db)
}

// PostgresStore persists orders and their status history in Postgres.
type PostgresStore struct {
	pool       Pool
	newQueries NewOrderQueries
}

func NewPostgresStore(pool Pool, newQueries NewOrderQueries) *PostgresStore {
	if newQueries == nil {
		newQueries = DefaultQueries
	}
	return &PostgresStore{pool: pool, newQueries: newQueries}
}

// Insert stores o with the next order number. Concurrent inserts can read
// the same MAX(order_seq); the loser hits the unique constraint and retries.
func (s *PostgresStore) Insert(ctx context.Context, o Order) (Order, error) {
	if err := checkStorable(o); err != nil {
		return Order{}, err
	}
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		stored, err := s.insertTx(ctx, o)
		if err == nil {
			return stored, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return Order{}, err
	}
	return Order{}, lastErr
}

func (s *PostgresStore) insertTx(ctx context.Context, o Order) (Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := s.newQueries(tx)

	seq, err := q.GetNextOrderNumber(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("get next order number: %w", err)
	}

	row, err := q.CreateOrder(ctx, database.CreateOrderParams{
		ID:          o.ID,
		OrderSeq:    seq,
		OrderNumber: FormatOrderNumber(seq),
		Mobile:      o.Mobile,
		OrderType:   o.Type,
		Quantity:    int32(o.Qty),
		DistanceKm:  o.DistanceKm,
		Notes:       pgtype.Text{String: o.Note, Valid: o.Note != ""},
		UnitPrice:   decimalToNumeric(o.UnitPrice),
		Amount:      decimalToNumeric(o.Amount),
		DeliveryFee: decimalToNumeric(o.DeliveryFee),
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err, "orders_pkey") {
			return Order{}, ErrDuplicateID
		}
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	if _, err := q.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
		OrderID:   row.ID,
		ToStatus:  row.Status,
		ChangedAt: row.CreatedAt,
	}); err != nil {
		return Order{}, fmt.Errorf("create status event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return orderFromRow(row), nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row, err := s.newQueries(s.pool).GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return orderFromRow(row), nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Order, error) {
	f = f.Normalize()
	rows, err := s.newQueries(s.pool).ListOrders(ctx, database.ListOrdersParams{
		Status: pgtype.Text{String: f.Status, Valid: f.Status != ""},
		Mobile: pgtype.Text{String: f.Mobile, Valid: f.Mobile != ""},
		Limit:  int32(f.Limit),
		Offset: int32(f.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, orderFromRow(r))
	}
	return out, nil
}

// UpdateStatus applies u with a conditional UPDATE and records the event in
// the same transaction.
func (s *PostgresStore) UpdateStatus(ctx context.Context, u StatusUpdate) (Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := s.newQueries(tx)

	row, err := q.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         u.OrderID,
		Status:     u.To,
		FromStatus: u.From,
		UpdatedAt:  u.At,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("update order status: %w", err)
		}
		// Either the order is gone or its status moved under us.
		if _, getErr := q.GetOrder(ctx, u.OrderID); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return Order{}, ErrNotFound
			}
			return Order{}, fmt.Errorf("get order: %w", getErr)
		}
		return Order{}, ErrStatusConflict
	}

	if _, err := q.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
		OrderID:    u.OrderID,
		FromStatus: pgtype.Text{String: u.From, Valid: u.From != ""},
		ToStatus:   u.To,
		ChangedBy:  pgtype.Text{String: u.ChangedBy, Valid: u.ChangedBy != ""},
		ChangedAt:  u.At,
	}); err != nil {
		return Order{}, fmt.Errorf("create status event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return orderFromRow(row), nil
}

func (s *PostgresStore) History(ctx context.Context, id uuid.UUID) ([]StatusEvent, error) {
	q := s.newQueries(s.pool)
	if _, err := q.GetOrder(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	rows, err := q.ListOrderStatusEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	out := make([]StatusEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, StatusEvent{
			OrderID:   r.OrderID,
			From:      r.FromStatus.String,
			To:        r.ToStatus,
			ChangedBy: r.ChangedBy.String,
			ChangedAt: r.ChangedAt,
		})
	}
	return out, nil
}

// --- Helpers ---

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order sequence or number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	return isUniqueViolation(err, "orders_order_seq_key") ||
		isUniqueViolation(err, "orders_order_number_key")
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

func orderFromRow(r database.Order) Order {
	return Order{
		ID:          r.ID,
		Number:      r.OrderNumber,
		Mobile:      r.Mobile,
		Type:        r.OrderType,
		Qty:         int(r.Quantity),
		DistanceKm:  r.DistanceKm,
		Note:        r.Notes.String,
		UnitPrice:   numericToDecimal(r.UnitPrice),
		Amount:      numericToDecimal(r.Amount),
		DeliveryFee: numericToDecimal(r.DeliveryFee),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
