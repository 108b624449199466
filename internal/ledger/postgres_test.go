package ledger

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements Pool. Queries never reach it because the store
// builds its queries through the injected factory.
type mockPool struct {
	tx  *mockTx
	err error
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}
func (m *mockPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not implemented")
}

// mockQueries implements OrderQueries with configurable behavior.
type mockQueries struct {
	getNextOrderNumberFn     func(ctx context.Context) (int32, error)
	createOrderFn            func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderFn               func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn             func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	updateOrderStatusFn      func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	createOrderStatusEventFn func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	listOrderStatusEventsFn  func(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusEvent, error)
}

func (m *mockQueries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	return m.getNextOrderNumberFn(ctx)
}
func (m *mockQueries) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockQueries) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockQueries) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockQueries) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockQueries) CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
	return m.createOrderStatusEventFn(ctx, arg)
}
func (m *mockQueries) ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusEvent, error) {
	return m.listOrderStatusEventsFn(ctx, orderID)
}

// --- Helpers ---

func rowFromCreate(arg database.CreateOrderParams) database.Order {
	return database.Order{
		ID: arg.ID, OrderSeq: arg.OrderSeq, OrderNumber: arg.OrderNumber,
		Mobile: arg.Mobile, OrderType: arg.OrderType, Quantity: arg.Quantity,
		DistanceKm: arg.DistanceKm, Notes: arg.Notes,
		UnitPrice: arg.UnitPrice, Amount: arg.Amount, DeliveryFee: arg.DeliveryFee,
		Status: arg.Status, CreatedAt: arg.CreatedAt, UpdatedAt: arg.CreatedAt,
	}
}

func defaultQueries() *mockQueries {
	return &mockQueries{
		getNextOrderNumberFn: func(ctx context.Context) (int32, error) { return 1, nil },
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return rowFromCreate(arg), nil
		},
		createOrderStatusEventFn: func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
			return database.OrderStatusEvent{OrderID: arg.OrderID, ToStatus: arg.ToStatus}, nil
		},
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
}

func newTestStore(q *mockQueries) (*PostgresStore, *mockTx) {
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	return NewPostgresStore(pool, func(db database.DBTX) OrderQueries { return q }), tx
}

func sampleOrder() Order {
	return Order{
		ID:          uuid.New(),
		Mobile:      "9998887770",
		Type:        "daily",
		Qty:         2,
		DistanceKm:  5,
		Note:        "less spicy",
		UnitPrice:   decimal.NewFromInt(100),
		Amount:      decimal.NewFromInt(200),
		DeliveryFee: decimal.NewFromInt(20),
		Status:      "placed",
		CreatedAt:   time.Now(),
	}
}

// =====================
// Insert
// =====================

func TestInsert_AssignsNumberAndCommits(t *testing.T) {
	q := defaultQueries()
	q.getNextOrderNumberFn = func(ctx context.Context) (int32, error) { return 42, nil }

	var event database.CreateOrderStatusEventParams
	q.createOrderStatusEventFn = func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
		event = arg
		return database.OrderStatusEvent{}, nil
	}

	s, tx := newTestStore(q)
	got, err := s.Insert(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Number != "TF-0042" {
		t.Errorf("number: got %q, want %q", got.Number, "TF-0042")
	}
	if !got.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("amount: got %s, want 200", got.Amount)
	}
	if got.Note != "less spicy" {
		t.Errorf("note: got %q", got.Note)
	}
	if event.ToStatus != "placed" || event.FromStatus.Valid {
		t.Errorf("creation event: got %+v", event)
	}
	if tx.committed != 1 {
		t.Errorf("expected 1 commit, got %d", tx.committed)
	}
}

func TestInsert_RetryOnUniqueViolation(t *testing.T) {
	q := defaultQueries()

	createCallCount := 0
	q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			// First attempt: unique constraint violation
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_order_seq_key",
			}
		}
		return rowFromCreate(arg), nil
	}

	// GetNextOrderNumber should be called twice (once per attempt)
	orderNumCallCount := 0
	q.getNextOrderNumberFn = func(ctx context.Context) (int32, error) {
		orderNumCallCount++
		return int32(orderNumCallCount), nil
	}

	s, _ := newTestStore(q)
	got, err := s.Insert(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if got.Number != "TF-0002" {
		t.Errorf("number: got %q, want %q", got.Number, "TF-0002")
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCallCount)
	}
	if orderNumCallCount != 2 {
		t.Errorf("expected 2 GetNextOrderNumber calls, got %d", orderNumCallCount)
	}
}

func TestInsert_RetryExhausted(t *testing.T) {
	q := defaultQueries()

	// Always return unique violation
	q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_order_number_key",
		}
	}

	s, _ := newTestStore(q)
	_, err := s.Insert(context.Background(), sampleOrder())
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
}

func TestInsert_NonUniqueErrorNotRetried(t *testing.T) {
	q := defaultQueries()

	callCount := 0
	q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, errors.New("some other DB error")
	}

	s, _ := newTestStore(q)
	if _, err := s.Insert(context.Background(), sampleOrder()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("non-unique errors should not retry: expected 1 call, got %d", callCount)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	q := defaultQueries()
	q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}
	}

	s, _ := newTestStore(q)
	_, err := s.Insert(context.Background(), sampleOrder())
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("got %v, want ErrDuplicateID", err)
	}
}

func TestInsert_RejectsUnstorableOrders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Order)
	}{
		{"qty wraps int32", func(o *Order) { o.Qty = 4294967297 }},
		{"qty above int32", func(o *Order) { o.Qty = math.MaxInt32 + 1 }},
		{"zero qty", func(o *Order) { o.Qty = 0 }},
		{"amount too large", func(o *Order) { o.Amount = decimal.RequireFromString("10000000000") }},
		{"fee too large", func(o *Order) { o.DeliveryFee = decimal.RequireFromString("1e300") }},
		{"negative price", func(o *Order) { o.UnitPrice = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := defaultQueries()
			q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
				t.Error("CreateOrder must not be called")
				return rowFromCreate(arg), nil
			}
			s, _ := newTestStore(q)

			o := sampleOrder()
			tt.mutate(&o)
			if _, err := s.Insert(context.Background(), o); !errors.Is(err, ErrUnstorable) {
				t.Errorf("got %v, want ErrUnstorable", err)
			}
		})
	}
}

func TestInsert_MaxQtyStoredExactly(t *testing.T) {
	q := defaultQueries()
	var params database.CreateOrderParams
	q.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		params = arg
		return rowFromCreate(arg), nil
	}
	s, _ := newTestStore(q)

	o := sampleOrder()
	o.Qty = math.MaxInt32
	o.UnitPrice = decimal.NewFromInt(1)
	o.Amount = decimal.NewFromInt(math.MaxInt32)
	got, err := s.Insert(context.Background(), o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Quantity != math.MaxInt32 || got.Qty != math.MaxInt32 {
		t.Errorf("quantity: stored %d, returned %d", params.Quantity, got.Qty)
	}
}

// =====================
// UpdateStatus
// =====================

func TestUpdateStatus_Conflict(t *testing.T) {
	q := defaultQueries()
	q.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	q.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, Status: "preparing"}, nil
	}

	s, tx := newTestStore(q)
	_, err := s.UpdateStatus(context.Background(), StatusUpdate{OrderID: uuid.New(), From: "placed", To: "preparing"})
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("got %v, want ErrStatusConflict", err)
	}
	if tx.committed != 0 {
		t.Errorf("conflict must not commit, got %d commits", tx.committed)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	q := defaultQueries()
	q.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	s, _ := newTestStore(q)
	_, err := s.UpdateStatus(context.Background(), StatusUpdate{OrderID: uuid.New(), From: "placed", To: "preparing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_WritesEvent(t *testing.T) {
	q := defaultQueries()
	id := uuid.New()
	q.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		if arg.FromStatus != "placed" || arg.Status != "preparing" {
			t.Errorf("unexpected params: %+v", arg)
		}
		return database.Order{ID: arg.ID, Status: arg.Status, UpdatedAt: arg.UpdatedAt}, nil
	}
	var event database.CreateOrderStatusEventParams
	q.createOrderStatusEventFn = func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
		event = arg
		return database.OrderStatusEvent{}, nil
	}

	s, tx := newTestStore(q)
	got, err := s.UpdateStatus(context.Background(), StatusUpdate{OrderID: id, From: "placed", To: "preparing", ChangedBy: "admin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "preparing" {
		t.Errorf("status: got %q, want %q", got.Status, "preparing")
	}
	if event.FromStatus != (pgtype.Text{String: "placed", Valid: true}) || event.ChangedBy.String != "admin" {
		t.Errorf("event: got %+v", event)
	}
	if tx.committed != 1 {
		t.Errorf("expected 1 commit, got %d", tx.committed)
	}
}

// =====================
// Reads
// =====================

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(defaultQueries())
	_, err := s.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestList_PassesNormalizedFilter(t *testing.T) {
	q := defaultQueries()
	var got database.ListOrdersParams
	q.listOrdersFn = func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
		got = arg
		return []database.Order{}, nil
	}

	s, _ := newTestStore(q)
	if _, err := s.List(context.Background(), ListFilter{Status: "placed", Limit: 9999}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Status.Valid || got.Status.String != "placed" {
		t.Errorf("status filter: got %+v", got.Status)
	}
	if got.Mobile.Valid {
		t.Errorf("empty mobile should be NULL, got %+v", got.Mobile)
	}
	if got.Limit != MaxListLimit {
		t.Errorf("limit: got %d, want %d", got.Limit, MaxListLimit)
	}
}

func TestNumericRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("3500")
	if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
		t.Errorf("got %s, want %s", got, d)
	}
	if got := numericToDecimal(pgtype.Numeric{}); !got.IsZero() {
		t.Errorf("invalid numeric: got %s, want 0", got)
	}
}
