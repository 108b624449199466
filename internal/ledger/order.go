package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by Store implementations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrDuplicateID    = errors.New("order id already exists")
	ErrUnstorable     = errors.New("order does not fit the order columns")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// MaxAmount is the largest value a NUMERIC(12,2) amount column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Order is a persisted tiffin order. Everything except Status and
// UpdatedAt is frozen at creation.
type Order struct {
	ID          uuid.UUID
	Number      string
	Mobile      string
	Type        string
	Qty         int
	DistanceKm  float64
	Note        string
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	DeliveryFee decimal.Decimal
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Total is the payable amount: Amount plus DeliveryFee.
func (o Order) Total() decimal.Decimal {
	return o.Amount.Add(o.DeliveryFee)
}

// checkStorable rejects orders whose quantity or amounts would be truncated
// or overflow on the way into storage.
func checkStorable(o Order) error {
	if o.Qty < 1 || o.Qty > math.MaxInt32 {
		return fmt.Errorf("%w: qty %d", ErrUnstorable, o.Qty)
	}
	for _, v := range []decimal.Decimal{o.UnitPrice, o.Amount, o.DeliveryFee} {
		if v.IsNegative() || v.GreaterThan(MaxAmount) {
			return fmt.Errorf("%w: amount %s", ErrUnstorable, v)
		}
	}
	return nil
}

// StatusEvent records one status change. The creation event has an empty From.
type StatusEvent struct {
	OrderID   uuid.UUID
	From      string
	To        string
	ChangedBy string
	ChangedAt time.Time
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status string
	Mobile string
	Limit  int
	Offset int
}

// Normalize clamps Limit into [1, MaxListLimit] and Offset to >= 0.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// StatusUpdate moves OrderID from From to To. It is applied only if the
// stored status still equals From.
type StatusUpdate struct {
	OrderID   uuid.UUID
	From      string
	To        string
	ChangedBy string
	At        time.Time
}

// Store persists orders. Insert assigns Number and returns the stored order.
type Store interface {
	Insert(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) (Order, error)
	History(ctx context.Context, id uuid.UUID) ([]StatusEvent, error)
}

// FormatOrderNumber renders the human-facing order number.
func FormatOrderNumber(seq int32) string {
	return fmt.Sprintf("TF-%04d", seq)
}
