package pricing

import (
	"errors"
	"fmt"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the pricing package.
var (
	ErrUnknownOrderType = errors.New("unknown order type")
	ErrInvalidDistance  = errors.New("distance must be a finite number >= 0")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidSchedule  = errors.New("invalid delivery fee schedule")
)

// Table maps each order type to its unit price in whole rupees.
// A Table is never mutated after NewTable returns.
type Table struct {
	prices map[string]decimal.Decimal
}

// NewTable validates prices and returns an immutable Table. Every order type
// in enum.OrderTypes must be present; unknown keys are rejected.
func NewTable(prices map[string]decimal.Decimal) (*Table, error) {
	t := &Table{prices: make(map[string]decimal.Decimal, len(enum.OrderTypes))}
	for _, typ := range enum.OrderTypes {
		p, ok := prices[typ]
		if !ok {
			return nil, fmt.Errorf("%w: missing price for %s", ErrInvalidPrice, typ)
		}
		if p.IsNegative() || !p.IsInteger() {
			return nil, fmt.Errorf("%w: %s must be a non-negative whole amount, got %s", ErrInvalidPrice, typ, p)
		}
		t.prices[typ] = p
	}
	for typ := range prices {
		if !enum.IsValidOrderType(typ) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOrderType, typ)
		}
	}
	return t, nil
}

// PriceOf returns the unit price for an order type.
func (t *Table) PriceOf(orderType string) (decimal.Decimal, error) {
	p, ok := t.prices[orderType]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownOrderType, orderType)
	}
	return p, nil
}

// Prices returns a copy of the table.
func (t *Table) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.prices))
	for k, v := range t.prices {
		out[k] = v
	}
	return out
}
