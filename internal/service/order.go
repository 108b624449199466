package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/notify"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/payment"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxNoteRunes     = 500
	minMobileDigits  = 10
	maxMobileDigits  = 13
	maxStatusRetries = 2

	// MaxQty and MaxDistanceKm bound a single order.
	MaxQty        = 1000
	MaxDistanceKm = 100
)

// Errors returned by the order service.
var (
	ErrInvalidMobile      = errors.New("mobile must be a 10-13 digit phone number")
	ErrNoteTooLong        = errors.New("note must be at most 500 characters")
	ErrInvalidQty         = errors.New("qty must be at most 1000")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPricingUnavailable = errors.New("pricing is not loaded")
)

// CreateOrderRequest is the raw input for creating an order.
type CreateOrderRequest struct {
	Mobile     string
	Type       string
	Qty        int
	DistanceKm float64
	Note       string
}

// CreateOrderResult is the stored order and its payment link.
type CreateOrderResult struct {
	Order   ledger.Order
	Payment payment.Link
}

// SetStatusRequest asks for OrderID to move to Status.
type SetStatusRequest struct {
	OrderID   uuid.UUID
	Status    string
	ChangedBy string
}

// SetStatusResult reports the order after the request. Changed is false when
// the order already had the requested status.
type SetStatusResult struct {
	Order   ledger.Order
	Changed bool
}

// PaymentLinker builds payment links. Satisfied by *payment.Generator.
type PaymentLinker interface {
	Build(o ledger.Order) (payment.Link, error)
}

// OrderService handles order business logic.
type OrderService struct {
	store    ledger.Store
	prices   *pricing.Source
	payments PaymentLinker
	notifier notify.Notifier
	locks    *keyedLocks
	now      func() time.Time
	log      *zap.Logger
}

// NewOrderService creates a new OrderService. A nil notifier discards events.
func NewOrderService(store ledger.Store, prices *pricing.Source, payments PaymentLinker, notifier notify.Notifier, log *zap.Logger) *OrderService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &OrderService{
		store:    store,
		prices:   prices,
		payments: payments,
		notifier: notifier,
		locks:    newKeyedLocks(),
		now:      time.Now,
		log:      log,
	}
}

// CreateOrder validates req, prices it against a single pricing snapshot,
// stores it as placed and returns it with its payment link.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate + normalize ---
	mobile, err := NormalizeMobile(req.Mobile)
	if err != nil {
		return nil, err
	}
	if !enum.IsValidOrderType(req.Type) {
		return nil, pricing.ErrUnknownOrderType
	}
	qty := req.Qty
	if qty < 1 {
		qty = 1
	}
	if qty > MaxQty {
		return nil, ErrInvalidQty
	}
	km, err := normalizeDistance(req.DistanceKm)
	if err != nil {
		return nil, err
	}
	note := strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(note) > maxNoteRunes {
		return nil, ErrNoteTooLong
	}

	// --- Price from one snapshot ---
	snap := s.prices.Current()
	if snap == nil {
		return nil, ErrPricingUnavailable
	}
	unitPrice, err := snap.Table.PriceOf(req.Type)
	if err != nil {
		return nil, err
	}
	fee, err := snap.Fees.FeeFor(km)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := ledger.Order{
		ID:          uuid.New(),
		Mobile:      mobile,
		Type:        req.Type,
		Qty:         qty,
		DistanceKm:  km,
		Note:        note,
		UnitPrice:   unitPrice,
		Amount:      unitPrice.Mul(decimal.NewFromInt(int64(qty))),
		DeliveryFee: fee,
		Status:      enum.OrderStatusPlaced,
		CreatedAt:   now,
	}
	if err := payment.CheckPayable(o); err != nil {
		return nil, err
	}

	// --- Persist ---
	stored, err := s.store.Insert(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	link, err := s.payments.Build(stored)
	if err != nil {
		return nil, fmt.Errorf("build payment link: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", stored.ID.String()),
		zap.String("order_number", stored.Number),
		zap.String("type", stored.Type),
		zap.Int("qty", stored.Qty),
		zap.String("total", stored.Total().String()))
	s.notifier.Notify(ctx, notify.Event{Type: notify.EventOrderCreated, Order: stored})

	return &CreateOrderResult{Order: stored, Payment: link}, nil
}

// GetOrder returns a single order.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (ledger.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return ledger.Order{}, storeErr(err, "get order")
	}
	return o, nil
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, f ledger.ListFilter) ([]ledger.Order, error) {
	if f.Status != "" && !enum.IsValidOrderStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if f.Mobile != "" {
		m, err := NormalizeMobile(f.Mobile)
		if err != nil {
			return nil, err
		}
		f.Mobile = m
	}
	orders, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// OrderHistory returns the status events of an order, oldest first.
func (s *OrderService) OrderHistory(ctx context.Context, id uuid.UUID) ([]ledger.StatusEvent, error) {
	h, err := s.store.History(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order history")
	}
	return h, nil
}

// PaymentLink rebuilds the payment link of a stored order.
func (s *OrderService) PaymentLink(ctx context.Context, id uuid.UUID) (payment.Link, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return payment.Link{}, err
	}
	return s.payments.Build(o)
}

// SetStatus advances an order to req.Status. Only the immediate successor
// of the current status is accepted; asking for the current status is a
// no-op. Calls for the same order are serialized.
func (s *OrderService) SetStatus(ctx context.Context, req SetStatusRequest) (*SetStatusResult, error) {
	if !enum.IsValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	unlock := s.locks.Lock(req.OrderID)
	defer unlock()

	// The store compares-and-sets, so a writer in another process can still
	// win; re-read once and re-evaluate when that happens.
	var lastErr error
	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		cur, err := s.store.Get(ctx, req.OrderID)
		if err != nil {
			return nil, storeErr(err, "get order")
		}
		if cur.Status == req.Status {
			return &SetStatusResult{Order: cur, Changed: false}, nil
		}
		if err := checkTransition(cur.Status, req.Status); err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateStatus(ctx, ledger.StatusUpdate{
			OrderID:   cur.ID,
			From:      cur.Status,
			To:        req.Status,
			ChangedBy: req.ChangedBy,
			At:        s.now(),
		})
		if errors.Is(err, ledger.ErrStatusConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, storeErr(err, "update order status")
		}

		s.log.Info("order status changed",
			zap.String("order_id", updated.ID.String()),
			zap.String("from", cur.Status),
			zap.String("to", updated.Status))
		s.notifier.Notify(ctx, notify.Event{
			Type:           notify.EventOrderStatusChanged,
			Order:          updated,
			PreviousStatus: cur.Status,
		})
		return &SetStatusResult{Order: updated, Changed: true}, nil
	}
	return nil, fmt.Errorf("update order status: %w", lastErr)
}

// MenuSnapshot returns the pricing snapshot currently in effect.
func (s *OrderService) MenuSnapshot() (*pricing.Snapshot, error) {
	snap := s.prices.Current()
	if snap == nil {
		return nil, ErrPricingUnavailable
	}
	return snap, nil
}

// QuoteFee returns the delivery fee for km under the current schedule.
func (s *OrderService) QuoteFee(km float64) (decimal.Decimal, error) {
	snap, err := s.MenuSnapshot()
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Fees.FeeFor(km)
}

// --- Helpers ---

// NormalizeMobile strips spaces, dashes and a leading '+', then requires
// 10 to 13 digits.
func NormalizeMobile(raw string) (string, error) {
	m := strings.TrimSpace(raw)
	m = strings.TrimPrefix(m, "+")
	m = strings.NewReplacer(" ", "", "-", "").Replace(m)
	if len(m) < minMobileDigits || len(m) > maxMobileDigits {
		return "", ErrInvalidMobile
	}
	for _, r := range m {
		if r < '0' || r > '9' {
			return "", ErrInvalidMobile
		}
	}
	return m, nil
}

func normalizeDistance(km float64) (float64, error) {
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return 0, pricing.ErrInvalidDistance
	}
	if km > MaxDistanceKm {
		return 0, fmt.Errorf("%w: at most %d km", pricing.ErrInvalidDistance, MaxDistanceKm)
	}
	if km < 0 {
		return 0, nil
	}
	return km, nil
}

func checkTransition(from, to string) error {
	next, ok := enum.NextOrderStatus(from)
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func storeErr(err error, op string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrOrderNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
