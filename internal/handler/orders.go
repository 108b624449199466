package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/middleware"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/payment"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (ledger.Order, error)
	ListOrders(ctx context.Context, f ledger.ListFilter) ([]ledger.Order, error)
	OrderHistory(ctx context.Context, id uuid.UUID) ([]ledger.StatusEvent, error)
	PaymentLink(ctx context.Context, id uuid.UUID) (payment.Link, error)
	SetStatus(ctx context.Context, req service.SetStatusRequest) (*service.SetStatusResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	log *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// RegisterRoutes registers the customer-facing order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/payment", h.Payment)
}

// RegisterAdminRoutes registers order management endpoints. Expected to be
// mounted behind middleware.RequireAdmin at /admin.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.AdminList)
	r.Get("/orders/{id}", h.AdminGet)
	r.Post("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Mobile     string  `json:"mobile"`
	Type       string  `json:"type"`
	Qty        int     `json:"qty"`
	DistanceKm float64 `json:"distanceKm"`
	Note       string  `json:"note"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID          uuid.UUID   `json:"id"`
	Number      string      `json:"number"`
	Mobile      string      `json:"mobile,omitempty"`
	Type        string      `json:"type"`
	Qty         int         `json:"qty"`
	DistanceKm  float64     `json:"distanceKm"`
	Note        string      `json:"note,omitempty"`
	UnitPrice   json.Number `json:"unitPrice"`
	Amount      json.Number `json:"amount"`
	DeliveryFee json.Number `json:"deliveryFee"`
	Total       json.Number `json:"total"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
}

type paymentResponse struct {
	UPIURL string `json:"upiUrl"`
	Amount int64  `json:"amount"`
}

type createOrderResponse struct {
	OrderID uuid.UUID       `json:"orderId"`
	Order   orderResponse   `json:"order"`
	Payment paymentResponse `json:"payment"`
}

type statusEventResponse struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ChangedBy string `json:"changedBy,omitempty"`
	ChangedAt string `json:"changedAt"`
}

type orderDetailResponse struct {
	orderResponse
	History []statusEventResponse `json:"history"`
}

type updateStatusResponse struct {
	OK      bool          `json:"ok"`
	Changed bool          `json:"changed"`
	Order   orderResponse `json:"order"`
}

// --- Public handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body")
		return
	}

	if req.Type == "" {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "type is required")
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Mobile:     req.Mobile,
		Type:       req.Type,
		Qty:        req.Qty,
		DistanceKm: req.DistanceKm,
		Note:       req.Note,
	})
	if err != nil {
		writeServiceError(w, h.log, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID: result.Order.ID,
		Order:   toOrderResponse(result.Order),
		Payment: toPaymentResponse(result.Payment),
	})
}

// Get handles GET /orders/{id}. Contact details are left out.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toPublicOrderResponse(o))
}

// Payment handles GET /orders/{id}/payment.
func (h *OrderHandler) Payment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	link, err := h.svc.PaymentLink(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "payment link", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(link))
}

// --- Admin handlers ---

// AdminList handles GET /admin/orders?status=&mobile=&limit=&offset=.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.ListFilter{
		Status: q.Get("status"),
		Mobile: q.Get("mobile"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid offset")
			return
		}
		f.Offset = n
	}

	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.log, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// AdminGet handles GET /admin/orders/{id}.
func (h *OrderHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get order", err)
		return
	}
	history, err := h.svc.OrderHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "order history", err)
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(o),
		History:       make([]statusEventResponse, len(history)),
	}
	for i, e := range history {
		resp.History[i] = statusEventResponse{
			From:      e.From,
			To:        e.To,
			ChangedBy: e.ChangedBy,
			ChangedAt: formatTime(e.ChangedAt),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles POST|PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, CodeUnauthorized, "admin session required")
		return
	}

	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body")
		return
	}

	if req.Status == "" {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "status is required")
		return
	}

	result, err := h.svc.SetStatus(r.Context(), service.SetStatusRequest{
		OrderID:   id,
		Status:    req.Status,
		ChangedBy: "admin:" + session.ID.String(),
	})
	if err != nil {
		writeServiceError(w, h.log, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, updateStatusResponse{
		OK:      true,
		Changed: result.Changed,
		Order:   toOrderResponse(result.Order),
	})
}

// --- Helpers ---

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, "invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

func toOrderResponse(o ledger.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		Number:      o.Number,
		Mobile:      o.Mobile,
		Type:        o.Type,
		Qty:         o.Qty,
		DistanceKm:  o.DistanceKm,
		Note:        o.Note,
		UnitPrice:   money(o.UnitPrice),
		Amount:      money(o.Amount),
		DeliveryFee: money(o.DeliveryFee),
		Total:       money(o.Total()),
		Status:      o.Status,
		CreatedAt:   formatTime(o.CreatedAt),
		UpdatedAt:   formatTime(o.UpdatedAt),
	}
}

func toPublicOrderResponse(o ledger.Order) orderResponse {
	resp := toOrderResponse(o)
	resp.Mobile = ""
	resp.Note = ""
	return resp
}

func toPaymentResponse(l payment.Link) paymentResponse {
	return paymentResponse{UPIURL: l.UPIURL, Amount: l.Amount}
}
