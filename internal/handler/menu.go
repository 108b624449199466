package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MenuServicer defines the service methods needed by menu handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type MenuServicer interface {
	MenuSnapshot() (*pricing.Snapshot, error)
	QuoteFee(km float64) (decimal.Decimal, error)
}

// MenuHandler serves prices and delivery fee quotes.
type MenuHandler struct {
	svc MenuServicer
	log *zap.Logger
}

func NewMenuHandler(svc MenuServicer, log *zap.Logger) *MenuHandler {
	return &MenuHandler{svc: svc, log: log}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Get("/delivery/fee", h.Fee)
}

// --- Response types ---

// The client reads the daily price as "dailyMeal".
type menuPricing struct {
	DailyMeal     json.Number `json:"dailyMeal"`
	Breakfast     json.Number `json:"breakfast"`
	MonthlyVeg    json.Number `json:"monthlyVeg"`
	MonthlyNonVeg json.Number `json:"monthlyNonVeg"`
}

type feeTierResponse struct {
	UpToKm float64     `json:"upToKm"`
	Fee    json.Number `json:"fee"`
}

type deliveryResponse struct {
	Base  json.Number       `json:"base"`
	PerKm json.Number       `json:"perKm"`
	Tiers []feeTierResponse `json:"tiers"`
}

type menuResponse struct {
	Pricing   menuPricing      `json:"pricing"`
	Delivery  deliveryResponse `json:"delivery"`
	UpdatedAt string           `json:"updatedAt"`
}

type feeResponse struct {
	Km  float64     `json:"km"`
	Fee json.Number `json:"fee"`
}

// Menu handles GET /menu.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.MenuSnapshot()
	if err != nil {
		writeServiceError(w, h.log, "menu", err)
		return
	}

	prices := snap.Table.Prices()
	resp := menuResponse{
		Pricing: menuPricing{
			DailyMeal:     money(prices[enum.OrderTypeDaily]),
			Breakfast:     money(prices[enum.OrderTypeBreakfast]),
			MonthlyVeg:    money(prices[enum.OrderTypeMonthlyVeg]),
			MonthlyNonVeg: money(prices[enum.OrderTypeMonthlyNonVeg]),
		},
		Delivery: deliveryResponse{
			Base:  money(snap.Fees.Base),
			PerKm: money(snap.Fees.PerKm),
			Tiers: make([]feeTierResponse, 0, len(snap.Fees.Tiers)),
		},
		UpdatedAt: formatTime(snap.LoadedAt),
	}
	for _, t := range snap.Fees.Tiers {
		resp.Delivery.Tiers = append(resp.Delivery.Tiers, feeTierResponse{UpToKm: t.UpToKm, Fee: money(t.Fee)})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Fee handles GET /delivery/fee?km=. A missing km quotes 0 km.
func (h *MenuHandler) Fee(w http.ResponseWriter, r *http.Request) {
	km := 0.0
	if raw := strings.TrimSpace(r.URL.Query().Get("km")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, CodeInvalidInput, "km must be a number")
			return
		}
		km = v
	}

	fee, err := h.svc.QuoteFee(km)
	if err != nil {
		writeServiceError(w, h.log, "quote fee", err)
		return
	}

	writeJSON(w, http.StatusOK, feeResponse{Km: km, Fee: money(fee)})
}
