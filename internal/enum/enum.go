package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPlaced         = "placed"
	OrderStatusPreparing      = "preparing"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
)

// orderStatusFlow is the only path an order may take.
var orderStatusFlow = []string{
	OrderStatusPlaced,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// ── Order types (keys of the pricing table) ──

const (
	OrderTypeDaily         = "daily"
	OrderTypeBreakfast     = "breakfast"
	OrderTypeMonthlyVeg    = "monthlyVeg"
	OrderTypeMonthlyNonVeg = "monthlyNonVeg"
)

// OrderTypes lists every recognised order type in menu order.
var OrderTypes = []string{
	OrderTypeDaily,
	OrderTypeBreakfast,
	OrderTypeMonthlyVeg,
	OrderTypeMonthlyNonVeg,
}

// ── Admin ──

const RoleAdmin = "ADMIN"

func IsValidOrderType(s string) bool {
	for _, t := range OrderTypes {
		if t == s {
			return true
		}
	}
	return false
}

func IsValidOrderStatus(s string) bool {
	return statusIndex(s) >= 0
}

// NextOrderStatus returns the immediate successor of s. The second value is
// false when s is terminal or unknown.
func NextOrderStatus(s string) (string, bool) {
	i := statusIndex(s)
	if i < 0 || i == len(orderStatusFlow)-1 {
		return "", false
	}
	return orderStatusFlow[i+1], true
}

func statusIndex(s string) int {
	for i, st := range orderStatusFlow {
		if st == s {
			return i
		}
	}
	return -1
}
