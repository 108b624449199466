package payment

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
)

// Errors returned by the payment link generator.
var (
	ErrOrderNotPayable = errors.New("order amount must be positive")
	ErrInvalidPayee    = errors.New("payee VPA must look like handle@bank")
	ErrAmountTooLarge  = fmt.Errorf("%w: total exceeds %s", ErrOrderNotPayable, ledger.MaxAmount)
)

const DefaultCurrency = "INR"

// Payee is the UPI identity that receives payments.
type Payee struct {
	VPA      string
	Name     string
	Currency string
}

// Link is a payable UPI deep link and the whole-unit amount it requests.
type Link struct {
	UPIURL string
	Amount int64
}

// Generator builds UPI deep links for orders.
type Generator struct {
	payee Payee
}

// NewGenerator validates payee and returns a Generator for it.
func NewGenerator(p Payee) (*Generator, error) {
	p.VPA = strings.TrimSpace(p.VPA)
	handle, bank, ok := strings.Cut(p.VPA, "@")
	if !ok || handle == "" || bank == "" || strings.ContainsAny(p.VPA, " /?&") {
		return nil, ErrInvalidPayee
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	return &Generator{payee: p}, nil
}

// CheckPayable reports ErrOrderNotPayable for orders whose amount is not
// positive, and ErrAmountTooLarge when the rounded total cannot be stored
// or requested as a whole-unit int64.
func CheckPayable(o ledger.Order) error {
	if !o.Amount.IsPositive() {
		return ErrOrderNotPayable
	}
	if o.Total().Round(0).GreaterThan(ledger.MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// Build returns the payment link for o. The order is not modified.
func (g *Generator) Build(o ledger.Order) (Link, error) {
	if err := CheckPayable(o); err != nil {
		return Link{}, err
	}
	total := o.Total().Round(0)

	// Parameter order matters to some wallet apps, so the query is built by hand.
	params := []struct{ key, value string }{
		{"pa", g.payee.VPA},
		{"pn", g.payee.Name},
		{"am", total.StringFixed(0)},
		{"cu", g.payee.Currency},
		{"tn", fmt.Sprintf("Tiffin order %s", o.Number)},
		{"tr", o.Number},
	}
	var b strings.Builder
	b.WriteString("upi://pay?")
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(escape(p.value))
	}
	return Link{UPIURL: b.String(), Amount: total.IntPart()}, nil
}

// escape percent-encodes v with %20 for spaces; several UPI apps show a
// literal '+' otherwise.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
