package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FeeTier is a flat surcharge for any distance up to and including UpToKm.
type FeeTier struct {
	UpToKm float64
	Fee    decimal.Decimal
}

// FeeSchedule derives a delivery fee from a distance in kilometres.
//
// A distance inside a tier pays Base plus that tier's Fee. Beyond the last
// tier (or with no tiers at all) every started kilometre past the last
// breakpoint adds PerKm on top of the last tier's Fee.
type FeeSchedule struct {
	Base  decimal.Decimal
	Tiers []FeeTier
	PerKm decimal.Decimal
}

// Validate checks the invariants that make FeeFor monotonic non-decreasing:
// ascending breakpoints, non-decreasing tier fees and non-negative whole amounts.
func (s *FeeSchedule) Validate() error {
	if s.Base.IsNegative() || !s.Base.IsInteger() {
		return fmt.Errorf("%w: base must be a non-negative whole amount", ErrInvalidSchedule)
	}
	if s.PerKm.IsNegative() || !s.PerKm.IsInteger() {
		return fmt.Errorf("%w: per-km rate must be a non-negative whole amount", ErrInvalidSchedule)
	}
	prevKm := 0.0
	prevFee := decimal.Zero
	for i, t := range s.Tiers {
		if math.IsNaN(t.UpToKm) || math.IsInf(t.UpToKm, 0) || t.UpToKm < 0 {
			return fmt.Errorf("%w: tier[%d] distance must be finite and >= 0", ErrInvalidSchedule, i)
		}
		if i > 0 && t.UpToKm <= prevKm {
			return fmt.Errorf("%w: tier[%d] distance must be greater than %g", ErrInvalidSchedule, i, prevKm)
		}
		if t.Fee.IsNegative() || !t.Fee.IsInteger() {
			return fmt.Errorf("%w: tier[%d] fee must be a non-negative whole amount", ErrInvalidSchedule, i)
		}
		if t.Fee.LessThan(prevFee) {
			return fmt.Errorf("%w: tier[%d] fee must not be lower than the previous tier", ErrInvalidSchedule, i)
		}
		prevKm, prevFee = t.UpToKm, t.Fee
	}
	return nil
}

// FeeFor returns the delivery fee for distanceKm.
func (s *FeeSchedule) FeeFor(distanceKm float64) (decimal.Decimal, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return decimal.Zero, ErrInvalidDistance
	}

	for _, t := range s.Tiers {
		if distanceKm <= t.UpToKm {
			return s.Base.Add(t.Fee), nil
		}
	}

	start, surcharge := 0.0, decimal.Zero
	if n := len(s.Tiers); n > 0 {
		start, surcharge = s.Tiers[n-1].UpToKm, s.Tiers[n-1].Fee
	}
	startedKm := decimal.NewFromFloat(math.Ceil(distanceKm - start))
	return s.Base.Add(surcharge).Add(s.PerKm.Mul(startedKm)), nil
}

// ParseTiers parses "2:0,5:20" into tiers. An empty string yields no tiers.
func ParseTiers(s string) ([]FeeTier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var tiers []FeeTier
	for _, part := range strings.Split(s, ",") {
		km, fee, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: tier %q must look like km:fee", ErrInvalidSchedule, part)
		}
		upTo, err := strconv.ParseFloat(strings.TrimSpace(km), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: tier %q: bad distance", ErrInvalidSchedule, part)
		}
		f, err := decimal.NewFromString(strings.TrimSpace(fee))
		if err != nil {
			return nil, fmt.Errorf("%w: tier %q: bad fee", ErrInvalidSchedule, part)
		}
		tiers = append(tiers, FeeTier{UpToKm: upTo, Fee: f})
	}
	return tiers, nil
}
