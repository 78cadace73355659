package money

import (
	"fmt"
	"strconv"
	"strings"

	"example.com/restaurant/services/ordering/internal/faults"
)

// Pence is a fixed-point amount of money in pence. All prices and totals are
// stored and summed in pence; pounds only appear at the presentation edge.
type Pence int64

// Pounds returns the amount in pounds for display and JSON responses.
func (p Pence) Pounds() float64 {
	return float64(p) / 100
}

// String formats the amount as "£12.34".
func (p Pence) String() string {
	return fmt.Sprintf("£%d.%02d", p/100, p%100)
}

// ParsePounds parses an admin-entered price like "9.99", "£9.99" or "9,99"
// into pence. Negative prices are rejected.
func ParsePounds(value string) (Pence, error) {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, "£", "")
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return 0, faults.Validation("price is required")
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, faults.Validation("price must be a number like 9.99 (don't include £)")
	}
	if f < 0 {
		return 0, faults.Validation("price cannot be negative")
	}

	// Round half up to the nearest penny.
	return Pence(f*100 + 0.5), nil
}
