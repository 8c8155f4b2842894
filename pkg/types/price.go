package types

import (
	"fmt"
	"strconv"
)

// Cents is a price on the venue's $0.01 grid, represented as an integer
// number of hundredths to avoid floating-point rounding in ladder walks
// (see SPEC_FULL.md Design Notes, "Floating-point prices on a $0.01 grid").
// Valid prices lie in [0, 100].
type Cents int64

// CentsFromDecimal scales a decimal price string like "0.48" into Cents.
// Rounds to the nearest cent; callers that need exact tick alignment
// should ensure wire prices are already tick-aligned.
func CentsFromDecimal(s string) (Cents, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return CentsFromFloat(f), nil
}

// CentsFromFloat scales a float64 decimal price into Cents.
func CentsFromFloat(f float64) Cents {
	if f < 0 {
		f = 0
	}
	return Cents(f*100 + 0.5)
}

// Decimal returns the price as a float64 in [0,1], for wire/log boundaries only.
func (c Cents) Decimal() float64 {
	return float64(c) / 100.0
}

func (c Cents) String() string {
	return fmt.Sprintf("%.2f", c.Decimal())
}

// OneUnit is the resolution value of a winning outcome token, scaled to Cents.
const OneUnit Cents = 100

// Tick is the smallest price increment on the venue.
const Tick Cents = 1
