package checkout

import (
	"fmt"
	"math"
)

// Policy decides how cart-level tax, shipping and discount are attributed to
// the order rows of one checkout.
type Policy string

const (
	// EvenSplit divides each amount across all lines. Leftover cents go to
	// the earliest lines.
	EvenSplit Policy = "even"
	// FirstLine puts every amount on the first line.
	FirstLine Policy = "first"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", EvenSplit:
		return EvenSplit, nil
	case FirstLine:
		return FirstLine, nil
	default:
		return "", fmt.Errorf("unknown apportion policy %q", s)
	}
}

// Charges are cart-level amounts in cents.
type Charges struct {
	Tax      int64
	Shipping int64
	Discount int64
}

// Apportion returns one share per line. Each field of the shares sums to the
// matching field of c.
func (p Policy) Apportion(lines int, c Charges) []Charges {
	if lines <= 0 {
		return nil
	}
	out := make([]Charges, lines)
	if p == FirstLine {
		out[0] = c
		return out
	}
	tax := splitEven(c.Tax, lines)
	ship := splitEven(c.Shipping, lines)
	disc := splitEven(c.Discount, lines)
	for i := range out {
		out[i] = Charges{Tax: tax[i], Shipping: ship[i], Discount: disc[i]}
	}
	return out
}

func splitEven(total int64, n int) []int64 {
	parts := make([]int64, n)
	base := total / int64(n)
	rem := total % int64(n)
	step := int64(1)
	if rem < 0 {
		rem, step = -rem, -1
	}
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i] += step
		}
	}
	return parts
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}
