// Package orderid issues human-readable order identifiers of the form ORD<n>.
package orderid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	Prefix = "ORD"

	// CounterName is the sequence_counter row backing order identifiers.
	CounterName = "order_id"
)

// Format renders n as an order identifier.
func Format(n int64) string {
	return Prefix + strconv.FormatInt(n, 10)
}

// Parse returns the numeric suffix of a well-formed identifier. Anything that
// is not ORD followed by decimal digits is reported as not ok.
func Parse(id string) (int64, bool) {
	digits, found := strings.CutPrefix(id, Prefix)
	if !found || digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSuffix returns the largest suffix among well-formed ids, or 0.
func MaxSuffix(ids []string) int64 {
	var highest int64
	for _, id := range ids {
		if n, ok := Parse(id); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// Range returns ORD<after+1> ... ORD<after+n>.
func Range(after int64, n int) []string {
	if n <= 0 {
		return nil
	}
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, Format(after+int64(i)))
	}
	return ids
}

// Counter advances a named counter by n and returns the new last value.
type Counter interface {
	Advance(ctx context.Context, name string, n int) (int64, error)
}

type Allocator struct {
	counter Counter
}

func NewAllocator(counter Counter) *Allocator {
	return &Allocator{counter: counter}
}

// Allocate reserves n consecutive identifiers. Uniqueness across concurrent
// callers comes from the counter, which must advance atomically.
func (a *Allocator) Allocate(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("allocate order ids: n must be positive, got %d", n)
	}
	last, err := a.counter.Advance(ctx, CounterName, n)
	if err != nil {
		return nil, fmt.Errorf("allocate order ids: %w", err)
	}
	return Range(last-int64(n), n), nil
}
