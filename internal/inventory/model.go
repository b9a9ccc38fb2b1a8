package inventory

import "fmt"

type StockItem struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

type Line struct {
	ProductID string
	Quantity  int
}

// InsufficientStockError names the first product that could not cover its demand.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Demand sums quantities per product, keeping the order in which products
// first appear.
func Demand(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		if i, ok := idx[ln.ProductID]; ok {
			out[i].Quantity += ln.Quantity
			continue
		}
		idx[ln.ProductID] = len(out)
		out = append(out, ln)
	}
	return out
}
