package cart

import (
	"encoding/json"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/jsonnum"
)

// Line is one entry of the cart document stored on the user record.
type Line struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// UnmarshalJSON accepts quantity and price as numbers or numeric strings, as
// the storefront writes them either way.
func (l *Line) UnmarshalJSON(b []byte) error {
	var wire struct {
		ProductID string        `json:"product_id"`
		Quantity  jsonnum.Int   `json:"quantity"`
		Price     jsonnum.Float `json:"price"`
		Name      string        `json:"name"`
		Image     string        `json:"image"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*l = Line{
		ProductID: wire.ProductID,
		Quantity:  int(wire.Quantity),
		Price:     float64(wire.Price),
		Name:      wire.Name,
		Image:     wire.Image,
	}
	return nil
}
