package order

import "time"

// Order is one persisted row. A checkout of n cart lines produces n orders.
type Order struct {
	OrderID         string        `json:"order_id"`
	UserID          string        `json:"user_id"`
	DealerID        string        `json:"dealer_id"`
	ProductID       string        `json:"product_id"`
	Quantity        int           `json:"quantity"`
	UnitPrice       float64       `json:"unit_price"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	ShippingPincode string        `json:"shipping_pincode"`
	OrderDate       time.Time     `json:"order_date"`
	OrderStatus     Status        `json:"order_status"`
	TotalAmount     float64       `json:"total_amount"`
	TaxAmount       float64       `json:"tax_amount"`
	ShippingCost    float64       `json:"shipping_cost"`
	DiscountAmount  float64       `json:"discount_amount"`
	PaymentMethod   string        `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	TransactionID   string        `json:"transaction_id"`
}

func (o *Order) args() []any {
	return []any{
		o.OrderID, o.UserID, o.DealerID, o.ProductID, o.Quantity, o.UnitPrice,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.ShippingPincode, o.OrderDate, string(o.OrderStatus),
		o.TotalAmount, o.TaxAmount, o.ShippingCost, o.DiscountAmount,
		o.PaymentMethod, string(o.PaymentStatus), o.TransactionID,
	}
}

func (o *Order) scanTargets() []any {
	return []any{
		&o.OrderID, &o.UserID, &o.DealerID, &o.ProductID, &o.Quantity, &o.UnitPrice,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.ShippingPincode, &o.OrderDate, &o.OrderStatus,
		&o.TotalAmount, &o.TaxAmount, &o.ShippingCost, &o.DiscountAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.TransactionID,
	}
}
