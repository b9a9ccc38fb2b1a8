package checkout

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/outbox"
)

type State string

const (
	StateValidating           State = "validating"
	StateStockChecked         State = "stock_checked"
	StateIdentifiersAllocated State = "identifiers_allocated"
	StateOrdersPersisted      State = "orders_persisted"
	StateStockAdjusted        State = "stock_adjusted"
	StateCartCleared          State = "cart_cleared"
	StateCommitted            State = "committed"
)

type CartReader interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
}

type ProductReader interface {
	GetProducts(ctx context.Context, ids []string) ([]catalog.Product, error)
}

type IDAllocator interface {
	Allocate(ctx context.Context, n int) ([]string, error)
}

type OrderWriter interface {
	InsertBatch(ctx context.Context, orders []order.Order) (int64, error)
}

type StockWriter interface {
	Decrement(ctx context.Context, lines []inventory.Line) error
}

// CartStore re-reads the cart under a row lock and clears it, both inside the
// checkout transaction.
type CartStore interface {
	LockLines(ctx context.Context, userID string) ([]cart.Line, error)
	Clear(ctx context.Context, userID string) error
}

type OutboxWriter interface {
	Enqueue(ctx context.Context, msg outbox.Message) error
}

// Writers are the mutating collaborators, all bound to one transaction.
type Writers struct {
	IDs    IDAllocator
	Orders OrderWriter
	Stock  StockWriter
	Carts  CartStore
	Outbox OutboxWriter
}

// TxManager runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, w Writers) error) error
}

type Request struct {
	UserID          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	ShippingPincode string
	OrderStatus     string
	TaxAmount       float64
	ShippingCost    float64
	DiscountAmount  float64
	PaymentMethod   string
	PaymentStatus   string
	TransactionID   string
	CorrelationID   string
}

type LineItem struct {
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name,omitempty"`
	Image       string  `json:"image,omitempty"`
	DealerID    string  `json:"dealer_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalAmount float64 `json:"total_amount"`
}

// MaxLines caps the lines of one checkout so the order insert stays a single
// statement.
const MaxLines = 1000

type Result struct {
	OrderIDs []string
	Items    []LineItem
}

// OrderID is the first identifier, kept for callers that expect one order.
func (r Result) OrderID() string {
	if len(r.OrderIDs) == 0 {
		return ""
	}
	return r.OrderIDs[0]
}

type Options struct {
	Policy  Policy
	Timeout time.Duration
	Logger  *log.Logger
	Metrics *metrics.Registry
}

type Service struct {
	carts    CartReader
	products ProductReader
	tx       TxManager
	policy   Policy
	timeout  time.Duration
	logger   *log.Logger
	metrics  *metrics.Registry
	now      func() time.Time
}

func NewService(carts CartReader, products ProductReader, tx TxManager, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	policy := opts.Policy
	if policy == "" {
		policy = EvenSplit
	}
	return &Service{
		carts:    carts,
		products: products,
		tx:       tx,
		policy:   policy,
		timeout:  opts.Timeout,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Checkout turns the user's cart into one order per cart line. Orders, stock,
// cart and the notification outbox change in one transaction: either all of
// it commits or none of it does.
func (s *Service) Checkout(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveCheckout(resultLabel(err), time.Since(start), len(res.OrderIDs))
		if err != nil {
			s.logger.Printf("checkout failed user=%s correlation=%s result=%s: %v", req.UserID, req.CorrelationID, resultLabel(err), err)
		}
	}()

	if req.UserID == "" {
		return Result{}, ErrMissingUser
	}
	if req.TaxAmount < 0 || req.ShippingCost < 0 || req.DiscountAmount < 0 {
		return Result{}, ErrNegativeAmount
	}
	status, err := order.ParseStatus(req.OrderStatus)
	if err != nil {
		return Result{}, err
	}
	payment, err := order.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		return Result{}, err
	}
	req.OrderStatus, req.PaymentStatus = string(status), string(payment)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.state(StateValidating, req, "")
	lines, err := s.carts.Lines(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}
	if len(lines) == 0 {
		return Result{}, ErrEmptyCart
	}
	if len(lines) > MaxLines {
		return Result{}, fmt.Errorf("%w: %d lines, limit %d", ErrCartTooLarge, len(lines), MaxLines)
	}

	products, err := s.lookupProducts(ctx, lines)
	if err != nil {
		return Result{}, err
	}
	if err := validate(lines, products); err != nil {
		return Result{}, err
	}
	s.state(StateStockChecked, req, fmt.Sprintf("lines=%d", len(lines)))

	orderDate := s.now().UTC()
	err = s.tx.WithinTx(ctx, func(ctx context.Context, w Writers) error {
		// Holds the user row until commit. A concurrent checkout of this cart
		// waits here and then finds it emptied.
		current, err := w.Carts.LockLines(ctx, req.UserID)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return ErrEmptyCart
		}
		if !slices.Equal(current, lines) {
			return ErrCartChanged
		}

		ids, err := w.IDs.Allocate(ctx, len(lines))
		if err != nil {
			return err
		}
		s.state(StateIdentifiersAllocated, req, fmt.Sprintf("first=%s last=%s", ids[0], ids[len(ids)-1]))

		orders := s.buildOrders(req, lines, products, ids, orderDate)
		n, err := w.Orders.InsertBatch(ctx, orders)
		if err != nil {
			return err
		}
		if n != int64(len(orders)) {
			return fmt.Errorf("%w: wrote %d of %d", ErrOrderPersistFailed, n, len(orders))
		}
		s.state(StateOrdersPersisted, req, fmt.Sprintf("orders=%d", n))

		if err := w.Stock.Decrement(ctx, stockLines(lines)); err != nil {
			return err
		}
		s.state(StateStockAdjusted, req, "")

		if err := w.Carts.Clear(ctx, req.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		s.state(StateCartCleared, req, "")

		res = Result{OrderIDs: ids, Items: lineItems(orders, lines, products)}
		return s.enqueueNotifications(ctx, w.Outbox, req, orders, res)
	})
	if err != nil {
		res = Result{}
		return Result{}, err
	}
	s.state(StateCommitted, req, fmt.Sprintf("orders=%d", len(res.OrderIDs)))
	return res, nil
}

func (s *Service) state(st State, req Request, detail string) {
	if detail != "" {
		s.logger.Printf("checkout state=%s user=%s correlation=%s %s", st, req.UserID, req.CorrelationID, detail)
		return
	}
	s.logger.Printf("checkout state=%s user=%s correlation=%s", st, req.UserID, req.CorrelationID)
}

func (s *Service) lookupProducts(ctx context.Context, lines []cart.Line) (map[string]catalog.Product, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, ln := range lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
	}
	found, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	out := make(map[string]catalog.Product, len(found))
	for _, p := range found {
		out[p.ProductID] = p
	}
	return out, nil
}

// validate walks the cart in order and reports the first problem. Stock is
// compared against the total requested per product, not per line.
func validate(lines []cart.Line, products map[string]catalog.Product) error {
	demand := make(map[string]int, len(lines))
	for _, d := range inventory.Demand(stockLines(lines)) {
		demand[d.ProductID] = d.Quantity
	}
	for _, ln := range lines {
		p, ok := products[ln.ProductID]
		if !ok {
			return &ProductNotFoundError{ProductID: ln.ProductID}
		}
		if want := demand[ln.ProductID]; want > p.StockQuantity {
			return &InsufficientStockError{ProductID: ln.ProductID, Requested: want, Available: p.StockQuantity}
		}
		if p.DealerID == "" {
			return &NoDealerError{ProductID: ln.ProductID}
		}
	}
	return nil
}

func stockLines(lines []cart.Line) []inventory.Line {
	out := make([]inventory.Line, 0, len(lines))
	for _, ln := range lines {
		out = append(out, inventory.Line{ProductID: ln.ProductID, Quantity: ln.Quantity})
	}
	return out
}

func (s *Service) buildOrders(req Request, lines []cart.Line, products map[string]catalog.Product, ids []string, orderDate time.Time) []order.Order {
	shares := s.policy.Apportion(len(lines), Charges{
		Tax:      toCents(req.TaxAmount),
		Shipping: toCents(req.ShippingCost),
		Discount: toCents(req.DiscountAmount),
	})

	orders := make([]order.Order, 0, len(lines))
	for i, ln := range lines {
		sh := shares[i]
		lineCents := toCents(ln.Price) * int64(ln.Quantity)
		orders = append(orders, order.Order{
			OrderID:         ids[i],
			UserID:          req.UserID,
			DealerID:        products[ln.ProductID].DealerID,
			ProductID:       ln.ProductID,
			Quantity:        ln.Quantity,
			UnitPrice:       fromCents(toCents(ln.Price)),
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			ShippingAddress: req.ShippingAddress,
			ShippingPincode: req.ShippingPincode,
			OrderDate:       orderDate,
			OrderStatus:     order.Status(req.OrderStatus),
			TotalAmount:     fromCents(lineCents + sh.Tax + sh.Shipping - sh.Discount),
			TaxAmount:       fromCents(sh.Tax),
			ShippingCost:    fromCents(sh.Shipping),
			DiscountAmount:  fromCents(sh.Discount),
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   order.PaymentStatus(req.PaymentStatus),
			TransactionID:   req.TransactionID,
		})
	}
	return orders
}

func lineItems(orders []order.Order, lines []cart.Line, products map[string]catalog.Product) []LineItem {
	items := make([]LineItem, 0, len(orders))
	for i, o := range orders {
		name, image := lines[i].Name, lines[i].Image
		if name == "" {
			name = products[o.ProductID].Name
		}
		if image == "" {
			image = products[o.ProductID].PrimaryImage
		}
		items = append(items, LineItem{
			OrderID:     o.OrderID,
			ProductID:   o.ProductID,
			Name:        name,
			Image:       image,
			DealerID:    o.DealerID,
			Quantity:    o.Quantity,
			UnitPrice:   o.UnitPrice,
			TotalAmount: o.TotalAmount,
		})
	}
	return items
}

// enqueueNotifications records the confirmation mail and the dealer
// notification for delivery after commit. The dealer of the first line is
// the primary dealer and receives the full line list.
func (s *Service) enqueueNotifications(ctx context.Context, ob OutboxWriter, req Request, orders []order.Order, res Result) error {
	customer := notify.Customer{
		UserID:          req.UserID,
		Name:            req.CustomerName,
		Email:           req.CustomerEmail,
		Phone:           req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingPincode: req.ShippingPincode,
	}

	var subtotal, tax, shipping, discount, total int64
	items := make([]notify.Item, 0, len(orders))
	for i, o := range orders {
		subtotal += toCents(o.UnitPrice) * int64(o.Quantity)
		tax += toCents(o.TaxAmount)
		shipping += toCents(o.ShippingCost)
		discount += toCents(o.DiscountAmount)
		total += toCents(o.TotalAmount)
		items = append(items, notify.Item{
			OrderID:   o.OrderID,
			ProductID: o.ProductID,
			Name:      res.Items[i].Name,
			DealerID:  o.DealerID,
			Quantity:  o.Quantity,
			UnitPrice: o.UnitPrice,
			LineTotal: o.TotalAmount,
		})
	}

	conf := notify.Confirmation{
		OrderID:       res.OrderID(),
		OrderIDs:      res.OrderIDs,
		Customer:      customer,
		Items:         items,
		Subtotal:      fromCents(subtotal),
		Tax:           fromCents(tax),
		Shipping:      fromCents(shipping),
		Discount:      fromCents(discount),
		Total:         fromCents(total),
		PaymentMethod: req.PaymentMethod,
	}
	if err := ob.Enqueue(ctx, notify.ConfirmationMessage(conf, req.CorrelationID)); err != nil {
		return err
	}

	dealer := notify.DealerRequest{
		OrderID:  res.OrderID(),
		DealerID: orders[0].DealerID,
		Data:     notify.OrderData{Customer: customer, Items: items},
	}
	return ob.Enqueue(ctx, notify.DealerMessage(dealer, req.CorrelationID))
}
