package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a customer order with its priced items
type Order struct {
	ID                   int64
	Number               string
	Status               OrderStatus
	DeliveryMode         DeliveryMode
	PaymentMode          PaymentMode
	Client               ClientInfo
	DeliveryAddress      *string
	DeliveryZip          *string
	DeliveryInstructions *string
	Items                []OrderItem
	Subtotal             decimal.Decimal
	TaxAmount            decimal.Decimal
	DeliveryFee          decimal.Decimal
	Total                decimal.Decimal
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ClientInfo is the contact data captured with an order.
type ClientInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// OrderItem is a snapshot of a menu product at ordering time. Later menu
// price changes never touch it.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Total       decimal.Decimal
}

// NewOrderParams carries everything needed to build a pending order.
type NewOrderParams struct {
	Number               string
	DeliveryMode         DeliveryMode
	PaymentMode          PaymentMode
	Client               ClientInfo
	DeliveryAddress      *string
	DeliveryZip          *string
	DeliveryInstructions *string
	Items                []OrderItem
	DeliveryFee          decimal.Decimal
	Now                  time.Time
}

// NewOrder creates a pending order with totals applied
func NewOrder(p NewOrderParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrEmptyCart
	}

	order := &Order{
		Number:               p.Number,
		Status:               OrderStatusPending,
		DeliveryMode:         p.DeliveryMode,
		PaymentMode:          p.PaymentMode,
		Client:               p.Client,
		DeliveryAddress:      p.DeliveryAddress,
		DeliveryZip:          p.DeliveryZip,
		DeliveryInstructions: p.DeliveryInstructions,
		Items:                append([]OrderItem(nil), p.Items...),
		DeliveryFee:          p.DeliveryFee,
		CreatedAt:            p.Now,
		UpdatedAt:            p.Now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.CalculateTotals()
	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	var errs ValidationErrors

	if !o.DeliveryMode.Valid() {
		errs.Add("delivery_mode", "delivery mode must be one of: delivery, pickup")
	}
	if !o.PaymentMode.Valid() {
		errs.Add("payment_mode", "payment mode must be one of: card, cash, tickets")
	}
	if o.DeliveryMode == DeliveryModeDelivery && (o.DeliveryAddress == nil || *o.DeliveryAddress == "") {
		errs.Add("delivery_address", "delivery address is required for delivery orders")
	}
	if o.DeliveryFee.IsNegative() {
		errs.Add("delivery_fee", "delivery fee must not be negative")
	}

	for i, item := range o.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.ProductName == "" {
			errs.Add(prefix+".name", "item name is required")
		}
		if item.Quantity < 1 {
			errs.Add(prefix+".quantity", "item quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			errs.Add(prefix+".price", "item price must not be negative")
		}
	}

	return errs.Err()
}

// CalculateTotals recomputes line totals and the order money fields.
func (o *Order) CalculateTotals() {
	lines := make([]LineItem, len(o.Items))
	for i := range o.Items {
		o.Items[i].Total = LineTotal(o.Items[i].UnitPrice, o.Items[i].Quantity)
		lines[i] = LineItem{UnitPrice: o.Items[i].UnitPrice, Quantity: o.Items[i].Quantity}
	}

	totals := CalculateTotals(lines, o.DeliveryFee)
	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.TaxAmount
	o.DeliveryFee = totals.DeliveryFee
	o.Total = totals.Total
}

// ReplaceItems swaps the order lines and recomputes totals. Only pending
// orders are editable.
func (o *Order) ReplaceItems(items []OrderItem, now time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotEditable
	}
	if len(items) == 0 {
		return ErrEmptyCart
	}

	previous := o.Items
	o.Items = append([]OrderItem(nil), items...)
	if err := o.Validate(); err != nil {
		o.Items = previous
		return err
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	o.CalculateTotals()
	o.UpdatedAt = now
	return nil
}

// TransitionTo moves the order to target if the edge is allowed.
func (o *Order) TransitionTo(target OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// Advance applies the manual admin cycle and returns the new status.
func (o *Order) Advance(now time.Time) OrderStatus {
	o.Status = NextOrderStatus(o.Status)
	o.UpdatedAt = now
	return o.Status
}

// FormatOrderNumber builds ORD-A-<YYYYMMDD>-<NNNN>.
func FormatOrderNumber(at time.Time, suffix int) string {
	return fmt.Sprintf("ORD-A-%s-%04d", at.Format("20060102"), suffix%10000)
}
