package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

func validOrderParams() NewOrderParams {
	addr := "12 rue de la Paix"
	return NewOrderParams{
		DeliveryMode:    DeliveryModeDelivery,
		PaymentMode:     PaymentModeCard,
		Client:          ClientInfo{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		DeliveryAddress: &addr,
		Items: []OrderItem{
			{ProductID: 1, ProductName: "Margherita", UnitPrice: d("12.50"), Quantity: 2},
			{ProductID: 2, ProductName: "Tiramisu", UnitPrice: d("7.00"), Quantity: 1},
		},
		DeliveryFee: d("5.00"),
		Now:         testNow,
	}
}

func TestNewOrder(t *testing.T) {
	order, err := NewOrder(validOrderParams())
	if err != nil {
		t.Fatalf("NewOrder error: %v", err)
	}
	if order.Status != OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if FormatMoney(order.Total) != "40.20" {
		t.Fatalf("total = %s, want 40.20", FormatMoney(order.Total))
	}
	if FormatMoney(order.Items[0].Total) != "25.00" {
		t.Fatalf("line total = %s, want 25.00", FormatMoney(order.Items[0].Total))
	}
}

func TestNewOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *NewOrderParams)
		field  string
	}{
		{"unknown delivery mode", func(p *NewOrderParams) { p.DeliveryMode = "drone" }, "delivery_mode"},
		{"unknown payment mode", func(p *NewOrderParams) { p.PaymentMode = "bitcoin" }, "payment_mode"},
		{"delivery without address", func(p *NewOrderParams) { p.DeliveryAddress = nil }, "delivery_address"},
		{"negative fee", func(p *NewOrderParams) { p.DeliveryFee = d("-1") }, "delivery_fee"},
		{"zero quantity", func(p *NewOrderParams) { p.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(p *NewOrderParams) { p.Items[1].UnitPrice = d("-0.01") }, "items[1].price"},
		{"missing name", func(p *NewOrderParams) { p.Items[1].ProductName = "" }, "items[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validOrderParams()
			tt.mutate(&p)

			_, err := NewOrder(p)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			found := false
			for _, fe := range verrs {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("field %s not reported in %v", tt.field, verrs)
			}
		})
	}
}

func TestNewOrderEmptyCart(t *testing.T) {
	p := validOrderParams()
	p.Items = nil
	if _, err := NewOrder(p); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("error = %v, want ErrEmptyCart", err)
	}
}

func TestPickupNeedsNoAddress(t *testing.T) {
	p := validOrderParams()
	p.DeliveryMode = DeliveryModePickup
	p.DeliveryAddress = nil
	if _, err := NewOrder(p); err != nil {
		t.Fatalf("pickup order rejected: %v", err)
	}
}

func TestOrderTransitions(t *testing.T) {
	order, _ := NewOrder(validOrderParams())

	if err := order.TransitionTo(OrderStatusDelivered, testNow); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("pending -> delivered error = %v, want ErrInvalidStatusTransition", err)
	}
	if order.Status != OrderStatusPending {
		t.Fatalf("status changed on rejected transition: %s", order.Status)
	}

	for _, next := range []OrderStatus{OrderStatusConfirmed, OrderStatusPreparing, OrderStatusDelivered} {
		if err := order.TransitionTo(next, testNow); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !order.Status.IsTerminal() {
		t.Fatalf("delivered should be terminal")
	}
	if err := order.TransitionTo(OrderStatusCancelled, testNow); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("delivered -> cancelled error = %v", err)
	}
}

func TestNextOrderStatusWraps(t *testing.T) {
	tests := []struct {
		from OrderStatus
		want OrderStatus
	}{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusConfirmed, OrderStatusPreparing},
		{OrderStatusPreparing, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		{"bogus", OrderStatusPending},
	}
	for _, tt := range tests {
		if got := NextOrderStatus(tt.from); got != tt.want {
			t.Errorf("NextOrderStatus(%s) = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestReplaceItems(t *testing.T) {
	order, _ := NewOrder(validOrderParams())

	err := order.ReplaceItems([]OrderItem{{ProductName: "Calzone", UnitPrice: d("3.33"), Quantity: 3}}, testNow)
	if err != nil {
		t.Fatalf("ReplaceItems error: %v", err)
	}
	if FormatMoney(order.Subtotal) != "9.99" || FormatMoney(order.TaxAmount) != "1.00" {
		t.Fatalf("totals not recomputed: subtotal=%s tax=%s", order.Subtotal, order.TaxAmount)
	}

	if err := order.ReplaceItems([]OrderItem{{ProductName: "", UnitPrice: d("1"), Quantity: 1}}, testNow); err == nil {
		t.Fatalf("invalid items accepted")
	}
	if order.Items[0].ProductName != "Calzone" {
		t.Fatalf("items changed on rejected replace")
	}

	_ = order.TransitionTo(OrderStatusConfirmed, testNow)
	if err := order.ReplaceItems(order.Items, testNow); !errors.Is(err, ErrOrderNotEditable) {
		t.Fatalf("error = %v, want ErrOrderNotEditable", err)
	}
}

func TestFormatOrderNumber(t *testing.T) {
	if got := FormatOrderNumber(testNow, 42); got != "ORD-A-20260314-0042" {
		t.Fatalf("FormatOrderNumber = %s", got)
	}
}

func TestOrderTransitionMatrix(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusDelivered, OrderStatusCancelled}
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
		OrderStatusConfirmed: {OrderStatusPreparing: true, OrderStatusCancelled: true},
		OrderStatusPreparing: {OrderStatusDelivered: true, OrderStatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			o := &Order{Status: from}
			err := o.TransitionTo(to, testNow)
			if allowed[from][to] {
				if err != nil || o.Status != to {
					t.Errorf("%s -> %s: err=%v status=%s, want allowed", from, to, err, o.Status)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("%s -> %s: err=%v, want ErrInvalidStatusTransition", from, to, err)
			}
			if o.Status != from {
				t.Errorf("%s -> %s: status changed to %s on rejection", from, to, o.Status)
			}
		}
	}
}
