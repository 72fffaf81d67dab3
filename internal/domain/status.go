package domain

import "time"

type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "delivery"
	DeliveryModePickup   DeliveryMode = "pickup"
)

func (m DeliveryMode) Valid() bool {
	return m == DeliveryModeDelivery || m == DeliveryModePickup
}

type PaymentMode string

const (
	PaymentModeCard    PaymentMode = "card"
	PaymentModeCash    PaymentMode = "cash"
	PaymentModeTickets PaymentMode = "tickets"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCard, PaymentModeCash, PaymentModeTickets:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// orderCycle is the manual click-to-cycle sequence used by the admin screen.
var orderCycle = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo checks the allowed-edges table.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// NextOrderStatus returns the status after s in the admin cycle, wrapping at
// the end. Unknown statuses reset to pending.
func NextOrderStatus(s OrderStatus) OrderStatus {
	for i, st := range orderCycle {
		if st == s {
			return orderCycle[(i+1)%len(orderCycle)]
		}
	}
	return OrderStatusPending
}

// StatusLog represents a log entry for order or reservation status changes
type StatusLog struct {
	ID        int64
	SubjectID int64
	Status    string
	ChangedBy string
	ChangedAt time.Time
	Notes     *string
}
