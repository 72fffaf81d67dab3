package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/shopspring/decimal"
)

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*StoredResponse, error)
	GetOrder(ctx context.Context, number string) (*domain.Order, error)
	GetOrderHistory(ctx context.Context, number string) ([]*domain.StatusLog, error)
	AdvanceStatus(ctx context.Context, number, changedBy string) (*domain.Order, error)
	TransitionStatus(ctx context.Context, number string, target domain.OrderStatus, changedBy string) (*domain.Order, error)
	ReplaceItems(ctx context.Context, number string, items []CreateOrderItemCommand) (*domain.Order, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, cmd CreateReservationCommand) (*ReservationResult, error)
	CheckAvailability(ctx context.Context, date time.Time, slot domain.Slot, guests int) (*Availability, error)
	DaySheet(ctx context.Context, date time.Time) ([]*Availability, error)
	GetReservation(ctx context.Context, id int64) (*domain.Reservation, error)
	GetReservationHistory(ctx context.Context, id int64) ([]*domain.StatusLog, error)
	Confirm(ctx context.Context, id int64, message, changedBy string) (*domain.Reservation, error)
	Cancel(ctx context.Context, id int64, changedBy string) (*domain.Reservation, error)
	Advance(ctx context.Context, id int64, changedBy string) (*domain.Reservation, error)
}

// Команды для сервисов
type CreateOrderCommand struct {
	IdempotencyKey       string                   `json:"-"`
	DeliveryMode         string                   `json:"delivery_mode"`
	PaymentMode          string                   `json:"payment_mode"`
	FirstName            string                   `json:"first_name"`
	LastName             string                   `json:"last_name"`
	Email                string                   `json:"email"`
	Phone                string                   `json:"phone"`
	DeliveryAddress      *string                  `json:"delivery_address,omitempty"`
	DeliveryZip          *string                  `json:"delivery_zip,omitempty"`
	DeliveryInstructions *string                  `json:"delivery_instructions,omitempty"`
	DeliveryFee          *decimal.Decimal         `json:"delivery_fee,omitempty"`
	Items                []CreateOrderItemCommand `json:"items"`
}

// Fingerprint identifies the payload independently of the idempotency key.
func (c CreateOrderCommand) Fingerprint() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return domain.HashKey(raw), nil
}

type CreateOrderItemCommand struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CreateReservationCommand struct {
	Name    string
	Email   string
	Phone   string
	Date    time.Time
	Time    domain.Slot
	Guests  int
	Message string
}

// StoredResponse is a rendered response as kept by the idempotency cache.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// Availability is the outcome of a capacity-aggregate check.
type Availability struct {
	Date      time.Time
	Slot      domain.Slot
	Requested int
	Booked    int
	Capacity  int
	Available bool
}

// ReservationResult is returned by the public booking path. Availability is
// informational; nil when the check itself failed.
type ReservationResult struct {
	Reservation  *domain.Reservation
	Availability *Availability
}
