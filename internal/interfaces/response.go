package interfaces

import (
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
)

// Ответы API
type OrderResponse struct {
	ID                   int64               `json:"id"`
	Number               string              `json:"no"`
	Status               domain.OrderStatus  `json:"status"`
	DeliveryMode         domain.DeliveryMode `json:"delivery_mode"`
	PaymentMode          domain.PaymentMode  `json:"payment_mode"`
	DeliveryAddress      *string             `json:"delivery_address,omitempty"`
	DeliveryZip          *string             `json:"delivery_zip,omitempty"`
	DeliveryInstructions *string             `json:"delivery_instructions,omitempty"`
	Subtotal             string              `json:"subtotal"`
	TaxAmount            string              `json:"tax_amount"`
	DeliveryFee          string              `json:"delivery_fee"`
	Total                string              `json:"total"`
	Items                []OrderItemResponse `json:"items"`
	CreatedAt            time.Time           `json:"created_at"`
}

type OrderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
}

func NewOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   domain.FormatMoney(item.UnitPrice),
			Quantity:    item.Quantity,
			Total:       domain.FormatMoney(item.Total),
		}
	}

	return OrderResponse{
		ID:                   o.ID,
		Number:               o.Number,
		Status:               o.Status,
		DeliveryMode:         o.DeliveryMode,
		PaymentMode:          o.PaymentMode,
		DeliveryAddress:      o.DeliveryAddress,
		DeliveryZip:          o.DeliveryZip,
		DeliveryInstructions: o.DeliveryInstructions,
		Subtotal:             domain.FormatMoney(o.Subtotal),
		TaxAmount:            domain.FormatMoney(o.TaxAmount),
		DeliveryFee:          domain.FormatMoney(o.DeliveryFee),
		Total:                domain.FormatMoney(o.Total),
		Items:                items,
		CreatedAt:            o.CreatedAt.UTC(),
	}
}

type ReservationResponse struct {
	ID                  int64                    `json:"id"`
	Name                string                   `json:"name"`
	Email               string                   `json:"email,omitempty"`
	Phone               string                   `json:"phone,omitempty"`
	Date                string                   `json:"date"`
	Time                string                   `json:"time"`
	Guests              int                      `json:"guests"`
	Message             string                   `json:"message,omitempty"`
	Status              domain.ReservationStatus `json:"status"`
	IsConfirmed         bool                     `json:"is_confirmed"`
	ConfirmedAt         *time.Time               `json:"confirmed_at,omitempty"`
	ConfirmationMessage *string                  `json:"confirmation_message,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
}

func NewReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                  r.ID,
		Name:                r.Name,
		Email:               r.Email,
		Phone:               r.Phone,
		Date:                r.Date.Format(time.DateOnly),
		Time:                r.Time.String(),
		Guests:              r.Guests,
		Message:             r.Message,
		Status:              r.Status,
		IsConfirmed:         r.IsConfirmed,
		ConfirmedAt:         r.ConfirmedAt,
		ConfirmationMessage: r.ConfirmationMessage,
		CreatedAt:           r.CreatedAt.UTC(),
	}
}

type AvailabilityResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Guests    int    `json:"guests"`
	Booked    int    `json:"booked"`
	Capacity  int    `json:"capacity"`
	Available bool   `json:"available"`
}

func NewAvailabilityResponse(a *Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Date:      a.Date.Format(time.DateOnly),
		Time:      a.Slot.String(),
		Guests:    a.Requested,
		Booked:    a.Booked,
		Capacity:  a.Capacity,
		Available: a.Available,
	}
}

type StatusLogResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy string    `json:"changed_by"`
	Notes     *string   `json:"notes,omitempty"`
}

func NewStatusLogResponse(logs []*domain.StatusLog) []StatusLogResponse {
	resp := make([]StatusLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = StatusLogResponse{
			Status:    l.Status,
			Timestamp: l.ChangedAt.UTC(),
			ChangedBy: l.ChangedBy,
			Notes:     l.Notes,
		}
	}
	return resp
}

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error     string              `json:"error"`
	Code      string              `json:"code,omitempty"`
	Errors    []domain.FieldError `json:"errors,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}
