package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/app/idempotency"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxNumberAttempts = 3

type Options struct {
	DefaultDeliveryFee decimal.Decimal
	// Now and NumberSuffix default to time.Now and a random 0-9999 draw.
	Now          func() time.Time
	NumberSuffix func() int
}

type Service struct {
	repo        interfaces.OrderRepository
	guard       *idempotency.Guard
	publisher   interfaces.NotificationPublisher
	logger      logger.Logger
	deliveryFee decimal.Decimal
	now         func() time.Time
	suffix      func() int
}

func NewService(
	repo interfaces.OrderRepository,
	guard *idempotency.Guard,
	publisher interfaces.NotificationPublisher,
	logger logger.Logger,
	opts Options,
) *Service {
	s := &Service{
		repo:        repo,
		guard:       guard,
		publisher:   publisher,
		logger:      logger,
		deliveryFee: opts.DefaultDeliveryFee,
		now:         opts.Now,
		suffix:      opts.NumberSuffix,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.suffix == nil {
		s.suffix = func() int { return rand.IntN(10000) }
	}
	return s
}

// CreateOrder turns a resolved cart into a persisted pending order. With an
// idempotency key, a retried request gets the first response back verbatim.
func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*interfaces.StoredResponse, error) {
	fingerprint, err := cmd.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint request: %w", err)
	}

	return s.guard.Do(ctx, cmd.IdempotencyKey, fingerprint, func(ctx context.Context) (*interfaces.StoredResponse, error) {
		order, err := s.createOrder(ctx, cmd)
		if err != nil {
			var verrs domain.ValidationErrors
			switch {
			case errors.As(err, &verrs):
				return renderError(http.StatusBadRequest, "Validation failed", "validation_failed", verrs)
			case errors.Is(err, domain.ErrEmptyCart):
				return renderError(http.StatusBadRequest, "Cart is empty", "empty_cart", domain.ValidationErrors{
					{Field: "items", Message: "order must contain at least 1 item"},
				})
			default:
				return nil, err
			}
		}

		body, err := json.Marshal(interfaces.NewOrderResponse(order))
		if err != nil {
			return nil, fmt.Errorf("failed to render order: %w", err)
		}
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated, Body: body}, nil
	})
}

func (s *Service) createOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	now := s.now()
	mode := domain.DeliveryMode(cmd.DeliveryMode)

	order, err := domain.NewOrder(domain.NewOrderParams{
		DeliveryMode: mode,
		PaymentMode:  domain.PaymentMode(cmd.PaymentMode),
		Client: domain.ClientInfo{
			FirstName: cmd.FirstName,
			LastName:  cmd.LastName,
			Email:     cmd.Email,
			Phone:     cmd.Phone,
		},
		DeliveryAddress:      cmd.DeliveryAddress,
		DeliveryZip:          cmd.DeliveryZip,
		DeliveryInstructions: cmd.DeliveryInstructions,
		Items:                toDomainItems(cmd.Items),
		DeliveryFee:          s.resolveDeliveryFee(mode, cmd.DeliveryFee),
		Now:                  now,
	})
	if err != nil {
		s.logger.Debug("validation_failed", "Order validation failed", "", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		order.Number = domain.FormatOrderNumber(now, s.suffix())

		err = s.repo.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) || attempt == maxNumberAttempts {
			s.logger.Error("db_transaction_failed", "Failed to create order", "", map[string]interface{}{
				"attempt": attempt,
			}, err)
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn("order_number_collision", "Order number already taken, retrying", "", map[string]interface{}{
			"order_number": order.Number,
			"attempt":      attempt,
		}, err)
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %s created", order.Number), "", map[string]interface{}{
		"order_number": order.Number,
		"total":        domain.FormatMoney(order.Total),
	})

	s.notify(ctx, interfaces.NotificationEvent{
		Kind:        interfaces.NotificationOrderCreated,
		OrderNumber: order.Number,
		NewStatus:   string(order.Status),
		Recipient:   recipientOf(order),
	})

	return order, nil
}

func (s *Service) resolveDeliveryFee(mode domain.DeliveryMode, explicit *decimal.Decimal) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	if mode == domain.DeliveryModeDelivery {
		return s.deliveryFee
	}
	return decimal.Zero
}

func (s *Service) GetOrder(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.FindByNumber(ctx, number)
}

func (s *Service) GetOrderHistory(ctx context.Context, number string) ([]*domain.StatusLog, error) {
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, order.ID)
}

// AdvanceStatus applies the admin click-to-cycle step.
func (s *Service) AdvanceStatus(ctx context.Context, number, changedBy string) (*domain.Order, error) {
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	from := order.Status
	order.Advance(s.now())
	return s.storeStatus(ctx, order, from, changedBy)
}

// TransitionStatus moves the order along an allowed edge only.
func (s *Service) TransitionStatus(ctx context.Context, number string, target domain.OrderStatus, changedBy string) (*domain.Order, error) {
	if !target.Valid() {
		return nil, domain.ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown order status %q", target)}}
	}

	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := order.TransitionTo(target, s.now()); err != nil {
		return nil, err
	}
	return s.storeStatus(ctx, order, from, changedBy)
}

func (s *Service) storeStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, changedBy string) (*domain.Order, error) {
	if err := s.repo.UpdateStatus(ctx, order, from, changedBy); err != nil {
		return nil, err
	}

	s.logger.Info("order_status_changed", fmt.Sprintf("Order %s: %s -> %s", order.Number, from, order.Status), "", map[string]interface{}{
		"order_number": order.Number,
		"old_status":   from,
		"new_status":   order.Status,
		"changed_by":   changedBy,
	})

	s.notify(ctx, interfaces.NotificationEvent{
		Kind:        interfaces.NotificationOrderStatusChanged,
		OrderNumber: order.Number,
		OldStatus:   string(from),
		NewStatus:   string(order.Status),
		ChangedBy:   changedBy,
		Recipient:   recipientOf(order),
	})
	return order, nil
}

// ReplaceItems swaps the lines of a pending order and recomputes its totals.
func (s *Service) ReplaceItems(ctx context.Context, number string, items []interfaces.CreateOrderItemCommand) (*domain.Order, error) {
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	if err := order.ReplaceItems(toDomainItems(items), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceItems(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order_items_replaced", fmt.Sprintf("Order %s items replaced", order.Number), "", map[string]interface{}{
		"order_number": order.Number,
		"total":        domain.FormatMoney(order.Total),
	})
	return order, nil
}

// notify publishes after the write committed; failures never reach the caller.
func (s *Service) notify(ctx context.Context, event interfaces.NotificationEvent) {
	event.ID = uuid.NewString()
	event.OccurredAt = s.now().UTC()

	if err := s.publisher.PublishNotification(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("notification_publish_failed", "Failed to publish notification", "", map[string]interface{}{
			"kind":         event.Kind,
			"order_number": event.OrderNumber,
		}, err)
	}
}

func toDomainItems(items []interfaces.CreateOrderItemCommand) []domain.OrderItem {
	result := make([]domain.OrderItem, len(items))
	for i, item := range items {
		result[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			UnitPrice:   item.Price,
			Quantity:    item.Quantity,
		}
	}
	return result
}

func recipientOf(o *domain.Order) interfaces.Recipient {
	return interfaces.Recipient{
		Name:  o.Client.FirstName + " " + o.Client.LastName,
		Email: o.Client.Email,
		Phone: o.Client.Phone,
	}
}

func renderError(status int, message, code string, fields domain.ValidationErrors) (*interfaces.StoredResponse, error) {
	body, err := json.Marshal(interfaces.ErrorResponse{
		Error:  message,
		Code:   code,
		Errors: fields,
	})
	if err != nil {
		return nil, err
	}
	return &interfaces.StoredResponse{StatusCode: status, Body: body}, nil
}
