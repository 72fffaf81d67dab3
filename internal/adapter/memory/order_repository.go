package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type orderRepository struct {
	mu       sync.RWMutex
	byNumber map[string]*domain.Order
	logs     map[int64][]*domain.StatusLog
	nextID   int64
	nextItem int64
	nextLog  int64
}

// NewOrderRepository returns a process-local order store.
func NewOrderRepository() interfaces.OrderRepository {
	return &orderRepository{
		byNumber: make(map[string]*domain.Order),
		logs:     make(map[int64][]*domain.StatusLog),
	}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[order.Number]; exists {
		return domain.ErrDuplicateOrderNumber
	}

	r.nextID++
	order.ID = r.nextID
	for i := range order.Items {
		r.nextItem++
		order.Items[i].ID = r.nextItem
		order.Items[i].OrderID = order.ID
	}

	r.byNumber[order.Number] = cloneOrder(order)
	r.appendLog(order.ID, string(order.Status), "order-service", order.CreatedAt)
	return nil
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
	}
	return cloneOrder(order), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byNumber[order.Number]
	if !ok {
		return fmt.Errorf("order %s: %w", order.Number, domain.ErrNotFound)
	}
	if stored.Status != from {
		return fmt.Errorf("%w: order %s is %s, expected %s", domain.ErrInvalidStatusTransition, order.Number, stored.Status, from)
	}

	stored.Status = order.Status
	stored.UpdatedAt = order.UpdatedAt
	r.appendLog(stored.ID, string(order.Status), changedBy, order.UpdatedAt)
	return nil
}

func (r *orderRepository) ReplaceItems(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byNumber[order.Number]
	if !ok {
		return fmt.Errorf("order %s: %w", order.Number, domain.ErrNotFound)
	}
	if stored.Status != domain.OrderStatusPending {
		return domain.ErrOrderNotEditable
	}

	for i := range order.Items {
		r.nextItem++
		order.Items[i].ID = r.nextItem
		order.Items[i].OrderID = stored.ID
	}

	updated := cloneOrder(order)
	updated.Status = stored.Status
	r.byNumber[order.Number] = updated
	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.logs[orderID]
	out := make([]*domain.StatusLog, len(logs))
	for i, l := range logs {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

func (r *orderRepository) appendLog(orderID int64, status, changedBy string, at time.Time) {
	r.nextLog++
	r.logs[orderID] = append(r.logs[orderID], &domain.StatusLog{
		ID:        r.nextLog,
		SubjectID: orderID,
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: at,
	})
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}
