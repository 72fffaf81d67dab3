package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"github.com/shopspring/decimal"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

// Money crosses the wire as text so no amount ever passes through a float.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return inTx(ctx, r.db, func(tx Tx) error {
		query := `
			INSERT INTO orders (no, status, delivery_mode, payment_mode,
			                    client_first_name, client_last_name, client_email, client_phone,
			                    delivery_address, delivery_zip, delivery_instructions,
			                    subtotal, tax_amount, delivery_fee, total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			        $12::text::numeric, $13::text::numeric, $14::text::numeric, $15::text::numeric, $16, $17)
			RETURNING id
		`
		err := tx.QueryRow(ctx, query,
			order.Number, order.Status, order.DeliveryMode, order.PaymentMode,
			order.Client.FirstName, order.Client.LastName, order.Client.Email, order.Client.Phone,
			order.DeliveryAddress, order.DeliveryZip, order.DeliveryInstructions,
			domain.FormatMoney(order.Subtotal), domain.FormatMoney(order.TaxAmount),
			domain.FormatMoney(order.DeliveryFee), domain.FormatMoney(order.Total),
			order.CreatedAt, order.UpdatedAt,
		).Scan(&order.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderNumber, order.Number)
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if err := insertItems(ctx, tx, order); err != nil {
			return err
		}
		return logOrderStatus(ctx, tx, order.ID, order.Status, "order-service", order.CreatedAt)
	})
}

func insertItems(ctx context.Context, tx Tx, order *domain.Order) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, total)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6::text::numeric)
		RETURNING id
	`
	for i := range order.Items {
		item := &order.Items[i]
		err := tx.QueryRow(ctx, query,
			order.ID, item.ProductID, item.ProductName,
			domain.FormatMoney(item.UnitPrice), item.Quantity, domain.FormatMoney(item.Total),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		item.OrderID = order.ID
	}
	return nil
}

func logOrderStatus(ctx context.Context, q Querier, orderID int64, status domain.OrderStatus, changedBy string, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, orderID, status, changedBy, at)
	if err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `
		SELECT id, no, status, delivery_mode, payment_mode,
		       client_first_name, client_last_name, client_email, client_phone,
		       delivery_address, delivery_zip, delivery_instructions,
		       subtotal::text, tax_amount::text, delivery_fee::text, total::text,
		       created_at, updated_at
		FROM orders
		WHERE no = $1
	`

	var (
		order                     domain.Order
		subtotal, tax, fee, total string
	)
	err := r.db.QueryRow(ctx, query, number).Scan(
		&order.ID, &order.Number, &order.Status, &order.DeliveryMode, &order.PaymentMode,
		&order.Client.FirstName, &order.Client.LastName, &order.Client.Email, &order.Client.Phone,
		&order.DeliveryAddress, &order.DeliveryZip, &order.DeliveryInstructions,
		&subtotal, &tax, &fee, &total,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Subtotal, err = parseMoney(subtotal); err != nil {
		return nil, err
	}
	if order.TaxAmount, err = parseMoney(tax); err != nil {
		return nil, err
	}
	if order.DeliveryFee, err = parseMoney(fee); err != nil {
		return nil, err
	}
	if order.Total, err = parseMoney(total); err != nil {
		return nil, err
	}

	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price::text, quantity, total::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item         domain.OrderItem
			price, total string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &price, &item.Quantity, &total); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		if item.Total, err = parseMoney(total); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, changedBy string) error {
	return inTx(ctx, r.db, func(tx Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			UPDATE orders SET status = $1, updated_at = $2
			WHERE no = $3 AND status = $4
			RETURNING id
		`, order.Status, order.UpdatedAt, order.Number, from).Scan(&id)
		if err != nil {
			if isNoRows(err) {
				return r.statusConflict(ctx, tx, order.Number, from)
			}
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return logOrderStatus(ctx, tx, id, order.Status, changedBy, order.UpdatedAt)
	})
}

// statusConflict tells a missing order from one whose status moved on.
func (r *orderRepository) statusConflict(ctx context.Context, q Querier, number string, expected domain.OrderStatus) error {
	var current domain.OrderStatus
	err := q.QueryRow(ctx, `SELECT status FROM orders WHERE no = $1`, number).Scan(&current)
	if isNoRows(err) {
		return fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load order status: %w", err)
	}
	return fmt.Errorf("%w: order %s is %s, expected %s", domain.ErrInvalidStatusTransition, number, current, expected)
}

func (r *orderRepository) ReplaceItems(ctx context.Context, order *domain.Order) error {
	return inTx(ctx, r.db, func(tx Tx) error {
		var status domain.OrderStatus
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, order.ID).Scan(&status)
		if err != nil {
			if isNoRows(err) {
				return fmt.Errorf("order %s: %w", order.Number, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if status != domain.OrderStatusPending {
			return domain.ErrOrderNotEditable
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := insertItems(ctx, tx, order); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET subtotal = $1::text::numeric, tax_amount = $2::text::numeric,
			    delivery_fee = $3::text::numeric, total = $4::text::numeric, updated_at = $5
			WHERE id = $6
		`, domain.FormatMoney(order.Subtotal), domain.FormatMoney(order.TaxAmount),
			domain.FormatMoney(order.DeliveryFee), domain.FormatMoney(order.Total),
			order.UpdatedAt, order.ID)
		if err != nil {
			return fmt.Errorf("failed to update order totals: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error) {
	return statusHistory(ctx, r.db, `
		SELECT id, order_id, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`, orderID)
}

func statusHistory(ctx context.Context, q Querier, query string, subjectID int64) ([]*domain.StatusLog, error) {
	rows, err := q.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var log domain.StatusLog
		if err := rows.Scan(&log.ID, &log.SubjectID, &log.Status, &log.ChangedBy, &log.ChangedAt, &log.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return d, nil
}
