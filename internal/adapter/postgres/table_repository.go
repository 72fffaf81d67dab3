package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type tableRepository struct {
	db DB
}

func NewTableRepository(db DB) interfaces.TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) Upsert(ctx context.Context, table *domain.Table) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO restaurant_tables (label, capacity, zone)
		VALUES ($1, $2, $3)
		ON CONFLICT (label) DO UPDATE SET capacity = EXCLUDED.capacity, zone = EXCLUDED.zone
		RETURNING id
	`, table.Label, table.Capacity, table.Zone).Scan(&table.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert table %s: %w", table.Label, err)
	}
	return nil
}

func (r *tableRepository) ListAll(ctx context.Context) ([]*domain.Table, error) {
	rows, err := r.db.Query(ctx, `SELECT id, label, capacity, zone FROM restaurant_tables ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []*domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.Label, &t.Capacity, &t.Zone); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, &t)
	}
	return tables, rows.Err()
}
