package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type inventoryService struct {
	pool *pgxpool.Pool
}

// NewInventoryService constructs an InventoryService backed by PostgreSQL.
func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

const snapshotSelect = `
	SELECT s.id, s.company_id, s.sku_code, COALESCE(k.name, ''), s.as_of, s.book_qty, s.physical_qty,
	       s.variance_qty, s.unit_cost, s.variance_value, s.created_at
	FROM inventory_snapshots s
	LEFT JOIN skus k ON k.company_id = s.company_id AND k.code = s.sku_code`

func scanSnapshot(row pgx.Row) (*InventorySnapshot, error) {
	s := &InventorySnapshot{}
	if err := row.Scan(&s.ID, &s.CompanyID, &s.SKUCode, &s.SKUName, &s.AsOf, &s.BookQty, &s.PhysicalQty,
		&s.VarianceQty, &s.UnitCost, &s.VarianceValue, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordSnapshot stores a count. A second count for the same SKU and date replaces the first.
func (s *inventoryService) RecordSnapshot(ctx context.Context, companyID int, input SnapshotInput) (*InventorySnapshot, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var skuExists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM skus WHERE company_id = $1 AND code = $2)",
		companyID, input.SKUCode,
	).Scan(&skuExists); err != nil {
		return nil, fmt.Errorf("validate sku: %w", err)
	}
	if !skuExists {
		return nil, notFound("sku", input.SKUCode)
	}

	varianceQty, varianceValue := StockVariance(input.BookQty, input.PhysicalQty, input.UnitCost)
	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO inventory_snapshots (company_id, sku_code, as_of, book_qty, physical_qty,
		                                 variance_qty, unit_cost, variance_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, sku_code, as_of) DO UPDATE
		SET book_qty = EXCLUDED.book_qty, physical_qty = EXCLUDED.physical_qty,
		    variance_qty = EXCLUDED.variance_qty, unit_cost = EXCLUDED.unit_cost,
		    variance_value = EXCLUDED.variance_value
		RETURNING id`,
		companyID, input.SKUCode, input.AsOf, input.BookQty, input.PhysicalQty,
		varianceQty, input.UnitCost, varianceValue,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("record snapshot for %s: %w", input.SKUCode, err)
	}

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, snapshotSelect+" WHERE s.id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("reload snapshot %d: %w", id, err)
	}
	return snap, nil
}

// ListSnapshots returns counts, latest date first, largest shortfall value first within a date.
func (s *inventoryService) ListSnapshots(ctx context.Context, companyID int, filter SnapshotFilter) ([]InventorySnapshot, error) {
	query := snapshotSelect + " WHERE s.company_id = $1"
	args := []any{companyID}
	if filter.SKUCode != "" {
		args = append(args, filter.SKUCode)
		query += fmt.Sprintf(" AND s.sku_code = $%d", len(args))
	}
	if filter.AsOf != nil {
		args = append(args, *filter.AsOf)
		query += fmt.Sprintf(" AND s.as_of = $%d", len(args))
	}
	if filter.VarianceOnly {
		query += " AND s.variance_qty <> 0"
	}
	query += " ORDER BY s.as_of DESC, s.variance_value, s.sku_code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory snapshots: %w", err)
	}
	defer rows.Close()

	var out []InventorySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}
