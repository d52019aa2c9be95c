package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ItemService manages the inventory catalog. Stock arithmetic lives in
// AvailabilityService; this service covers CRUD and the operational-status
// sweep.
type ItemService interface {
	Create(ctx context.Context, in CreateItemInput) (*Item, error)
	Get(ctx context.Context, itemID int) (*Item, error)
	// List returns items filtered by category and/or a case-insensitive
	// search over name, brand and SKU. Empty filters match everything.
	List(ctx context.Context, category, search string) ([]Item, error)
	UpdateStatus(ctx context.Context, itemID int, status ItemStatus) (*Item, error)
	// RefreshStatuses re-runs the status recompute hook over the whole
	// catalog in one transaction.
	RefreshStatuses(ctx context.Context) (int, error)
}

// CreateItemInput carries the fields for a new catalog entry. SKU is
// generated, not supplied.
type CreateItemInput struct {
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Description   string           `json:"description"`
	Quantity      int              `json:"quantity"`
	Status        ItemStatus       `json:"status"`
	Location      string           `json:"location"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Supplier      string           `json:"supplier"`
	Notes         string           `json:"notes"`
}

type itemService struct {
	pool   *pgxpool.Pool
	recalc StatusRecalculator
}

// NewItemService constructs an ItemService backed by PostgreSQL.
func NewItemService(pool *pgxpool.Pool, recalc StatusRecalculator) ItemService {
	return &itemService{pool: pool, recalc: recalc}
}

const itemColumns = `id, COALESCE(sku, ''), name, category, COALESCE(brand, ''),
	COALESCE(description, ''), quantity, status, COALESCE(location, ''),
	purchase_price, purchase_date, COALESCE(supplier, ''), COALESCE(notes, ''),
	created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Category, &it.Brand,
		&it.Description, &it.Quantity, &it.Status, &it.Location,
		&it.PurchasePrice, &it.PurchaseDate, &it.Supplier, &it.Notes,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *itemService) Create(ctx context.Context, in CreateItemInput) (*Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: item category is required", ErrInvalidInput)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = ItemStatusAvailable
	}
	if !ValidItemStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown item status %q", ErrInvalidInput, in.Status)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO items (sku, name, category, brand, description, quantity, status,
		                   location, purchase_price, purchase_date, supplier, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+itemColumns,
		NewSKU(in.Category, in.Name, time.Now()),
		in.Name, in.Category, in.Brand, in.Description, in.Quantity, in.Status,
		in.Location, in.PurchasePrice, in.PurchaseDate, in.Supplier, in.Notes)
	item, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, itemID int) (*Item, error) {
	item, err := scanItem(s.pool.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = $1", itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", itemID, err)
	}
	return item, nil
}

func (s *itemService) List(ctx context.Context, category, search string) ([]Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE 1=1"
	args := []any{}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR brand ILIKE $%d OR sku ILIKE $%d)",
			len(args), len(args), len(args))
	}
	query += " ORDER BY name, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *itemService) UpdateStatus(ctx context.Context, itemID int, status ItemStatus) (*Item, error) {
	if !ValidItemStatus(status) {
		return nil, fmt.Errorf("%w: unknown item status %q", ErrInvalidInput, status)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE items SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+itemColumns, status, itemID)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update item %d status: %w", itemID, err)
	}
	return item, nil
}

func (s *itemService) RefreshStatuses(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT id FROM items ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("query item ids: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate item ids: %w", err)
	}

	for _, id := range ids {
		if err := s.recalc.Recalculate(ctx, tx, id); err != nil {
			return 0, fmt.Errorf("recalculate item %d: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit status refresh: %w", err)
	}
	return len(ids), nil
}

// ── Status recompute hook ─────────────────────────────────────────────────────

// defaultRecalculator flips items back to "available" once stock frees up.
// It only touches the automatic statuses; admin-set states (maintenance,
// reserved) are never overwritten.
type defaultRecalculator struct{}

// NewStatusRecalculator returns the default recompute policy.
func NewStatusRecalculator() StatusRecalculator {
	return defaultRecalculator{}
}

func (defaultRecalculator) Recalculate(ctx context.Context, tx pgx.Tx, itemID int) error {
	used, err := usedQuantityOn(ctx, tx, itemID, today())
	if err != nil {
		return err
	}

	var total int
	if err := tx.QueryRow(ctx, "SELECT quantity FROM items WHERE id = $1", itemID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
		}
		return fmt.Errorf("fetch item %d quantity: %w", itemID, err)
	}

	status := ItemStatusAvailable
	if total-used <= 0 {
		status = ItemStatusNotAvailable
	}

	_, err = tx.Exec(ctx, `
		UPDATE items SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('available', 'not_available')
	`, status, itemID)
	if err != nil {
		return fmt.Errorf("update item %d status: %w", itemID, err)
	}
	return nil
}
