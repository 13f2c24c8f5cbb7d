package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const categoryColumns = `c.id, c.name, COALESCE(c.icon, ''), COALESCE(c.description, ''), c.created_at, c.updated_at`

const itemColumns = `i.id, i.name, i.category_id, COALESCE(i.description, ''), COALESCE(i.notes, ''),
	i.average_value, i.average_carbon_offset, i.created_at, i.updated_at`

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	db database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(db database.DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// List returns every item with its category.
func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + `, ` + categoryColumns + `
		FROM items i
		JOIN item_categories c ON c.id = i.category_id
		ORDER BY i.name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var c domain.Category
		item, err := scanItem(rows, &c.ID, &c.Name, &c.Icon, &c.Description, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Category = &c
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// ListCategories returns every category ordered by name.
func (r *ItemRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM item_categories c ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category and its items.
func (r *ItemRepository) GetCategory(ctx context.Context, id string) (*domain.CategoryWithItems, error) {
	var out domain.CategoryWithItems
	c := &out.Category
	err := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM item_categories c WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.category_id = $1 ORDER BY i.name`, id)
	if err != nil {
		return nil, fmt.Errorf("query category items: %w", err)
	}
	defer rows.Close()

	out.Items = make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out.Items = append(out.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category items: %w", err)
	}
	return &out, nil
}

// PopularCategories ranks categories by distinct drop-offs containing one
// of their items.
func (r *ItemRepository) PopularCategories(ctx context.Context, limit int) ([]domain.PopularCategory, error) {
	query := `
		SELECT ` + categoryColumns + `, COUNT(DISTINCT di.drop_off_id) AS drop_off_count
		FROM item_categories c
		LEFT JOIN items i ON i.category_id = c.id
		LEFT JOIN drop_off_items di ON di.item_id = i.id
		GROUP BY c.id
		ORDER BY drop_off_count DESC, c.name ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular categories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PopularCategory, 0)
	for rows.Next() {
		var p domain.PopularCategory
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DropOffCount); err != nil {
			return nil, fmt.Errorf("scan popular category: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular categories: %w", err)
	}
	return out, nil
}

// CategoryStats aggregates items, drop-offs and carbon impact of a category.
func (r *ItemRepository) CategoryStats(ctx context.Context, id string) (*domain.CategoryStats, error) {
	query := `
		SELECT c.id,
		       COUNT(DISTINCT i.id),
		       COUNT(DISTINCT di.drop_off_id),
		       COALESCE(SUM(di.carbon_offset), 0)::float8
		FROM item_categories c
		LEFT JOIN items i ON i.category_id = c.id
		LEFT JOIN drop_off_items di ON di.item_id = i.id
		WHERE c.id = $1
		GROUP BY c.id`

	var s domain.CategoryStats
	err := r.db.QueryRow(ctx, query, id).Scan(&s.CategoryID, &s.TotalItems, &s.TotalDropOffs, &s.TotalImpact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("scan category stats: %w", err)
	}
	return &s, nil
}

// CarbonOffsets returns the per-unit carbon offset of each existing item.
func (r *ItemRepository) CarbonOffsets(ctx context.Context, itemIDs []string) (map[string]float64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, average_carbon_offset::float8 FROM items WHERE id = ANY($1::uuid[])`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("query carbon offsets: %w", err)
	}
	defer rows.Close()

	offsets := make(map[string]float64, len(itemIDs))
	for rows.Next() {
		var (
			id     string
			offset float64
		)
		if err := rows.Scan(&id, &offset); err != nil {
			return nil, fmt.Errorf("scan carbon offset: %w", err)
		}
		offsets[id] = offset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carbon offsets: %w", err)
	}
	return offsets, nil
}

func scanItem(row pgx.Row, extra ...any) (*domain.Item, error) {
	var i domain.Item
	dest := []any{
		&i.ID,
		&i.Name,
		&i.CategoryID,
		&i.Description,
		&i.Notes,
		&i.AverageValue,
		&i.AverageCarbonOffset,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &i, nil
}
