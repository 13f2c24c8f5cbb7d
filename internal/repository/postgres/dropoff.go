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

const dropOffColumns = `d.id, d.user_id, d.guest_session_id, d.facility_id, d.drop_off_date, COALESCE(d.notes, ''), d.created_at`

const dropOffItemColumns = `di.id, di.drop_off_id, di.item_id, di.quantity, di.condition, di.estimated_value::float8, di.carbon_offset::float8`

// DropOffRepository implements repository.DropOffRepository using PostgreSQL.
type DropOffRepository struct {
	db database.DBTX
}

// NewDropOffRepository creates a new PostgreSQL-backed drop-off repository.
func NewDropOffRepository(db database.DBTX) *DropOffRepository {
	return &DropOffRepository{db: db}
}

// Create inserts the drop-off, its items and its impact row in one transaction.
func (r *DropOffRepository) Create(ctx context.Context, d *domain.DropOff, impact *domain.ImpactMetric) (err error) {
	ctx, end := database.TraceQuery(ctx, "drop_offs", "CreateDropOff", "INSERT INTO drop_offs")
	defer func() { end(err) }()

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO drop_offs (id, user_id, guest_session_id, facility_id, drop_off_date, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, d.UserID, d.GuestSessionID, d.FacilityID, d.DropOffDate, d.Notes, d.CreatedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.NotFound("facility", d.FacilityID)
			}
			return fmt.Errorf("insert drop-off: %w", err)
		}

		for _, item := range d.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO drop_off_items (id, drop_off_id, item_id, quantity, condition, estimated_value, carbon_offset)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				item.ID, d.ID, item.ItemID, item.Quantity, item.Condition, item.EstimatedValue, item.CarbonOffset,
			)
			if err != nil {
				if database.IsForeignKeyViolation(err) {
					return apperrors.NotFound("item", item.ItemID)
				}
				return fmt.Errorf("insert drop-off item: %w", err)
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO impact_metrics (id, user_id, drop_off_id, carbon_offset, trees_equivalent, landfill_reduction, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			impact.ID, impact.UserID, d.ID, impact.CarbonOffset, impact.TreesEquivalent, impact.LandfillReduction, impact.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert impact metric: %w", err)
		}
		return nil
	})
}

// GetByID returns a drop-off with its items.
func (r *DropOffRepository) GetByID(ctx context.Context, id string) (*domain.DropOff, error) {
	d, err := scanDropOff(r.db.QueryRow(ctx, `SELECT `+dropOffColumns+` FROM drop_offs d WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("drop-off", id)
		}
		return nil, fmt.Errorf("scan drop-off: %w", err)
	}

	items, err := r.items(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	d.Items = items[id]
	return d, nil
}

// ListByUser returns the user's drop-offs, newest first, without items.
func (r *DropOffRepository) ListByUser(ctx context.Context, userID string) ([]domain.DropOff, error) {
	query := `SELECT ` + dropOffColumns + ` FROM drop_offs d WHERE d.user_id = $1 ORDER BY d.drop_off_date DESC`
	return r.queryDropOffs(ctx, query, userID)
}

// Recent returns the latest limit drop-offs of the user with their items.
func (r *DropOffRepository) Recent(ctx context.Context, userID string, limit int) ([]domain.DropOff, error) {
	query := `SELECT ` + dropOffColumns + ` FROM drop_offs d WHERE d.user_id = $1 ORDER BY d.drop_off_date DESC LIMIT $2`
	dropOffs, err := r.queryDropOffs(ctx, query, userID, limit)
	if err != nil || len(dropOffs) == 0 {
		return dropOffs, err
	}

	ids := make([]string, len(dropOffs))
	for i := range dropOffs {
		ids[i] = dropOffs[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range dropOffs {
		dropOffs[i].Items = items[dropOffs[i].ID]
	}
	return dropOffs, nil
}

// exportSelect lists one row per drop-off item with the drop-off's impact.
const exportSelect = `SELECT d.id, d.drop_off_date, f.name, i.name, di.quantity, di.condition,
	di.estimated_value::float8, di.carbon_offset::float8,
	COALESCE(im.trees_equivalent, 0)::float8, COALESCE(im.landfill_reduction, 0)::float8`

// compileDropOffExport builds the export statement for userID within the
// optional date range.
func compileDropOffExport(userID string, filter domain.ExportFilter) (string, []any) {
	q := &selectQuery{table: "drop_offs d"}
	q.join(`JOIN facilities f ON f.id = d.facility_id`)
	q.join(`JOIN drop_off_items di ON di.drop_off_id = d.id`)
	q.join(`JOIN items i ON i.id = di.item_id`)
	q.join(`LEFT JOIN impact_metrics im ON im.drop_off_id = d.id`)
	q.where(`d.user_id = %s`, userID)
	if filter.StartDate != nil {
		q.where(`d.drop_off_date >= %s`, *filter.StartDate)
	}
	if filter.EndDate != nil {
		q.where(`d.drop_off_date <= %s`, *filter.EndDate)
	}
	return exportSelect + q.from() + ` ORDER BY d.drop_off_date DESC, i.name`, q.args
}

// Export flattens the user's drop-off items joined with facility, item and
// impact data, optionally bounded by date.
func (r *DropOffRepository) Export(ctx context.Context, userID string, filter domain.ExportFilter) ([]domain.ExportRow, error) {
	query, args := compileDropOffExport(userID, filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query export: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExportRow, 0)
	for rows.Next() {
		var e domain.ExportRow
		if err := rows.Scan(
			&e.DropOffID, &e.DropOffDate, &e.FacilityName, &e.ItemName, &e.Quantity, &e.Condition,
			&e.EstimatedValue, &e.CarbonOffset, &e.TreesEquivalent, &e.LandfillReduction,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export: %w", err)
	}
	return out, nil
}

// TotalValue sums the estimated value of the drop-off's items.
func (r *DropOffRepository) TotalValue(ctx context.Context, dropOffID string) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(estimated_value), 0)::float8 FROM drop_off_items WHERE drop_off_id = $1`, dropOffID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum drop-off value: %w", err)
	}
	return total, nil
}

func (r *DropOffRepository) queryDropOffs(ctx context.Context, query string, args ...any) ([]domain.DropOff, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query drop-offs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DropOff, 0)
	for rows.Next() {
		d, err := scanDropOff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drop-off: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop-offs: %w", err)
	}
	return out, nil
}

// items loads the items of every drop-off in ids with one query, grouped by
// drop-off id.
func (r *DropOffRepository) items(ctx context.Context, ids []string) (map[string][]domain.DropOffItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dropOffItemColumns+` FROM drop_off_items di WHERE di.drop_off_id = ANY($1::uuid[]) ORDER BY di.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query drop-off items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.DropOffItem, len(ids))
	for rows.Next() {
		var it domain.DropOffItem
		if err := rows.Scan(&it.ID, &it.DropOffID, &it.ItemID, &it.Quantity, &it.Condition, &it.EstimatedValue, &it.CarbonOffset); err != nil {
			return nil, fmt.Errorf("scan drop-off item: %w", err)
		}
		out[it.DropOffID] = append(out[it.DropOffID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop-off items: %w", err)
	}
	return out, nil
}

func scanDropOff(row pgx.Row) (*domain.DropOff, error) {
	var d domain.DropOff
	err := row.Scan(&d.ID, &d.UserID, &d.GuestSessionID, &d.FacilityID, &d.DropOffDate, &d.Notes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
