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

// FacilityRepository implements repository.FacilityRepository using PostgreSQL.
type FacilityRepository struct {
	db database.DBTX
}

// NewFacilityRepository creates a new PostgreSQL-backed facility repository.
func NewFacilityRepository(db database.DBTX) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// List returns a page of facilities matching filter, ordered by name.
func (r *FacilityRepository) List(ctx context.Context, filter domain.FacilityFilter) (_ []domain.Facility, _ int, err error) {
	countSQL, listSQL, countArgs, listArgs := compileFacilityList(filter)

	ctx, end := database.TraceQuery(ctx, "facilities", "ListFacilities", listSQL)
	defer func() { end(err) }()

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count facilities: %w", err)
	}

	facilities, err := r.queryFacilities(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return facilities, total, nil
}

// GetByID returns the facility with hours and accepted item ids.
func (r *FacilityRepository) GetByID(ctx context.Context, id string) (_ *domain.Facility, err error) {
	query := facilitySelect + ` FROM facilities f WHERE f.id = $1`

	ctx, end := database.TraceQuery(ctx, "facilities", "GetFacility", query)
	defer func() { end(err) }()

	f, err := scanFacility(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("facility", id)
		}
		return nil, fmt.Errorf("scan facility: %w", err)
	}

	hours, err := r.hours(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Hours = hours

	rows, err := r.db.Query(ctx, `SELECT item_id FROM facility_items WHERE facility_id = $1 ORDER BY item_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query facility items: %w", err)
	}
	f.ItemIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan facility items: %w", err)
	}

	return f, nil
}

func (r *FacilityRepository) hours(ctx context.Context, facilityID string) ([]domain.FacilityHour, error) {
	query := `
		SELECT id, facility_id, day_of_week, COALESCE(open_time::text, ''), COALESCE(close_time::text, ''), is_closed
		FROM facility_hours
		WHERE facility_id = $1
		ORDER BY day_of_week`

	rows, err := r.db.Query(ctx, query, facilityID)
	if err != nil {
		return nil, fmt.Errorf("query facility hours: %w", err)
	}
	defer rows.Close()

	var hours []domain.FacilityHour
	for rows.Next() {
		var h domain.FacilityHour
		if err := rows.Scan(&h.ID, &h.FacilityID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, fmt.Errorf("scan facility hour: %w", err)
		}
		hours = append(hours, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facility hours: %w", err)
	}
	return hours, nil
}

// Search matches text case-insensitively against name and address.
func (r *FacilityRepository) Search(ctx context.Context, text, facilityType, zipCode string) (_ []domain.Facility, err error) {
	query, args := compileFacilitySearch(text, facilityType, zipCode)

	ctx, end := database.TraceQuery(ctx, "facilities", "SearchFacilities", query)
	defer func() { end(err) }()

	return r.queryFacilities(ctx, query, args...)
}

// BestMatch returns the facility accepting the most of itemIDs.
func (r *FacilityRepository) BestMatch(ctx context.Context, itemIDs []string, zipCode string) (_ *domain.Facility, _ int, err error) {
	query, args := compileBestMatch(itemIDs, zipCode)

	ctx, end := database.TraceQuery(ctx, "facilities", "BestMatchFacility", query)
	defer func() { end(err) }()

	var matches int
	f, err := scanFacility(r.db.QueryRow(ctx, query, args...), &matches)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.NotFoundMessage("no matching facilities")
		}
		return nil, 0, fmt.Errorf("scan best match: %w", err)
	}
	return f, matches, nil
}

func (r *FacilityRepository) queryFacilities(ctx context.Context, query string, args ...any) ([]domain.Facility, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	defer rows.Close()

	facilities := make([]domain.Facility, 0)
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		facilities = append(facilities, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facilities: %w", err)
	}
	return facilities, nil
}

// scanFacility scans the columns of facilitySelect followed by extra.
func scanFacility(row pgx.Row, extra ...any) (*domain.Facility, error) {
	var f domain.Facility
	dest := []any{
		&f.ID,
		&f.Name,
		&f.Description,
		&f.Address,
		&f.City,
		&f.State,
		&f.ZipCode,
		&f.Phone,
		&f.Website,
		&f.Email,
		&f.ImageURL,
		&f.IsVerified,
		&f.CreatedAt,
		&f.Types,
		&f.AcceptedItems,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &f, nil
}

