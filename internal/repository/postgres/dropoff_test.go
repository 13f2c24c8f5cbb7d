package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

func sampleDropOff() (*domain.DropOff, *domain.ImpactMetric) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	userID := "u-1"
	d := &domain.DropOff{
		ID:          "d-1",
		UserID:      &userID,
		FacilityID:  "f-1",
		DropOffDate: now,
		CreatedAt:   now,
		Items: []domain.DropOffItem{
			{ID: "di-1", ItemID: "i-1", Quantity: 2, Condition: "used", EstimatedValue: 40, CarbonOffset: 3},
		},
	}
	impact := &domain.ImpactMetric{
		ID: "m-1", UserID: &userID, CarbonOffset: 3, TreesEquivalent: 0.14, LandfillReduction: 2, CreatedAt: now,
	}
	return d, impact
}

func TestDropOffRepository_Create_OneTransaction(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)
	d, impact := sampleDropOff()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO drop_offs").
		WithArgs(d.ID, d.UserID, d.GuestSessionID, d.FacilityID, d.DropOffDate, d.Notes, d.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO drop_off_items").
		WithArgs("di-1", d.ID, "i-1", 2, "used", 40.0, 3.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO impact_metrics").
		WithArgs(impact.ID, impact.UserID, d.ID, 3.0, 0.14, 2.0, impact.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), d, impact))
}

func TestDropOffRepository_Create_UnknownItemRollsBack(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)
	d, impact := sampleDropOff()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO drop_offs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO drop_off_items").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), d, impact)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDropOffRepository_GetByID_WithItems(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)
	d, _ := sampleDropOff()

	mock.ExpectQuery("FROM drop_offs d WHERE d.id =").
		WithArgs("d-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "guest_session_id", "facility_id", "drop_off_date", "notes", "created_at"}).
			AddRow(d.ID, d.UserID, (*string)(nil), d.FacilityID, d.DropOffDate, "", d.CreatedAt))
	mock.ExpectQuery("FROM drop_off_items di").
		WithArgs([]string{"d-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "drop_off_id", "item_id", "quantity", "condition", "estimated_value", "carbon_offset"}).
			AddRow("di-1", "d-1", "i-1", 2, "used", 40.0, 3.0))

	got, err := repo.GetByID(context.Background(), "d-1")
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "u-1", *got.UserID)
	assert.Nil(t, got.GuestSessionID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestDropOffRepository_Export_DateRange(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`d.drop_off_date >= \$2 AND d.drop_off_date <= \$3`).
		WithArgs("u-1", start, end).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "drop_off_date", "facility", "item", "quantity", "condition",
			"estimated_value", "carbon_offset", "trees", "landfill",
		}).AddRow("d-1", start, "Alpha", "Laptop", 1, "used", 100.0, 5.0, 0.23, 1.0))

	rows, err := repo.Export(context.Background(), "u-1", domain.ExportFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Laptop", rows[0].ItemName)
}

func TestDropOffRepository_TotalValue(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)

	mock.ExpectQuery("SUM\\(estimated_value\\)").
		WithArgs("d-1").
		WillReturnRows(pgxmock.NewRows([]string{"total"}).AddRow(125.5))

	total, err := repo.TotalValue(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, 125.5, total)
}

func TestDropOffRepository_TotalValue_Error(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewDropOffRepository(mock)

	mock.ExpectQuery("SUM").WillReturnError(errors.New("connection reset"))

	_, err := repo.TotalValue(context.Background(), "d-1")
	assert.ErrorContains(t, err, "connection reset")
}
