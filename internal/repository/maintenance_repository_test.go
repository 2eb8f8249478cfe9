package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

func newMaintenanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var maintenanceRowColumns = []string{"id", "aircraft_id", "fleet_id", "tier", "scheduled_date", "start_minute", "duration_minutes", "status", "created_at", "updated_at"}

func TestMaintenanceRepositoryListActiveByAircraft(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	jakarta := time.FixedZone("WIB", 7*3600)
	rows := sqlmock.NewRows(maintenanceRowColumns).
		AddRow("mx-1", "ac-1", "fleet-1", "d", time.Date(2025, 3, 1, 0, 0, 0, 0, jakarta), 1260, 75*1440, "active", now, now)
	mock.ExpectQuery(`FROM maintenance_records\s+WHERE aircraft_id = \$1 AND status = 'active'`).
		WithArgs("ac-1", now).
		WillReturnRows(rows)

	records, err := repo.ListActiveByAircraft(context.Background(), nil, "ac-1", now)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.TierD, records[0].Tier)
	assert.Equal(t, time.UTC, records[0].ScheduledDate.Location())
	assert.Equal(t, 1, records[0].ScheduledDate.Day())
	assert.True(t, records[0].InProgress(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryCountFleetOccupancy(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	date := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"start_minute", "total"}).
		AddRow(1260, 3).
		AddRow(1275, 1)
	mock.ExpectQuery(`SELECT start_minute, COUNT\(\*\) AS total FROM maintenance_records`).
		WithArgs("fleet-1", models.TierWeekly, models.DateOf(date), "ac-1").
		WillReturnRows(rows)

	counts, err := repo.CountFleetOccupancy(context.Background(), "fleet-1", models.TierWeekly, date, "ac-1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1260: 3, 1275: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO maintenance_records")).
		WithArgs(sqlmock.AnyArg(), "ac-1", "fleet-1", models.TierDaily, date, 180, 60, models.MaintenanceStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO maintenance_records")).
		WithArgs(sqlmock.AnyArg(), "ac-1", "fleet-1", models.TierWeekly, date, 1260, 135, models.MaintenanceStatusActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	records := []models.MaintenanceRecord{
		{AircraftID: "ac-1", FleetID: "fleet-1", Tier: models.TierDaily, ScheduledDate: date, StartMinute: 180, DurationMinutes: 60},
		{AircraftID: "ac-1", FleetID: "fleet-1", Tier: models.TierWeekly, ScheduledDate: date, StartMinute: 1260, DurationMinutes: 135},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), nil, records))
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, models.MaintenanceStatusActive, records[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryUpdateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	date := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_records SET scheduled_date = $1, start_minute = $2")).
		WithArgs(models.DateOf(date), 420, sqlmock.AnyArg(), "mx-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateSlot(context.Background(), nil, "mx-1", date, 420))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_records SET status = 'inactive'")).
		WithArgs(sqlmock.AnyArg(), "mx-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Deactivate(context.Background(), nil, "mx-404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryDeleteFuture(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM maintenance_records\s+WHERE aircraft_id = \$1 AND tier = ANY\(\$2\)`).
		WithArgs("ac-1", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteFuture(context.Background(), nil, "ac-1", []models.CheckTier{models.TierWeekly, models.TierDaily}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	deleted, err = repo.DeleteFuture(context.Background(), nil, "ac-1", nil, now)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
