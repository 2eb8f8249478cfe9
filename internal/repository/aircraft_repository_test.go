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

func newAircraftRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var aircraftRowColumns = []string{
	"id", "fleet_id", "registration", "home_base", "category", "capacity", "status",
	"total_flight_hours", "last_a_check_flight_hours",
	"last_daily_check_at", "last_weekly_check_at", "last_a_check_at", "last_c_check_at", "last_d_check_at",
	"daily_interval_days", "weekly_interval_days", "a_interval_hours", "c_interval_days", "d_interval_days",
	"auto_daily", "auto_weekly", "auto_a", "auto_c", "auto_d", "updated_at",
}

func TestAircraftRepositoryLockForUpdate(t *testing.T) {
	db, mock, cleanup := newAircraftRepoMock(t)
	defer cleanup()
	repo := NewAircraftRepository(db)

	lastDaily := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(aircraftRowColumns).
		AddRow("ac-1", "fleet-1", "PK-GMA", "CGK", "passenger", 180, "active",
			1200.5, 900.0,
			lastDaily, nil, nil, nil, nil,
			1, 7, 500, 730, 2190,
			true, true, false, false, false, time.Now())
	mock.ExpectQuery(`SELECT id, fleet_id, registration .* FROM aircraft WHERE id = \$1 FOR UPDATE`).
		WithArgs("ac-1").
		WillReturnRows(rows)

	aircraft, err := repo.LockForUpdate(context.Background(), nil, "ac-1")
	require.NoError(t, err)
	assert.Equal(t, "CGK", aircraft.HomeBase)
	assert.Equal(t, []models.CheckTier{models.TierWeekly, models.TierDaily}, aircraft.EnabledTiers())
	require.NotNil(t, aircraft.Checks.Entry(models.TierDaily).LastCompletedAt)
	assert.True(t, aircraft.Checks.Entry(models.TierDaily).LastCompletedAt.Equal(lastDaily))
	assert.Nil(t, aircraft.Checks.Entry(models.TierWeekly).LastCompletedAt)
	assert.Equal(t, 500, aircraft.Checks.Entry(models.TierA).Interval)
	assert.InDelta(t, 199.5, aircraft.Checks.RemainingFlightHours(), 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAircraftRepositoryListByFleet(t *testing.T) {
	db, mock, cleanup := newAircraftRepoMock(t)
	defer cleanup()
	repo := NewAircraftRepository(db)

	rows := sqlmock.NewRows(aircraftRowColumns).
		AddRow("ac-1", "fleet-1", "PK-GMA", "CGK", "passenger", 180, "active", 0.0, 0.0, nil, nil, nil, nil, nil, 1, 7, 500, 730, 2190, true, false, false, false, false, time.Now()).
		AddRow("ac-2", "fleet-1", "PK-GMB", "CGK", "cargo", 40, "maintenance", 0.0, 0.0, nil, nil, nil, nil, nil, 1, 7, 500, 730, 2190, false, false, false, false, true, time.Now())
	mock.ExpectQuery(`FROM aircraft WHERE fleet_id = \$1 ORDER BY registration ASC`).
		WithArgs("fleet-1").
		WillReturnRows(rows)

	list, err := repo.ListByFleet(context.Background(), "fleet-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.AircraftStatusMaintenance, list[1].Status)
	assert.Equal(t, models.FlightCategoryCargo, list[1].Category)
	assert.Equal(t, []models.CheckTier{models.TierD}, list[1].EnabledTiers())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAircraftRepositorySetAutoSchedule(t *testing.T) {
	db, mock, cleanup := newAircraftRepoMock(t)
	defer cleanup()
	repo := NewAircraftRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE aircraft SET auto_weekly = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(true, sqlmock.AnyArg(), "ac-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetAutoSchedule(context.Background(), nil, "ac-1", models.TierWeekly, true))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE aircraft SET auto_d = $1")).
		WithArgs(false, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SetAutoSchedule(context.Background(), nil, "missing", models.TierD, false)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Error(t, repo.SetAutoSchedule(context.Background(), nil, "ac-1", models.CheckTier("b"), true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAircraftRepositorySaveCheckState(t *testing.T) {
	db, mock, cleanup := newAircraftRepoMock(t)
	defer cleanup()
	repo := NewAircraftRepository(db)

	completed := time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC)
	aircraft := &models.Aircraft{ID: "ac-1", Status: models.AircraftStatusActive, Checks: models.NewCheckState()}
	aircraft.Checks.TotalFlightHours = 820
	aircraft.Checks.Complete(models.TierA, completed)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE aircraft SET status = $1, total_flight_hours = $2, last_a_check_flight_hours = $3")).
		WithArgs(models.AircraftStatusActive, 820.0, 820.0, completed, completed, completed, nil, nil, sqlmock.AnyArg(), "ac-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveCheckState(context.Background(), nil, aircraft))
	assert.NoError(t, mock.ExpectationsWereMet())
}
