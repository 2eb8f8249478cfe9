package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

const aircraftColumns = `id, fleet_id, registration, home_base, category, capacity, status,
total_flight_hours, last_a_check_flight_hours,
last_daily_check_at, last_weekly_check_at, last_a_check_at, last_c_check_at, last_d_check_at,
daily_interval_days, weekly_interval_days, a_interval_hours, c_interval_days, d_interval_days,
auto_daily, auto_weekly, auto_a, auto_c, auto_d, updated_at`

// autoScheduleColumns maps each tier to its toggle column.
var autoScheduleColumns = map[models.CheckTier]string{
	models.TierDaily:  "auto_daily",
	models.TierWeekly: "auto_weekly",
	models.TierA:      "auto_a",
	models.TierC:      "auto_c",
	models.TierD:      "auto_d",
}

type aircraftRow struct {
	ID                    string       `db:"id"`
	FleetID               string       `db:"fleet_id"`
	Registration          string       `db:"registration"`
	HomeBase              string       `db:"home_base"`
	Category              string       `db:"category"`
	Capacity              int          `db:"capacity"`
	Status                string       `db:"status"`
	TotalFlightHours      float64      `db:"total_flight_hours"`
	LastACheckFlightHours float64      `db:"last_a_check_flight_hours"`
	LastDailyCheckAt      sql.NullTime `db:"last_daily_check_at"`
	LastWeeklyCheckAt     sql.NullTime `db:"last_weekly_check_at"`
	LastACheckAt          sql.NullTime `db:"last_a_check_at"`
	LastCCheckAt          sql.NullTime `db:"last_c_check_at"`
	LastDCheckAt          sql.NullTime `db:"last_d_check_at"`
	DailyIntervalDays     int          `db:"daily_interval_days"`
	WeeklyIntervalDays    int          `db:"weekly_interval_days"`
	AIntervalHours        int          `db:"a_interval_hours"`
	CIntervalDays         int          `db:"c_interval_days"`
	DIntervalDays         int          `db:"d_interval_days"`
	AutoDaily             bool         `db:"auto_daily"`
	AutoWeekly            bool         `db:"auto_weekly"`
	AutoA                 bool         `db:"auto_a"`
	AutoC                 bool         `db:"auto_c"`
	AutoD                 bool         `db:"auto_d"`
	UpdatedAt             time.Time    `db:"updated_at"`
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r aircraftRow) toModel() models.Aircraft {
	checks := models.CheckState{
		TotalFlightHours:      r.TotalFlightHours,
		LastACheckFlightHours: r.LastACheckFlightHours,
		Entries: map[models.CheckTier]models.CheckEntry{
			models.TierDaily:  {LastCompletedAt: nullTimePtr(r.LastDailyCheckAt), Interval: r.DailyIntervalDays},
			models.TierWeekly: {LastCompletedAt: nullTimePtr(r.LastWeeklyCheckAt), Interval: r.WeeklyIntervalDays},
			models.TierA:      {LastCompletedAt: nullTimePtr(r.LastACheckAt), Interval: r.AIntervalHours},
			models.TierC:      {LastCompletedAt: nullTimePtr(r.LastCCheckAt), Interval: r.CIntervalDays},
			models.TierD:      {LastCompletedAt: nullTimePtr(r.LastDCheckAt), Interval: r.DIntervalDays},
		},
	}
	return models.Aircraft{
		ID:           r.ID,
		FleetID:      r.FleetID,
		Registration: r.Registration,
		HomeBase:     r.HomeBase,
		Category:     models.FlightCategory(r.Category),
		Capacity:     r.Capacity,
		Status:       models.AircraftStatus(r.Status),
		Checks:       checks,
		AutoSchedule: map[models.CheckTier]bool{
			models.TierDaily:  r.AutoDaily,
			models.TierWeekly: r.AutoWeekly,
			models.TierA:      r.AutoA,
			models.TierC:      r.AutoC,
			models.TierD:      r.AutoD,
		},
		UpdatedAt: r.UpdatedAt,
	}
}

// AircraftRepository reads and updates aircraft maintenance state.
type AircraftRepository struct {
	db *sqlx.DB
}

// NewAircraftRepository constructs the repository.
func NewAircraftRepository(db *sqlx.DB) *AircraftRepository {
	return &AircraftRepository{db: db}
}

func (r *AircraftRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads an aircraft by identifier.
func (r *AircraftRepository) FindByID(ctx context.Context, id string) (*models.Aircraft, error) {
	query := `SELECT ` + aircraftColumns + ` FROM aircraft WHERE id = $1`
	var row aircraftRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	aircraft := row.toModel()
	return &aircraft, nil
}

// LockForUpdate loads the aircraft row and holds a row lock for the
// surrounding transaction so only one planning pass runs per aircraft.
func (r *AircraftRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Aircraft, error) {
	query := `SELECT ` + aircraftColumns + ` FROM aircraft WHERE id = $1 FOR UPDATE`
	var row aircraftRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	aircraft := row.toModel()
	return &aircraft, nil
}

// ListByFleet returns every aircraft of a fleet ordered by registration.
func (r *AircraftRepository) ListByFleet(ctx context.Context, fleetID string) ([]models.Aircraft, error) {
	query := `SELECT ` + aircraftColumns + ` FROM aircraft WHERE fleet_id = $1 ORDER BY registration ASC`
	var rows []aircraftRow
	if err := r.db.SelectContext(ctx, &rows, query, fleetID); err != nil {
		return nil, fmt.Errorf("list fleet aircraft: %w", err)
	}
	result := make([]models.Aircraft, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

// SetAutoSchedule toggles automatic scheduling for one tier.
func (r *AircraftRepository) SetAutoSchedule(ctx context.Context, exec sqlx.ExtContext, id string, tier models.CheckTier, enabled bool) error {
	column, ok := autoScheduleColumns[tier]
	if !ok {
		return fmt.Errorf("unknown check tier %q", tier)
	}
	query := fmt.Sprintf(`UPDATE aircraft SET %s = $1, updated_at = $2 WHERE id = $3`, column)
	result, err := r.exec(exec).ExecContext(ctx, query, enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update auto schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("auto schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveCheckState persists completion timestamps, flight hours and status.
func (r *AircraftRepository) SaveCheckState(ctx context.Context, exec sqlx.ExtContext, aircraft *models.Aircraft) error {
	if aircraft == nil {
		return fmt.Errorf("aircraft payload is nil")
	}
	checks := aircraft.Checks
	aircraft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE aircraft SET status = $1, total_flight_hours = $2, last_a_check_flight_hours = $3,
last_daily_check_at = $4, last_weekly_check_at = $5, last_a_check_at = $6, last_c_check_at = $7, last_d_check_at = $8,
updated_at = $9 WHERE id = $10`
	result, err := r.exec(exec).ExecContext(ctx, query,
		aircraft.Status,
		checks.TotalFlightHours,
		checks.LastACheckFlightHours,
		toNullTime(checks.Entry(models.TierDaily).LastCompletedAt),
		toNullTime(checks.Entry(models.TierWeekly).LastCompletedAt),
		toNullTime(checks.Entry(models.TierA).LastCompletedAt),
		toNullTime(checks.Entry(models.TierC).LastCompletedAt),
		toNullTime(checks.Entry(models.TierD).LastCompletedAt),
		aircraft.UpdatedAt,
		aircraft.ID,
	)
	if err != nil {
		return fmt.Errorf("update aircraft check state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("aircraft check state rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
