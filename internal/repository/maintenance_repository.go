package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

const maintenanceColumns = `id, aircraft_id, fleet_id, tier, scheduled_date, start_minute, duration_minutes, status, created_at, updated_at`

// MaintenanceRepository persists placed maintenance records.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

func (r *MaintenanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActiveByAircraft returns active records that have not finished by endsAfter.
func (r *MaintenanceRepository) ListActiveByAircraft(ctx context.Context, exec sqlx.ExtContext, aircraftID string, endsAfter time.Time) ([]models.MaintenanceRecord, error) {
	const query = `SELECT ` + maintenanceColumns + ` FROM maintenance_records
WHERE aircraft_id = $1 AND status = 'active'
AND (scheduled_date::timestamp + (start_minute + duration_minutes) * INTERVAL '1 minute') AT TIME ZONE 'UTC' > $2
ORDER BY scheduled_date ASC, start_minute ASC`
	var records []models.MaintenanceRecord
	if err := sqlx.SelectContext(ctx, r.exec(exec), &records, query, aircraftID, endsAfter.UTC()); err != nil {
		return nil, fmt.Errorf("list active maintenance: %w", err)
	}
	return normalizeDates(records), nil
}

// ListByAircraftBetween returns active records scheduled on dates within [from, to].
func (r *MaintenanceRepository) ListByAircraftBetween(ctx context.Context, aircraftID string, from, to time.Time) ([]models.MaintenanceRecord, error) {
	const query = `SELECT ` + maintenanceColumns + ` FROM maintenance_records
WHERE aircraft_id = $1 AND status = 'active' AND scheduled_date BETWEEN $2 AND $3
ORDER BY scheduled_date ASC, start_minute ASC`
	var records []models.MaintenanceRecord
	if err := r.db.SelectContext(ctx, &records, query, aircraftID, models.DateOf(from), models.DateOf(to)); err != nil {
		return nil, fmt.Errorf("list maintenance schedule: %w", err)
	}
	return normalizeDates(records), nil
}

type occupancyRow struct {
	StartMinute int `db:"start_minute"`
	Total       int `db:"total"`
}

// CountFleetOccupancy counts active same-tier records of other fleet aircraft
// per start minute on date.
func (r *MaintenanceRepository) CountFleetOccupancy(ctx context.Context, fleetID string, tier models.CheckTier, date time.Time, excludeAircraftID string) (map[int]int, error) {
	const query = `SELECT start_minute, COUNT(*) AS total FROM maintenance_records
WHERE fleet_id = $1 AND tier = $2 AND scheduled_date = $3 AND aircraft_id <> $4 AND status = 'active'
GROUP BY start_minute`
	var rows []occupancyRow
	if err := r.db.SelectContext(ctx, &rows, query, fleetID, tier, models.DateOf(date), excludeAircraftID); err != nil {
		return nil, fmt.Errorf("count fleet occupancy: %w", err)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.StartMinute] = row.Total
	}
	return counts, nil
}

// CreateBatch inserts the records using the provided executor.
func (r *MaintenanceRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, records []models.MaintenanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO maintenance_records (` + maintenanceColumns + `)
VALUES (:id, :aircraft_id, :fleet_id, :tier, :scheduled_date, :start_minute, :duration_minutes, :status, :created_at, :updated_at)`

	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.Status == "" {
			record.Status = models.MaintenanceStatusActive
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, record); err != nil {
			return fmt.Errorf("insert maintenance record: %w", err)
		}
	}
	return nil
}

// UpdateSlot moves a record to a new date and start minute.
func (r *MaintenanceRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, date time.Time, startMinute int) error {
	const query = `UPDATE maintenance_records SET scheduled_date = $1, start_minute = $2, updated_at = $3 WHERE id = $4 AND status = 'active'`
	return r.expectOne(ctx, exec, "update maintenance slot", query, models.DateOf(date), startMinute, time.Now().UTC(), id)
}

// Deactivate soft-deletes a record.
func (r *MaintenanceRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE maintenance_records SET status = 'inactive', updated_at = $1 WHERE id = $2 AND status = 'active'`
	return r.expectOne(ctx, exec, "deactivate maintenance record", query, time.Now().UTC(), id)
}

// DeleteFuture removes active records of the given tiers starting at or after
// from. Records already in progress start before from and are kept.
func (r *MaintenanceRepository) DeleteFuture(ctx context.Context, exec sqlx.ExtContext, aircraftID string, tiers []models.CheckTier, from time.Time) (int64, error) {
	if len(tiers) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		names = append(names, string(tier))
	}
	const query = `DELETE FROM maintenance_records
WHERE aircraft_id = $1 AND tier = ANY($2) AND status = 'active'
AND (scheduled_date::timestamp + start_minute * INTERVAL '1 minute') AT TIME ZONE 'UTC' >= $3`
	result, err := r.exec(exec).ExecContext(ctx, query, aircraftID, pq.Array(names), from.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete future maintenance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("future maintenance rows affected: %w", err)
	}
	return affected, nil
}

func (r *MaintenanceRepository) expectOne(ctx context.Context, exec sqlx.ExtContext, op, query string, args ...interface{}) error {
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DATE columns come back in the session zone; planning works in UTC.
func normalizeDates(records []models.MaintenanceRecord) []models.MaintenanceRecord {
	for i := range records {
		d := records[i].ScheduledDate
		records[i].ScheduledDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return records
}
