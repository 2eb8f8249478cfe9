package models

import "time"

// MaintenanceStatus marks whether a record takes part in planning.
type MaintenanceStatus string

const (
	MaintenanceStatusActive   MaintenanceStatus = "active"
	MaintenanceStatusInactive MaintenanceStatus = "inactive"
)

// MaintenanceRecord is one placed check occurrence.
type MaintenanceRecord struct {
	ID              string            `db:"id" json:"id"`
	AircraftID      string            `db:"aircraft_id" json:"aircraft_id"`
	FleetID         string            `db:"fleet_id" json:"fleet_id"`
	Tier            CheckTier         `db:"tier" json:"tier"`
	ScheduledDate   time.Time         `db:"scheduled_date" json:"scheduled_date"`
	StartMinute     int               `db:"start_minute" json:"start_minute"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          MaintenanceStatus `db:"status" json:"status"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// StartsAt is the absolute start of the check.
func (r MaintenanceRecord) StartsAt() time.Time {
	return At(r.ScheduledDate, r.StartMinute)
}

// EndsAt is the absolute end of the check.
func (r MaintenanceRecord) EndsAt() time.Time {
	return r.StartsAt().Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// Window returns the absolute span of the check.
func (r MaintenanceRecord) Window() TimeWindow {
	return TimeWindow{Start: r.StartsAt(), End: r.EndsAt()}
}

// Active reports whether planning should take the record into account.
func (r MaintenanceRecord) Active() bool {
	return r.Status == MaintenanceStatusActive
}

// InProgress reports whether the check started before now and is still running.
func (r MaintenanceRecord) InProgress(now time.Time) bool {
	return r.StartsAt().Before(now) && r.EndsAt().After(now)
}

// CoversDate reports whether the check occupies any part of date.
func (r MaintenanceRecord) CoversDate(date time.Time) bool {
	day := DateOf(date)
	return r.Window().Overlaps(TimeWindow{Start: day, End: day.Add(24 * time.Hour)})
}

// SpansWholeDate reports whether the check occupies all of date.
func (r MaintenanceRecord) SpansWholeDate(date time.Time) bool {
	day := DateOf(date)
	return !r.StartsAt().After(day) && !r.EndsAt().Before(day.Add(24*time.Hour))
}
