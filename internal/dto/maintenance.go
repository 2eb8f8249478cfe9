package dto

import "time"

// RefreshRequest carries the simulated clock for a planning pass.
type RefreshRequest struct {
	Now time.Time `json:"now" validate:"required"`
}

// ScheduledOccurrence is one record placed by a planning pass.
type ScheduledOccurrence struct {
	RecordID        string `json:"recordId"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Forced          bool   `json:"forced,omitempty"`
}

// TierResult reports the outcome for a single tier.
type TierResult struct {
	Tier       string                `json:"tier"`
	Expired    bool                  `json:"expired"`
	Suppressed bool                  `json:"suppressed"`
	Scheduled  []ScheduledOccurrence `json:"scheduled"`
	Skipped    []string              `json:"skipped,omitempty"`
}

// RefreshResult is returned by an aircraft refresh.
type RefreshResult struct {
	AircraftID   string       `json:"aircraftId"`
	Registration string       `json:"registration"`
	Now          time.Time    `json:"now"`
	Deleted      int64        `json:"deleted"`
	Superseded   int          `json:"superseded"`
	Tiers        []TierResult `json:"tiers"`
}

// FleetRefreshItem is the per-aircraft entry of a fleet refresh.
type FleetRefreshItem struct {
	AircraftID   string         `json:"aircraftId"`
	Registration string         `json:"registration"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Result       *RefreshResult `json:"result,omitempty"`
}

// FleetRefreshResult aggregates a fleet-wide refresh.
type FleetRefreshResult struct {
	FleetID   string             `json:"fleetId"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Items     []FleetRefreshItem `json:"items"`
}

// FleetRefreshJob acknowledges an asynchronous fleet refresh.
type FleetRefreshJob struct {
	JobID   string `json:"jobId"`
	FleetID string `json:"fleetId"`
	Status  string `json:"status"`
}

// FleetRefreshPayload is queued for asynchronous fleet refreshes.
type FleetRefreshPayload struct {
	FleetID string    `json:"fleetId"`
	Now     time.Time `json:"now"`
}

// EnableTierRequest toggles automatic scheduling of a tier.
type EnableTierRequest struct {
	Enabled *bool     `json:"enabled" validate:"required"`
	Now     time.Time `json:"now" validate:"required"`
}

// EnableTierResult reports the toggle and any follow-up planning.
type EnableTierResult struct {
	AircraftID string         `json:"aircraftId"`
	Tier       string         `json:"tier"`
	Enabled    bool           `json:"enabled"`
	Removed    int64          `json:"removed"`
	Refresh    *RefreshResult `json:"refresh,omitempty"`
}

// CompleteCheckRequest records a performed check.
type CompleteCheckRequest struct {
	Tier             string    `json:"tier" validate:"required,oneof=daily weekly a c d"`
	CompletedAt      time.Time `json:"completedAt" validate:"required"`
	TotalFlightHours *float64  `json:"totalFlightHours" validate:"omitempty,gte=0"`
	Now              time.Time `json:"now"`
}

// CompleteCheckResult reports the updated state after a completion.
type CompleteCheckResult struct {
	AircraftID  string               `json:"aircraftId"`
	Tier        string               `json:"tier"`
	Reset       []string             `json:"reset"`
	Expiries    map[string]time.Time `json:"expiries"`
	Deactivated int                  `json:"deactivated"`
	Refresh     *RefreshResult       `json:"refresh,omitempty"`
}

// FlightPayload describes a flight inserted or changed by the flight planner.
type FlightPayload struct {
	ID          string    `json:"id" validate:"required"`
	Origin      string    `json:"origin" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	DepartureAt time.Time `json:"departureAt" validate:"required"`
	ArrivalAt   time.Time `json:"arrivalAt" validate:"required,gtfield=DepartureAt"`
	DistanceKm  float64   `json:"distanceKm" validate:"gte=0"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	Category    string    `json:"category" validate:"omitempty,oneof=passenger cargo"`
}

// FlightConflictRequest asks the resolver to repair records hit by a flight.
type FlightConflictRequest struct {
	Flight FlightPayload `json:"flight" validate:"required"`
	Now    time.Time     `json:"now" validate:"required"`
}

// ConflictResolution describes how one record was repaired.
type ConflictResolution struct {
	RecordID string `json:"recordId"`
	Tier     string `json:"tier"`
	Action   string `json:"action"`
	FromDate string `json:"fromDate"`
	FromTime string `json:"fromTime"`
	ToDate   string `json:"toDate,omitempty"`
	ToTime   string `json:"toTime,omitempty"`
}

// FlightConflictResult lists the repairs applied for a flight.
type FlightConflictResult struct {
	AircraftID  string               `json:"aircraftId"`
	FlightID    string               `json:"flightId"`
	Resolutions []ConflictResolution `json:"resolutions"`
}

// ScheduleQuery bounds a schedule listing.
type ScheduleQuery struct {
	From string `form:"from" json:"from"`
	To   string `form:"to" json:"to"`
}

// MinuteRange is a [start, end) range rendered as clock times.
type MinuteRange struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// BusyView lists what occupies an aircraft on one date.
type BusyView struct {
	AircraftID  string        `json:"aircraftId"`
	Date        string        `json:"date"`
	Flights     []MinuteRange `json:"flights"`
	Maintenance []MinuteRange `json:"maintenance"`
	Away        []MinuteRange `json:"away"`
	Free        []MinuteRange `json:"free"`
}
