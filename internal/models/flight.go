package models

import "time"

// FlightCategory distinguishes passenger from cargo operations.
type FlightCategory string

const (
	FlightCategoryPassenger FlightCategory = "passenger"
	FlightCategoryCargo     FlightCategory = "cargo"
)

// Flight is a scheduled leg supplied by the flight-scheduling subsystem.
type Flight struct {
	ID          string         `db:"id" json:"id"`
	AircraftID  string         `db:"aircraft_id" json:"aircraft_id"`
	Origin      string         `db:"origin" json:"origin"`
	Destination string         `db:"destination" json:"destination"`
	DepartureAt time.Time      `db:"departure_at" json:"departure_at"`
	ArrivalAt   time.Time      `db:"arrival_at" json:"arrival_at"`
	DistanceKm  float64        `db:"distance_km" json:"distance_km"`
	Capacity    int            `db:"capacity" json:"capacity"`
	Category    FlightCategory `db:"category" json:"category"`
}
