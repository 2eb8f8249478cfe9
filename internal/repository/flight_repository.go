package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

// FlightRepository reads the flight schedule owned by the flight planner.
type FlightRepository struct {
	db *sqlx.DB
}

// NewFlightRepository constructs the repository.
func NewFlightRepository(db *sqlx.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

func (r *FlightRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByAircraftBetween returns flights of an aircraft that overlap [from, to).
func (r *FlightRepository) ListByAircraftBetween(ctx context.Context, exec sqlx.ExtContext, aircraftID string, from, to time.Time) ([]models.Flight, error) {
	const query = `SELECT id, aircraft_id, origin, destination, departure_at, arrival_at, distance_km, capacity, category
FROM flights WHERE aircraft_id = $1 AND departure_at < $3 AND arrival_at > $2 ORDER BY departure_at ASC`
	var flights []models.Flight
	if err := sqlx.SelectContext(ctx, r.exec(exec), &flights, query, aircraftID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list aircraft flights: %w", err)
	}
	return flights, nil
}
