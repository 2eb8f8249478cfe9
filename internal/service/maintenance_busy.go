package service

import (
	"sort"
	"time"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

var (
	awayOpenStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	awayOpenEnd   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// capacityBand buckets seat or payload capacity into the four handling steps.
func capacityBand(capacity int) int {
	switch {
	case capacity <= 50:
		return 0
	case capacity <= 150:
		return 1
	case capacity <= 250:
		return 2
	default:
		return 3
	}
}

func distanceFactor(km float64) float64 {
	switch {
	case km < 1000:
		return 1
	case km < 3000:
		return 1.5
	case km < 6000:
		return 2
	default:
		return 2.5
	}
}

var (
	cateringMinutes  = [4]int{10, 20, 30, 40}
	boardingMinutes  = [4]int{15, 25, 35, 45}
	loadingMinutes   = [4]int{30, 45, 60, 75}
	fuellingMinutes  = [4]int{15, 20, 25, 30}
	deboardMinutes   = [4]int{10, 15, 20, 25}
	unloadingMinutes = [4]int{25, 35, 50, 60}
	cleaningMinutes  = [4]int{10, 15, 25, 30}
)

// groundHandling returns the pre-flight and post-flight turnaround times.
func groundHandling(flight models.Flight) (pre, post time.Duration) {
	band := capacityBand(flight.Capacity)
	fuelling := int(float64(fuellingMinutes[band]) * distanceFactor(flight.DistanceKm))

	var loading, unloading, cleaning int
	if flight.Category == models.FlightCategoryCargo {
		loading = loadingMinutes[band]
		unloading = unloadingMinutes[band]
		cleaning = 10
	} else {
		loading = cateringMinutes[band] + boardingMinutes[band]
		unloading = deboardMinutes[band]
		cleaning = cleaningMinutes[band]
	}

	preMinutes := loading
	if fuelling > preMinutes {
		preMinutes = fuelling
	}
	return time.Duration(preMinutes) * time.Minute, time.Duration(unloading+cleaning) * time.Minute
}

// flightOccupancy is the span a flight keeps the aircraft unavailable,
// ground handling included.
func flightOccupancy(flight models.Flight) models.TimeWindow {
	pre, post := groundHandling(flight)
	return models.TimeWindow{
		Start: flight.DepartureAt.UTC().Add(-pre),
		End:   flight.ArrivalAt.UTC().Add(post),
	}
}

// busyCalculator derives unavailability from one aircraft's flights.
type busyCalculator struct {
	homeBase string
	flights  []models.Flight
	occupied []models.TimeWindow
	away     []models.TimeWindow
}

func newBusyCalculator(homeBase string, flights []models.Flight) *busyCalculator {
	sorted := make([]models.Flight, len(flights))
	copy(sorted, flights)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DepartureAt.Before(sorted[j].DepartureAt)
	})
	b := &busyCalculator{homeBase: homeBase, flights: sorted}
	for _, flight := range sorted {
		b.occupied = append(b.occupied, flightOccupancy(flight))
	}
	b.away = b.awayPeriods()
	return b
}

// awayPeriods walks the legs in order and opens an away period when the
// aircraft leaves home and closes it on the leg that brings it back.
func (b *busyCalculator) awayPeriods() []models.TimeWindow {
	if b.homeBase == "" || len(b.flights) == 0 {
		return nil
	}
	var periods []models.TimeWindow
	atHome := b.flights[0].Origin == b.homeBase
	openedAt := awayOpenStart
	for i, flight := range b.flights {
		occ := b.occupied[i]
		if atHome && flight.Origin == b.homeBase && flight.Destination != b.homeBase {
			atHome = false
			openedAt = occ.Start
			continue
		}
		if !atHome && flight.Destination == b.homeBase {
			periods = append(periods, models.TimeWindow{Start: openedAt, End: occ.End})
			atHome = true
		}
	}
	if !atHome {
		periods = append(periods, models.TimeWindow{Start: openedAt, End: awayOpenEnd})
	}
	return periods
}

// withFlight returns a calculator that also accounts for an extra flight.
func (b *busyCalculator) withFlight(flight models.Flight) *busyCalculator {
	flights := make([]models.Flight, 0, len(b.flights)+1)
	for _, existing := range b.flights {
		if flight.ID != "" && existing.ID == flight.ID {
			continue
		}
		flights = append(flights, existing)
	}
	return newBusyCalculator(b.homeBase, append(flights, flight))
}

// FlightIntervals returns the minutes of date blocked by flights. A flight
// spanning the whole date blocks the full day.
func (b *busyCalculator) FlightIntervals(date time.Time) []models.Interval {
	return clipWindows(b.occupied, date)
}

// AwayIntervals returns the minutes of date spent away from the home base.
func (b *busyCalculator) AwayIntervals(date time.Time) []models.Interval {
	return clipWindows(b.away, date)
}

// OverlapsFlight reports whether window collides with any flight occupancy.
func (b *busyCalculator) OverlapsFlight(window models.TimeWindow) bool {
	for _, occ := range b.occupied {
		if occ.Overlaps(window) {
			return true
		}
	}
	return false
}

// AtHome reports whether the aircraft stays at its home base for all of window.
func (b *busyCalculator) AtHome(window models.TimeWindow) bool {
	for _, period := range b.away {
		if period.Overlaps(window) {
			return false
		}
	}
	return true
}

func clipWindows(windows []models.TimeWindow, date time.Time) []models.Interval {
	var result []models.Interval
	for _, window := range windows {
		if interval, ok := window.ClipToDay(date); ok {
			result = append(result, interval)
		}
	}
	return mergeIntervals(result)
}

// mergeIntervals sorts and coalesces overlapping or touching intervals.
func mergeIntervals(intervals []models.Interval) []models.Interval {
	if len(intervals) < 2 {
		return intervals
	}
	sorted := make([]models.Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	merged := []models.Interval{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if current.Start <= last.End {
			if current.End > last.End {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

// freeGaps returns the complement of busy within [from, models.MinutesPerDay).
func freeGaps(busy []models.Interval, from int) []models.Interval {
	var gaps []models.Interval
	cursor := from
	for _, interval := range mergeIntervals(busy) {
		if interval.End <= cursor {
			continue
		}
		if interval.Start > cursor {
			gaps = append(gaps, models.Interval{Start: cursor, End: interval.Start})
		}
		cursor = interval.End
	}
	if cursor < models.MinutesPerDay {
		gaps = append(gaps, models.Interval{Start: cursor, End: models.MinutesPerDay})
	}
	return gaps
}
