package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
)

var planNow = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time {
	return &t
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func at(d, hour, minute int) time.Time {
	return time.Date(2025, 3, d, hour, minute, 0, 0, time.UTC)
}

func testAircraft(id string) models.Aircraft {
	return models.Aircraft{
		ID:           id,
		FleetID:      "fleet-1",
		Registration: "PK-" + id,
		HomeBase:     "CGK",
		Category:     models.FlightCategoryPassenger,
		Capacity:     180,
		Status:       models.AircraftStatusActive,
		Checks:       models.NewCheckState(),
		AutoSchedule: map[models.CheckTier]bool{},
	}
}

// testFlight is a 180 seat short haul leg: 65 minutes before, 45 after.
func testFlight(id, origin, destination string, departure, arrival time.Time) models.Flight {
	return models.Flight{
		ID:          id,
		AircraftID:  "ac-1",
		Origin:      origin,
		Destination: destination,
		DepartureAt: departure,
		ArrivalAt:   arrival,
		DistanceKm:  500,
		Capacity:    180,
		Category:    models.FlightCategoryPassenger,
	}
}

func newPlanningState(aircraft models.Aircraft, now time.Time, flights []models.Flight, records []models.MaintenanceRecord) *planningState {
	return &planningState{
		aircraft:    aircraft,
		now:         now,
		cfg:         MaintenanceSchedulerConfig{}.withDefaults(),
		hoursPerDay: 7,
		busy:        newBusyCalculator(aircraft.HomeBase, flights),
		records:     append([]models.MaintenanceRecord(nil), records...),
		logger:      zap.NewNop(),
	}
}

func testRecord(id string, tier models.CheckTier, date time.Time, minute int) models.MaintenanceRecord {
	return models.MaintenanceRecord{
		ID:              id,
		AircraftID:      "ac-1",
		FleetID:         "fleet-1",
		Tier:            tier,
		ScheduledDate:   date,
		StartMinute:     minute,
		DurationMinutes: tier.Spec().DurationMinutes,
		Status:          models.MaintenanceStatusActive,
	}
}

func TestGroundHandlingSteps(t *testing.T) {
	pre, post := groundHandling(models.Flight{Capacity: 180, DistanceKm: 2000, Category: models.FlightCategoryPassenger})
	assert.Equal(t, 65*time.Minute, pre)
	assert.Equal(t, 45*time.Minute, post)

	pre, post = groundHandling(models.Flight{Capacity: 40, DistanceKm: 7000, Category: models.FlightCategoryCargo})
	assert.Equal(t, 37*time.Minute, pre)
	assert.Equal(t, 35*time.Minute, post)
}

func TestBusyCalculatorClipsFlightsPerDay(t *testing.T) {
	busy := newBusyCalculator("CGK", []models.Flight{
		testFlight("f-2", "CGK", "CGK", at(10, 22, 0), at(12, 2, 0)),
		testFlight("f-1", "CGK", "CGK", at(10, 8, 0), at(10, 10, 0)),
	})

	assert.Equal(t, []models.Interval{{Start: 415, End: 645}, {Start: 1255, End: 1440}}, busy.FlightIntervals(day(10)))
	assert.Equal(t, []models.Interval{{Start: 0, End: 1440}}, busy.FlightIntervals(day(11)))
	assert.Equal(t, []models.Interval{{Start: 0, End: 165}}, busy.FlightIntervals(day(12)))
	assert.Empty(t, busy.FlightIntervals(day(13)))
}

func TestBusyCalculatorAwayFromHomeBase(t *testing.T) {
	busy := newBusyCalculator("CGK", []models.Flight{
		testFlight("out", "CGK", "DPS", at(10, 8, 0), at(10, 10, 0)),
		testFlight("back", "DPS", "CGK", at(10, 18, 0), at(10, 20, 0)),
	})

	assert.Equal(t, []models.Interval{{Start: 415, End: 1245}}, busy.AwayIntervals(day(10)))
	assert.False(t, busy.AtHome(models.TimeWindow{Start: at(10, 12, 0), End: at(10, 14, 0)}))
	assert.True(t, busy.AtHome(models.TimeWindow{Start: at(10, 21, 0), End: at(10, 23, 15)}))

	t.Run("starts at an outstation", func(t *testing.T) {
		busy := newBusyCalculator("CGK", []models.Flight{
			testFlight("ferry", "DPS", "CGK", at(10, 10, 0), at(10, 12, 0)),
		})
		assert.Equal(t, []models.Interval{{Start: 0, End: 765}}, busy.AwayIntervals(day(10)))
		assert.False(t, busy.AtHome(models.TimeWindow{Start: at(9, 21, 0), End: at(9, 23, 0)}))
	})

	t.Run("never returns", func(t *testing.T) {
		busy := newBusyCalculator("CGK", []models.Flight{
			testFlight("one-way", "CGK", "SIN", at(10, 8, 0), at(10, 10, 0)),
		})
		assert.False(t, busy.AtHome(models.TimeWindow{Start: at(25, 21, 0), End: at(25, 23, 0)}))
	})
}

func TestBusyCalculatorWithFlightReplacesByID(t *testing.T) {
	busy := newBusyCalculator("CGK", []models.Flight{
		testFlight("f-1", "CGK", "CGK", at(10, 8, 0), at(10, 10, 0)),
	})
	moved := busy.withFlight(testFlight("f-1", "CGK", "CGK", at(10, 14, 0), at(10, 16, 0)))

	assert.Equal(t, []models.Interval{{Start: 775, End: 1005}}, moved.FlightIntervals(day(10)))
	assert.Equal(t, []models.Interval{{Start: 415, End: 645}}, busy.FlightIntervals(day(10)))
}

func TestFreeGaps(t *testing.T) {
	assert.Equal(t, []models.Interval{{Start: 75, End: 85}}, freeGaps([]models.Interval{{Start: 0, End: 75}, {Start: 85, End: 1440}}, 0))
	assert.Equal(t,
		[]models.Interval{{Start: 0, End: 100}, {Start: 300, End: 1440}},
		freeGaps([]models.Interval{{Start: 150, End: 300}, {Start: 100, End: 200}}, 0))
	assert.Equal(t, []models.Interval{{Start: 600, End: 1440}}, freeGaps(nil, 600))
	assert.Empty(t, freeGaps([]models.Interval{{Start: 0, End: 1440}}, 0))
}

func TestFindSlotDailyPrefersEarlyMorning(t *testing.T) {
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, nil)

	minute, ok := state.FindSlot(day(11), models.TierDaily, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 180, minute)
}

func TestFindSlotSkipsStartsInThePast(t *testing.T) {
	state := newPlanningState(testAircraft("ac-1"), at(10, 4, 10), nil, nil)

	minute, ok := state.FindSlot(day(10), models.TierDaily, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 255, minute)
}

func TestFindSlotWeeklyAvoidsDaytimeFlight(t *testing.T) {
	flights := []models.Flight{testFlight("f-1", "CGK", "CGK", at(11, 8, 0), at(11, 14, 0))}
	state := newPlanningState(testAircraft("ac-1"), planNow, flights, nil)

	minute, ok := state.FindSlot(day(11), models.TierWeekly, day(13))
	require.True(t, ok)
	assert.Equal(t, 1260, minute)

	record := testRecord("w", models.TierWeekly, day(11), minute)
	assert.False(t, record.Window().Overlaps(flightOccupancy(flights[0])))
	assert.False(t, record.EndsAt().After(day(13)))
}

func TestFindSlotHonoursDeadline(t *testing.T) {
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, nil)

	_, ok := state.FindSlot(day(12), models.TierWeekly, at(12, 1, 0))
	assert.False(t, ok)
}

func TestFindSlotHeavyChecksNeedHomeBase(t *testing.T) {
	flights := []models.Flight{
		testFlight("out", "CGK", "DPS", at(11, 8, 0), at(11, 10, 0)),
		testFlight("back", "DPS", "CGK", at(12, 10, 0), at(12, 12, 0)),
	}
	state := newPlanningState(testAircraft("ac-1"), planNow, flights, nil)

	minute, ok := state.FindSlot(day(12), models.TierDaily, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 180, minute, "daily checks may run at an outstation")

	minute, ok = state.FindSlot(day(12), models.TierWeekly, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 1260, minute)

	_, ok = state.FindSlot(day(11), models.TierA, at(12, 6, 0))
	assert.False(t, ok)
}

func TestFindSlotMultiDayChecksStartDayOnly(t *testing.T) {
	flights := []models.Flight{testFlight("f-1", "CGK", "CGK", at(12, 10, 0), at(12, 12, 0))}
	state := newPlanningState(testAircraft("ac-1"), planNow, flights, nil)

	minute, ok := state.FindSlot(day(11), models.TierD, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 1260, minute)
}

func TestFindSlotStaggersWithinBand(t *testing.T) {
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, nil)
	state.occupancy = func(tier models.CheckTier, date time.Time) map[int]int {
		return map[int]int{180: 2, 195: 1}
	}

	minute, ok := state.FindSlot(day(11), models.TierDaily, time.Time{})
	require.True(t, ok)
	assert.Equal(t, 210, minute)

	t.Run("never leaves the preferred band", func(t *testing.T) {
		counts := map[int]int{}
		for m := 180; m <= 300; m += 15 {
			counts[m] = 3
		}
		state.occupancy = func(models.CheckTier, time.Time) map[int]int { return counts }

		minute, ok := state.FindSlot(day(11), models.TierDaily, time.Time{})
		require.True(t, ok)
		assert.Equal(t, 180, minute)
	})
}

func TestFleetTallyMergesPeerClaims(t *testing.T) {
	tally := newFleetTally()
	tally.add(testRecord("a", models.TierDaily, day(11), 180))
	peer := testRecord("b", models.TierDaily, day(11), 195)
	peer.AircraftID = "ac-2"
	tally.add(peer)

	stored := map[int]int{180: 1}
	assert.Equal(t, map[int]int{180: 1, 195: 1}, tally.merge(stored, models.TierDaily, day(11), "ac-1"))
	assert.Equal(t, map[int]int{180: 1}, stored)
	assert.Equal(t, stored, tally.merge(stored, models.TierWeekly, day(11), "ac-1"))

	tally.release("ac-2")
	assert.Equal(t, map[int]int{180: 1}, tally.merge(stored, models.TierDaily, day(11), "ac-1"))

	var none *fleetTally
	assert.Equal(t, stored, none.merge(stored, models.TierDaily, day(11), "ac-1"))
	none.hold()()
}

func TestSearchOffsets(t *testing.T) {
	assert.Equal(t, []int{0, -1, -2, -3, 1, 2, 3, -4, -5, -6, -7, 4, 5, 6, 7}, searchOffsets(3, 7))
	assert.Equal(t, []int{0, -1, 1}, searchOffsets(1, 1))
}

func TestCoveredNearDedupWindow(t *testing.T) {
	target := day(20)
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, []models.MaintenanceRecord{
		testRecord("near", models.TierWeekly, day(22), 1260),
	})
	interval := 7 * 24 * time.Hour

	_, ok := state.coveredNear(models.TierWeekly, target, interval)
	assert.True(t, ok)

	state.records = []models.MaintenanceRecord{testRecord("far", models.TierWeekly, day(23), 1260)}
	_, ok = state.coveredNear(models.TierWeekly, target, interval)
	assert.False(t, ok)

	state.records = []models.MaintenanceRecord{testRecord("heavy", models.TierC, day(15), 1260)}
	_, ok = state.coveredNear(models.TierWeekly, target, interval)
	assert.True(t, ok, "a heavier check spanning the target covers it")
}

func TestPlanDailyForcesExpiredCheck(t *testing.T) {
	aircraft := testAircraft("ac-1")
	now := time.Date(2025, 3, 10, 9, 7, 30, 0, time.UTC)
	state := newPlanningState(aircraft, now, nil, nil)

	outcomes, err := state.Plan([]models.CheckTier{models.TierDaily})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0]
	assert.True(t, outcome.Expired)
	assert.True(t, outcome.Forced)
	require.Len(t, outcome.Placed, 7)

	forced := outcome.Placed[0]
	assert.Equal(t, day(10), forced.ScheduledDate)
	assert.Equal(t, 11*60+7, forced.StartMinute)
	assert.False(t, forced.StartsAt().Before(now))
	assert.False(t, forced.StartsAt().After(now.Add(2*time.Hour)))

	for i, record := range outcome.Placed[1:] {
		assert.Equal(t, day(11+i), record.ScheduledDate)
		assert.Equal(t, 180, record.StartMinute)
	}
}

func TestPlanWeeklyBeforeExpiry(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierWeekly, day(6))
	flights := []models.Flight{testFlight("f-1", "CGK", "CGK", at(11, 8, 0), at(11, 14, 0))}
	state := newPlanningState(aircraft, planNow, flights, nil)

	outcomes, err := state.Plan([]models.CheckTier{models.TierWeekly})
	require.NoError(t, err)
	placed := outcomes[0].Placed
	require.GreaterOrEqual(t, len(placed), 10)

	first := placed[0]
	assert.Contains(t, []time.Time{day(10), day(11)}, first.ScheduledDate)
	assert.Equal(t, 1260, first.StartMinute)
	assert.False(t, first.EndsAt().After(day(13)))
	assert.False(t, first.Window().Overlaps(flightOccupancy(flights[0])))

	for i := 1; i < len(placed); i++ {
		gap := models.DaysBetween(placed[i-1].ScheduledDate, placed[i].ScheduledDate)
		assert.GreaterOrEqual(t, gap, 5)
		assert.LessOrEqual(t, gap, 7)
	}
}

func TestPlanRecurringStaysWithinPreviousValidity(t *testing.T) {
	april := func(d, hour int) time.Time { return time.Date(2025, 4, d, hour, 0, 0, 0, time.UTC) }

	weekly := testAircraft("ac-1")
	weekly.Checks.Complete(models.TierWeekly, at(6, 12, 0))

	aCheck := testAircraft("ac-1")
	aCheck.Checks.Complete(models.TierA, day(1))
	aCheck.Checks.TotalFlightHours = 300

	cases := []struct {
		name     string
		tier     models.CheckTier
		aircraft models.Aircraft
		flights  []models.Flight
	}{
		{
			name:     "weekly placed early before an away period",
			tier:     models.TierWeekly,
			aircraft: weekly,
			flights: []models.Flight{
				testFlight("out", "CGK", "DPS", at(14, 8, 0), at(14, 10, 0)),
				testFlight("back", "DPS", "CGK", at(19, 6, 0), at(19, 8, 0)),
			},
		},
		{
			name:     "a check placed early before an away period",
			tier:     models.TierA,
			aircraft: aCheck,
			flights: []models.Flight{
				testFlight("out", "CGK", "DPS", april(1, 8), april(1, 10)),
				testFlight("back", "DPS", "CGK", april(8, 6), april(8, 8)),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newPlanningState(tc.aircraft, planNow, tc.flights, nil)

			outcomes, err := state.Plan([]models.CheckTier{tc.tier})
			require.NoError(t, err)
			placed := outcomes[0].Placed
			require.GreaterOrEqual(t, len(placed), 2)

			interval := tc.aircraft.Checks.IntervalDuration(tc.tier, state.hoursPerDay)
			for i := 1; i < len(placed); i++ {
				lapse := placed[i-1].EndsAt().Add(interval)
				assert.False(t, placed[i].EndsAt().After(lapse),
					"%s check at %s ends after the one at %s lapsed", tc.tier, placed[i].StartsAt(), placed[i-1].StartsAt())
			}
		})
	}
}

func TestPlanExpiredHeavyCheckSuppressesLighterTiers(t *testing.T) {
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, nil)

	outcomes, err := state.Plan(models.TiersHeaviestFirst)
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	heavy := outcomes[0]
	require.Equal(t, models.TierD, heavy.Tier)
	require.True(t, heavy.Forced)
	require.Len(t, heavy.Placed, 1)
	dCheck := heavy.Placed[0]

	for _, outcome := range outcomes[1:] {
		assert.True(t, outcome.Suppressed, "tier %s", outcome.Tier)
		for _, record := range outcome.Placed {
			assert.False(t, record.StartsAt().Before(dCheck.EndsAt()), "%s at %s", record.Tier, record.StartsAt())
		}
	}
	assert.NotEmpty(t, outcomes[3].Placed, "weekly resumes after the heavy check")
}

func TestPlanKeepsInProgressHeavyCheck(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Status = models.AircraftStatusMaintenance
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	dCheck := testRecord("d-1", models.TierD, day(10), 720)
	state := newPlanningState(aircraft, now, nil, []models.MaintenanceRecord{dCheck})

	outcomes, err := state.Plan(models.TiersHeaviestFirst)
	require.NoError(t, err)

	assert.False(t, outcomes[0].Forced, "the running D check already covers the tier")
	assert.Empty(t, outcomes[0].Placed)
	require.NotEmpty(t, state.placed)
	for _, record := range state.placed {
		assert.False(t, record.Window().Overlaps(dCheck.Window()), "%s at %s", record.Tier, record.StartsAt())
	}
	assert.Empty(t, state.superseded())
}

func TestPlanIsIdempotent(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierD, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	aircraft.Checks.Complete(models.TierC, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	aircraft.Checks.TotalFlightHours = 300
	aircraft.Checks.Complete(models.TierWeekly, day(8))
	aircraft.Checks.Complete(models.TierDaily, at(9, 18, 0))
	flights := []models.Flight{
		testFlight("f-1", "CGK", "DPS", at(12, 7, 0), at(12, 9, 0)),
		testFlight("f-2", "DPS", "CGK", at(12, 16, 0), at(12, 18, 0)),
	}

	first := newPlanningState(aircraft, planNow, flights, nil)
	_, err := first.Plan(models.TiersHeaviestFirst)
	require.NoError(t, err)
	require.NotEmpty(t, first.placed)

	second := newPlanningState(aircraft, planNow, flights, first.placed)
	_, err = second.Plan(models.TiersHeaviestFirst)
	require.NoError(t, err)
	assert.Empty(t, second.placed)
}

func TestPlanNeverOverlapsFlightsOrItself(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.TotalFlightHours = 450
	aircraft.Checks.Complete(models.TierD, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	aircraft.Checks.Complete(models.TierC, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	aircraft.Checks.TotalFlightHours = 800
	aircraft.Checks.Complete(models.TierWeekly, day(5))
	aircraft.Checks.Complete(models.TierDaily, at(9, 3, 0))

	var flights []models.Flight
	for d := 0; d < 140; d++ {
		base := planNow.AddDate(0, 0, d)
		flights = append(flights,
			testFlight("out", "CGK", "DPS", base.Add(6*time.Hour), base.Add(8*time.Hour)),
			testFlight("back", "DPS", "CGK", base.Add(15*time.Hour), base.Add(17*time.Hour)),
		)
	}
	state := newPlanningState(aircraft, planNow, flights, nil)

	_, err := state.Plan([]models.CheckTier{models.TierA, models.TierWeekly, models.TierDaily})
	require.NoError(t, err)
	require.NotEmpty(t, state.placed)

	for i, record := range state.placed {
		assert.False(t, state.busy.OverlapsFlight(record.Window()), "%s at %s hits a flight", record.Tier, record.StartsAt())
		if record.Tier.NeedsHomeBase() {
			assert.True(t, state.busy.AtHome(record.Window()), "%s at %s away from base", record.Tier, record.StartsAt())
		}
		for _, other := range state.placed[i+1:] {
			assert.False(t, record.Window().Overlaps(other.Window()), "%s and %s overlap", record.StartsAt(), other.StartsAt())
		}
	}
}

func TestPlanSkipsOccurrencesWithoutSlot(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierWeekly, day(8))
	flights := []models.Flight{testFlight("away", "DPS", "SIN", day(1).Add(8*time.Hour), day(1).Add(10*time.Hour))}
	state := newPlanningState(aircraft, planNow, flights, nil)

	outcomes, err := state.Plan([]models.CheckTier{models.TierWeekly})
	require.NoError(t, err)
	assert.Empty(t, outcomes[0].Placed)
	assert.NotEmpty(t, outcomes[0].Skipped)
}

func TestPlanExpiredHeavyCheckAwayFromBaseFails(t *testing.T) {
	aircraft := testAircraft("ac-1")
	flights := []models.Flight{testFlight("away", "DPS", "SIN", day(1).Add(8*time.Hour), day(1).Add(10*time.Hour))}
	state := newPlanningState(aircraft, planNow, flights, nil)

	_, err := state.Plan([]models.CheckTier{models.TierC})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrImmediateUnplaceable))
	assert.Empty(t, state.placed)
}

func TestSupersededLighterRecords(t *testing.T) {
	weekly := testRecord("w-1", models.TierWeekly, day(12), 1260)
	state := newPlanningState(testAircraft("ac-1"), planNow, nil, []models.MaintenanceRecord{weekly})
	state.place(models.TierC, day(11), 1260)

	superseded := state.superseded()
	require.Len(t, superseded, 1)
	assert.Equal(t, "w-1", superseded[0].ID)
}

func dailyConflictAircraft() models.Aircraft {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierDaily, at(9, 5, 0))
	return aircraft
}

func TestResolveMovesDailyBeforeFlight(t *testing.T) {
	flight := testFlight("new", "CGK", "CGK", at(12, 4, 30), at(12, 6, 0))
	state := newPlanningState(dailyConflictAircraft(), planNow, []models.Flight{flight}, []models.MaintenanceRecord{
		testRecord("d-11", models.TierDaily, day(11), 180),
		testRecord("d-12", models.TierDaily, day(12), 180),
	})

	conflicts, err := state.conflictingRecords(flight)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "d-12", conflicts[0].ID)

	fix, err := state.resolve(conflicts[0], flight)
	require.NoError(t, err)
	assert.Equal(t, ConflictMovedBeforeFlight, fix.Action)
	assert.Equal(t, day(12), fix.Date)
	assert.Equal(t, 145, fix.StartMinute)
}

func TestResolveMovesDailyToLargestGap(t *testing.T) {
	earlier := testFlight("late", "CGK", "CGK", at(11, 23, 0), at(12, 2, 0))
	flight := testFlight("new", "CGK", "CGK", at(12, 4, 30), at(12, 6, 0))
	state := newPlanningState(dailyConflictAircraft(), planNow, []models.Flight{earlier, flight}, []models.MaintenanceRecord{
		testRecord("d-11", models.TierDaily, day(11), 180),
		testRecord("d-12", models.TierDaily, day(12), 180),
	})

	fix, err := state.resolve(testRecord("d-12", models.TierDaily, day(12), 180), flight)
	require.NoError(t, err)
	assert.Equal(t, ConflictMovedToGap, fix.Action)
	assert.Equal(t, 1380, fix.StartMinute)
}

func TestResolveRemovesDailyCoveredByNeighbour(t *testing.T) {
	earlier := testFlight("late", "CGK", "CGK", at(11, 22, 0), at(12, 0, 30))
	flight := testFlight("new", "CGK", "CGK", at(12, 2, 30), at(13, 1, 0))
	state := newPlanningState(dailyConflictAircraft(), planNow, []models.Flight{earlier, flight}, []models.MaintenanceRecord{
		testRecord("d-11", models.TierDaily, day(11), 180),
		testRecord("d-12", models.TierDaily, day(12), 180),
	})

	fix, err := state.resolve(testRecord("d-12", models.TierDaily, day(12), 180), flight)
	require.NoError(t, err)
	assert.Equal(t, ConflictRemovedCovered, fix.Action)
	assert.True(t, fix.Removes())
}

func TestResolveMovesWeeklyLater(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierWeekly, day(8))
	evening := testFlight("evening", "CGK", "CGK", at(11, 20, 0), at(11, 21, 30))
	flight := testFlight("new", "CGK", "CGK", at(12, 1, 0), at(13, 1, 0))
	weekly := testRecord("w-12", models.TierWeekly, day(12), 1260)
	state := newPlanningState(aircraft, planNow, []models.Flight{evening, flight}, []models.MaintenanceRecord{weekly})

	fix, err := state.resolve(weekly, flight)
	require.NoError(t, err)
	assert.Equal(t, ConflictMovedLater, fix.Action)
	assert.Equal(t, day(13), fix.Date)
	assert.Equal(t, 1260, fix.StartMinute)
}

func TestResolveFailsWhenEveryMoveExpiresTheCheck(t *testing.T) {
	aircraft := testAircraft("ac-1")
	aircraft.Checks.Complete(models.TierWeekly, day(6))
	flight := testFlight("new", "CGK", "CGK", at(12, 1, 0), at(13, 1, 0))
	weekly := testRecord("w-12", models.TierWeekly, day(12), 1260)
	state := newPlanningState(aircraft, at(11, 23, 30), []models.Flight{flight}, []models.MaintenanceRecord{weekly})

	_, err := state.resolve(weekly, flight)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCannotReschedule))
	assert.Len(t, state.records, 1, "the record stays where it was")
}

func TestConflictingRecordsRejectsMaintenanceInProgress(t *testing.T) {
	flight := testFlight("new", "CGK", "CGK", at(12, 4, 30), at(12, 6, 0))
	state := newPlanningState(dailyConflictAircraft(), at(12, 3, 30), []models.Flight{flight}, []models.MaintenanceRecord{
		testRecord("d-12", models.TierDaily, day(12), 180),
	})

	_, err := state.conflictingRecords(flight)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMaintenanceInProgress))
}

func TestConflictingRecordsIncludesHeavyChecksAwayFromBase(t *testing.T) {
	flight := testFlight("new", "CGK", "DPS", at(12, 8, 0), at(12, 10, 0))
	weekly := testRecord("w-12", models.TierWeekly, day(12), 1260)
	state := newPlanningState(testAircraft("ac-1"), planNow, []models.Flight{flight}, []models.MaintenanceRecord{weekly})

	conflicts, err := state.conflictingRecords(flight)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "w-12", conflicts[0].ID)
}
