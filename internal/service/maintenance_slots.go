package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
)

// occupancyLookup returns how many other fleet aircraft start the tier at each
// minute of date.
type occupancyLookup func(tier models.CheckTier, date time.Time) map[int]int

type tallyKey struct {
	tier models.CheckTier
	date time.Time
}

type tallyStart struct {
	aircraftID string
	minute     int
}

// fleetTally tracks start minutes claimed by the passes of one fleet refresh.
// Peers run in separate transactions and cannot read each other's records
// until commit. A nil tally is a no-op.
type fleetTally struct {
	claimMu sync.Mutex

	mu     sync.Mutex
	starts map[tallyKey][]tallyStart
}

func newFleetTally() *fleetTally {
	return &fleetTally{starts: make(map[tallyKey][]tallyStart)}
}

// hold serialises slot choice and placement across the fleet.
func (t *fleetTally) hold() func() {
	if t == nil {
		return func() {}
	}
	t.claimMu.Lock()
	return t.claimMu.Unlock
}

func (t *fleetTally) add(record models.MaintenanceRecord) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := tallyKey{tier: record.Tier, date: record.ScheduledDate}
	t.starts[key] = append(t.starts[key], tallyStart{aircraftID: record.AircraftID, minute: record.StartMinute})
}

// merge returns stored counts plus the starts claimed by other aircraft.
func (t *fleetTally) merge(counts map[int]int, tier models.CheckTier, date time.Time, aircraftID string) map[int]int {
	if t == nil {
		return counts
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	starts := t.starts[tallyKey{tier: tier, date: date}]
	if len(starts) == 0 {
		return counts
	}
	merged := make(map[int]int, len(counts)+len(starts))
	for minute, n := range counts {
		merged[minute] = n
	}
	for _, start := range starts {
		if start.aircraftID != aircraftID {
			merged[start.minute]++
		}
	}
	return merged
}

// release drops the claims of an aircraft whose pass rolled back.
func (t *fleetTally) release(aircraftID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, starts := range t.starts {
		kept := starts[:0]
		for _, start := range starts {
			if start.aircraftID != aircraftID {
				kept = append(kept, start)
			}
		}
		t.starts[key] = kept
	}
}

// planningState is the in-memory view of one aircraft used by a single
// planning or repair pass.
type planningState struct {
	aircraft    models.Aircraft
	now         time.Time
	cfg         MaintenanceSchedulerConfig
	hoursPerDay float64
	busy        *busyCalculator
	records     []models.MaintenanceRecord
	placed      []models.MaintenanceRecord
	occupancy   occupancyLookup
	tally       *fleetTally
	logger      *zap.Logger
}

func (s *planningState) today() time.Time {
	return models.DateOf(s.now)
}

// candidateBands expands the tier's preference bands into start minutes.
func (s *planningState) candidateBands(tier models.CheckTier) [][]int {
	step := s.cfg.SlotStepMinutes
	bands := tier.Spec().Bands
	result := make([][]int, 0, len(bands))
	for _, band := range bands {
		var minutes []int
		for _, r := range band {
			for m := r.From; m <= r.To; m += step {
				minutes = append(minutes, m)
			}
		}
		result = append(result, minutes)
	}
	return result
}

// FindSlot returns the first conflict-free start minute on date, walking the
// tier's bands in preference order. Within a band, minutes used by fewer
// fleet peers come first. A non-zero deadline rejects slots ending after it.
func (s *planningState) FindSlot(date time.Time, tier models.CheckTier, deadline time.Time) (int, bool) {
	date = models.DateOf(date)
	var counts map[int]int
	if s.occupancy != nil {
		counts = s.occupancy(tier, date)
	}
	for _, band := range s.candidateBands(tier) {
		if len(counts) > 0 {
			sort.SliceStable(band, func(i, j int) bool {
				return counts[band[i]] < counts[band[j]]
			})
		}
		for _, minute := range band {
			if s.fits(date, minute, tier, deadline) {
				return minute, true
			}
		}
	}
	return 0, false
}

// checkWindow is the span tested for conflicts. Multi-day checks are only
// tested on their start day.
func checkWindow(date time.Time, minute int, tier models.CheckTier) models.TimeWindow {
	start := models.At(date, minute)
	if tier.MultiDay() {
		return models.TimeWindow{Start: start, End: models.DateOf(date).Add(24 * time.Hour)}
	}
	return models.TimeWindow{Start: start, End: start.Add(time.Duration(tier.Spec().DurationMinutes) * time.Minute)}
}

func (s *planningState) fits(date time.Time, minute int, tier models.CheckTier, deadline time.Time) bool {
	start := models.At(date, minute)
	if start.Before(s.now) {
		return false
	}
	end := start.Add(time.Duration(tier.Spec().DurationMinutes) * time.Minute)
	if !deadline.IsZero() && end.After(deadline) {
		return false
	}
	window := checkWindow(date, minute, tier)
	if s.busy.OverlapsFlight(window) {
		return false
	}
	for _, record := range s.records {
		if record.Active() && record.Window().Overlaps(window) {
			return false
		}
	}
	if tier.NeedsHomeBase() && !s.busy.AtHome(window) {
		return false
	}
	return true
}

func ceilMinute(t time.Time) time.Time {
	truncated := t.Truncate(time.Minute)
	if truncated.Before(t) {
		return truncated.Add(time.Minute)
	}
	return truncated
}

// forcePlace puts the currently expired occurrence at now plus the forced
// lead, ignoring flights. Heavy checks must still start at the home base.
func (s *planningState) forcePlace(tier models.CheckTier) (models.MaintenanceRecord, error) {
	start := s.now.Add(s.cfg.ForcedLead).Truncate(time.Minute)
	date := models.DateOf(start)
	minute := models.MinuteOfDay(start)
	if tier.NeedsHomeBase() && !s.busy.AtHome(checkWindow(date, minute, tier)) {
		return models.MaintenanceRecord{}, appErrors.Clone(appErrors.ErrImmediateUnplaceable,
			fmt.Sprintf("%s for aircraft %s is expired and cannot start at %s: aircraft is away from home base %s",
				tier.Label(), s.aircraft.Registration, start.Format(time.RFC3339), s.aircraft.HomeBase))
	}
	return s.place(tier, date, minute), nil
}

func (s *planningState) place(tier models.CheckTier, date time.Time, minute int) models.MaintenanceRecord {
	record := models.MaintenanceRecord{
		ID:              uuid.NewString(),
		AircraftID:      s.aircraft.ID,
		FleetID:         s.aircraft.FleetID,
		Tier:            tier,
		ScheduledDate:   models.DateOf(date),
		StartMinute:     minute,
		DurationMinutes: tier.Spec().DurationMinutes,
		Status:          models.MaintenanceStatusActive,
	}
	s.records = append(s.records, record)
	s.placed = append(s.placed, record)
	s.tally.add(record)
	return record
}

// claimSlot finds and places one occurrence on date while holding the fleet
// tally, so concurrent passes never pick the same minute unseen.
func (s *planningState) claimSlot(date time.Time, tier models.CheckTier, deadline time.Time) (models.MaintenanceRecord, bool) {
	if s.occupancy != nil {
		// Load stored counts before taking the fleet lock.
		s.occupancy(tier, models.DateOf(date))
	}
	release := s.tally.hold()
	defer release()
	minute, ok := s.FindSlot(date, tier, deadline)
	if !ok {
		return models.MaintenanceRecord{}, false
	}
	return s.place(tier, date, minute), true
}

// recordIntervals returns the minutes of date held by active records.
func (s *planningState) recordIntervals(date time.Time) []models.Interval {
	windows := make([]models.TimeWindow, 0, len(s.records))
	for _, record := range s.records {
		if record.Active() {
			windows = append(windows, record.Window())
		}
	}
	return clipWindows(windows, date)
}

// blockedIntervals merges everything that keeps a tier off date.
func (s *planningState) blockedIntervals(date time.Time, tier models.CheckTier) []models.Interval {
	blocked := append([]models.Interval{}, s.busy.FlightIntervals(date)...)
	blocked = append(blocked, s.recordIntervals(date)...)
	if tier.NeedsHomeBase() {
		blocked = append(blocked, s.busy.AwayIntervals(date)...)
	}
	return mergeIntervals(blocked)
}
