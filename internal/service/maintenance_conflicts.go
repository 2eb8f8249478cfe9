package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
)

// ConflictAction names the strategy that repaired a conflicting record.
type ConflictAction string

const (
	ConflictMovedBeforeFlight ConflictAction = "moved_before_flight"
	ConflictMovedToGap        ConflictAction = "moved_to_gap"
	ConflictRemovedCovered    ConflictAction = "removed_covered"
	ConflictMovedNextDay      ConflictAction = "moved_next_day"
	ConflictMovedLater        ConflictAction = "moved_later"
)

// conflictFix describes how one record is repaired.
type conflictFix struct {
	Record      models.MaintenanceRecord
	Action      ConflictAction
	Date        time.Time
	StartMinute int
}

// Removes reports whether the fix deactivates the record.
func (f conflictFix) Removes() bool {
	return f.Action == ConflictRemovedCovered
}

// conflictingRecords lists active records that the flight now collides with,
// either directly or by taking the aircraft away from its home base.
func (s *planningState) conflictingRecords(flight models.Flight) ([]models.MaintenanceRecord, error) {
	occ := flightOccupancy(flight)
	var result []models.MaintenanceRecord
	for _, record := range s.records {
		if !record.Active() || !record.EndsAt().After(s.now) {
			continue
		}
		collides := record.Window().Overlaps(occ)
		if !collides && record.Tier.NeedsHomeBase() {
			window := checkWindow(record.ScheduledDate, record.StartMinute, record.Tier)
			collides = !s.busy.AtHome(window)
		}
		if !collides {
			continue
		}
		if record.InProgress(s.now) {
			return nil, appErrors.Clone(appErrors.ErrMaintenanceInProgress,
				fmt.Sprintf("flight %s overlaps %s already in progress on aircraft %s", flight.ID, record.Tier.Label(), s.aircraft.Registration))
		}
		result = append(result, record)
	}
	return result, nil
}

func (s *planningState) removeRecord(id string) {
	kept := s.records[:0]
	for _, record := range s.records {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	s.records = kept
}

// validityDeadline is the latest instant the record may end without the tier
// lapsing: the previous completion or occurrence plus one interval.
func (s *planningState) validityDeadline(record models.MaintenanceRecord) time.Time {
	var anchor time.Time
	if last := s.aircraft.Checks.Entry(record.Tier).LastCompletedAt; last != nil {
		anchor = *last
	}
	for _, other := range s.records {
		if other.ID == record.ID || !other.Active() || other.Tier != record.Tier {
			continue
		}
		if other.StartsAt().Before(record.StartsAt()) && other.StartsAt().After(anchor) {
			anchor = other.StartsAt()
		}
	}
	if anchor.IsZero() {
		return models.DateOf(record.EndsAt()).AddDate(0, 0, 1)
	}
	if record.Tier == models.TierDaily {
		entry := s.aircraft.Checks.Entry(models.TierDaily)
		return models.DateOf(anchor).AddDate(0, 0, entry.Interval+1)
	}
	return anchor.Add(s.aircraft.Checks.IntervalDuration(record.Tier, s.hoursPerDay))
}

// resolve repositions or removes a record hit by flight. The record must not
// be counted as an obstacle for itself, so it is dropped from the state first.
func (s *planningState) resolve(record models.MaintenanceRecord, flight models.Flight) (conflictFix, error) {
	s.removeRecord(record.ID)
	tier := record.Tier
	deadline := s.validityDeadline(record)
	occ := flightOccupancy(flight)

	accept := func(action ConflictAction, date time.Time, minute int) conflictFix {
		moved := record
		moved.ScheduledDate = models.DateOf(date)
		moved.StartMinute = minute
		s.records = append(s.records, moved)
		return conflictFix{Record: record, Action: action, Date: moved.ScheduledDate, StartMinute: minute}
	}

	if !tier.MultiDay() {
		start := occ.Start.Add(-time.Duration(record.DurationMinutes) * time.Minute)
		date, minute := models.DateOf(start), models.MinuteOfDay(start)
		if start.Equal(models.At(date, minute)) && s.fits(date, minute, tier, deadline) {
			return accept(ConflictMovedBeforeFlight, date, minute), nil
		}
		if minute, ok := s.largestGapSlot(record.ScheduledDate, tier, deadline); ok {
			return accept(ConflictMovedToGap, record.ScheduledDate, minute), nil
		}
	}

	if tier == models.TierDaily {
		prev := record.ScheduledDate.AddDate(0, 0, -1)
		next := record.ScheduledDate.AddDate(0, 0, 1)
		if s.dailyCoveredOn(prev) || s.dailyCoveredOn(next) {
			return conflictFix{Record: record, Action: ConflictRemovedCovered, Date: record.ScheduledDate, StartMinute: record.StartMinute}, nil
		}
		if minute, ok := s.FindSlot(next, tier, time.Time{}); ok {
			return accept(ConflictMovedNextDay, next, minute), nil
		}
	}

	for d := 1; d <= s.cfg.MaxConflictSearchDays; d++ {
		date := record.ScheduledDate.AddDate(0, 0, d)
		if !models.At(date, 0).Before(deadline) {
			break
		}
		if minute, ok := s.findSlotClearOf(date, tier, deadline, occ); ok {
			return accept(ConflictMovedLater, date, minute), nil
		}
	}

	s.records = append(s.records, record)
	return conflictFix{}, appErrors.Clone(appErrors.ErrCannotReschedule,
		fmt.Sprintf("%s on %s for aircraft %s cannot be moved off flight %s without expiring",
			tier.Label(), record.ScheduledDate.Format("2006-01-02"), s.aircraft.Registration, flight.ID))
}

// dailyCoveredOn reports whether a completed or planned check covers date.
func (s *planningState) dailyCoveredOn(date time.Time) bool {
	if last := s.aircraft.Checks.Entry(models.TierDaily).LastCompletedAt; last != nil && models.DateOf(*last).Equal(date) {
		return true
	}
	for _, record := range s.records {
		if !record.Active() {
			continue
		}
		if record.Tier == models.TierDaily && record.ScheduledDate.Equal(date) {
			return true
		}
		if record.Tier.HeavierThan(models.TierDaily) && record.CoversDate(date) {
			return true
		}
	}
	return false
}

// largestGapSlot places the check flush with the end of the widest free gap
// of date, falling back to narrower gaps.
func (s *planningState) largestGapSlot(date time.Time, tier models.CheckTier, deadline time.Time) (int, bool) {
	from := 0
	if date.Equal(s.today()) {
		from = models.MinuteOfDay(ceilMinute(s.now))
	}
	gaps := freeGaps(s.blockedIntervals(date, tier), from)
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Length() > gaps[j].Length() })
	duration := tier.Spec().DurationMinutes
	for _, gap := range gaps {
		if gap.Length() < duration {
			break
		}
		minute := gap.End - duration
		if s.fits(date, minute, tier, deadline) {
			return minute, true
		}
	}
	return 0, false
}

// findSlotClearOf is FindSlot that also keeps a multi-day check's whole span
// clear of the triggering flight.
func (s *planningState) findSlotClearOf(date time.Time, tier models.CheckTier, deadline time.Time, occ models.TimeWindow) (int, bool) {
	if !tier.MultiDay() {
		return s.FindSlot(date, tier, deadline)
	}
	for _, band := range s.candidateBands(tier) {
		for _, minute := range band {
			start := models.At(date, minute)
			span := models.TimeWindow{Start: start, End: start.Add(time.Duration(tier.Spec().DurationMinutes) * time.Minute)}
			if span.Overlaps(occ) {
				continue
			}
			if s.fits(date, minute, tier, deadline) {
				return minute, true
			}
		}
	}
	return 0, false
}
