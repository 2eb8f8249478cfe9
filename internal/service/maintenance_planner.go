package service

import (
	"hash/fnv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

// TierOutcome summarises what a planning pass did for one tier.
type TierOutcome struct {
	Tier       models.CheckTier
	Expired    bool
	Suppressed bool
	Forced     bool
	Placed     []models.MaintenanceRecord
	Skipped    []time.Time
}

// Plan runs the horizon and daily planners for tiers, heaviest first, so that
// lighter tiers see the heavy records placed before them.
func (s *planningState) Plan(tiers []models.CheckTier) ([]TierOutcome, error) {
	requested := make(map[models.CheckTier]bool, len(tiers))
	for _, tier := range tiers {
		requested[tier] = true
	}
	var ordered []models.CheckTier
	for _, tier := range models.TiersHeaviestFirst {
		if requested[tier] {
			ordered = append(ordered, tier)
		}
	}

	heavy, hasHeavy := s.heaviestExpired(ordered)
	outcomes := make([]TierOutcome, 0, len(ordered))
	for _, tier := range ordered {
		var (
			outcome TierOutcome
			err     error
		)
		suppressed := hasHeavy && heavy.HeavierThan(tier)
		if tier == models.TierDaily {
			outcome, err = s.planDaily(suppressed)
		} else {
			outcome, err = s.planRecurring(tier, suppressed)
		}
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// heaviestExpired returns the first expired tier in heaviest-first order.
func (s *planningState) heaviestExpired(ordered []models.CheckTier) (models.CheckTier, bool) {
	for _, tier := range ordered {
		if s.aircraft.Checks.IsExpired(tier, s.now, s.hoursPerDay) {
			return tier, true
		}
	}
	return "", false
}

// underHeavyCheck reports whether a heavier check is running now. An aircraft
// flagged as in maintenance counts as mid-heavy-check for single-day tiers.
func (s *planningState) underHeavyCheck(tier models.CheckTier) bool {
	if s.aircraft.Status == models.AircraftStatusMaintenance && !tier.MultiDay() {
		return true
	}
	_, ok := s.heavierRecordAround(tier)
	return ok
}

// heavierRecordAround finds a heavier record in progress or starting within
// the forced lead.
func (s *planningState) heavierRecordAround(tier models.CheckTier) (models.MaintenanceRecord, bool) {
	limit := s.now.Add(s.cfg.ForcedLead)
	var found models.MaintenanceRecord
	ok := false
	for _, record := range s.records {
		if !record.Active() || !record.Tier.HeavierThan(tier) {
			continue
		}
		if record.StartsAt().After(limit) || !record.EndsAt().After(s.now) {
			continue
		}
		if !ok || record.EndsAt().After(found.EndsAt()) {
			found, ok = record, true
		}
	}
	return found, ok
}

// resumeAfterHeavy is when a suppressed lighter tier's cycle restarts.
func (s *planningState) resumeAfterHeavy(tier models.CheckTier) time.Time {
	if record, ok := s.heavierRecordAround(tier); ok {
		return record.EndsAt()
	}
	return s.now
}

func (s *planningState) planRecurring(tier models.CheckTier, heavyExpired bool) (TierOutcome, error) {
	spec := tier.Spec()
	outcome := TierOutcome{Tier: tier}
	checks := s.aircraft.Checks
	interval := checks.IntervalDuration(tier, s.hoursPerDay)
	expiry := checks.Expiry(tier, s.now, s.hoursPerDay)
	expired := checks.IsExpired(tier, s.now, s.hoursPerDay)
	outcome.Expired = expired

	if expired && (heavyExpired || s.underHeavyCheck(tier)) {
		outcome.Suppressed = true
		expiry = s.resumeAfterHeavy(tier).Add(interval)
		expired = false
	}

	today := s.today()
	horizonEnd := s.now.AddDate(0, 0, s.cfg.HorizonDays)
	lead := tier.DurationDays() + spec.BufferDays
	var previous, validUntil time.Time

	for i := 0; i < s.cfg.MaxIterations; i++ {
		immediate := i == 0 && expired
		target := models.DateOf(expiry).AddDate(0, 0, -lead)
		if target.Before(today) {
			target = today
		}
		if !immediate && target.After(horizonEnd) {
			break
		}
		if tier == models.TierWeekly && !immediate {
			target = s.staggerWeekly(target, previous)
		}
		// The next occurrence must finish before the last placed one lapses.
		due := earliest(expiry, validUntil)
		if limit := models.DateOf(due); !immediate && target.After(limit) && !limit.Before(today) {
			target = limit
		}

		if covering, ok := s.coveredNear(tier, target, interval); ok {
			previous = models.DateOf(covering.StartsAt())
			validUntil = covering.EndsAt().Add(interval)
			expiry = s.advance(expiry, interval, immediate)
			continue
		}

		switch {
		case immediate:
			record, err := s.forcePlace(tier)
			if err != nil {
				return outcome, err
			}
			outcome.Forced = true
			outcome.Placed = append(outcome.Placed, record)
			previous = record.ScheduledDate
			validUntil = record.EndsAt().Add(interval)
		default:
			if record, ok := s.placeNear(tier, target, due); ok {
				outcome.Placed = append(outcome.Placed, record)
				previous = record.ScheduledDate
				validUntil = record.EndsAt().Add(interval)
			} else {
				outcome.Skipped = append(outcome.Skipped, target)
				s.logger.Info("maintenance occurrence skipped",
					zap.String("tier", string(tier)),
					zap.Time("target", target),
					zap.Time("due", due))
				// Coverage has lapsed; the cadence restarts from the expiry pointer.
				validUntil = time.Time{}
			}
		}
		expiry = s.advance(expiry, interval, immediate)
	}
	return outcome, nil
}

// earliest returns the earlier of a and b, ignoring a zero b.
func earliest(a, b time.Time) time.Time {
	if !b.IsZero() && b.Before(a) {
		return b
	}
	return a
}

// advance moves the expiry pointer one interval. An overdue occurrence
// restarts the cadence from now.
func (s *planningState) advance(expiry time.Time, interval time.Duration, immediate bool) time.Time {
	if immediate && expiry.Before(s.now) {
		expiry = s.now
	}
	return expiry.Add(interval)
}

// weeklyOffset spreads weekly checks across weekdays per aircraft.
func weeklyOffset(aircraftID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(aircraftID))
	return int(h.Sum32() % 3)
}

func (s *planningState) staggerWeekly(target, previous time.Time) time.Time {
	shifted := target.AddDate(0, 0, -weeklyOffset(s.aircraft.ID))
	if today := s.today(); shifted.Before(today) {
		shifted = today
	}
	if !previous.IsZero() && !shifted.After(previous) {
		shifted = previous.AddDate(0, 0, 1)
		if shifted.After(target) {
			shifted = target
		}
	}
	return shifted
}

// coveredNear reports an active record that already satisfies the occurrence:
// the same tier within the dedup window or a heavier tier spanning target.
func (s *planningState) coveredNear(tier models.CheckTier, target time.Time, interval time.Duration) (models.MaintenanceRecord, bool) {
	window := interval / time.Duration(s.cfg.DedupFraction)
	for _, record := range s.records {
		if !record.Active() || !record.EndsAt().After(s.now) {
			continue
		}
		if record.Tier == tier {
			diff := record.ScheduledDate.Sub(target)
			if diff < 0 {
				diff = -diff
			}
			if diff < window {
				return record, true
			}
			continue
		}
		if record.Tier.HeavierThan(tier) && record.CoversDate(target) {
			return record, true
		}
	}
	return models.MaintenanceRecord{}, false
}

// searchOffsets lists day offsets around a target: the target itself, earlier
// days, later days, then the widened ring.
func searchOffsets(radius, widen int) []int {
	offsets := []int{0}
	ring := func(from, to int) {
		for d := from; d <= to; d++ {
			offsets = append(offsets, -d)
		}
		for d := from; d <= to; d++ {
			offsets = append(offsets, d)
		}
	}
	ring(1, radius)
	if widen > radius {
		ring(radius+1, widen)
	}
	return offsets
}

func (s *planningState) placeNear(tier models.CheckTier, target, deadline time.Time) (models.MaintenanceRecord, bool) {
	today := s.today()
	for _, offset := range searchOffsets(s.cfg.SearchRadiusDays, s.cfg.WidenRadiusDays) {
		date := target.AddDate(0, 0, offset)
		if date.Before(today) {
			continue
		}
		if record, ok := s.claimSlot(date, tier, deadline); ok {
			return record, true
		}
	}
	return models.MaintenanceRecord{}, false
}

func (s *planningState) planDaily(heavyExpired bool) (TierOutcome, error) {
	tier := models.TierDaily
	outcome := TierOutcome{Tier: tier}
	expired := s.aircraft.Checks.IsExpired(tier, s.now, s.hoursPerDay)
	outcome.Expired = expired
	if expired && (heavyExpired || s.underHeavyCheck(tier)) {
		outcome.Suppressed = true
	}

	today := s.today()
	for d := 0; d < s.cfg.DailyDays; d++ {
		date := today.AddDate(0, 0, d)
		if s.dailyCovered(date) {
			continue
		}
		if d == 0 && expired {
			if outcome.Suppressed {
				continue
			}
			record, err := s.forcePlace(tier)
			if err != nil {
				return outcome, err
			}
			outcome.Forced = true
			outcome.Placed = append(outcome.Placed, record)
			continue
		}
		record, ok := s.claimSlot(date, tier, time.Time{})
		if !ok {
			outcome.Skipped = append(outcome.Skipped, date)
			s.logger.Info("daily check skipped", zap.Time("date", date))
			continue
		}
		outcome.Placed = append(outcome.Placed, record)
	}
	return outcome, nil
}

// dailyCovered reports a daily record on date or a heavier record touching it.
func (s *planningState) dailyCovered(date time.Time) bool {
	for _, record := range s.records {
		if !record.Active() || !record.EndsAt().After(s.now) {
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

// superseded returns kept records of lighter tiers that start inside a heavy
// check placed by this pass.
func (s *planningState) superseded() []models.MaintenanceRecord {
	placed := make(map[string]bool, len(s.placed))
	for _, record := range s.placed {
		placed[record.ID] = true
	}
	var result []models.MaintenanceRecord
	for _, record := range s.records {
		if placed[record.ID] || !record.Active() || record.InProgress(s.now) {
			continue
		}
		for _, heavy := range s.placed {
			if heavy.Tier.HeavierThan(record.Tier) && heavy.Window().Contains(record.StartsAt()) {
				result = append(result, record)
				break
			}
		}
	}
	return result
}
