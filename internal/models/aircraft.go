package models

import "time"

// AircraftStatus describes the operational state of an aircraft.
type AircraftStatus string

const (
	AircraftStatusActive      AircraftStatus = "active"
	AircraftStatusMaintenance AircraftStatus = "maintenance"
)

// Aircraft is the scheduler's view of one airframe.
type Aircraft struct {
	ID           string             `json:"id"`
	FleetID      string             `json:"fleet_id"`
	Registration string             `json:"registration"`
	HomeBase     string             `json:"home_base"`
	Category     FlightCategory     `json:"category"`
	Capacity     int                `json:"capacity"`
	Status       AircraftStatus     `json:"status"`
	Checks       CheckState         `json:"checks"`
	AutoSchedule map[CheckTier]bool `json:"auto_schedule"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// EnabledTiers returns the auto-scheduled tiers, heaviest first.
func (a Aircraft) EnabledTiers() []CheckTier {
	var tiers []CheckTier
	for _, tier := range TiersHeaviestFirst {
		if a.AutoSchedule[tier] {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

// CheckEntry holds one tier's completion record.
type CheckEntry struct {
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	Interval        int        `json:"interval"`
}

// CheckState carries the per-tier completion state of an aircraft.
type CheckState struct {
	Entries               map[CheckTier]CheckEntry `json:"entries"`
	LastACheckFlightHours float64                  `json:"last_a_check_flight_hours"`
	TotalFlightHours      float64                  `json:"total_flight_hours"`
}

// NewCheckState returns a state with default intervals and no completions.
func NewCheckState() CheckState {
	entries := make(map[CheckTier]CheckEntry, len(tierSpecs))
	for tier, spec := range tierSpecs {
		entries[tier] = CheckEntry{Interval: spec.DefaultInterval}
	}
	return CheckState{Entries: entries}
}

// Entry returns the tier entry, falling back to the default interval.
func (s CheckState) Entry(tier CheckTier) CheckEntry {
	entry, ok := s.Entries[tier]
	if !ok || entry.Interval <= 0 {
		entry.Interval = tier.Spec().DefaultInterval
	}
	return entry
}

// RemainingFlightHours is the A-check budget left before expiry.
func (s CheckState) RemainingFlightHours() float64 {
	entry := s.Entry(TierA)
	return float64(entry.Interval) - (s.TotalFlightHours - s.LastACheckFlightHours)
}

// IntervalDuration converts the tier interval to simulated time. The A check
// interval is forecast from hoursPerDay of utilisation.
func (s CheckState) IntervalDuration(tier CheckTier, hoursPerDay float64) time.Duration {
	entry := s.Entry(tier)
	if tier.Spec().Unit == IntervalFlightHours {
		if hoursPerDay <= 0 {
			hoursPerDay = 1
		}
		return time.Duration(float64(entry.Interval) / hoursPerDay * float64(24*time.Hour))
	}
	return time.Duration(entry.Interval) * 24 * time.Hour
}

// Expiry returns when the tier's last completion stops being valid. A tier
// that was never completed expires at now.
func (s CheckState) Expiry(tier CheckTier, now time.Time, hoursPerDay float64) time.Time {
	entry := s.Entry(tier)
	if entry.LastCompletedAt == nil {
		return now
	}
	last := entry.LastCompletedAt.UTC()
	switch tier {
	case TierA:
		if hoursPerDay <= 0 {
			hoursPerDay = 1
		}
		remaining := s.RemainingFlightHours()
		return now.Add(time.Duration(remaining / hoursPerDay * float64(24*time.Hour)))
	case TierDaily:
		// Valid through the end of the day following the check day.
		return DateOf(last).AddDate(0, 0, entry.Interval+1)
	default:
		return last.AddDate(0, 0, entry.Interval)
	}
}

// IsExpired reports whether the tier no longer covers now.
func (s CheckState) IsExpired(tier CheckTier, now time.Time, hoursPerDay float64) bool {
	entry := s.Entry(tier)
	if entry.LastCompletedAt == nil {
		return true
	}
	if tier == TierA {
		return s.RemainingFlightHours() <= 0
	}
	return !s.Expiry(tier, now, hoursPerDay).After(now)
}

// Complete records tier as performed at the given time and resets every
// lighter tier it subsumes.
func (s *CheckState) Complete(tier CheckTier, at time.Time) {
	if s.Entries == nil {
		s.Entries = make(map[CheckTier]CheckEntry, len(tierSpecs))
	}
	at = at.UTC()
	reset := append([]CheckTier{tier}, tier.LighterTiers()...)
	for _, t := range reset {
		entry := s.Entry(t)
		completed := at
		entry.LastCompletedAt = &completed
		s.Entries[t] = entry
		if t == TierA {
			s.LastACheckFlightHours = s.TotalFlightHours
		}
	}
}
