package models

import "strings"

// CheckTier identifies one recurring maintenance check kind.
type CheckTier string

const (
	TierDaily  CheckTier = "daily"
	TierWeekly CheckTier = "weekly"
	TierA      CheckTier = "a"
	TierC      CheckTier = "c"
	TierD      CheckTier = "d"
)

// IntervalUnit is the unit a tier's interval is expressed in.
type IntervalUnit string

const (
	IntervalDays        IntervalUnit = "days"
	IntervalFlightHours IntervalUnit = "flight_hours"
)

// MinuteRange is an inclusive range of candidate start minutes within a day.
type MinuteRange struct {
	From int
	To   int
}

// TierSpec is the static description of a tier.
type TierSpec struct {
	Tier            CheckTier
	Rank            int
	DurationMinutes int
	DefaultInterval int
	Unit            IntervalUnit
	BufferDays      int
	// Bands holds candidate start ranges ordered by preference; ranges in the
	// same band share a priority.
	Bands [][]MinuteRange
}

var dailyBands = [][]MinuteRange{
	{{From: 180, To: 300}},
	{{From: 1200, To: 1380}},
	{{From: 300, To: 1185}, {From: 0, To: 165}},
}

var overnightBands = [][]MinuteRange{
	{{From: 1260, To: 1425}, {From: 0, To: 270}},
	{{From: 285, To: 420}, {From: 1080, To: 1245}},
	{{From: 435, To: 1065}},
}

var tierSpecs = map[CheckTier]TierSpec{
	TierDaily:  {Tier: TierDaily, Rank: 0, DurationMinutes: 60, DefaultInterval: 1, Unit: IntervalDays, BufferDays: 0, Bands: dailyBands},
	TierWeekly: {Tier: TierWeekly, Rank: 1, DurationMinutes: 135, DefaultInterval: 7, Unit: IntervalDays, BufferDays: 1, Bands: overnightBands},
	TierA:      {Tier: TierA, Rank: 2, DurationMinutes: 540, DefaultInterval: 500, Unit: IntervalFlightHours, BufferDays: 2, Bands: overnightBands},
	TierC:      {Tier: TierC, Rank: 3, DurationMinutes: 21 * MinutesPerDay, DefaultInterval: 730, Unit: IntervalDays, BufferDays: 7, Bands: overnightBands},
	TierD:      {Tier: TierD, Rank: 4, DurationMinutes: 75 * MinutesPerDay, DefaultInterval: 2190, Unit: IntervalDays, BufferDays: 14, Bands: overnightBands},
}

// TiersHeaviestFirst lists every tier from D down to Daily.
var TiersHeaviestFirst = []CheckTier{TierD, TierC, TierA, TierWeekly, TierDaily}

// ParseCheckTier accepts tier names case-insensitively ("A", "weekly").
func ParseCheckTier(raw string) (CheckTier, bool) {
	tier := CheckTier(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := tierSpecs[tier]
	return tier, ok
}

// Valid reports whether the tier is known.
func (t CheckTier) Valid() bool {
	_, ok := tierSpecs[t]
	return ok
}

// Spec returns the static tier description.
func (t CheckTier) Spec() TierSpec {
	return tierSpecs[t]
}

// HeavierThan reports whether t subsumes other.
func (t CheckTier) HeavierThan(other CheckTier) bool {
	return tierSpecs[t].Rank > tierSpecs[other].Rank
}

// MultiDay reports whether the check spans more than one calendar day.
func (t CheckTier) MultiDay() bool {
	return tierSpecs[t].DurationMinutes > MinutesPerDay
}

// DurationDays is the number of calendar days the check occupies, rounded up.
func (t CheckTier) DurationDays() int {
	minutes := tierSpecs[t].DurationMinutes
	return (minutes + MinutesPerDay - 1) / MinutesPerDay
}

// NeedsHomeBase reports whether the check may only happen at the home base.
func (t CheckTier) NeedsHomeBase() bool {
	return t != TierDaily
}

// Label returns the display name used in messages and exports.
func (t CheckTier) Label() string {
	switch t {
	case TierDaily:
		return "Daily"
	case TierWeekly:
		return "Weekly"
	case TierA, TierC, TierD:
		return strings.ToUpper(string(t)) + " check"
	}
	return string(t)
}

// LighterTiers returns every tier subsumed by t, heaviest first.
func (t CheckTier) LighterTiers() []CheckTier {
	var result []CheckTier
	for _, tier := range TiersHeaviestFirst {
		if t.HeavierThan(tier) {
			result = append(result, tier)
		}
	}
	return result
}
