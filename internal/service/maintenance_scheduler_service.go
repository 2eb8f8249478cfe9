package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/fleet-mx-api/internal/dto"
	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
	"github.com/noah-isme/fleet-mx-api/pkg/logger"
)

type aircraftStore interface {
	FindByID(ctx context.Context, id string) (*models.Aircraft, error)
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Aircraft, error)
	ListByFleet(ctx context.Context, fleetID string) ([]models.Aircraft, error)
	SetAutoSchedule(ctx context.Context, exec sqlx.ExtContext, id string, tier models.CheckTier, enabled bool) error
	SaveCheckState(ctx context.Context, exec sqlx.ExtContext, aircraft *models.Aircraft) error
}

type flightReader interface {
	ListByAircraftBetween(ctx context.Context, exec sqlx.ExtContext, aircraftID string, from, to time.Time) ([]models.Flight, error)
}

type maintenanceStore interface {
	ListActiveByAircraft(ctx context.Context, exec sqlx.ExtContext, aircraftID string, endsAfter time.Time) ([]models.MaintenanceRecord, error)
	ListByAircraftBetween(ctx context.Context, aircraftID string, from, to time.Time) ([]models.MaintenanceRecord, error)
	CountFleetOccupancy(ctx context.Context, fleetID string, tier models.CheckTier, date time.Time, excludeAircraftID string) (map[int]int, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, records []models.MaintenanceRecord) error
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, date time.Time, startMinute int) error
	Deactivate(ctx context.Context, exec sqlx.ExtContext, id string) error
	DeleteFuture(ctx context.Context, exec sqlx.ExtContext, aircraftID string, tiers []models.CheckTier, from time.Time) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type schedulerMetrics interface {
	ObserveRefresh(scope string, duration time.Duration)
	RecordPlaced(tier models.CheckTier, mode string, count int)
	RecordSkipped(tier models.CheckTier, reason string, count int)
	RecordConflict(tier models.CheckTier, action string)
}

// UtilizationEstimator forecasts how many flight hours an aircraft flies per
// day. It drives the A-check due date.
type UtilizationEstimator interface {
	DailyFlightHours(aircraft models.Aircraft) float64
}

// ConstantUtilization assumes the same daily utilisation for every aircraft.
type ConstantUtilization float64

// DailyFlightHours implements UtilizationEstimator.
func (c ConstantUtilization) DailyFlightHours(models.Aircraft) float64 {
	if c <= 0 {
		return 7
	}
	return float64(c)
}

// MaintenanceSchedulerConfig governs planning behaviour.
type MaintenanceSchedulerConfig struct {
	HorizonDays           int
	DailyDays             int
	MaxIterations         int
	FleetBatchSize        int
	DedupFraction         int
	SlotStepMinutes       int
	ForcedLead            time.Duration
	SearchRadiusDays      int
	WidenRadiusDays       int
	CacheTTL              time.Duration
	FlightLookbackDays    int
	MaxConflictSearchDays int
}

func (c MaintenanceSchedulerConfig) withDefaults() MaintenanceSchedulerConfig {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 120
	}
	if c.DailyDays <= 0 {
		c.DailyDays = 7
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 20
	}
	if c.FleetBatchSize <= 0 {
		c.FleetBatchSize = 5
	}
	if c.DedupFraction <= 0 {
		c.DedupFraction = 3
	}
	if c.SlotStepMinutes <= 0 {
		c.SlotStepMinutes = 15
	}
	if c.ForcedLead <= 0 {
		c.ForcedLead = 2 * time.Hour
	}
	if c.SearchRadiusDays <= 0 {
		c.SearchRadiusDays = 3
	}
	if c.WidenRadiusDays < c.SearchRadiusDays {
		c.WidenRadiusDays = 7
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 2 * time.Minute
	}
	if c.FlightLookbackDays <= 0 {
		c.FlightLookbackDays = 30
	}
	if c.MaxConflictSearchDays <= 0 {
		c.MaxConflictSearchDays = 30
	}
	return c
}

// MaintenanceSchedulerService is the entry point for planning, toggling and
// repairing maintenance of the fleet.
type MaintenanceSchedulerService struct {
	aircraft    aircraftStore
	flights     flightReader
	records     maintenanceStore
	tx          txProvider
	cache       scheduleCache
	metrics     schedulerMetrics
	utilization UtilizationEstimator
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         MaintenanceSchedulerConfig
}

// NewMaintenanceSchedulerService wires scheduler dependencies.
func NewMaintenanceSchedulerService(
	aircraft aircraftStore,
	flights flightReader,
	records maintenanceStore,
	tx txProvider,
	cache scheduleCache,
	metrics schedulerMetrics,
	utilization UtilizationEstimator,
	validate *validator.Validate,
	log *zap.Logger,
	cfg MaintenanceSchedulerConfig,
) *MaintenanceSchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if utilization == nil {
		utilization = ConstantUtilization(7)
	}
	return &MaintenanceSchedulerService{
		aircraft:    aircraft,
		flights:     flights,
		records:     records,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		utilization: utilization,
		validator:   validate,
		logger:      log,
		cfg:         cfg.withDefaults(),
	}
}

func scheduleCachePattern(aircraftID string) string {
	return fmt.Sprintf("mx:schedule:%s:*", aircraftID)
}

func scheduleCacheKey(aircraftID string, from, to time.Time) string {
	return fmt.Sprintf("mx:schedule:%s:%s:%s", aircraftID, from.Format("20060102"), to.Format("20060102"))
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *MaintenanceSchedulerService) validate(payload interface{}) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return nil
}

func rollback(tx *sqlx.Tx, committed *bool) {
	if !*committed {
		_ = tx.Rollback()
	}
}

// loadState builds the planning view of an aircraft inside exec.
func (s *MaintenanceSchedulerService) loadState(ctx context.Context, exec sqlx.ExtContext, aircraft *models.Aircraft, now time.Time, tally *fleetTally) (*planningState, error) {
	from := now.AddDate(0, 0, -s.cfg.FlightLookbackDays)
	to := now.AddDate(0, 0, s.cfg.HorizonDays+s.cfg.WidenRadiusDays+2)
	flights, err := s.flights.ListByAircraftBetween(ctx, exec, aircraft.ID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flights")
	}
	records, err := s.records.ListActiveByAircraft(ctx, exec, aircraft.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance records")
	}
	log := logger.ForAircraft(s.logger, aircraft.ID)
	return &planningState{
		aircraft:    *aircraft,
		now:         now.UTC(),
		cfg:         s.cfg,
		hoursPerDay: s.utilization.DailyFlightHours(*aircraft),
		busy:        newBusyCalculator(aircraft.HomeBase, flights),
		records:     records,
		occupancy:   s.occupancyLookup(ctx, aircraft, tally, log),
		tally:       tally,
		logger:      log,
	}, nil
}

// occupancyLookup memoises stored fleet counts per tier and date and adds the
// uncommitted starts of the current fleet refresh. Failures only cost
// staggering quality, so they are logged and treated as empty.
func (s *MaintenanceSchedulerService) occupancyLookup(ctx context.Context, aircraft *models.Aircraft, tally *fleetTally, log *zap.Logger) occupancyLookup {
	type key struct {
		tier models.CheckTier
		date time.Time
	}
	memo := make(map[key]map[int]int)
	return func(tier models.CheckTier, date time.Time) map[int]int {
		if aircraft.FleetID == "" {
			return nil
		}
		k := key{tier: tier, date: date}
		counts, ok := memo[k]
		if !ok {
			var err error
			counts, err = s.records.CountFleetOccupancy(ctx, aircraft.FleetID, tier, date, aircraft.ID)
			if err != nil {
				log.Warn("fleet occupancy unavailable", zap.String("tier", string(tier)), zap.Error(err))
				counts = nil
			}
			memo[k] = counts
		}
		return tally.merge(counts, tier, date, aircraft.ID)
	}
}

// Refresh rebuilds the plan of every auto-scheduled tier of an aircraft.
func (s *MaintenanceSchedulerService) Refresh(ctx context.Context, aircraftID string, req dto.RefreshRequest) (*dto.RefreshResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.refresh(ctx, aircraftID, req.Now.UTC(), nil, nil)
	if s.metrics != nil {
		s.metrics.ObserveRefresh("aircraft", time.Since(start))
	}
	return result, err
}

// refresh runs one locked planning pass. A nil tier list means every enabled
// tier; tally is shared by the passes of a fleet refresh.
func (s *MaintenanceSchedulerService) refresh(ctx context.Context, aircraftID string, now time.Time, only []models.CheckTier, tally *fleetTally) (*dto.RefreshResult, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer rollback(tx, &committed)

	aircraft, err := s.aircraft.LockForUpdate(ctx, tx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}

	tiers := aircraft.EnabledTiers()
	if only != nil {
		tiers = intersectTiers(tiers, only)
	}
	result := &dto.RefreshResult{AircraftID: aircraft.ID, Registration: aircraft.Registration, Now: now, Tiers: []dto.TierResult{}}
	if len(tiers) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit refresh")
		}
		committed = true
		return result, nil
	}

	deleted, err := s.records.DeleteFuture(ctx, tx, aircraft.ID, tiers, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear future maintenance")
	}
	result.Deleted = deleted

	state, err := s.loadState(ctx, tx, aircraft, now, tally)
	if err != nil {
		return nil, err
	}
	outcomes, err := state.Plan(tiers)
	if err != nil {
		state.logger.Warn("maintenance refresh failed", zap.Error(err))
		return nil, err
	}
	if err := s.records.CreateBatch(ctx, tx, state.placed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store maintenance records")
	}
	superseded := state.superseded()
	for _, record := range superseded {
		if err := s.records.Deactivate(ctx, tx, record.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate superseded maintenance")
		}
	}
	result.Superseded = len(superseded)

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit refresh")
	}
	committed = true

	s.invalidate(ctx, aircraft.ID)
	for _, outcome := range outcomes {
		result.Tiers = append(result.Tiers, tierResult(outcome))
		s.recordOutcome(outcome)
	}
	state.logger.Info("maintenance plan refreshed",
		zap.Int("placed", len(state.placed)),
		zap.Int64("deleted", deleted),
		zap.Int("superseded", len(superseded)))
	return result, nil
}

func intersectTiers(enabled, only []models.CheckTier) []models.CheckTier {
	wanted := make(map[models.CheckTier]bool, len(only))
	for _, tier := range only {
		wanted[tier] = true
	}
	var result []models.CheckTier
	for _, tier := range enabled {
		if wanted[tier] {
			result = append(result, tier)
		}
	}
	return result
}

func (s *MaintenanceSchedulerService) recordOutcome(outcome TierOutcome) {
	if s.metrics == nil {
		return
	}
	forced := 0
	if outcome.Forced {
		forced = 1
	}
	s.metrics.RecordPlaced(outcome.Tier, "forced", forced)
	s.metrics.RecordPlaced(outcome.Tier, "slot", len(outcome.Placed)-forced)
	s.metrics.RecordSkipped(outcome.Tier, "no_slot", len(outcome.Skipped))
}

func (s *MaintenanceSchedulerService) invalidate(ctx context.Context, aircraftID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, scheduleCachePattern(aircraftID))
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func tierResult(outcome TierOutcome) dto.TierResult {
	result := dto.TierResult{
		Tier:       string(outcome.Tier),
		Expired:    outcome.Expired,
		Suppressed: outcome.Suppressed,
		Scheduled:  make([]dto.ScheduledOccurrence, 0, len(outcome.Placed)),
	}
	for i, record := range outcome.Placed {
		result.Scheduled = append(result.Scheduled, dto.ScheduledOccurrence{
			RecordID:        record.ID,
			Date:            record.ScheduledDate.Format("2006-01-02"),
			StartTime:       formatMinute(record.StartMinute),
			DurationMinutes: record.DurationMinutes,
			Forced:          outcome.Forced && i == 0,
		})
	}
	for _, date := range outcome.Skipped {
		result.Skipped = append(result.Skipped, date.Format("2006-01-02"))
	}
	return result
}

// RefreshFleet refreshes every aircraft of a fleet in bounded batches. One
// aircraft failing never cancels the others.
func (s *MaintenanceSchedulerService) RefreshFleet(ctx context.Context, fleetID string, req dto.RefreshRequest) (*dto.FleetRefreshResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRefresh("fleet", time.Since(start))
		}
	}()

	fleet, err := s.aircraft.ListByFleet(ctx, fleetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fleet")
	}
	if len(fleet) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "fleet has no aircraft")
	}

	items := make([]dto.FleetRefreshItem, len(fleet))
	tally := newFleetTally()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FleetBatchSize)
	for i := range fleet {
		i := i
		aircraft := fleet[i]
		g.Go(func() error {
			item := dto.FleetRefreshItem{AircraftID: aircraft.ID, Registration: aircraft.Registration}
			result, err := s.refresh(gctx, aircraft.ID, req.Now.UTC(), nil, tally)
			if err != nil {
				tally.release(aircraft.ID)
				item.Error = appErrors.FromError(err).Message
				s.logger.Warn("fleet member refresh failed", zap.String("fleet_id", fleetID), zap.String("aircraft_id", aircraft.ID), zap.Error(err))
			} else {
				item.Success = true
				item.Result = result
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	summary := &dto.FleetRefreshResult{FleetID: fleetID, Total: len(items), Items: items}
	for _, item := range items {
		if item.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// EnableTier toggles automatic scheduling of one tier. Enabling an expired
// tier is refused; the check must be performed first.
func (s *MaintenanceSchedulerService) EnableTier(ctx context.Context, aircraftID, rawTier string, req dto.EnableTierRequest) (*dto.EnableTierResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	tier, ok := models.ParseCheckTier(rawTier)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown check tier %q", rawTier))
	}
	now := req.Now.UTC()
	enabled := *req.Enabled

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer rollback(tx, &committed)

	aircraft, err := s.aircraft.LockForUpdate(ctx, tx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	if enabled && aircraft.Checks.IsExpired(tier, now, s.utilization.DailyFlightHours(*aircraft)) {
		return nil, appErrors.Clone(appErrors.ErrCheckExpired,
			fmt.Sprintf("%s on aircraft %s is already expired; perform the check before enabling auto-scheduling", tier.Label(), aircraft.Registration))
	}
	if err := s.aircraft.SetAutoSchedule(ctx, tx, aircraft.ID, tier, enabled); err != nil {
		return nil, notFoundOr(err, "failed to update auto schedule")
	}
	result := &dto.EnableTierResult{AircraftID: aircraft.ID, Tier: string(tier), Enabled: enabled}
	if !enabled {
		removed, err := s.records.DeleteFuture(ctx, tx, aircraft.ID, []models.CheckTier{tier}, now)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear future maintenance")
		}
		result.Removed = removed
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit tier toggle")
	}
	committed = true
	s.invalidate(ctx, aircraft.ID)

	if enabled {
		refresh, err := s.refresh(ctx, aircraft.ID, now, []models.CheckTier{tier}, nil)
		if err != nil {
			return nil, err
		}
		result.Refresh = refresh
	}
	return result, nil
}

// CompleteCheck records a performed check, resets every subsumed tier,
// retires the records it makes redundant and replans enabled tiers.
func (s *MaintenanceSchedulerService) CompleteCheck(ctx context.Context, aircraftID string, req dto.CompleteCheckRequest) (*dto.CompleteCheckResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	tier, _ := models.ParseCheckTier(req.Tier)
	completedAt := req.CompletedAt.UTC()
	now := req.Now.UTC()
	if req.Now.IsZero() {
		now = completedAt
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer rollback(tx, &committed)

	aircraft, err := s.aircraft.LockForUpdate(ctx, tx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	if req.TotalFlightHours != nil {
		aircraft.Checks.TotalFlightHours = *req.TotalFlightHours
	}
	aircraft.Checks.Complete(tier, completedAt)
	if tier.MultiDay() && aircraft.Status == models.AircraftStatusMaintenance {
		aircraft.Status = models.AircraftStatusActive
	}
	if err := s.aircraft.SaveCheckState(ctx, tx, aircraft); err != nil {
		return nil, notFoundOr(err, "failed to save check state")
	}

	records, err := s.records.ListActiveByAircraft(ctx, tx, aircraft.ID, completedAt.Add(-24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance records")
	}
	day := models.DateOf(completedAt)
	deactivated := 0
	for _, record := range records {
		if record.Tier != tier && !tier.HeavierThan(record.Tier) {
			continue
		}
		if !record.ScheduledDate.Equal(day) && !record.Window().Contains(completedAt) {
			continue
		}
		if err := s.records.Deactivate(ctx, tx, record.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire completed maintenance")
		}
		deactivated++
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit completion")
	}
	committed = true
	s.invalidate(ctx, aircraft.ID)

	hoursPerDay := s.utilization.DailyFlightHours(*aircraft)
	result := &dto.CompleteCheckResult{
		AircraftID:  aircraft.ID,
		Tier:        string(tier),
		Expiries:    make(map[string]time.Time, len(models.TiersHeaviestFirst)),
		Deactivated: deactivated,
	}
	result.Reset = append(result.Reset, string(tier))
	for _, lighter := range tier.LighterTiers() {
		result.Reset = append(result.Reset, string(lighter))
	}
	for _, t := range models.TiersHeaviestFirst {
		if aircraft.Checks.Entry(t).LastCompletedAt != nil {
			result.Expiries[string(t)] = aircraft.Checks.Expiry(t, now, hoursPerDay)
		}
	}

	if len(aircraft.EnabledTiers()) > 0 {
		refresh, err := s.refresh(ctx, aircraft.ID, now, nil, nil)
		if err != nil {
			return nil, err
		}
		result.Refresh = refresh
	}
	return result, nil
}

// ResolveFlightConflict repairs every record hit by a new or changed flight.
// Either all conflicts are repaired or none are.
func (s *MaintenanceSchedulerService) ResolveFlightConflict(ctx context.Context, aircraftID string, req dto.FlightConflictRequest) (*dto.FlightConflictResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	now := req.Now.UTC()
	flight := models.Flight{
		ID:          req.Flight.ID,
		AircraftID:  aircraftID,
		Origin:      req.Flight.Origin,
		Destination: req.Flight.Destination,
		DepartureAt: req.Flight.DepartureAt.UTC(),
		ArrivalAt:   req.Flight.ArrivalAt.UTC(),
		DistanceKm:  req.Flight.DistanceKm,
		Capacity:    req.Flight.Capacity,
		Category:    models.FlightCategory(req.Flight.Category),
	}
	if flight.Category == "" {
		flight.Category = models.FlightCategoryPassenger
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer rollback(tx, &committed)

	aircraft, err := s.aircraft.LockForUpdate(ctx, tx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	state, err := s.loadState(ctx, tx, aircraft, now, nil)
	if err != nil {
		return nil, err
	}
	state.busy = state.busy.withFlight(flight)

	conflicts, err := state.conflictingRecords(flight)
	if err != nil {
		return nil, err
	}
	result := &dto.FlightConflictResult{AircraftID: aircraft.ID, FlightID: flight.ID, Resolutions: []dto.ConflictResolution{}}
	var fixes []conflictFix
	for _, record := range conflicts {
		fix, err := state.resolve(record, flight)
		if err != nil {
			state.logger.Warn("maintenance conflict unresolved", zap.String("record_id", record.ID), zap.Error(err))
			return nil, err
		}
		if fix.Removes() {
			err = s.records.Deactivate(ctx, tx, record.ID)
		} else {
			err = s.records.UpdateSlot(ctx, tx, record.ID, fix.Date, fix.StartMinute)
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conflict resolution")
		}
		fixes = append(fixes, fix)
		resolution := dto.ConflictResolution{
			RecordID: record.ID,
			Tier:     string(record.Tier),
			Action:   string(fix.Action),
			FromDate: record.ScheduledDate.Format("2006-01-02"),
			FromTime: formatMinute(record.StartMinute),
		}
		if !fix.Removes() {
			resolution.ToDate = fix.Date.Format("2006-01-02")
			resolution.ToTime = formatMinute(fix.StartMinute)
		}
		result.Resolutions = append(result.Resolutions, resolution)
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit conflict resolution")
	}
	committed = true

	if len(fixes) > 0 {
		s.invalidate(ctx, aircraft.ID)
	}
	if s.metrics != nil {
		for _, fix := range fixes {
			s.metrics.RecordConflict(fix.Record.Tier, string(fix.Action))
		}
	}
	return result, nil
}

// ListSchedule returns active records scheduled between from and to.
func (s *MaintenanceSchedulerService) ListSchedule(ctx context.Context, aircraftID string, from, to time.Time) ([]models.MaintenanceRecord, error) {
	from, to = models.DateOf(from), models.DateOf(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	key := scheduleCacheKey(aircraftID, from, to)
	if s.cache != nil {
		var cached []models.MaintenanceRecord
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	if _, err := s.aircraft.FindByID(ctx, aircraftID); err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	records, err := s.records.ListByAircraftBetween(ctx, aircraftID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list maintenance")
	}
	if records == nil {
		records = []models.MaintenanceRecord{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, records, s.cfg.CacheTTL)
	}
	return records, nil
}

// BusyView explains what occupies an aircraft on date.
func (s *MaintenanceSchedulerService) BusyView(ctx context.Context, aircraftID string, date time.Time) (*dto.BusyView, error) {
	aircraft, err := s.aircraft.FindByID(ctx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	day := models.DateOf(date)
	flights, err := s.flights.ListByAircraftBetween(ctx, nil, aircraft.ID, day.AddDate(0, 0, -s.cfg.FlightLookbackDays), day.AddDate(0, 0, 2))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flights")
	}
	records, err := s.records.ListActiveByAircraft(ctx, nil, aircraft.ID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance records")
	}
	state := &planningState{aircraft: *aircraft, now: day, cfg: s.cfg, busy: newBusyCalculator(aircraft.HomeBase, flights), records: records, logger: s.logger}

	view := &dto.BusyView{
		AircraftID:  aircraft.ID,
		Date:        day.Format("2006-01-02"),
		Flights:     minuteRanges(state.busy.FlightIntervals(day)),
		Maintenance: minuteRanges(state.recordIntervals(day)),
		Away:        minuteRanges(state.busy.AwayIntervals(day)),
		Free:        minuteRanges(freeGaps(state.blockedIntervals(day, models.TierWeekly), 0)),
	}
	return view, nil
}

func minuteRanges(intervals []models.Interval) []dto.MinuteRange {
	result := make([]dto.MinuteRange, 0, len(intervals))
	for _, interval := range intervals {
		result = append(result, dto.MinuteRange{
			Start: interval.Start,
			End:   interval.End,
			Label: formatMinute(interval.Start) + "-" + formatMinute(interval.End),
		})
	}
	return result
}
