package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-mx-api/internal/dto"
	"github.com/noah-isme/fleet-mx-api/internal/models"
	"github.com/noah-isme/fleet-mx-api/internal/service"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
	"github.com/noah-isme/fleet-mx-api/pkg/jobs"
	"github.com/noah-isme/fleet-mx-api/pkg/response"
)

const (
	dateLayout          = "2006-01-02"
	defaultScheduleDays = 30
)

type maintenanceScheduler interface {
	Refresh(ctx context.Context, aircraftID string, req dto.RefreshRequest) (*dto.RefreshResult, error)
	RefreshFleet(ctx context.Context, fleetID string, req dto.RefreshRequest) (*dto.FleetRefreshResult, error)
	EnableTier(ctx context.Context, aircraftID, tier string, req dto.EnableTierRequest) (*dto.EnableTierResult, error)
	CompleteCheck(ctx context.Context, aircraftID string, req dto.CompleteCheckRequest) (*dto.CompleteCheckResult, error)
	ResolveFlightConflict(ctx context.Context, aircraftID string, req dto.FlightConflictRequest) (*dto.FlightConflictResult, error)
	ListSchedule(ctx context.Context, aircraftID string, from, to time.Time) ([]models.MaintenanceRecord, error)
	BusyView(ctx context.Context, aircraftID string, date time.Time) (*dto.BusyView, error)
}

type planExporter interface {
	ExportPlan(ctx context.Context, aircraftID string, from, to time.Time, format service.ExportFormat) (*service.ExportFile, error)
}

type jobQueue interface {
	Submit(jobType string, payload any) (string, error)
	Lookup(id string) (jobs.Status, bool)
}

// MaintenanceHandler exposes the maintenance auto-scheduler endpoints.
type MaintenanceHandler struct {
	scheduler maintenanceScheduler
	exporter  planExporter
	jobs      jobQueue
	clock     func() time.Time
}

// NewMaintenanceHandler constructs the handler. A nil queue runs fleet
// refreshes inline even when async is requested.
func NewMaintenanceHandler(scheduler *service.MaintenanceSchedulerService, exporter *service.ExportService, queue *jobs.Queue) *MaintenanceHandler {
	h := &MaintenanceHandler{scheduler: scheduler, clock: time.Now}
	if exporter != nil {
		h.exporter = exporter
	}
	if queue != nil {
		h.jobs = queue
	}
	return h
}

// bindOptionalJSON decodes the body into dest; an empty body is accepted.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *MaintenanceHandler) now() time.Time {
	return h.clock().UTC()
}

// Refresh godoc
// @Summary Rebuild the maintenance plan of an aircraft
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param payload body dto.RefreshRequest false "Simulated clock"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /aircraft/{id}/maintenance/refresh [post]
func (h *MaintenanceHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}
	if req.Now.IsZero() {
		req.Now = h.now()
	}
	result, err := h.scheduler.Refresh(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// RefreshFleet godoc
// @Summary Rebuild the maintenance plans of every aircraft in a fleet
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Fleet ID"
// @Param async query bool false "Queue the refresh and return immediately"
// @Param payload body dto.RefreshRequest false "Simulated clock"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /fleets/{id}/maintenance/refresh [post]
func (h *MaintenanceHandler) RefreshFleet(c *gin.Context) {
	var req dto.RefreshRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}
	if req.Now.IsZero() {
		req.Now = h.now()
	}
	fleetID := c.Param("id")

	async, _ := strconv.ParseBool(c.Query("async"))
	if async && h.jobs != nil {
		jobID, err := h.jobs.Submit(jobs.JobTypeFleetRefresh, dto.FleetRefreshPayload{FleetID: fleetID, Now: req.Now})
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "refresh queue unavailable"))
			return
		}
		response.Accepted(c, dto.FleetRefreshJob{JobID: jobID, FleetID: fleetID, Status: string(jobs.StateQueued)})
		return
	}

	result, err := h.scheduler.RefreshFleet(c.Request.Context(), fleetID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// JobStatus godoc
// @Summary Show the progress of a queued fleet refresh
// @Tags Maintenance
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /maintenance/jobs/{jobId} [get]
func (h *MaintenanceHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "background jobs are disabled"))
		return
	}
	status, ok := h.jobs.Lookup(c.Param("jobId"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "job not found"))
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// EnableTier godoc
// @Summary Enable or disable automatic scheduling of a check tier
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param tier path string true "Check tier" Enums(daily, weekly, a, c, d)
// @Param payload body dto.EnableTierRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /aircraft/{id}/maintenance/tiers/{tier} [put]
func (h *MaintenanceHandler) EnableTier(c *gin.Context) {
	var req dto.EnableTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tier payload"))
		return
	}
	if req.Now.IsZero() {
		req.Now = h.now()
	}
	result, err := h.scheduler.EnableTier(c.Request.Context(), c.Param("id"), c.Param("tier"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// CompleteCheck godoc
// @Summary Record a performed check
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param payload body dto.CompleteCheckRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /aircraft/{id}/maintenance/complete [post]
func (h *MaintenanceHandler) CompleteCheck(c *gin.Context) {
	var req dto.CompleteCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}
	result, err := h.scheduler.CompleteCheck(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ResolveFlightConflict godoc
// @Summary Repair maintenance hit by a new or changed flight
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param payload body dto.FlightConflictRequest true "Flight payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /aircraft/{id}/maintenance/flight-conflicts [post]
func (h *MaintenanceHandler) ResolveFlightConflict(c *gin.Context) {
	var req dto.FlightConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid flight payload"))
		return
	}
	if req.Now.IsZero() {
		req.Now = h.now()
	}
	result, err := h.scheduler.ResolveFlightConflict(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// parseRange reads from/to query dates, defaulting to the next 30 days.
func (h *MaintenanceHandler) parseRange(c *gin.Context) (time.Time, time.Time, error) {
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
	}
	from := models.DateOf(h.now())
	if query.From != "" {
		parsed, err := time.Parse(dateLayout, query.From)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	to := from.AddDate(0, 0, defaultScheduleDays)
	if query.To != "" {
		parsed, err := time.Parse(dateLayout, query.To)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		to = parsed
	}
	return from, to, nil
}

// ListSchedule godoc
// @Summary List active maintenance of an aircraft
// @Tags Maintenance
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /aircraft/{id}/maintenance [get]
func (h *MaintenanceHandler) ListSchedule(c *gin.Context) {
	from, to, err := h.parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.scheduler.ListSchedule(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{
		"from":  from.Format(dateLayout),
		"to":    to.Format(dateLayout),
		"total": len(records),
	})
}

// BusyView godoc
// @Summary Show flights, maintenance and away periods of one day
// @Tags Maintenance
// @Produce json
// @Param id path string true "Aircraft ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /aircraft/{id}/maintenance/busy [get]
func (h *MaintenanceHandler) BusyView(c *gin.Context) {
	date := models.DateOf(h.now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	view, err := h.scheduler.BusyView(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Export godoc
// @Summary Download the maintenance plan as CSV or PDF
// @Tags Maintenance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Aircraft ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /aircraft/{id}/maintenance/export [get]
func (h *MaintenanceHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export is not configured"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	from, to, err := h.parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportPlan(c.Request.Context(), c.Param("id"), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
