package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
	"github.com/noah-isme/fleet-mx-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type planSource interface {
	ListSchedule(ctx context.Context, aircraftID string, from, to time.Time) ([]models.MaintenanceRecord, error)
}

type exportAircraftReader interface {
	FindByID(ctx context.Context, id string) (*models.Aircraft, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportFile is a rendered maintenance plan ready to be sent to a client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders an aircraft's maintenance plan as CSV or PDF.
type ExportService struct {
	plans    planSource
	aircraft exportAircraftReader
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(plans planSource, aircraft exportAircraftReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{plans: plans, aircraft: aircraft, csv: csv, pdf: pdf, logger: logger}
}

// ExportPlan renders the active records of [from, to] in the requested format.
func (s *ExportService) ExportPlan(ctx context.Context, aircraftID string, from, to time.Time, format ExportFormat) (*ExportFile, error) {
	aircraft, err := s.aircraft.FindByID(ctx, aircraftID)
	if err != nil {
		return nil, notFoundOr(err, "aircraft not found")
	}
	records, err := s.plans.ListSchedule(ctx, aircraftID, from, to)
	if err != nil {
		return nil, err
	}
	dataset := planDataset(records)
	base := fmt.Sprintf("maintenance_%s_%s_%s", sanitizeFilename(aircraft.Registration), from.Format("20060102"), to.Format("20060102"))

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Payload: payload}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Maintenance plan %s", aircraft.Registration)
		subtitle := fmt.Sprintf("Home base %s, %s to %s", aircraft.HomeBase, from.Format("2006-01-02"), to.Format("2006-01-02"))
		payload, err := s.pdf.Render(dataset, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func planDataset(records []models.MaintenanceRecord) export.Dataset {
	dataset := export.Dataset{Headers: []string{"Tier", "Date", "Start", "End", "Duration"}}
	for _, record := range records {
		dataset.Append(
			record.Tier.Label(),
			record.ScheduledDate.Format("2006-01-02"),
			formatMinute(record.StartMinute),
			record.EndsAt().Format("2006-01-02 15:04"),
			formatDuration(record.DurationMinutes),
		)
	}
	return dataset
}

func formatDuration(minutes int) string {
	if minutes >= models.MinutesPerDay && minutes%models.MinutesPerDay == 0 {
		return fmt.Sprintf("%dd", minutes/models.MinutesPerDay)
	}
	return (time.Duration(minutes) * time.Minute).String()
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
