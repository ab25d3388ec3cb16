package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/dto"
	"github.com/edupanel/timetable-api/internal/models"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult carries rendered bytes plus response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders resolved timetables as downloadable documents.
type ExportService struct {
	schedules *EffectiveScheduleService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	enabled   bool
	logger    *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(schedules *EffectiveScheduleService, csv *export.CSVExporter, pdf *export.PDFExporter, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, enabled: enabled, logger: logger}
}

// ExportSchedule resolves the effective schedule for the scope and renders
// it in the requested format.
func (s *ExportService) ExportSchedule(ctx context.Context, scope models.ScheduleScope, date *time.Time, format string) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "timetable export is disabled")
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	views, err := s.schedules.Resolve(ctx, scope, date)
	if err != nil {
		return nil, err
	}

	table := buildScheduleTable(views)
	title := exportTitle(scope, date)
	base := exportFileBase(scope, date)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{FileName: base + ".csv", ContentType: "text/csv", Data: data}, nil
	default:
		data, err := s.pdf.Render(table, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{FileName: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	}
}

func buildScheduleTable(views []dto.EffectiveSlotView) export.Table {
	table := export.Table{
		Headers: []string{"Day", "Start", "End", "Class", "Section", "Subject", "Teacher", "Substitute", "Date"},
	}
	for _, view := range views {
		section := ""
		if view.Section != nil {
			section = *view.Section
		}
		teacher := view.OriginalTeacherName
		if teacher == "" && view.TeacherID != nil {
			teacher = *view.TeacherID
		}
		substitute := ""
		if view.SubstituteTeacherID != nil {
			substitute = view.TeachingTeacherName
			if substitute == "" {
				substitute = *view.SubstituteTeacherID
			}
		}
		dateValue := ""
		if view.Date != nil {
			dateValue = *view.Date
		}
		table.Rows = append(table.Rows, []string{
			view.DayOfWeek,
			view.StartTime,
			view.EndTime,
			view.ClassID,
			section,
			view.Subject,
			teacher,
			substitute,
			dateValue,
		})
	}
	return table
}

func exportTitle(scope models.ScheduleScope, date *time.Time) string {
	var subject string
	if scope.Kind == models.ScopeTeacher {
		subject = fmt.Sprintf("Teacher %s", scope.TeacherID)
	} else if scope.Section != nil {
		subject = fmt.Sprintf("Class %s %s", scope.ClassID, *scope.Section)
	} else {
		subject = fmt.Sprintf("Class %s", scope.ClassID)
	}
	if date != nil {
		return fmt.Sprintf("%s timetable for %s", subject, date.UTC().Format(models.DateLayout))
	}
	return fmt.Sprintf("%s weekly timetable", subject)
}

func exportFileBase(scope models.ScheduleScope, date *time.Time) string {
	parts := []string{"timetable"}
	if scope.Kind == models.ScopeTeacher {
		parts = append(parts, "teacher", scope.TeacherID)
	} else {
		parts = append(parts, "class", scope.ClassID)
		if scope.Section != nil {
			parts = append(parts, *scope.Section)
		}
	}
	if date != nil {
		parts = append(parts, date.UTC().Format(models.DateLayout))
	}
	return strings.ToLower(strings.Join(parts, "_"))
}
