package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/models"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/timeslot"
)

// ConflictDetector checks a candidate slot against persisted commitments.
// Both scopes are evaluated against the candidate's own day/date universe:
// weekly slots only collide with weekly slots, date-bound slots only with
// slots bound to the same date.
type ConflictDetector struct {
	slots  slotRepository
	logger *zap.Logger
}

// NewConflictDetector constructs a ConflictDetector.
func NewConflictDetector(slots slotRepository, logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{slots: slots, logger: logger}
}

// CheckSlot returns a conflict error if the candidate overlaps an existing
// slot in its class/section scope, or any commitment of its teacher
// (primary or substitute). The class/section scope is checked first so
// callers see a deterministic error when both would fail. excludeID lets
// updates skip the slot being rewritten.
func (d *ConflictDetector) CheckSlot(ctx context.Context, candidate models.ScheduleSlot, excludeID string) error {
	existing, err := d.slots.ListByClassSection(ctx, candidate.ClassID, candidate.Section, candidate.DayOfWeek, candidate.Date, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class/section conflicts")
	}
	for _, item := range existing {
		if timeslot.Overlaps(candidate.StartTime, candidate.EndTime, item.StartTime, item.EndTime) {
			return conflictError(models.ConflictScopeClassSection,
				fmt.Sprintf("Class/Section conflict: %s is already scheduled %s-%s", item.Subject, item.StartTime, item.EndTime), item)
		}
	}

	if candidate.TeacherID == nil {
		return nil
	}

	commitments, err := d.slots.ListByTeacher(ctx, *candidate.TeacherID, candidate.DayOfWeek, candidate.Date, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher conflicts")
	}
	for _, item := range commitments {
		if timeslot.Overlaps(candidate.StartTime, candidate.EndTime, item.StartTime, item.EndTime) {
			return conflictError(models.ConflictScopeTeacher,
				fmt.Sprintf("Teacher conflict: already committed %s-%s for %s", item.StartTime, item.EndTime, item.ClassID), item)
		}
	}
	return nil
}

func newSlotConflict(existing models.ScheduleSlot, scope string) models.SlotConflict {
	return models.SlotConflict{
		SlotID:    existing.ID,
		ClassID:   existing.ClassID,
		Section:   existing.Section,
		Subject:   existing.Subject,
		DayOfWeek: existing.DayOfWeek,
		StartTime: existing.StartTime,
		EndTime:   existing.EndTime,
		TeacherID: existing.TeacherID,
		Date:      existing.DateString(),
		Scope:     scope,
	}
}

func conflictError(scope, message string, existing models.ScheduleSlot) error {
	domainErr := &models.SlotConflictError{Scope: scope, Message: message, Conflict: newSlotConflict(existing, scope)}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
}
