package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/dto"
	"github.com/edupanel/timetable-api/internal/models"
	"github.com/edupanel/timetable-api/internal/repository"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/timeslot"
)

// AlternateSlotInput is one entry of an alternate-day batch. Day and date
// are batch-level and therefore absent here.
type AlternateSlotInput struct {
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	ClassID   string  `json:"class_id" validate:"required"`
	Section   *string `json:"section"`
	Subject   string  `json:"subject" validate:"required"`
	TeacherID *string `json:"teacher_id"`
}

// SetAlternateScheduleRequest replaces every slot bound to one date.
type SetAlternateScheduleRequest struct {
	Date  string               `json:"date" validate:"required"`
	Slots []AlternateSlotInput `json:"slots" validate:"required,min=1,dive"`
}

// AlternateScheduleResult returns the committed batch.
type AlternateScheduleResult struct {
	Date      string         `json:"date"`
	DayOfWeek string         `json:"day_of_week"`
	Slots     []dto.SlotView `json:"slots"`
}

// AlternateDayService replaces the timetable of a single calendar date.
// Each call is a full replace: a later call for the same date completely
// supersedes the earlier one.
type AlternateDayService struct {
	repo      slotRepository
	directory teacherDirectory
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	maxBatch  int
}

// NewAlternateDayService instantiates AlternateDayService.
func NewAlternateDayService(repo slotRepository, directory teacherDirectory, cache *CacheService, validate *validator.Validate, logger *zap.Logger, maxBatch int) *AlternateDayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatch <= 0 {
		maxBatch = 50
	}
	return &AlternateDayService{repo: repo, directory: directory, cache: cache, validator: validate, logger: logger, maxBatch: maxBatch}
}

// SetAlternateSchedule validates the whole batch, rejects intra-batch
// clashes, then atomically replaces the date's slots. Any failure leaves
// the previous schedule for the date untouched.
func (s *AlternateDayService) SetAlternateSchedule(ctx context.Context, req SetAlternateScheduleRequest) (*AlternateScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alternate schedule payload")
	}
	if len(req.Slots) > s.maxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("alternate schedule exceeds the maximum of %d slots", s.maxBatch))
	}

	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	day := timeslot.DayFor(date)

	candidates := make([]models.ScheduleSlot, 0, len(req.Slots))
	seenTeachers := map[string]bool{}
	for i, item := range req.Slots {
		slot := models.ScheduleSlot{
			DayOfWeek: string(day),
			StartTime: strings.TrimSpace(item.StartTime),
			EndTime:   strings.TrimSpace(item.EndTime),
			ClassID:   strings.TrimSpace(item.ClassID),
			Subject:   strings.TrimSpace(item.Subject),
			Section:   normalizeOptional(item.Section),
			TeacherID: normalizeOptional(item.TeacherID),
			Date:      &date,
		}
		if err := validateInterval(slot.StartTime, slot.EndTime); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %d: %s", i+1, appErrors.FromError(err).Message))
		}
		if slot.TeacherID != nil && !seenTeachers[*slot.TeacherID] {
			if err := s.requireActiveTeacher(ctx, *slot.TeacherID); err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %d: %s", i+1, appErrors.FromError(err).Message))
			}
			seenTeachers[*slot.TeacherID] = true
		}
		candidates = append(candidates, slot)
	}

	if err := checkBatchConflicts(candidates); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceForDate(ctx, date, candidates); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate slot within the submitted alternate schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace alternate schedule")
	}

	if err := s.cache.Invalidate(ctx, TimetableCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}

	return &AlternateScheduleResult{
		Date:      date.Format(models.DateLayout),
		DayOfWeek: string(day),
		Slots:     dto.FromSlots(candidates),
	}, nil
}

func (s *AlternateDayService) requireActiveTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.directory.FindByID(ctx, teacherID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "teacher_id does not reference a known teacher")
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrValidation, "teacher_id references an inactive teacher")
	}
	return nil
}

// checkBatchConflicts rejects the first pairwise clash inside the batch,
// before any storage is touched. Conflicts found here are named as being
// within the submitted alternate schedule to distinguish them from clashes
// against persisted data.
func checkBatchConflicts(candidates []models.ScheduleSlot) error {
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if !timeslot.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				continue
			}
			if a.TeacherID != nil && b.TeacherID != nil && *a.TeacherID == *b.TeacherID {
				return conflictError(models.ConflictScopeTeacher,
					fmt.Sprintf("Teacher conflict within the submitted alternate schedule: slots %d and %d overlap", i+1, j+1), a)
			}
			if a.ClassID == b.ClassID && equalOptional(a.Section, b.Section) {
				return conflictError(models.ConflictScopeClassSection,
					fmt.Sprintf("Class/Section conflict within the submitted alternate schedule: slots %d and %d overlap", i+1, j+1), a)
			}
		}
	}
	return nil
}
