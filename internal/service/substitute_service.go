package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/dto"
	"github.com/edupanel/timetable-api/internal/models"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/timeslot"
)

// AssignSubstituteRequest nominates a covering teacher for one slot.
type AssignSubstituteRequest struct {
	SubstituteTeacherID string `json:"substitute_teacher_id" validate:"required"`
}

// SubstituteService assigns and clears substitute teachers. The teacher of
// record is never modified; substituting a weekly slot covers every future
// occurrence of that slot because the assignment lives on the slot row.
type SubstituteService struct {
	repo      slotRepository
	directory teacherDirectory
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubstituteService instantiates SubstituteService.
func NewSubstituteService(repo slotRepository, directory teacherDirectory, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubstituteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstituteService{repo: repo, directory: directory, cache: cache, validator: validate, logger: logger}
}

// Assign sets the substitute on a slot after checking eligibility and the
// substitute's availability across their full commitment set.
func (s *SubstituteService) Assign(ctx context.Context, slotID string, req AssignSubstituteRequest) (*dto.SlotView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute payload")
	}

	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}

	substituteID := req.SubstituteTeacherID
	teacher, err := s.directory.FindByID(ctx, substituteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute_teacher_id does not reference a known teacher")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve substitute teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute_teacher_id references an inactive teacher")
	}

	if slot.TeacherID != nil && *slot.TeacherID == substituteID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a teacher cannot substitute their own slot")
	}

	if slot.SubstituteTeacherID != nil && *slot.SubstituteTeacherID == substituteID {
		return nil, conflictError(models.ConflictScopeTeacher, "substitute is already assigned to this slot", *slot)
	}

	commitments, err := s.repo.ListByTeacher(ctx, substituteID, slot.DayOfWeek, slot.Date, slot.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check substitute availability")
	}
	for _, item := range commitments {
		if timeslot.Overlaps(slot.StartTime, slot.EndTime, item.StartTime, item.EndTime) {
			return nil, conflictError(models.ConflictScopeTeacher,
				fmt.Sprintf("Teacher conflict: substitute is already committed %s-%s for %s", item.StartTime, item.EndTime, item.ClassID), item)
		}
	}

	if err := s.repo.UpdateSubstitute(ctx, slot.ID, &substituteID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign substitute")
	}

	s.invalidateTimetables(ctx)

	slot.SubstituteTeacherID = &substituteID
	view := dto.FromSlot(*slot)
	return &view, nil
}

// Clear removes the substitute from a slot, leaving the teacher of record
// unchanged.
func (s *SubstituteService) Clear(ctx context.Context, slotID string) (*dto.SlotView, error) {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}

	if err := s.repo.UpdateSubstitute(ctx, slot.ID, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear substitute")
	}

	s.invalidateTimetables(ctx)

	slot.SubstituteTeacherID = nil
	view := dto.FromSlot(*slot)
	return &view, nil
}

func (s *SubstituteService) invalidateTimetables(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, TimetableCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}
