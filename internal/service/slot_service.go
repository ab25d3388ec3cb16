package service

import (
	"context"
	"database/sql"
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

type slotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	ListByClassSection(ctx context.Context, classID string, section *string, dayOfWeek string, date *time.Time, excludeID string) ([]models.ScheduleSlot, error)
	ListByTeacher(ctx context.Context, teacherID, dayOfWeek string, date *time.Time, excludeID string) ([]models.ScheduleSlot, error)
	ListByPrimary(ctx context.Context, teacherID, dayOfWeek string, date *time.Time) ([]models.ScheduleSlot, error)
	ListBySubstitute(ctx context.Context, teacherID, dayOfWeek string, date *time.Time) ([]models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	UpdateSubstitute(ctx context.Context, id string, substituteID *string) error
	Delete(ctx context.Context, id string) error
	ReplaceForDate(ctx context.Context, date time.Time, slots []models.ScheduleSlot) error
}

// teacherDirectory is the narrow staff-directory contract the timetable
// core consumes.
type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// UpsertSlotRequest describes payload for creating or updating a slot.
// Date is optional: absent means a weekly recurring slot, present binds
// the slot to one calendar date and overrides DayOfWeek.
type UpsertSlotRequest struct {
	DayOfWeek string  `json:"day_of_week"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	ClassID   string  `json:"class_id" validate:"required"`
	Section   *string `json:"section"`
	Subject   string  `json:"subject" validate:"required"`
	TeacherID *string `json:"teacher_id"`
	Date      *string `json:"date"`
}

// SlotService coordinates single-slot scheduling.
type SlotService struct {
	repo      slotRepository
	directory teacherDirectory
	conflicts *ConflictDetector
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService instantiates SlotService.
func NewSlotService(repo slotRepository, directory teacherDirectory, conflicts *ConflictDetector, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{repo: repo, directory: directory, conflicts: conflicts, cache: cache, validator: validate, logger: logger}
}

// List returns slots with pagination metadata.
func (s *SlotService) List(ctx context.Context, filter models.SlotFilter) ([]dto.SlotView, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return dto.FromSlots(slots), pagination, nil
}

// Create inserts a new slot after validation and conflict detection.
func (s *SlotService) Create(ctx context.Context, req UpsertSlotRequest) (*dto.SlotView, error) {
	candidate, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.conflicts.CheckSlot(ctx, *candidate, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an identical slot already exists for this day and time")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule slot")
	}

	s.invalidateTimetables(ctx)
	view := dto.FromSlot(*candidate)
	return &view, nil
}

// Update rewrites an existing slot. The slot's own id is excluded from
// every conflict query so an unchanged payload never self-conflicts.
func (s *SlotService) Update(ctx context.Context, id string, req UpsertSlotRequest) (*dto.SlotView, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}

	candidate, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	candidate.ID = existing.ID
	candidate.SubstituteTeacherID = existing.SubstituteTeacherID
	candidate.CreatedAt = existing.CreatedAt

	if err := s.conflicts.CheckSlot(ctx, *candidate, existing.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, candidate); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an identical slot already exists for this day and time")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule slot")
	}

	s.invalidateTimetables(ctx)
	view := dto.FromSlot(*candidate)
	return &view, nil
}

// Delete removes a slot.
func (s *SlotService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slot")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule slot")
	}

	s.invalidateTimetables(ctx)
	return nil
}

func (s *SlotService) buildSlot(ctx context.Context, req UpsertSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	slot := models.ScheduleSlot{
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		ClassID:   strings.TrimSpace(req.ClassID),
		Subject:   strings.TrimSpace(req.Subject),
		Section:   normalizeOptional(req.Section),
		TeacherID: normalizeOptional(req.TeacherID),
	}

	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(*req.Date), time.UTC)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
		}
		slot.Date = &parsed
		slot.DayOfWeek = string(timeslot.DayFor(parsed))
	} else {
		day, ok := timeslot.ParseDay(req.DayOfWeek)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be one of MONDAY..SUNDAY")
		}
		slot.DayOfWeek = string(day)
	}

	if err := validateInterval(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}

	if slot.TeacherID != nil {
		if err := s.requireActiveTeacher(ctx, *slot.TeacherID); err != nil {
			return nil, err
		}
	}

	return &slot, nil
}

func (s *SlotService) requireActiveTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.directory.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "teacher_id does not reference a known teacher")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}
	if !teacher.Active {
		return appErrors.Clone(appErrors.ErrValidation, "teacher_id references an inactive teacher")
	}
	return nil
}

func (s *SlotService) invalidateTimetables(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, TimetableCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

func validateInterval(start, end string) error {
	if !timeslot.IsValid(start) || !timeslot.IsValid(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be formatted HH:MM")
	}
	if timeslot.Minutes(start) >= timeslot.Minutes(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be earlier than end_time")
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
