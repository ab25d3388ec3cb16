package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/dto"
	"github.com/edupanel/timetable-api/internal/models"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/timeslot"
)

// TimetableCacheKeyPrefix namespaces cached resolved timetables. Every
// write path invalidates the whole namespace.
const TimetableCacheKeyPrefix = "timetable:"

// EffectiveScheduleService computes the schedule that actually applies for
// a scope: date-bound slots shadow weekly ones, and substitute assignments
// move slots between teacher views.
type EffectiveScheduleService struct {
	repo      slotRepository
	directory teacherDirectory
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewEffectiveScheduleService instantiates EffectiveScheduleService.
func NewEffectiveScheduleService(repo slotRepository, directory teacherDirectory, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *EffectiveScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectiveScheduleService{repo: repo, directory: directory, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Resolve returns the effective schedule for the scope, optionally pinned
// to one calendar date. The result is ordered by day of week then start
// time and is never nil.
func (s *EffectiveScheduleService) Resolve(ctx context.Context, scope models.ScheduleScope, date *time.Time) ([]dto.EffectiveSlotView, error) {
	key := s.cacheKey(scope, date)
	var cached []dto.EffectiveSlotView
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	slots, err := s.fetch(ctx, scope, date)
	if err != nil {
		return nil, err
	}

	sort.Slice(slots, func(i, j int) bool {
		di := timeslot.Order(timeslot.Day(slots[i].DayOfWeek))
		dj := timeslot.Order(timeslot.Day(slots[j].DayOfWeek))
		if di != dj {
			return di < dj
		}
		return timeslot.Minutes(slots[i].StartTime) < timeslot.Minutes(slots[j].StartTime)
	})

	views := s.annotate(ctx, scope, slots)

	if err := s.cache.Set(ctx, key, views, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache resolved timetable", zap.String("key", key), zap.Error(err))
	}
	return views, nil
}

func (s *EffectiveScheduleService) fetch(ctx context.Context, scope models.ScheduleScope, date *time.Time) ([]models.ScheduleSlot, error) {
	switch scope.Kind {
	case models.ScopeClassSection:
		if date != nil {
			dated, err := s.repo.ListByClassSection(ctx, scope.ClassID, scope.Section, "", date, "")
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class schedule")
			}
			if len(dated) > 0 {
				return dated, nil
			}
			day := timeslot.DayFor(*date)
			weekly, err := s.repo.ListByClassSection(ctx, scope.ClassID, scope.Section, string(day), nil, "")
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class schedule")
			}
			return weekly, nil
		}
		weekly, err := s.repo.ListByClassSection(ctx, scope.ClassID, scope.Section, "", nil, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class schedule")
		}
		return weekly, nil

	case models.ScopeTeacher:
		if date != nil {
			dated, err := s.teacherSlots(ctx, scope.TeacherID, "", date)
			if err != nil {
				return nil, err
			}
			if len(dated) > 0 {
				return dated, nil
			}
			day := timeslot.DayFor(*date)
			return s.teacherSlots(ctx, scope.TeacherID, string(day), nil)
		}
		return s.teacherSlots(ctx, scope.TeacherID, "", nil)

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown schedule scope %q", scope.Kind))
	}
}

// teacherSlots merges the teacher's own non-substituted slots with slots
// they cover as substitute. A slot whose primary teacher has been
// substituted by someone else belongs to the substitute's view only.
func (s *EffectiveScheduleService) teacherSlots(ctx context.Context, teacherID, dayOfWeek string, date *time.Time) ([]models.ScheduleSlot, error) {
	primary, err := s.repo.ListByPrimary(ctx, teacherID, dayOfWeek, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher schedule")
	}
	merged := make([]models.ScheduleSlot, 0, len(primary))
	for _, slot := range primary {
		if slot.SubstituteTeacherID == nil {
			merged = append(merged, slot)
		}
	}

	covering, err := s.repo.ListBySubstitute(ctx, teacherID, dayOfWeek, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve substitute slots")
	}
	merged = append(merged, covering...)
	return merged, nil
}

func (s *EffectiveScheduleService) annotate(ctx context.Context, scope models.ScheduleScope, slots []models.ScheduleSlot) []dto.EffectiveSlotView {
	names := map[string]string{}
	lookup := func(id *string) string {
		if id == nil {
			return ""
		}
		if name, ok := names[*id]; ok {
			return name
		}
		name := ""
		teacher, err := s.directory.FindByID(ctx, *id)
		if err == nil {
			name = teacher.FullName
		} else if err != sql.ErrNoRows {
			s.logger.Warn("failed to resolve teacher name", zap.String("teacher_id", *id), zap.Error(err))
		}
		names[*id] = name
		return name
	}

	views := make([]dto.EffectiveSlotView, 0, len(slots))
	for _, slot := range slots {
		primaryName := lookup(slot.TeacherID)
		teachingName := primaryName
		if slot.SubstituteTeacherID != nil {
			teachingName = lookup(slot.SubstituteTeacherID)
		}
		views = append(views, dto.EffectiveSlotView{
			SlotView:               dto.FromSlot(slot),
			IsSubstituteAssignment: scope.Kind == models.ScopeTeacher && slot.SubstituteTeacherID != nil && *slot.SubstituteTeacherID == scope.TeacherID,
			TeachingTeacherName:    teachingName,
			OriginalTeacherName:    primaryName,
		})
	}
	return views
}

func (s *EffectiveScheduleService) cacheKey(scope models.ScheduleScope, date *time.Time) string {
	suffix := "weekly"
	if date != nil {
		suffix = date.UTC().Format(models.DateLayout)
	}
	if scope.Kind == models.ScopeTeacher {
		return fmt.Sprintf("%steacher:%s:%s", TimetableCacheKeyPrefix, scope.TeacherID, suffix)
	}
	section := "-"
	if scope.Section != nil {
		section = *scope.Section
	}
	return fmt.Sprintf("%sclass:%s:%s:%s", TimetableCacheKeyPrefix, scope.ClassID, section, suffix)
}
