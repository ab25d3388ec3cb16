package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/models"
)

func newScheduleService(repo *mockSlotRepo, dir *mockDirectory) *EffectiveScheduleService {
	return NewEffectiveScheduleService(repo, dir, disabledCache(), time.Minute, zap.NewNop())
}

func TestEffectiveScheduleWeeklyClassOrdering(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "TUESDAY", "08:00", "09:00", "Grade10", strPtr("A"), "Physics", nil),
		weeklySlot("s2", "MONDAY", "10:00", "11:00", "Grade10", strPtr("A"), "History", nil),
		weeklySlot("s3", "MONDAY", "08:00", "09:00", "Grade10", strPtr("A"), "Maths", nil),
	)
	svc := newScheduleService(repo, newMockDirectory())

	views, err := svc.Resolve(context.Background(), models.ClassSectionScope("Grade10", strPtr("A")), nil)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Maths", views[0].Subject)
	assert.Equal(t, "History", views[1].Subject)
	assert.Equal(t, "Physics", views[2].Subject)
}

func TestEffectiveScheduleDatedSlotsShadowWeekly(t *testing.T) {
	dated := weeklySlot("d1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Exam", nil)
	dated.Date = datePtr(2024, time.January, 1)
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "08:00", "09:00", "Grade10", strPtr("A"), "Maths", nil),
		dated,
	)
	svc := newScheduleService(repo, newMockDirectory())

	views, err := svc.Resolve(context.Background(), models.ClassSectionScope("Grade10", strPtr("A")), datePtr(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Exam", views[0].Subject)
}

func TestEffectiveScheduleFallsBackToWeeklyForDate(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "08:00", "09:00", "Grade10", strPtr("A"), "Maths", nil),
		weeklySlot("s2", "TUESDAY", "08:00", "09:00", "Grade10", strPtr("A"), "Physics", nil),
	)
	svc := newScheduleService(repo, newMockDirectory())

	// 2024-01-01 is a Monday with no alternate schedule.
	views, err := svc.Resolve(context.Background(), models.ClassSectionScope("Grade10", strPtr("A")), datePtr(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Maths", views[0].Subject)
}

func TestEffectiveScheduleEmptyResultIsNotNil(t *testing.T) {
	svc := newScheduleService(newMockSlotRepo(), newMockDirectory())

	views, err := svc.Resolve(context.Background(), models.ClassSectionScope("Grade10", nil), nil)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestEffectiveScheduleTeacherViewExcludesSubstitutedSlots(t *testing.T) {
	substituted := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	substituted.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(
		substituted,
		weeklySlot("s2", "MONDAY", "11:00", "12:00", "Grade9", strPtr("B"), "Physics", strPtr("t1")),
	)
	svc := newScheduleService(repo, newMockDirectory())

	views, err := svc.Resolve(context.Background(), models.TeacherScope("t1"), nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Physics", views[0].Subject)
}

func TestEffectiveScheduleTeacherViewIncludesCoveredSlots(t *testing.T) {
	covered := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	covered.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(covered)
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"), activeTeacher("t2", "Binta Sow"))
	svc := newScheduleService(repo, dir)

	views, err := svc.Resolve(context.Background(), models.TeacherScope("t2"), nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsSubstituteAssignment)
	assert.Equal(t, "Binta Sow", views[0].TeachingTeacherName)
	assert.Equal(t, "Asha Rao", views[0].OriginalTeacherName)
}

func TestEffectiveScheduleClassViewShowsSubstituteName(t *testing.T) {
	slot := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	slot.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(slot)
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"), activeTeacher("t2", "Binta Sow"))
	svc := newScheduleService(repo, dir)

	views, err := svc.Resolve(context.Background(), models.ClassSectionScope("Grade10", strPtr("A")), nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	// Class view keeps the slot on the class; substitution only changes who
	// teaches it.
	assert.False(t, views[0].IsSubstituteAssignment)
	assert.Equal(t, "Binta Sow", views[0].TeachingTeacherName)
	assert.Equal(t, "Asha Rao", views[0].OriginalTeacherName)
}

func TestEffectiveScheduleTeacherDatedFallback(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	svc := newScheduleService(repo, newMockDirectory(activeTeacher("t1", "Asha Rao")))

	views, err := svc.Resolve(context.Background(), models.TeacherScope("t1"), datePtr(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Maths", views[0].Subject)
}
