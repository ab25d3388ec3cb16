package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupanel/timetable-api/internal/models"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
)

func newSlotService(repo *mockSlotRepo, dir *mockDirectory) *SlotService {
	detector := NewConflictDetector(repo, zap.NewNop())
	return NewSlotService(repo, dir, detector, disabledCache(), nil, zap.NewNop())
}

func TestSlotServiceCreateWeekly(t *testing.T) {
	repo := newMockSlotRepo()
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"))
	svc := newSlotService(repo, dir)

	view, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Section:   strPtr("A"),
		Subject:   "Maths",
		TeacherID: strPtr("t1"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "MONDAY", view.DayOfWeek)
	assert.Nil(t, view.Date)
	assert.Len(t, repo.slots, 1)
}

func TestSlotServiceCreateDerivesDayFromDate(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newSlotService(repo, newMockDirectory())

	// 2024-01-01 is a Monday.
	view, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "FRIDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Subject:   "Assembly",
		Date:      strPtr("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "MONDAY", view.DayOfWeek)
	require.NotNil(t, view.Date)
	assert.Equal(t, "2024-01-01", *view.Date)
}

func TestSlotServiceCreateRejectsBadInterval(t *testing.T) {
	svc := newSlotService(newMockSlotRepo(), newMockDirectory())

	cases := []UpsertSlotRequest{
		{DayOfWeek: "MONDAY", StartTime: "9:00", EndTime: "10:00", ClassID: "Grade10", Subject: "Maths"},
		{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "25:00", ClassID: "Grade10", Subject: "Maths"},
		{DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "09:00", ClassID: "Grade10", Subject: "Maths"},
		{DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "10:00", ClassID: "Grade10", Subject: "Maths"},
		{DayOfWeek: "SOMEDAY", StartTime: "09:00", EndTime: "10:00", ClassID: "Grade10", Subject: "Maths"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestSlotServiceCreateClassSectionConflict(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	dir := newMockDirectory(activeTeacher("t2", "Binta Sow"))
	svc := newSlotService(repo, dir)

	_, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:30",
		EndTime:   "10:30",
		ClassID:   "Grade10",
		Section:   strPtr("A"),
		Subject:   "Physics",
		TeacherID: strPtr("t2"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Class/Section conflict")
}

func TestSlotServiceCreateTeacherConflict(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"))
	svc := newSlotService(repo, dir)

	_, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:30",
		EndTime:   "10:30",
		ClassID:   "Grade9",
		Section:   strPtr("A"),
		Subject:   "Chemistry",
		TeacherID: strPtr("t1"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Teacher conflict")
}

func TestSlotServiceCreateUnknownTeacher(t *testing.T) {
	svc := newSlotService(newMockSlotRepo(), newMockDirectory())

	_, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Subject:   "Maths",
		TeacherID: strPtr("ghost"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceCreateInactiveTeacher(t *testing.T) {
	retired := activeTeacher("t1", "Asha Rao")
	retired.Active = false
	svc := newSlotService(newMockSlotRepo(), newMockDirectory(retired))

	_, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Subject:   "Maths",
		TeacherID: strPtr("t1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceCreateNormalizesEmptySection(t *testing.T) {
	repo := newMockSlotRepo()
	svc := newSlotService(repo, newMockDirectory())

	view, err := svc.Create(context.Background(), UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Section:   strPtr("  "),
		Subject:   "Maths",
	})
	require.NoError(t, err)
	assert.Nil(t, view.Section)
}

func TestSlotServiceUpdateUnchangedPayloadDoesNotSelfConflict(t *testing.T) {
	existing := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	existing.SubstituteTeacherID = strPtr("t5")
	repo := newMockSlotRepo(existing)
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"))
	svc := newSlotService(repo, dir)

	view, err := svc.Update(context.Background(), "s1", UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Section:   strPtr("A"),
		Subject:   "Maths",
		TeacherID: strPtr("t1"),
	})
	require.NoError(t, err)
	// The substitute assignment survives a slot rewrite.
	require.NotNil(t, view.SubstituteTeacherID)
	assert.Equal(t, "t5", *view.SubstituteTeacherID)
}

func TestSlotServiceUpdateNotFound(t *testing.T) {
	svc := newSlotService(newMockSlotRepo(), newMockDirectory())

	_, err := svc.Update(context.Background(), "missing", UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Subject:   "Maths",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceUpdateIntoConflict(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
		weeklySlot("s2", "MONDAY", "11:00", "12:00", "Grade10", strPtr("A"), "Physics", strPtr("t2")),
	)
	dir := newMockDirectory(activeTeacher("t2", "Binta Sow"))
	svc := newSlotService(repo, dir)

	_, err := svc.Update(context.Background(), "s2", UpsertSlotRequest{
		DayOfWeek: "MONDAY",
		StartTime: "09:30",
		EndTime:   "10:30",
		ClassID:   "Grade10",
		Section:   strPtr("A"),
		Subject:   "Physics",
		TeacherID: strPtr("t2"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceDelete(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", nil),
	)
	svc := newSlotService(repo, newMockDirectory())

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Empty(t, repo.slots)

	err := svc.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceList(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", nil),
		weeklySlot("s2", "TUESDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Physics", nil),
	)
	svc := newSlotService(repo, newMockDirectory())

	views, pagination, err := svc.List(context.Background(), models.SlotFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, views, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
}
