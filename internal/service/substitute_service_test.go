package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/edupanel/timetable-api/pkg/errors"
)

func newSubstituteService(repo *mockSlotRepo, dir *mockDirectory) *SubstituteService {
	return NewSubstituteService(repo, dir, disabledCache(), nil, zap.NewNop())
}

func TestSubstituteServiceAssign(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	dir := newMockDirectory(activeTeacher("t1", "Asha Rao"), activeTeacher("t2", "Binta Sow"))
	svc := newSubstituteService(repo, dir)

	view, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t2"})
	require.NoError(t, err)
	require.NotNil(t, view.SubstituteTeacherID)
	assert.Equal(t, "t2", *view.SubstituteTeacherID)
	// The teacher of record is untouched.
	require.NotNil(t, view.TeacherID)
	assert.Equal(t, "t1", *view.TeacherID)
}

func TestSubstituteServiceAssignSlotNotFound(t *testing.T) {
	svc := newSubstituteService(newMockSlotRepo(), newMockDirectory(activeTeacher("t2", "Binta Sow")))

	_, err := svc.Assign(context.Background(), "missing", AssignSubstituteRequest{SubstituteTeacherID: "t2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubstituteServiceAssignUnknownSubstitute(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t1", "Asha Rao")))

	_, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstituteServiceAssignInactiveSubstitute(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	retired := activeTeacher("t2", "Binta Sow")
	retired.Active = false
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t1", "Asha Rao"), retired))

	_, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstituteServiceAssignSelf(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
	)
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t1", "Asha Rao")))

	_, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cannot substitute their own slot")
}

func TestSubstituteServiceAssignDuplicate(t *testing.T) {
	slot := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	slot.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(slot)
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t2", "Binta Sow")))

	_, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubstituteServiceAssignBusySubstitute(t *testing.T) {
	repo := newMockSlotRepo(
		weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1")),
		weeklySlot("s2", "MONDAY", "09:30", "10:30", "Grade9", strPtr("B"), "Physics", strPtr("t2")),
	)
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t2", "Binta Sow")))

	_, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t2"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already committed")
}

func TestSubstituteServiceReassignDifferentSubstitute(t *testing.T) {
	slot := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	slot.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(slot)
	svc := newSubstituteService(repo, newMockDirectory(activeTeacher("t3", "Chen Wei")))

	view, err := svc.Assign(context.Background(), "s1", AssignSubstituteRequest{SubstituteTeacherID: "t3"})
	require.NoError(t, err)
	require.NotNil(t, view.SubstituteTeacherID)
	assert.Equal(t, "t3", *view.SubstituteTeacherID)
}

func TestSubstituteServiceClear(t *testing.T) {
	slot := weeklySlot("s1", "MONDAY", "09:00", "10:00", "Grade10", strPtr("A"), "Maths", strPtr("t1"))
	slot.SubstituteTeacherID = strPtr("t2")
	repo := newMockSlotRepo(slot)
	svc := newSubstituteService(repo, newMockDirectory())

	view, err := svc.Clear(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, view.SubstituteTeacherID)
	require.NotNil(t, view.TeacherID)
	assert.Equal(t, "t1", *view.TeacherID)
	assert.Nil(t, repo.slots["s1"].SubstituteTeacherID)
}

func TestSubstituteServiceClearNotFound(t *testing.T) {
	svc := newSubstituteService(newMockSlotRepo(), newMockDirectory())

	_, err := svc.Clear(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
