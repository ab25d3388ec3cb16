package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/timetable-api/internal/models"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time", "class_id", "section", "subject", "teacher_id", "substitute_teacher_id", "slot_date", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "MONDAY", "09:00", "10:00", "Grade10", "A", "Maths", "t1", nil, nil, time.Now(), time.Now())
	}
	return rows
}

func TestSlotRepositoryListByClassSectionWeekly(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	section := "A"
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE class_id = $1 AND section = $2 AND day_of_week = $3 AND slot_date IS NULL ORDER BY start_time ASC")).
		WithArgs("Grade10", "A", "MONDAY").
		WillReturnRows(slotRows("s1"))

	slots, err := repo.ListByClassSection(context.Background(), "Grade10", &section, "MONDAY", nil, "")
	require.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListByClassSectionNilSection(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE class_id = $1 AND section IS NULL AND slot_date IS NULL ORDER BY start_time ASC")).
		WithArgs("Grade10").
		WillReturnRows(slotRows())

	slots, err := repo.ListByClassSection(context.Background(), "Grade10", nil, "", nil, "")
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListByClassSectionDatedWithExclusion(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	section := "A"
	date := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE class_id = $1 AND section = $2 AND slot_date = $3 AND id <> $4 ORDER BY start_time ASC")).
		WithArgs("Grade10", "A", date, "s9").
		WillReturnRows(slotRows("s1"))

	slots, err := repo.ListByClassSection(context.Background(), "Grade10", &section, "", &date, "s9")
	require.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListByTeacherCoversBothRoles(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots WHERE (teacher_id = $1 OR substitute_teacher_id = $1) AND day_of_week = $2 AND slot_date IS NULL ORDER BY start_time ASC")).
		WithArgs("t1", "MONDAY").
		WillReturnRows(slotRows("s1", "s2"))

	slots, err := repo.ListByTeacher(context.Background(), "t1", "MONDAY", nil, "")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.ScheduleSlot{
		DayOfWeek: "MONDAY",
		StartTime: "09:00",
		EndTime:   "10:00",
		ClassID:   "Grade10",
		Subject:   "Maths",
	}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpdateSubstitute(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	substitute := "t2"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_slots SET substitute_teacher_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", &substitute, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSubstitute(context.Background(), "s1", &substitute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryReplaceForDate(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	date := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE slot_date = $1")).
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.ScheduleSlot{
		{DayOfWeek: "SATURDAY", StartTime: "09:00", EndTime: "10:00", ClassID: "Grade10", Subject: "Maths", Date: &date},
		{DayOfWeek: "SATURDAY", StartTime: "10:00", EndTime: "11:00", ClassID: "Grade10", Subject: "Physics", Date: &date},
	}
	require.NoError(t, repo.ReplaceForDate(context.Background(), date, slots))
	assert.NotEmpty(t, slots[0].ID)
	assert.NotEmpty(t, slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryReplaceForDateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	date := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE slot_date = $1")).
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	slots := []models.ScheduleSlot{
		{DayOfWeek: "SATURDAY", StartTime: "09:00", EndTime: "10:00", ClassID: "Grade10", Subject: "Maths", Date: &date},
	}
	err := repo.ReplaceForDate(context.Background(), date, slots)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}
