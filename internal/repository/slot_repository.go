package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edupanel/timetable-api/internal/models"
)

const slotColumns = "id, day_of_week, start_time, end_time, class_id, section, subject, teacher_id, substitute_teacher_id, slot_date, created_at, updated_at"

// SlotRepository provides persistence for schedule slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation, used to surface commit-time duplicates as conflicts.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// List returns slots with optional filtering and pagination.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, int, error) {
	base := "FROM schedule_slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("(teacher_id = $%d OR substitute_teacher_id = $%d)", len(args)+1, len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "day_of_week"
	}
	allowedSorts := map[string]bool{
		"day_of_week": true,
		"start_time":  true,
		"class_id":    true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", slotColumns, base, sortBy, order, size, offset)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule slots: %w", err)
	}

	return slots, total, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE id = $1", slotColumns)
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByClassSection returns slots for one class/section in a day/date
// scope. A nil section matches only whole-class slots; a nil date matches
// only weekly slots.
func (r *SlotRepository) ListByClassSection(ctx context.Context, classID string, section *string, dayOfWeek string, date *time.Time, excludeID string) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE class_id = $1", slotColumns)
	args := []interface{}{classID}
	if section != nil {
		query += fmt.Sprintf(" AND section = $%d", len(args)+1)
		args = append(args, *section)
	} else {
		query += " AND section IS NULL"
	}
	query, args = appendSlotScope(query, args, dayOfWeek, date, excludeID)
	query += " ORDER BY start_time ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots by class/section: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns the teacher's full commitment set, as primary or
// as substitute, within a day/date scope.
func (r *SlotRepository) ListByTeacher(ctx context.Context, teacherID, dayOfWeek string, date *time.Time, excludeID string) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE (teacher_id = $1 OR substitute_teacher_id = $1)", slotColumns)
	args := []interface{}{teacherID}
	query, args = appendSlotScope(query, args, dayOfWeek, date, excludeID)
	query += " ORDER BY start_time ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots by teacher: %w", err)
	}
	return slots, nil
}

// ListByPrimary returns slots where the teacher is the teacher of record.
func (r *SlotRepository) ListByPrimary(ctx context.Context, teacherID, dayOfWeek string, date *time.Time) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE teacher_id = $1", slotColumns)
	args := []interface{}{teacherID}
	query, args = appendSlotScope(query, args, dayOfWeek, date, "")
	query += " ORDER BY start_time ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots by primary teacher: %w", err)
	}
	return slots, nil
}

// ListBySubstitute returns slots the teacher covers as substitute.
func (r *SlotRepository) ListBySubstitute(ctx context.Context, teacherID, dayOfWeek string, date *time.Time) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE substitute_teacher_id = $1", slotColumns)
	args := []interface{}{teacherID}
	query, args = appendSlotScope(query, args, dayOfWeek, date, "")
	query += " ORDER BY start_time ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots by substitute: %w", err)
	}
	return slots, nil
}

func appendSlotScope(query string, args []interface{}, dayOfWeek string, date *time.Time, excludeID string) (string, []interface{}) {
	if dayOfWeek != "" {
		query += fmt.Sprintf(" AND day_of_week = $%d", len(args)+1)
		args = append(args, dayOfWeek)
	}
	if date != nil {
		query += fmt.Sprintf(" AND slot_date = $%d", len(args)+1)
		args = append(args, date.UTC())
	} else {
		query += " AND slot_date IS NULL"
	}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	return query, args
}

// Create stores a new slot record.
func (r *SlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO schedule_slots (id, day_of_week, start_time, end_time, class_id, section, subject, teacher_id, substitute_teacher_id, slot_date, created_at, updated_at) VALUES (:id, :day_of_week, :start_time, :end_time, :class_id, :section, :subject, :teacher_id, :substitute_teacher_id, :slot_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// Update modifies a slot record.
func (r *SlotRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_slots SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, class_id = :class_id, section = :section, subject = :subject, teacher_id = :teacher_id, substitute_teacher_id = :substitute_teacher_id, slot_date = :slot_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update schedule slot: %w", err)
	}
	return nil
}

// UpdateSubstitute sets or clears the substitute on a slot, leaving the
// teacher of record untouched.
func (r *SlotRepository) UpdateSubstitute(ctx context.Context, id string, substituteID *string) error {
	const query = `UPDATE schedule_slots SET substitute_teacher_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, substituteID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update slot substitute: %w", err)
	}
	return nil
}

// Delete removes a slot by id.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	return nil
}

// ReplaceForDate atomically replaces every slot bound to the given date
// with the provided batch. Readers never observe a partially replaced day.
func (r *SlotRepository) ReplaceForDate(ctx context.Context, date time.Time, slots []models.ScheduleSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace slots for date: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE slot_date = $1`, date.UTC()); err != nil {
		return fmt.Errorf("delete slots for date: %w", err)
	}

	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_slots (id, day_of_week, start_time, end_time, class_id, section, subject, teacher_id, substitute_teacher_id, slot_date, created_at, updated_at) VALUES (:id, :day_of_week, :start_time, :end_time, :class_id, :section, :subject, :teacher_id, :substitute_teacher_id, :slot_date, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert slot for date: %w", err)
		}
		slots[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace slots for date: %w", err)
	}
	return nil
}
