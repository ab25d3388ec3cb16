package models

import "time"

// DateLayout is the wire format for slot dates.
const DateLayout = "2006-01-02"

// ScheduleSlot is one scheduled teaching period for a class/section at a
// day-or-date and time range. A nil Date means the slot recurs weekly on
// DayOfWeek; a non-nil Date binds the slot to that single calendar day and
// shadows weekly slots for it.
type ScheduleSlot struct {
	ID                  string     `db:"id" json:"id"`
	DayOfWeek           string     `db:"day_of_week" json:"day_of_week"`
	StartTime           string     `db:"start_time" json:"start_time"`
	EndTime             string     `db:"end_time" json:"end_time"`
	ClassID             string     `db:"class_id" json:"class_id"`
	Section             *string    `db:"section" json:"section"`
	Subject             string     `db:"subject" json:"subject"`
	TeacherID           *string    `db:"teacher_id" json:"teacher_id"`
	SubstituteTeacherID *string    `db:"substitute_teacher_id" json:"substitute_teacher_id"`
	Date                *time.Time `db:"slot_date" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// DateString renders the bound date as YYYY-MM-DD, or nil for weekly slots.
func (s ScheduleSlot) DateString() *string {
	if s.Date == nil {
		return nil
	}
	formatted := s.Date.UTC().Format(DateLayout)
	return &formatted
}

// SlotFilter describes query params for listing schedule slots.
type SlotFilter struct {
	ClassID   string
	Section   string
	TeacherID string
	DayOfWeek string
	Subject   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Conflict scopes reported by the conflict detector.
const (
	ConflictScopeClassSection = "CLASS_SECTION"
	ConflictScopeTeacher      = "TEACHER"
)

// SlotConflict describes an existing slot that causes a conflict.
type SlotConflict struct {
	SlotID    string  `json:"slot_id"`
	ClassID   string  `json:"class_id"`
	Section   *string `json:"section"`
	Subject   string  `json:"subject"`
	DayOfWeek string  `json:"day_of_week"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	TeacherID *string `json:"teacher_id,omitempty"`
	Date      *string `json:"date,omitempty"`
	Scope     string  `json:"scope"`
}

// SlotConflictError is returned when a candidate slot collides with an
// existing commitment or with another entry of the same batch.
type SlotConflictError struct {
	Scope    string       `json:"scope"`
	Message  string       `json:"message"`
	Conflict SlotConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ScopeKind discriminates schedule resolution scopes.
type ScopeKind string

const (
	ScopeClassSection ScopeKind = "CLASS_SECTION"
	ScopeTeacher      ScopeKind = "TEACHER"
)

// ScheduleScope is the tagged subject of an effective-schedule query:
// either one class/section or one teacher.
type ScheduleScope struct {
	Kind      ScopeKind
	ClassID   string
	Section   *string
	TeacherID string
}

// ClassSectionScope builds a class/section resolution scope.
func ClassSectionScope(classID string, section *string) ScheduleScope {
	return ScheduleScope{Kind: ScopeClassSection, ClassID: classID, Section: section}
}

// TeacherScope builds a teacher resolution scope.
func TeacherScope(teacherID string) ScheduleScope {
	return ScheduleScope{Kind: ScopeTeacher, TeacherID: teacherID}
}
