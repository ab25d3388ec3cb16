package dto

import "github.com/edupanel/timetable-api/internal/models"

// SlotView is the external representation of a schedule slot. Dates are
// rendered as plain YYYY-MM-DD strings, null for weekly slots.
type SlotView struct {
	ID                  string  `json:"id"`
	DayOfWeek           string  `json:"day_of_week"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	ClassID             string  `json:"class_id"`
	Section             *string `json:"section"`
	Subject             string  `json:"subject"`
	TeacherID           *string `json:"teacher_id"`
	SubstituteTeacherID *string `json:"substitute_teacher_id"`
	Date                *string `json:"date"`
}

// FromSlot maps a stored slot to its external view.
func FromSlot(slot models.ScheduleSlot) SlotView {
	return SlotView{
		ID:                  slot.ID,
		DayOfWeek:           slot.DayOfWeek,
		StartTime:           slot.StartTime,
		EndTime:             slot.EndTime,
		ClassID:             slot.ClassID,
		Section:             slot.Section,
		Subject:             slot.Subject,
		TeacherID:           slot.TeacherID,
		SubstituteTeacherID: slot.SubstituteTeacherID,
		Date:                slot.DateString(),
	}
}

// FromSlots maps a slice of stored slots, never returning nil.
func FromSlots(slots []models.ScheduleSlot) []SlotView {
	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, FromSlot(slot))
	}
	return views
}

// EffectiveSlotView annotates a resolved slot with substitution context.
type EffectiveSlotView struct {
	SlotView
	IsSubstituteAssignment bool   `json:"is_substitute_assignment"`
	TeachingTeacherName    string `json:"teaching_teacher_name,omitempty"`
	OriginalTeacherName    string `json:"original_teacher_name,omitempty"`
}
