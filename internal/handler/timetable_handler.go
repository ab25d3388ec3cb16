package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/timetable-api/internal/models"
	"github.com/edupanel/timetable-api/internal/service"
	appErrors "github.com/edupanel/timetable-api/pkg/errors"
	"github.com/edupanel/timetable-api/pkg/response"
)

// TimetableHandler manages schedule slot and timetable endpoints.
type TimetableHandler struct {
	slots       *service.SlotService
	alternates  *service.AlternateDayService
	substitutes *service.SubstituteService
	schedules   *service.EffectiveScheduleService
	exports     *service.ExportService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(slots *service.SlotService, alternates *service.AlternateDayService, substitutes *service.SubstituteService, schedules *service.EffectiveScheduleService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{slots: slots, alternates: alternates, substitutes: substitutes, schedules: schedules, exports: exports}
}

// ListSlots godoc
// @Summary List schedule slots
// @Tags Timetable
// @Produce json
// @Param classId query string false "Filter by class"
// @Param section query string false "Filter by section"
// @Param teacherId query string false "Filter by teacher"
// @Param dayOfWeek query string false "Filter by day"
// @Param subject query string false "Filter by subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable/slots [get]
func (h *TimetableHandler) ListSlots(c *gin.Context) {
	var filter models.SlotFilter
	filter.ClassID = c.Query("classId")
	filter.Section = c.Query("section")
	filter.TeacherID = c.Query("teacherId")
	filter.DayOfWeek = strings.ToUpper(c.Query("dayOfWeek"))
	filter.Subject = c.Query("subject")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	slots, pagination, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// CreateSlot godoc
// @Summary Create schedule slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.UpsertSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /timetable/slots [post]
func (h *TimetableHandler) CreateSlot(c *gin.Context) {
	var req service.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateSlot godoc
// @Summary Update schedule slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpsertSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/slots/{id} [put]
func (h *TimetableHandler) UpdateSlot(c *gin.Context) {
	var req service.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// DeleteSlot godoc
// @Summary Delete schedule slot
// @Tags Timetable
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /timetable/slots/{id} [delete]
func (h *TimetableHandler) DeleteSlot(c *gin.Context) {
	if err := h.slots.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetAlternateSchedule godoc
// @Summary Replace the timetable for one calendar date
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.SetAlternateScheduleRequest true "Alternate schedule payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/alternate-days [put]
func (h *TimetableHandler) SetAlternateSchedule(c *gin.Context) {
	var req service.SetAlternateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.alternates.SetAlternateSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AssignSubstitute godoc
// @Summary Assign a substitute teacher to a slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.AssignSubstituteRequest true "Substitute payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/slots/{id}/substitute [post]
func (h *TimetableHandler) AssignSubstitute(c *gin.Context) {
	var req service.AssignSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.substitutes.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// ClearSubstitute godoc
// @Summary Remove the substitute teacher from a slot
// @Tags Timetable
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/slots/{id}/substitute [delete]
func (h *TimetableHandler) ClearSubstitute(c *gin.Context) {
	slot, err := h.substitutes.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// ClassSchedule godoc
// @Summary Resolve the effective schedule for a class/section
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Param section query string false "Section"
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetable/classes/{id}/schedule [get]
func (h *TimetableHandler) ClassSchedule(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := models.ClassSectionScope(c.Param("id"), sectionQuery(c))
	views, err := h.schedules.Resolve(c.Request.Context(), scope, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// TeacherSchedule godoc
// @Summary Resolve the effective schedule for a teacher
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetable/teachers/{id}/schedule [get]
func (h *TimetableHandler) TeacherSchedule(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	views, err := h.schedules.Resolve(c.Request.Context(), models.TeacherScope(c.Param("id")), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// ExportClassSchedule godoc
// @Summary Export a class/section timetable as CSV or PDF
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param section query string false "Section"
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /timetable/classes/{id}/schedule/export [get]
func (h *TimetableHandler) ExportClassSchedule(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := models.ClassSectionScope(c.Param("id"), sectionQuery(c))
	h.serveExport(c, scope, date)
}

// ExportTeacherSchedule godoc
// @Summary Export a teacher timetable as CSV or PDF
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /timetable/teachers/{id}/schedule/export [get]
func (h *TimetableHandler) ExportTeacherSchedule(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serveExport(c, models.TeacherScope(c.Param("id")), date)
}

func (h *TimetableHandler) serveExport(c *gin.Context, scope models.ScheduleScope, date *time.Time) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	result, err := h.exports.ExportSchedule(c.Request.Context(), scope, date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func sectionQuery(c *gin.Context) *string {
	section := strings.TrimSpace(c.Query("section"))
	if section == "" {
		return nil
	}
	return &section
}

func parseDateQuery(c *gin.Context) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(models.DateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	return &parsed, nil
}
