package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/entities"
)

// DailyIndex is the per-day activity record behind the calendar.
type DailyIndex interface {
	Month(ctx context.Context, year int, month time.Month) ([]activity.CalendarDay, error)
	Entry(ctx context.Context, date string) (entities.DailyEntry, error)
	SetNote(ctx context.Context, date, text string) error
}

// NoteAuditor records note edits. Optional.
type NoteAuditor interface {
	LogNote(date string, length int)
}

type SetNoteRequest struct {
	Text string `json:"text"`
}

type CalendarController struct {
	index DailyIndex
	audit NoteAuditor
}

func NewCalendarController(index DailyIndex, audit NoteAuditor) *CalendarController {
	return &CalendarController{index: index, audit: audit}
}

// Month GET /api/calendar/:year/:month
func (cc *CalendarController) Month(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 || year > 9999 {
		respondBadRequest(c, "invalid year")
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		respondBadRequest(c, "invalid month")
		return
	}

	days, err := cc.index.Month(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondDomainError(c, err, "load calendar")
		return
	}

	active := 0
	for _, d := range days {
		if d.HasActivity {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "days": days, "active_days": active})
}

// Day GET /api/calendar/days/:date
func (cc *CalendarController) Day(c *gin.Context) {
	date := c.Param("date")
	if err := activity.ValidateDate(date); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	entry, err := cc.index.Entry(c.Request.Context(), date)
	if err != nil {
		respondDomainError(c, err, "load day")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "has_activity": entry.HasActivity()})
}

// SetNote stores the day's note. An empty text clears it.
// PUT /api/calendar/days/:date/note
func (cc *CalendarController) SetNote(c *gin.Context) {
	date := c.Param("date")
	if err := activity.ValidateDate(date); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req SetNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid note")
		return
	}

	if err := cc.index.SetNote(c.Request.Context(), date, req.Text); err != nil {
		respondDomainError(c, err, "save note")
		return
	}
	if cc.audit != nil {
		cc.audit.LogNote(date, len(req.Text))
	}
	respondSuccess(c, "note saved")
}
