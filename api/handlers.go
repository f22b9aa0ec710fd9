package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chxlky/lichtrinh/database"
	"github.com/chxlky/lichtrinh/internal/assistant"
	"github.com/chxlky/lichtrinh/internal/export"
	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/chxlky/lichtrinh/internal/reminder"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type Handler struct {
	Assistant *assistant.Assistant
	Service   *assistant.Service
	Scanner   *reminder.Scanner
	Inbox     *reminder.Inbox
	Location  *time.Location
	Clock     func() time.Time
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/health", h.HealthCheckHandler)

	group.GET("/events", h.EventsByDateHandler)
	group.GET("/events/all", h.AllEventsHandler)
	group.GET("/events/:id", h.GetEventHandler)
	group.POST("/events", h.AddEventHandler)
	group.PUT("/events/:id", h.UpdateEventHandler)
	group.DELETE("/events/:id", h.DeleteEventHandler)

	group.GET("/calendar", h.CalendarHandler)
	group.GET("/reminders", h.RemindersHandler)

	group.GET("/export/json", h.ExportJSONHandler)
	group.GET("/export/ics", h.ExportICSHandler)

	group.POST("/ask", h.AskHandler)
}

func (h *Handler) now() time.Time {
	clock := h.Clock
	if clock == nil {
		clock = time.Now
	}
	return clock().In(h.location())
}

func (h *Handler) location() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) EventsByDateHandler(c *gin.Context) {
	date := c.DefaultQuery("date", h.now().Format(dateLayout))
	if _, err := time.Parse(dateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	events, err := h.Service.Store().ListByDate(c.Request.Context(), date)
	if err != nil {
		h.internalError(c, "Failed to list events by date", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(events))
}

func (h *Handler) AllEventsHandler(c *gin.Context) {
	events, err := h.Service.Store().ListAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to list events", err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(events))
}

func (h *Handler) GetEventHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ev, err := h.Service.Store().Get(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to get event", err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) AddEventHandler(c *gin.Context) {
	var payload models.AddEventPayload
	if err := c.ShouldBind(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: text is required"})
		return
	}

	ev, msg, err := h.Assistant.Add(c.Request.Context(), payload.Text)
	if errors.Is(err, assistant.ErrEmptyInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to add event", err)
		return
	}
	zap.L().Info("Event added", zap.Uint("eventID", ev.ID), zap.String("name", ev.Name), zap.String("start", ev.Start))
	c.JSON(http.StatusCreated, gin.H{"message": msg, "event": ev})
}

func (h *Handler) UpdateEventHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload models.UpdateEventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	ev, err := h.Service.Edit(c.Request.Context(), id, payload)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, assistant.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.internalError(c, "Failed to update event", err)
	default:
		c.JSON(http.StatusOK, ev)
	}
}

func (h *Handler) DeleteEventHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := h.Service.Delete(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to delete event", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// calendarEntry is the shape calendar widgets expect.
type calendarEntry struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	Location *string `json:"location,omitempty"`
}

func (h *Handler) CalendarHandler(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	from, errFrom := time.Parse(dateLayout, start)
	to, errTo := time.Parse(dateLayout, end)
	if errFrom != nil || errTo != nil || to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be YYYY-MM-DD with start <= end"})
		return
	}

	events, err := h.Service.Store().ListRange(c.Request.Context(), start, end)
	if err != nil {
		h.internalError(c, "Failed to list calendar range", err)
		return
	}
	entries := make([]calendarEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, calendarEntry{ID: ev.ID, Title: ev.Name, Start: ev.Start, End: ev.End, Location: ev.Location})
	}
	c.JSON(http.StatusOK, entries)
}

// RemindersHandler scans synchronously, then hands back everything the
// inbox collected, including reminders fired by the background scheduler.
func (h *Handler) RemindersHandler(c *gin.Context) {
	if _, err := h.Scanner.Scan(c.Request.Context(), h.now()); err != nil {
		h.internalError(c, "Failed to scan reminders", err)
		return
	}
	due := h.Inbox.Drain()
	if due == nil {
		due = []reminder.Notification{}
	}
	c.JSON(http.StatusOK, due)
}

func (h *Handler) ExportJSONHandler(c *gin.Context) {
	events, err := h.Service.Store().ListAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to list events for export", err)
		return
	}
	data, err := export.JSON(events)
	if err != nil {
		h.internalError(c, "Failed to encode JSON export", err)
		return
	}
	c.Header("Content-Disposition", attachment("json"))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Handler) ExportICSHandler(c *gin.Context) {
	events, err := h.Service.Store().ListAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to list events for export", err)
		return
	}
	body := export.ICS(events, h.location(), h.now())
	c.Header("Content-Disposition", attachment("ics"))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func (h *Handler) AskHandler(c *gin.Context) {
	var payload models.AskPayload
	if err := c.ShouldBind(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: text is required"})
		return
	}

	reply, err := h.Assistant.Handle(c.Request.Context(), payload.Text)
	resp := models.AskResponse{Intent: string(reply.Intent), Message: reply.Message, Event: reply.Event}
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty"})
	case errors.Is(err, assistant.ErrNoMatch):
		c.JSON(http.StatusNotFound, resp)
	case err != nil:
		h.internalError(c, "Failed to handle request", err)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	zap.L().Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return 0, false
	}
	return uint(id), true
}

func orEmpty(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	return events
}

func attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="events.%s"`, ext)
}
