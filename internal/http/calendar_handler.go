package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

type calendarFeed interface {
	Events(from, to time.Time, filter scheduler.Filter) application.CalendarView
	WriteICS(w io.Writer, from, to time.Time, filter scheduler.Filter) error
}

// CalendarHandler serves materialized calendar windows.
type CalendarHandler struct {
	feed      calendarFeed
	responder responder
	dates     dateParser
}

// NewCalendarHandler builds a handler. Date-only request values are read in loc.
func NewCalendarHandler(feed calendarFeed, loc *time.Location, logger *slog.Logger) *CalendarHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{feed: feed, responder: newResponder(logger), dates: dateParser{loc: loc}}
}

func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feed == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, filter, err := parseCalendarQuery(r.URL.Query(), h.dates)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarResponse(h.feed.Events(from, to, filter)))
}

// ICS renders the same window as an iCalendar document.
func (h *CalendarHandler) ICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feed == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, filter, err := parseCalendarQuery(r.URL.Query(), h.dates)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	var body strings.Builder
	if err := h.feed.WriteICS(&body, from, to, filter); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="maintenance.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body.String())
}

func parseCalendarQuery(values url.Values, dates dateParser) (time.Time, time.Time, scheduler.Filter, error) {
	var from, to time.Time
	filter := scheduler.Filter{
		EmployeeID: strings.TrimSpace(values.Get("employee_id")),
		PropertyID: strings.TrimSpace(values.Get("property_id")),
		Category:   strings.TrimSpace(values.Get("category")),
	}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		ts, err := dates.parse(raw)
		if err != nil {
			return from, to, filter, fmt.Errorf("from: %w", err)
		}
		from = ts
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		ts, err := dates.parseUpper(raw)
		if err != nil {
			return from, to, filter, fmt.Errorf("to: %w", err)
		}
		to = ts
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, filter, fmt.Errorf("to must not be before from")
	}
	if raw := strings.TrimSpace(values.Get("include_completed")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return from, to, filter, fmt.Errorf("include_completed must be true or false")
		}
		filter.IncludeCompleted = include
	}
	return from, to, filter, nil
}
