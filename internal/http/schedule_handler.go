package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/recurrence"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 100
)

type scheduleService interface {
	CreateSchedule(ctx context.Context, params application.CreateScheduleParams) (application.ServiceSchedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (application.ServiceSchedule, error)
	DeleteSchedule(ctx context.Context, principal application.Principal, scheduleID string) error
	CompleteService(ctx context.Context, params application.CompleteServiceParams) (application.ServiceSchedule, error)
	ReprojectSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.ServiceSchedule, error)
	PreviewSchedule(ctx context.Context, scheduleID string, n int) ([]time.Time, error)
	AdjustedCost(ctx context.Context, scheduleID string, date time.Time) (*decimal.Decimal, error)
	GetSchedule(ctx context.Context, scheduleID string) (application.ServiceSchedule, error)
	QuerySchedules(ctx context.Context, criteria application.QueryCriteria) []application.ServiceSchedule
	Statistics(ctx context.Context) application.ScheduleStatistics
}

// ScheduleHandler serves the schedule registry endpoints.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
	dates     dateParser
	now       func() time.Time
}

// NewScheduleHandler builds a handler. Date-only request values are read in loc.
func NewScheduleHandler(service scheduleService, loc *time.Location, now func() time.Time, logger *slog.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
		dates:     dateParser{loc: loc},
		now:       now,
	}
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.dates)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	schedule, err := h.service.CreateSchedule(r.Context(), application.CreateScheduleParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Location", "/api/schedules/"+url.PathEscape(schedule.ID))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dto := toScheduleDTO(schedule)
	adjusted, err := h.service.AdjustedCost(r.Context(), scheduleID, h.now())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "ScheduleHandler", "Get").WarnContext(r.Context(), "failed to compute adjusted cost", "error", err)
	} else {
		dto.AdjustedCost = adjusted
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: dto})
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	patch, err := req.toPatch(h.dates)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	schedule, err := h.service.UpdateSchedule(r.Context(), application.UpdateScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Patch:      patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSchedule(r.Context(), principal, scheduleID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Complete records a performed service. The body is optional.
func (h *ScheduleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var req completeServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	schedule, err := h.service.CompleteService(r.Context(), application.CompleteServiceParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		ActualCost: req.ActualCost,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Reproject(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	schedule, err := h.service.ReprojectSchedule(r.Context(), principal, scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	count := defaultPreviewCount
	if raw := strings.TrimSpace(r.URL.Query().Get("count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPreviewCount {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("count must be between 1 and %d", maxPreviewCount))
			return
		}
		count = n
	}

	dates, err := h.service.PreviewSchedule(r.Context(), scheduleID, count)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := previewResponse{ScheduleID: scheduleID, Dates: make([]string, 0, len(dates))}
	for _, date := range dates {
		resp.Dates = append(resp.Dates, formatTime(date))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	criteria, err := buildQueryCriteria(r.URL.Query(), h.dates)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	schedules := h.service.QuerySchedules(r.Context(), criteria)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{
		Schedules: toScheduleDTOs(schedules),
		Total:     len(schedules),
	})
}

func (h *ScheduleHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.service.Statistics(r.Context()))
}

func (h *ScheduleHandler) scheduleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	scheduleID := strings.TrimSpace(chi.URLParam(r, "id"))
	if scheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return "", false
	}
	return scheduleID, true
}

func buildQueryCriteria(values url.Values, dates dateParser) (application.QueryCriteria, error) {
	criteria := application.QueryCriteria{
		SearchTerm:         strings.TrimSpace(values.Get("q")),
		PropertyID:         strings.TrimSpace(values.Get("property_id")),
		Category:           application.Category(strings.TrimSpace(values.Get("category"))),
		Priority:           application.Priority(strings.TrimSpace(values.Get("priority"))),
		AssignedEmployeeID: strings.TrimSpace(values.Get("employee_id")),
		RecurrenceType:     recurrence.Type(strings.TrimSpace(values.Get("recurrence"))),
	}

	if active := strings.TrimSpace(values.Get("active")); active != "" {
		value, err := strconv.ParseBool(active)
		if err != nil {
			return application.QueryCriteria{}, fmt.Errorf("active must be true or false")
		}
		criteria.IsActive = &value
	}
	if from := strings.TrimSpace(values.Get("from")); from != "" {
		ts, err := dates.parse(from)
		if err != nil {
			return application.QueryCriteria{}, fmt.Errorf("from: %w", err)
		}
		criteria.DueFrom = &ts
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		ts, err := dates.parseUpper(to)
		if err != nil {
			return application.QueryCriteria{}, fmt.Errorf("to: %w", err)
		}
		criteria.DueTo = &ts
	}
	for _, tag := range values["tag"] {
		if tag = strings.TrimSpace(tag); tag != "" {
			criteria.Tags = append(criteria.Tags, tag)
		}
	}
	return criteria, nil
}
