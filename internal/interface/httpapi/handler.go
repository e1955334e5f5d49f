package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/internal/usecase"
	"roomsync-service/pkg/logger"
)

const dateLayout = "2006-01-02"

// Handler exposes the booking core over plain HTTP
type Handler struct {
	checker      *usecase.AvailabilityChecker
	resolver     *usecase.RestrictionResolver
	engine       *usecase.SyncEngine
	restrictions *usecase.RestrictionManager
	calendar     *usecase.CalendarManager
	syncLogRepo  repository.SyncLogRepository
	logger       logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checker *usecase.AvailabilityChecker,
	resolver *usecase.RestrictionResolver,
	engine *usecase.SyncEngine,
	restrictions *usecase.RestrictionManager,
	calendar *usecase.CalendarManager,
	syncLogRepo repository.SyncLogRepository,
	log logger.Logger,
) *Handler {
	return &Handler{
		checker:      checker,
		resolver:     resolver,
		engine:       engine,
		restrictions: restrictions,
		calendar:     calendar,
		syncLogRepo:  syncLogRepo,
		logger:       log,
	}
}

// Register mounts every API route on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/check", h.checkAvailability)
	mux.HandleFunc("/api/v1/restrictions", h.createRestriction)
	mux.HandleFunc("/api/v1/restrictions/", h.deactivateRestriction)
	mux.HandleFunc("/api/v1/restrictions/resolve", h.resolveRestrictions)
	mux.HandleFunc("/api/v1/calendar/days", h.roomCalendar)
	mux.HandleFunc("/api/v1/calendar/block", h.calendarOp((*usecase.CalendarManager).BlockRooms))
	mux.HandleFunc("/api/v1/calendar/unblock", h.calendarOp((*usecase.CalendarManager).UnblockRooms))
	mux.HandleFunc("/api/v1/reservations/hold", h.holdReservation)
	mux.HandleFunc("/api/v1/reservations/release", h.releaseReservation)
	mux.HandleFunc("/api/v1/sync/trigger", h.triggerSync)
	mux.HandleFunc("/api/v1/sync/logs", h.listSyncLogs)
	mux.HandleFunc("/api/v1/sync/logs/", h.getSyncLog)
	mux.HandleFunc("/api/v1/sync/cancel/", h.cancelSync)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type checkRequest struct {
	TenantID   string `json:"tenantId"`
	PropertyID string `json:"propertyId"`
	RoomTypeID string `json:"roomTypeId"`
	RoomID     string `json:"roomId"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkIn date")
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkOut date")
		return
	}

	result, err := h.checker.CheckAvailability(r.Context(), usecase.CheckRequest{
		TenantID:   req.TenantID,
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		RoomID:     req.RoomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	})
	if err != nil {
		if errors.Is(err, entity.ErrMissingTenant) || errors.Is(err, entity.ErrInvalidDateRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Availability check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "availability check failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type restrictionRequest struct {
	TenantID   string  `json:"tenantId"`
	PropertyID string  `json:"propertyId"`
	RoomTypeID *string `json:"roomTypeId,omitempty"`
	RoomID     *string `json:"roomId,omitempty"`
	Kind       string  `json:"kind"`
	Value      int     `json:"value"`
	Flag       bool    `json:"flag"`
	DateFrom   string  `json:"dateFrom"`
	DateTo     string  `json:"dateTo"`
	DaysOfWeek []int   `json:"daysOfWeek,omitempty"`
	Priority   int     `json:"priority"`
}

func (h *Handler) createRestriction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req restrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dateFrom, err := time.Parse(dateLayout, req.DateFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dateFrom")
		return
	}
	dateTo, err := time.Parse(dateLayout, req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dateTo")
		return
	}

	res := &entity.Restriction{
		TenantID:   req.TenantID,
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		RoomID:     req.RoomID,
		Kind:       req.Kind,
		Value:      req.Value,
		Flag:       req.Flag,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		DaysOfWeek: req.DaysOfWeek,
		Priority:   req.Priority,
	}

	if err := h.restrictions.Create(r.Context(), res); err != nil {
		switch {
		case errors.Is(err, entity.ErrDuplicateRestriction):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, entity.ErrMissingTenant), errors.Is(err, entity.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to create restriction", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create restriction")
		}
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// resolveRestrictions answers "which rule is in force" per kind for one
// room-night, for admin screens explaining why a date cannot be booked
func (h *Handler) resolveRestrictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	day, err := time.Parse(dateLayout, q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	effective, err := h.resolver.ResolveAll(r.Context(), usecase.ResolveQuery{
		TenantID:   q.Get("tenantId"),
		PropertyID: q.Get("propertyId"),
		RoomTypeID: q.Get("roomTypeId"),
		RoomID:     q.Get("roomId"),
		Date:       day,
	})
	if err != nil {
		if errors.Is(err, entity.ErrMissingTenant) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to resolve restrictions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve restrictions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":         day.Format(dateLayout),
		"restrictions": effective,
	})
}

// roomCalendar returns the stored days for one room; days without a row are
// default open and omitted
func (h *Handler) roomCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	from, err := time.Parse(dateLayout, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := time.Parse(dateLayout, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	days, err := h.calendar.RoomCalendar(r.Context(), q.Get("tenantId"), q.Get("roomId"), from, to)
	if err != nil {
		if errors.Is(err, entity.ErrMissingTenant) || errors.Is(err, entity.ErrInvalidDateRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to load room calendar", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load room calendar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"days": days})
}

func (h *Handler) deactivateRestriction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/restrictions/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid restriction id")
		return
	}

	tenantID := r.URL.Query().Get("tenantId")
	if err := h.restrictions.Deactivate(r.Context(), tenantID, uint(id)); err != nil {
		if errors.Is(err, entity.ErrMissingTenant) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusNotFound, "restriction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type calendarRequest struct {
	TenantID   string   `json:"tenantId"`
	PropertyID string   `json:"propertyId"`
	RoomIDs    []string `json:"roomIds"`
	DateFrom   string   `json:"dateFrom"`
	DateTo     string   `json:"dateTo"`
}

// calendarOp adapts a bulk calendar operation into a handler
func (h *Handler) calendarOp(op func(*usecase.CalendarManager, context.Context, string, string, []string, time.Time, time.Time) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req calendarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		from, err := time.Parse(dateLayout, req.DateFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateFrom")
			return
		}
		to, err := time.Parse(dateLayout, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateTo")
			return
		}

		if err := op(h.calendar, r.Context(), req.TenantID, req.PropertyID, req.RoomIDs, from, to); err != nil {
			if errors.Is(err, entity.ErrMissingTenant) || errors.Is(err, entity.ErrInvalidDateRange) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("Calendar operation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "calendar operation failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reservationRequest struct {
	TenantID      string `json:"tenantId"`
	PropertyID    string `json:"propertyId"`
	RoomID        string `json:"roomId"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	ReservationID string `json:"reservationId"`
}

func (h *Handler) holdReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkIn date")
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkOut date")
		return
	}

	err = h.calendar.Reserve(r.Context(), req.TenantID, req.PropertyID, req.RoomID, checkIn, checkOut, req.ReservationID)
	if err != nil {
		var unavailable *entity.DateUnavailableError
		switch {
		case errors.As(err, &unavailable):
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":  "room unavailable",
				"date":   unavailable.Date.Format(dateLayout),
				"reason": unavailable.Reason,
			})
		case errors.Is(err, entity.ErrMissingTenant), errors.Is(err, entity.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to hold reservation", "reservationId", req.ReservationID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to hold reservation")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) releaseReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkIn date")
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkOut date")
		return
	}

	err = h.calendar.Release(r.Context(), req.TenantID, req.RoomID, checkIn, checkOut, req.ReservationID)
	if err != nil {
		if errors.Is(err, entity.ErrMissingTenant) || errors.Is(err, entity.ErrInvalidDateRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to release reservation", "reservationId", req.ReservationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to release reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type triggerRequest struct {
	ConfigID  uint   `json:"configId"`
	Kind      string `json:"kind,omitempty"`
	Direction string `json:"direction,omitempty"`
	DateFrom  string `json:"dateFrom,omitempty"`
	DateTo    string `json:"dateTo,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trigger := usecase.TriggerRequest{
		ConfigID:    req.ConfigID,
		Kind:        req.Kind,
		Direction:   req.Direction,
		Force:       req.Force,
		TriggeredBy: entity.TriggeredManual,
	}
	if req.DateFrom != "" {
		from, err := time.Parse(dateLayout, req.DateFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateFrom")
			return
		}
		trigger.DateFrom = from
	}
	if req.DateTo != "" {
		to, err := time.Parse(dateLayout, req.DateTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateTo")
			return
		}
		trigger.DateTo = to
	}

	logID, err := h.engine.TriggerSync(r.Context(), trigger)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrSyncAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, entity.ErrConfigurationNotReady),
			errors.Is(err, entity.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to trigger sync", "configId", req.ConfigID, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"logId": logID})
}

func (h *Handler) listSyncLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter := repository.SyncLogFilter{
		TenantID: r.URL.Query().Get("tenantId"),
		Status:   r.URL.Query().Get("status"),
		Kind:     r.URL.Query().Get("kind"),
	}
	if v := r.URL.Query().Get("configId"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filter.ConfigID = uint(id)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	logs, err := h.syncLogRepo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list sync logs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sync logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) getSyncLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sync/logs/")
	log, err := h.syncLogRepo.FindByID(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load sync log", "logId", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync log")
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "sync log not found")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) cancelSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sync/cancel/")
	if err := h.engine.CancelSync(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"logId": id, "status": "cancelling"})
}
