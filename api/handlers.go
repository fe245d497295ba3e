/*
handlers.go - HTTP API handlers for the pay calculation service

PURPOSE:
  Exposes the Schedule 1 engine and the timesheet workflow via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/calculations                Price a work session

  Rates:
    GET    /api/rates/{code}                Resolve a rate policy

  Timesheets:
    GET    /api/timesheets?tutor=           List timesheets
    POST   /api/timesheets                  Create (prices on write)
    GET    /api/timesheets/{id}             Get one
    PUT    /api/timesheets/{id}             Update facts (reprices)
    GET    /api/timesheets/{id}/approvals   Workflow history
    POST   /api/timesheets/{id}/approvals   Perform a workflow action

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown enum values
  - 404: Unknown timesheet / unresolvable rate policy
  - 409: Illegal workflow transition, edits outside editable status
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. Identity arrives as actor_id in request
  bodies and is trusted; an auth layer in front of this service is a
  deployment concern.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	calc       *schedule1.Calculator
	timesheets *timesheet.Service
	log        *zap.Logger
	validate   *validator.Validate
}

// NewHandler wires the handlers. A nil logger disables logging.
func NewHandler(calc *schedule1.Calculator, timesheets *timesheet.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		calc:       calc,
		timesheets: timesheets,
		log:        logger,
		validate:   validator.New(),
	}
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// Calculate prices one work session without persisting anything.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var body CalculationRequestDTO
	if !h.decodeAndValidate(w, r, &body) {
		return
	}

	req, ok := h.buildCalculationRequest(w, body)
	if !ok {
		return
	}

	result, err := h.calc.Calculate(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationResultDTO(result))
}

func (h *Handler) buildCalculationRequest(w http.ResponseWriter, body CalculationRequestDTO) (schedule1.CalculationRequest, bool) {
	category, ok := schedule1.ParseTaskCategory(body.TaskCategory)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown task_category: "+body.TaskCategory)
		return schedule1.CalculationRequest{}, false
	}
	sessionDate, ok := parseSessionDate(body.SessionDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "session_date must be YYYY-MM-DD")
		return schedule1.CalculationRequest{}, false
	}
	delivery, ok := parseHours(body.DeliveryHours)
	if !ok {
		writeError(w, http.StatusBadRequest, "delivery_hours must be a decimal number")
		return schedule1.CalculationRequest{}, false
	}
	qualification, ok := schedule1.ParseQualification(body.Qualification)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown qualification: "+body.Qualification)
		return schedule1.CalculationRequest{}, false
	}
	return schedule1.NewCalculationRequest(category, sessionDate, delivery, body.Repeat, qualification), true
}

// =============================================================================
// RATES
// =============================================================================

// GetRate resolves the policy for a rate code, optionally scoped by
// qualification and date query parameters.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var qualification *schedule1.Qualification
	if q := r.URL.Query().Get("qualification"); q != "" {
		parsed, ok := schedule1.ParseQualification(q)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown qualification: "+q)
			return
		}
		qualification = &parsed
	}

	targetDate, ok := parseSessionDate(r.URL.Query().Get("date"))
	if !ok && r.URL.Query().Get("date") != "" {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	policy, err := h.calc.Provider().ResolvePolicyByRateCode(r.Context(), code, qualification, targetDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRatePolicyDTO(policy))
}

// =============================================================================
// TIMESHEETS
// =============================================================================

// ListTimesheets lists timesheets, optionally filtered by ?tutor=.
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	timesheets, err := h.timesheets.List(r.Context(), r.URL.Query().Get("tutor"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTOs(timesheets))
}

// CreateTimesheet creates a priced DRAFT timesheet.
func (h *Handler) CreateTimesheet(w http.ResponseWriter, r *http.Request) {
	var body TimesheetRequestDTO
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	in, ok := h.buildCreateInput(w, body)
	if !ok {
		return
	}

	ts, err := h.timesheets.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimesheetDTO(*ts))
}

// GetTimesheet returns one timesheet by ID.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.timesheetID(w, r)
	if !ok {
		return
	}
	ts, err := h.timesheets.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

// UpdateTimesheet replaces the session facts and reprices.
func (h *Handler) UpdateTimesheet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.timesheetID(w, r)
	if !ok {
		return
	}
	var body TimesheetRequestDTO
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	in, ok := h.buildCreateInput(w, body)
	if !ok {
		return
	}

	ts, err := h.timesheets.Update(r.Context(), id, timesheet.UpdateInput{
		TaskCategory:  in.TaskCategory,
		SessionDate:   in.SessionDate,
		DeliveryHours: in.DeliveryHours,
		Repeat:        in.Repeat,
		Qualification: in.Qualification,
		Description:   in.Description,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

// ListApprovals returns a timesheet's workflow history.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.timesheetID(w, r)
	if !ok {
		return
	}
	history, err := h.timesheets.History(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTOs(history))
}

// PerformApproval applies a workflow action to a timesheet.
func (h *Handler) PerformApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.timesheetID(w, r)
	if !ok {
		return
	}
	var body ApprovalRequestDTO
	if !h.decodeAndValidate(w, r, &body) {
		return
	}
	action, ok := timesheet.ParseApprovalAction(body.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action: "+body.Action)
		return
	}

	ts, err := h.timesheets.PerformAction(r.Context(), id, action, body.ActorID, body.Comment)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

func (h *Handler) buildCreateInput(w http.ResponseWriter, body TimesheetRequestDTO) (timesheet.CreateInput, bool) {
	category, ok := schedule1.ParseTaskCategory(body.TaskCategory)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown task_category: "+body.TaskCategory)
		return timesheet.CreateInput{}, false
	}
	sessionDate, ok := parseSessionDate(body.SessionDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "session_date must be YYYY-MM-DD")
		return timesheet.CreateInput{}, false
	}
	delivery, ok := parseHours(body.DeliveryHours)
	if !ok {
		writeError(w, http.StatusBadRequest, "delivery_hours must be a decimal number")
		return timesheet.CreateInput{}, false
	}
	qualification, ok := schedule1.ParseQualification(body.Qualification)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown qualification: "+body.Qualification)
		return timesheet.CreateInput{}, false
	}
	return timesheet.CreateInput{
		TutorID:       body.TutorID,
		CourseID:      body.CourseID,
		TaskCategory:  category,
		SessionDate:   sessionDate,
		DeliveryHours: delivery,
		Repeat:        body.Repeat,
		Qualification: qualification,
		Description:   body.Description,
	}, true
}

func (h *Handler) timesheetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "timesheet id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

// =============================================================================
// DECODING AND ERROR MAPPING
// =============================================================================

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule1.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule1.ErrPolicyNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timesheet.ErrTimesheetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timesheet.ErrIllegalTransition),
		errors.Is(err, timesheet.ErrNotEditable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorDTO{Error: message})
}
