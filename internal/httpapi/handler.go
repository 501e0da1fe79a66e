package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
	"github.com/InnersoftTecnologia/chama-ja/internal/printing"
	"github.com/InnersoftTecnologia/chama-ja/internal/store"
	"github.com/InnersoftTecnologia/chama-ja/internal/tts"

	"github.com/google/uuid"
)

type Handler struct {
	store  store.TicketStore
	speech *tts.Client
}

type Options struct {
	Speech *tts.Client
}

func NewHandler(st store.TicketStore, options Options) *Handler {
	return &Handler{
		store:  st,
		speech: options.Speech,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets/emit", h.handleEmit)
	mux.HandleFunc("/api/tickets/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/waiting", h.handleWaiting)
	mux.HandleFunc("/api/tickets/in-service", h.handleInService)
	mux.HandleFunc("/api/tickets/history", h.handleHistory)
	mux.HandleFunc("/api/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/tts/call", h.handleTTSCall)
	mux.HandleFunc("/api/admin/reset-sequences", h.handleResetSequences)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type emitRequest struct {
	RequestID string `json:"request_id"`
	ServiceID string `json:"service_id"`
	Priority  string `json:"priority"`
}

type emitResponse struct {
	Ticket    models.Ticket `json:"ticket"`
	Position  int           `json:"position_in_queue"`
	PrintText string        `json:"print_text"`
}

func (h *Handler) handleEmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req emitRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.Priority = strings.TrimSpace(req.Priority)

	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id is required")
		return
	}
	if !isValidUUID(req.ServiceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID")
		return
	}
	if req.RequestID != "" && !isValidUUID(req.RequestID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id must be a UUID when provided")
		return
	}

	result, err := h.store.EmitTicket(r.Context(), store.EmitTicketInput{
		RequestID: req.RequestID,
		TenantID:  session.TenantID,
		ServiceID: req.ServiceID,
		Priority:  req.Priority,
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	tenantName := ""
	if profile, err := h.store.GetTenantProfile(r.Context(), session.TenantID); err == nil {
		tenantName = profile.Name
	}

	writeJSON(w, http.StatusOK, emitResponse{
		Ticket:   result.Ticket,
		Position: result.Position,
		PrintText: printing.Text(printing.Receipt{
			TenantName: tenantName,
			Ticket:     result.Ticket,
			Position:   result.Position,
		}),
	})
}

type callNextRequest struct {
	CounterID   string   `json:"counter_id"`
	CounterName string   `json:"counter_name"`
	ServiceIDs  []string `json:"service_ids"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req callNextRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.CounterID = strings.TrimSpace(req.CounterID)
	req.CounterName = strings.TrimSpace(req.CounterName)

	if req.CounterID != "" && !isValidUUID(req.CounterID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id must be a UUID when provided")
		return
	}
	for _, serviceID := range req.ServiceIDs {
		if !isValidUUID(serviceID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "service_ids must be UUIDs")
			return
		}
	}

	ticket, err := h.store.CallNext(r.Context(), store.CallNextInput{
		TenantID:     session.TenantID,
		OperatorID:   session.OperatorID,
		OperatorName: session.OperatorName,
		CounterID:    req.CounterID,
		CounterName:  req.CounterName,
		ServiceIDs:   req.ServiceIDs,
		CalledAt:     time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ticketID := parts[0]
	action := parts[2]
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	input := store.TicketActionInput{
		TenantID:     session.TenantID,
		TicketID:     ticketID,
		OperatorID:   session.OperatorID,
		OperatorName: session.OperatorName,
		OccurredAt:   time.Now().UTC(),
	}

	var ticket models.Ticket
	var err error
	switch action {
	case "call":
		var req callNextRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.CounterID = strings.TrimSpace(req.CounterID)
		req.CounterName = strings.TrimSpace(req.CounterName)
		if req.CounterID != "" && !isValidUUID(req.CounterID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "counter_id must be a UUID when provided")
			return
		}
		ticket, err = h.store.CallTicket(r.Context(), store.CallTicketInput{
			TenantID:     session.TenantID,
			TicketID:     ticketID,
			OperatorID:   session.OperatorID,
			OperatorName: session.OperatorName,
			CounterID:    req.CounterID,
			CounterName:  req.CounterName,
			CalledAt:     time.Now().UTC(),
		})
	case "recall":
		ticket, err = h.store.RecallTicket(r.Context(), input)
	case "start":
		ticket, err = h.store.StartService(r.Context(), input)
	case "complete":
		ticket, err = h.store.CompleteTicket(r.Context(), input)
	case "no-show":
		ticket, err = h.store.NoShowTicket(r.Context(), input)
	case "cancel":
		ticket, err = h.store.CancelTicket(r.Context(), input)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleWaiting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var serviceIDs []string
	if raw := strings.TrimSpace(r.URL.Query().Get("service_id")); raw != "" {
		if !isValidUUID(raw) {
			writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID")
			return
		}
		serviceIDs = []string{raw}
	}

	tickets, err := h.store.ListWaiting(r.Context(), session.TenantID, serviceIDs, queryLimit(r, 50))
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleInService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	tickets, err := h.store.ListInService(r.Context(), session.TenantID, queryLimit(r, 20))
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	tickets, err := h.store.ListHistory(r.Context(), session.TenantID, queryLimit(r, 10))
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	snapshot, err := h.store.Snapshot(r.Context(), session.TenantID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleTTSCall serves announcement audio for a ticket code. Voice settings
// come from the tenant profile; query parameters may override them. A
// synthesizer outage answers 503 and the display falls back to chime-only.
func (h *Handler) handleTTSCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.speech == nil {
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "speech synthesis disabled")
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	query := r.URL.Query()
	ticketCode := strings.TrimSpace(query.Get("ticket_code"))
	if ticketCode == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket_code is required")
		return
	}
	location := strings.TrimSpace(query.Get("location"))

	profile, err := h.store.GetTenantProfile(r.Context(), session.TenantID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !profile.TTSEnabled {
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "speech synthesis disabled for tenant")
		return
	}
	req := tts.Request{
		Text:   tts.CallText(ticketCode, location),
		Voice:  profile.TTSVoice,
		Speed:  profile.TTSSpeed,
		Volume: profile.TTSVolume,
	}
	if voice := strings.TrimSpace(query.Get("voice")); voice != "" {
		req.Voice = voice
	}
	if speed, err := strconv.ParseFloat(query.Get("speed"), 64); err == nil {
		req.Speed = speed
	}
	if volume, err := strconv.ParseFloat(query.Get("volume"), 64); err == nil {
		req.Volume = volume
	}

	audio, err := h.speech.Synthesize(r.Context(), req)
	if err != nil {
		if errors.Is(err, tts.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "speech synthesizer unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (h *Handler) handleResetSequences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if session.Role != "admin" {
		writeError(w, http.StatusForbidden, "access_denied", "admin role required")
		return
	}

	removed, err := h.store.ResetSequences(r.Context(), session.TenantID, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sequences_reset": removed})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func queryLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrNoTicket):
		return http.StatusConflict, "queue_empty", "no ticket available"
	case errors.Is(err, store.ErrClaimConflict):
		return http.StatusConflict, "claim_conflict", "ticket already claimed, pick again"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrInvalidPriority):
		return http.StatusBadRequest, "invalid_request", "priority must be normal or preferential"
	case errors.Is(err, store.ErrServiceInactive):
		return http.StatusConflict, "service_inactive", "service is not accepting tickets"
	case errors.Is(err, store.ErrTenantNotFound):
		return http.StatusNotFound, "tenant_not_found", "tenant not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
