package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"skillmatch/internal/controller"
	"skillmatch/internal/errors"
	"skillmatch/internal/inputs"
	"skillmatch/internal/report"
	"skillmatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// healthHandler reports the backend breaker state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "skillmatch",
		"version": s.Version,
	}

	status := http.StatusOK
	if s.Backend != nil {
		response["circuit_breakers"] = s.Backend.Stats()
		if !s.Backend.IsHealthy() {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	if s.KeyWatcher != nil {
		response["key_rotation"] = s.KeyWatcher.Status()
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "skillmatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.MaxFileSize,
			"api_keys_configured":    s.apiKeyCount(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, http.StatusOK)
}

func (s *Server) modeHandler(w http.ResponseWriter, r *http.Request) {
	group, ok := s.lookupGroup(w, r)
	if !ok {
		return
	}
	var req ModeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := group.SetMode(req.Mode); err != nil {
		writeAppError(w, err)
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) textHandler(w http.ResponseWriter, r *http.Request) {
	group, ok := s.lookupGroup(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	group.SetText(req.Text)
	s.writeState(w, http.StatusOK)
}

// uploadHandler accepts a multipart "file" field holding a PDF
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	group, ok := s.lookupGroup(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			writeErrorResponse(w, "Request too large", fmt.Sprintf("request body limit is %d bytes", maxBytesErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		writeErrorResponse(w, "Missing file", "multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.Warn("Failed to close uploaded file", "error", err)
		}
	}()

	var reader io.Reader = file
	if s.MaxFileSize > 0 {
		reader = io.LimitReader(file, s.MaxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		writeErrorResponse(w, "Upload failed", err.Error(), http.StatusBadRequest)
		return
	}

	ref, err := inputs.PDFFromBytes(header.Filename, data, s.MaxFileSize)
	if err != nil {
		writeAppError(w, err)
		return
	}
	group.SelectFile(ref)
	s.writeState(w, http.StatusOK)
}

func (s *Server) clearFileHandler(w http.ResponseWriter, r *http.Request) {
	group, ok := s.lookupGroup(w, r)
	if !ok {
		return
	}
	group.ClearFile()
	s.writeState(w, http.StatusOK)
}

// analyzeHandler runs a submission to completion. A second submission while
// one is loading is refused, as the disabled submit control would.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	err := s.Controller.TrySubmit(r.Context())
	switch {
	case err == nil:
		s.writeState(w, http.StatusOK)
	case stderrors.Is(err, controller.ErrBusy):
		writeErrorResponse(w, "Analysis in progress", "wait for the current analysis to finish", http.StatusConflict)
	case stderrors.Is(err, controller.ErrSuperseded):
		writeErrorResponse(w, "Superseded", err.Error(), http.StatusConflict)
	default:
		writeAppError(w, err)
	}
}

// skillHandler opens the modal for a missing skill. Lookup failures are part
// of the modal state, so they still answer 200.
func (s *Server) skillHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("skillmatch.server").Start(r.Context(), "skill.lookup")
	defer span.End()

	name := r.PathValue("name")
	span.SetAttributes(attribute.String("skill", name))

	err := s.Controller.OnSkillSelected(ctx, name)
	switch {
	case err == nil, errors.IsType(err, errors.ErrorTypeLookup):
		if err != nil {
			span.RecordError(err)
		}
		s.writeState(w, http.StatusOK)
	case stderrors.Is(err, controller.ErrSuperseded):
		writeErrorResponse(w, "Superseded", err.Error(), http.StatusConflict)
	default:
		writeAppError(w, err)
	}
}

func (s *Server) modalCloseHandler(w http.ResponseWriter, r *http.Request) {
	var req ModalCloseRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Target {
	case types.TargetBackdrop, types.TargetContent, types.TargetClose:
	default:
		writeErrorResponse(w, "Invalid target", "target must be backdrop, content or close", http.StatusBadRequest)
		return
	}
	s.Controller.DismissModal(req.Target)
	s.writeState(w, http.StatusOK)
}

// reportHandler streams the PDF report as a download
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	saver := &memorySaver{}
	if _, err := s.Controller.ExportReportTo(r.Context(), saver); err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": saver.name}))
	w.Header().Set("Content-Length", strconv.Itoa(saver.buf.Len()))
	if _, err := saver.buf.WriteTo(w); err != nil {
		s.Logger.LogError(err, "Failed to stream report")
	}
}

func (s *Server) explainHandler(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Controller.ExplainMissing(r.Context(), controller.DefaultExplainLimit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// memorySaver captures a generated report for streaming
type memorySaver struct {
	name string
	buf  bytes.Buffer
}

func (m *memorySaver) Save(name string, data []byte) (string, error) {
	m.name = name
	m.buf.Write(data)
	return "response:" + name, nil
}

var _ report.Saver = (*memorySaver)(nil)

func (s *Server) lookupGroup(w http.ResponseWriter, r *http.Request) (*inputs.Group, bool) {
	group, err := s.Controller.Group(types.GroupID(r.PathValue("group")))
	if err != nil {
		writeErrorResponse(w, "Unknown input group", errors.UserMessage(err), http.StatusNotFound)
		return nil, false
	}
	return group, true
}

func (s *Server) writeState(w http.ResponseWriter, status int) {
	writeJSON(w, status, StateResponse{
		ViewModel:     s.Controller.View(),
		Notifications: s.Notifications.Drain(),
	})
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// statusForError maps an application error onto an HTTP status
func statusForError(err error) int {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypePrecondition:
		return http.StatusConflict
	case errors.ErrorTypeNetwork:
		if appErr.Code == errors.ErrCodeServiceUnavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.ErrorTypeHTTP, errors.ErrorTypeLookup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err with its code and user-facing message
func writeAppError(w http.ResponseWriter, err error) {
	code := "INTERNAL"
	if appErr, ok := errors.As(err); ok {
		code = appErr.Code
	}
	writeErrorResponse(w, code, errors.UserMessage(err), statusForError(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}
