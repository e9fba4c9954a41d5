package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/engine"
	"github.com/piiguard/piiguard/internal/pii"
	"github.com/piiguard/piiguard/internal/websocket"
)

type detectRequest struct {
	Text      string                 `json:"text"`
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

type anonymizeRequest struct {
	Text      string                 `json:"text"`
	Method    string                 `json:"method,omitempty"`
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

type batchRequest struct {
	Texts     []string               `json:"texts"`
	Anonymize bool                   `json:"anonymize,omitempty"`
	Method    string                 `json:"method,omitempty"`
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

type documentResponse struct {
	Matches pii.MatchSet `json:"matches"`
	// Pointer so an anonymized empty document still serializes "".
	AnonymizedText  *string      `json:"anonymized_text,omitempty"`
	OriginalMatches pii.MatchSet `json:"original_matches,omitempty"`
	Stats           engine.Stats `json:"stats"`
	Degraded        []string     `json:"degraded,omitempty"`
	Error           string       `json:"error,omitempty"`
}

type batchResponse struct {
	Results []documentResponse `json:"results"`
	Total   int                `json:"total"`
	Failed  int                `json:"failed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := s.currentEngine().ProcessText(r.Context(), req.Text, engine.Options{
		Overrides: req.Overrides,
	})
	if err != nil {
		s.writeProcessingError(w, err)
		return
	}

	atomic.AddInt64(&s.totalRequests, 1)
	atomic.AddInt64(&s.totalDetections, int64(result.Stats.Total))
	s.broadcastResult(len(req.Text), result, start)

	s.writeJSON(w, http.StatusOK, toDocumentResponse(result))
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := s.currentEngine().ProcessText(r.Context(), req.Text, engine.Options{
		Anonymize: true,
		Method:    req.Method,
		Overrides: req.Overrides,
	})
	if err != nil {
		s.writeProcessingError(w, err)
		return
	}

	atomic.AddInt64(&s.totalRequests, 1)
	atomic.AddInt64(&s.totalDetections, int64(result.Stats.Total))
	s.broadcastResult(len(req.Text), result, start)

	s.writeJSON(w, http.StatusOK, toDocumentResponse(result))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.writeError(w, http.StatusBadRequest, "texts must not be empty")
		return
	}

	results := s.currentEngine().ProcessBatch(r.Context(), req.Texts, engine.Options{
		Anonymize: req.Anonymize,
		Method:    req.Method,
		Overrides: req.Overrides,
	})

	resp := batchResponse{
		Results: make([]documentResponse, len(results)),
		Total:   len(results),
	}
	for i, dr := range results {
		if dr.Err != nil {
			resp.Results[i] = documentResponse{Error: dr.Err.Error()}
			resp.Failed++
			continue
		}
		resp.Results[i] = toDocumentResponse(dr.Result)
		atomic.AddInt64(&s.totalDetections, int64(dr.Result.Stats.Total))
	}
	atomic.AddInt64(&s.totalRequests, 1)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"uptime":    time.Since(s.started).String(),
		"detectors": s.currentEngine().Detectors(),
		"cache":     cfg.Cache.Enabled,
		"websocket": cfg.WebSocket.Enabled,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"detectors":            s.currentEngine().Detectors(),
		"methods":              s.currentEngine().Methods(),
		"enabled_types":        cfg.Detection.EnabledTypes,
		"confidence_threshold": cfg.Detection.ConfidenceThreshold,
		"default_method":       cfg.Anonymization.DefaultMethod,
		"strict":               cfg.Detection.Strict,
		"total_requests":       atomic.LoadInt64(&s.totalRequests),
		"total_detections":     atomic.LoadInt64(&s.totalDetections),
		"connected_clients":    s.wsHub.ActiveClients(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	wsCfg := s.cfg.WebSocket
	s.mu.RUnlock()
	websocket.ServeWS(s.wsHub, wsCfg, w, r)
}

// broadcastResult feeds a counts-only summary to the event hub after
// the request completed. Matched values never leave the handler.
func (s *Server) broadcastResult(textLen int, result *engine.Result, start time.Time) {
	s.mu.RLock()
	enabled := s.cfg.WebSocket.Enabled
	s.mu.RUnlock()
	if !enabled {
		return
	}
	s.wsHub.BroadcastDetection(websocket.DetectionEvent{
		TotalMatches: result.Stats.Total,
		ByType:       result.Stats.ByType,
		Anonymized:   result.Anonymized,
		TextLength:   textLen,
		ProcessingMS: float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

func toDocumentResponse(result *engine.Result) documentResponse {
	resp := documentResponse{
		Matches:         result.Matches,
		OriginalMatches: result.OriginalMatches,
		Stats:           result.Stats,
		Degraded:        result.Degraded,
	}
	if result.Anonymized {
		text := result.AnonymizedText
		resp.AnonymizedText = &text
	}
	return resp
}

// writeProcessingError maps pipeline errors to HTTP statuses. Caller
// mistakes are 400s; detector outages in strict mode are 503s.
func (s *Server) writeProcessingError(w http.ResponseWriter, err error) {
	var keyErr *config.KeyError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pii.ErrUnsupportedMethod),
		errors.Is(err, pii.ErrTextTooLarge),
		errors.As(err, &keyErr):
		status = http.StatusBadRequest
	case errors.Is(err, pii.ErrDetectorUnavailable),
		errors.Is(err, pii.ErrDetectorTimeout):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request processing failed", zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
