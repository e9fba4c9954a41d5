package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/engine"
	"github.com/piiguard/piiguard/internal/logger"
)

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.GetDefaults()
	}
	log := &logger.Logger{Logger: zap.NewNop()}
	eng, err := engine.New(cfg, log)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return New(cfg, eng, log)
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleDetect(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/detect", detectRequest{
		Text: "Reach me at jane@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp documentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Stats.Total != 1 || len(resp.Matches) != 1 {
		t.Errorf("expected one match, got %+v", resp)
	}
	if resp.Matches[0].Type != "email" || resp.Matches[0].Value != "jane@example.com" {
		t.Errorf("unexpected match: %+v", resp.Matches[0])
	}
	if resp.AnonymizedText != nil {
		t.Error("detect must not produce anonymized text")
	}
}

func TestHandleAnonymize(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/anonymize", anonymizeRequest{
		Text:   "SSN: 123-45-6789",
		Method: "redact",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp documentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AnonymizedText == nil || *resp.AnonymizedText != "SSN: [REDACTED]" {
		t.Errorf("unexpected anonymized text: %v", resp.AnonymizedText)
	}
	if len(resp.OriginalMatches) != 1 {
		t.Errorf("expected original offsets, got %+v", resp.OriginalMatches)
	}
}

func TestHandleAnonymizeEmptyText(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/anonymize", anonymizeRequest{Text: ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The anonymized text field must be present even when empty.
	if !strings.Contains(rec.Body.String(), `"anonymized_text":""`) {
		t.Errorf("empty anonymized text missing from response: %s", rec.Body.String())
	}
}

func TestHandleAnonymizeUnknownMethod(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/anonymize", anonymizeRequest{
		Text:   "a@b.com",
		Method: "rot13",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleDetectBadOverride(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/detect", detectRequest{
		Text:      "a@b.com",
		Overrides: map[string]interface{}{"no.such.key": 1},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleDetectInvalidBody(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBatch(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/batch", batchRequest{
		Texts:     []string{"a@b.com", "nothing here", "call 555-123-4567"},
		Anonymize: true,
		Method:    "replace",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 || len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %+v", resp)
	}
	if resp.Failed != 0 {
		t.Errorf("no document should fail: %+v", resp.Results)
	}
	if resp.Results[0].AnonymizedText == nil || *resp.Results[0].AnonymizedText != "[EMAIL]" {
		t.Errorf("unexpected first result: %+v", resp.Results[0])
	}
	if resp.Results[1].Stats.Total != 0 {
		t.Errorf("clean document should have no matches: %+v", resp.Results[1])
	}
}

func TestHandleBatchPerDocumentError(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Performance.MaxTextLength = 15
	s := testServer(t, cfg)

	rec := postJSON(t, s, "/v1/batch", batchRequest{
		Texts: []string{"ok a@b.com", strings.Repeat("x", 30)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Failed != 1 {
		t.Errorf("expected exactly one failure, got %d", resp.Failed)
	}
	if resp.Results[0].Error != "" {
		t.Errorf("healthy document carries an error: %q", resp.Results[0].Error)
	}
	if resp.Results[1].Error == "" {
		t.Error("oversized document should carry an error string")
	}
}

func TestHandleBatchEmptyTexts(t *testing.T) {
	s := testServer(t, nil)

	rec := postJSON(t, s, "/v1/batch", batchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected health payload: %v", body)
	}
}

func TestHandleInfo(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	methods, ok := body["methods"].([]interface{})
	if !ok || len(methods) != 5 {
		t.Errorf("expected the five built-in methods, got %v", body["methods"])
	}
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Server.RateLimit.RequestsPerMin = 60
	cfg.Server.RateLimit.Burst = 2
	s := testServer(t, cfg)

	var last int
	for i := 0; i < 5; i++ {
		rec := postJSON(t, s, "/v1/detect", detectRequest{Text: "hi"})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected the burst to be exhausted, last status %d", last)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.RateLimit.Burst = 0
	s := testServer(t, cfg)

	for i := 0; i < 10; i++ {
		rec := postJSON(t, s, "/v1/detect", detectRequest{Text: "hi"})
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d rejected with %d while limiting disabled", i, rec.Code)
		}
	}
}
