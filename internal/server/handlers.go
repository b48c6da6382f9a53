// File: internal/server/handlers.go
package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/casepilot/api/schemas"
	"github.com/xkilldash9x/casepilot/internal/runner"
)

// maxRequestBody caps a submitted batch.
const maxRequestBody = 10 << 20

// RunTestRequest is the body of POST /api/run-test.
type RunTestRequest struct {
	WebsiteURL string             `json:"website_url"`
	TestCases  []schemas.TestCase `json:"test_cases"`
}

// RunTestResponse is returned for every /api/run-test call. Failures carry
// only Status and Message.
type RunTestResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	RunID   string               `json:"run_id,omitempty"`
	Summary *runner.Summary      `json:"summary,omitempty"`
	Results []schemas.TestResult `json:"results,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRunTest(w http.ResponseWriter, r *http.Request) {
	var req RunTestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	target := strings.TrimSpace(req.WebsiteURL)
	if target == "" {
		s.respondWithError(w, http.StatusBadRequest, "website_url is required")
		return
	}
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.respondWithError(w, http.StatusBadRequest, "website_url must be an absolute http(s) URL")
		return
	}
	if len(req.TestCases) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "test_cases must be a non-empty array")
		return
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	logger.Info("Batch requested.", zap.String("target", target), zap.Int("cases", len(req.TestCases)))

	results := s.runner.Run(r.Context(), target, schemas.Normalize(req.TestCases))
	summary := runner.Summarize(results)
	logger.Info("Batch completed.", zap.Any("summary", summary))

	s.respond(w, http.StatusOK, RunTestResponse{
		Status:  "success",
		Message: "Tests executed on website: " + target,
		RunID:   runID,
		Summary: &summary,
		Results: results,
	})
}

func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	s.respond(w, statusCode, RunTestResponse{Status: "error", Message: message})
}

func (s *Server) respond(w http.ResponseWriter, statusCode int, body RunTestResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
