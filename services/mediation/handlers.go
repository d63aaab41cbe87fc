// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediation

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers contains the HTTP handlers for the mediation service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/mediation/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/mediation/ready.
//
// Description:
//
//	Reports readiness. The service is ready once at least one scenario is
//	loaded.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true)
//	503 Service Unavailable: ReadyResponse (Ready=false)
func (h *Handlers) HandleReady(c *gin.Context) {
	resp := ReadyResponse{
		ScenarioCount: h.svc.ScenarioCount(),
		SessionCount:  h.svc.SessionCount(),
	}
	resp.Ready = resp.ScenarioCount > 0
	if !resp.Ready {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleListScenarios handles GET /v1/mediation/scenarios.
//
// Response:
//
//	200 OK: ScenarioListResponse
func (h *Handlers) HandleListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, ScenarioListResponse{Scenarios: h.svc.ListScenarios()})
}

// HandleGetScenario handles GET /v1/mediation/scenarios/:id.
//
// Response:
//
//	200 OK: ScenarioDetailResponse
//	404 Not Found: UNKNOWN_SCENARIO
func (h *Handlers) HandleGetScenario(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetScenario")

	resp, err := h.svc.Scenario(c.Param("id"))
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleEvaluate handles POST /v1/mediation/evaluate.
//
// Description:
//
//	Evaluates one agreement: per-party utility with issue breakdown,
//	acceptance probabilities, overall probability, Nash product, ZOPA and
//	equity ratio.
//
// Request Body:
//
//	EvaluateRequest
//
// Response:
//
//	200 OK: evaluation.Metrics
//	400 Bad Request: INVALID_REQUEST, UNKNOWN_PARAMETER, INVALID_PARAMETER_VALUE
//	404 Not Found: UNKNOWN_SCENARIO
func (h *Handlers) HandleEvaluate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvaluate")

	var req EvaluateRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	resp, err := h.svc.Evaluate(c.Request.Context(), req.ScenarioID, req.Agreement)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	logger.Info("Agreement evaluated",
		"scenario_id", req.ScenarioID,
		"overall_probability", resp.OverallProbability,
		"zopa_exists", resp.ZOPAExists)

	c.JSON(http.StatusOK, resp)
}

// HandleEvaluateBatch handles POST /v1/mediation/evaluate/batch.
//
// Request Body:
//
//	BatchEvaluateRequest
//
// Response:
//
//	200 OK: BatchEvaluateResponse, results in request order
//	400 Bad Request: as HandleEvaluate, for the first failing agreement
func (h *Handlers) HandleEvaluateBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvaluateBatch")

	var req BatchEvaluateRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	results, err := h.svc.EvaluateBatch(c.Request.Context(), req.ScenarioID, req.Agreements)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	logger.Info("Batch evaluated", "scenario_id", req.ScenarioID, "count", len(results))
	c.JSON(http.StatusOK, BatchEvaluateResponse{ScenarioID: req.ScenarioID, Results: results})
}

// HandleSimulate handles POST /v1/mediation/simulate.
//
// Description:
//
//	Runs the durability simulation. The seed used is echoed back so the
//	run can be replayed.
//
// Request Body:
//
//	SimulateRequest
//
// Response:
//
//	200 OK: SimulateResponse
//	400 Bad Request: INVALID_STEP_COUNT, INVALID_REQUEST, UNKNOWN_PARTY, ...
//	404 Not Found: UNKNOWN_SCENARIO, UNKNOWN_SESSION
//	429 Too Many Requests: RATE_LIMITED
func (h *Handlers) HandleSimulate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSimulate")

	var req SimulateRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	resp, err := h.svc.Simulate(c.Request.Context(), req, nil)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}

	logger.Info("Simulation complete",
		"scenario_id", resp.ScenarioID,
		"seed", resp.Seed,
		"steps", resp.Steps,
		"runs", resp.Runs,
		"label", resp.Label)

	c.JSON(http.StatusOK, resp)
}

// HandleCreateSession handles POST /v1/mediation/sessions.
//
// Response:
//
//	201 Created: SessionResponse with neutral strategic state
//	404 Not Found: UNKNOWN_SCENARIO
func (h *Handlers) HandleCreateSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSession")

	var req CreateSessionRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), req.ScenarioID)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// HandleGetSession handles GET /v1/mediation/sessions/:id.
//
// Response:
//
//	200 OK: SessionResponse
//	404 Not Found: UNKNOWN_SESSION
func (h *Handlers) HandleGetSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSession")

	resp, err := h.svc.Session(c.Param("id"))
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteSession handles DELETE /v1/mediation/sessions/:id.
//
// Response:
//
//	204 No Content
//	404 Not Found: UNKNOWN_SESSION
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSession")

	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleApplyEffect handles POST /v1/mediation/sessions/:id/effects.
//
// Request Body:
//
//	EffectRequest
//
// Response:
//
//	200 OK: EffectResponse
//	400 Bad Request: UNKNOWN_PARTY, UNKNOWN_METRIC
//	404 Not Found: UNKNOWN_SESSION
func (h *Handlers) HandleApplyEffect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleApplyEffect")

	var req EffectRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	resp, err := h.svc.ApplyEffect(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	logger.Info("Strategic effect applied", "session_id", resp.SessionID, "party", req.Party)
	c.JSON(http.StatusOK, resp)
}

// HandleApplyAction handles POST /v1/mediation/sessions/:id/actions.
//
// Request Body:
//
//	ActionRequest
//
// Response:
//
//	200 OK: EffectResponse, one applied record per party touched
//	400 Bad Request: UNKNOWN_PARTY, UNKNOWN_ACTION
//	404 Not Found: UNKNOWN_SESSION
func (h *Handlers) HandleApplyAction(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleApplyAction")

	var req ActionRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	resp, err := h.svc.ApplyAction(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, logger, err)
		return
	}
	logger.Info("Strategic action applied",
		"session_id", resp.SessionID,
		"party", req.Party,
		"action", req.Action,
		"effects", len(resp.Applied))
	c.JSON(http.StatusOK, resp)
}

// bindJSON decodes and validates the body, writing a 400 on failure.
func bindJSON(c *gin.Context, logger *slog.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return false
	}
	return true
}

// respondError maps err onto the error taxonomy and writes the response.
func (h *Handlers) respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classifyError(err)
	h.svc.metrics.RecordError(c.Request.Context(), code)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "code", code, "error", err)
	} else {
		logger.Warn("Request rejected", "code", code, "error", err)
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// getOrCreateRequestID extracts or generates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
