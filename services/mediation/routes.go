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
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RegisterRoutes registers all mediation routes with the router.
//
// Description:
//
//	Registers all /v1/mediation/* endpoints with the given Gin router group.
//	The simulate routes share limiter; nil disables throttling.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//	limiter - Token bucket for the simulate routes
//
// Scenario Endpoints:
//
//	GET  /v1/mediation/scenarios - List scenarios
//	GET  /v1/mediation/scenarios/:id - Scenario detail with midpoint agreement
//
// Evaluation Endpoints:
//
//	POST /v1/mediation/evaluate - Evaluate one agreement
//	POST /v1/mediation/evaluate/batch - Evaluate several agreements
//	POST /v1/mediation/simulate - Durability simulation
//	GET  /v1/mediation/simulate/stream - Durability simulation over websocket
//
// Session Endpoints:
//
//	POST   /v1/mediation/sessions - Open a session
//	GET    /v1/mediation/sessions/:id - Session state and audit log
//	DELETE /v1/mediation/sessions/:id - Close a session
//	POST   /v1/mediation/sessions/:id/effects - Apply metric deltas
//	POST   /v1/mediation/sessions/:id/actions - Apply a catalogued action
//
// Health Endpoints:
//
//	GET  /v1/mediation/health - Health check
//	GET  /v1/mediation/ready - Readiness check
//
// Example:
//
//	service := mediation.NewService(mediation.DefaultServiceConfig(), registry, sessions)
//	handlers := mediation.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	mediation.RegisterRoutes(v1, handlers, mediation.NewSimulateLimiter(20, 40))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, limiter *rate.Limiter) {
	m := rg.Group("/mediation")
	{
		// Health checks
		m.GET("/health", handlers.HandleHealth)
		m.GET("/ready", handlers.HandleReady)

		// Scenarios
		m.GET("/scenarios", handlers.HandleListScenarios)
		m.GET("/scenarios/:id", handlers.HandleGetScenario)

		// Evaluation
		m.POST("/evaluate", handlers.HandleEvaluate)
		m.POST("/evaluate/batch", handlers.HandleEvaluateBatch)

		// Simulation
		simulate := m.Group("/simulate", RateLimit(limiter))
		{
			simulate.POST("", handlers.HandleSimulate)
			simulate.GET("/stream", handlers.HandleSimulateStream)
		}

		// Sessions
		sessions := m.Group("/sessions")
		{
			sessions.POST("", handlers.HandleCreateSession)
			sessions.GET("/:id", handlers.HandleGetSession)
			sessions.DELETE("/:id", handlers.HandleDeleteSession)
			sessions.POST("/:id/effects", handlers.HandleApplyEffect)
			sessions.POST("/:id/actions", handlers.HandleApplyAction)
		}
	}
}
