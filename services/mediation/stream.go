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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
)

// streamRequestTimeout bounds the wait for the client's simulate frame.
const streamRequestTimeout = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// HandleSimulateStream handles GET /v1/mediation/simulate/stream.
//
// Description:
//
//	Upgrades to a websocket and reads one SimulateRequest frame. Each
//	incident of the first run is sent as an "incident" frame as it is
//	generated, followed by one "summary" frame carrying the full
//	SimulateResponse. Failures are sent as an "error" frame. The server
//	closes the connection after the last frame.
func (h *Handlers) HandleSimulateStream(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSimulateStream")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(streamRequestTimeout))
	var req SimulateRequest
	if err := ws.ReadJSON(&req); err != nil {
		logger.Info("Websocket client sent no request", "error", err.Error())
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		sendFrame(ws, logger, StreamFrame{Type: FrameError, Error: &ErrorResponse{
			Error:   "Invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		}})
		closeStream(ws)
		return
	}

	broken := false
	hook := func(inc durability.Incident) {
		if broken {
			return
		}
		if err := sendFrame(ws, logger, StreamFrame{Type: FrameIncident, Incident: &inc}); err != nil {
			broken = true
		}
	}

	resp, err := h.svc.Simulate(c.Request.Context(), req, hook)
	if err != nil {
		status, code := classifyError(err)
		h.svc.metrics.RecordError(c.Request.Context(), code)
		logger.Warn("Stream simulation rejected", "code", code, "status", status, "error", err)
		sendFrame(ws, logger, StreamFrame{Type: FrameError, Error: &ErrorResponse{Error: err.Error(), Code: code}})
		closeStream(ws)
		return
	}
	if broken {
		return
	}

	sendFrame(ws, logger, StreamFrame{Type: FrameSummary, Summary: resp})
	closeStream(ws)
	logger.Info("Stream simulation complete",
		"scenario_id", resp.ScenarioID,
		"seed", resp.Seed,
		"incidents", resp.Result.IncidentCount,
		"label", resp.Label)
}

func sendFrame(ws *websocket.Conn, logger *slog.Logger, frame StreamFrame) error {
	err := ws.WriteJSON(frame)
	if err != nil {
		logger.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

func closeStream(ws *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
