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
	"errors"
	"net/http"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/acceptance"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// Service-level sentinel errors.
var (
	// ErrUnknownSession indicates the session ID has no live session.
	ErrUnknownSession = errors.New("unknown session")

	// ErrUnknownAction indicates the action is not in the scenario's catalog.
	ErrUnknownAction = errors.New("unknown strategic action")

	// ErrInvalidRequest indicates a request outside configured limits or
	// with conflicting fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSessionScenario indicates a session was used with a different scenario.
	ErrSessionScenario = errors.New("session belongs to a different scenario")
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidParameterValue = "INVALID_PARAMETER_VALUE"
	CodeUnknownParameter      = "UNKNOWN_PARAMETER"
	CodeUnknownParty          = "UNKNOWN_PARTY"
	CodeUnknownMetric         = "UNKNOWN_METRIC"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidStepCount      = "INVALID_STEP_COUNT"
	CodeInvalidScenario       = "INVALID_SCENARIO"
	CodeUnknownScenario       = "UNKNOWN_SCENARIO"
	CodeUnknownSession        = "UNKNOWN_SESSION"
	CodeUnknownAction         = "UNKNOWN_ACTION"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeRateLimited           = "RATE_LIMITED"
	CodeInternal              = "INTERNAL_ERROR"
)

// classifyError maps an error to an HTTP status and error code.
//
// Order matters only where sentinels overlap; scenario.ErrUnknownParty and
// strategic.ErrUnknownParty are the same value.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, scenario.ErrInvalidParameterValue):
		return http.StatusBadRequest, CodeInvalidParameterValue
	case errors.Is(err, scenario.ErrUnknownParameter):
		return http.StatusBadRequest, CodeUnknownParameter
	case errors.Is(err, strategic.ErrUnknownParty):
		return http.StatusBadRequest, CodeUnknownParty
	case errors.Is(err, strategic.ErrUnknownMetric):
		return http.StatusBadRequest, CodeUnknownMetric
	case errors.Is(err, acceptance.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, durability.ErrInvalidStepCount):
		return http.StatusBadRequest, CodeInvalidStepCount
	case errors.Is(err, durability.ErrInvalidRunCount), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, scenario.ErrUnknownScenario):
		return http.StatusNotFound, CodeUnknownScenario
	case errors.Is(err, ErrUnknownSession):
		return http.StatusNotFound, CodeUnknownSession
	case errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest, CodeUnknownAction
	case errors.Is(err, ErrSessionScenario):
		return http.StatusConflict, CodeInvalidRequest
	case errors.Is(err, scenario.ErrInvalidScenario):
		return http.StatusUnprocessableEntity, CodeInvalidScenario
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
