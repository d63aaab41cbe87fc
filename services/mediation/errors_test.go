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
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/acceptance"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/durability"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{scenario.ErrInvalidParameterValue, http.StatusBadRequest, CodeInvalidParameterValue},
		{scenario.ErrUnknownParameter, http.StatusBadRequest, CodeUnknownParameter},
		{strategic.ErrUnknownParty, http.StatusBadRequest, CodeUnknownParty},
		{strategic.ErrUnknownMetric, http.StatusBadRequest, CodeUnknownMetric},
		{acceptance.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
		{durability.ErrInvalidStepCount, http.StatusBadRequest, CodeInvalidStepCount},
		{durability.ErrInvalidRunCount, http.StatusBadRequest, CodeInvalidRequest},
		{ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{scenario.ErrUnknownScenario, http.StatusNotFound, CodeUnknownScenario},
		{ErrUnknownSession, http.StatusNotFound, CodeUnknownSession},
		{ErrUnknownAction, http.StatusBadRequest, CodeUnknownAction},
		{ErrSessionScenario, http.StatusConflict, CodeInvalidRequest},
		{scenario.ErrInvalidScenario, http.StatusUnprocessableEntity, CodeInvalidScenario},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode+"/"+tt.err.Error(), func(t *testing.T) {
			status, code := classifyError(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
