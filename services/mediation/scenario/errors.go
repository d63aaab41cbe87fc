// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scenario

import (
	"errors"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/strategic"
)

// Sentinel errors for scenario loading and agreement validation.
var (
	// ErrInvalidScenario indicates a scenario violated a load-time invariant
	// (weight sums, domains, value-function coverage). Fatal at load.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrInvalidParameterValue indicates an agreement value outside its declared domain.
	ErrInvalidParameterValue = errors.New("invalid parameter value")

	// ErrUnknownParameter indicates an agreement named an issue or parameter
	// the scenario does not declare.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrUnknownParty indicates a party ID the scenario does not declare.
	// Shared with the strategic store so callers match a single sentinel.
	ErrUnknownParty = strategic.ErrUnknownParty

	// ErrUnknownScenario indicates a registry lookup for an unloaded scenario ID.
	ErrUnknownScenario = errors.New("unknown scenario")
)
