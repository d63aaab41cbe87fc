// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package acceptance estimates how likely a party is to accept an agreement.
//
// # Description
//
// Utility below the party's BATNA is penalized by its loss-aversion
// coefficient, then a logistic curve centred at 0.5 turns the adjusted
// utility into a probability. The shortfall penalty is not clamped, so a
// large shortfall can push the adjusted utility below zero and the
// probability close to zero.
package acceptance

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput indicates a NaN or infinite argument.
var ErrInvalidInput = errors.New("invalid input")

// Center is the adjusted utility at which acceptance is 50%.
const Center = 0.5

// AdjustedUtility applies the loss-averse reference-point transform.
//
// Returns utility unchanged when it meets the BATNA, otherwise
// batna - lossAversion*(batna-utility).
func AdjustedUtility(utility, batna, lossAversion float64) (float64, error) {
	if err := checkFinite(arg{"utility", utility}, arg{"batna", batna}, arg{"loss_aversion", lossAversion}); err != nil {
		return 0, err
	}
	return adjusted(utility, batna, lossAversion), nil
}

// Probability returns the acceptance probability for one party.
//
// # Inputs
//
//   - utility: The party's utility for the agreement.
//   - batna: The party's fallback utility.
//   - riskAttitude: Logistic steepness.
//   - lossAversion: Shortfall multiplier.
//
// # Outputs
//
//   - float64: Probability in [0,1].
//   - error: ErrInvalidInput (wrapped) if any argument is not finite.
func Probability(utility, batna, riskAttitude, lossAversion float64) (float64, error) {
	if err := checkFinite(arg{"utility", utility}, arg{"batna", batna}, arg{"risk_attitude", riskAttitude}, arg{"loss_aversion", lossAversion}); err != nil {
		return 0, err
	}
	x := riskAttitude * (adjusted(utility, batna, lossAversion) - Center)
	return logistic(x), nil
}

func adjusted(utility, batna, lossAversion float64) float64 {
	if utility >= batna {
		return utility
	}
	return batna - lossAversion*(batna-utility)
}

// logistic is 1/(1+e^-x), evaluated so neither tail overflows.
func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

type arg struct {
	name  string
	value float64
}

func checkFinite(args ...arg) error {
	for _, a := range args {
		if math.IsNaN(a.value) || math.IsInf(a.value, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidInput, a.name, a.value)
		}
	}
	return nil
}
