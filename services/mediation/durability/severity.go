// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package durability

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
)

// newSeveritySampler builds the configured severity distribution over src.
func newSeveritySampler(cfg scenario.SeverityConfig, src rand.Source) (distuv.Rander, error) {
	switch cfg.Distribution {
	case scenario.DistributionGamma:
		return distuv.Gamma{Alpha: cfg.Shape, Beta: 1 / cfg.Scale, Src: src}, nil
	case scenario.DistributionWeibull:
		return distuv.Weibull{K: cfg.Shape, Lambda: cfg.Scale, Src: src}, nil
	case scenario.DistributionLogNormal:
		return distuv.LogNormal{Mu: math.Log(cfg.Scale), Sigma: cfg.Shape, Src: src}, nil
	default:
		return nil, fmt.Errorf("unknown severity distribution %q", cfg.Distribution)
	}
}

// newSource returns the PCG source for a run seed. The second PCG word is
// fixed so a single uint64 fully identifies a run.
func newSource(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, seedStream)
}

const seedStream = 0x9e3779b97f4a7c15

func clampRange(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
