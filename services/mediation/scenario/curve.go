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
	"fmt"
	"sort"
)

// Curve maps a parameter value to a scalar.
//
// Numeric parameters use Points: (x, y) pairs with strictly increasing x that
// cover the parameter's domain, linearly interpolated between knots. Enum and
// boolean parameters use Table, keyed by label or "true"/"false".
type Curve struct {
	Points [][]float64        `json:"points,omitempty" yaml:"points,omitempty"`
	Table  map[string]float64 `json:"table,omitempty" yaml:"table,omitempty"`
}

// Eval returns the curve's output at v.
//
// Numeric inputs outside the knot range take the nearest endpoint's output.
// v must already satisfy the owning parameter's domain.
func (c Curve) Eval(v Value) (float64, error) {
	if f, ok := v.Float(); ok {
		if len(c.Points) == 0 {
			return 0, fmt.Errorf("curve has no points for numeric value %s", v)
		}
		return interpolate(c.Points, f), nil
	}
	if len(c.Table) == 0 {
		return 0, fmt.Errorf("curve has no table for %s value %s", v.Kind(), v)
	}
	out, ok := c.Table[v.tableKey()]
	if !ok {
		return 0, fmt.Errorf("curve table has no entry for %s", v)
	}
	return out, nil
}

// interpolate evaluates a piecewise-linear function. pts is sorted by x.
func interpolate(pts [][]float64, x float64) float64 {
	if x <= pts[0][0] {
		return pts[0][1]
	}
	last := pts[len(pts)-1]
	if x >= last[0] {
		return last[1]
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i][0] >= x })
	hi, lo := pts[i], pts[i-1]
	if hi[0] == x {
		return hi[1]
	}
	t := (x - lo[0]) / (hi[0] - lo[0])
	return lo[1] + t*(hi[1]-lo[1])
}

// outputCheck validates a single curve output.
type outputCheck func(y float64) error

// unitInterval accepts outputs in [0,1]; used for value functions.
func unitInterval(y float64) error {
	if !finite(y) || y < 0 || y > 1 {
		return fmt.Errorf("output %g outside [0, 1]", y)
	}
	return nil
}

// positive accepts finite outputs > 0; used for durability multipliers.
func positive(y float64) error {
	if !finite(y) || y <= 0 {
		return fmt.Errorf("multiplier %g must be finite and > 0", y)
	}
	return nil
}

// validate checks the curve against the parameter domain it is attached to.
func (c Curve) validate(d Domain, check outputCheck, monotonic bool) error {
	if d.Numeric() {
		if len(c.Table) > 0 {
			return fmt.Errorf("numeric parameter needs points, not a table")
		}
		if len(c.Points) < 2 {
			return fmt.Errorf("need at least two points, got %d", len(c.Points))
		}
		dir := 0
		for i, p := range c.Points {
			if len(p) != 2 {
				return fmt.Errorf("point %d must be [x, y]", i)
			}
			if !finite(p[0]) {
				return fmt.Errorf("point %d has non-finite x", i)
			}
			if err := check(p[1]); err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
			if i == 0 {
				continue
			}
			prev := c.Points[i-1]
			if p[0] <= prev[0] {
				return fmt.Errorf("point %d: x values must be strictly increasing", i)
			}
			if monotonic {
				step := sign(p[1] - prev[1])
				if dir != 0 && step != 0 && step != dir {
					return fmt.Errorf("point %d: multiplier curve must be monotonic", i)
				}
				if step != 0 {
					dir = step
				}
			}
		}
		if c.Points[0][0] > d.Min || c.Points[len(c.Points)-1][0] < d.Max {
			return fmt.Errorf("points cover [%g, %g], domain is [%g, %g]",
				c.Points[0][0], c.Points[len(c.Points)-1][0], d.Min, d.Max)
		}
		return nil
	}

	if len(c.Points) > 0 {
		return fmt.Errorf("%s parameter needs a table, not points", d.Type)
	}
	for _, key := range d.labels() {
		y, ok := c.Table[key]
		if !ok {
			return fmt.Errorf("table missing entry for %q", key)
		}
		if err := check(y); err != nil {
			return fmt.Errorf("table entry %q: %w", key, err)
		}
	}
	if len(c.Table) != len(d.labels()) {
		return fmt.Errorf("table has entries outside the domain")
	}
	return nil
}

func sign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
