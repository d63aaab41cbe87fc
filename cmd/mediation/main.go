// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command mediation evaluates negotiated agreements and simulates their
// durability.
//
// Usage:
//
//	mediation serve --config mediation.yaml
//	mediation scenarios
//	mediation evaluate ceasefire --agreement-file proposal.yaml
//	mediation simulate ceasefire --steps 1000 --runs 20 --seed 42
//
// Example requests against a running server:
//
//	# Health check
//	curl http://localhost:12230/v1/mediation/health
//
//	# Evaluate an agreement
//	curl -X POST http://localhost:12230/v1/mediation/evaluate \
//	  -H "Content-Type: application/json" \
//	  -d '{"scenario_id": "symmetric", "agreement": {"water": {"upstream_share": 0.5}}}'
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
