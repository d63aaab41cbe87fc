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
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewSimulateLimiter builds the token bucket shared by the simulate routes.
// rps <= 0 returns nil, which disables throttling.
func NewSimulateLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimit rejects requests with 429 RATE_LIMITED once limiter is empty.
//
// Description:
//
//	Requests never wait for a token. The Retry-After header carries the
//	whole seconds until the next token. A nil limiter passes every request.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		res := limiter.Reserve()
		if !res.OK() {
			rejectRateLimited(c, 1)
			return
		}
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rejectRateLimited(c, int(math.Ceil(delay.Seconds())))
			return
		}
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	requestID := getOrCreateRequestID(c)
	slog.Warn("Request rate limited", "request_id", requestID, "path", c.FullPath())
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
		Error: "simulate rate limit exceeded",
		Code:  CodeRateLimited,
	})
}
