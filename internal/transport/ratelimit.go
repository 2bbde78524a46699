// Copyright 2025 Joseph Cumines
//
// Rate limiting for HTTP transport

package transport

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies token bucket rate limiting to incoming HTTP requests.
// It wraps golang.org/x/time/rate with an injectable clock so tests can
// control time progression. When the bucket is empty, requests are rejected
// with HTTP 429 Too Many Requests.
type RateLimiter struct {
	limiter *rate.Limiter
	clock   func() time.Time
}

// NewRateLimiter creates a rate limiter with the specified rate in requests
// per second. The burst size is set to 2x the rate (minimum 1).
// Returns nil if rate is 0 or negative, which disables rate limiting.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return NewRateLimiterWithClock(requestsPerSecond, time.Now)
}

// NewRateLimiterWithClock creates a rate limiter with an injectable clock.
// This is primarily used for testing to control time progression.
func NewRateLimiterWithClock(requestsPerSecond float64, clock func() time.Time) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := int(requestsPerSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		clock:   clock,
	}
}

// Allow reports whether a request should proceed, consuming a token if so.
// A nil limiter always allows. Thread-safe.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.AllowN(r.clock(), 1)
}

// Tokens returns the current number of available tokens.
// Returns -1 if the limiter is nil (disabled). Used for testing and monitoring.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return -1
	}
	return r.limiter.TokensAt(r.clock())
}

// RateLimitMiddleware wraps next with rate limiting. The /health and /metrics
// endpoints are exempt so load balancer checks and scrapes are never dropped.
// If limiter is nil, the middleware is a passthrough.
func RateLimitMiddleware(limiter *RateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
