package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	tests := []struct {
		name  string
		rate  rate.Limit
		burst int
		ttl   time.Duration
	}{
		{name: "Standard configuration", rate: 100, burst: 200, ttl: 3 * time.Minute},
		{name: "Strict configuration", rate: 1, burst: 1, ttl: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, tt.burst, tt.ttl)

			assert.Equal(t, tt.rate, rl.rate)
			assert.Equal(t, tt.burst, rl.burst)
			assert.Equal(t, tt.ttl, rl.ttl)
			assert.NotNil(t, rl.visitors)
		})
	}
}

func TestGetVisitor(t *testing.T) {
	rl := NewRateLimiter(100, 200, 3*time.Minute)

	limiter1 := rl.getVisitor("192.168.1.1")
	limiter2 := rl.getVisitor("192.168.1.1")
	limiter3 := rl.getVisitor("192.168.1.2")

	assert.NotNil(t, limiter1)
	assert.Same(t, limiter1, limiter2)
	assert.NotSame(t, limiter1, limiter3)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		remoteAddr     string
		expectedStatus int
	}{
		{name: "First request succeeds", remoteAddr: "192.168.1.1:12345", expectedStatus: http.StatusOK},
		{name: "Second request is limited", remoteAddr: "192.168.1.1:23456", expectedStatus: http.StatusTooManyRequests},
		{name: "Other client is not affected", remoteAddr: "192.168.1.2:12345", expectedStatus: http.StatusOK},
		{name: "Address without port", remoteAddr: "10.0.0.1", expectedStatus: http.StatusOK},
		{name: "Address without port is limited", remoteAddr: "10.0.0.1", expectedStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/mfa/verify", nil)
			req.RemoteAddr = tt.remoteAddr
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusTooManyRequests {
				assert.Contains(t, w.Body.String(), "E_RATE_LIMITED")
			}
		})
	}
}

func TestEvict(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.getVisitor("192.168.1.1")
	now = now.Add(30 * time.Second)
	rl.getVisitor("192.168.1.2")

	now = now.Add(45 * time.Second)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "192.168.1.1")
	assert.Contains(t, rl.visitors, "192.168.1.2")
}

func TestRun_StopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		rl.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
