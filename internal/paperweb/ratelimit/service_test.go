package ratelimit_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit"
	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAllowEnforcesRegisteredLimit(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	require.NoError(t, service.RegisterLimit("command", ratelimit.Limit{
		Rate:      2,
		Period:    time.Minute,
		BurstSize: 1,
	}))

	key := ratelimit.LimitKey{Type: "command", RemoteIP: "10.0.0.1", Endpoint: "/display"}

	// rate + burst requests pass, the next one is rejected
	for i := 0; i < 3; i++ {
		assert.NoError(t, service.Allow(context.Background(), key))
	}
	assert.ErrorIs(t, service.Allow(context.Background(), key), ratelimit.ErrLimitExceeded)

	// another client has its own window
	other := key
	other.RemoteIP = "10.0.0.2"
	assert.NoError(t, service.Allow(context.Background(), other))
}

func TestAllowWithoutRegisteredLimitPasses(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	key := ratelimit.LimitKey{Type: "unregistered", RemoteIP: "10.0.0.1"}

	for i := 0; i < 100; i++ {
		assert.NoError(t, service.Allow(context.Background(), key))
	}
}

func TestAllowRejectsEmptyKeyType(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	err := service.Allow(context.Background(), ratelimit.LimitKey{})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidKey)
}

func TestRegisterLimitValidation(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	assert.ErrorIs(t, service.RegisterLimit("x", ratelimit.Limit{Rate: 0, Period: time.Minute}), ratelimit.ErrInvalidLimit)
	assert.ErrorIs(t, service.RegisterLimit("x", ratelimit.Limit{Rate: 1, Period: 0}), ratelimit.ErrInvalidLimit)
}

func TestResetClearsWindow(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	require.NoError(t, service.RegisterLimit("upload", ratelimit.Limit{
		Rate:   1,
		Period: time.Minute,
	}))

	key := ratelimit.LimitKey{Type: "upload", RemoteIP: "10.0.0.1", Endpoint: "/content"}
	require.NoError(t, service.Allow(context.Background(), key))
	require.ErrorIs(t, service.Allow(context.Background(), key), ratelimit.ErrLimitExceeded)

	require.NoError(t, service.Reset(context.Background(), key))
	assert.NoError(t, service.Allow(context.Background(), key))
}

func TestMiddlewareReturns429WithRetryAfter(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	require.NoError(t, service.RegisterLimit("command", ratelimit.Limit{
		Rate:   1,
		Period: time.Minute,
	}))

	handler := ratelimit.Middleware(service, testLogger(), ratelimit.Options{LimitType: "command"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/display", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestMiddlewareSkipCheck(t *testing.T) {
	service := ratelimit.NewService(memory.NewStore(), testLogger())
	require.NoError(t, service.RegisterLimit("api_request", ratelimit.Limit{
		Rate:   1,
		Period: time.Minute,
	}))

	handler := ratelimit.Middleware(service, testLogger(), ratelimit.Options{
		LimitType:      "api_request",
		SkipLimitCheck: func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
