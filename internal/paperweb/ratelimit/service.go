package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type service struct {
	store   Store
	logger  *slog.Logger
	limits  map[string]Limit
	limitsM sync.RWMutex
}

// NewService creates a new rate limiting service
func NewService(store Store, logger *slog.Logger) Service {
	return &service{
		store:  store,
		logger: logger,
		limits: make(map[string]Limit),
	}
}

// RegisterLimit adds or updates a rate limit configuration
func (s *service) RegisterLimit(limitType string, limit Limit) error {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return ErrInvalidLimit
	}

	s.limitsM.Lock()
	defer s.limitsM.Unlock()

	s.limits[limitType] = limit
	return nil
}

// Allow checks if an operation should be allowed
func (s *service) Allow(ctx context.Context, key LimitKey) error {
	if key.Type == "" {
		return ErrInvalidKey
	}

	limit := s.GetLimit(key.Type)
	if limit.Rate == 0 {
		s.logger.Warn("no rate limit configured for type", "type", key.Type)
		// Allow if no limit configured
		return nil
	}

	count, err := s.store.Increment(ctx, key, limit)
	if err != nil {
		if err != ErrLimitExceeded {
			s.logger.Error("rate limit check failed",
				"error", err,
				"type", key.Type,
				"endpoint", key.Endpoint,
			)
		}
		return err
	}

	s.logger.Debug("rate limit check",
		"type", key.Type,
		"count", count,
		"limit", limit.Rate,
		"burst", limit.BurstSize,
		"endpoint", key.Endpoint,
	)

	return nil
}

// GetLimit returns the configured limit for a key type
func (s *service) GetLimit(limitType string) Limit {
	s.limitsM.RLock()
	defer s.limitsM.RUnlock()

	return s.limits[limitType]
}

// Reset clears rate limit counters for a key
func (s *service) Reset(ctx context.Context, key LimitKey) error {
	if key.Type == "" {
		return ErrInvalidKey
	}

	if err := s.store.Reset(ctx, key); err != nil {
		s.logger.Error("failed to reset rate limit",
			"error", err,
			"type", key.Type,
			"endpoint", key.Endpoint,
		)
		return err
	}

	return nil
}

// RegisterDefaultLimits configures standard rate limits
func (s *service) RegisterDefaultLimits() {
	// Uploads land on the panel; keep them well under the render throttle
	s.RegisterLimit("upload", Limit{
		Rate:      30,
		Period:    time.Minute,
		BurstSize: 10,
	})

	// Display, refresh, and clear commands compete for one panel
	s.RegisterLimit("command", Limit{
		Rate:      10,
		Period:    time.Minute,
		BurstSize: 5,
	})

	// General API reads
	s.RegisterLimit("api_request", Limit{
		Rate:      120,
		Period:    time.Minute,
		BurstSize: 20,
	})

	// WebSocket event feed connections
	s.RegisterLimit("ws_connection", Limit{
		Rate:      10,
		Period:    time.Minute,
		BurstSize: 2,
	})
}
