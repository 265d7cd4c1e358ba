package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig controls per-client request and data limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// LimitError reports which limit a request tripped.
type LimitError struct {
	Type       string // minute, hour, day_requests, day_data
	Limit      int64
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit of %d exceeded", e.Type, e.Limit)
}

// RateLimiter tracks per-client usage over minute, hour and day windows.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientUsage
}

type clientUsage struct {
	minuteStart    time.Time
	minuteRequests int
	hourStart      time.Time
	hourRequests   int
	dayStart       time.Time
	dayRequests    int
	dayData        int64
}

// NewRateLimiter creates a rate limiter with the given limits. Zero limits
// are unenforced.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, clients: make(map[string]*clientUsage)}
}

// Allow checks whether a request carrying dataSize bytes from clientID may
// proceed, and records it if so.
func (rl *RateLimiter) Allow(clientID string, dataSize int64) *LimitError {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &clientUsage{minuteStart: now, hourStart: now, dayStart: now}
		rl.clients[clientID] = usage
	}
	usage.rollWindows(now)

	if err := rl.check(usage, dataSize, now); err != nil {
		return err
	}

	usage.minuteRequests++
	usage.hourRequests++
	usage.dayRequests++
	usage.dayData += dataSize
	return nil
}

func (u *clientUsage) rollWindows(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart = now
		u.minuteRequests = 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart = now
		u.hourRequests = 0
	}
	if now.Sub(u.dayStart) >= 24*time.Hour {
		u.dayStart = now
		u.dayRequests = 0
		u.dayData = 0
	}
}

func (rl *RateLimiter) check(u *clientUsage, dataSize int64, now time.Time) *LimitError {
	if rl.cfg.RequestsPerMinute > 0 && u.minuteRequests >= rl.cfg.RequestsPerMinute {
		return &LimitError{
			Type:       "minute",
			Limit:      int64(rl.cfg.RequestsPerMinute),
			RetryAfter: time.Minute - now.Sub(u.minuteStart),
		}
	}
	if rl.cfg.RequestsPerHour > 0 && u.hourRequests >= rl.cfg.RequestsPerHour {
		return &LimitError{
			Type:       "hour",
			Limit:      int64(rl.cfg.RequestsPerHour),
			RetryAfter: time.Hour - now.Sub(u.hourStart),
		}
	}
	if rl.cfg.MaxRequestsPerDay > 0 && u.dayRequests >= rl.cfg.MaxRequestsPerDay {
		return &LimitError{
			Type:       "day_requests",
			Limit:      int64(rl.cfg.MaxRequestsPerDay),
			RetryAfter: 24*time.Hour - now.Sub(u.dayStart),
		}
	}
	if rl.cfg.MaxDataPerDay > 0 && u.dayData+dataSize > rl.cfg.MaxDataPerDay {
		return &LimitError{
			Type:       "day_data",
			Limit:      rl.cfg.MaxDataPerDay,
			RetryAfter: 24*time.Hour - now.Sub(u.dayStart),
		}
	}
	return nil
}
