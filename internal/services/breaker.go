package services

import (
	"errors"
	"log"
	"sync"

	"github.com/sony/gobreaker/v2"

	"alfredoptarigan/resume-polisher/internal/config"
)

// BreakerSet keeps one circuit breaker per external operation. A nil or
// disabled set runs every call directly.
type BreakerSet struct {
	cfg      config.BreakerConfig
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

func NewBreakerSet(cfg config.BreakerConfig) *BreakerSet {
	return &BreakerSet{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
	}
}

func (b *BreakerSet) Execute(operation string, fn func() (string, error)) (string, error) {
	if b == nil || !b.cfg.Enabled {
		return fn()
	}
	return b.breaker(operation).Execute(fn)
}

func (b *BreakerSet) breaker(operation string) *gobreaker.CircuitBreaker[string] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[operation]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: b.cfg.HalfOpenMaxCalls,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= b.cfg.FailureRatio
		},
		// a rejected credential says nothing about the health of the remote side
		IsSuccessful: func(err error) bool {
			var cfgErr *ConfigError
			return err == nil || errors.As(err, &cfgErr)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("⚡ Circuit breaker %s: %s -> %s\n", name, from, to)
		},
	}

	cb := gobreaker.NewCircuitBreaker[string](settings)
	b.breakers[operation] = cb
	return cb
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
