package email

import (
	"context"
	"errors"
	"time"

	"github.com/CharlesToronto/brotherstudio/metrics"
	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrTemporarilyUnavailable is returned while the breaker is open
var ErrTemporarilyUnavailable = errors.New("email provider temporarily unavailable")

// BreakerConfig tunes the delivery circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "smtp",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}
}

// ResilientMailer stops hammering a failing SMTP provider. After
// FailureThreshold consecutive failures the breaker opens and submissions
// fail fast until Timeout elapses.
type ResilientMailer struct {
	next    Mailer
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewResilientMailer wraps next with a circuit breaker
func NewResilientMailer(next Mailer, cfg BreakerConfig) *ResilientMailer {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A disabled mailer or a cancelled request says nothing about
		// the provider's health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotConfigured) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &ResilientMailer{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// SendContact delivers through the breaker
func (m *ResilientMailer) SendContact(ctx context.Context, msg model.ContactMessage) error {
	_, err := m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.SendContact(ctx, msg)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrTemporarilyUnavailable
	}
	return err
}

// State returns the breaker state
func (m *ResilientMailer) State() gobreaker.State {
	return m.breaker.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
