package feed

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
	"github.com/ewilliams-labs/ecmcatalog/internal/metrics"
)

const breakerName = "catalogue-feed"

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("feed adapter: catalogue feed unavailable")

// Breaker trips after repeated feed failures so a dead upstream is not
// hammered on every sync tick.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[domain.Catalogue]
}

// BreakerSettings tunes the breaker. Zero values take the defaults:
// trip after 5 consecutive failures, probe again after 2 minutes.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
}

// NewBreaker builds the feed circuit breaker and registers its gauges.
func NewBreaker(s BreakerSettings) *Breaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 2 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[domain.Catalogue](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.Timeout,
		// Rejected documents mean the feed answered; only transport and
		// upstream failures count against it.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrInvalidArgument)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= s.ConsecutiveFailures
			if trip {
				logging.Warn().Uint32("failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
	return &Breaker{cb: cb}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(fn func() (domain.Catalogue, error)) (domain.Catalogue, error) {
	c, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return domain.Catalogue{}, errors.Join(ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return domain.Catalogue{}, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return c, nil
}

// State reports the breaker state as closed, half-open or open.
func (b *Breaker) State() string {
	return stateToString(b.cb.State())
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
