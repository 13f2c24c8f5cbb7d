package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds configuration for the provider circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of requests allowed in the half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached, after MinRequests.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns sensible defaults for the provider breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// stateToFloat maps gobreaker states to prometheus gauge values.
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

// BreakerProvider wraps a Provider's charges with circuit breaker protection.
// Declined charges count as successes: the provider answered.
type BreakerProvider struct {
	next    Provider
	breaker *gobreaker.CircuitBreaker[*ChargeResult]
	logger  *slog.Logger
}

// NewBreakerProvider wraps next. The breaker state is exported on reg as
// payment_provider_circuit_state.
func NewBreakerProvider(next Provider, cfg BreakerConfig, reg prometheus.Registerer, logger *slog.Logger) (*BreakerProvider, error) {
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "payment_provider_circuit_state",
		Help:        "Current state of the payment provider circuit breaker (0=closed, 1=half-open, 2=open)",
		ConstLabels: prometheus.Labels{"name": cfg.Name},
	})
	if reg != nil {
		if err := reg.Register(state); err != nil {
			return nil, fmt.Errorf("register breaker gauge: %w", err)
		}
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateToFloat(to))
		},
	}

	return &BreakerProvider{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*ChargeResult](settings),
		logger:  logger,
	}, nil
}

// Charge implements Provider.
func (b *BreakerProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	res, err := b.breaker.Execute(func() (*ChargeResult, error) {
		return b.next.Charge(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WarnContext(ctx, "payment provider circuit open",
			slog.String("reference", req.Reference),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, err
}

// Tokenize implements Provider. Tokenization is local and bypasses the
// breaker.
func (b *BreakerProvider) Tokenize(ctx context.Context, methodType string) (string, error) {
	return b.next.Tokenize(ctx, methodType)
}

// State returns the current state of the circuit breaker.
func (b *BreakerProvider) State() gobreaker.State {
	return b.breaker.State()
}
