package monitoring

import (
	"github.com/sony/gobreaker"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

// CircuitBreakerExplorer wraps an explorer.IExplorer with circuit breaker
// functionality so a failing upstream cannot stall every poll loop.
type CircuitBreakerExplorer struct {
	wrapped        explorer.IExplorer
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *logger.Logger
}

// NewCircuitBreakerExplorer creates a new circuit breaker wrapper around the
// given explorer. The service name selects the breaker thresholds and is
// attached to state change logs.
func NewCircuitBreakerExplorer(wrapped explorer.IExplorer, service string, config CircuitBreakerConfig, logger *logger.Logger) *CircuitBreakerExplorer {
	cb := &CircuitBreakerExplorer{
		wrapped: wrapped,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	return cb
}

func (cb *CircuitBreakerExplorer) GetAddressBalance(address string) (int64, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.wrapped.GetAddressBalance(address)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (cb *CircuitBreakerExplorer) GetLatestTransaction(address string) (*explorer.TxInfo, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.wrapped.GetLatestTransaction(address)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*explorer.TxInfo), nil
}

func (cb *CircuitBreakerExplorer) GetTipHeight() (int64, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.wrapped.GetTipHeight()
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// State exposes the current breaker state for health reporting.
func (cb *CircuitBreakerExplorer) State() gobreaker.State {
	return cb.circuitBreaker.State()
}
