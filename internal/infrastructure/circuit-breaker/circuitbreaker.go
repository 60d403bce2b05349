package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

func CreateCircuitBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	var st gobreaker.Settings
	st.Name = name
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}
	// only transient provider failures count against the breaker; a
	// rejected charge means the provider is healthy
	st.IsSuccessful = func(err error) bool {
		return err == nil || !errors.Is(err, errs.ErrProviderUnavailable)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("component", "CircuitBreaker").Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("state changed")
	}

	cb := gobreaker.NewCircuitBreaker[T](st)

	return cb
}

// Execute runs fn through cb and reports an open breaker as
// ErrProviderUnavailable.
func Execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, fmt.Errorf("%s: %v: %w", cb.Name(), err, errs.ErrProviderUnavailable)
	}
	return res, err
}
