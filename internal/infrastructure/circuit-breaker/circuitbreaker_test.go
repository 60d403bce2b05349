package circuitbreaker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/stretchr/testify/assert"
)

func TestExecute_OpensOnTransientFailures(t *testing.T) {
	cb := CreateCircuitBreaker[string]("test")
	unavailable := func() (string, error) {
		return "", fmt.Errorf("timeout: %w", errs.ErrProviderUnavailable)
	}

	for i := 0; i < 3; i++ {
		_, err := Execute(cb, unavailable)
		assert.ErrorIs(t, err, errs.ErrProviderUnavailable)
	}

	calls := 0
	_, err := Execute(cb, func() (string, error) {
		calls++
		return "ok", nil
	})
	assert.ErrorIs(t, err, errs.ErrProviderUnavailable)
	assert.Zero(t, calls, "open breaker must not call the provider")
}

func TestExecute_RejectionsDoNotTrip(t *testing.T) {
	cb := CreateCircuitBreaker[string]("test")

	for i := 0; i < 5; i++ {
		_, err := Execute(cb, func() (string, error) {
			return "", errs.ErrProviderRejected
		})
		assert.True(t, errors.Is(err, errs.ErrProviderRejected))
	}

	res, err := Execute(cb, func() (string, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, "ok", res)
}
