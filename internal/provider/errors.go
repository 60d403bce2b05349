package provider

import (
	"fmt"
	"net/http"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
)

var messageAliases = []string{"message", "error_message", "error.message", "error", "detail"}

// StatusError maps a non-2xx provider API response onto the error taxonomy:
// credential problems are configuration errors, throttling and 5xx are
// transient, other 4xx are rejections the customer should see.
func StatusError(provider string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	message := http.StatusText(status)
	if fields, err := FlattenJSON(body); err == nil {
		if m, ok := fields.Lookup(messageAliases); ok {
			message = m
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", provider, message, errs.ErrProviderMisconfigured)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s: status %d: %w", provider, status, errs.ErrProviderUnavailable)
	default:
		return fmt.Errorf("%s: %s: %w", provider, message, errs.ErrProviderRejected)
	}
}
