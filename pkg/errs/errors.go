package errs

import (
	"errors"
	"net/http"
)

const (
	ErrStatusInternalServer    = http.StatusInternalServerError
	ErrStatusClient            = http.StatusBadRequest
	ErrStatusNotLoggedIn       = http.StatusUnauthorized
	ErrStatusNoPermission      = http.StatusForbidden
	ErrStatusNotFound          = http.StatusNotFound
	ErrStatusConflict          = http.StatusConflict
	ErrStatusPaymentRequired   = http.StatusPaymentRequired
	ErrStatusUnprocessable     = http.StatusUnprocessableEntity
	ErrStatusServiceUnavilable = http.StatusServiceUnavailable
)

var (
	ErrInternalServer = errors.New("Internal server error")
	ErrClient         = errors.New("Bad request")
	ErrNotLoggedIn    = errors.New("Unauthorized access")
	ErrUnauthorized   = errors.New("Forbidden access")
	ErrNotFound       = errors.New("Resource not found")
	ErrAlreadyExists  = errors.New("Resource already exists")
	ErrConflict       = errors.New("Conflicting record found")
	ErrPaymentExpired = errors.New("Payment for this order has expired")

	ErrMalformedPayload         = errors.New("Malformed confirmation payload")
	ErrInvalidSignature         = errors.New("Invalid payload signature")
	ErrUnsupportedPaymentMethod = errors.New("Unsupported payment method")
	ErrAmountMismatch           = errors.New("Payment amount does not match the order")

	ErrInsufficientFunds   = errors.New("Insufficient wallet balance")
	ErrWalletNotRegistered = errors.New("Wallet is not registered")
	ErrDuplicateDebit      = errors.New("Wallet debit already recorded for this reference")
	ErrDuplicateCredit     = errors.New("Balance credit already recorded for this order")

	ErrInconsistentState = errors.New("Order already reached a different terminal state")

	ErrProviderMisconfigured    = errors.New("Payment provider is not configured")
	ErrProviderRejected         = errors.New("Payment was rejected by the provider")
	ErrProviderUnavailable      = errors.New("Payment provider is temporarily unavailable")
	ErrCannotAutoVerify         = errors.New("Payment method cannot be verified automatically, manual confirmation required")
	ErrVerificationNotSupported = errors.New("Payment method is confirmed by provider webhook only")
)

type errorStatus struct {
	err    error
	status int
}

// checked in order, first errors.Is match wins
var errorMap = []errorStatus{
	{ErrInternalServer, ErrStatusInternalServer},
	{ErrClient, ErrStatusClient},
	{ErrNotLoggedIn, ErrStatusNotLoggedIn},
	{ErrUnauthorized, ErrStatusNoPermission},
	{ErrNotFound, ErrStatusNotFound},
	{ErrAlreadyExists, ErrStatusConflict},
	{ErrConflict, ErrStatusConflict},
	{ErrPaymentExpired, ErrStatusNoPermission},
	{ErrMalformedPayload, ErrStatusClient},
	{ErrInvalidSignature, ErrStatusNotLoggedIn},
	{ErrUnsupportedPaymentMethod, ErrStatusClient},
	{ErrAmountMismatch, ErrStatusClient},
	{ErrInsufficientFunds, ErrStatusPaymentRequired},
	{ErrWalletNotRegistered, ErrStatusNotFound},
	{ErrDuplicateDebit, ErrStatusConflict},
	{ErrDuplicateCredit, ErrStatusConflict},
	{ErrInconsistentState, ErrStatusConflict},
	{ErrProviderMisconfigured, ErrStatusInternalServer},
	{ErrProviderRejected, ErrStatusUnprocessable},
	{ErrProviderUnavailable, ErrStatusServiceUnavilable},
	{ErrCannotAutoVerify, ErrStatusUnprocessable},
	{ErrVerificationNotSupported, ErrStatusUnprocessable},
}

func lookup(err error) (errorStatus, bool) {
	for _, e := range errorMap {
		if errors.Is(err, e.err) {
			return e, true
		}
	}
	return errorStatus{}, false
}

func GetErrorStatusCode(err error) int {
	e, ok := lookup(err)
	if !ok {
		return ErrStatusInternalServer
	}
	return e.status
}

// PublicMessage returns the message of the sentinel err wraps, so wrapping
// context (provider responses, SQL errors) never reaches the caller. Server
// side failures collapse to a generic message.
func PublicMessage(err error) string {
	e, ok := lookup(err)
	if !ok || e.status == ErrStatusInternalServer {
		return ErrInternalServer.Error()
	}
	return e.err.Error()
}
