package provider

import (
	"context"
	"strings"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/rs/zerolog/log"
)

// StatusMap maps provider status codes (case-insensitive) to outcomes.
type StatusMap map[string]domain.PaymentOutcome

// Resolve treats an unknown status as pending, so a status the provider
// introduces later never settles an order by accident.
func (m StatusMap) Resolve(ctx context.Context, provider, status string) domain.PaymentOutcome {
	if outcome, ok := m[strings.ToLower(strings.TrimSpace(status))]; ok {
		return outcome
	}

	log.Ctx(ctx).Warn().
		Str("component", "StatusMap").
		Str("provider", provider).
		Str("status", status).
		Msg("unknown provider status, treating as pending")
	return domain.PaymentOutcomePending
}
