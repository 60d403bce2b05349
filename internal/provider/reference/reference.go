// Package reference issues payment references the customer pays at an ATM
// or through home banking. The provider only reports payments by webhook and
// has no status endpoint.
package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	circuitbreaker "github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/circuit-breaker"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/alimikegami/digital-store/settlement-service/pkg/httpclient"
	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	name             = "reference"
	referenceTTL     = 24 * time.Hour
	defaultEntityTag = "entity"
)

var schema = provider.FieldSchema{
	TransactionID: []string{"reference_id", "referenceId", "transaction_id", "transactionId", "id", "data.reference_id", "data.id"},
	Status:        []string{"status", "payment_status", "data.status"},
	Amount:        []string{"amount", "paid_amount", "data.amount"},
	Currency:      []string{"currency", "data.currency"},
	ErrorMessage:  []string{"error_message", "message", "data.error_message"},
}

var statuses = provider.StatusMap{
	"paid":      domain.PaymentOutcomeSuccess,
	"completed": domain.PaymentOutcomeSuccess,
	"success":   domain.PaymentOutcomeSuccess,
	"expired":   domain.PaymentOutcomeFailure,
	"cancelled": domain.PaymentOutcomeFailure,
	"canceled":  domain.PaymentOutcomeFailure,
	"failed":    domain.PaymentOutcomeFailure,
	"active":    domain.PaymentOutcomePending,
	"pending":   domain.PaymentOutcomePending,
	"created":   domain.PaymentOutcomePending,
}

type Config struct {
	BaseURL       string
	APIKey        string
	EntityID      string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type Adapter struct {
	conf       Config
	client     *httpclient.Client
	normalizer *currency.Normalizer
	cb         *gobreaker.CircuitBreaker[[]byte]
	now        func() time.Time
}

func New(conf Config, normalizer *currency.Normalizer) (*Adapter, error) {
	if conf.BaseURL == "" || conf.APIKey == "" || conf.EntityID == "" {
		return nil, fmt.Errorf("%s: REFERENCE_BASE_URL, REFERENCE_API_KEY and REFERENCE_ENTITY_ID are required: %w", name, errs.ErrProviderMisconfigured)
	}
	if conf.Currency == "" {
		conf.Currency = normalizer.SettlementCurrency()
	}
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")

	return &Adapter{
		conf:       conf,
		client:     httpclient.CreateClient(conf.Timeout),
		normalizer: normalizer,
		cb:         circuitbreaker.CreateCircuitBreaker[[]byte]("provider-reference"),
		now:        time.Now,
	}, nil
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodReference
}

type referenceRequest struct {
	EntityID          string `json:"entity_id"`
	MerchantReference string `json:"merchant_reference"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	ExpiresAt         string `json:"expires_at"`
	Description       string `json:"description"`
}

func (a *Adapter) CreateCharge(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	expiresAt := a.now().Add(referenceTTL).Truncate(time.Second)

	// the provider expects local wall-clock time, not UTC
	localExpiry, err := utils.ConvertUnixTimestampToLocalDateTime(expiresAt.Unix())
	if err != nil {
		return provider.ChargeResult{}, err
	}

	amount := a.normalizer.FromSettlement(ctx, req.Amount, a.conf.Currency).StringFixed(2)
	payload, err := json.Marshal(referenceRequest{
		EntityID:          a.conf.EntityID,
		MerchantReference: req.OrderID,
		Amount:            amount,
		Currency:          a.conf.Currency,
		ExpiresAt:         localExpiry,
		Description:       req.ProductName,
	})
	if err != nil {
		return provider.ChargeResult{}, err
	}

	body, err := circuitbreaker.Execute(a.cb, func() ([]byte, error) {
		status, body, err := a.client.SendRequest(ctx, httpclient.HttpRequest{
			URL:    a.conf.BaseURL + "/v1/references",
			Method: http.MethodPost,
			Body:   payload,
			Headers: map[string]string{
				"Authorization": "Bearer " + a.conf.APIKey,
				"Content-Type":  "application/json",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", name, err, errs.ErrProviderUnavailable)
		}
		if err := provider.StatusError(name, status, body); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "ReferenceCreateCharge").Str("order_id", req.OrderID).Msg("")
		return provider.ChargeResult{}, err
	}

	fields, err := provider.FlattenJSON(body)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("%s: reference response: %v: %w", name, err, errs.ErrProviderUnavailable)
	}

	txID, ok := fields.Lookup(schema.TransactionID)
	if !ok {
		return provider.ChargeResult{}, fmt.Errorf("%s: reference response has no reference id: %w", name, errs.ErrProviderUnavailable)
	}
	number, ok := fields.Lookup([]string{"reference", "reference_number", "data.reference"})
	if !ok {
		return provider.ChargeResult{}, fmt.Errorf("%s: reference response has no payment reference: %w", name, errs.ErrProviderUnavailable)
	}
	entity, ok := fields.Lookup([]string{defaultEntityTag, "entity_id", "data.entity"})
	if !ok {
		entity = a.conf.EntityID
	}

	until, err := utils.ConvertDateTimeToHumanReadableFormat(expiresAt.Unix())
	if err != nil {
		return provider.ChargeResult{}, err
	}

	return provider.ChargeResult{
		TransactionID: txID,
		Reference:     number,
		Instructions:  fmt.Sprintf("Pay %s %s at any ATM or through home banking using entity %s and reference %s before %s.", amount, a.conf.Currency, entity, number, until),
		ExpiresAt:     &expiresAt,
	}, nil
}

func (a *Adapter) ParseConfirmation(ctx context.Context, in provider.Inbound) (provider.Confirmation, error) {
	if len(in.Body) == 0 {
		return provider.Confirmation{}, fmt.Errorf("%s: only webhook deliveries are accepted: %w", name, errs.ErrMalformedPayload)
	}

	if a.conf.WebhookSecret != "" {
		if err := provider.VerifyHMAC(a.conf.WebhookSecret, in.Body, in.Header.Get(provider.SignatureHeader)); err != nil {
			return provider.Confirmation{}, err
		}
	}

	fields, err := provider.FlattenJSON(in.Body)
	if err != nil {
		return provider.Confirmation{}, err
	}

	extracted, err := schema.Extract(fields)
	if err != nil {
		return provider.Confirmation{}, err
	}

	outcome := statuses.Resolve(ctx, name, extracted.Status)
	cur := extracted.Currency
	if cur == "" {
		cur = a.conf.Currency
	}

	conf := provider.Confirmation{
		TransactionID: extracted.TransactionID,
		Outcome:       outcome,
		Amount:        extracted.Amount,
		Currency:      cur,
		RawStatus:     extracted.Status,
		Trusted:       true,
	}
	if outcome == domain.PaymentOutcomeFailure {
		conf.ErrorMessage = extracted.ErrorMessage
		if conf.ErrorMessage == "" {
			conf.ErrorMessage = "payment reference " + strings.ToLower(extracted.Status)
		}
	}

	return conf, nil
}

func (a *Adapter) Verify(ctx context.Context, transactionID string) (provider.Confirmation, error) {
	return provider.Confirmation{}, fmt.Errorf("%s: reference %s: %w", name, transactionID, errs.ErrCannotAutoVerify)
}
