// Package express settles mobile-money charges that the customer approves on
// their phone. Outcomes arrive by signed webhook, by an unsigned browser
// callback, or by polling the charge.
package express

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	circuitbreaker "github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/circuit-breaker"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/alimikegami/digital-store/settlement-service/pkg/httpclient"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const name = "express"

var schema = provider.FieldSchema{
	TransactionID: []string{"transactionId", "transaction_id", "reference", "id", "data.transaction_id", "data.id"},
	Status:        []string{"status", "transaction_status", "data.status"},
	Amount:        []string{"amount", "data.amount"},
	Currency:      []string{"currency", "data.currency"},
	ErrorMessage:  []string{"error_message", "message", "data.error_message"},
}

var statuses = provider.StatusMap{
	"success":    domain.PaymentOutcomeSuccess,
	"successful": domain.PaymentOutcomeSuccess,
	"completed":  domain.PaymentOutcomeSuccess,
	"paid":       domain.PaymentOutcomeSuccess,
	"approved":   domain.PaymentOutcomeSuccess,
	"failed":     domain.PaymentOutcomeFailure,
	"rejected":   domain.PaymentOutcomeFailure,
	"declined":   domain.PaymentOutcomeFailure,
	"cancelled":  domain.PaymentOutcomeFailure,
	"canceled":   domain.PaymentOutcomeFailure,
	"expired":    domain.PaymentOutcomeFailure,
	"pending":    domain.PaymentOutcomePending,
	"processing": domain.PaymentOutcomePending,
	"created":    domain.PaymentOutcomePending,
	"waiting":    domain.PaymentOutcomePending,
}

type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type apiResponse struct {
	status int
	body   []byte
}

type Adapter struct {
	conf       Config
	client     *httpclient.Client
	normalizer *currency.Normalizer
	cb         *gobreaker.CircuitBreaker[apiResponse]
}

func New(conf Config, normalizer *currency.Normalizer) (*Adapter, error) {
	if conf.BaseURL == "" || conf.APIKey == "" {
		return nil, fmt.Errorf("%s: EXPRESS_BASE_URL and EXPRESS_API_KEY are required: %w", name, errs.ErrProviderMisconfigured)
	}
	if conf.Currency == "" {
		conf.Currency = normalizer.SettlementCurrency()
	}
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")

	return &Adapter{
		conf:       conf,
		client:     httpclient.CreateClient(conf.Timeout),
		normalizer: normalizer,
		cb:         circuitbreaker.CreateCircuitBreaker[apiResponse]("provider-express"),
	}, nil
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodExpress
}

type chargeRequest struct {
	MerchantReference string `json:"merchant_reference"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	PhoneNumber       string `json:"phone_number"`
	Description       string `json:"description"`
}

func (a *Adapter) CreateCharge(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return provider.ChargeResult{}, fmt.Errorf("%s: customer phone is required: %w", name, errs.ErrClient)
	}

	payload, err := json.Marshal(chargeRequest{
		MerchantReference: req.OrderID,
		Amount:            a.normalizer.FromSettlement(ctx, req.Amount, a.conf.Currency).StringFixed(2),
		Currency:          a.conf.Currency,
		PhoneNumber:       req.CustomerPhone,
		Description:       req.ProductName,
	})
	if err != nil {
		return provider.ChargeResult{}, err
	}

	resp, err := a.call(ctx, http.MethodPost, "/v1/charges", payload)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "ExpressCreateCharge").Str("order_id", req.OrderID).Msg("")
		return provider.ChargeResult{}, err
	}

	fields, err := provider.FlattenJSON(resp.body)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("%s: charge response: %v: %w", name, err, errs.ErrProviderUnavailable)
	}

	txID, ok := fields.Lookup(schema.TransactionID)
	if !ok {
		return provider.ChargeResult{}, fmt.Errorf("%s: charge response has no transaction id: %w", name, errs.ErrProviderUnavailable)
	}

	result := provider.ChargeResult{
		TransactionID: txID,
		Reference:     txID,
		Instructions:  fmt.Sprintf("Approve the payment request sent to %s on your phone.", req.CustomerPhone),
	}
	if raw, ok := fields.Lookup([]string{"expires_at", "expiry", "data.expires_at"}); ok {
		if expiresAt, err := time.Parse(time.RFC3339, raw); err == nil {
			result.ExpiresAt = &expiresAt
		}
	}

	return result, nil
}

// ParseConfirmation accepts the JSON webhook and the query-string callback.
// Only a webhook checked against the configured secret comes back trusted.
func (a *Adapter) ParseConfirmation(ctx context.Context, in provider.Inbound) (provider.Confirmation, error) {
	var (
		fields  provider.Fields
		trusted bool
		err     error
	)

	if len(in.Body) > 0 {
		if a.conf.WebhookSecret != "" {
			if err := provider.VerifyHMAC(a.conf.WebhookSecret, in.Body, in.Header.Get(provider.SignatureHeader)); err != nil {
				return provider.Confirmation{}, err
			}
		}
		fields, err = provider.FlattenJSON(in.Body)
		if err != nil {
			return provider.Confirmation{}, err
		}
		trusted = a.conf.WebhookSecret != ""
	} else {
		fields = provider.FlattenQuery(in.Query)
	}

	extracted, err := schema.Extract(fields)
	if err != nil {
		return provider.Confirmation{}, err
	}

	return a.confirmation(ctx, extracted, trusted), nil
}

func (a *Adapter) Verify(ctx context.Context, transactionID string) (provider.Confirmation, error) {
	resp, err := a.call(ctx, http.MethodGet, "/v1/charges/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return provider.Confirmation{}, err
	}

	fields, err := provider.FlattenJSON(resp.body)
	if err != nil {
		return provider.Confirmation{}, fmt.Errorf("%s: status response: %v: %w", name, err, errs.ErrProviderUnavailable)
	}

	extracted, err := schema.Extract(fields)
	if err != nil {
		return provider.Confirmation{}, fmt.Errorf("%s: status response: %v: %w", name, err, errs.ErrProviderUnavailable)
	}

	return a.confirmation(ctx, extracted, true), nil
}

func (a *Adapter) confirmation(ctx context.Context, extracted provider.Extracted, trusted bool) provider.Confirmation {
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
		Trusted:       trusted,
	}
	if outcome == domain.PaymentOutcomeFailure {
		conf.ErrorMessage = extracted.ErrorMessage
		if conf.ErrorMessage == "" {
			conf.ErrorMessage = "mobile money payment " + strings.ToLower(extracted.Status)
		}
	}

	return conf
}

func (a *Adapter) call(ctx context.Context, method, path string, body []byte) (apiResponse, error) {
	return circuitbreaker.Execute(a.cb, func() (apiResponse, error) {
		status, respBody, err := a.client.SendRequest(ctx, httpclient.HttpRequest{
			URL:    a.conf.BaseURL + path,
			Method: method,
			Body:   body,
			Headers: map[string]string{
				"Authorization": "Bearer " + a.conf.APIKey,
				"Content-Type":  "application/json",
				"Accept":        "application/json",
			},
		})
		if err != nil {
			return apiResponse{}, fmt.Errorf("%s: %v: %w", name, err, errs.ErrProviderUnavailable)
		}
		if err := provider.StatusError(name, status, respBody); err != nil {
			return apiResponse{}, err
		}
		return apiResponse{status: status, body: respBody}, nil
	})
}
