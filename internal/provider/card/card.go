// Package card settles card payments through Midtrans Snap. The customer
// completes the charge in the browser with the returned token; the signed
// HTTP notification is the only authoritative outcome.
package card

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	circuitbreaker "github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/circuit-breaker"
	paymentgateway "github.com/alimikegami/digital-store/settlement-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	name             = "card"
	chargeCurrency   = "IDR"
	tokenLifetime    = 24 * time.Hour
	maxItemNameChars = 50
)

var schema = provider.FieldSchema{
	TransactionID: []string{"order_id"},
	Status:        []string{"transaction_status"},
	Amount:        []string{"gross_amount"},
	Currency:      []string{"currency"},
	ErrorMessage:  []string{"status_message"},
}

var statuses = provider.StatusMap{
	"settlement": domain.PaymentOutcomeSuccess,
	"capture":    domain.PaymentOutcomeSuccess,
	"deny":       domain.PaymentOutcomeFailure,
	"cancel":     domain.PaymentOutcomeFailure,
	"expire":     domain.PaymentOutcomeFailure,
	"failure":    domain.PaymentOutcomeFailure,
	"pending":    domain.PaymentOutcomePending,
	"authorize":  domain.PaymentOutcomePending,
}

type snapTransactor interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type Config struct {
	ServerKey  string
	Production bool
	Timeout    time.Duration
}

type Adapter struct {
	snap       snapTransactor
	serverKey  string
	timeout    time.Duration
	normalizer *currency.Normalizer
	cb         *gobreaker.CircuitBreaker[*snap.Response]
	now        func() time.Time
}

func New(conf Config, normalizer *currency.Normalizer) (*Adapter, error) {
	if conf.ServerKey == "" {
		return nil, fmt.Errorf("%s: MIDTRANS_SERVER_KEY is empty: %w", name, errs.ErrProviderMisconfigured)
	}

	return newAdapter(paymentgateway.CreateSnapClient(conf.ServerKey, conf.Production), conf, normalizer), nil
}

func newAdapter(client snapTransactor, conf Config, normalizer *currency.Normalizer) *Adapter {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Adapter{
		snap:       client,
		serverKey:  conf.ServerKey,
		timeout:    timeout,
		normalizer: normalizer,
		cb:         circuitbreaker.CreateCircuitBreaker[*snap.Response]("provider-card"),
		now:        time.Now,
	}
}

func (a *Adapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodCard
}

func (a *Adapter) CreateCharge(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	gross := a.normalizer.FromSettlement(ctx, req.Amount, chargeCurrency).Round(0).IntPart()

	itemName := req.ProductName
	if len(itemName) > maxItemNameChars {
		itemName = itemName[:maxItemNameChars]
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ProductID,
				Name:  itemName,
				Price: gross,
				Qty:   1,
			},
		},
		EnabledPayments: []snap.SnapPaymentType{snap.PaymentTypeCreditCard},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := circuitbreaker.Execute(a.cb, func() (*snap.Response, error) {
		return a.createTransaction(ctx, snapReq)
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CardCreateCharge").Str("order_id", req.OrderID).Msg("")
		return provider.ChargeResult{}, err
	}

	expiresAt := a.now().Add(tokenLifetime)
	return provider.ChargeResult{
		TransactionID: req.OrderID,
		Reference:     resp.Token,
		Instructions:  resp.RedirectURL,
		ExpiresAt:     &expiresAt,
	}, nil
}

type snapOutcome struct {
	resp *snap.Response
	err  *midtrans.Error
}

// createTransaction bounds the SDK call, which takes no context, by ctx.
func (a *Adapter) createTransaction(ctx context.Context, req *snap.Request) (*snap.Response, error) {
	done := make(chan snapOutcome, 1)
	go func() {
		resp, merr := a.snap.CreateTransaction(req)
		done <- snapOutcome{resp: resp, err: merr}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %v: %w", name, ctx.Err(), errs.ErrProviderUnavailable)
	case out := <-done:
		if out.err != nil {
			return nil, classify(out.err)
		}
		if out.resp == nil || out.resp.Token == "" {
			return nil, fmt.Errorf("%s: empty snap token: %w", name, errs.ErrProviderUnavailable)
		}
		return out.resp, nil
	}
}

func classify(merr *midtrans.Error) error {
	switch {
	case merr.StatusCode == http.StatusUnauthorized || merr.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", name, merr.Message, errs.ErrProviderMisconfigured)
	case merr.StatusCode == 0 || merr.StatusCode >= 500 || merr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %s: %w", name, merr.Message, errs.ErrProviderUnavailable)
	default:
		return fmt.Errorf("%s: %s: %w", name, merr.Message, errs.ErrProviderRejected)
	}
}

func (a *Adapter) ParseConfirmation(ctx context.Context, in provider.Inbound) (provider.Confirmation, error) {
	if len(in.Body) == 0 {
		return provider.Confirmation{}, fmt.Errorf("%w: %s notification has no body", errs.ErrMalformedPayload, name)
	}

	fields, err := provider.FlattenJSON(in.Body)
	if err != nil {
		return provider.Confirmation{}, err
	}

	if err := a.verifySignature(fields); err != nil {
		return provider.Confirmation{}, err
	}

	extracted, err := schema.Extract(fields)
	if err != nil {
		return provider.Confirmation{}, err
	}

	outcome := statuses.Resolve(ctx, name, extracted.Status)
	if extracted.Status == "capture" {
		switch fields["fraud_status"] {
		case "challenge":
			outcome = domain.PaymentOutcomePending
		case "deny":
			outcome = domain.PaymentOutcomeFailure
		}
	}

	cur := extracted.Currency
	if cur == "" {
		cur = chargeCurrency
	}

	return provider.Confirmation{
		TransactionID: extracted.TransactionID,
		Outcome:       outcome,
		Amount:        extracted.Amount,
		Currency:      cur,
		ErrorMessage:  failureMessage(outcome, extracted),
		RawStatus:     extracted.Status,
		Trusted:       true,
	}, nil
}

// verifySignature checks signature_key = SHA512(order_id + status_code +
// gross_amount + server key).
func (a *Adapter) verifySignature(fields provider.Fields) error {
	got := fields["signature_key"]
	if got == "" {
		return fmt.Errorf("%w: %s notification is not signed", errs.ErrInvalidSignature, name)
	}

	want := Signature(fields["order_id"], fields["status_code"], fields["gross_amount"], a.serverKey)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return errs.ErrInvalidSignature
	}

	return nil
}

func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify is not offered: the signed notification is authoritative for card
// payments.
func (a *Adapter) Verify(ctx context.Context, transactionID string) (provider.Confirmation, error) {
	return provider.Confirmation{}, fmt.Errorf("%s: %w", name, errs.ErrVerificationNotSupported)
}

func failureMessage(outcome domain.PaymentOutcome, extracted provider.Extracted) string {
	if outcome != domain.PaymentOutcomeFailure {
		return ""
	}
	if extracted.ErrorMessage != "" {
		return extracted.ErrorMessage
	}
	return "card payment " + extracted.Status
}
