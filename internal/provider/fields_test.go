package provider

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = FieldSchema{
	TransactionID: []string{"transactionId", "transaction_id", "reference", "data.id"},
	Status:        []string{"status", "data.status"},
	Amount:        []string{"amount", "data.amount"},
	Currency:      []string{"currency"},
	ErrorMessage:  []string{"message"},
}

func TestFieldSchemaExtract_ProbesAliasesInOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"camel case", `{"transactionId":"a","transaction_id":"b","status":"paid"}`, "a"},
		{"snake case", `{"transaction_id":"b","status":"paid"}`, "b"},
		{"reference", `{"reference":"c","status":"paid"}`, "c"},
		{"nested", `{"data":{"id":"d","status":"paid"}}`, "d"},
		{"empty alias skipped", `{"transactionId":"","reference":"e","status":"paid"}`, "e"},
		{"numeric id", `{"transaction_id":12345678901234567,"status":"paid"}`, "12345678901234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := FlattenJSON([]byte(tt.body))
			require.NoError(t, err)

			got, err := testSchema.Extract(fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TransactionID)
			assert.Equal(t, "paid", got.Status)
		})
	}
}

func TestFieldSchemaExtract_FailsLoudly(t *testing.T) {
	fields, err := FlattenJSON([]byte(`{"id":"x","status":"paid"}`))
	require.NoError(t, err)

	_, err = testSchema.Extract(fields)
	assert.ErrorIs(t, err, errs.ErrMalformedPayload)
	assert.ErrorContains(t, err, "transactionId")

	fields, err = FlattenJSON([]byte(`{"reference":"x"}`))
	require.NoError(t, err)
	_, err = testSchema.Extract(fields)
	assert.ErrorIs(t, err, errs.ErrMalformedPayload)
	assert.ErrorContains(t, err, "status")

	fields, err = FlattenJSON([]byte(`{"reference":"x","status":"paid","amount":"abc"}`))
	require.NoError(t, err)
	_, err = testSchema.Extract(fields)
	assert.ErrorIs(t, err, errs.ErrMalformedPayload)

	_, err = FlattenJSON([]byte(`not json`))
	assert.ErrorIs(t, err, errs.ErrMalformedPayload)
}

func TestFieldSchemaExtract_OptionalFields(t *testing.T) {
	fields := FlattenQuery(url.Values{
		"reference": {"tx-9"},
		"status":    {"failed"},
		"amount":    {"59.90"},
		"currency":  {"USD"},
		"message":   {"declined by customer"},
	})

	got, err := testSchema.Extract(fields)
	require.NoError(t, err)
	assert.True(t, got.Amount.Valid)
	assert.True(t, got.Amount.Decimal.Equal(decimal.RequireFromString("59.90")))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "declined by customer", got.ErrorMessage)
}

func TestStatusMapResolve(t *testing.T) {
	m := StatusMap{
		"paid":   domain.PaymentOutcomeSuccess,
		"failed": domain.PaymentOutcomeFailure,
	}

	assert.Equal(t, domain.PaymentOutcomeSuccess, m.Resolve(context.Background(), "test", " PAID "))
	assert.Equal(t, domain.PaymentOutcomeFailure, m.Resolve(context.Background(), "test", "failed"))
	assert.Equal(t, domain.PaymentOutcomePending, m.Resolve(context.Background(), "test", "on_hold"))

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).With().Str("request_id", "req-7").Logger().WithContext(context.Background())
	assert.Equal(t, domain.PaymentOutcomePending, m.Resolve(ctx, "test", "on_hold"))
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), `"status":"on_hold"`)
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"reference":"x"}`)
	sig := SignHMAC("secret", body)

	assert.NoError(t, VerifyHMAC("secret", body, sig))
	assert.NoError(t, VerifyHMAC("secret", body, "sha256="+sig))
	assert.ErrorIs(t, VerifyHMAC("other", body, sig), errs.ErrInvalidSignature)
	assert.ErrorIs(t, VerifyHMAC("secret", body, ""), errs.ErrInvalidSignature)
	assert.ErrorIs(t, VerifyHMAC("secret", body, "zz"), errs.ErrInvalidSignature)
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, StatusError("p", http.StatusCreated, nil))
	assert.ErrorIs(t, StatusError("p", http.StatusUnauthorized, nil), errs.ErrProviderMisconfigured)
	assert.ErrorIs(t, StatusError("p", http.StatusBadGateway, nil), errs.ErrProviderUnavailable)
	assert.ErrorIs(t, StatusError("p", http.StatusTooManyRequests, nil), errs.ErrProviderUnavailable)

	err := StatusError("p", http.StatusUnprocessableEntity, []byte(`{"error":{"message":"invalid phone number"}}`))
	assert.ErrorIs(t, err, errs.ErrProviderRejected)
	assert.ErrorContains(t, err, "invalid phone number")
}
