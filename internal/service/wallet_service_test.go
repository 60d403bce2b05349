package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/internal/testutil"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWalletService(t *testing.T) *WalletServiceImpl {
	svc := CreateWalletService(repository.CreateWalletRepository(testutil.NewDB(t)), "AOA").(*WalletServiceImpl)
	svc.now = testutil.NewClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)).Now
	return svc
}

func TestWalletService_RegisterAndCredit(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(t)

	resp, err := svc.Register(ctx, " Ana@Example.AO")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.ao", resp.Email)
	assert.True(t, resp.Balance.IsZero())

	_, err = svc.Register(ctx, "ana@example.ao")
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	_, err = svc.Register(ctx, "not-an-email")
	assert.ErrorIs(t, err, errs.ErrClient)

	resp, err = svc.Credit(ctx, dto.WalletCreditRequest{Email: "ana@example.ao", Amount: decimal.NewFromInt(2500), Description: "top-up", Reference: "topup-1"})
	require.NoError(t, err)
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(2500)))

	_, err = svc.Credit(ctx, dto.WalletCreditRequest{Email: "ana@example.ao", Amount: decimal.NewFromInt(2500), Reference: "topup-1"})
	assert.ErrorIs(t, err, errs.ErrDuplicateCredit)

	_, err = svc.Credit(ctx, dto.WalletCreditRequest{Email: "ana@example.ao", Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, errs.ErrClient)

	_, err = svc.Credit(ctx, dto.WalletCreditRequest{Email: "rui@example.ao", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, errs.ErrWalletNotRegistered)
}

func TestWalletService_Debit(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(t)

	_, err := svc.Register(ctx, "ana@example.ao")
	require.NoError(t, err)
	_, err = svc.Credit(ctx, dto.WalletCreditRequest{Email: "ana@example.ao", Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	err = svc.Debit(ctx, "ana@example.ao", decimal.NewFromInt(1500), "order o-1", "o-1")
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)

	require.NoError(t, svc.Debit(ctx, "ana@example.ao", decimal.NewFromInt(400), "order o-1", "o-1"))

	err = svc.Debit(ctx, "ana@example.ao", decimal.NewFromInt(400), "order o-1", "o-1")
	assert.ErrorIs(t, err, errs.ErrDuplicateDebit)

	err = svc.Debit(ctx, "ana@example.ao", decimal.Zero, "order o-2", "o-2")
	assert.ErrorIs(t, err, errs.ErrClient)

	err = svc.Debit(ctx, "ana@example.ao", decimal.NewFromInt(1), "no reference", "")
	assert.ErrorIs(t, err, errs.ErrClient)

	err = svc.Debit(ctx, "rui@example.ao", decimal.NewFromInt(1), "order o-3", "o-3")
	assert.ErrorIs(t, err, errs.ErrWalletNotRegistered)

	resp, err := svc.GetBalance(ctx, "ana@example.ao")
	require.NoError(t, err)
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(600)), "balance %s", resp.Balance)

	txs, err := svc.GetTransactions(ctx, "ana@example.ao", 10)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	_, err = svc.GetBalance(ctx, "rui@example.ao")
	assert.ErrorIs(t, err, errs.ErrWalletNotRegistered)
}

func TestKafkaEventPublisher_RetriesTransientFailures(t *testing.T) {
	writer := &flakyWriter{failures: 2}
	publisher := CreateKafkaEventPublisher(writer).(*KafkaEventPublisher)
	publisher.backoff = time.Millisecond

	err := publisher.Publish(context.Background(), "order-1", dto.KafkaMessage{EventType: dto.EventPurchaseCompleted, Data: dto.PurchaseCompletedEvent{OrderID: "order-1"}})
	require.NoError(t, err)

	assert.Equal(t, 3, writer.calls)
	require.Len(t, writer.written, 1)
	assert.Equal(t, "order-1", string(writer.written[0].Key))

	var msg struct {
		EventType string                     `json:"event_type"`
		Data      dto.PurchaseCompletedEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(writer.written[0].Value, &msg))
	assert.Equal(t, dto.EventPurchaseCompleted, msg.EventType)
	assert.Equal(t, "order-1", msg.Data.OrderID)
}

func TestKafkaEventPublisher_GivesUp(t *testing.T) {
	writer := &flakyWriter{failures: 10}
	publisher := CreateKafkaEventPublisher(writer).(*KafkaEventPublisher)
	publisher.backoff = time.Millisecond

	err := publisher.Publish(context.Background(), "order-1", dto.KafkaMessage{EventType: dto.EventSellerSale})
	assert.Error(t, err)
	assert.Equal(t, publishMaxRetries, writer.calls)
	assert.Empty(t, writer.written)
}
