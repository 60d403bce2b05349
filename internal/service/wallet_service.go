package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type WalletServiceImpl struct {
	repository repository.WalletRepository
	currency   string
	now        func() time.Time
}

func CreateWalletService(repository repository.WalletRepository, settlementCurrency string) WalletService {
	return &WalletServiceImpl{
		repository: repository,
		currency:   settlementCurrency,
		now:        time.Now,
	}
}

func validateEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: a valid email is required", errs.ErrClient)
	}
	return email, nil
}

// Register opens a zero balance wallet. A second registration for the same
// email returns ErrAlreadyExists.
func (s *WalletServiceImpl) Register(ctx context.Context, email string) (resp dto.WalletResponse, err error) {
	email, err = validateEmail(email)
	if err != nil {
		return
	}

	now := s.now().Unix()
	err = s.repository.AddWallet(ctx, domain.WalletAccount{
		Email:     email,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return
	}

	return dto.WalletResponse{Email: email, Balance: decimal.Zero, Currency: s.currency}, nil
}

func (s *WalletServiceImpl) GetBalance(ctx context.Context, email string) (resp dto.WalletResponse, err error) {
	email, err = validateEmail(email)
	if err != nil {
		return
	}

	account, err := s.repository.GetWalletByEmail(ctx, email)
	if err != nil {
		return
	}
	if account == nil {
		return resp, fmt.Errorf("wallet %s: %w", email, errs.ErrWalletNotRegistered)
	}

	return dto.WalletResponse{Email: account.Email, Balance: account.Balance, Currency: s.currency}, nil
}

// Debit journals the movement and decrements the balance in one transaction.
// The journal is unique per reference, so repeating a debit for the same
// reference returns ErrDuplicateDebit without charging twice.
func (s *WalletServiceImpl) Debit(ctx context.Context, email string, amount decimal.Decimal, description, reference string) (err error) {
	email, err = validateEmail(email)
	if err != nil {
		return
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit amount must be positive", errs.ErrClient)
	}
	if reference == "" {
		return fmt.Errorf("%w: debit reference is required", errs.ErrClient)
	}

	now := s.now()
	err = s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.WalletRepository) error {
		if err := repo.AddTransaction(ctx, domain.WalletTransaction{
			ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
			Email:       email,
			Kind:        domain.WalletTransactionDebit,
			Amount:      amount,
			Description: description,
			Reference:   reference,
			CreatedAt:   now.Unix(),
		}); err != nil {
			return err
		}

		return repo.DecrementBalance(ctx, email, amount, now.Unix())
	})
	if err != nil {
		if !errors.Is(err, errs.ErrInsufficientFunds) && !errors.Is(err, errs.ErrDuplicateDebit) {
			log.Ctx(ctx).Error().Err(err).Str("component", "WalletDebit").Str("reference", reference).Msg("")
		}
		return
	}

	log.Ctx(ctx).Info().Str("component", "WalletDebit").Str("email", email).Str("amount", amount.StringFixed(2)).Str("reference", reference).Msg("wallet debited")
	return nil
}

func (s *WalletServiceImpl) Credit(ctx context.Context, req dto.WalletCreditRequest) (resp dto.WalletResponse, err error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return
	}
	if !req.Amount.IsPositive() {
		return resp, fmt.Errorf("%w: credit amount must be positive", errs.ErrClient)
	}

	now := s.now()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	reference := req.Reference
	if reference == "" {
		reference = id
	}

	err = s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.WalletRepository) error {
		if err := repo.AddTransaction(ctx, domain.WalletTransaction{
			ID:          id,
			Email:       email,
			Kind:        domain.WalletTransactionCredit,
			Amount:      req.Amount.Round(2),
			Description: req.Description,
			Reference:   reference,
			CreatedAt:   now.Unix(),
		}); err != nil {
			return err
		}

		return repo.IncrementBalance(ctx, email, req.Amount.Round(2), now.Unix())
	})
	if err != nil {
		return
	}

	return s.GetBalance(ctx, email)
}

func (s *WalletServiceImpl) GetTransactions(ctx context.Context, email string, limit int) (resp []dto.WalletTransactionResponse, err error) {
	email, err = validateEmail(email)
	if err != nil {
		return
	}

	datas, err := s.repository.GetTransactions(ctx, email, limit)
	if err != nil {
		return
	}

	resp = make([]dto.WalletTransactionResponse, 0, len(datas))
	for _, data := range datas {
		resp = append(resp, dto.WalletTransactionResponse{
			ID:          data.ID,
			Kind:        string(data.Kind),
			Amount:      data.Amount,
			Description: data.Description,
			Reference:   data.Reference,
			CreatedAt:   data.CreatedAt,
		})
	}

	return
}
