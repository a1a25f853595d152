// Package account provisions savings accounts and deposits. Deposits only
// add funds; crediting interest is the accrual engine's job.
package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/repository"
)

type AccountService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *AccountService {
	return &AccountService{storage: storage}
}

func (s *AccountService) CreateAccount(ctx context.Context, email string, name string) (models.Account, error) {
	return s.storage.Account().CreateAccount(ctx, email, name)
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().GetAccount(ctx, accountID)
}

func (s *AccountService) GetBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	return s.storage.Account().GetBalances(ctx, accountID, false)
}

// Deposit adds funds to one balance of the account, creating the balance on
// first use. Amounts must be positive and the savings type valid.
func (s *AccountService) Deposit(ctx context.Context, accountID uuid.UUID, key models.BalanceKey, amount, usdValue decimal.Decimal) (models.Balance, error) {
	if !key.SavingsType.Valid() {
		return models.Balance{}, errors.New("unknown savings type")
	}
	if !amount.IsPositive() || !usdValue.IsPositive() {
		return models.Balance{}, apperrors.ErrDepositNotPositive
	}

	var balance models.Balance
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		// Account must exist; Deposit's FK error reports the same but a
		// clean lookup keeps the sentinel error exact
		if _, err := st.Account().GetAccount(ctx, accountID); err != nil {
			return err
		}

		var err error
		balance, err = st.Account().Deposit(ctx, accountID, key, amount, usdValue)
		return err
	})

	return balance, err
}
