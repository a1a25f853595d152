// Package ledger exposes read-only reporting over the payment ledger.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/repository"
)

type LedgerService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *LedgerService {
	return &LedgerService{storage: storage}
}

// TotalPlatformInterest is the sum of interest over every ledger entry ever
// written.
func (s *LedgerService) TotalPlatformInterest(ctx context.Context) (decimal.Decimal, error) {
	return s.storage.Ledger().TotalPlatformInterest(ctx)
}

// AccountHistory returns the account's accrual entries, most recent first.
func (s *LedgerService) AccountHistory(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	return s.storage.Ledger().ListByAccount(ctx, accountID)
}
