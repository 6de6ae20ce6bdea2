package service

import (
	"context"
	"fmt"
	"strings"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"
	"mockbank/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueryServiceImpl implements ports.QueryService directly over the store.
type QueryServiceImpl struct {
	store ports.Store
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(store ports.Store) *QueryServiceImpl {
	return &QueryServiceImpl{store: store}
}

func (s *QueryServiceImpl) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

func (s *QueryServiceImpl) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	userID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, nil
	}
	acc, err := s.store.Accounts().GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get account: %w", err))
	}
	return acc, nil
}

func (s *QueryServiceImpl) GetAccountByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	acc, err := s.store.Accounts().GetByWalletID(ctx, strings.TrimSpace(walletID))
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get account by wallet: %w", err))
	}
	return acc, nil
}

// ListTransactions returns every transaction, newest first.
func (s *QueryServiceImpl) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.listTransactions(ctx, ports.TransactionListParams{})
}

// TransactionsForAccount returns the transactions touching the account's
// current wallet. Unknown users yield an empty list.
func (s *QueryServiceImpl) TransactionsForAccount(ctx context.Context, userID string) ([]domain.Transaction, error) {
	acc, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return []domain.Transaction{}, nil
	}
	return s.listTransactions(ctx, ports.TransactionListParams{WalletID: acc.WalletID})
}

func (s *QueryServiceImpl) TransactionsForWallet(ctx context.Context, walletID string) ([]domain.Transaction, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return []domain.Transaction{}, nil
	}
	return s.listTransactions(ctx, ports.TransactionListParams{WalletID: walletID})
}

// TotalSystemBalance sums every wallet balance.
func (s *QueryServiceImpl) TotalSystemBalance(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.store.Wallets().TotalBalance(ctx)
	if err != nil {
		return decimal.Zero, apperror.ErrStorageFailure(fmt.Errorf("total balance: %w", err))
	}
	return money.FromMinor(total), nil
}

func (s *QueryServiceImpl) listTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	txns, err := s.store.Transactions().List(ctx, params)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("list transactions: %w", err))
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return txns, nil
}
