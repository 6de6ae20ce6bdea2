package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mockbank/internal/core/domain"
	"mockbank/internal/core/ports"
	"mockbank/pkg/apperror"
	"mockbank/pkg/money"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService. Every balance change and
// its transaction record commit in one unit of work; notification happens
// after commit and never affects the result.
type LedgerServiceImpl struct {
	store    ports.Store
	accounts ports.AccountService
	notifier ports.TransactionNotifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. notifier may be nil.
func NewLedgerService(
	store ports.Store,
	accounts ports.AccountService,
	notifier ports.TransactionNotifier,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		store:    store,
		accounts: accounts,
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
}

// Deposit credits amount to the wallet of userID.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (acc *domain.Account, err error) {
	timer := time.Now()
	defer func() { s.observe("deposit", timer, err) }()

	minor, err := toPositiveMinor(amount)
	if err != nil {
		return nil, err
	}

	acc, err = s.accounts.FindByInternalID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperror.ErrAccountNotFound(apperror.SideUser)
	}

	txn := domain.NewDeposit(acc.WalletID, minor, acc.Name, s.now())
	var balance int64

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		wallets, err := tx.LockWallets(ctx, []string{acc.WalletID})
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		w, ok := wallets[acc.WalletID]
		if !ok {
			return apperror.ErrAccountNotFound(apperror.SideUser)
		}

		balance, err = money.Sum(w.Balance, minor)
		if err != nil {
			return apperror.ErrInvalidAmountPrecision(err)
		}
		if err := tx.UpdateBalance(ctx, w.ID, balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		return insertCompleted(ctx, tx, txn)
	})
	if err != nil {
		return nil, s.fail(txn, err)
	}

	s.complete(txn)
	acc.Balance = balance
	return acc, nil
}

// Transfer moves amount between two accounts addressed by external reference
// or wallet id.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, fromRef, toRef string, amount decimal.Decimal) (txn *domain.Transaction, err error) {
	timer := time.Now()
	defer func() { s.observe("transfer", timer, err) }()

	minor, err := toPositiveMinor(amount)
	if err != nil {
		return nil, err
	}

	src, err := s.accounts.Resolve(ctx, fromRef)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, apperror.ErrAccountNotFound(apperror.SideSource)
	}

	dst, err := s.accounts.Resolve(ctx, toRef)
	if err != nil {
		return nil, err
	}
	if dst == nil {
		return nil, apperror.ErrAccountNotFound(apperror.SideDestination)
	}

	if src.WalletID == dst.WalletID {
		return nil, apperror.ErrSameAccount()
	}

	txn = domain.NewTransfer(src.WalletID, dst.WalletID, minor, src.Name, dst.Name, s.now())

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		wallets, err := tx.LockWallets(ctx, []string{src.WalletID, dst.WalletID})
		if err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}
		from, ok := wallets[src.WalletID]
		if !ok {
			return apperror.ErrAccountNotFound(apperror.SideSource)
		}
		to, ok := wallets[dst.WalletID]
		if !ok {
			return apperror.ErrAccountNotFound(apperror.SideDestination)
		}

		// Checked against the locked balance, not the one read during resolution.
		if !from.CanDebit(minor) {
			return apperror.ErrInsufficientFunds()
		}
		credited, err := money.Sum(to.Balance, minor)
		if err != nil {
			return apperror.ErrInvalidAmountPrecision(err)
		}

		if err := tx.UpdateBalance(ctx, from.ID, from.Balance-minor); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		if err := tx.UpdateBalance(ctx, to.ID, credited); err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
		return insertCompleted(ctx, tx, txn)
	})
	if err != nil {
		return nil, s.fail(txn, err)
	}

	s.complete(txn)
	return txn, nil
}

// insertCompleted persists a completed copy of txn. txn itself only moves to
// COMPLETED once the unit of work has committed.
func insertCompleted(ctx context.Context, tx ports.LedgerTx, txn *domain.Transaction) error {
	stored := *txn
	if err := stored.TransitionTo(domain.TransactionStatusCompleted); err != nil {
		return err
	}
	if err := tx.InsertTransaction(ctx, &stored); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *LedgerServiceImpl) complete(txn *domain.Transaction) {
	if err := txn.TransitionTo(domain.TransactionStatusCompleted); err != nil {
		s.log.Error().Err(err).Str("tx_id", txn.ID.String()).Msg("unexpected transaction state")
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("type", string(txn.Type)).
		Str("to_wallet_id", txn.ToWalletID).
		Str("amount", money.Format(txn.Amount)).
		Msg("ledger operation committed")

	if s.notifier != nil {
		s.notifier.Enqueue(txn)
	}
}

// fail marks txn FAILED and maps err to an AppError. Nothing was committed.
func (s *LedgerServiceImpl) fail(txn *domain.Transaction, err error) error {
	_ = txn.TransitionTo(domain.TransactionStatusFailed)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.ErrStorageFailure(err)
	}

	evt := s.log.Warn()
	if appErr.Kind == apperror.KindStorageFailure {
		evt = s.log.Error()
	}
	evt.Err(err).
		Str("tx_id", txn.ID.String()).
		Str("type", string(txn.Type)).
		Str("status", string(txn.Status)).
		Msg("ledger operation failed")

	return appErr
}

func (s *LedgerServiceImpl) observe(op string, start time.Time, err error) {
	ledgerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := outcomeCompleted
	if err != nil {
		outcome = outcomeFailed
		if kind := apperror.KindOf(err); kind != "" {
			outcome = strings.ToLower(string(kind))
		}
	}
	ledgerOperations.WithLabelValues(op, outcome).Inc()
}

func toPositiveMinor(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, apperror.ErrInvalidAmount()
	}
	minor, err := money.ToMinor(amount)
	if err != nil {
		return 0, apperror.ErrInvalidAmountPrecision(err)
	}
	return minor, nil
}
