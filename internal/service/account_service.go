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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletIDFunc derives the wallet id for a freshly generated external reference.
type WalletIDFunc func(ref string) string

// URIWalletIDs derives wallet ids as <baseURL>/<compact ref>.
func URIWalletIDs(baseURL string) WalletIDFunc {
	return func(ref string) string {
		return domain.WalletIDForRef(baseURL, ref)
	}
}

// RandomWalletIDs ignores the reference and returns opaque wallet-<random> ids.
func RandomWalletIDs() WalletIDFunc {
	return func(string) string {
		return domain.RandomWalletID()
	}
}

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	store       ports.Store
	refs        *domain.RefGenerator
	walletIDs   WalletIDFunc
	refAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl. refAttempts bounds how
// many fresh identifiers are tried when storage reports a collision.
func NewAccountService(
	store ports.Store,
	refs *domain.RefGenerator,
	walletIDs WalletIDFunc,
	refAttempts int,
	log zerolog.Logger,
) *AccountServiceImpl {
	if refAttempts < 1 {
		refAttempts = 1
	}
	return &AccountServiceImpl{
		store:       store,
		refs:        refs,
		walletIDs:   walletIDs,
		refAttempts: refAttempts,
		now:         time.Now,
		log:         log,
	}
}

// CreateAccount registers a user and an empty wallet in one unit of work.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, name, email string) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if email == "" {
		return nil, apperror.Validation("email is required")
	}

	existing, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("lookup email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateEmail()
	}

	var collision error
	for attempt := 1; attempt <= s.refAttempts; attempt++ {
		ref, err := s.refs.Generate()
		if err != nil {
			return nil, apperror.InternalError(err)
		}

		now := s.now().UTC()
		user := &domain.User{
			ID:          uuid.New(),
			Name:        name,
			Email:       email,
			ExternalRef: ref,
			WalletID:    s.walletIDs(ref),
			CreatedAt:   now,
		}
		wallet := &domain.Wallet{
			ID:        user.WalletID,
			UserID:    user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
			return tx.CreateAccount(ctx, user, wallet)
		})
		switch {
		case err == nil:
			s.log.Info().
				Str("user_id", user.ID.String()).
				Str("wallet_id", wallet.ID).
				Str("external_ref", ref).
				Msg("account created")
			return domain.NewAccount(user, wallet), nil
		case errors.Is(err, ports.ErrEmailTaken):
			return nil, apperror.ErrDuplicateEmail()
		case errors.Is(err, ports.ErrIdentifierTaken):
			collision = err
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("account identifier collision, regenerating")
		default:
			return nil, apperror.ErrStorageFailure(fmt.Errorf("create account: %w", err))
		}
	}

	return nil, apperror.ErrDuplicateAccount(collision)
}

// FindByInternalID looks an account up by user id. Malformed ids match nothing.
func (s *AccountServiceImpl) FindByInternalID(ctx context.Context, id string) (*domain.Account, error) {
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

func (s *AccountServiceImpl) FindByWalletID(ctx context.Context, walletID string) (*domain.Account, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, nil
	}
	acc, err := s.store.Accounts().GetByWalletID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get account by wallet: %w", err))
	}
	return acc, nil
}

// FindByExternalRef matches on the normalised reference, so spacing and case
// in the input do not matter.
func (s *AccountServiceImpl) FindByExternalRef(ctx context.Context, ref string) (*domain.Account, error) {
	canonical := domain.NormalizeRef(ref)
	if canonical == "" {
		return nil, nil
	}
	acc, err := s.store.Accounts().GetByExternalRef(ctx, canonical)
	if err != nil {
		return nil, apperror.ErrStorageFailure(fmt.Errorf("get account by reference: %w", err))
	}
	return acc, nil
}

// Resolve accepts an external reference, a wallet id, or either wrapped in a
// URI. URI forms are reduced to their trailing path segment first. A value
// shaped like a reference that matches no reference is tried as a wallet id.
func (s *AccountServiceImpl) Resolve(ctx context.Context, ref string) (*domain.Account, error) {
	raw := strings.TrimSpace(ref)
	candidate := domain.UnwrapRef(raw)
	if candidate == "" {
		return nil, nil
	}

	if domain.IsExternalRef(candidate) {
		acc, err := s.FindByExternalRef(ctx, candidate)
		if err != nil || acc != nil {
			return acc, err
		}
	}

	// Wallet ids may take any opaque shape, including one that reads like a
	// reference.
	acc, err := s.FindByWalletID(ctx, candidate)
	if err != nil || acc != nil {
		return acc, err
	}

	// A URI-style wallet id is stored whole.
	if candidate != raw {
		return s.FindByWalletID(ctx, raw)
	}
	return nil, nil
}

// RebindWalletID moves an account to a new wallet id. Transactions recorded
// under the old id keep it.
func (s *AccountServiceImpl) RebindWalletID(ctx context.Context, externalRef, newWalletID string) (*domain.Account, error) {
	newWalletID = strings.TrimSpace(newWalletID)
	if newWalletID == "" {
		return nil, apperror.Validation("new wallet id is required")
	}

	acc, err := s.FindByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperror.ErrAccountNotFound(apperror.SideUser)
	}
	if acc.WalletID == newWalletID {
		return acc, nil
	}

	oldWalletID := acc.WalletID
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		wallets, err := tx.LockWallets(ctx, []string{oldWalletID})
		if err != nil {
			return err
		}
		if _, ok := wallets[oldWalletID]; !ok {
			return ports.ErrWalletNotFound
		}
		return tx.RebindWallet(ctx, acc.UserID, oldWalletID, newWalletID)
	})
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrIdentifierTaken):
		return nil, apperror.ErrDuplicateAccount(err)
	case errors.Is(err, ports.ErrWalletNotFound):
		return nil, apperror.ErrAccountNotFound(apperror.SideUser)
	default:
		return nil, apperror.ErrStorageFailure(fmt.Errorf("rebind wallet: %w", err))
	}

	s.log.Info().
		Str("user_id", acc.UserID.String()).
		Str("old_wallet_id", oldWalletID).
		Str("new_wallet_id", newWalletID).
		Msg("wallet id rebound")

	updated, err := s.store.Accounts().GetByID(ctx, acc.UserID)
	if err != nil || updated == nil {
		acc.WalletID = newWalletID
		return acc, nil
	}
	return updated, nil
}
