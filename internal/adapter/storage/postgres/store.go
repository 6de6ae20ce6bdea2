package postgres

import "mockbank/internal/core/ports"

// Store implements ports.Store on PostgreSQL.
type Store struct {
	*Transactor
	accounts     *AccountRepo
	wallets      *WalletRepo
	transactions *TransactionRepo
	deliveries   *DeliveryLogRepo
	audit        *AuditRepo
}

var _ ports.Store = (*Store)(nil)

// NewStore wires every repository to the same pool.
func NewStore(pool Pool) *Store {
	return &Store{
		Transactor:   NewTransactor(pool),
		accounts:     NewAccountRepo(pool),
		wallets:      NewWalletRepo(pool),
		transactions: NewTransactionRepo(pool),
		deliveries:   NewDeliveryLogRepo(pool),
		audit:        NewAuditRepo(pool),
	}
}

func (s *Store) Accounts() ports.AccountRepository         { return s.accounts }
func (s *Store) Wallets() ports.WalletRepository           { return s.wallets }
func (s *Store) Transactions() ports.TransactionRepository { return s.transactions }
func (s *Store) Deliveries() ports.DeliveryLogRepository   { return s.deliveries }
func (s *Store) Audit() ports.AuditRepository              { return s.audit }
