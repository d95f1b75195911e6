// Package memory is an in-process implementation of the ledger storage ports.
// Units buffer their writes and validate wallet versions when they commit, so
// it follows the same optimistic rules as the SQL store.
package memory

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"sync"    // Store mutex

	"wallet_ledger/internal/domain" // Domain models and ports
)

type callerKey struct {
	caller uint   // Issuing account
	key    string // Client retry key
}

// Store is the committed state shared by every unit
type Store struct {
	mu       sync.RWMutex // Guards everything below
	currency string       // Currency of new wallets

	wallets   map[uint]domain.Wallet // by wallet id
	byAccount map[uint]uint          // account id -> wallet id
	nextWID   uint                   // Last wallet id

	txs    []domain.Transaction   // Append order
	txIDs  map[string]struct{}    // Unique transaction ids
	txKeys map[callerKey]struct{} // Unique (caller, key) pairs

	records map[callerKey]domain.IdempotencyRecord // Completed keyed requests

	users     map[uint]domain.User // by user id
	usernames map[string]uint      // username -> user id
	nextUID   uint                 // Last user id
}

// New returns an empty store
func New(currency string) *Store {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Store{
		currency:  currency,
		wallets:   make(map[uint]domain.Wallet),
		byAccount: make(map[uint]uint),
		txIDs:     make(map[string]struct{}),
		txKeys:    make(map[callerKey]struct{}),
		records:   make(map[callerKey]domain.IdempotencyRecord),
		users:     make(map[uint]domain.User),
		usernames: make(map[string]uint),
	}
}

// Atomic runs fn against a private write buffer and publishes it only if
// every wallet it touched is still at the version it read.
func (s *Store) Atomic(ctx context.Context, fn func(u domain.Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := newUnit(s)
	if err := fn(u); err != nil {
		return err
	}
	return s.commit(u)
}

// Wallets reads committed state; writes run as their own unit
func (s *Store) Wallets() domain.WalletStore { return &walletView{s: s} }

// Transactions reads the committed log; appends run as their own unit
func (s *Store) Transactions() domain.TransactionLog { return &transactionView{s: s} }

// Idempotency reads committed records; saves run as their own unit
func (s *Store) Idempotency() domain.IdempotencyRecords { return &recordView{s: s} }

// Users reads committed accounts; creates run as their own unit
func (s *Store) Users() domain.UserStore { return &userView{s: s} }

func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole write set before applying any of it
	for id, sw := range u.wallets {
		if sw.created {
			if _, ok := s.byAccount[sw.wallet.UserID]; ok {
				return fmt.Errorf("%w: wallet for account %d already exists", domain.ErrDuplicate, sw.wallet.UserID)
			}
			continue
		}
		current, ok := s.wallets[id]
		if !ok || current.Version != sw.base {
			return domain.ErrVersionMismatch
		}
	}
	for _, tx := range u.txs {
		if _, dup := s.txIDs[tx.ID]; dup {
			return fmt.Errorf("%w: transaction %s", domain.ErrDuplicate, tx.ID)
		}
		if tx.IdempotencyKey != nil {
			if _, dup := s.txKeys[callerKey{tx.CallerAccountID, *tx.IdempotencyKey}]; dup {
				return fmt.Errorf("%w: transaction key %q", domain.ErrDuplicate, *tx.IdempotencyKey)
			}
		}
	}
	for _, r := range u.records {
		if _, dup := s.records[callerKey{r.CallerAccountID, r.Key}]; dup {
			return fmt.Errorf("%w: idempotency key %q", domain.ErrDuplicate, r.Key)
		}
	}
	for _, usr := range u.users {
		if _, dup := s.usernames[usr.Username]; dup {
			return fmt.Errorf("%w: username %q", domain.ErrDuplicate, usr.Username)
		}
	}

	// Apply
	for _, usr := range u.users {
		s.users[usr.ID] = usr
		s.usernames[usr.Username] = usr.ID
	}
	for id, sw := range u.wallets {
		s.wallets[id] = sw.wallet
		s.byAccount[sw.wallet.UserID] = id
	}
	for _, tx := range u.txs {
		s.txs = append(s.txs, tx)
		s.txIDs[tx.ID] = struct{}{}
		if tx.IdempotencyKey != nil {
			s.txKeys[callerKey{tx.CallerAccountID, *tx.IdempotencyKey}] = struct{}{}
		}
	}
	for _, r := range u.records {
		s.records[callerKey{r.CallerAccountID, r.Key}] = r
	}
	return nil
}

// stagedWallet is a wallet written inside a unit
type stagedWallet struct {
	wallet  domain.Wallet // Working copy
	base    int64         // committed version when first touched
	created bool          // Created inside this unit
}

// unit is the write buffer of one Atomic call. It is used by a single goroutine.
type unit struct {
	s       *Store                     // Committed state
	wallets map[uint]*stagedWallet     // Touched wallets by id
	txs     []domain.Transaction       // Appended transactions
	records []domain.IdempotencyRecord // Saved records
	users   []domain.User              // Created users
}

func newUnit(s *Store) *unit {
	return &unit{s: s, wallets: make(map[uint]*stagedWallet)}
}

func (u *unit) Wallets() domain.WalletStore            { return &walletView{s: u.s, u: u} }
func (u *unit) Transactions() domain.TransactionLog    { return &transactionView{s: u.s, u: u} }
func (u *unit) Idempotency() domain.IdempotencyRecords { return &recordView{s: u.s, u: u} }
func (u *unit) Users() domain.UserStore                { return &userView{s: u.s, u: u} }
