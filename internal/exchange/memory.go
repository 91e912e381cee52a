package exchange

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkarasev/exchange-api/internal/model"
)

// MemoryStore is an in-memory Store used by tests.
// Each account carries its own mutex, so concurrent transactions against
// different accounts proceed independently while the check-then-debit on a
// single account is serialized.
type MemoryStore struct {
	mu          sync.RWMutex // guards the maps, not account state
	accounts    map[string]*memAccount
	instruments map[string]model.Instrument
}

type memAccount struct {
	mu      sync.Mutex
	balance decimal.Decimal
	ledger  []model.Transaction
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]*memAccount),
		instruments: make(map[string]model.Instrument),
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.Username]; ok {
		return ErrDuplicateAccount
	}
	s.accounts[acct.Username] = &memAccount{balance: acct.Balance}
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, username string) (model.Account, error) {
	s.mu.RLock()
	a, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.Account{Username: username, Balance: a.balance}, nil
}

func (s *MemoryStore) CreateInstrument(ctx context.Context, inst model.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instruments[inst.Ticker]; ok {
		return ErrDuplicateInstrument
	}
	s.instruments[inst.Ticker] = inst
	return nil
}

func (s *MemoryStore) GetInstrument(ctx context.Context, ticker string) (model.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[ticker]
	if !ok {
		return model.Instrument{}, ErrInstrumentNotFound
	}
	return inst, nil
}

func (s *MemoryStore) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Instrument, 0, len(s.instruments))
	for _, inst := range s.instruments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *MemoryStore) Apply(ctx context.Context, txn model.Transaction) error {
	s.mu.RLock()
	a, ok := s.accounts[txn.Account]
	s.mu.RUnlock()
	if !ok {
		return ErrAccountNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch txn.Kind {
	case model.KindBuy:
		if a.balance.LessThan(txn.Price) {
			return ErrInsufficientFunds
		}
		a.balance = a.balance.Sub(txn.Price)
	case model.KindSell:
		a.balance = a.balance.Add(txn.Price)
	default:
		return ErrInvalidKind
	}

	a.ledger = append(a.ledger, txn)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, username string) ([]model.Transaction, error) {
	s.mu.RLock()
	a, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Transaction, len(a.ledger))
	copy(out, a.ledger)
	return out, nil
}

func (s *MemoryStore) ListTransactionsInRange(ctx context.Context, username string, start, end time.Time) ([]model.Transaction, error) {
	all, err := s.ListTransactions(ctx, username)
	if err != nil {
		return nil, err
	}
	out := make([]model.Transaction, 0, len(all))
	for _, txn := range all {
		if txn.CreatedAt.Before(start) || txn.CreatedAt.After(end) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}
