package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkarasev/exchange-api/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestProcessor(t *testing.T, balance string) (*Processor, *MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec(balance)}))
	require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("10"), Name: "Acme Corp"}))
	return NewProcessor(store), store
}

func TestSubmitBuyDebitsBalance(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, "100")

	txn, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("5"))
	require.NoError(t, err)

	assert.Equal(t, model.KindBuy, txn.Kind)
	assert.True(t, txn.Price.Equal(dec("50")), "settlement price = %s, want 50", txn.Price)
	assert.False(t, txn.CreatedAt.IsZero())

	acct, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("50")), "balance = %s, want 50", acct.Balance)

	history, err := p.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, txn.ID, history[0].ID)
}

func TestSubmitBuyInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, "100")

	// Concrete scenario: balance 100, price 10. BUY 5 leaves 50; a further
	// BUY 10 would cost 100 and must be rejected with the balance intact.
	_, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("5"))
	require.NoError(t, err)

	_, err = p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("10"))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	acct, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("50")), "balance = %s, want 50", acct.Balance)

	history, err := p.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1, "rejected BUY must not reach the ledger")
}

func TestSubmitSellCreditsUnconditionally(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProcessor(t, "0")

	// No holdings check: selling an instrument never bought still settles.
	txn, err := p.Submit(ctx, "alice", "ACME", model.KindSell, dec("3"))
	require.NoError(t, err)
	assert.True(t, txn.Price.Equal(dec("30")))

	acct, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("30")), "balance = %s, want 30", acct.Balance)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t, "100")

	_, err := p.Submit(ctx, "alice", "ACME", "HOLD", dec("1"))
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("0"))
	assert.ErrorIs(t, err, ErrInvalidVolume)

	_, err = p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("-2"))
	assert.ErrorIs(t, err, ErrInvalidVolume)

	_, err = p.Submit(ctx, "bob", "ACME", model.KindBuy, dec("1"))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = p.Submit(ctx, "alice", "NOPE", model.KindBuy, dec("1"))
	assert.ErrorIs(t, err, ErrInstrumentNotFound)
}

func TestSubmitObserverSeesSettledTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec("100")}))
	require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("10"), Name: "Acme Corp"}))

	var seen []model.Transaction
	p := NewProcessor(store, WithObserver(func(txn model.Transaction) {
		seen = append(seen, txn)
	}))

	_, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("20"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, seen, "rejected transactions must not be observed")

	txn, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("2"))
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, txn.ID, seen[0].ID)
}

// Concurrent individually-affordable BUYs that collectively exceed the
// balance: exactly the affordable prefix settles and the balance never goes
// negative.
func TestSubmitConcurrentBuys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec("100")}))
	require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("10"), Name: "Acme Corp"}))
	p := NewProcessor(store)

	const attempts = 50 // each costs 30; only 3 of 50 can settle

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("3"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var settled, rejected int
	for err := range errs {
		switch {
		case err == nil:
			settled++
		default:
			require.ErrorIs(t, err, ErrInsufficientFunds)
			rejected++
		}
	}
	assert.Equal(t, 3, settled)
	assert.Equal(t, attempts-3, rejected)

	acct, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("10")), "balance = %s, want 10", acct.Balance)
	assert.False(t, acct.Balance.IsNegative())

	history, err := p.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestHistoryInRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec("1000")}))
	require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("10"), Name: "Acme Corp"}))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	p := NewProcessor(store, WithClock(func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}))

	for i := 0; i < 4; i++ {
		_, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("1"))
		require.NoError(t, err)
	}

	// Transactions sit at base+1h .. base+4h. Bounds are inclusive.
	got, err := p.HistoryInRange(ctx, "alice", base.Add(2*time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = p.HistoryInRange(ctx, "alice", base.Add(10*time.Hour), base.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got, "empty window is an empty list, not an error")

	_, err = p.HistoryInRange(ctx, "alice", base.Add(3*time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = p.HistoryInRange(ctx, "bob", base, base.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t, "100")

	submitted, err := p.Submit(ctx, "alice", "ACME", model.KindBuy, dec("2.5"))
	require.NoError(t, err)

	history, err := p.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)

	got := history[0]
	assert.Equal(t, submitted.ID, got.ID)
	assert.Equal(t, "alice", got.Account)
	assert.Equal(t, "ACME", got.Ticker)
	assert.Equal(t, model.KindBuy, got.Kind)
	assert.True(t, got.Volume.Equal(dec("2.5")))
	assert.True(t, got.Price.Equal(dec("25")))
	assert.Equal(t, submitted.CreatedAt, got.CreatedAt)
}

func TestMemoryStoreDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec("1")}))
	assert.ErrorIs(t, store.CreateAccount(ctx, model.Account{Username: "alice", Balance: dec("2")}), ErrDuplicateAccount)

	require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("1"), Name: "Acme"}))
	assert.ErrorIs(t, store.CreateInstrument(ctx, model.Instrument{Ticker: "ACME", Price: dec("2"), Name: "Acme"}), ErrDuplicateInstrument)
}

func TestMemoryStoreListInstrumentsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, ticker := range []string{"MSFT", "AAPL", "GOOG"} {
		require.NoError(t, store.CreateInstrument(ctx, model.Instrument{Ticker: ticker, Price: dec("1"), Name: ticker}))
	}

	got, err := store.ListInstruments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, "GOOG", got[1].Ticker)
	assert.Equal(t, "MSFT", got[2].Ticker)
}
