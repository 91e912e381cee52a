package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkarasev/exchange-api/internal/model"
)

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

// PostgresStore is the production Store backed by a pgx connection pool.
//
// Atomicity: Apply runs the balance update and the ledger insert inside one
// transaction, and the BUY debit is a single conditional UPDATE
// ("... AND balance >= amount"), so the check and the mutation cannot be
// split by a concurrent writer. Row-level locking keeps the scope per
// account.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct model.Account) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO accounts (username, balance) VALUES ($1, $2)`,
		acct.Username, acct.Balance,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, username string) (model.Account, error) {
	var acct model.Account
	err := s.db.QueryRow(ctx,
		`SELECT username, balance FROM accounts WHERE username = $1`,
		username,
	).Scan(&acct.Username, &acct.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("select account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) CreateInstrument(ctx context.Context, inst model.Instrument) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO instruments (ticker, price, name) VALUES ($1, $2, $3)`,
		inst.Ticker, inst.Price, inst.Name,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateInstrument
	}
	if err != nil {
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInstrument(ctx context.Context, ticker string) (model.Instrument, error) {
	var inst model.Instrument
	err := s.db.QueryRow(ctx,
		`SELECT ticker, price, name FROM instruments WHERE ticker = $1`,
		ticker,
	).Scan(&inst.Ticker, &inst.Price, &inst.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Instrument{}, ErrInstrumentNotFound
	}
	if err != nil {
		return model.Instrument{}, fmt.Errorf("select instrument: %w", err)
	}
	return inst, nil
}

func (s *PostgresStore) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ticker, price, name FROM instruments ORDER BY ticker`,
	)
	if err != nil {
		return nil, fmt.Errorf("select instruments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Instrument, 0)
	for rows.Next() {
		var inst model.Instrument
		if err := rows.Scan(&inst.Ticker, &inst.Price, &inst.Name); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Apply(ctx context.Context, txn model.Transaction) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var ct pgconn.CommandTag
	switch txn.Kind {
	case model.KindBuy:
		ct, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = balance - $2 WHERE username = $1 AND balance >= $2`,
			txn.Account, txn.Price,
		)
	case model.KindSell:
		ct, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $2 WHERE username = $1`,
			txn.Account, txn.Price,
		)
	default:
		return ErrInvalidKind
	}
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Either the account doesn't exist or (BUY) the conditional debit
		// found insufficient funds. Tell them apart before reporting.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`,
			txn.Account,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, account, ticker, kind, volume, price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		txn.ID, txn.Account, txn.Ticker, string(txn.Kind), txn.Volume, txn.Price, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, username string) ([]model.Transaction, error) {
	if err := s.accountExists(ctx, username); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx,
		`SELECT id, account, ticker, kind, volume, price, created_at
		 FROM transactions WHERE account = $1 ORDER BY created_at, id`,
		username,
	)
}

func (s *PostgresStore) ListTransactionsInRange(ctx context.Context, username string, start, end time.Time) ([]model.Transaction, error) {
	if err := s.accountExists(ctx, username); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx,
		`SELECT id, account, ticker, kind, volume, price, created_at
		 FROM transactions
		 WHERE account = $1 AND created_at >= $2 AND created_at <= $3
		 ORDER BY created_at, id`,
		username, start, end,
	)
}

func (s *PostgresStore) accountExists(ctx context.Context, username string) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) queryTransactions(ctx context.Context, sql string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		var txn model.Transaction
		var kind string
		if err := rows.Scan(&txn.ID, &txn.Account, &txn.Ticker, &kind, &txn.Volume, &txn.Price, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txn.Kind = model.TransactionKind(kind)
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
