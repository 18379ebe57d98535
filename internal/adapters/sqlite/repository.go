package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradeLedger/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// Repository implements the trade, account and rate-history repositories and
// the pushed-down ports.Aggregator using SQLite.
//
// Money is stored as scaled integers (cents, 1e-4 price units, 1e-6 rate
// units) so SQL arithmetic is exact. Civil dates are stored as YYYY-MM-DD text.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var (
	_ ports.TradeRepository       = (*Repository)(nil)
	_ ports.AccountRepository     = (*Repository)(nil)
	_ ports.RateHistoryRepository = (*Repository)(nil)
	_ ports.Aggregator            = (*Repository)(nil)
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/ledger.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Data directory checked/created", map[string]interface{}{"path": filepath.Dir(dbPath)})

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers; reads are short.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		default_stock_fees_cents INTEGER NOT NULL DEFAULT 0,
		default_option_fees_cents INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account_margin_rates (
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		currency TEXT NOT NULL,
		margin_rate_e4 INTEGER NOT NULL,
		PRIMARY KEY (account_id, currency)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NULL,
		symbol TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		currency TEXT NOT NULL,
		direction TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price_e4 INTEGER NOT NULL,
		exit_price_e4 INTEGER NOT NULL,
		fees_cents INTEGER NOT NULL DEFAULT 0,
		margin_rate_e4 INTEGER NOT NULL DEFAULT 0,
		option_type TEXT NULL,
		strike_e4 INTEGER NULL,
		expiry TEXT NULL,
		opened_at TEXT NOT NULL,
		closed_at TEXT NOT NULL,
		pnl_cents INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exchange_rates (
		id TEXT PRIMARY KEY,
		base_currency TEXT NOT NULL,
		quote_currency TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		rate_micros INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (base_currency, quote_currency, effective_date)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_closed ON trades (user_id, closed_at);
	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts (user_id);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// Scale exponents of the integer columns.
const (
	centsExp = 2
	priceExp = 4
	rateExp  = 6
)

func toScaled(d decimal.Decimal, exp int32) int64 {
	return d.Shift(exp).Round(0).IntPart()
}

func fromScaled(v int64, exp int32) decimal.Decimal {
	return decimal.New(v, -exp)
}
