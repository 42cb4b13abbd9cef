// Package sqlstore is the SQL storage backend for embedded SQLite and
// PostgreSQL. Stock counters are columns moved by guarded UPDATE statements,
// documents with nested lines are stored as JSON next to their query columns.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/tracing"
)

// Dialect selects the SQL flavour
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const (
	defaultSQLiteDSN   = "file:cssd.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	defaultPostgresDSN = "postgres://localhost/cssd?sslmode=disable"
)

// Config holds SQL connection configuration
type Config struct {
	Dialect Dialect
	DSN     string
}

func (c Config) driverName() string {
	if c.Dialect == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Store is the SQL backend
type Store struct {
	db      *sql.DB
	dialect Dialect
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Open connects, pings and applies the schema. m and logger may be nil.
func Open(ctx context.Context, cfg Config, m *metrics.Metrics, logger *logging.Logger) (*Store, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = DialectSQLite
	}
	if cfg.DSN == "" {
		cfg.DSN = defaultSQLiteDSN
		if cfg.Dialect == DialectPostgres {
			cfg.DSN = defaultPostgresDSN
		}
	}

	db, err := sql.Open(cfg.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}
	if cfg.Dialect == DialectSQLite {
		// one writer at a time; also keeps a :memory: database on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Dialect, err)
	}

	s := &Store{db: db, dialect: cfg.Dialect, metrics: m, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the pool
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for tooling
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL flavour in use
func (s *Store) Dialect() Dialect { return s.dialect }

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repositories returns every port backed by this store
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		UnitOfWork:    s,
		Ledger:        &Ledger{store: s},
		Instruments:   &InstrumentRepository{store: s},
		Snapshots:     &SnapshotRepository{store: s},
		Assets:        &AssetRepository{store: s},
		Sets:          &SetRepository{store: s},
		Packs:         &PackRepository{store: s},
		Transactions:  &TransactionRepository{store: s},
		Batches:       &BatchRepository{store: s},
		Discrepancies: &DiscrepancyRepository{store: s},
		Units:         &UnitRepository{store: s},
	}
}

// Outbox returns the outbox repository sharing this store's transactions
func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

// IdempotencyKeys returns the idempotency key repository
func (s *Store) IdempotencyKeys() *KeyRepository {
	return &KeyRepository{store: s}
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Do runs fn inside a database transaction. A ctx already inside one joins it.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	ctx, span := tracing.StartSpan(ctx, "sql.transaction",
		tracing.DatabaseSpanAttributes(s.dbSystem(), "cssd", "transaction", "")...)
	defer func() { tracing.EndSpan(span, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.mapError(fmt.Errorf("begin: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return s.mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return s.mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) dbSystem() string {
	if s.dialect == DialectPostgres {
		return "postgresql"
	}
	return "sqlite"
}

func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// mapError reports lock contention and serialization failures as concurrency conflicts
func (s *Store) mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_BUSY {
		return &domain.ConcurrencyConflictError{Resource: "transaction", Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return &domain.ConcurrencyConflictError{Resource: "transaction", Err: err}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) observe(ctx context.Context, table, op string, start time.Time, err error, rows int64) {
	success := err == nil || errors.Is(err, sql.ErrNoRows)
	d := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordDBOperation(string(s.dialect), table, op, success, d)
	}
	if s.logger != nil {
		s.logger.DatabaseQuery(ctx, table, op, d, success, rows)
	}
}

func (s *Store) exec(ctx context.Context, table, op, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := s.conn(ctx).ExecContext(ctx, s.rebind(query), args...)
	var n int64
	if err == nil {
		n, err = res.RowsAffected()
	}
	s.observe(ctx, table, op, start, err, n)
	return n, err
}

func (s *Store) query(ctx context.Context, table, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.conn(ctx).QueryContext(ctx, s.rebind(query), args...)
	s.observe(ctx, table, "select", start, err, 0)
	return rows, err
}

func (s *Store) queryRow(ctx context.Context, table, query string, args ...any) *sql.Row {
	start := time.Now()
	row := s.conn(ctx).QueryRowContext(ctx, s.rebind(query), args...)
	s.observe(ctx, table, "select", start, row.Err(), 1)
	return row
}

func nanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
