package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goTrust/hashing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "gotrust_credentials"

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresConfig configures the connection pool.
type PostgresConfig struct {
	URL         string        `yaml:"url"`
	Table       string        `yaml:"table"`
	MaxConns    int32         `yaml:"max_conns"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// Validate checks the pool settings.
func (c PostgresConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("postgres url is required")
	}
	if c.MaxConns < 0 {
		return errors.New("postgres max_conns must be >= 0")
	}
	if c.Table != "" && !validIdentifier(c.Table) {
		return fmt.Errorf("postgres table %q is not a plain identifier", c.Table)
	}
	return nil
}

// NewPool opens and pings a pool for cfg.
func NewPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return pool, nil
}

// PostgresStore keeps credentials in a single table keyed by user ID.
type PostgresStore struct {
	db    DB
	table string
}

// NewPostgresStore returns a store over db using table, or
// "gotrust_credentials" when empty.
func NewPostgresStore(db DB, table string) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres db is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validIdentifier(table) {
		return nil, fmt.Errorf("postgres table %q is not a plain identifier", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// Migrate creates the credential table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+s.table+`(
  user_id TEXT PRIMARY KEY,
  hash TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (hashing.HashString, error) {
	if err := validateUserID(userID); err != nil {
		return hashing.HashString{}, err
	}

	var encoded string
	err := s.db.QueryRow(ctx, `SELECT hash FROM `+s.table+` WHERE user_id=$1`, userID).Scan(&encoded)
	if errors.Is(err, pgx.ErrNoRows) {
		return hashing.HashString{}, ErrNotFound
	}
	if err != nil {
		return hashing.HashString{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decode(encoded)
}

func (s *PostgresStore) Put(ctx context.Context, userID string, hash hashing.HashString) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx, `INSERT INTO `+s.table+` (user_id, hash, updated_at) VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET hash=EXCLUDED.hash, updated_at=now()`, userID, hash.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, userID string, old, next hashing.HashString) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	var current string
	err := s.db.QueryRow(ctx, `SELECT hash FROM `+s.table+` WHERE user_id=$1`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if stored, err := decode(current); err != nil || !stored.Equal(old) {
		return ErrConflict
	}

	// The stored text is matched verbatim so legacy formatting still swaps.
	tag, err := s.db.Exec(ctx, `UPDATE `+s.table+` SET hash=$1, updated_at=now() WHERE user_id=$2 AND hash=$3`,
		next.String(), userID, current)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	return nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var _ Store = (*PostgresStore)(nil)
