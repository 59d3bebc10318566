package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Executor is the subset of pgxpool.Pool the store needs. Tests substitute a
// stub implementation.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	qSelectHistory = `SELECT samples FROM duration_history WHERE key = $1;`
	qUpsertHistory = `
INSERT INTO duration_history (key, samples, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET samples = EXCLUDED.samples, updated_at = NOW();
`
)

// PostgresStore keeps the sample window as a single JSONB document per key,
// matching the layout of the file store.
type PostgresStore struct {
	db     Executor
	key    string
	now    func() time.Time
	logger zerolog.Logger
}

// PostgresStoreOptions configures a PostgresStore. Key defaults to
// StorageKey; Logger and Now are optional.
type PostgresStoreOptions struct {
	DB     Executor
	Key    string
	Logger *zerolog.Logger
	Now    func() time.Time
}

// NewPostgresStore creates a store backed by the given executor.
func NewPostgresStore(opts PostgresStoreOptions) (*PostgresStore, error) {
	if opts.DB == nil {
		return nil, errors.New("history: database executor is required")
	}
	key := opts.Key
	if key == "" {
		key = StorageKey
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &PostgresStore{db: opts.DB, key: key, now: now, logger: logger}, nil
}

func (s *PostgresStore) Load(ctx context.Context) []Sample {
	if s == nil {
		return nil
	}
	var raw []byte
	if err := s.db.QueryRow(ctx, qSelectHistory, s.key).Scan(&raw); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug().Err(err).Msg("history: load samples")
		}
		return nil
	}
	return decodeSamples(raw, s.now())
}

func (s *PostgresStore) Record(ctx context.Context, sample Sample) {
	if s == nil {
		return
	}
	next := trim(append(s.Load(ctx), sample), s.now())
	raw, err := json.Marshal(next)
	if err != nil {
		s.logger.Debug().Err(err).Msg("history: encode samples")
		return
	}
	if _, err := s.db.Exec(ctx, qUpsertHistory, s.key, raw); err != nil {
		s.logger.Debug().Err(err).Msg("history: persist samples")
	}
}

var _ Store = (*PostgresStore)(nil)
