package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore writes fraud cases to a postgres table via COPY.
type PostgresStore struct {
	pool  Pool
	table string
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id            uuid PRIMARY KEY,
	text          text NOT NULL,
	username      text,
	name          text,
	location      text,
	source        text,
	fraud_probability double precision NOT NULL,
	extra         jsonb,
	created_at    timestamptz NOT NULL
)`

var postgresColumns = []string{
	"id", "text", "username", "name", "location", "source",
	"fraud_probability", "extra", "created_at",
}

// NewPostgres connects to the database and pings it.
func NewPostgres(ctx context.Context, databaseURL, table string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse postgres url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool, table string) *PostgresStore {
	return &PostgresStore{pool: pool, table: table}
}

// Migrate creates the fraud-case table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(postgresSchema, s.table)); err != nil {
		return eris.Wrap(err, "store: migrate postgres")
	}
	return nil
}

// SaveFraudCases inserts all cases in a single COPY.
func (s *PostgresStore) SaveFraudCases(ctx context.Context, cases []model.FraudCase) (int, error) {
	if len(cases) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(cases))
	for _, c := range cases {
		var extra []byte
		if len(c.Extra) > 0 {
			b, err := json.Marshal(c.Extra)
			if err != nil {
				return 0, eris.Wrap(err, "store: marshal extra fields")
			}
			extra = b
		}
		rows = append(rows, []any{
			uuid.NewString(), c.Text, c.Username, c.Name, c.Location,
			c.Source, c.FraudProbability, extra, now,
		})
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, postgresColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrap(err, "store: copy fraud cases")
	}
	zap.L().Info("saved fraud cases",
		zap.String("driver", "postgres"),
		zap.Int64("rows", n))
	return int(n), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
