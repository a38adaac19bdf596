package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pixwatch/pixwatch/internal/model"
)

// SQLiteStore writes fraud cases to a local sqlite database.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id            TEXT PRIMARY KEY,
	text          TEXT NOT NULL,
	username      TEXT,
	name          TEXT,
	location      TEXT,
	source        TEXT,
	fraud_probability REAL NOT NULL,
	extra         TEXT,
	created_at    TEXT NOT NULL
)`

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path, table string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	// Single writer; WAL keeps concurrent readers unblocked.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: sqlite pragmas")
	}
	return &SQLiteStore{db: db, table: table}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, s.table)); err != nil {
		return eris.Wrap(err, "store: migrate sqlite")
	}
	return nil
}

// SaveFraudCases inserts all cases inside one transaction.
func (s *SQLiteStore) SaveFraudCases(ctx context.Context, cases []model.FraudCase) (int, error) {
	if len(cases) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin sqlite tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, text, username, name, location, source, fraud_probability, extra, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table))
	if err != nil {
		return 0, eris.Wrap(err, "store: prepare sqlite insert")
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range cases {
		var extra any
		if len(c.Extra) > 0 {
			b, err := json.Marshal(c.Extra)
			if err != nil {
				return 0, eris.Wrap(err, "store: marshal extra fields")
			}
			extra = string(b)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), c.Text, c.Username, c.Name, c.Location,
			c.Source, c.FraudProbability, extra, now); err != nil {
			return 0, eris.Wrap(err, "store: insert fraud case")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "store: commit sqlite tx")
	}
	zap.L().Info("saved fraud cases",
		zap.String("driver", "sqlite"),
		zap.Int("rows", len(cases)))
	return len(cases), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
