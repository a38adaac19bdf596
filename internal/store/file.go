package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/model"
)

// FileStore writes each batch of fraud cases to a timestamped JSON file
// under a results directory.
type FileStore struct {
	dir string

	// now is swappable for tests.
	now func() time.Time
}

func NewFile(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// Migrate ensures the results directory exists.
func (s *FileStore) Migrate(context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrap(err, "store: create results dir")
	}
	return nil
}

// SaveFraudCases writes cases to fraud_cases_<timestamp>.json.
func (s *FileStore) SaveFraudCases(_ context.Context, cases []model.FraudCase) (int, error) {
	if len(cases) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, eris.Wrap(err, "store: create results dir")
	}

	name := "fraud_cases_" + s.now().UTC().Format("20060102_150405") + ".json"
	path := filepath.Join(s.dir, name)

	b, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "store: marshal fraud cases")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return 0, eris.Wrap(err, "store: write results file")
	}
	zap.L().Info("saved fraud cases",
		zap.String("driver", "file"),
		zap.String("path", path),
		zap.Int("rows", len(cases)))
	return len(cases), nil
}

func (s *FileStore) Close() error { return nil }
