package resilience

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// DLQEntry records a scoring batch that failed after retries, so a later
// run can re-score its index range.
type DLQEntry struct {
	BatchIndex  int       `json:"batch_index"`
	GlobalStart int       `json:"global_start"`
	GlobalEnd   int       `json:"global_end"`
	Error       string    `json:"error"`
	ErrorType   string    `json:"error_type"` // "transient" or "permanent"
	CreatedAt   time.Time `json:"created_at"`
}

// AppendDLQ appends entries to the JSONL dead-letter file at path,
// creating parent directories as needed.
func AppendDLQ(path string, entries []DLQEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "dlq: create dir")
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrap(err, "dlq: open file")
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return eris.Wrap(err, "dlq: encode entry")
		}
	}
	return eris.Wrap(w.Flush(), "dlq: flush")
}

// ReadDLQ loads all entries from the JSONL dead-letter file. A missing
// file yields an empty slice.
func ReadDLQ(path string) ([]DLQEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "dlq: open file")
	}
	defer f.Close() //nolint:errcheck

	var entries []DLQEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e DLQEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, eris.Wrap(err, "dlq: decode entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(sc.Err(), "dlq: scan")
}
