/**
 * @description
 * File-backed implementation of the LedgerRepository. The ledger is a JSON
 * array of transaction ids at a fixed local path, written atomically via a
 * temp-file-then-rename so a crash mid-write leaves the previous state
 * intact.
 */

package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// FileLedger persists the processed-transaction set as a sorted JSON string
// array. It is not safe for concurrent writers; the watcher runs strictly
// sequentially and overlapping runs are the scheduler's responsibility to
// prevent.
type FileLedger struct {
	path string
}

// NewFileLedger creates a FileLedger at the given path, creating the parent
// directory if needed.
func NewFileLedger(path string) (*FileLedger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}
	return &FileLedger{path: path}, nil
}

// Load reads the stored set. A missing file is an empty set. A corrupt file
// is also treated as empty, with a warning: losing the set means some
// transfers may be re-evaluated, and the upstream order-store completion
// state then bounds the damage.
func (l *FileLedger) Load() (map[string]struct{}, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file %s: %w", l.path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		log.Printf("level=warn component=ledger msg=\"ledger file unparsable; starting from empty set\" path=%s err=%v", l.path, err)
		return map[string]struct{}{}, nil
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		seen[id] = struct{}{}
	}
	return seen, nil
}

// Persist writes the set as a sorted JSON array to a temporary file in the
// same directory and renames it over the target.
func (l *FileLedger) Persist(seen map[string]struct{}) error {
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger file %s: %w", l.path, err)
	}
	return nil
}
