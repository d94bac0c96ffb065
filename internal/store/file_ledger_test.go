package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLedger(t *testing.T) (*FileLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "processed_txids.json")
	ledger, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("NewFileLedger: %v", err)
	}
	return ledger, path
}

func TestLoadMissingFileReturnsEmptySet(t *testing.T) {
	ledger, _ := newTestLedger(t)

	seen, err := ledger.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(seen))
	}
}

func TestPersistThenLoadRoundTrip(t *testing.T) {
	ledger, _ := newTestLedger(t)

	in := map[string]struct{}{
		"tx-b": {},
		"tx-a": {},
		"tx-c": {},
	}
	if err := ledger.Persist(in); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	out, err := ledger.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d entries, got %d", len(in), len(out))
	}
	for id := range in {
		if _, ok := out[id]; !ok {
			t.Fatalf("expected %q in loaded set", id)
		}
	}
}

func TestPersistWritesSortedArray(t *testing.T) {
	ledger, path := newTestLedger(t)

	if err := ledger.Persist(map[string]struct{}{"tx-z": {}, "tx-a": {}, "tx-m": {}}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("stored ledger is not a JSON string array: %v", err)
	}
	want := []string{"tx-a", "tx-m", "tx-z"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected sorted ids %v, got %v", want, ids)
		}
	}
}

func TestLoadCorruptFileRecoversEmpty(t *testing.T) {
	ledger, path := newTestLedger(t)

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seen, err := ledger.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("expected empty set from corrupt file, got %d entries", len(seen))
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	ledger, path := newTestLedger(t)

	if err := ledger.Persist(map[string]struct{}{"tx-1": {}}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the ledger file, found %d entries", len(entries))
	}
}

func TestPersistOverwritesPreviousState(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if err := ledger.Persist(map[string]struct{}{"tx-1": {}}); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := ledger.Persist(map[string]struct{}{"tx-1": {}, "tx-2": {}}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	seen, err := ledger.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(seen))
	}
}
