package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"donobot/internal/ledger"
	logx "donobot/pkg/logx"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "donors.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	st, _ := openTestStore(t)

	records := []ledger.Record{
		{ID: uuid.New(), Time: time.Now().Unix(), Amount: decimal.RequireFromString("50"), Name: "Alice", Currency: "USDT"},
		{ID: uuid.New(), Time: time.Now().Unix(), Amount: decimal.RequireFromString("19.99"), Note: "keep going", TxID: "abc123"},
	}
	if err := st.Save(context.Background(), records); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d records, want 2", len(got))
	}
	if got[0].Name != "Alice" || !got[0].Amount.Equal(records[0].Amount) {
		t.Fatalf("record mismatch: %+v", got[0])
	}
	if got[1].TxID != "abc123" || got[1].Note != "keep going" {
		t.Fatalf("record mismatch: %+v", got[1])
	}
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	t.Parallel()
	st, _ := openTestStore(t)
	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil records for a missing file, got %v", got)
	}
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	t.Parallel()
	st, path := openTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := st.Load(context.Background()); err == nil {
		t.Fatal("expected an error for a corrupt ledger file")
	}
}

func TestFileStoreRewritesWholeFile(t *testing.T) {
	t.Parallel()
	st, path := openTestStore(t)

	one := []ledger.Record{{ID: uuid.New(), Amount: decimal.RequireFromString("1")}}
	if err := st.Save(context.Background(), one); err != nil {
		t.Fatalf("Save: %v", err)
	}
	two := append(one, ledger.Record{ID: uuid.New(), Amount: decimal.RequireFromString("2")})
	if err := st.Save(context.Background(), two); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d records, want 2", len(got))
	}
	// No stray temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

func TestOpenFileRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}
