package storage

import (
	"errors"
	"strings"
	"time"

	"donobot/internal/ledger"
	logx "donobot/pkg/logx"
)

// Store is the persistence API consumed by the ledger service, plus Close.
type Store interface {
	ledger.Store
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "" or "file": whole-file JSON ledger (default)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
