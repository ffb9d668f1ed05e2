//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"donobot/internal/ledger"
	logx "donobot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, amount, currency, name, note, txid FROM donations ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			id     string
			rec    ledger.Record
			amount string
		)
		if err := rows.Scan(&id, &rec.Time, &amount, &rec.Currency, &rec.Name, &rec.Note, &rec.TxID); err != nil {
			return out, err
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return out, fmt.Errorf("bad donation id %q: %w", id, err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return out, fmt.Errorf("bad donation amount %q: %w", amount, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save rewrites the full table, matching the whole-ledger-rewrite contract
// of the file driver.
func (s *sqliteStore) Save(ctx context.Context, records []ledger.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM donations`); err != nil {
		return err
	}
	for i, r := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO donations(seq, id, at, amount, currency, name, note, txid) VALUES(?,?,?,?,?,?,?,?)`,
			i, r.ID.String(), r.Time, r.Amount.String(), r.Currency, r.Name, r.Note, r.TxID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
