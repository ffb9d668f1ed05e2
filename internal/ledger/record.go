package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is one accepted donation. Immutable once created.
//
// The JSON field names are a compatibility contract with the durable ledger
// file (and the donors.json files written by earlier deployments), so keep
// them stable.
type Record struct {
	ID       uuid.UUID       `json:"id"`
	Time     int64           `json:"time"` // unix seconds
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Name     string          `json:"name,omitempty"`
	Note     string          `json:"note,omitempty"`
	TxID     string          `json:"txid,omitempty"`
	Raw      map[string]any  `json:"raw,omitempty"`
}

// Donation is the caller-supplied part of a record; the service stamps
// identity and arrival time.
type Donation struct {
	Name     string
	Amount   decimal.Decimal
	Currency string
	Note     string
	TxID     string
	Raw      map[string]any
}

// DisplayName resolves the name shown in channel messages. The note wins
// over the payment name (donors often put their handle there), and an empty
// result falls back to "Anonymous".
func (r Record) DisplayName() string {
	if s := strings.TrimSpace(r.Note); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Name); s != "" {
		return s
	}
	return "Anonymous"
}

func (r Record) ReceivedAt() time.Time { return time.Unix(r.Time, 0) }
