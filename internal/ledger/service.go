package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	logx "donobot/pkg/logx"
)

// ErrInvalidAmount rejects donations whose amount is zero, negative, or
// unparseable. Callers map it to an "ignored" acknowledgment, not a failure.
var ErrInvalidAmount = errors.New("donation amount must be positive")

// Store persists the full ledger. The whole record list is rewritten on
// every save (read-modify-write of the entire file is the contract the
// original donors.json consumers expect).
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// Service owns the authoritative in-memory ledger shared between the webhook
// handler and the posting loops.
//
// Appends are serialized: the in-memory mutation and the durable save happen
// under one lock, so no reader observes a ledger whose memory and disk state
// disagree, and concurrent appends cannot overwrite each other's persisted
// result. The lock is never held across a chat-platform call.
type Service struct {
	log   logx.Logger
	store Store

	// onPersistFailure, when set, is invoked (outside the lock) after a
	// failed save; used to bump a metrics counter.
	onPersistFailure func()

	mu      sync.Mutex
	records []Record
}

// OnPersistFailure installs a hook called whenever a save fails after an
// in-memory append. Set it before the service is shared across goroutines.
func (s *Service) OnPersistFailure(fn func()) { s.onPersistFailure = fn }

// NewService loads the persisted ledger. A load failure is loud but not
// fatal: the service starts with an empty ledger rather than refusing to
// boot over a corrupt file.
func NewService(ctx context.Context, store Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, store: store}

	if store != nil {
		records, err := store.Load(ctx)
		if err != nil {
			s.log.Error("ledger load failed; starting with an empty ledger", logx.Err(err))
		}
		s.records = records
		if len(records) > 0 {
			s.log.Info("ledger loaded",
				logx.Int("records", len(records)),
				logx.String("total", Total(records).StringFixed(2)),
			)
		}
	}
	return s
}

// Append validates the donation, adds it to the ledger, and persists the
// full ledger before returning. A persistence failure after the in-memory
// append is logged and swallowed: the donor's contribution is recorded in
// memory and the next successful save will include it.
func (s *Service) Append(ctx context.Context, d Donation) (Record, error) {
	if !d.Amount.IsPositive() {
		return Record{}, ErrInvalidAmount
	}

	rec := Record{
		ID:       uuid.New(),
		Time:     time.Now().Unix(),
		Amount:   d.Amount,
		Currency: d.Currency,
		Name:     d.Name,
		Note:     d.Note,
		TxID:     d.TxID,
		Raw:      d.Raw,
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	var saveErr error
	if s.store != nil {
		saveErr = s.store.Save(ctx, s.records)
	}
	n := len(s.records)
	s.mu.Unlock()

	if saveErr != nil {
		s.log.Error("ledger persist failed; in-memory ledger remains source of truth",
			logx.Err(saveErr), logx.Int("records", n))
		if s.onPersistFailure != nil {
			s.onPersistFailure()
		}
	}
	return rec, nil
}

// Snapshot returns an immutable point-in-time copy of the ledger reflecting
// every append completed before the call returned.
func (s *Service) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Total sums all amounts in a snapshot.
func Total(snapshot []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range snapshot {
		total = total.Add(r.Amount)
	}
	return total
}

// Remaining is the distance to the goal, floored at zero.
func Remaining(snapshot []Record, goal decimal.Decimal) decimal.Decimal {
	rem := goal.Sub(Total(snapshot))
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Top returns up to n records sorted by amount descending; ties keep
// insertion order (earlier donors first).
func Top(snapshot []Record, n int) []Record {
	if n <= 0 {
		return nil
	}
	out := make([]Record, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
