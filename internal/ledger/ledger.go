// Package ledger keeps the bounded, per-account history of confirmed fund
// movements the wallet shows as recent activity.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindSend     Kind = "send"
)

func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdraw, KindSend:
		return true
	}
	return false
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Record is immutable once written. Amount is always a magnitude; the
// direction is carried by Kind.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Token     string          `json:"token,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Status    Status          `json:"status"`
	TxHash    string          `json:"txHash,omitempty"`
}

// Entry is what the caller supplies; the ledger fills in the rest.
type Entry struct {
	Kind   Kind
	Amount decimal.Decimal
	Token  string
	TxHash string
}

// Store is the versioned key-value store the ledger persists into.
type Store interface {
	GetVersioned(ctx context.Context, key string) ([]byte, int64, error)
	CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	MaxEntries     int
	RecentSize     int
	DedupTolerance decimal.Decimal
	DedupWindow    time.Duration
	MaxRetries     int
}

func DefaultConfig() Config {
	return Config{
		MaxEntries:     20,
		RecentSize:     5,
		DedupTolerance: decimal.RequireFromString("0.01"),
		DedupWindow:    5 * time.Second,
		MaxRetries:     5,
	}
}

// Key is the store key holding account's list.
func Key(account ethcommon.Address) string {
	return "transactions:" + strings.ToLower(account.Hex())
}

type Ledger struct {
	store Store
	key   string
	cfg   Config
	log   logging.Logger

	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	recent []Record
}

func New(store Store, account ethcommon.Address, cfg Config, log logging.Logger) *Ledger {
	return &Ledger{
		store: store,
		key:   Key(account),
		cfg:   cfg,
		log:   log.With("module", "ledger"),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Load refreshes the in-memory recent view from the store.
func (l *Ledger) Load(ctx context.Context) error {
	records, _, err := l.read(ctx)
	if err != nil {
		return err
	}
	l.setRecent(records)
	return nil
}

// Record appends a completed entry to the front of the list. It returns
// false, with the existing record, when the entry duplicates one of the
// same kind recorded within the dedup window and tolerance.
func (l *Ledger) Record(ctx context.Context, e Entry) (Record, bool, error) {
	if !e.Kind.Valid() {
		return Record{}, false, fmt.Errorf("ledger: unknown kind %q", e.Kind)
	}

	rec := Record{
		ID:        l.newID(),
		Kind:      e.Kind,
		Amount:    e.Amount.Abs(),
		Token:     e.Token,
		Timestamp: l.now(),
		Status:    StatusCompleted,
		TxHash:    e.TxHash,
	}

	for attempt := 0; ; attempt++ {
		records, version, err := l.read(ctx)
		if err != nil {
			return Record{}, false, err
		}

		if dup, ok := l.findDuplicate(records, rec); ok {
			l.log.Debug(ctx, "duplicate record dropped", "kind", string(rec.Kind), "amount", rec.Amount.String(), "existing", dup.ID)
			l.setRecent(records)
			return dup, false, nil
		}

		next := append([]Record{rec}, records...)
		sortDesc(next)
		if len(next) > l.cfg.MaxEntries {
			next = next[:l.cfg.MaxEntries]
		}

		err = l.write(ctx, next, version)
		if err == nil {
			l.setRecent(next)
			return rec, true, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) || attempt >= l.cfg.MaxRetries {
			return Record{}, false, err
		}
		l.log.Debug(ctx, "ledger write raced, retrying", "attempt", attempt+1)
	}
}

// Recent is the most recent RecentSize records, newest first.
func (l *Ledger) Recent() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.recent...)
}

// All returns the full persisted list, newest first.
func (l *Ledger) All(ctx context.Context) ([]Record, error) {
	records, _, err := l.read(ctx)
	return records, err
}

// Clear removes the persisted list and empties the recent view.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	l.setRecent(nil)
	return nil
}

func (l *Ledger) findDuplicate(records []Record, rec Record) (Record, bool) {
	for _, r := range records {
		if r.Kind != rec.Kind || !strings.EqualFold(r.Token, rec.Token) {
			continue
		}
		if r.TxHash != "" && rec.TxHash != "" && !strings.EqualFold(r.TxHash, rec.TxHash) {
			continue
		}
		if r.Amount.Sub(rec.Amount).Abs().GreaterThanOrEqual(l.cfg.DedupTolerance) {
			continue
		}
		dt := rec.Timestamp.Sub(r.Timestamp)
		if dt < 0 {
			dt = -dt
		}
		if dt < l.cfg.DedupWindow {
			return r, true
		}
	}
	return Record{}, false
}

func (l *Ledger) read(ctx context.Context) ([]Record, int64, error) {
	raw, version, err := l.store.GetVersioned(ctx, l.key)
	if err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}
	if len(raw) == 0 {
		return nil, version, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, fmt.Errorf("decode ledger: %w", err)
	}
	sortDesc(records)
	return records, version, nil
}

func (l *Ledger) write(ctx context.Context, records []Record, version int64) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if _, err := l.store.CompareAndSet(ctx, l.key, raw, version); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func (l *Ledger) setRecent(records []Record) {
	n := len(records)
	if n > l.cfg.RecentSize {
		n = l.cfg.RecentSize
	}
	l.mu.Lock()
	l.recent = append([]Record(nil), records[:n]...)
	l.mu.Unlock()
}

func sortDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
