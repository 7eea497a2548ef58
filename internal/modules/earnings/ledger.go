package earnings

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"riderhub/internal/types"
)

// Store persists records outside the process. The ledger treats it as
// write-behind: the in-memory history stays authoritative for a session.
type Store interface {
	Append(ctx context.Context, r Record) error
	ListByDriver(ctx context.Context, driverID types.ID) ([]Record, error)
}

// Ledger is an append-only history of one driver's finished deliveries.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
	seen    map[types.ID]struct{}
	store   Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{seen: make(map[types.ID]struct{}), store: store}
}

// Load hydrates the ledger from its store. Records already present are skipped.
func (l *Ledger) Load(ctx context.Context, driverID types.ID) error {
	if l.store == nil {
		return nil
	}
	recs, err := l.store.ListByDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range recs {
		if _, ok := l.seen[r.ID]; ok {
			continue
		}
		l.seen[r.ID] = struct{}{}
		l.records = append(l.records, r)
	}
	return nil
}

// Record appends a copy of r. A record id seen before is ignored. The record is
// kept in memory even when persisting it fails; that error is returned so the
// caller can report it.
func (l *Ledger) Record(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.CustomerRating != nil {
		v := *r.CustomerRating
		r.CustomerRating = &v
	}

	l.mu.Lock()
	if _, ok := l.seen[r.ID]; ok {
		l.mu.Unlock()
		return nil
	}
	l.seen[r.ID] = struct{}{}
	l.records = append(l.records, r)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Append(ctx, r); err != nil {
			return fmt.Errorf("persist earnings record %s: %w", r.ID, err)
		}
	}
	return nil
}

func (l *Ledger) Aggregate(p Period, now time.Time) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Aggregate(l.records, p, now)
}

// History returns records newest first; limit <= 0 returns all of them.
func (l *Ledger) History(limit int) []Record {
	l.mu.RLock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	l.mu.RUnlock()

	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Compare(b.At.UnixNano(), a.At.UnixNano())
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Aggregate folds the records that fall inside the period window ending at now.
// Cancelled records carry no money and are not counted as deliveries.
func Aggregate(records []Record, p Period, now time.Time) Summary {
	start := p.Start(now)
	s := Summary{Period: p}
	for _, r := range records {
		if r.At.Before(start) || r.At.After(now) {
			continue
		}
		if s.Currency == "" {
			s.Currency = r.Total.Currency
		}
		s.TotalEarnings += r.Total.Amount
		s.Tips += r.Tip.Amount
		s.Bonuses += r.Bonus.Amount
		s.BaseEarnings += r.Base.Amount
		if r.Status == StatusCompleted {
			s.Deliveries++
		}
	}
	if s.Deliveries > 0 {
		s.AveragePerDelivery = float64(s.TotalEarnings) / float64(s.Deliveries)
	}
	return s
}
