// README: Concurrency tests for the accept gate (run with -race).
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/offer"
	"riderhub/internal/types"
)

func TestConcurrentAcceptSameOffer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.insert(t, testOffer("hot", 95, 0, 60))

	const drivers = 16
	for i := 0; i < drivers; i++ {
		h.online(t, types.ID(fmt.Sprintf("d%d", i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, drivers)
	start := make(chan struct{})
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			<-start
			_, err := h.svc.Accept(ctx, AcceptCommand{DriverID: id, OfferID: "hot"})
			errs <- err
		}(types.ID(fmt.Sprintf("d%d", i)))
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, offer.ErrNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
}

func TestConcurrentAcceptSameDriver(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const offers = 8
	for i := 0; i < offers; i++ {
		h.insert(t, testOffer(fmt.Sprintf("o%d", i), 70, 0, 60))
	}
	h.online(t, "d1")

	var wg sync.WaitGroup
	errs := make(chan error, offers)
	start := make(chan struct{})
	for i := 0; i < offers; i++ {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			<-start
			_, err := h.svc.Accept(ctx, AcceptCommand{DriverID: "d1", OfferID: id})
			errs <- err
		}(types.ID(fmt.Sprintf("o%d", i)))
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrDeliveryInProgress) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
	if h.pool.Len() != offers-1 {
		t.Fatalf("expected %d offers left, got %d", offers-1, h.pool.Len())
	}
}

func TestConcurrentAcceptVsTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.insert(t, testOffer("last", 70, 0, 1))
	h.online(t, "d1")

	var wg sync.WaitGroup
	var acceptErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = h.svc.Accept(ctx, AcceptCommand{DriverID: "d1", OfferID: "last"})
	}()
	go func() {
		defer wg.Done()
		h.pool.Tick()
	}()
	wg.Wait()

	removals := h.pool.Removals()
	if len(removals) != 1 {
		t.Fatalf("expected exactly one removal, got %+v", removals)
	}
	switch removals[0].Reason {
	case offer.RemovedAccepted:
		if acceptErr != nil {
			t.Fatalf("accepted removal but accept failed: %v", acceptErr)
		}
	case offer.RemovedExpired:
		if !errors.Is(acceptErr, offer.ErrNotFound) {
			t.Fatalf("expired removal but accept returned %v", acceptErr)
		}
	}
}

// slowStore holds ListByDriver until released so a second request can arrive
// while the first one is still hydrating the ledger.
type slowStore struct {
	records []earnings.Record
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) Append(context.Context, earnings.Record) error { return nil }

func (s *slowStore) ListByDriver(context.Context, types.ID) ([]earnings.Record, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.records, nil
}

func TestEarningsWaitsForLedgerHydration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := &slowStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		records: []earnings.Record{{
			ID:       "r1",
			OrderID:  "o1",
			DriverID: "d1",
			At:       h.clock.Now().Add(-time.Hour),
			Base:     inr(80),
			Tip:      inr(0),
			Bonus:    inr(0),
			Total:    inr(80),
			Status:   earnings.StatusCompleted,
		}},
	}
	h.svc.opts.Ledgers = store

	historyErr := make(chan error, 1)
	go func() {
		_, err := h.svc.History(ctx, "d1", 10)
		historyErr <- err
	}()
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("expected first request to start hydrating")
	}

	type result struct {
		sum earnings.Summary
		err error
	}
	summary := make(chan result, 1)
	go func() {
		sum, err := h.svc.Earnings(ctx, "d1", earnings.PeriodDay)
		summary <- result{sum, err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	got := <-summary
	if got.err != nil {
		t.Fatalf("earnings: %v", got.err)
	}
	if got.sum.Deliveries != 1 || got.sum.TotalEarnings != 80 {
		t.Fatalf("expected hydrated summary of 1 delivery / 80, got %+v", got.sum)
	}
	if err := <-historyErr; err != nil {
		t.Fatalf("history: %v", err)
	}
}
