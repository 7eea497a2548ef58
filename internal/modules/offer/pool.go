// README: In-memory offer pool with per-second expiry countdown; single source of truth for visible offers.
package offer

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"riderhub/internal/types"
)

const defaultRemovalLog = 256

// Observer is notified from a single dispatch goroutine, in the order the pool
// changed. Slow observers delay later notifications but never the pool itself.
type Observer interface {
	OfferInserted(o Offer)
	OfferRemoved(o Offer, r Removal)
}

type notice struct {
	offer   Offer
	removal *Removal
}

type Pool struct {
	mu        sync.Mutex
	offers    map[types.ID]*Offer
	seq       int64
	removals  []Removal
	maxLog    int
	observers []Observer
	now       func() time.Time

	// notices are queued under mu so their order matches the map changes.
	queue   []notice
	queued  int
	idle    *sync.Cond
	wake    chan struct{}
	stopped chan struct{}
	started bool
	closed  bool
}

func NewPool() *Pool {
	p := &Pool{
		offers:  make(map[types.ID]*Offer),
		maxLog:  defaultRemovalLog,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Observe registers o and starts the dispatch goroutine on first use.
func (p *Pool) Observe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.observers = append(p.observers, o)
	if !p.started {
		p.started = true
		go p.dispatch()
	}
}

// Drain blocks until every queued notification has reached the observers.
func (p *Pool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.queued > 0 {
		p.idle.Wait()
	}
}

// Close delivers what is queued, then stops the dispatcher. Changes made after
// Close are no longer observed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	started := p.started
	close(p.wake)
	p.mu.Unlock()
	if started {
		<-p.stopped
	}
}

// Insert adds an offer. An id already present yields ErrDuplicate and leaves the
// stored offer untouched; callers treat that as a no-op.
func (p *Pool) Insert(o Offer) error {
	if o.Priority == "" {
		o.Priority = PriorityMedium
	}
	if err := o.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	if _, ok := p.offers[o.ID]; ok {
		p.mu.Unlock()
		return ErrDuplicate
	}
	p.seq++
	o.Seq = p.seq
	if o.CreatedAt.IsZero() {
		o.CreatedAt = p.now()
	}
	o.Items = slices.Clone(o.Items)
	stored := o
	p.offers[o.ID] = &stored
	p.enqueue(notice{offer: o})
	p.mu.Unlock()
	return nil
}

// Tick advances every countdown by one second and drops offers that reach zero.
func (p *Pool) Tick() []Removal {
	p.mu.Lock()
	var expired []Offer
	for id, o := range p.offers {
		o.TimeRemaining--
		if o.TimeRemaining <= 0 {
			o.TimeRemaining = 0
			expired = append(expired, *o)
			delete(p.offers, id)
		}
	}
	slices.SortFunc(expired, func(a, b Offer) int { return cmp.Compare(a.Seq, b.Seq) })
	now := p.now()
	removed := make([]Removal, 0, len(expired))
	for _, o := range expired {
		r := p.logRemoval(o.ID, RemovedExpired, now)
		removed = append(removed, r)
		p.enqueue(notice{offer: o, removal: &r})
	}
	p.mu.Unlock()
	return removed
}

// Take atomically removes and returns the offer.
func (p *Pool) Take(id types.ID, reason RemovalReason) (Offer, error) {
	p.mu.Lock()
	o, ok := p.offers[id]
	if !ok {
		p.mu.Unlock()
		return Offer{}, ErrNotFound
	}
	delete(p.offers, id)
	taken := *o
	r := p.logRemoval(id, reason, p.now())
	p.enqueue(notice{offer: taken, removal: &r})
	p.mu.Unlock()
	return taken, nil
}

// Remove drops the offer if present and reports whether anything was removed.
func (p *Pool) Remove(id types.ID, reason RemovalReason) bool {
	_, err := p.Take(id, reason)
	return err == nil
}

func (p *Pool) Get(id types.ID) (Offer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.offers[id]
	if !ok {
		return Offer{}, false
	}
	return *o, true
}

// Snapshot returns copies of the live offers in insertion order.
func (p *Pool) Snapshot() []Offer {
	p.mu.Lock()
	out := make([]Offer, 0, len(p.offers))
	for _, o := range p.offers {
		out = append(out, *o)
	}
	p.mu.Unlock()
	slices.SortFunc(out, func(a, b Offer) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

// LiveSource lists the offers currently open for acceptance.
type LiveSource interface {
	Live(ctx context.Context) ([]Offer, error)
}

// Live is the single-process LiveSource.
func (p *Pool) Live(context.Context) ([]Offer, error) {
	return p.Snapshot(), nil
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.offers)
}

// Removals returns the most recent removals, oldest first.
func (p *Pool) Removals() []Removal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.removals)
}

// RunTicker calls Tick on a fixed cadence until ctx is done.
func (p *Pool) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// logRemoval must be called with p.mu held.
func (p *Pool) logRemoval(id types.ID, reason RemovalReason, at time.Time) Removal {
	r := Removal{OfferID: id, Reason: reason, At: at}
	p.removals = append(p.removals, r)
	if len(p.removals) > p.maxLog {
		p.removals = slices.Clone(p.removals[len(p.removals)-p.maxLog:])
	}
	return r
}

// enqueue must be called with p.mu held.
func (p *Pool) enqueue(n notice) {
	if len(p.observers) == 0 || p.closed {
		return
	}
	p.queue = append(p.queue, n)
	p.queued++
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) dispatch() {
	defer close(p.stopped)
	for range p.wake {
		p.deliver()
	}
	p.deliver()
}

func (p *Pool) deliver() {
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		observers := p.observers
		p.mu.Unlock()
		if len(batch) == 0 {
			return
		}

		for _, n := range batch {
			for _, obs := range observers {
				if n.removal == nil {
					obs.OfferInserted(n.offer)
				} else {
					obs.OfferRemoved(n.offer, *n.removal)
				}
			}
		}

		p.mu.Lock()
		p.queued -= len(batch)
		p.idle.Broadcast()
		p.mu.Unlock()
	}
}
