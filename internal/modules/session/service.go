// README: Driver session service; accept/decline gate, delivery transitions and ledger bookkeeping.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"riderhub/internal/config"
	"riderhub/internal/events"
	"riderhub/internal/modules/delivery"
	"riderhub/internal/modules/earnings"
	"riderhub/internal/modules/offer"
	"riderhub/internal/modules/verification"
	"riderhub/internal/types"
)

var (
	ErrDeliveryInProgress = errors.New("driver already has an active delivery")
	ErrNoActiveDelivery   = errors.New("no active delivery")
	ErrDriverOffline      = errors.New("driver is offline")
	ErrBadRequest         = errors.New("bad request")
	ErrUnknownDelivery    = errors.New("no recorded delivery for driver")
)

type Options struct {
	Claims       offer.ClaimGuard
	Ledgers      earnings.Store
	Audit        AuditLog
	Publisher    events.Publisher
	Log          logrus.FieldLogger
	Delivery     config.DeliveryConfig
	Verification verification.Policy
	Now          func() time.Time
	// Draw feeds the verification policy; defaults to math/rand.
	Draw func() float64
}

type Service struct {
	pool *offer.Pool
	opts Options

	mu       sync.Mutex
	sessions map[types.ID]*Session
}

func NewService(pool *offer.Pool, opts Options) *Service {
	if opts.Claims == nil {
		opts.Claims = offer.LocalClaims{}
	}
	if opts.Audit == nil {
		opts.Audit = NopAudit{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}
	if opts.Delivery.CodeLength <= 0 {
		opts.Delivery.CodeLength = delivery.DefaultCodeLength
	}
	if opts.Delivery.Currency == "" {
		opts.Delivery.Currency = "INR"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Draw == nil {
		opts.Draw = rand.Float64
	}
	return &Service{pool: pool, opts: opts, sessions: make(map[types.ID]*Session)}
}

type AcceptCommand struct {
	DriverID types.ID
	OfferID  types.ID
}

type DeclineCommand struct {
	DriverID types.ID
	OfferID  types.ID
}

type PhotoKind string

const (
	PhotoPickup   PhotoKind = "pickup"
	PhotoDelivery PhotoKind = "delivery"
)

type AttachPhotoCommand struct {
	DriverID types.ID
	Kind     PhotoKind
	Ref      string
}

type CompleteCommand struct {
	DriverID       types.ID
	Code           string
	PhotoRef       string
	CustomerRating *int
}

type CancelCommand struct {
	DriverID types.ID
	Reason   string
}

// Result is returned when a delivery reaches a terminal status.
type Result struct {
	Delivery delivery.Delivery `json:"delivery"`
	Record   earnings.Record   `json:"record"`
}

func (s *Service) GoOnline(ctx context.Context, driverID types.ID) (DriverStatus, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.online {
		sess.online = true
		sess.onlineSince = s.opts.Now()
		sess.verificationEvaluated = false
		s.opts.Log.WithField("driver_id", driverID).Info("driver online")
	}
	return sess.status(), nil
}

// GoOffline stops new offers from being accepted; an active delivery carries on.
func (s *Service) GoOffline(ctx context.Context, driverID types.ID) (DriverStatus, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.online {
		sess.online = false
		s.opts.Log.WithField("driver_id", driverID).Info("driver offline")
	}
	return sess.status(), nil
}

func (s *Service) Status(ctx context.Context, driverID types.ID) (DriverStatus, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status(), nil
}

func (s *Service) Offers(c offer.Criteria) []offer.Offer {
	return offer.View(s.pool.Snapshot(), c)
}

// Accept claims an offer for the driver and starts a delivery. The offer leaves
// the pool on success; a claim lost to another instance reads as offer.ErrNotFound.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (delivery.Delivery, error) {
	if cmd.DriverID == "" || cmd.OfferID == "" {
		return delivery.Delivery{}, ErrBadRequest
	}
	sess, err := s.session(ctx, cmd.DriverID)
	if err != nil {
		return delivery.Delivery{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.online {
		return delivery.Delivery{}, ErrDriverOffline
	}
	if sess.active != nil {
		return delivery.Delivery{}, ErrDeliveryInProgress
	}
	if _, ok := s.pool.Get(cmd.OfferID); !ok {
		return delivery.Delivery{}, offer.ErrNotFound
	}
	code, err := delivery.NewCode(s.opts.Delivery.CodeLength)
	if err != nil {
		return delivery.Delivery{}, fmt.Errorf("generate code: %w", err)
	}

	won, err := s.opts.Claims.Claim(ctx, cmd.OfferID, cmd.DriverID)
	if err != nil {
		return delivery.Delivery{}, fmt.Errorf("claim offer: %w", err)
	}
	if !won {
		s.pool.Remove(cmd.OfferID, offer.RemovedAccepted)
		return delivery.Delivery{}, offer.ErrNotFound
	}
	o, err := s.pool.Take(cmd.OfferID, offer.RemovedAccepted)
	if err != nil {
		return delivery.Delivery{}, err
	}

	now := s.opts.Now()
	d := delivery.New(o, cmd.DriverID, code, s.earningsFor(o), now)
	sess.active = d

	s.audit(ctx, d, delivery.Transition{OrderID: d.OrderID, From: delivery.StatusNone, To: delivery.StatusAccepted, At: now})
	s.publish(ctx, events.TypeDeliveryAccepted, d.OrderID, acceptedPayload{Delivery: d.Clone(), CustomerCode: code})
	s.opts.Log.WithFields(logrus.Fields{
		"driver_id": cmd.DriverID,
		"order_id":  d.OrderID,
	}).Info("offer accepted")
	return d.Clone(), nil
}

// Decline drops the offer from the pool; declining an absent offer is a no-op.
func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) error {
	if cmd.DriverID == "" || cmd.OfferID == "" {
		return ErrBadRequest
	}
	if s.pool.Remove(cmd.OfferID, offer.RemovedDeclined) {
		s.opts.Log.WithFields(logrus.Fields{
			"driver_id": cmd.DriverID,
			"offer_id":  cmd.OfferID,
		}).Info("offer declined")
	}
	return nil
}

func (s *Service) Active(ctx context.Context, driverID types.ID) (delivery.Delivery, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return delivery.Delivery{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.active == nil {
		return delivery.Delivery{}, ErrNoActiveDelivery
	}
	return sess.active.Clone(), nil
}

func (s *Service) ArriveAtPickup(ctx context.Context, driverID types.ID) (delivery.Delivery, error) {
	return s.step(ctx, driverID, func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error) {
		t, err := d.ArriveAtPickup(now)
		return []delivery.Transition{t}, err
	})
}

func (s *Service) AttachPhoto(ctx context.Context, cmd AttachPhotoCommand) (delivery.Delivery, error) {
	var attach func(d *delivery.Delivery, ref string) error
	switch cmd.Kind {
	case PhotoPickup:
		attach = (*delivery.Delivery).AttachPickupPhoto
	case PhotoDelivery:
		attach = (*delivery.Delivery).AttachDeliveryPhoto
	default:
		return delivery.Delivery{}, fmt.Errorf("%w: unknown photo kind %q", ErrBadRequest, cmd.Kind)
	}
	return s.step(ctx, cmd.DriverID, func(d *delivery.Delivery, _ time.Time) ([]delivery.Transition, error) {
		return nil, attach(d, cmd.Ref)
	})
}

func (s *Service) ConfirmPickup(ctx context.Context, driverID types.ID) (delivery.Delivery, error) {
	return s.step(ctx, driverID, func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error) {
		t, err := d.ConfirmPickup(now)
		return []delivery.Transition{t}, err
	})
}

func (s *Service) ArriveAtDropoff(ctx context.Context, driverID types.ID) (delivery.Delivery, error) {
	return s.step(ctx, driverID, func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error) {
		t, err := d.ArriveAtDropoff(now)
		return []delivery.Transition{t}, err
	})
}

// Complete verifies the customer code and photo proof, closes the delivery and
// appends exactly one completed record to the driver's ledger.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (Result, error) {
	if r := cmd.CustomerRating; r != nil && (*r < 1 || *r > 5) {
		return Result{}, fmt.Errorf("%w: rating must be 1-5", ErrBadRequest)
	}
	return s.finish(ctx, cmd.DriverID, cmd.CustomerRating, func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error) {
		return d.Complete(cmd.Code, cmd.PhotoRef, now)
	})
}

// Cancel abandons the active delivery and records a zero-value entry for history.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (Result, error) {
	return s.finish(ctx, cmd.DriverID, nil, func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error) {
		t, err := d.Cancel(cmd.Reason, now)
		return []delivery.Transition{t}, err
	})
}

func (s *Service) Earnings(ctx context.Context, driverID types.ID, p earnings.Period) (earnings.Summary, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return earnings.Summary{}, err
	}
	// waits out a concurrent first-use hydration
	sess.mu.Lock()
	sum := sess.ledger.Aggregate(p, s.opts.Now())
	sess.mu.Unlock()
	if sum.Currency == "" {
		sum.Currency = s.opts.Delivery.Currency
	}
	return sum, nil
}

func (s *Service) History(ctx context.Context, driverID types.ID, limit int) ([]earnings.Record, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ledger.History(limit), nil
}

// Timeline returns the audited status changes of one of the driver's deliveries,
// oldest first.
func (s *Service) Timeline(ctx context.Context, driverID, orderID types.ID) ([]AuditEvent, error) {
	if driverID == "" || orderID == "" {
		return nil, ErrBadRequest
	}
	evs, err := s.opts.Audit.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	out := make([]AuditEvent, 0, len(evs))
	for _, e := range evs {
		if e.DriverID == driverID {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDelivery, orderID)
	}
	return out, nil
}

type transitionFunc func(d *delivery.Delivery, now time.Time) ([]delivery.Transition, error)

// step applies a non-terminal change to the active delivery.
func (s *Service) step(ctx context.Context, driverID types.ID, fn transitionFunc) (delivery.Delivery, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return delivery.Delivery{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.active == nil {
		return delivery.Delivery{}, ErrNoActiveDelivery
	}
	d := sess.active
	trs, err := fn(d, s.opts.Now())
	if err != nil {
		return d.Clone(), err
	}
	s.applied(ctx, d, trs)
	return d.Clone(), nil
}

// finish applies a terminal change, writes the ledger entry and frees the slot.
func (s *Service) finish(ctx context.Context, driverID types.ID, rating *int, fn transitionFunc) (Result, error) {
	sess, err := s.session(ctx, driverID)
	if err != nil {
		return Result{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.active == nil {
		return Result{}, ErrNoActiveDelivery
	}
	d := sess.active
	now := s.opts.Now()
	trs, err := fn(d, now)
	if err != nil {
		return Result{Delivery: d.Clone()}, err
	}
	s.applied(ctx, d, trs)

	rec := s.recordFor(d, rating, now)
	if err := sess.ledger.Record(ctx, rec); err != nil {
		s.opts.Log.WithError(err).WithFields(logrus.Fields{
			"driver_id": driverID,
			"order_id":  d.OrderID,
		}).Error("earnings record not persisted")
	}
	sess.active = nil
	s.publish(ctx, events.TypeEarningsRecorded, d.OrderID, rec)
	return Result{Delivery: d.Clone(), Record: rec}, nil
}

func (s *Service) applied(ctx context.Context, d *delivery.Delivery, trs []delivery.Transition) {
	for _, t := range trs {
		s.audit(ctx, d, t)
		s.publish(ctx, events.TypeDeliveryStatusChanged, d.OrderID, t)
		s.opts.Log.WithFields(logrus.Fields{
			"driver_id": d.DriverID,
			"order_id":  d.OrderID,
			"from":      t.From,
			"to":        t.To,
		}).Info("delivery status changed")
	}
}

func (s *Service) earningsFor(o offer.Offer) delivery.Earnings {
	cur := o.EstimatedEarning.Currency
	if cur == "" {
		cur = s.opts.Delivery.Currency
	}
	e := delivery.Earnings{
		Base:  types.Money{Amount: o.EstimatedEarning.Amount, Currency: cur},
		Tip:   types.Money{Amount: o.Tips.Amount, Currency: cur},
		Bonus: types.Money{Amount: 0, Currency: cur},
	}
	if o.Urgent || o.Priority == offer.PriorityHigh {
		e.Bonus.Amount = s.opts.Delivery.UrgentBonus
	}
	return e
}

func (s *Service) recordFor(d *delivery.Delivery, rating *int, now time.Time) earnings.Record {
	rec := earnings.Record{
		ID:              types.ID(uuid.NewString()),
		OrderID:         d.OrderID,
		DriverID:        d.DriverID,
		At:              now,
		DistanceKm:      d.DistanceKm,
		DurationMinutes: int(math.Ceil(now.Sub(d.AcceptedAt).Minutes())),
		CustomerRating:  rating,
	}
	if d.Status == delivery.StatusCompleted {
		rec.Status = earnings.StatusCompleted
		rec.Base = d.Earnings.Base
		rec.Tip = d.Earnings.Tip
		rec.Bonus = d.Earnings.Bonus
		rec.Total = d.Earnings.Total()
		return rec
	}
	zero := types.Money{Amount: 0, Currency: d.Earnings.Base.Currency}
	rec.Status = earnings.StatusCancelled
	rec.Base, rec.Tip, rec.Bonus, rec.Total = zero, zero, zero, zero
	return rec
}

func (s *Service) audit(ctx context.Context, d *delivery.Delivery, t delivery.Transition) {
	err := s.opts.Audit.Append(ctx, AuditEvent{
		OrderID:    d.OrderID,
		DriverID:   d.DriverID,
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorType:  "driver",
		CreatedAt:  t.At,
	})
	if err != nil {
		s.opts.Log.WithError(err).WithField("order_id", d.OrderID).Warn("audit append failed")
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, key types.ID, data any) {
	if err := s.opts.Publisher.Publish(ctx, events.New(t, string(key), data)); err != nil {
		s.opts.Log.WithError(err).WithField("event_type", t).Warn("publish event failed")
	}
}

type acceptedPayload struct {
	delivery.Delivery
	CustomerCode string `json:"customer_code"`
}

// session returns the driver's session, creating it and hydrating its ledger
// on first use.
func (s *Service) session(ctx context.Context, driverID types.ID) (*Session, error) {
	if driverID == "" {
		return nil, ErrBadRequest
	}
	s.mu.Lock()
	if sess, ok := s.sessions[driverID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	sess := newSession(driverID, earnings.NewLedger(s.opts.Ledgers))
	sess.mu.Lock()
	s.sessions[driverID] = sess
	s.mu.Unlock()

	defer sess.mu.Unlock()
	if err := sess.ledger.Load(ctx, driverID); err != nil {
		s.opts.Log.WithError(err).WithField("driver_id", driverID).Warn("ledger hydrate failed")
	}
	return sess, nil
}

func (s *Service) snapshotSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}
