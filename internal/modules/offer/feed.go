// README: Simulated inbound offer feed; periodically injects faker-generated offers into the pool.
package offer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"

	"riderhub/internal/config"
	"riderhub/internal/types"
)

// Service area the generated offers are placed in (Delhi NCR).
var feedCenter = types.Point{Lat: 28.5355, Lng: 77.3910}

const feedRadiusDeg = 0.08

type Feed struct {
	pool     *Pool
	cfg      config.FeedConfig
	currency string
	route    RouteEstimator
	fake     faker.Faker
	chance   func() float64
	log      logrus.FieldLogger
}

func NewFeed(pool *Pool, cfg config.FeedConfig, currency string, route RouteEstimator, log logrus.FieldLogger) *Feed {
	if route == nil {
		route = Haversine{SpeedKmh: cfg.AvgSpeedKmh}
	}
	return &Feed{
		pool:     pool,
		cfg:      cfg,
		currency: currency,
		route:    route,
		fake:     faker.New(),
		chance:   rand.Float64,
		log:      log,
	}
}

// Generate builds one well-formed offer; it does not touch the pool.
func (f *Feed) Generate(ctx context.Context) (Offer, error) {
	pickup := f.randomPoint()
	dropoff := f.randomPoint()
	est, err := f.route.Estimate(ctx, pickup, dropoff)
	if err != nil {
		f.log.WithError(err).Debug("route estimate failed, using haversine")
		est, _ = Haversine{SpeedKmh: f.cfg.AvgSpeedKmh}.Estimate(ctx, pickup, dropoff)
	}

	earning := int64(30 + est.DistanceKm*12)
	priority := PriorityMedium
	switch {
	case earning >= 100:
		priority = PriorityHigh
	case earning < 50:
		priority = PriorityLow
	}
	var tips int64
	if f.fake.Bool() {
		tips = int64(f.fake.IntBetween(1, 5) * 5)
	}
	items := make([]Item, f.fake.IntBetween(1, 3))
	for i := range items {
		items[i] = Item{Name: f.fake.Lorem().Word(), Quantity: f.fake.IntBetween(1, 3)}
	}

	return Offer{
		ID:               types.ID(uuid.NewString()),
		MerchantName:     f.fake.Company().Name(),
		MerchantPhone:    f.fake.Phone().Number(),
		PickupAddress:    f.fake.Address().StreetAddress(),
		DropoffAddress:   f.fake.Address().StreetAddress(),
		Pickup:           pickup,
		Dropoff:          dropoff,
		CustomerName:     f.fake.Person().Name(),
		CustomerPhone:    f.fake.Phone().Number(),
		Items:            items,
		Instructions:     f.fake.Lorem().Sentence(6),
		EstimatedEarning: types.Money{Amount: earning, Currency: f.currency},
		DistanceKm:       est.DistanceKm,
		EstimatedMinutes: est.Minutes + f.fake.IntBetween(5, 15),
		OrderValue:       types.Money{Amount: int64(f.fake.IntBetween(150, 900)), Currency: f.currency},
		Tips:             types.Money{Amount: tips, Currency: f.currency},
		Priority:         priority,
		Rating:           float64(f.fake.IntBetween(30, 50)) / 10,
		Urgent:           f.chance() < 0.2,
		TimeRemaining:    f.cfg.TimeLimit,
	}, nil
}

// Emit generates and inserts one offer.
func (f *Feed) Emit(ctx context.Context) (Offer, error) {
	o, err := f.Generate(ctx)
	if err != nil {
		return Offer{}, err
	}
	if err := f.pool.Insert(o); err != nil && !errors.Is(err, ErrDuplicate) {
		return Offer{}, fmt.Errorf("insert generated offer: %w", err)
	}
	f.log.WithFields(logrus.Fields{
		"offer_id": o.ID,
		"merchant": o.MerchantName,
		"earning":  o.EstimatedEarning.Amount,
	}).Info("new offer available")
	return o, nil
}

// Run emits an offer with probability cfg.Probability every cfg.Interval.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.chance() >= f.cfg.Probability {
				continue
			}
			if _, err := f.Emit(ctx); err != nil {
				f.log.WithError(err).Warn("offer feed emit failed")
			}
		}
	}
}

func (f *Feed) randomPoint() types.Point {
	return types.Point{
		Lat: feedCenter.Lat + (f.chance()*2-1)*feedRadiusDeg,
		Lng: feedCenter.Lng + (f.chance()*2-1)*feedRadiusDeg,
	}
}
