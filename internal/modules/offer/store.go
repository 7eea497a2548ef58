// README: Redis-backed claim guard and live-offer mirror shared across API replicas.
package offer

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"riderhub/internal/types"
)

const (
	liveOffersKey  = "offers:live"
	claimKeyFormat = "offers:%s:claim"
	mirrorTimeout  = 2 * time.Second
)

// ClaimGuard records which driver claimed an offer; Claim reports false when
// somebody else got there first.
type ClaimGuard interface {
	Claim(ctx context.Context, offerID, driverID types.ID) (bool, error)
}

// LocalClaims is used when a single process owns the pool; Pool.Take is already exclusive.
type LocalClaims struct{}

func (LocalClaims) Claim(context.Context, types.ID, types.ID) (bool, error) { return true, nil }

type RedisClaimGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisClaimGuard(client *redis.Client, ttl time.Duration) *RedisClaimGuard {
	return &RedisClaimGuard{redis: client, ttl: ttl}
}

func (g *RedisClaimGuard) Claim(ctx context.Context, offerID, driverID types.ID) (bool, error) {
	ok, err := g.redis.SetNX(ctx, claimKey(offerID), string(driverID), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim offer %s: %w", offerID, err)
	}
	return ok, nil
}

// RedisMirror keeps a hash of live offers so other replicas and dashboards can read pool state.
type RedisMirror struct {
	redis *redis.Client
	log   logrus.FieldLogger
}

func NewRedisMirror(client *redis.Client, log logrus.FieldLogger) *RedisMirror {
	return &RedisMirror{redis: client, log: log}
}

func (m *RedisMirror) OfferInserted(o Offer) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	data, err := json.Marshal(o)
	if err != nil {
		m.log.WithError(err).WithField("offer_id", o.ID).Warn("mirror marshal failed")
		return
	}
	if err := m.redis.HSet(ctx, liveOffersKey, string(o.ID), data).Err(); err != nil {
		m.log.WithError(err).WithField("offer_id", o.ID).Warn("mirror insert failed")
	}
}

func (m *RedisMirror) OfferRemoved(o Offer, r Removal) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := m.redis.HDel(ctx, liveOffersKey, string(o.ID)).Err(); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"offer_id": o.ID,
			"reason":   r.Reason,
		}).Warn("mirror remove failed")
	}
}

// Live reads the mirrored offers of every replica, oldest first.
func (m *RedisMirror) Live(ctx context.Context) ([]Offer, error) {
	raw, err := m.redis.HGetAll(ctx, liveOffersKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Offer, 0, len(raw))
	for id, v := range raw {
		var o Offer
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, fmt.Errorf("decode mirrored offer %s: %w", id, err)
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Offer) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func claimKey(id types.ID) string {
	return fmt.Sprintf(claimKeyFormat, string(id))
}
