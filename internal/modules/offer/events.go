// README: Pool observer that publishes offer removals as lifecycle events.
package offer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"riderhub/internal/events"
)

type EventObserver struct {
	pub events.Publisher
	log logrus.FieldLogger
}

func NewEventObserver(pub events.Publisher, log logrus.FieldLogger) *EventObserver {
	return &EventObserver{pub: pub, log: log}
}

func (e *EventObserver) OfferInserted(Offer) {}

func (e *EventObserver) OfferRemoved(o Offer, r Removal) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.pub.Publish(ctx, events.New(events.TypeOfferRemoved, string(o.ID), r)); err != nil {
		e.log.WithError(err).WithField("offer_id", o.ID).Warn("publish offer removal failed")
	}
	e.log.WithFields(logrus.Fields{
		"offer_id": o.ID,
		"reason":   r.Reason,
	}).Debug("offer removed")
}
