// README: Offer aggregate, priority tiers and removal reasons.
package offer

import (
	"errors"
	"fmt"
	"time"

	"riderhub/internal/types"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type RemovalReason string

const (
	RemovedExpired  RemovalReason = "expired"
	RemovedAccepted RemovalReason = "accepted"
	RemovedDeclined RemovalReason = "declined"
)

var (
	ErrNotFound     = errors.New("offer not found")
	ErrDuplicate    = errors.New("offer already in pool")
	ErrInvalidOffer = errors.New("invalid offer")
)

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Offer struct {
	ID               types.ID    `json:"id"`
	MerchantName     string      `json:"merchant_name"`
	MerchantPhone    string      `json:"merchant_phone,omitempty"`
	PickupAddress    string      `json:"pickup_address"`
	DropoffAddress   string      `json:"dropoff_address"`
	Pickup           types.Point `json:"pickup"`
	Dropoff          types.Point `json:"dropoff"`
	CustomerName     string      `json:"customer_name,omitempty"`
	CustomerPhone    string      `json:"customer_phone,omitempty"`
	Items            []Item      `json:"items,omitempty"`
	Instructions     string      `json:"instructions,omitempty"`
	EstimatedEarning types.Money `json:"estimated_earning"`
	DistanceKm       float64     `json:"distance_km"`
	EstimatedMinutes int         `json:"estimated_minutes"`
	OrderValue       types.Money `json:"order_value"`
	Tips             types.Money `json:"tips"`
	Priority         Priority    `json:"priority"`
	Rating           float64     `json:"rating"`
	Urgent           bool        `json:"is_urgent"`
	// TimeRemaining is the number of seconds until the offer expires.
	TimeRemaining int       `json:"time_remaining"`
	Seq           int64     `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

type Removal struct {
	OfferID types.ID      `json:"offer_id"`
	Reason  RemovalReason `json:"reason"`
	At      time.Time     `json:"at"`
}

func (o Offer) Validate() error {
	switch {
	case o.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidOffer)
	case o.EstimatedEarning.Amount < 0:
		return fmt.Errorf("%w: negative estimated earning", ErrInvalidOffer)
	case o.DistanceKm <= 0:
		return fmt.Errorf("%w: distance must be positive", ErrInvalidOffer)
	case o.EstimatedMinutes <= 0:
		return fmt.Errorf("%w: estimated time must be positive", ErrInvalidOffer)
	case o.Tips.Amount < 0:
		return fmt.Errorf("%w: negative tips", ErrInvalidOffer)
	case o.Rating < 0 || o.Rating > 5:
		return fmt.Errorf("%w: rating out of range", ErrInvalidOffer)
	case o.TimeRemaining <= 0:
		return fmt.Errorf("%w: offer already expired", ErrInvalidOffer)
	}
	switch o.Priority {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidOffer, o.Priority)
	}
	return nil
}
