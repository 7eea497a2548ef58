// README: Active delivery aggregate, lifecycle statuses and the allowed transition table.
package delivery

import (
	"errors"
	"slices"
	"time"

	"riderhub/internal/modules/offer"
	"riderhub/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusAccepted  Status = "accepted"
	StatusAtPickup  Status = "at_pickup"
	StatusPickedUp  Status = "picked_up"
	StatusAtDropoff Status = "at_dropoff"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrMissingProof      = errors.New("photo proof required")
	ErrInvalidCode       = errors.New("incorrect delivery code")
)

// AllowedTransitions represents the delivery lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusAccepted:  {StatusAtPickup, StatusCancelled},
	StatusAtPickup:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusAtDropoff, StatusCancelled},
	StatusAtDropoff: {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	return slices.Contains(AllowedTransitions[from], to)
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Earnings struct {
	Base  types.Money `json:"base"`
	Tip   types.Money `json:"tip"`
	Bonus types.Money `json:"bonus"`
}

func (e Earnings) Total() types.Money {
	return e.Base.Add(e.Tip).Add(e.Bonus)
}

type Delivery struct {
	OrderID          types.ID     `json:"order_id"`
	DriverID         types.ID     `json:"driver_id"`
	MerchantName     string       `json:"merchant_name"`
	MerchantPhone    string       `json:"merchant_phone,omitempty"`
	CustomerName     string       `json:"customer_name,omitempty"`
	CustomerPhone    string       `json:"customer_phone,omitempty"`
	PickupAddress    string       `json:"pickup_address"`
	DropoffAddress   string       `json:"dropoff_address"`
	Pickup           types.Point  `json:"pickup"`
	Dropoff          types.Point  `json:"dropoff"`
	Items            []offer.Item `json:"items,omitempty"`
	Instructions     string       `json:"instructions,omitempty"`
	DistanceKm       float64      `json:"distance_km"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	// Code is shown to the customer only; it never leaves the service towards the driver.
	Code             string     `json:"-"`
	PickupPhoto      string     `json:"pickup_photo,omitempty"`
	DeliveryPhoto    string     `json:"delivery_photo,omitempty"`
	Earnings         Earnings   `json:"earnings"`
	Status           Status     `json:"status"`
	StatusVersion    int        `json:"status_version"`
	AcceptedAt       time.Time  `json:"accepted_at"`
	ArrivedPickupAt  *time.Time `json:"arrived_pickup_at,omitempty"`
	PickedUpAt       *time.Time `json:"picked_up_at,omitempty"`
	ArrivedDropoffAt *time.Time `json:"arrived_dropoff_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
}

type Transition struct {
	OrderID types.ID  `json:"order_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	At      time.Time `json:"at"`
}

// New builds an accepted delivery from a claimed offer.
func New(o offer.Offer, driverID types.ID, code string, earnings Earnings, now time.Time) *Delivery {
	return &Delivery{
		OrderID:          o.ID,
		DriverID:         driverID,
		MerchantName:     o.MerchantName,
		MerchantPhone:    o.MerchantPhone,
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		PickupAddress:    o.PickupAddress,
		DropoffAddress:   o.DropoffAddress,
		Pickup:           o.Pickup,
		Dropoff:          o.Dropoff,
		Items:            slices.Clone(o.Items),
		Instructions:     o.Instructions,
		DistanceKm:       o.DistanceKm,
		EstimatedMinutes: o.EstimatedMinutes,
		Code:             code,
		Earnings:         earnings,
		Status:           StatusAccepted,
		AcceptedAt:       now,
	}
}

func (d *Delivery) Clone() Delivery {
	c := *d
	c.Items = slices.Clone(d.Items)
	return c
}
