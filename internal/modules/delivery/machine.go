package delivery

import (
	"fmt"
	"strings"
	"time"
)

func (d *Delivery) ArriveAtPickup(now time.Time) (Transition, error) {
	t, err := d.advance(StatusAtPickup, now)
	if err != nil {
		return Transition{}, err
	}
	d.ArrivedPickupAt = &t.At
	return t, nil
}

// AttachPickupPhoto replaces the pickup proof; an empty ref clears it.
func (d *Delivery) AttachPickupPhoto(ref string) error {
	if d.Status != StatusAccepted && d.Status != StatusAtPickup {
		return fmt.Errorf("%w: pickup photo in %s", ErrInvalidTransition, d.Status)
	}
	d.PickupPhoto = ref
	return nil
}

// AttachDeliveryPhoto replaces the drop-off proof; an empty ref clears it.
func (d *Delivery) AttachDeliveryPhoto(ref string) error {
	if d.Status != StatusPickedUp && d.Status != StatusAtDropoff {
		return fmt.Errorf("%w: delivery photo in %s", ErrInvalidTransition, d.Status)
	}
	d.DeliveryPhoto = ref
	return nil
}

func (d *Delivery) ConfirmPickup(now time.Time) (Transition, error) {
	if !CanTransition(d.Status, StatusPickedUp) {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, StatusPickedUp)
	}
	if d.PickupPhoto == "" {
		return Transition{}, ErrMissingProof
	}
	t, _ := d.advance(StatusPickedUp, now)
	d.PickedUpAt = &t.At
	return t, nil
}

func (d *Delivery) ArriveAtDropoff(now time.Time) (Transition, error) {
	t, err := d.advance(StatusAtDropoff, now)
	if err != nil {
		return Transition{}, err
	}
	d.ArrivedDropoffAt = &t.At
	return t, nil
}

// Complete checks the customer code and then the photo proof, and only if both
// pass moves at_dropoff through delivered to completed. photoRef, when set,
// replaces the stored delivery photo on success.
func (d *Delivery) Complete(code, photoRef string, now time.Time) ([]Transition, error) {
	if !CanTransition(d.Status, StatusDelivered) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, StatusDelivered)
	}
	if !d.VerifyCode(code) {
		return nil, ErrInvalidCode
	}
	photo := d.DeliveryPhoto
	if photoRef != "" {
		photo = photoRef
	}
	if photo == "" {
		return nil, ErrMissingProof
	}

	d.DeliveryPhoto = photo
	delivered, _ := d.advance(StatusDelivered, now)
	d.DeliveredAt = &delivered.At
	completed, _ := d.advance(StatusCompleted, now)
	d.CompletedAt = &completed.At
	return []Transition{delivered, completed}, nil
}

func (d *Delivery) Cancel(reason string, now time.Time) (Transition, error) {
	t, err := d.advance(StatusCancelled, now)
	if err != nil {
		return Transition{}, err
	}
	d.CancelledAt = &t.At
	d.CancelReason = strings.TrimSpace(reason)
	return t, nil
}

// VerifyCode compares case-insensitively and ignores surrounding spaces.
func (d *Delivery) VerifyCode(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && strings.EqualFold(code, d.Code)
}

func (d *Delivery) advance(to Status, now time.Time) (Transition, error) {
	if !CanTransition(d.Status, to) {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	t := Transition{OrderID: d.OrderID, From: d.Status, To: to, At: now}
	d.Status = to
	d.StatusVersion++
	return t, nil
}
