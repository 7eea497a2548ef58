// README: Earnings records, reporting periods and the aggregated summary.
package earnings

import (
	"errors"
	"fmt"
	"time"

	"riderhub/internal/types"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var (
	ErrInconsistentTotal = errors.New("total does not equal base + tip + bonus")
	ErrInvalidRecord     = errors.New("invalid earnings record")
	ErrInvalidPeriod     = errors.New("invalid period")
)

type Record struct {
	ID              types.ID    `json:"id"`
	OrderID         types.ID    `json:"order_id"`
	DriverID        types.ID    `json:"driver_id"`
	At              time.Time   `json:"at"`
	Base            types.Money `json:"base"`
	Tip             types.Money `json:"tip"`
	Bonus           types.Money `json:"bonus"`
	Total           types.Money `json:"total"`
	DistanceKm      float64     `json:"distance_km"`
	DurationMinutes int         `json:"duration_minutes"`
	CustomerRating  *int        `json:"customer_rating,omitempty"`
	Status          Status      `json:"status"`
}

func (r Record) Validate() error {
	if r.ID == "" || r.OrderID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if r.Status != StatusCompleted && r.Status != StatusCancelled {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if r.CustomerRating != nil && (*r.CustomerRating < 1 || *r.CustomerRating > 5) {
		return fmt.Errorf("%w: rating must be 1-5", ErrInvalidRecord)
	}
	if r.Total.Amount != r.Base.Amount+r.Tip.Amount+r.Bonus.Amount {
		return ErrInconsistentTotal
	}
	return nil
}

type Summary struct {
	Period             Period  `json:"period"`
	Currency           string  `json:"currency"`
	TotalEarnings      int64   `json:"total_earnings"`
	Deliveries         int     `json:"deliveries"`
	Tips               int64   `json:"tips"`
	Bonuses            int64   `json:"bonuses"`
	BaseEarnings       int64   `json:"base_earnings"`
	AveragePerDelivery float64 `json:"average_per_delivery"`
}

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Start returns the calendar boundary that opens the period containing now,
// in now's location. Weeks start on Monday.
func (p Period) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	default:
		return midnight
	}
}
