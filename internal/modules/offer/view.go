// README: Read-only filtered/sorted projection of the pool for the offer list.
package offer

import (
	"cmp"
	"fmt"
	"slices"
)

type Filter string

const (
	FilterAll     Filter = "all"
	FilterHighPay Filter = "high-pay"
	FilterNearby  Filter = "nearby"
	FilterUrgent  Filter = "urgent"
)

type SortKey string

const (
	SortEarning  SortKey = "earning"
	SortDistance SortKey = "distance"
	SortTime     SortKey = "time"
	SortRating   SortKey = "rating"
)

type Criteria struct {
	Filter       Filter
	Sort         SortKey
	HighPayMin   int64
	NearbyMaxKm  float64
	UrgentWithin int
}

func DefaultCriteria() Criteria {
	return Criteria{
		Filter:       FilterAll,
		Sort:         SortEarning,
		HighPayMin:   80,
		NearbyMaxKm:  3,
		UrgentWithin: 60,
	}
}

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterHighPay, FilterNearby, FilterUrgent:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

func ParseSort(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortEarning, nil
	case SortEarning, SortDistance, SortTime, SortRating:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

func (c Criteria) Match(o Offer) bool {
	switch c.Filter {
	case FilterHighPay:
		return o.EstimatedEarning.Amount >= c.HighPayMin
	case FilterNearby:
		return o.DistanceKm <= c.NearbyMaxKm
	case FilterUrgent:
		return o.Urgent || o.TimeRemaining <= c.UrgentWithin
	}
	return true
}

func (c Criteria) compare(a, b Offer) int {
	var r int
	switch c.Sort {
	case SortDistance:
		r = cmp.Compare(a.DistanceKm, b.DistanceKm)
	case SortTime:
		r = cmp.Compare(a.EstimatedMinutes, b.EstimatedMinutes)
	case SortRating:
		r = cmp.Compare(b.Rating, a.Rating)
	default:
		r = cmp.Compare(b.EstimatedEarning.Amount, a.EstimatedEarning.Amount)
	}
	if r != 0 {
		return r
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// View never mutates offers; ties fall back to insertion order.
func View(offers []Offer, c Criteria) []Offer {
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if o.TimeRemaining <= 0 {
			continue
		}
		if c.Match(o) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, c.compare)
	return out
}
