// README: Route estimates (distance, travel minutes) for feed offers; haversine fallback.
package offer

import (
	"context"
	"math"

	"riderhub/internal/types"
)

type RouteEstimate struct {
	DistanceKm float64
	Minutes    int
}

type RouteEstimator interface {
	Estimate(ctx context.Context, from, to types.Point) (RouteEstimate, error)
}

// Haversine estimates straight-line distance and travel time at a fixed average speed.
type Haversine struct {
	SpeedKmh float64
}

func (h Haversine) Estimate(_ context.Context, from, to types.Point) (RouteEstimate, error) {
	d := distanceKm(from, to)
	speed := h.SpeedKmh
	if speed <= 0 {
		speed = 20
	}
	mins := int(math.Ceil(d / speed * 60))
	if mins < 1 {
		mins = 1
	}
	return RouteEstimate{DistanceKm: math.Max(math.Round(d*10)/10, 0.1), Minutes: mins}, nil
}

func distanceKm(a, b types.Point) float64 {
	const R = 6371.0
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dlat := (b.Lat - a.Lat) * math.Pi / 180.0
	dlng := (b.Lng - a.Lng) * math.Pi / 180.0
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * R * math.Asin(math.Sqrt(h))
}
