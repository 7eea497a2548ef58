// README: Google Maps route estimates for generated offers.
package maps

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"riderhub/internal/modules/offer"
	"riderhub/internal/types"
)

// RouteService asks the Directions API for driving distance and time.
type RouteService struct {
	client *maps.Client
	region string
}

func NewRouteService(apiKey, region string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, region: region}, nil
}

func (s *RouteService) Estimate(ctx context.Context, from, to types.Point) (offer.RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return offer.RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return offer.RouteEstimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	mins := int(math.Ceil(leg.Duration.Minutes()))
	if mins < 1 {
		mins = 1
	}
	km := math.Max(math.Round(float64(leg.Distance.Meters)/100)/10, 0.1)
	return offer.RouteEstimate{DistanceKm: km, Minutes: mins}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
