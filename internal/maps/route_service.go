// README: Travel estimates between ride endpoints via the Google Maps Directions API, cached in Redis.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

var ErrNoRoute = errors.New("no route found")

// region is appended to the fixed location names so geocoding stays local.
const region = ", Andhra Pradesh, India"

const cachePrefix = "ridepool:route:"

type Estimate struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Minutes  int    `json:"minutes"`
	Distance string `json:"distance"`
}

type directionsClient interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client directionsClient
	cache  *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRouteService creates a RouteService with the given API key. cache may be
// nil, in which case every call goes to the API.
func NewRouteService(apiKey string, cache *redis.Client, ttl time.Duration, log logrus.FieldLogger) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newRouteService(client, cache, ttl, log), nil
}

func newRouteService(client directionsClient, cache *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RouteService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RouteService{client: client, cache: cache, ttl: ttl, log: log}
}

// GetTravelEstimate returns the driving time and distance from origin to
// destination.
func (s *RouteService) GetTravelEstimate(ctx context.Context, origin, destination string) (Estimate, error) {
	key := cachePrefix + origin + "|" + destination
	if est, ok := s.cached(ctx, key); ok {
		return est, nil
	}

	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin + region,
		Destination: destination + region,
		Mode:        maps.TravelModeDriving,
		Language:    "en",
		Region:      "in",
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Estimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	est := Estimate{
		From:     origin,
		To:       destination,
		Minutes:  int(leg.Duration.Round(time.Minute) / time.Minute),
		Distance: leg.Distance.HumanReadable,
	}
	s.store(ctx, key, est)
	return est, nil
}

func (s *RouteService) cached(ctx context.Context, key string) (Estimate, bool) {
	if s.cache == nil {
		return Estimate{}, false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("route cache read")
		}
		return Estimate{}, false
	}
	var est Estimate
	if err := json.Unmarshal(data, &est); err != nil {
		return Estimate{}, false
	}
	return est, true
}

func (s *RouteService) store(ctx context.Context, key string, est Estimate) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(est)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.WithError(err).Warn("route cache write")
	}
}
