package places

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"googlemaps.github.io/maps"
)

const maxSearchResults = 10

var (
	ErrQueryRequired     = errors.New("query parameter is required")
	ErrEndpointsRequired = errors.New("origin and destination are required")
	ErrNoRoute           = errors.New("no route found")
	ErrNotConfigured     = errors.New("maps api key is not configured")
)

// MapsClient is the subset of *maps.Client the gateway calls.
type MapsClient interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// NewMapsClient builds a Google Maps client. An empty key yields (nil, nil) so
// the gateway can serve summaries without maps access.
func NewMapsClient(apiKey string) (MapsClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return c, nil
}

type Place struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Step struct {
	Instruction string `json:"instruction"`
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
}

type Route struct {
	Points       []Point  `json:"points"`
	Steps        []Step   `json:"steps"`
	Duration     string   `json:"duration"`
	Distance     string   `json:"distance"`
	RampUsed     bool     `json:"ramp_used"`
	FeaturesUsed []string `json:"features_used"`
}

type Service struct {
	client MapsClient
}

func NewService(client MapsClient) *Service {
	return &Service{client: client}
}

// Search runs a free-text place search and returns at most ten matches.
func (s *Service) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		if isZeroResults(err) {
			return []Place{}, nil
		}
		return nil, fmt.Errorf("text search: %w", err)
	}

	results := resp.Results
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	out := make([]Place, 0, len(results))
	for _, r := range results {
		out = append(out, Place{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Address: r.FormattedAddress,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
		})
	}
	return out, nil
}

// Directions returns a walking route, optionally forced through one waypoint
// such as a known ramp.
func (s *Service) Directions(ctx context.Context, origin, destination, waypoint string) (*Route, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	waypoint = strings.TrimSpace(waypoint)
	if origin == "" || destination == "" {
		return nil, ErrEndpointsRequired
	}
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	req := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeWalking,
	}
	if waypoint != "" {
		req.Waypoints = []string{waypoint}
	}

	routes, _, err := s.client.Directions(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	route := routes[0]
	leg := route.Legs[0]

	steps := make([]Step, 0, len(leg.Steps))
	for _, st := range leg.Steps {
		if st == nil {
			continue
		}
		steps = append(steps, Step{
			Instruction: stripTags(st.HTMLInstructions),
			Distance:    st.Distance.HumanReadable,
			Duration:    humanizeDuration(st.Duration),
		})
	}

	decoded, err := route.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	points := make([]Point, 0, len(decoded))
	for _, p := range decoded {
		points = append(points, Point{Latitude: p.Lat, Longitude: p.Lng})
	}

	features := []string{}
	if waypoint != "" {
		features = append(features, "Waypoint ramp used")
	}
	return &Route{
		Points:       points,
		Steps:        steps,
		Duration:     humanizeDuration(leg.Duration),
		Distance:     leg.Distance.HumanReadable,
		RampUsed:     waypoint != "",
		FeaturesUsed: features,
	}, nil
}

var tagPattern = regexp.MustCompile(`<[^<]+?>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func isZeroResults(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ZERO_RESULTS")
}
