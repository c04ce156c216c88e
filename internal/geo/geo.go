// Package geo holds the destination coordinate table and distance helpers
// used by the map view.
package geo

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

const (
	earthRadiusKm = 6371.0088
	kmToMiles     = 0.621371
)

//go:embed data/coordinates.json
var coordinatesJSON []byte

type Coordinates struct {
	Destination string  `json:"destination"`
	Country     string  `json:"country"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Table is a read-only name → coordinates dictionary. Lookups ignore case
// and surrounding whitespace.
type Table struct {
	byName map[string]Coordinates
	all    []Coordinates
}

// DefaultTable returns the built-in coordinate table.
func DefaultTable() *Table {
	var items []Coordinates
	if err := json.Unmarshal(coordinatesJSON, &items); err != nil {
		panic(fmt.Sprintf("embedded coordinates: %v", err))
	}
	return NewTable(items)
}

func NewTable(items []Coordinates) *Table {
	t := &Table{byName: make(map[string]Coordinates, len(items))}
	for _, c := range items {
		t.byName[key(c.Destination)] = c
	}
	t.all = make([]Coordinates, 0, len(t.byName))
	for _, c := range t.byName {
		t.all = append(t.all, c)
	}
	sort.Slice(t.all, func(i, j int) bool { return t.all[i].Destination < t.all[j].Destination })
	return t
}

func (t *Table) Lookup(name string) (Coordinates, bool) {
	c, ok := t.byName[key(name)]
	return c, ok
}

// All returns every entry sorted by destination name.
func (t *Table) All() []Coordinates {
	out := make([]Coordinates, len(t.all))
	copy(out, t.all)
	return out
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Distance is a great-circle distance in both units.
type Distance struct {
	Kilometers float64 `json:"distance_km"`
	Miles      float64 `json:"distance_miles"`
}

// ValidatePoint reports whether lat/lon are within WGS84 bounds.
func ValidatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude out of range: %v", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude out of range: %v", lon)
	}
	return nil
}

// Between returns the haversine distance between two points on a spherical
// earth of mean radius.
func Between(lat1, lon1, lat2, lon2 float64) Distance {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	km := earthRadiusKm * c
	return Distance{Kilometers: km, Miles: km * kmToMiles}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
