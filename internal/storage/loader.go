package storage

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/travel-matching/internal/domain"
)

//go:embed data/destinations.json
var defaultDestinationsJSON []byte

// LoadDestinationsFromFile reads destinations from JSON file.
func LoadDestinationsFromFile(path string) ([]domain.Destination, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read destinations file: %w", err)
	}
	return parseDestinations(b)
}

// DefaultDestinations returns the built-in catalog.
func DefaultDestinations() []domain.Destination {
	items, err := parseDestinations(defaultDestinationsJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return items
}

func parseDestinations(b []byte) ([]domain.Destination, error) {
	var items []domain.Destination
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("unmarshal destinations: %w", err)
	}
	seen := make(map[string]struct{}, len(items))
	for i, d := range items {
		if d.ID == "" {
			return nil, fmt.Errorf("destination %d: missing id", i)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("destination %q: duplicate id", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return items, nil
}

// StaticCatalog serves a fixed in-memory list of destinations.
type StaticCatalog struct {
	items []domain.Destination
}

func NewStaticCatalog(items []domain.Destination) *StaticCatalog {
	cp := make([]domain.Destination, len(items))
	copy(cp, items)
	return &StaticCatalog{items: cp}
}

func (c *StaticCatalog) Destinations(_ context.Context) ([]domain.Destination, error) {
	return c.items, nil
}

// ListDestinations applies f to the catalog in catalog order.
func (c *StaticCatalog) ListDestinations(_ context.Context, f DestinationFilter) ([]domain.Destination, int, error) {
	matched := make([]domain.Destination, 0, len(c.items))
	for _, d := range c.items {
		if f.matches(d) {
			matched = append(matched, d)
		}
	}
	total := len(matched)

	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func (c *StaticCatalog) GetDestination(_ context.Context, id string) (domain.Destination, bool, error) {
	for _, d := range c.items {
		if d.ID == id {
			return d, true, nil
		}
	}
	return domain.Destination{}, false, nil
}
