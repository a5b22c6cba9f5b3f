package billing

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PriceSource maps plan slugs to provider price ids.
type PriceSource interface {
	// PriceID returns the provider price id for a plan slug, or
	// ErrUnknownPlan.
	PriceID(slug string) (string, error)

	// Slugs returns all known plan slugs, sorted.
	Slugs() []string
}

// StaticPrices is a fixed slug-to-price mapping.
type StaticPrices map[string]string

func (p StaticPrices) PriceID(slug string) (string, error) {
	id, ok := p[slug]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, slug)
	}
	return id, nil
}

func (p StaticPrices) Slugs() []string {
	slugs := make([]string, 0, len(p))
	for slug := range p {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

type priceFile struct {
	Plans map[string]struct {
		PriceID string `yaml:"price_id"`
	} `yaml:"plans"`
}

// LoadPrices reads a plan catalog from a YAML file:
//
//	plans:
//	  pro:
//	    price_id: price_123
//	  team:
//	    price_id: price_456
func LoadPrices(path string) (StaticPrices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price catalog: %w", err)
	}
	return ParsePrices(data)
}

// ParsePrices parses a YAML plan catalog.
func ParsePrices(data []byte) (StaticPrices, error) {
	var f priceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse price catalog: %w", err)
	}
	prices := make(StaticPrices, len(f.Plans))
	for slug, plan := range f.Plans {
		if plan.PriceID == "" {
			return nil, fmt.Errorf("parse price catalog: plan %q has no price_id", slug)
		}
		prices[slug] = plan.PriceID
	}
	return prices, nil
}
