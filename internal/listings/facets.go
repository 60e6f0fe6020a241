package listings

import (
	"slices"
)

// FacetSet lists the distinct values that feed the filter dropdowns.
type FacetSet struct {
	CropTypes  []string   `json:"crop_types"`
	Locations  []string   `json:"locations"`
	TokenTypes []string   `json:"token_types"`
	SortBy     []SortBy   `json:"sort_by"`
	PriceRange PriceRange `json:"price_range"`
}

// Facets collects sorted distinct crop types, locations and token types and
// the observed price bounds. An empty collection yields the default range.
func Facets(items []Listing) FacetSet {
	set := FacetSet{
		CropTypes:  []string{},
		Locations:  []string{},
		TokenTypes: []string{},
		SortBy:     []SortBy{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortTrustScore},
		PriceRange: DefaultFilters().PriceRange,
	}
	if len(items) == 0 {
		return set
	}

	crops := map[string]struct{}{}
	locations := map[string]struct{}{}
	tokens := map[string]struct{}{}
	set.PriceRange = PriceRange{Min: items[0].Price, Max: items[0].Price}
	for _, item := range items {
		crops[item.CropType] = struct{}{}
		locations[item.Location] = struct{}{}
		tokens[item.TokenType] = struct{}{}
		set.PriceRange.Min = min(set.PriceRange.Min, item.Price)
		set.PriceRange.Max = max(set.PriceRange.Max, item.Price)
	}
	set.CropTypes = sortedKeys(crops)
	set.Locations = sortedKeys(locations)
	set.TokenTypes = sortedKeys(tokens)
	return set
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
