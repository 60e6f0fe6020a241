package listings

import (
	"strings"
	"time"

	"github.com/harvestlink/agrimarket/pkg/pagination"
)

// ItemsPerPage is the fixed page size of the marketplace grid.
const ItemsPerPage = pagination.ItemsPerPage

// AllValues disables a scalar filter.
const AllValues = "all"

// DefaultMaxPrice is the upper bound of the default price range.
const DefaultMaxPrice = 1_000_000

// MaxTrustScore is the top of the trust score scale.
const MaxTrustScore = 1000

// Listing is one sellable crop-production unit. Every field used for filtering
// or sorting is a plain value so a listing can never be missing one.
type Listing struct {
	ID         string    `json:"id"`
	CropType   string    `json:"crop_type"`
	Farmer     string    `json:"farmer"`
	Location   string    `json:"location"`
	TokenType  string    `json:"token_type"`
	Price      float64   `json:"price"`
	TrustScore float64   `json:"trust_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// SortBy selects the ordering of the filtered view.
type SortBy string

const (
	SortNewest     SortBy = "newest"
	SortOldest     SortBy = "oldest"
	SortPriceLow   SortBy = "price_low"
	SortPriceHigh  SortBy = "price_high"
	SortTrustScore SortBy = "trust_score"
)

// Known reports whether s is one of the supported orderings.
func (s SortBy) Known() bool {
	switch s {
	case SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortTrustScore:
		return true
	}
	return false
}

// PriceRange is an inclusive price window.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters holds the active query parameters.
type Filters struct {
	CropType   string     `json:"crop_type"`
	PriceRange PriceRange `json:"price_range"`
	Location   string     `json:"location"`
	TokenType  string     `json:"token_type"`
	TrustScore float64    `json:"trust_score"`
	SortBy     SortBy     `json:"sort_by"`
}

// DefaultFilters returns the permissive starting filters.
func DefaultFilters() Filters {
	return Filters{
		CropType:   AllValues,
		PriceRange: PriceRange{Min: 0, Max: DefaultMaxPrice},
		Location:   AllValues,
		TokenType:  AllValues,
		TrustScore: 0,
		SortBy:     SortNewest,
	}
}

// FilterField names a filter that can be updated on its own. The price range
// is set through UpdatePriceRange.
type FilterField string

const (
	FieldCropType   FilterField = "cropType"
	FieldLocation   FilterField = "location"
	FieldTokenType  FilterField = "tokenType"
	FieldTrustScore FilterField = "trustScore"
	FieldSortBy     FilterField = "sortBy"
)

// ParseFilterField accepts both the camelCase and snake_case field names.
func ParseFilterField(value string) (FilterField, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), "_", "")) {
	case "croptype":
		return FieldCropType, true
	case "location":
		return FieldLocation, true
	case "tokentype":
		return FieldTokenType, true
	case "trustscore":
		return FieldTrustScore, true
	case "sortby":
		return FieldSortBy, true
	}
	return "", false
}

// State is the read-only snapshot consumed by pages and the JSON API.
type State struct {
	Filters      Filters `json:"filters"`
	SearchQuery  string  `json:"search_query"`
	CurrentPage  int     `json:"current_page"`
	TotalPages   int     `json:"total_pages"`
	ItemsPerPage int     `json:"items_per_page"`
	TotalCount   int     `json:"total_count"`
}

// Page is a State together with the listings visible on the current page.
type Page struct {
	State
	Listings []Listing `json:"listings"`
}
