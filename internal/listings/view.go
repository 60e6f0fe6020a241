package listings

import (
	"slices"
	"strings"

	"github.com/harvestlink/agrimarket/pkg/pagination"
)

// View is the filtered and sorted result of DeriveView.
type View struct {
	Listings   []Listing
	TotalCount int
	TotalPages int
}

// DeriveView recomputes the visible collection from scratch. It never mutates
// the input slice and always returns TotalPages >= 1.
func DeriveView(items []Listing, filters Filters, query string) View {
	needle := strings.ToLower(query)

	out := make([]Listing, 0, len(items))
	for _, item := range items {
		if needle != "" && !matchesSearch(item, needle) {
			continue
		}
		if !matchesScalar(filters.CropType, item.CropType) ||
			!matchesScalar(filters.TokenType, item.TokenType) ||
			!matchesScalar(filters.Location, item.Location) {
			continue
		}
		if item.Price < filters.PriceRange.Min || item.Price > filters.PriceRange.Max {
			continue
		}
		if item.TrustScore < filters.TrustScore {
			continue
		}
		out = append(out, item)
	}

	sortListings(out, filters.SortBy)

	return View{
		Listings:   out,
		TotalCount: len(out),
		TotalPages: pagination.TotalPages(len(out), ItemsPerPage),
	}
}

// PageOf returns the listings on page (1-based) of view.
func (v View) PageOf(page int) []Listing {
	start, end := pagination.Bounds(page, ItemsPerPage, len(v.Listings))
	return slices.Clone(v.Listings[start:end])
}

func matchesSearch(item Listing, needle string) bool {
	return strings.Contains(strings.ToLower(item.CropType), needle) ||
		strings.Contains(strings.ToLower(item.Farmer), needle) ||
		strings.Contains(strings.ToLower(item.Location), needle)
}

func matchesScalar(filter, value string) bool {
	return filter == "" || filter == AllValues || filter == value
}

func sortListings(items []Listing, sortBy SortBy) {
	var cmp func(a, b Listing) int
	switch sortBy {
	case SortPriceLow:
		cmp = func(a, b Listing) int { return compareFloat(a.Price, b.Price) }
	case SortPriceHigh:
		cmp = func(a, b Listing) int { return compareFloat(b.Price, a.Price) }
	case SortTrustScore:
		cmp = func(a, b Listing) int { return compareFloat(b.TrustScore, a.TrustScore) }
	case SortOldest:
		cmp = func(a, b Listing) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		cmp = func(a, b Listing) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
	slices.SortStableFunc(items, cmp)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
