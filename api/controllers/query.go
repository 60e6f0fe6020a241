package controllers

import (
	"net/http"
	"strings"

	"github.com/harvestlink/agrimarket/api/validators"
	"github.com/harvestlink/agrimarket/internal/listings"
)

const maxPageParam = 1_000_000

// listingQuery is the parsed form of the marketplace query string
// (q, crop, location, token, min_price, max_price, trust, sort, page).
type listingQuery struct {
	filters listings.Filters
	search  string
	page    int
	present map[string]bool
}

func (q listingQuery) has(key string) bool {
	return q.present[key]
}

func parseListingQuery(r *http.Request) (listingQuery, error) {
	values := r.URL.Query()
	q := listingQuery{
		filters: listings.DefaultFilters(),
		page:    1,
		present: map[string]bool{},
	}
	for _, key := range []string{"q", "crop", "location", "token", "min_price", "max_price", "trust", "sort", "page"} {
		if _, ok := values[key]; ok {
			q.present[key] = true
		}
	}

	q.search = strings.TrimSpace(values.Get("q"))
	q.filters.CropType = scalar(values.Get("crop"))
	q.filters.Location = scalar(values.Get("location"))
	q.filters.TokenType = scalar(values.Get("token"))
	if s := strings.TrimSpace(values.Get("sort")); s != "" {
		q.filters.SortBy = listings.SortBy(s)
	}

	var err error
	if q.filters.PriceRange.Min, err = validators.ParseQueryFloat(r, "min_price", q.filters.PriceRange.Min); err != nil {
		return q, err
	}
	if q.filters.PriceRange.Max, err = validators.ParseQueryFloat(r, "max_price", q.filters.PriceRange.Max); err != nil {
		return q, err
	}
	if raw := strings.TrimSpace(values.Get("trust")); raw != "" {
		if q.filters.TrustScore, err = listings.ParseTrustScore(raw); err != nil {
			return q, err
		}
	}
	if q.page, err = validators.ParseQueryInt(r, "page", 1, 1, maxPageParam); err != nil {
		return q, err
	}
	return q, nil
}

func scalar(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return listings.AllValues
	}
	return v
}
