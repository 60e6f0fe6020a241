package listings

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/pagination"
)

// RecomputeObserver is notified after every recompute with the triggering
// operation and the number of matching listings.
type RecomputeObserver interface {
	ObserveRecompute(op string, total int)
}

// Engine owns one listing collection plus its filter, search and pagination
// state. Every mutation recomputes the view through DeriveView.
type Engine struct {
	mu       sync.RWMutex
	listings []Listing
	filters  Filters
	query    string
	page     int
	view     View
	observer RecomputeObserver
}

// NewEngine returns an empty engine with default filters on page 1.
func NewEngine(observer RecomputeObserver) *Engine {
	e := &Engine{
		filters:  DefaultFilters(),
		page:     1,
		observer: observer,
	}
	e.recompute("init")
	return e
}

// SetListings replaces the canonical collection. The current page is kept
// but clamped to the new page count.
func (e *Engine) SetListings(items []Listing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listings = slices.Clone(items)
	e.recompute("set_listings")
}

// UpdateFilter sets one filter field and returns to page 1. A trust score that
// is not a number in [0, 1000] or an unknown field is rejected and leaves the
// state untouched.
func (e *Engine) UpdateFilter(field FilterField, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.filters
	value = strings.TrimSpace(value)
	switch field {
	case FieldCropType:
		next.CropType = scalarOrAll(value)
	case FieldLocation:
		next.Location = scalarOrAll(value)
	case FieldTokenType:
		next.TokenType = scalarOrAll(value)
	case FieldSortBy:
		next.SortBy = SortBy(value)
	case FieldTrustScore:
		score, err := ParseTrustScore(value)
		if err != nil {
			return err
		}
		next.TrustScore = score
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown filter field %q", field)
	}

	e.filters = next
	e.page = 1
	e.recompute("update_filter")
	return nil
}

// UpdatePriceRange sets the inclusive price window and returns to page 1.
func (e *Engine) UpdatePriceRange(min, max float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters.PriceRange = PriceRange{Min: min, Max: max}
	e.page = 1
	e.recompute("update_price_range")
}

// ResetFilters restores the default filters, clears the search and returns to page 1.
func (e *Engine) ResetFilters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters = DefaultFilters()
	e.query = ""
	e.page = 1
	e.recompute("reset_filters")
}

// Search sets the free-text query and returns to page 1.
func (e *Engine) Search(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = query
	e.page = 1
	e.recompute("search")
}

// ClearSearch drops the query. The current page is deliberately left as is
// and only clamped to the new page count.
func (e *Engine) ClearSearch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = ""
	e.recompute("clear_search")
}

// GoToPage moves to page n clamped into [1, TotalPages].
func (e *Engine) GoToPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = pagination.Clamp(n, e.view.TotalPages)
}

// NextPage advances one page unless already on the last one.
func (e *Engine) NextPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = pagination.Clamp(e.page+1, e.view.TotalPages)
}

// PreviousPage goes back one page unless already on the first one.
func (e *Engine) PreviousPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = pagination.Clamp(e.page-1, e.view.TotalPages)
}

// PaginatedListings returns the listings on the current page.
func (e *Engine) PaginatedListings() []Listing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view.PageOf(e.page)
}

// State returns the current filters, query and pagination counters.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// Snapshot returns the state and the current page in one consistent read.
func (e *Engine) Snapshot() Page {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Page{State: e.stateLocked(), Listings: e.view.PageOf(e.page)}
}

// Listings returns a copy of the canonical collection.
func (e *Engine) Listings() []Listing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.listings)
}

func (e *Engine) stateLocked() State {
	return State{
		Filters:      e.filters,
		SearchQuery:  e.query,
		CurrentPage:  e.page,
		TotalPages:   e.view.TotalPages,
		ItemsPerPage: ItemsPerPage,
		TotalCount:   e.view.TotalCount,
	}
}

// recompute must be called with mu held for writing.
func (e *Engine) recompute(op string) {
	e.view = DeriveView(e.listings, e.filters, e.query)
	e.page = pagination.Clamp(e.page, e.view.TotalPages)
	if e.observer != nil {
		e.observer.ObserveRecompute(op, e.view.TotalCount)
	}
}

// ParseTrustScore parses a trust threshold in [0, 1000].
func ParseTrustScore(value string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "trust score %q is not a number", value)
	}
	if score < 0 || score > MaxTrustScore {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "trust score must be between 0 and %d", MaxTrustScore)
	}
	return score, nil
}

func scalarOrAll(value string) string {
	if value == "" {
		return AllValues
	}
	return value
}
