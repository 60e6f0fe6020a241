package site

import (
	"net/url"
	"strconv"

	"github.com/harvestlink/agrimarket/internal/listings"
)

// PageLink is one entry of the pager.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// MarketplaceView is the template model of the marketplace page.
type MarketplaceView struct {
	Page     listings.Page
	Facets   listings.FacetSet
	Query    url.Values
	Links    []PageLink
	PrevURL  string
	NextURL  string
	ResetURL string
	Empty    bool
}

// NewMarketplaceView derives pager links from the engine page while keeping
// the other query parameters intact.
func NewMarketplaceView(basePath string, page listings.Page, facets listings.FacetSet, query url.Values) MarketplaceView {
	view := MarketplaceView{
		Page:     page,
		Facets:   facets,
		Query:    query,
		ResetURL: basePath + "?reset=1",
		Empty:    page.TotalCount == 0,
	}
	for n := 1; n <= page.TotalPages; n++ {
		view.Links = append(view.Links, PageLink{
			Number:  n,
			URL:     pageURL(basePath, query, n),
			Current: n == page.CurrentPage,
		})
	}
	if page.CurrentPage > 1 {
		view.PrevURL = pageURL(basePath, query, page.CurrentPage-1)
	}
	if page.CurrentPage < page.TotalPages {
		view.NextURL = pageURL(basePath, query, page.CurrentPage+1)
	}
	return view
}

// Selected reports whether value is the active option of a filter.
func (v MarketplaceView) Selected(field, value string) bool {
	f := v.Page.Filters
	switch field {
	case "crop":
		return f.CropType == value
	case "location":
		return f.Location == value
	case "token":
		return f.TokenType == value
	case "sort":
		return string(f.SortBy) == value
	}
	return false
}

func pageURL(basePath string, query url.Values, n int) string {
	q := url.Values{}
	for k, vs := range query {
		if k == "page" || k == "reset" {
			continue
		}
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(n))
	return basePath + "?" + q.Encode()
}
