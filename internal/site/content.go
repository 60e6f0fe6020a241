package site

import "github.com/harvestlink/agrimarket/internal/listings"

// HomeContent feeds the landing page.
type HomeContent struct {
	Stats    []Stat
	Featured []listings.Listing
}

// ImpactContent feeds the impact page.
type ImpactContent struct {
	Stats []Stat
}

const featuredCount = 3

// NewHomeContent summarizes the listing snapshot for the landing page.
func NewHomeContent(items []listings.Listing) HomeContent {
	view := listings.DeriveView(items, listings.DefaultFilters(), "")
	featured := view.Listings
	if len(featured) > featuredCount {
		featured = featured[:featuredCount]
	}
	facets := listings.Facets(items)
	return HomeContent{
		Stats: []Stat{
			{Label: "Active listings", Value: FormatCount(len(items))},
			{Label: "Crop types", Value: FormatCount(len(facets.CropTypes))},
			{Label: "Regions", Value: FormatCount(len(facets.Locations))},
		},
		Featured: featured,
	}
}

// NewImpactContent summarizes farmer reach for the impact page.
func NewImpactContent(items []listings.Listing) ImpactContent {
	farmers := map[string]struct{}{}
	trusted := 0
	for _, item := range items {
		farmers[item.Farmer] = struct{}{}
		if item.TrustScore >= 800 {
			trusted++
		}
	}
	return ImpactContent{Stats: []Stat{
		{Label: "Farmers listing", Value: FormatCount(len(farmers))},
		{Label: "Highly trusted listings", Value: FormatCount(trusted)},
	}}
}
