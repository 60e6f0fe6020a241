package controllers

import (
	"net/http"

	"github.com/harvestlink/agrimarket/api/responses"
	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/pagination"
)

// ListListings filters the snapshot statelessly from query parameters.
func ListListings(source SnapshotProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q, err := parseListingQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := source.Snapshot(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view := listings.DeriveView(items, q.filters, q.search)
		page := pagination.Clamp(q.page, view.TotalPages)
		responses.WriteSuccess(w, listings.Page{
			State: listings.State{
				Filters:      q.filters,
				SearchQuery:  q.search,
				CurrentPage:  page,
				TotalPages:   view.TotalPages,
				ItemsPerPage: listings.ItemsPerPage,
				TotalCount:   view.TotalCount,
			},
			Listings: view.PageOf(page),
		})
	}
}

// ListingFacets returns the filter dropdown values for the snapshot.
func ListingFacets(source SnapshotProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		items, err := source.Snapshot(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings.Facets(items))
	}
}
