package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harvestlink/agrimarket/api/middleware"
	"github.com/harvestlink/agrimarket/api/responses"
	"github.com/harvestlink/agrimarket/api/validators"
	"github.com/harvestlink/agrimarket/internal/listings"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

type filterRequest struct {
	Field string          `json:"field" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

type priceRangeRequest struct {
	Min *float64 `json:"min" validate:"required,gte=0"`
	Max *float64 `json:"max" validate:"required,gte=0"`
}

type searchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type pageRequest struct {
	Page *int `json:"page" validate:"required"`
}

// engineAction runs op against the caller's session engine and returns the new page.
func engineAction(engines EngineProvider, logg *logger.Logger, op func(r *http.Request, e *listings.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		engine, err := engines.Mount(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if op != nil {
			if err := op(r, engine); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func MarketplaceState(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, nil)
}

func MarketplaceUpdateFilter(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(r *http.Request, e *listings.Engine) error {
		var req filterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		field, ok := listings.ParseFilterField(req.Field)
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown filter field %q", req.Field).
				WithDetails(map[string]string{"field": "is invalid"})
		}
		return e.UpdateFilter(field, rawScalar(req.Value))
	})
}

func MarketplacePriceRange(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(r *http.Request, e *listings.Engine) error {
		var req priceRangeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		if *req.Min > *req.Max {
			return pkgerrors.New(pkgerrors.CodeValidation, "min must not exceed max").
				WithDetails(map[string]string{"min": "must be at most max"})
		}
		e.UpdatePriceRange(*req.Min, *req.Max)
		return nil
	})
}

func MarketplaceReset(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(_ *http.Request, e *listings.Engine) error {
		e.ResetFilters()
		return nil
	})
}

func MarketplaceSearch(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(r *http.Request, e *listings.Engine) error {
		var req searchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		e.Search(req.Query)
		return nil
	})
}

func MarketplaceClearSearch(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(_ *http.Request, e *listings.Engine) error {
		e.ClearSearch()
		return nil
	})
}

func MarketplaceGoToPage(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(r *http.Request, e *listings.Engine) error {
		var req pageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		e.GoToPage(*req.Page)
		return nil
	})
}

func MarketplaceNextPage(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(_ *http.Request, e *listings.Engine) error {
		e.NextPage()
		return nil
	})
}

func MarketplacePreviousPage(engines EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return engineAction(engines, logg, func(_ *http.Request, e *listings.Engine) error {
		e.PreviousPage()
		return nil
	})
}

// rawScalar accepts a JSON string or number and returns its text form.
func rawScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(bytes.Trim(raw, `"`)))
}
