package listings

import (
	"fmt"
	"testing"

	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	ops []string
}

func (r *recordingObserver) ObserveRecompute(op string, total int) {
	r.ops = append(r.ops, op)
}

func manyListings(n int) []Listing {
	items := make([]Listing, 0, n)
	for i := 0; i < n; i++ {
		crop := "tea"
		if i%3 == 0 {
			crop = "coffee"
		}
		items = append(items, listing(fmt.Sprintf("l-%03d", i), crop, float64(10+i), float64(i*10%1000), i))
	}
	return items
}

func TestEngineDefaultPageIsNewestFirst(t *testing.T) {
	for _, n := range []int{0, 5, 12, 30} {
		e := NewEngine(nil)
		e.SetListings(manyListings(n))
		page := e.PaginatedListings()
		require.Len(t, page, min(ItemsPerPage, n))
		for i := 1; i < len(page); i++ {
			assert.False(t, page[i].CreatedAt.After(page[i-1].CreatedAt), "page must be newest first")
		}
	}
}

func TestEngineCropFilterMatchesSourceCount(t *testing.T) {
	items := manyListings(60)
	e := NewEngine(nil)
	e.SetListings(items)
	require.NoError(t, e.UpdateFilter(FieldCropType, "coffee"))

	want := 0
	for _, l := range items {
		if l.CropType == "coffee" {
			want++
		}
	}
	state := e.State()
	assert.Equal(t, want, state.TotalCount)

	for page := 1; page <= state.TotalPages; page++ {
		e.GoToPage(page)
		for _, l := range e.PaginatedListings() {
			assert.Equal(t, "coffee", l.CropType)
		}
	}
}

func TestEngineUpdateFilterResetsPage(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(60))
	require.Equal(t, 5, e.State().TotalPages)

	e.GoToPage(3)
	require.Equal(t, 3, e.State().CurrentPage)

	require.NoError(t, e.UpdateFilter(FieldSortBy, string(SortPriceLow)))
	assert.Equal(t, 1, e.State().CurrentPage)

	e.GoToPage(3)
	e.UpdatePriceRange(0, 500)
	assert.Equal(t, 1, e.State().CurrentPage)

	e.GoToPage(3)
	e.Search("tea")
	assert.Equal(t, 1, e.State().CurrentPage)
}

func TestEngineResetFiltersRestoresDefaults(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(30))
	require.NoError(t, e.UpdateFilter(FieldCropType, "coffee"))
	require.NoError(t, e.UpdateFilter(FieldLocation, "Meru"))
	require.NoError(t, e.UpdateFilter(FieldTokenType, "DFRT"))
	require.NoError(t, e.UpdateFilter(FieldTrustScore, "700"))
	require.NoError(t, e.UpdateFilter(FieldSortBy, "oldest"))
	e.UpdatePriceRange(5, 6)
	e.Search("amina")

	e.ResetFilters()
	state := e.State()
	assert.Equal(t, DefaultFilters(), state.Filters)
	assert.Empty(t, state.SearchQuery)
	assert.Equal(t, 1, state.CurrentPage)
	assert.Equal(t, 30, state.TotalCount)
}

func TestEngineGoToPageClamps(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(30))
	total := e.State().TotalPages
	require.Equal(t, 3, total)

	e.GoToPage(0)
	assert.Equal(t, 1, e.State().CurrentPage)
	e.GoToPage(-4)
	assert.Equal(t, 1, e.State().CurrentPage)
	e.GoToPage(total + 10)
	assert.Equal(t, total, e.State().CurrentPage)
}

func TestEngineNextAndPreviousClamp(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(25))

	e.PreviousPage()
	assert.Equal(t, 1, e.State().CurrentPage)
	e.NextPage()
	e.NextPage()
	e.NextPage()
	assert.Equal(t, 3, e.State().CurrentPage)
	assert.Len(t, e.PaginatedListings(), 1)
	e.PreviousPage()
	assert.Equal(t, 2, e.State().CurrentPage)
}

func TestEngineClearSearchKeepsPage(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(60))
	e.Search("tea")
	e.GoToPage(2)

	e.ClearSearch()
	state := e.State()
	assert.Empty(t, state.SearchQuery)
	assert.Equal(t, 2, state.CurrentPage)
	assert.Equal(t, 60, state.TotalCount)
}

func TestEngineSetListingsClampsPage(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(60))
	e.GoToPage(5)
	e.SetListings(manyListings(13))
	assert.Equal(t, 2, e.State().CurrentPage)
}

func TestEngineRejectsInvalidTrustScore(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(30))
	require.NoError(t, e.UpdateFilter(FieldTrustScore, "100"))
	e.GoToPage(2)
	before := e.State()

	for _, bad := range []string{"abc", "", "NaN", "-1", "1001", "Inf"} {
		err := e.UpdateFilter(FieldTrustScore, bad)
		require.Error(t, err, bad)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), bad)
	}
	assert.Equal(t, before, e.State())
}

func TestEngineRejectsUnknownField(t *testing.T) {
	e := NewEngine(nil)
	err := e.UpdateFilter(FilterField("priceRange"), "10")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEngineEmptyScalarMeansAll(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(12))
	require.NoError(t, e.UpdateFilter(FieldCropType, "coffee"))
	require.NoError(t, e.UpdateFilter(FieldCropType, " "))
	assert.Equal(t, AllValues, e.State().Filters.CropType)
	assert.Equal(t, 12, e.State().TotalCount)
}

func TestEngineSnapshotIsConsistent(t *testing.T) {
	e := NewEngine(nil)
	e.SetListings(manyListings(20))
	e.NextPage()
	snap := e.Snapshot()
	assert.Equal(t, 2, snap.CurrentPage)
	assert.Len(t, snap.Listings, 8)
	assert.Equal(t, ItemsPerPage, snap.ItemsPerPage)
}

func TestEngineNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(obs)
	e.SetListings(manyListings(3))
	e.Search("tea")
	e.GoToPage(1)
	assert.Equal(t, []string{"init", "set_listings", "search"}, obs.ops)
}

func TestParseFilterField(t *testing.T) {
	cases := map[string]FilterField{
		"cropType":    FieldCropType,
		"crop_type":   FieldCropType,
		"TOKENTYPE":   FieldTokenType,
		"trust_score": FieldTrustScore,
		"sortBy":      FieldSortBy,
		"location":    FieldLocation,
	}
	for in, want := range cases {
		got, ok := ParseFilterField(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseFilterField("priceRange")
	assert.False(t, ok)
}
