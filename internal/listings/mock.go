package listings

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var (
	mockCropTypes = []string{"coffee", "tea", "maize", "cocoa", "avocado", "macadamia", "cashew", "sorghum"}
	mockLocations = []string{"Nyeri", "Kericho", "Eldoret", "Kisii", "Meru", "Mbale", "Arusha", "Kigali"}
	mockTokens    = []string{"DFFT", "DFRT"}
	mockFarmers   = []string{
		"Amina Njeri", "Joseph Otieno", "Grace Wanjiru", "Peter Mwangi", "Faith Achieng",
		"Samuel Kiprop", "Mary Nakato", "David Mugisha", "Esther Uwase", "John Baraka",
	}
	// base prices per crop, in token units
	mockBasePrice = map[string]float64{
		"coffee": 420, "tea": 260, "maize": 90, "cocoa": 380,
		"avocado": 150, "macadamia": 510, "cashew": 300, "sorghum": 70,
	}
)

// GenerateMock builds n deterministic demo listings created over the 90 days before end.
func GenerateMock(n int, seed uint64, end time.Time) []Listing {
	if n <= 0 {
		return []Listing{}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	end = end.UTC().Truncate(time.Minute)
	out := make([]Listing, 0, n)
	for i := 0; i < n; i++ {
		crop := mockCropTypes[rng.IntN(len(mockCropTypes))]
		price := mockBasePrice[crop] * (0.7 + rng.Float64()*0.8)
		out = append(out, Listing{
			ID:         fmt.Sprintf("lst-%04d", i+1),
			CropType:   crop,
			Farmer:     mockFarmers[rng.IntN(len(mockFarmers))],
			Location:   mockLocations[rng.IntN(len(mockLocations))],
			TokenType:  mockTokens[rng.IntN(len(mockTokens))],
			Price:      math.Round(price*100) / 100,
			TrustScore: float64(200 + rng.IntN(801)),
			CreatedAt:  end.Add(-time.Duration(rng.IntN(90*24*60)) * time.Minute),
		})
	}
	return out
}

// MockSource serves a fixed generated listing set.
type MockSource struct {
	items []Listing
}

// NewMockSource generates count listings anchored at now.
func NewMockSource(count int, now time.Time) *MockSource {
	return &MockSource{items: GenerateMock(count, 42, now)}
}

// Fetch implements Source.
func (s *MockSource) Fetch(context.Context) ([]Listing, error) {
	out := make([]Listing, len(s.items))
	copy(out, s.items)
	return out, nil
}
