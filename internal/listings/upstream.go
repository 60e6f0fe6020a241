package listings

import (
	"context"

	"github.com/harvestlink/agrimarket/pkg/marketapi"
)

type upstreamClient interface {
	ListListings(ctx context.Context) ([]marketapi.Listing, error)
}

// UpstreamSource loads listings from the upstream marketplace API.
type UpstreamSource struct {
	client upstreamClient
}

// NewUpstreamSource wraps an upstream API client.
func NewUpstreamSource(client upstreamClient) *UpstreamSource {
	return &UpstreamSource{client: client}
}

// Fetch implements Source.
func (s *UpstreamSource) Fetch(ctx context.Context) ([]Listing, error) {
	remote, err := s.client.ListListings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(remote))
	for _, r := range remote {
		out = append(out, Listing{
			ID:         r.ID,
			CropType:   r.CropType,
			Farmer:     r.Farmer,
			Location:   r.Location,
			TokenType:  r.TokenType,
			Price:      r.Price.InexactFloat64(),
			TrustScore: r.TrustScore,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	return out, nil
}
