package listings

import (
	"fmt"
	"strings"
	"time"

	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/marketapi"
	"gorm.io/gorm"
)

// SourceParams pick and configure the primary listing source.
type SourceParams struct {
	Kind      string
	DB        *gorm.DB
	Upstream  config.UpstreamConfig
	MockCount int
	Now       time.Time
}

// SelectSource builds the source named by Kind (db, upstream or mock).
func SelectSource(params SourceParams) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(params.Kind)) {
	case config.ListingSourceDB:
		if params.DB == nil {
			return nil, fmt.Errorf("database required for %s listing source", config.ListingSourceDB)
		}
		return NewRepository(params.DB), nil
	case config.ListingSourceUpstream:
		client, err := marketapi.NewClient(params.Upstream)
		if err != nil {
			return nil, fmt.Errorf("upstream marketplace client: %w", err)
		}
		return NewUpstreamSource(client), nil
	case config.ListingSourceMock:
		now := params.Now
		if now.IsZero() {
			now = time.Now()
		}
		return NewMockSource(params.MockCount, now), nil
	default:
		return nil, fmt.Errorf("unknown listing source %q", params.Kind)
	}
}
