package charts

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/harvestlink/agrimarket/internal/listings"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
)

// SeriesRange is a time window preset for time-series widgets.
type SeriesRange string

const (
	Range7D  SeriesRange = "7d"
	Range30D SeriesRange = "30d"
	Range90D SeriesRange = "90d"
	Range1Y  SeriesRange = "1y"
	Range2Y  SeriesRange = "2y"

	DefaultRange = Range30D
)

// ParseRange validates a preset; empty selects DefaultRange.
func ParseRange(value string) (SeriesRange, error) {
	v := SeriesRange(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return DefaultRange, nil
	}
	if v.Days() == 0 {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid range %q", value)
	}
	return v, nil
}

// Days returns the number of daily samples in the window, or 0 for unknown presets.
func (r SeriesRange) Days() int {
	switch r {
	case Range7D:
		return 7
	case Range30D:
		return 30
	case Range90D:
		return 90
	case Range1Y:
		return 365
	case Range2Y:
		return 730
	}
	return 0
}

// Sample is one labeled data point.
type Sample struct {
	Label string
	Value float64
}

// Values extracts the numeric values in order.
func Values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

var basePrices = map[string]float64{
	"coffee": 420, "tea": 260, "maize": 90, "cocoa": 380,
	"avocado": 150, "macadamia": 510, "cashew": 300, "sorghum": 70,
}

// MockPriceHistory generates a deterministic daily price walk for cropType
// ending on end's date.
func MockPriceHistory(cropType string, rng SeriesRange, end time.Time) []Sample {
	days := rng.Days()
	if days == 0 {
		return []Sample{}
	}
	crop := strings.ToLower(strings.TrimSpace(cropType))
	price, ok := basePrices[crop]
	if !ok {
		price = 200
	}
	r := seeded("price:" + crop)
	start := dayStart(end).AddDate(0, 0, -(days - 1))
	out := make([]Sample, days)
	for i := range out {
		drift := math.Sin(float64(i)/14) * 0.01
		price = math.Max(1, price*(1+drift+(r.Float64()-0.5)*0.04))
		out[i] = Sample{
			Label: start.AddDate(0, 0, i).Format(time.DateOnly),
			Value: math.Round(price*100) / 100,
		}
	}
	return out
}

// MockTradingVolume generates deterministic daily token volumes.
func MockTradingVolume(rng SeriesRange, end time.Time) []Sample {
	days := rng.Days()
	if days == 0 {
		return []Sample{}
	}
	r := seeded("volume")
	start := dayStart(end).AddDate(0, 0, -(days - 1))
	out := make([]Sample, days)
	for i := range out {
		day := start.AddDate(0, 0, i)
		weekday := 1.0
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			weekday = 0.6
		}
		out[i] = Sample{
			Label: day.Format(time.DateOnly),
			Value: math.Round((800 + r.Float64()*1200) * weekday),
		}
	}
	return out
}

// MockImpact returns twelve monthly percentages of farmers reached, ending at end's month.
func MockImpact(end time.Time) []Sample {
	r := seeded("impact")
	month := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	value := 18.0
	out := make([]Sample, 12)
	for i := range out {
		value = math.Min(100, value+2+r.Float64()*5)
		out[i] = Sample{
			Label: month.AddDate(0, i, 0).Format("Jan 2006"),
			Value: math.Round(value*10) / 10,
		}
	}
	return out
}

// TrustBuckets are the histogram bins of the trust distribution widget.
var TrustBuckets = []struct {
	Label string
	Min   float64
}{
	{"0-199", 0},
	{"200-399", 200},
	{"400-599", 400},
	{"600-799", 600},
	{"800-1000", 800},
}

// TrustDistribution counts listings per trust score bucket.
func TrustDistribution(items []listings.Listing) []Sample {
	out := make([]Sample, len(TrustBuckets))
	for i, b := range TrustBuckets {
		out[i].Label = b.Label
	}
	for _, item := range items {
		for i := len(TrustBuckets) - 1; i >= 0; i-- {
			if item.TrustScore >= TrustBuckets[i].Min {
				out[i].Value++
				break
			}
		}
	}
	return out
}

func seeded(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
