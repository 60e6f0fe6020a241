package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harvestlink/agrimarket/api/controllers"
	"github.com/harvestlink/agrimarket/api/middleware"
	"github.com/harvestlink/agrimarket/internal/contact"
	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/internal/marketplace"
	"github.com/harvestlink/agrimarket/internal/site"
	"github.com/harvestlink/agrimarket/pkg/config"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubContactService struct {
	mu    sync.Mutex
	calls []contact.Inquiry
	err   error
}

var receiptID = uuid.MustParse("6f1c2d3e-4a5b-4c6d-8e7f-901234567890")

func (s *stubContactService) Submit(_ context.Context, _ string, in contact.Inquiry) (contact.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, in)
	if s.err != nil {
		return contact.Receipt{}, s.err
	}
	return contact.Receipt{ID: receiptID, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

type countingStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countingStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

type testEnv struct {
	handler  http.Handler
	contact  *stubContactService
	registry *marketplace.Registry
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Marketplace: config.MarketplaceConfig{
			SessionTTL: 30 * time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://agrimarket.example"}},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, mutate func(*Dependencies)) testEnv {
	t.Helper()
	logg := logger.Nop()
	renderer, err := site.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	reg := prometheus.NewRegistry()
	marketMetrics := metrics.NewMarketplaceMetrics(reg)
	registry, err := marketplace.NewRegistry(marketplace.RegistryParams{
		Logger:  logg,
		Source:  listings.NewMockSource(30, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Metrics: marketMetrics,
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := &stubContactService{}
	deps := Dependencies{
		Renderer:       renderer,
		Engines:        registry,
		ContactService: svc,
		Readiness:      map[string]controllers.Pinger{"db": stubPinger{}, "redis": nil},
		Gatherer:       reg,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		ChartMetrics:   marketMetrics,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return testEnv{
		handler:  NewRouter(cfg, logg, deps),
		contact:  svc,
		registry: registry,
	}
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", middleware.SessionCookie)
	return nil
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) listings.Page {
	t.Helper()
	var env struct {
		Data listings.Page `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode page: %v (%s)", err, rec.Body.String())
	}
	return env.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error: %v (%s)", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := do(t, env.handler, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Agrimarket-Env"); got != "test" {
		t.Fatalf("expected env header test, got %q", got)
	}

	rec = do(t, env.handler, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"redis":"disabled"`) {
		t.Fatalf("expected disabled redis check, got %s", rec.Body.String())
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	env := newTestEnv(t, testConfig(), func(d *Dependencies) {
		d.Readiness = map[string]controllers.Pinger{"db": stubPinger{err: errors.New("down")}}
	})
	rec := do(t, env.handler, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %q", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	do(t, env.handler, http.MethodGet, "/api/v1/marketplace", "")

	rec := do(t, env.handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"agm_http_request_duration_seconds", "agm_marketplace_sessions 1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestPagesRender(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	for _, path := range []string{"/", "/about", "/impact", "/contact", "/marketplace"} {
		rec := do(t, env.handler, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: unexpected content type %q", path, ct)
		}
		if !strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
			t.Fatalf("%s: expected full document", path)
		}
	}
}

func TestStaticStylesheet(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	rec := do(t, env.handler, http.MethodGet, "/static/site.css", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ".listing-card") {
		t.Fatal("expected stylesheet body")
	}
}

func TestMarketplacePageAppliesQuery(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	first := do(t, env.handler, http.MethodGet, "/marketplace", "")
	cookie := sessionCookie(t, first)

	rec := do(t, env.handler, http.MethodGet, "/marketplace?page=3", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	engine := env.registry.Get(cookie.Value)
	if engine == nil {
		t.Fatal("expected mounted engine for session")
	}
	if got := engine.State().CurrentPage; got != 3 {
		t.Fatalf("expected page 3, got %d", got)
	}

	rec = do(t, env.handler, http.MethodGet, "/marketplace?trust=abc", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with alert, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alert-error") {
		t.Fatal("expected validation alert on bad trust score")
	}
	if got := engine.State().CurrentPage; got != 3 {
		t.Fatalf("bad input must not change state, page=%d", got)
	}
}

func TestListingsEndpointIsStateless(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := do(t, env.handler, http.MethodGet, "/api/v1/listings?sort=price_low&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	page := decodePage(t, rec)
	if page.CurrentPage != 2 || page.TotalCount != 30 || len(page.Listings) != listings.ItemsPerPage {
		t.Fatalf("unexpected page state %+v (%d listings)", page.State, len(page.Listings))
	}
	for i := 1; i < len(page.Listings); i++ {
		if page.Listings[i].Price < page.Listings[i-1].Price {
			t.Fatalf("listings not sorted by ascending price at %d", i)
		}
	}

	rec = do(t, env.handler, http.MethodGet, "/api/v1/listings?page=99", "")
	if got := decodePage(t, rec).CurrentPage; got != 3 {
		t.Fatalf("expected page clamped to 3, got %d", got)
	}

	rec = do(t, env.handler, http.MethodGet, "/api/v1/listings?trust=2000", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for trust out of range, got %d", rec.Code)
	}
}

func TestListingFacets(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	rec := do(t, env.handler, http.MethodGet, "/api/v1/listings/facets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env2 struct {
		Data listings.FacetSet `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env2); err != nil {
		t.Fatalf("decode facets: %v", err)
	}
	if len(env2.Data.CropTypes) == 0 {
		t.Fatal("expected crop type facets")
	}
}

func TestMarketplaceSessionFlow(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := do(t, env.handler, http.MethodGet, "/api/v1/marketplace/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	initial := decodePage(t, rec)
	if initial.TotalCount != 30 || initial.CurrentPage != 1 {
		t.Fatalf("unexpected initial state %+v", initial.State)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/marketplace/next", "", cookie)
	if got := decodePage(t, rec).CurrentPage; got != 2 {
		t.Fatalf("expected page 2 after next, got %d", got)
	}

	crop := initial.Listings[0].CropType
	rec = do(t, env.handler, http.MethodPatch, "/api/v1/marketplace/filters", `{"field":"cropType","value":"`+crop+`"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("filter: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	filtered := decodePage(t, rec)
	if filtered.CurrentPage != 1 || filtered.Filters.CropType != crop {
		t.Fatalf("filter should reset page and apply crop, got %+v", filtered.State)
	}
	for _, l := range filtered.Listings {
		if l.CropType != crop {
			t.Fatalf("listing %s has crop %s, want %s", l.ID, l.CropType, crop)
		}
	}

	rec = do(t, env.handler, http.MethodPatch, "/api/v1/marketplace/filters", `{"field":"trustScore","value":500}`, cookie)
	if got := decodePage(t, rec).Filters.TrustScore; got != 500 {
		t.Fatalf("expected numeric trust score 500, got %v", got)
	}

	rec = do(t, env.handler, http.MethodPatch, "/api/v1/marketplace/filters", `{"field":"trustScore","value":"abc"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad trust score, got %d", rec.Code)
	}

	rec = do(t, env.handler, http.MethodPut, "/api/v1/marketplace/price-range", `{"min":500,"max":100}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted price range, got %d", rec.Code)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/marketplace/search", `{"query":"`+crop+`"}`, cookie)
	if got := decodePage(t, rec).SearchQuery; got != crop {
		t.Fatalf("expected search query %q, got %q", crop, got)
	}

	rec = do(t, env.handler, http.MethodDelete, "/api/v1/marketplace/search", "", cookie)
	if got := decodePage(t, rec).SearchQuery; got != "" {
		t.Fatalf("expected cleared search, got %q", got)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/marketplace/reset", "", cookie)
	reset := decodePage(t, rec)
	if reset.Filters != listings.DefaultFilters() || reset.TotalCount != 30 {
		t.Fatalf("expected defaults after reset, got %+v", reset.State)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/marketplace/page", `{"page":99}`, cookie)
	if got := decodePage(t, rec).CurrentPage; got != 3 {
		t.Fatalf("expected clamped page 3, got %d", got)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/marketplace/previous", "", cookie)
	if got := decodePage(t, rec).CurrentPage; got != 2 {
		t.Fatalf("expected page 2 after previous, got %d", got)
	}

	other := do(t, env.handler, http.MethodGet, "/api/v1/marketplace/", "")
	if got := decodePage(t, other).CurrentPage; got != 1 {
		t.Fatalf("new session must start on page 1, got %d", got)
	}
}

func TestChartRoutes(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := do(t, env.handler, http.MethodGet, "/api/v1/charts/price_history?range=7d&crop=tea", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("json chart: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Name   string    `json:"name"`
			Values []float64 `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if body.Data.Name != "price_history" || len(body.Data.Values) != 7 {
		t.Fatalf("unexpected chart payload %+v", body.Data)
	}

	rec = do(t, env.handler, http.MethodGet, "/api/v1/charts/trust_distribution.svg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("svg chart: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Fatal("expected svg markup")
	}

	rec = do(t, env.handler, http.MethodGet, "/api/v1/charts/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chart, got %d", rec.Code)
	}

	rec = do(t, env.handler, http.MethodGet, "/api/v1/charts/impact?range=5y", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad range, got %d", rec.Code)
	}
}

func TestContactRoutes(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := do(t, env.handler, http.MethodPost, "/api/v1/contact",
		`{"name":"Amina","email":"amina@example.com","subject":"Hello","message":"Interested in coffee"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.contact.calls) != 1 || env.contact.calls[0].Name != "Amina" {
		t.Fatalf("unexpected submissions %+v", env.contact.calls)
	}
	var created struct {
		Data contact.Receipt `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if created.Data.ID != receiptID {
		t.Fatalf("expected receipt id %s, got %s", receiptID, created.Data.ID)
	}

	rec = do(t, env.handler, http.MethodPost, "/api/v1/contact", `{"name":"x","unknown":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}

	form := url.Values{"name": {"Joseph"}, "email": {"joseph@example.com"}, "subject": {"Hi"}, "message": {"Tea lots"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	formRec := httptest.NewRecorder()
	env.handler.ServeHTTP(formRec, req)
	if formRec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after form post, got %d", formRec.Code)
	}
	if loc := formRec.Header().Get("Location"); loc != "/contact?sent=1" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestContactFormRerendersOnValidationError(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.contact.err = pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"email": "must be a valid email"})

	form := url.Values{"name": {"Joseph"}, "email": {"nope"}, "subject": {"Hi"}, "message": {"Tea"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "must be a valid email") || !strings.Contains(body, `value="Joseph"`) {
		t.Fatal("expected field error and preserved input in rerendered form")
	}
}

func TestAPIRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.App.APIRateLimit = 2
	cfg.App.APIRateLimitWindow = time.Minute
	env := newTestEnv(t, cfg, func(d *Dependencies) {
		d.RateLimiter = &countingStore{}
	})

	for i := 0; i < 2; i++ {
		rec := do(t, env.handler, http.MethodGet, "/api/v1/listings", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := do(t, env.handler, http.MethodGet, "/api/v1/listings", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}

	page := do(t, env.handler, http.MethodGet, "/about", "")
	if page.Code != http.StatusOK {
		t.Fatalf("pages are not rate limited, got %d", page.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/listings", nil)
	req.Header.Set("Origin", "https://agrimarket.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://agrimarket.example" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
