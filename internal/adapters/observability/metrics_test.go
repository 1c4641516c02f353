package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pricedrop/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample of each family so they show up in the output
	observability.ObserveHTTP("/v1/compare", "POST", 200, 12*time.Millisecond)
	observability.ObserveExternal("gemini", "generate_search", 200, 8*time.Second)
	observability.ObserveFallback("partner", "parse")
	observability.ObservePriceRepair("broad", "missing")
	observability.ObserveDecision("SAVINGS_FOUND_PARTNER")
	observability.ObserveQuota("deny")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"pricedrop_http_requests_total",
		`pricedrop_external_requests_total{endpoint="generate_search",service="gemini",status="200"}`,
		`pricedrop_offer_fallbacks_total{pass="partner",reason="parse"}`,
		`pricedrop_price_repairs_total{pass="broad",reason="missing"}`,
		`pricedrop_comparison_results_total{status="SAVINGS_FOUND_PARTNER"}`,
		`pricedrop_quota_events_total{event="deny"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	if l := observability.NewLogger("prod", "api", "warn"); l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %s", l.GetLevel())
	}
	if l := observability.NewLogger("dev", "recheck", "nonsense"); l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", l.GetLevel())
	}
}
