package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"chart-enginev1/internal/model"
	"chart-enginev1/internal/orderbook"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	book := model.OrderBook{
		Bids:     []model.Order{{Price: 99, Size: 1}, {Price: 98, Size: 2}},
		Asks:     []model.Order{{Price: 101, Size: 3}},
		Sequence: 7,
	}
	md := model.MarketData{
		Spread: model.Spread{Absolute: 2, Percentage: 2.02},
		Volume: model.Volume{BidTotal: 3, AskTotal: 3},
	}
	m.Observe(orderbook.Update{
		Updates: []orderbook.Mutation{{Type: orderbook.MutationAdd}, {Type: orderbook.MutationAdd}, {Type: orderbook.MutationTrade}},
		Book:    book,
		Market:  md,
	})
	m.Observe(orderbook.Trade{Price: 101, Size: 5, Filled: 3, Side: model.Buy})

	out := scrape(t, reg)
	for _, want := range []string{
		"orderbook_updates_total 1",
		`orderbook_mutations_total{type="add"} 2`,
		`orderbook_mutations_total{type="trade"} 1`,
		`orderbook_trades_total{side="buy"} 1`,
		"orderbook_trade_volume_total 3",
		`orderbook_levels{side="bid"} 2`,
		`orderbook_depth{side="ask"} 3`,
		"orderbook_sequence 7",
		"orderbook_spread 2",
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	srv := NewServer(":0", NewHealthStatus(), reg)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestHealthStatus(t *testing.T) {
	h := NewHealthStatus()

	code, status := getHealth(t, h)
	if code != http.StatusServiceUnavailable || status != "unhealthy" {
		t.Errorf("stopped engine: got %d %s", code, status)
	}

	h.SetEngineRunning(true)
	code, status = getHealth(t, h)
	if code != http.StatusOK || status != "healthy" {
		t.Errorf("running engine without deps: got %d %s", code, status)
	}

	h.EnableRedis()
	code, status = getHealth(t, h)
	if code != http.StatusServiceUnavailable || status != "degraded" {
		t.Errorf("unreachable redis: got %d %s", code, status)
	}
}

func getHealth(t *testing.T, h *HealthStatus) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body.Status
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.WSClients.Set(3)

	out := scrape(t, reg)
	if !strings.Contains(out, "gateway_ws_clients 3\n") {
		t.Errorf("expected ws client gauge in output:\n%s", out)
	}
}
