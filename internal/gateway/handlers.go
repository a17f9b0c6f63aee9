package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"chart-enginev1/internal/logger"
	"chart-enginev1/internal/model"
	"chart-enginev1/internal/orderbook"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Book is the order book surface served over REST. *orderbook.Engine
// satisfies it.
type Book interface {
	OrderBook() model.OrderBook
	MarketData() model.MarketData
	BestPrices() model.BestPrices
	AddOrder(side model.Side, price, size float64) (model.Order, bool)
	ExecuteTrade(price, size float64, side model.TradeSide) float64
	Reset()
	Running() bool
	Config() orderbook.Config
	UpdateConfig(cfg orderbook.Config) error
}

var _ Book = (*orderbook.Engine)(nil)

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

type orderRequest struct {
	Side  model.Side      `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type tradeRequest struct {
	Side  model.TradeSide `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// RegisterRoutes registers the WebSocket and REST routes on mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, book Book) {
	processStart := time.Now()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleWSRequest(conn, r.URL.Query().Get("last_ts"))
	})

	mux.HandleFunc("/api/orderbook", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, book.OrderBook())
	}))

	mux.HandleFunc("/api/marketdata", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, book.MarketData())
	}))

	mux.HandleFunc("/api/best", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, book.BestPrices())
	}))

	// Gap backfill: /api/missed?channel=update&from=10&to=20
	mux.HandleFunc("/api/missed", get(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		channel := q.Get("channel")
		from, errFrom := strconv.ParseInt(q.Get("from"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("to"), 10, 64)
		if channel == "" || errFrom != nil || errTo != nil || from > to {
			writeError(w, http.StatusBadRequest, "channel, from and to are required")
			return
		}
		msgs := hub.GetReplayRange(channel, from, to)
		out := make([]json.RawMessage, len(msgs))
		for i, m := range msgs {
			out[i] = m
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"channel":  channel,
			"oldest":   hub.OldestReplaySeq(channel),
			"current":  hub.GetChannelSeq(channel),
			"messages": out,
		})
	}))

	mux.HandleFunc("/api/stats", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ws_clients":   hub.ClientCount(),
			"channel_seqs": hub.ChannelSeqs(),
			"latency":      hub.Latency.Stats(),
			"running":      book.Running(),
			"uptime_sec":   int64(time.Since(processStart).Seconds()),
		})
	}))

	mux.HandleFunc("/api/orders", post(func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Side != model.SideBid && req.Side != model.SideAsk {
			writeError(w, http.StatusBadRequest, "side must be bid or ask")
			return
		}
		order, ok := book.AddOrder(req.Side, req.Price.InexactFloat64(), req.Size.InexactFloat64())
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "order rejected")
			return
		}
		logger.FromContext(r.Context()).Info("order added", "side", req.Side, "price", order.Price, "size", order.Size)
		writeJSON(w, http.StatusCreated, order)
	}))

	mux.HandleFunc("/api/trades", post(func(w http.ResponseWriter, r *http.Request) {
		var req tradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Side != model.Buy && req.Side != model.Sell {
			writeError(w, http.StatusBadRequest, "side must be buy or sell")
			return
		}
		filled := book.ExecuteTrade(req.Price.InexactFloat64(), req.Size.InexactFloat64(), req.Side)
		logger.FromContext(r.Context()).Info("trade executed", "side", req.Side, "filled", filled)
		writeJSON(w, http.StatusOK, map[string]float64{"filled": filled})
	}))

	mux.HandleFunc("/api/reset", post(func(w http.ResponseWriter, r *http.Request) {
		book.Reset()
		writeJSON(w, http.StatusOK, book.OrderBook())
	}))

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			writeJSON(w, http.StatusOK, book.Config())
		case http.MethodPut, http.MethodPost:
			// start from the current config so partial bodies work
			cfg := book.Config()
			if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if err := book.UpdateConfig(cfg); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.FromContext(r.Context()).Info("orderbook config updated")
			writeJSON(w, http.StatusOK, book.Config())
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func get(h http.HandlerFunc) http.HandlerFunc  { return only(http.MethodGet, h) }
func post(h http.HandlerFunc) http.HandlerFunc { return only(http.MethodPost, h) }

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
