package model

import "time"

// Side is one side of the order book.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// TradeSide is the aggressor side of a trade. A buy consumes asks.
type TradeSide string

const (
	Buy  TradeSide = "buy"
	Sell TradeSide = "sell"
)

// RestingSide returns the book side an aggressor of this side trades against.
func (t TradeSide) RestingSide() Side {
	if t == Buy {
		return SideAsk
	}
	return SideBid
}

// Order is a resting limit order. Total is the cumulative size from the best
// price of its side down to and including this order.
type Order struct {
	ID        string    `json:"id"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderBook is a snapshot of both sides. Bids are sorted best (highest)
// first, asks best (lowest) first.
type OrderBook struct {
	Bids       []Order   `json:"bids"`
	Asks       []Order   `json:"asks"`
	LastUpdate time.Time `json:"lastUpdate"`
	Sequence   int64     `json:"sequence"`
}

// Clone returns a deep copy.
func (b OrderBook) Clone() OrderBook {
	out := b
	out.Bids = append([]Order(nil), b.Bids...)
	out.Asks = append([]Order(nil), b.Asks...)
	return out
}

type Spread struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
}

type LastTrade struct {
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Side  TradeSide `json:"side"`
	Time  time.Time `json:"time"`
}

type Volume struct {
	BidTotal float64 `json:"bidTotal"`
	AskTotal float64 `json:"askTotal"`
	Ratio    float64 `json:"ratio"`
}

// MarketData is derived from an OrderBook plus the last trade.
type MarketData struct {
	Spread    Spread    `json:"spread"`
	LastTrade LastTrade `json:"lastTrade"`
	Volume    Volume    `json:"volume"`
}

// BestPrices holds the top of book. HasBid/HasAsk are false for an empty side.
type BestPrices struct {
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	HasBid bool    `json:"hasBid"`
	HasAsk bool    `json:"hasAsk"`
}
