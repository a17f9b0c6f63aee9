package orderbook

import "chart-enginev1/internal/model"

// MutationType labels one change applied during a simulation tick.
type MutationType string

const (
	MutationUpdate MutationType = "update"
	MutationAdd    MutationType = "add"
	MutationCancel MutationType = "cancel"
	MutationTrade  MutationType = "trade"
)

// Mutation describes one change applied by a tick. Side is "bid"/"ask" for
// book changes and "buy"/"sell" for trades.
type Mutation struct {
	Type    MutationType `json:"type"`
	Side    string       `json:"side,omitempty"`
	OrderID string       `json:"orderId,omitempty"`
	NewSize float64      `json:"newSize,omitempty"`
	Price   float64      `json:"price,omitempty"`
	Size    float64      `json:"size,omitempty"`
}

// Event is the closed set of notifications published by an Engine.
type Event interface {
	orderBookEvent()
}

// Update is published once per tick after all of its mutations.
type Update struct {
	Updates []Mutation       `json:"updates"`
	Book    model.OrderBook  `json:"orderbook"`
	Market  model.MarketData `json:"marketData"`
}

type Trade struct {
	Price  float64         `json:"price"`
	Size   float64         `json:"size"`
	Filled float64         `json:"filled"`
	Side   model.TradeSide `json:"side"`
}

type OrderAdded struct {
	Side  model.Side  `json:"side"`
	Order model.Order `json:"order"`
}

// OrderUpdated reports a size change; NewSize 0 means the order was removed.
type OrderUpdated struct {
	OrderID string     `json:"orderId"`
	NewSize float64    `json:"newSize"`
	Side    model.Side `json:"side"`
}

type Reset struct {
	Book model.OrderBook `json:"orderbook"`
}

func (Update) orderBookEvent()       {}
func (Trade) orderBookEvent()        {}
func (OrderAdded) orderBookEvent()   {}
func (OrderUpdated) orderBookEvent() {}
func (Reset) orderBookEvent()        {}

// EventName returns the wire name of ev.
func EventName(ev Event) string {
	switch ev.(type) {
	case Update:
		return "update"
	case Trade:
		return "trade"
	case OrderAdded:
		return "orderAdded"
	case OrderUpdated:
		return "orderUpdated"
	case Reset:
		return "reset"
	}
	return "unknown"
}
