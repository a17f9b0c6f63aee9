// Package orderbook simulates a limit order book with price-time priority.
//
// Engine is safe for concurrent use. A single mutex guards the book; events
// raised by an operation are queued while the lock is held and delivered
// after it is released, so subscribers always see a fully applied state and
// may call back into the engine.
package orderbook

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chart-enginev1/internal/event"
	"chart-enginev1/internal/model"
	"chart-enginev1/internal/schedule"
)

// Engine owns one simulated order book.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	book    model.OrderBook
	md      model.MarketData
	rng     *rand.Rand
	running bool
	cancel  func()
	pending []Event

	now    func() time.Time
	sched  schedule.Scheduler
	logger *slog.Logger
	bus    *event.Bus[Event]
}

// Option customises an Engine.
type Option func(*Engine)

// WithScheduler sets the tick source. The default is a wall-clock ticker.
func WithScheduler(s schedule.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithLogger sets the logger used for subscriber failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the time source for order and book timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the random source, overriding Config.Seed.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New validates cfg (after defaults) and builds an initialized book of
// MaxRows levels per side around BasePrice. The engine is not running.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.sched == nil {
		e.sched = schedule.NewTicker()
	}
	if e.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}
	e.bus = event.NewBus[Event]("orderbook", e.logger)
	e.md.LastTrade = model.LastTrade{Side: model.Buy, Time: e.now()}

	e.mu.Lock()
	e.initialize()
	e.pending = nil
	e.mu.Unlock()
	return e, nil
}

// Subscribe registers fn for all engine events.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// ── Price grid ──

// level returns price shifted by steps price steps in decimal arithmetic,
// so repeated steps do not accumulate binary rounding error.
func (e *Engine) level(price float64, steps int64) float64 {
	step := decimal.NewFromFloat(e.cfg.PriceStep).Mul(decimal.NewFromInt(steps))
	return decimal.NewFromFloat(price).Add(step).InexactFloat64()
}

func (e *Engine) newID() string {
	id, err := uuid.NewRandomFromReader(e.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// randomSize draws from three tiers: 40% small, 40% medium, 20% large.
func (e *Engine) randomSize() float64 {
	r := e.rng.Float64()
	switch {
	case r < 0.4:
		return e.rng.Float64()*50 + 1
	case r < 0.8:
		return e.rng.Float64()*150 + 50
	default:
		return e.rng.Float64()*(math.Max(e.cfg.MaxSize, 200)-200) + 200
	}
}

// initialize rebuilds both sides. Caller holds mu.
func (e *Engine) initialize() {
	now := e.now()
	rows := e.cfg.MaxRows
	bids := make([]model.Order, 0, rows)
	asks := make([]model.Order, 0, rows)
	for i := 0; i < rows; i++ {
		age := time.Duration(e.rng.Float64() * float64(time.Minute))
		bids = append(bids, model.Order{
			ID:        e.newID(),
			Price:     e.level(e.cfg.BasePrice, -int64(i+1)),
			Size:      e.randomSize(),
			Timestamp: now.Add(-age),
		})
	}
	for i := 0; i < rows; i++ {
		age := time.Duration(e.rng.Float64() * float64(time.Minute))
		asks = append(asks, model.Order{
			ID:        e.newID(),
			Price:     e.level(e.cfg.BasePrice, int64(i+1)),
			Size:      e.randomSize(),
			Timestamp: now.Add(-age),
		})
	}
	e.book.Bids = bids
	e.book.Asks = asks
	e.recompute()
	e.touch()
}

// touch marks a structural change. Caller holds mu.
func (e *Engine) touch() {
	e.book.LastUpdate = e.now()
	e.book.Sequence++
}

// recompute refreshes cumulative totals and the derived market data.
// Caller holds mu.
func (e *Engine) recompute() {
	var bidTotal, askTotal float64
	for i := range e.book.Bids {
		bidTotal += e.book.Bids[i].Size
		e.book.Bids[i].Total = bidTotal
	}
	for i := range e.book.Asks {
		askTotal += e.book.Asks[i].Size
		e.book.Asks[i].Total = askTotal
	}

	e.md.Spread = model.Spread{}
	if len(e.book.Bids) > 0 && len(e.book.Asks) > 0 {
		bid := decimal.NewFromFloat(e.book.Bids[0].Price)
		abs := decimal.NewFromFloat(e.book.Asks[0].Price).Sub(bid)
		e.md.Spread.Absolute = abs.InexactFloat64()
		if !bid.IsZero() {
			e.md.Spread.Percentage = abs.Div(bid).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
	}

	e.md.Volume = model.Volume{BidTotal: bidTotal, AskTotal: askTotal}
	if askTotal > 0 {
		e.md.Volume.Ratio = bidTotal / askTotal
	}
}

func (e *Engine) side(s model.Side) *[]model.Order {
	if s == model.SideBid {
		return &e.book.Bids
	}
	return &e.book.Asks
}

// ── Delivery ──

func (e *Engine) emit(ev Event) { e.pending = append(e.pending, ev) }

// unlockAndFlush releases mu and then delivers the queued events.
func (e *Engine) unlockAndFlush() {
	evs := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, ev := range evs {
		e.bus.Publish(ev)
	}
}

// ── Mutations ──

// AddOrder inserts a resting order behind any orders at the same price.
// It is rejected when price or size is not positive, when the order would
// cross the book, or when it would land beyond MaxRows.
func (e *Engine) AddOrder(side model.Side, price, size float64) (model.Order, bool) {
	e.mu.Lock()
	o, ok := e.addOrder(side, price, size)
	if ok {
		e.touch()
	}
	e.unlockAndFlush()
	return o, ok
}

func (e *Engine) addOrder(side model.Side, price, size float64) (model.Order, bool) {
	if !(price > 0) || !(size > 0) || math.IsInf(price, 0) || math.IsInf(size, 0) {
		return model.Order{}, false
	}
	if side != model.SideBid && side != model.SideAsk {
		return model.Order{}, false
	}
	if side == model.SideBid && len(e.book.Asks) > 0 && price >= e.book.Asks[0].Price {
		return model.Order{}, false
	}
	if side == model.SideAsk && len(e.book.Bids) > 0 && price <= e.book.Bids[0].Price {
		return model.Order{}, false
	}

	orders := e.side(side)
	idx := sort.Search(len(*orders), func(i int) bool {
		if side == model.SideBid {
			return (*orders)[i].Price < price
		}
		return (*orders)[i].Price > price
	})
	if idx >= e.cfg.MaxRows {
		return model.Order{}, false
	}

	o := model.Order{ID: e.newID(), Price: price, Size: size, Timestamp: e.now()}
	*orders = append(*orders, model.Order{})
	copy((*orders)[idx+1:], (*orders)[idx:])
	(*orders)[idx] = o
	if len(*orders) > e.cfg.MaxRows {
		*orders = (*orders)[:e.cfg.MaxRows]
	}

	e.recompute()
	o = (*orders)[idx]
	e.emit(OrderAdded{Side: side, Order: o})
	return o, true
}

// UpdateOrder sets the size of the order with id. A size of zero or less
// removes it. It reports whether the id was found.
func (e *Engine) UpdateOrder(id string, newSize float64) bool {
	e.mu.Lock()
	_, ok := e.updateOrder(id, newSize)
	if ok {
		e.touch()
	}
	e.unlockAndFlush()
	return ok
}

// RemoveOrder is UpdateOrder(id, 0).
func (e *Engine) RemoveOrder(id string) bool {
	return e.UpdateOrder(id, 0)
}

func (e *Engine) updateOrder(id string, newSize float64) (model.Side, bool) {
	if math.IsNaN(newSize) || newSize < 0 {
		newSize = 0
	}
	for _, s := range []model.Side{model.SideBid, model.SideAsk} {
		orders := e.side(s)
		for i := range *orders {
			if (*orders)[i].ID != id {
				continue
			}
			if newSize == 0 {
				*orders = append((*orders)[:i], (*orders)[i+1:]...)
			} else {
				(*orders)[i].Size = newSize
			}
			e.recompute()
			e.emit(OrderUpdated{OrderID: id, NewSize: newSize, Side: s})
			return s, true
		}
	}
	return "", false
}

// ExecuteTrade matches an aggressor of the given side against the opposite
// side from the best price inward, stopping at price. It returns the filled
// size and records the trade as the last trade.
func (e *Engine) ExecuteTrade(price, size float64, side model.TradeSide) float64 {
	e.mu.Lock()
	filled, ok := e.executeTrade(price, size, side)
	if ok {
		e.touch()
	}
	e.unlockAndFlush()
	return filled
}

func (e *Engine) executeTrade(price, size float64, side model.TradeSide) (float64, bool) {
	if !(price > 0) || !(size > 0) || (side != model.Buy && side != model.Sell) {
		return 0, false
	}
	resting := side.RestingSide()
	orders := e.side(resting)

	remaining, filled := size, 0.0
	kept := (*orders)[:0]
	for _, o := range *orders {
		crosses := o.Price <= price
		if resting == model.SideBid {
			crosses = o.Price >= price
		}
		switch {
		case remaining <= 0 || !crosses:
			kept = append(kept, o)
		case o.Size <= remaining:
			remaining -= o.Size
			filled += o.Size
		default:
			o.Size -= remaining
			filled += remaining
			remaining = 0
			kept = append(kept, o)
		}
	}
	*orders = kept

	e.md.LastTrade = model.LastTrade{Price: price, Size: size, Side: side, Time: e.now()}
	e.recompute()
	e.emit(Trade{Price: price, Size: size, Filled: filled, Side: side})
	return filled, true
}

// ── Simulation ──

// Tick applies one simulated step and publishes an Update after it. It
// runs regardless of whether the engine is started.
func (e *Engine) Tick() []Mutation {
	e.mu.Lock()
	updates := e.tick()
	e.unlockAndFlush()
	return updates
}

func (e *Engine) scheduledTick() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.tick()
	e.unlockAndFlush()
}

// tick mutates the book and queues the tick's events. Caller holds mu.
func (e *Engine) tick() []Mutation {
	e.replenish()

	n := e.rng.Intn(3) + 1
	updates := make([]Mutation, 0, n)
	w := e.cfg.Weights
	total := w.sum()
	for i := 0; i < n; i++ {
		r := e.rng.Float64() * total
		var m *Mutation
		switch {
		case r < w.Update:
			m = e.simulateUpdate()
		case r < w.Update+w.Add:
			m = e.simulateAdd()
		case r < w.Update+w.Add+w.Cancel:
			m = e.simulateCancel()
		default:
			m = e.simulateTrade()
		}
		if m != nil {
			updates = append(updates, *m)
		}
	}

	e.touch()
	e.emit(Update{Updates: updates, Book: e.book.Clone(), Market: e.md})
	return updates
}

// replenish extends thin sides one step beyond their worst price until the
// depth floor is met. An empty side is seeded one step beyond the opposite
// best, or around BasePrice when both sides are empty.
func (e *Engine) replenish() {
	floor := e.cfg.minOrders()
	now := e.now()
	changed := false
	bidAnchor, askAnchor := e.cfg.BasePrice, e.cfg.BasePrice
	if len(e.book.Asks) > 0 {
		bidAnchor = e.book.Asks[0].Price
	}
	if len(e.book.Bids) > 0 {
		askAnchor = e.book.Bids[0].Price
	}
	for len(e.book.Bids) < floor {
		last := bidAnchor
		if n := len(e.book.Bids); n > 0 {
			last = e.book.Bids[n-1].Price
		}
		price := e.level(last, -1)
		if price <= 0 {
			break
		}
		e.book.Bids = append(e.book.Bids, model.Order{ID: e.newID(), Price: price, Size: e.randomSize(), Timestamp: now})
		changed = true
	}
	for len(e.book.Asks) < floor {
		last := askAnchor
		if n := len(e.book.Asks); n > 0 {
			last = e.book.Asks[n-1].Price
		}
		e.book.Asks = append(e.book.Asks, model.Order{ID: e.newID(), Price: e.level(last, 1), Size: e.randomSize(), Timestamp: now})
		changed = true
	}
	if !changed {
		return
	}
	sort.SliceStable(e.book.Bids, func(i, j int) bool { return e.book.Bids[i].Price > e.book.Bids[j].Price })
	sort.SliceStable(e.book.Asks, func(i, j int) bool { return e.book.Asks[i].Price < e.book.Asks[j].Price })
	e.recompute()
}

func (e *Engine) randomSide() model.Side {
	if e.rng.Float64() > 0.5 {
		return model.SideBid
	}
	return model.SideAsk
}

// simulateUpdate perturbs an order among the best 80% of a side by up to
// 5% of MaxSize either way, never below 30% of its size.
func (e *Engine) simulateUpdate() *Mutation {
	side := e.randomSide()
	orders := *e.side(side)
	if len(orders) == 0 {
		return nil
	}
	span := min(len(orders), int(math.Floor(float64(len(orders))*0.8)))
	o := orders[int(math.Floor(e.rng.Float64()*float64(span)))]

	change := (e.rng.Float64() - 0.5) * e.cfg.MaxSize * 0.1
	newSize := math.Max(o.Size*0.3, o.Size+change)
	e.updateOrder(o.ID, newSize)
	return &Mutation{Type: MutationUpdate, Side: string(side), OrderID: o.ID, NewSize: newSize}
}

// simulateAdd improves a side by one step if that does not cross the book.
func (e *Engine) simulateAdd() *Mutation {
	side := e.randomSide()
	bids, asks := e.book.Bids, e.book.Asks
	var price float64
	switch {
	case side == model.SideBid && len(bids) > 0:
		price = e.level(bids[0].Price, 1)
		if len(asks) > 0 && price >= asks[0].Price {
			return nil
		}
	case side == model.SideAsk && len(asks) > 0:
		price = e.level(asks[0].Price, -1)
		if len(bids) > 0 && price <= bids[0].Price {
			return nil
		}
	default:
		return nil
	}
	size := e.randomSize()*0.5 + 10
	if _, ok := e.addOrder(side, price, size); !ok {
		return nil
	}
	return &Mutation{Type: MutationAdd, Side: string(side), Price: price, Size: size}
}

// simulateCancel removes one of the five orders just beyond the depth floor.
func (e *Engine) simulateCancel() *Mutation {
	side := e.randomSide()
	orders := *e.side(side)
	floor := e.cfg.minOrders()
	if len(orders) <= floor {
		return nil
	}
	idx := int(math.Floor(e.rng.Float64()*float64(min(len(orders)-floor, 5)))) + floor
	id := orders[idx].ID
	e.updateOrder(id, 0)
	return &Mutation{Type: MutationCancel, Side: string(side), OrderID: id}
}

// simulateTrade takes up to half of the best order on a random side, capped
// at a small random size.
func (e *Engine) simulateTrade() *Mutation {
	if len(e.book.Bids) == 0 || len(e.book.Asks) == 0 {
		return nil
	}
	side := model.Sell
	if e.rng.Float64() > 0.5 {
		side = model.Buy
	}
	best := (*e.side(side.RestingSide()))[0]
	size := math.Min(best.Size*0.5, e.rng.Float64()*20+1)
	if _, ok := e.executeTrade(best.Price, size, side); !ok {
		return nil
	}
	return &Mutation{Type: MutationTrade, Side: string(side), Price: best.Price, Size: size}
}

// ── Lifecycle ──

// Start begins ticking every UpdateInterval. It is a no-op when running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.cancel = e.sched.Every(e.cfg.UpdateInterval, e.scheduledTick)
}

// Stop halts ticking. No tick starts after Stop returns. It is safe to call
// repeatedly and from inside a subscriber.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Reset stops the engine and rebuilds the book. The sequence keeps counting.
func (e *Engine) Reset() {
	e.Stop()
	e.mu.Lock()
	e.initialize()
	e.emit(Reset{Book: e.book.Clone()})
	e.unlockAndFlush()
}

// UpdateConfig replaces the configuration. A running engine whose interval
// changed is restarted on the new interval. The seed only applies at New.
func (e *Engine) UpdateConfig(cfg Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	restart := e.running && cfg.UpdateInterval != e.cfg.UpdateInterval
	e.cfg = cfg
	e.mu.Unlock()

	if restart {
		e.Stop()
		e.Start()
	}
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// ── Queries ──

// OrderBook returns a copy of the book.
func (e *Engine) OrderBook() model.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Clone()
}

// MarketData returns a copy of the derived statistics.
func (e *Engine) MarketData() model.MarketData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.md
}

func (e *Engine) BestPrices() model.BestPrices {
	e.mu.Lock()
	defer e.mu.Unlock()
	var bp model.BestPrices
	if len(e.book.Bids) > 0 {
		bp.Bid, bp.HasBid = e.book.Bids[0].Price, true
	}
	if len(e.book.Asks) > 0 {
		bp.Ask, bp.HasAsk = e.book.Asks[0].Price, true
	}
	return bp
}
