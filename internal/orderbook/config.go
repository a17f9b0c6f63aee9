package orderbook

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Weights are the relative probabilities of the four simulated event kinds.
// They need not sum to one.
type Weights struct {
	Update float64 `yaml:"update" json:"update"`
	Add    float64 `yaml:"add" json:"add"`
	Cancel float64 `yaml:"cancel" json:"cancel"`
	Trade  float64 `yaml:"trade" json:"trade"`
}

func (w Weights) sum() float64 { return w.Update + w.Add + w.Cancel + w.Trade }

// Config controls the simulated book. Zero fields take the defaults.
type Config struct {
	BasePrice      float64       `yaml:"base_price" json:"basePrice"`
	PriceStep      float64       `yaml:"price_step" json:"priceStep"`
	MaxSize        float64       `yaml:"max_size" json:"maxSize"`
	UpdateInterval time.Duration `yaml:"update_interval" json:"updateInterval"`
	MaxRows        int           `yaml:"max_rows" json:"maxRows"`

	// DepthFloor is the fraction of MaxRows each side is replenished to
	// before a tick and below which cancellations never reach.
	DepthFloor float64 `yaml:"depth_floor" json:"depthFloor"`
	Weights    Weights `yaml:"weights" json:"weights"`

	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the standard simulation around 50000.
func DefaultConfig() Config {
	return Config{
		BasePrice:      50000,
		PriceStep:      0.01,
		MaxSize:        1000,
		UpdateInterval: 100 * time.Millisecond,
		MaxRows:        20,
		DepthFloor:     0.7,
		Weights:        Weights{Update: 0.5, Add: 0.3, Cancel: 0.15, Trade: 0.05},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.BasePrice == 0 {
		c.BasePrice = d.BasePrice
	}
	if c.PriceStep == 0 {
		c.PriceStep = d.PriceStep
	}
	if c.MaxSize == 0 {
		c.MaxSize = d.MaxSize
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	if c.MaxRows == 0 {
		c.MaxRows = d.MaxRows
	}
	if c.DepthFloor == 0 {
		c.DepthFloor = d.DepthFloor
	}
	if c.Weights.sum() == 0 {
		c.Weights = d.Weights
	}
	return c
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if !(c.BasePrice > 0) || math.IsInf(c.BasePrice, 0) {
		errs = append(errs, fmt.Errorf("base price must be positive, got %v", c.BasePrice))
	}
	if !(c.PriceStep > 0) || c.PriceStep*float64(c.MaxRows+1) >= c.BasePrice {
		errs = append(errs, fmt.Errorf("price step %v must be positive and keep %d bid levels above zero", c.PriceStep, c.MaxRows))
	}
	if !(c.MaxSize > 0) {
		errs = append(errs, fmt.Errorf("max size must be positive, got %v", c.MaxSize))
	}
	if c.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update interval must be positive, got %v", c.UpdateInterval))
	}
	if c.MaxRows <= 0 {
		errs = append(errs, fmt.Errorf("max rows must be positive, got %d", c.MaxRows))
	}
	if c.DepthFloor < 0 || c.DepthFloor > 1 {
		errs = append(errs, fmt.Errorf("depth floor must be in [0, 1], got %v", c.DepthFloor))
	}
	w := c.Weights
	if w.Update < 0 || w.Add < 0 || w.Cancel < 0 || w.Trade < 0 || w.sum() <= 0 {
		errs = append(errs, fmt.Errorf("weights must be non-negative with a positive sum, got %+v", w))
	}
	return errors.Join(errs...)
}

// minOrders is the per-side depth floor in orders.
func (c Config) minOrders() int {
	return int(math.Floor(float64(c.MaxRows) * c.DepthFloor))
}
