package aggregators

import (
	"math"
	"sync/atomic"

	"github.com/Ahmed-Sermani/okapi/bsp"
)

var (
	_ bsp.Aggregator = (*Float64Aggregator)(nil)
	_ bsp.Aggregator = (*Float64MinAggregator)(nil)
	_ bsp.Aggregator = (*Float64MaxAggregator)(nil)
)

// float64Value stores a float64 as its bit pattern so that it can be updated
// with atomic compare-and-swap operations.
type float64Value struct {
	bits uint64
}

func (f *float64Value) load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.bits))
}

func (f *float64Value) store(v float64) {
	atomic.StoreUint64(&f.bits, math.Float64bits(v))
}

// update applies fn to the current value until the CAS succeeds.
func (f *float64Value) update(fn func(cur float64) float64) {
	for {
		oldBits := atomic.LoadUint64(&f.bits)
		newVal := fn(math.Float64frombits(oldBits))
		if atomic.CompareAndSwapUint64(&f.bits, oldBits, math.Float64bits(newVal)) {
			return
		}
	}
}

// Float64Aggregator sums float64 values.
type Float64Aggregator struct {
	sum float64Value
}

// NewFloat64Aggregator is a bsp.AggregatorFactory for Float64Aggregator.
func NewFloat64Aggregator() bsp.Aggregator { return new(Float64Aggregator) }

func (a *Float64Aggregator) Type() string {
	return "Float64Aggregator"
}

func (a *Float64Aggregator) Get() any {
	return a.sum.load()
}

func (a *Float64Aggregator) Set(v any) {
	a.sum.store(v.(float64))
}

func (a *Float64Aggregator) Aggregate(v any) {
	v64 := v.(float64)
	a.sum.update(func(cur float64) float64 { return cur + v64 })
}

// Float64MinAggregator keeps the smallest aggregated value. Its initial
// value is +Inf.
type Float64MinAggregator struct {
	min float64Value
}

// NewFloat64MinAggregator is a bsp.AggregatorFactory for Float64MinAggregator.
func NewFloat64MinAggregator() bsp.Aggregator {
	a := new(Float64MinAggregator)
	a.min.store(math.Inf(1))
	return a
}

func (a *Float64MinAggregator) Type() string {
	return "Float64MinAggregator"
}

func (a *Float64MinAggregator) Get() any {
	return a.min.load()
}

func (a *Float64MinAggregator) Set(v any) {
	a.min.store(v.(float64))
}

func (a *Float64MinAggregator) Aggregate(v any) {
	v64 := v.(float64)
	a.min.update(func(cur float64) float64 { return math.Min(cur, v64) })
}

// Float64MaxAggregator keeps the largest aggregated value. Its initial
// value is -Inf.
type Float64MaxAggregator struct {
	max float64Value
}

// NewFloat64MaxAggregator is a bsp.AggregatorFactory for Float64MaxAggregator.
func NewFloat64MaxAggregator() bsp.Aggregator {
	a := new(Float64MaxAggregator)
	a.max.store(math.Inf(-1))
	return a
}

func (a *Float64MaxAggregator) Type() string {
	return "Float64MaxAggregator"
}

func (a *Float64MaxAggregator) Get() any {
	return a.max.load()
}

func (a *Float64MaxAggregator) Set(v any) {
	a.max.store(v.(float64))
}

func (a *Float64MaxAggregator) Aggregate(v any) {
	v64 := v.(float64)
	a.max.update(func(cur float64) float64 { return math.Max(cur, v64) })
}
