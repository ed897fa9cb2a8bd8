package bsp

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

type aggregatorSlot struct {
	factory    AggregatorFactory
	persistent bool

	// global accumulates the shard partials at the barrier.
	global Aggregator
	// frozen is the value observed by vertices and the master until the
	// next barrier.
	frozen any
}

// aggregatorRegistry holds the named aggregators of a graph. It is only
// accessed by the coordinator goroutine; compute workers write into
// shard-local instances instead.
type aggregatorRegistry struct {
	slots map[string]*aggregatorSlot
	// names is kept sorted so that reductions always run in the same
	// order.
	names []string
}

func newAggregatorRegistry() *aggregatorRegistry {
	return &aggregatorRegistry{slots: make(map[string]*aggregatorSlot)}
}

func (r *aggregatorRegistry) register(name string, factory AggregatorFactory, persistent bool) {
	global := factory()
	r.slots[name] = &aggregatorSlot{
		factory:    factory,
		persistent: persistent,
		global:     global,
		frozen:     global.Get(),
	}
	r.names = maps.Keys(r.slots)
	slices.Sort(r.names)
}

func (r *aggregatorRegistry) value(name string) any {
	if slot := r.slots[name]; slot != nil {
		return slot.frozen
	}
	return nil
}

func (r *aggregatorRegistry) set(name string, val any) error {
	slot := r.slots[name]
	if slot == nil {
		return xerrors.Errorf("set aggregated value %q: %w", name, ErrUnknownAggregator)
	}
	slot.global.Set(val)
	slot.frozen = slot.global.Get()
	return nil
}

// newLocal returns a fresh set of shard-local aggregators.
func (r *aggregatorRegistry) newLocal(into map[string]Aggregator) map[string]Aggregator {
	if into == nil {
		into = make(map[string]Aggregator, len(r.slots))
	}
	clear(into)
	for name, slot := range r.slots {
		into[name] = slot.factory()
	}
	return into
}

// commit reduces the shard-local partials into the registry in shard order
// and freezes the results. Non-persistent aggregators start every superstep
// from their identity value.
func (r *aggregatorRegistry) commit(locals []map[string]Aggregator) {
	for _, name := range r.names {
		slot := r.slots[name]
		if !slot.persistent {
			slot.global = slot.factory()
		}
		for _, local := range locals {
			if aggr := local[name]; aggr != nil {
				slot.global.Aggregate(aggr.Get())
			}
		}
		slot.frozen = slot.global.Get()
	}
}

func (r *aggregatorRegistry) reset() {
	r.slots = make(map[string]*aggregatorSlot)
	r.names = nil
}
