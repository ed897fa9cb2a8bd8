package bsp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Executor wraps a Graph instance and provides an orchestration layer for
// executing supersteps until an error occurs or an exit condition is met.
// Users can provide an optional set of hooks to be executed before and
// after each super-step.
type Executor[VT, ET any] struct {
	g  *Graph[VT, ET]
	cb ExecutorHooks[VT, ET]

	startedAt time.Time
	halted    bool
}

// ExecutorFactory is a function that creates new Executor instances.
type ExecutorFactory[VT, ET any] func(*Graph[VT, ET], ExecutorHooks[VT, ET]) *Executor[VT, ET]

// NewExecutor returns an Executor instance for graph g that invokes the
// provided list of hooks inside each execution loop.
func NewExecutor[VT, ET any](g *Graph[VT, ET], cb ExecutorHooks[VT, ET]) *Executor[VT, ET] {
	if cb.PreStep == nil {
		cb.PreStep = func(context.Context, *Graph[VT, ET]) error { return nil }
	}
	if cb.PostStep == nil {
		cb.PostStep = func(context.Context, *Graph[VT, ET], int) error { return nil }
	}
	if cb.PostStepKeepRunning == nil {
		cb.PostStepKeepRunning = func(context.Context, *Graph[VT, ET], int) (bool, error) { return true, nil }
	}
	g.superstep = 0
	return &Executor[VT, ET]{
		g:  g,
		cb: cb,
	}
}

// ExecutorHooks encapsulates a series of hooks that are invoked by an
// Executor instance on a graph. All hooks are optional and will be ignored
// if not specified.
type ExecutorHooks[VT, ET any] struct {
	// PreStep, if defined, is invoked before running the next superstep.
	// This is a good place to initialize variables, aggregators etc. that
	// will be used for the next superstep.
	PreStep func(ctx context.Context, g *Graph[VT, ET]) error

	// PostStep, if defined, is invoked after running a superstep and
	// delivering its messages.
	PostStep func(ctx context.Context, g *Graph[VT, ET], activeInStep int) error

	// PostStepKeepRunning, if defined, is invoked after running a superstep
	// to decide whether the stop condition for terminating the run has
	// been met. The number of the active vertices in the last step is
	// passed as the second argument.
	PostStepKeepRunning func(ctx context.Context, g *Graph[VT, ET], activeInStep int) (bool, error)
}

// RunToCompletion keeps executing supersteps until the context expires, an
// error occurs, the computation halts or one of the
// Pre/PostStepKeepRunning callbacks specified at configuration time
// returns false.
func (ex *Executor[VT, ET]) RunToCompletion(ctx context.Context) error {
	return ex.run(ctx, -1)
}

// RunSteps executes at most numStep supersteps unless the context expires, an
// error occurs, the computation halts or one of the
// Pre/PostStepKeepRunning callbacks specified at configuration time
// returns false.
func (ex *Executor[VT, ET]) RunSteps(ctx context.Context, numSteps int) error {
	return ex.run(ctx, numSteps)
}

// Graph returns the graph instance associated with this executor.
func (ex *Executor[VT, ET]) Graph() *Graph[VT, ET] {
	return ex.g
}

// Superstep returns the current graph superstep.
func (ex *Executor[VT, ET]) Superstep() int {
	return ex.g.Superstep()
}

// Halted reports whether the computation reached its halting condition.
func (ex *Executor[VT, ET]) Halted() bool {
	return ex.halted
}

func (ex *Executor[VT, ET]) run(ctx context.Context, maxSteps int) error {
	if ex.startedAt.IsZero() {
		ex.startedAt = ex.g.engineCfg.Clock.Now()
	}

	var (
		activeInStep int
		keepRunning  bool
		cb           = ex.cb
	)

	for ; maxSteps != 0 && !ex.halted; maxSteps-- {
		// check for context cancel before the start of each step
		if err := ctx.Err(); err != nil {
			return xerrors.Errorf("superstep %d: %w", ex.g.superstep, err)
		}
		if err := ex.checkLimits(); err != nil {
			return err
		}

		// runs hooks and the superstep
		var err error
		if err = cb.PreStep(ctx, ex.g); err != nil {
			return err
		} else if activeInStep, err = ex.g.step(); err != nil {
			return err
		}

		master, err := ex.runMaster(activeInStep)
		if err != nil {
			return err
		}

		pending, err := ex.g.deliverMessages()
		if err != nil {
			return err
		}
		if master.keepRunning {
			ex.g.activateAll()
		}

		if err = cb.PostStep(ctx, ex.g, activeInStep); err != nil {
			return err
		} else if keepRunning, err = cb.PostStepKeepRunning(ctx, ex.g, activeInStep); err != nil {
			return err
		}

		ex.g.logger.WithFields(logrus.Fields{
			"superstep":        ex.g.superstep,
			"active_in_step":   activeInStep,
			"pending_messages": pending,
		}).Debug("superstep completed")

		ex.g.superstep++
		if master.halted || !keepRunning || (!master.keepRunning && pending == 0 && ex.g.numActive() == 0) {
			ex.halted = true
		}
	}
	return nil
}

func (ex *Executor[VT, ET]) runMaster(activeInStep int) (*Master, error) {
	m := &Master{
		superstep:    ex.g.superstep,
		numVertices:  len(ex.g.vertices),
		numEdges:     ex.g.numEdges,
		activeInStep: activeInStep,
		aggregators:  ex.g.aggregators,
		logger:       ex.g.logger,
	}
	if ex.g.master == nil {
		return m, nil
	}

	if err := ex.g.master.MasterCompute(m); err != nil {
		return nil, xerrors.Errorf("error while running master compute function at superstep %d: %w", ex.g.superstep, err)
	}
	return m, nil
}

func (ex *Executor[VT, ET]) checkLimits() error {
	cfg := ex.g.engineCfg
	if cfg.MaxSupersteps > 0 && ex.g.superstep >= cfg.MaxSupersteps {
		return &EngineTimeoutError{
			LastSuperstep: ex.g.superstep - 1,
			Reason:        fmt.Sprintf("superstep limit of %d reached", cfg.MaxSupersteps),
		}
	}
	if cfg.MaxDuration > 0 {
		if elapsed := cfg.Clock.Now().Sub(ex.startedAt); elapsed > cfg.MaxDuration {
			return &EngineTimeoutError{
				LastSuperstep: ex.g.superstep - 1,
				Reason:        fmt.Sprintf("time limit of %s exceeded", cfg.MaxDuration),
			}
		}
	}
	return nil
}
