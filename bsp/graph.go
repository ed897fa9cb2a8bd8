package bsp

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/Ahmed-Sermani/okapi/bsp/message"
	"github.com/Ahmed-Sermani/okapi/graph"
	"github.com/Ahmed-Sermani/okapi/partition"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

type Vertex[VT any, ET any] struct {
	id     graph.ID
	value  VT
	active bool
	// two queues are needed
	// one queue to hold the messages for the current super-step
	// and another queue to buffer the messages for the next super-step
	// The queue at index super-step%2 hold the messages for the current super-step
	// the queue at (super-step + 1)%2 buffer the messages for the next super-step
	msgQueue [2]message.Queue
	edges    []*Edge[ET]
	shard    int
}

func (v *Vertex[VT, ET]) ID() graph.ID { return v.id }

func (v *Vertex[VT, ET]) Edges() []*Edge[ET] { return v.edges }

// VoteToHalt marks the vertex as inactive. Inactive vertices will not be
// processed in the following supersteps unless they receive a message in
// which case they will be re-activated.
func (v *Vertex[VT, ET]) VoteToHalt() { v.active = false }

// Active reports whether the vertex will be computed in the next superstep
// even if it receives no messages.
func (v *Vertex[VT, ET]) Active() bool { return v.active }

func (v *Vertex[VT, ET]) Value() VT { return v.value }

func (v *Vertex[VT, ET]) SetValue(val VT) { v.value = val }

type Edge[ET any] struct {
	value ET
	dstID graph.ID
}

func (e *Edge[ET]) DstID() graph.ID { return e.dstID }

func (e *Edge[ET]) Value() ET { return e.value }

func (e *Edge[ET]) SetValue(val ET) { e.value = val }

// envelope is a message waiting in a shard outbox for the barrier.
type envelope[VT, ET any] struct {
	src graph.ID
	dst *Vertex[VT, ET]
	msg message.Message
}

// shard is the unit of parallelism. Its vertices are computed sequentially
// by a single worker so the shard-local state needs no locking.
type shard[VT, ET any] struct {
	idx      int
	vertices []*Vertex[VT, ET]
	sorted   bool

	sc          StepContext[VT, ET]
	aggregators map[string]Aggregator
	// outbox[i] buffers the messages addressed to vertices of shard i.
	outbox [][]envelope[VT, ET]

	activeInStep int
	activeAfter  int
	delivered    int
	err          error
}

// Graph implements a parallel graph processor based on the concepts described
// in the Pregel paper https://15799.courses.cs.cmu.edu/fall2013/static/papers/p135-malewicz.pdf .
type Graph[VT, ET any] struct {
	superstep    int
	vertices     map[graph.ID]*Vertex[VT, ET]
	numEdges     int
	shards       []*shard[VT, ET]
	assigner     partition.Assigner
	queueFactory message.QueueFactory
	aggregators  *aggregatorRegistry
	program      Program[VT, ET]
	master       MasterProgram
	seed         int64
	logger       *logrus.Entry
	engineCfg    EngineConfig

	// wg used for compute workers
	wg        sync.WaitGroup
	closeOnce sync.Once

	// taskCh polled by workers to obtain the next shard to be processed
	taskCh chan shardTask[VT, ET]

	// stepCompletedCh channel allows workers to signal when the last
	// enqueued shard has been processed.
	stepCompletedCh chan struct{}

	// pendingInStep is the number of shard tasks left in the current phase.
	pendingInStep int64
}

type shardTask[VT, ET any] struct {
	sh      *shard[VT, ET]
	deliver bool
}

// NewGraph creates a new Graph instance using the specified configuration. It
// is important for callers to invoke Close() on the returned graph instance
// when they are done using it.
func NewGraph[VT, ET any](cfg GraphConfig[VT, ET]) (*Graph[VT, ET], error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph config validation failed: %w", err)
	}

	g := &Graph[VT, ET]{
		program:      cfg.Program,
		master:       cfg.Master,
		queueFactory: cfg.QueueFactory,
		assigner:     cfg.Partitioner,
		seed:         cfg.Seed,
		logger:       cfg.Logger,
		engineCfg:    cfg.EngineConfig,
		aggregators:  newAggregatorRegistry(),
		vertices:     make(map[graph.ID]*Vertex[VT, ET]),
	}
	g.initShards()
	g.startWorkers(cfg.ComputeWorkers)

	return g, nil
}

func (g *Graph[VT, ET]) initShards() {
	numShards := g.assigner.NumPartitions()
	g.shards = make([]*shard[VT, ET], numShards)
	for i := range g.shards {
		sh := &shard[VT, ET]{
			idx:    i,
			outbox: make([][]envelope[VT, ET], numShards),
			sorted: true,
		}
		sh.sc = StepContext[VT, ET]{g: g, sh: sh, rnd: rand.New(rand.NewSource(0))}
		g.shards[i] = sh
	}
}

// Close releases any resources associated with the graph. It is safe to
// call Close more than once.
func (g *Graph[VT, ET]) Close() error {
	g.closeOnce.Do(func() {
		close(g.taskCh)
		g.wg.Wait()
	})

	return g.Reset()
}

// Reset the state of the graph by removing any existing vertices or
// aggregators and resetting the superstep counter.
func (g *Graph[VT, ET]) Reset() error {
	g.superstep = 0
	for _, v := range g.vertices {
		for i := 0; i < 2; i++ {
			if err := v.msgQueue[i].Close(); err != nil {
				return xerrors.Errorf("closing message queue #%d for vertex %v: %w", i, v.ID(), err)
			}
		}
	}
	g.vertices = make(map[graph.ID]*Vertex[VT, ET])
	g.numEdges = 0
	g.aggregators.reset()
	g.initShards()
	return nil
}

// AddVertex inserts a new vertex with the specified id and initial value into
// the graph. If the vertex already exists, AddVertex will just overwrite its
// value with the provided initValue.
func (g *Graph[VT, ET]) AddVertex(id graph.ID, initValue VT) {
	v := g.vertices[id]
	if v == nil {
		v = &Vertex[VT, ET]{
			id: id,
			msgQueue: [2]message.Queue{
				g.queueFactory(),
				g.queueFactory(),
			},
			active: true,
			shard:  g.assigner.PartitionOf(id),
		}
		g.vertices[id] = v

		sh := g.shards[v.shard]
		sh.vertices = append(sh.vertices, v)
		sh.sorted = false
	}
	v.SetValue(initValue)
}

// AddEdge inserts a directed edge from src to destination and annotates it
// with the specified initValue. By design, edges are owned by the source
// and therefore srcID must resolve to a local vertex. Otherwise, AddEdge returns an error.
func (g *Graph[VT, ET]) AddEdge(srcID, dstID graph.ID, initValue ET) error {
	srcVertex := g.vertices[srcID]
	if srcVertex == nil {
		return xerrors.Errorf("create edge from %q to %q: %w", srcID, dstID, ErrUnknownEdgeSource)
	}

	srcVertex.edges = append(srcVertex.edges, &Edge[ET]{
		dstID: dstID,
		value: initValue,
	})
	g.numEdges++
	return nil
}

// RegisterAggregator adds a named aggregator whose value is reset to the
// identity at the start of every superstep.
func (g *Graph[VT, ET]) RegisterAggregator(name string, factory AggregatorFactory) {
	g.aggregators.register(name, factory, false)
}

// RegisterPersistentAggregator adds a named aggregator that keeps
// accumulating across supersteps.
func (g *Graph[VT, ET]) RegisterPersistentAggregator(name string, factory AggregatorFactory) {
	g.aggregators.register(name, factory, true)
}

// AggregatedValue returns the frozen value of the named aggregator or nil
// if it is not registered.
func (g *Graph[VT, ET]) AggregatedValue(name string) any {
	return g.aggregators.value(name)
}

// SetAggregatedValue overrides the value of the named aggregator. It must
// not be called while a superstep is executing.
func (g *Graph[VT, ET]) SetAggregatedValue(name string, val any) error {
	return g.aggregators.set(name, val)
}

func (g *Graph[VT, ET]) Superstep() int { return g.superstep }

func (g *Graph[VT, ET]) NumVertices() int { return len(g.vertices) }

func (g *Graph[VT, ET]) NumEdges() int { return g.numEdges }

func (g *Graph[VT, ET]) NumPartitions() int { return len(g.shards) }

func (g *Graph[VT, ET]) Logger() *logrus.Entry { return g.logger }

// EngineConfig returns the validated engine settings of the graph.
func (g *Graph[VT, ET]) EngineConfig() EngineConfig { return g.engineCfg }

// Vertex returns the vertex with the given id or nil if it does not exist.
func (g *Graph[VT, ET]) Vertex(id graph.ID) *Vertex[VT, ET] { return g.vertices[id] }

func (g *Graph[VT, ET]) Vertices() map[graph.ID]*Vertex[VT, ET] { return g.vertices }

// VisitVertices invokes visitFn for every vertex in ascending id order.
func (g *Graph[VT, ET]) VisitVertices(visitFn func(v *Vertex[VT, ET]) error) error {
	all := make([]*Vertex[VT, ET], 0, len(g.vertices))
	for _, v := range g.vertices {
		all = append(all, v)
	}
	slices.SortFunc(all, compareVertices[VT, ET])

	for _, v := range all {
		if err := visitFn(v); err != nil {
			return err
		}
	}
	return nil
}

func compareVertices[VT, ET any](a, b *Vertex[VT, ET]) int { return a.id.Compare(b.id) }

// startWorkers allocates the required channels and spins up numWorkers to
// execute each superstep.
func (g *Graph[VT, ET]) startWorkers(numWorkers int) {
	g.taskCh = make(chan shardTask[VT, ET])
	g.stepCompletedCh = make(chan struct{})

	g.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go g.stepWorker()
	}
}

// stepWorker consumes taskCh for incoming shards and either computes or
// delivers messages to their vertices. The worker exits when taskCh gets
// closed.
func (g *Graph[VT, ET]) stepWorker() {
	defer g.wg.Done()
	for t := range g.taskCh {
		if t.deliver {
			t.sh.err = t.sh.deliver(g)
		} else {
			t.sh.err = t.sh.compute(g)
		}
		if atomic.AddInt64(&g.pendingInStep, -1) == 0 {
			g.stepCompletedCh <- struct{}{}
		}
	}
}

// runShardTasks hands every shard to the worker pool and blocks until all of
// them are processed. The error of the lowest failing shard is returned.
func (g *Graph[VT, ET]) runShardTasks(deliver bool) error {
	// it's safe to assign directly as no worker is running
	g.pendingInStep = int64(len(g.shards))
	for _, sh := range g.shards {
		g.taskCh <- shardTask[VT, ET]{sh: sh, deliver: deliver}
	}

	// block until the worker pool has finished processing all shards
	<-g.stepCompletedCh

	for _, sh := range g.shards {
		if sh.err != nil {
			return sh.err
		}
	}
	return nil
}

// step executes the compute phase of the next superstep and reduces the
// aggregators. It returns the number of vertices that were processed
// either because they were still active or because they received a
// message.
func (g *Graph[VT, ET]) step() (int, error) {
	locals := make([]map[string]Aggregator, len(g.shards))
	for i, sh := range g.shards {
		if !sh.sorted {
			slices.SortFunc(sh.vertices, compareVertices[VT, ET])
			sh.sorted = true
		}
		sh.aggregators = g.aggregators.newLocal(sh.aggregators)
		locals[i] = sh.aggregators
	}

	if err := g.runShardTasks(false); err != nil {
		return 0, err
	}

	var activeInStep int
	for _, sh := range g.shards {
		activeInStep += sh.activeInStep
	}
	g.aggregators.commit(locals)
	return activeInStep, nil
}

// deliverMessages moves the outbox contents of every shard into the
// destination vertex queues for the next superstep and returns the number
// of delivered messages.
func (g *Graph[VT, ET]) deliverMessages() (int, error) {
	if err := g.runShardTasks(true); err != nil {
		return 0, err
	}

	var delivered int
	for _, sh := range g.shards {
		delivered += sh.delivered
	}
	for _, sh := range g.shards {
		for i := range sh.outbox {
			clear(sh.outbox[i])
			sh.outbox[i] = sh.outbox[i][:0]
		}
	}
	return delivered, nil
}

// numActive returns the number of vertices that did not vote to halt.
func (g *Graph[VT, ET]) numActive() int {
	var active int
	for _, sh := range g.shards {
		active += sh.activeAfter
	}
	return active
}

func (g *Graph[VT, ET]) activateAll() {
	for _, v := range g.vertices {
		v.active = true
	}
}

func (sh *shard[VT, ET]) compute(g *Graph[VT, ET]) error {
	sh.activeInStep, sh.activeAfter = 0, 0

	stepMsgQueueBuffer := g.superstep % 2
	for _, v := range sh.vertices {
		queue := v.msgQueue[stepMsgQueueBuffer]
		if v.active || queue.PendingMessages() {
			sh.activeInStep++
			v.active = true

			// execute the compute function on the vertex
			if err := sh.runCompute(g, v, queue.Messages()); err != nil {
				return xerrors.Errorf("error while running compute function for vertex %q: %w", v.ID(), err)
			}
			// flush non-consumed messages
			if err := queue.DiscardMessages(); err != nil {
				return xerrors.Errorf("failed discarding un-processed message for vertex %q: %w", v.ID(), err)
			}
		}
		if v.active {
			sh.activeAfter++
		}
	}
	return nil
}

func (sh *shard[VT, ET]) runCompute(g *Graph[VT, ET], v *Vertex[VT, ET], msgIt message.Iterator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = xerrors.Errorf("panic: %w", rErr)
			} else {
				err = xerrors.Errorf("panic: %v", r)
			}
		}
	}()

	sh.sc.cur, sh.sc.randSeeded = v, false
	return g.program.Compute(&sh.sc, v, msgIt)
}

// deliver enqueues the messages addressed to this shard, scanning the source
// shards in order.
func (sh *shard[VT, ET]) deliver(g *Graph[VT, ET]) error {
	sh.delivered = 0

	nextBuffer := (g.superstep + 1) % 2
	for _, src := range g.shards {
		for _, env := range src.outbox[sh.idx] {
			if err := env.dst.msgQueue[nextBuffer].Enqueue(env.src, env.msg); err != nil {
				return xerrors.Errorf("deliver message to %q: %w", env.dst.id, err)
			}
			sh.delivered++
		}
	}
	return nil
}
