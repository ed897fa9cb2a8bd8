package memory

import (
	"sync"

	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

var _ graph.EdgeStore = (*EdgeList)(nil)

// ErrNilEdge is returned when AppendEdge is called with a nil edge.
var ErrNilEdge = xerrors.New("nil edge")

// EdgeList is an in-memory, append-only graph.EdgeStore. It is safe for
// concurrent use.
type EdgeList struct {
	mu    sync.RWMutex
	edges []graph.Edge
}

// NewEdgeList creates a new in-memory edge store.
func NewEdgeList() *EdgeList {
	return new(EdgeList)
}

// AppendEdge stores a copy of edge.
func (s *EdgeList) AppendEdge(edge *graph.Edge) error {
	if edge == nil {
		return xerrors.Errorf("append edge: %w", ErrNilEdge)
	}

	s.mu.Lock()
	s.edges = append(s.edges, *edge)
	s.mu.Unlock()
	return nil
}

// Edges returns an iterator over the edges stored at the time of the call.
func (s *EdgeList) Edges() (graph.EdgeIterator, error) {
	s.mu.RLock()
	// Appends never modify existing elements so capping the slice is
	// enough to get a stable snapshot.
	snapshot := s.edges[:len(s.edges):len(s.edges)]
	s.mu.RUnlock()

	return &edgeIterator{edges: snapshot}, nil
}

// Len returns the number of stored edges.
func (s *EdgeList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

type edgeIterator struct {
	edges    []graph.Edge
	curIndex int
}

func (i *edgeIterator) Next() bool {
	if i.curIndex >= len(i.edges) {
		return false
	}
	i.curIndex++
	return true
}

func (i *edgeIterator) Error() error {
	return nil
}

func (i *edgeIterator) Close() error {
	return nil
}

func (i *edgeIterator) Edge() *graph.Edge {
	edge := i.edges[i.curIndex-1]
	return &edge
}
