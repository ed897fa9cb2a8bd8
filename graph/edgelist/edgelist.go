/*
   Package edgelist reads graphs encoded as one "src dst [weight]" edge per
   line, as well as plain lists of vertex ids.
*/
package edgelist

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/Ahmed-Sermani/okapi/graph"
	"golang.org/x/xerrors"
)

var _ graph.EdgeIterator = (*Reader)(nil)

// ErrMalformedLine is returned for lines that are neither blank, a comment,
// nor a valid edge.
var ErrMalformedLine = xerrors.New("malformed edge list line")

// Options controls how edges are produced from the input.
type Options struct {
	// Undirected emits the reverse of every non-loop edge right after it.
	Undirected bool

	// DefaultWeight is used for lines that have no weight column. If not
	// specified, a weight of 1 is used.
	DefaultWeight float64
}

// Reader is a graph.EdgeIterator over an edge-list text stream. Ids may be
// negative. Lines starting with '#' and blank lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	opts    Options

	line     int
	lastErr  error
	latched  graph.Edge
	mirrored graph.Edge
	// hasMirror is set when the reverse edge of the latched edge must be
	// returned by the next call to Next.
	hasMirror bool
}

// NewReader returns a Reader for r. If r also implements io.Closer it is
// closed when the Reader is closed.
func NewReader(r io.Reader, opts Options) *Reader {
	if opts.DefaultWeight == 0 {
		opts.DefaultWeight = 1
	}
	rd := &Reader{
		scanner: bufio.NewScanner(r),
		opts:    opts,
	}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

func (r *Reader) Next() bool {
	if r.lastErr != nil {
		return false
	}

	if r.hasMirror {
		r.latched, r.hasMirror = r.mirrored, false
		return true
	}

	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}

		edge, err := parseEdge(text, r.opts.DefaultWeight)
		if err != nil {
			r.lastErr = xerrors.Errorf("line %d: %w", r.line, err)
			return false
		}

		r.latched = edge
		if r.opts.Undirected && edge.Src != edge.Dst {
			r.mirrored = graph.Edge{Src: edge.Dst, Dst: edge.Src, Weight: edge.Weight}
			r.hasMirror = true
		}
		return true
	}

	if err := r.scanner.Err(); err != nil {
		r.lastErr = xerrors.Errorf("read edge list: %w", err)
	}
	return false
}

func (r *Reader) Edge() *graph.Edge {
	edge := r.latched
	return &edge
}

func (r *Reader) Error() error { return r.lastErr }

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	if err := r.closer.Close(); err != nil {
		return xerrors.Errorf("edge list: %w", err)
	}
	return nil
}

func parseEdge(text string, defaultWeight float64) (graph.Edge, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 && len(fields) != 3 {
		return graph.Edge{}, xerrors.Errorf("expected 2 or 3 fields, got %d: %w", len(fields), ErrMalformedLine)
	}

	src, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return graph.Edge{}, xerrors.Errorf("source id %q: %w", fields[0], ErrMalformedLine)
	}
	dst, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return graph.Edge{}, xerrors.Errorf("destination id %q: %w", fields[1], ErrMalformedLine)
	}

	weight := defaultWeight
	if len(fields) == 3 {
		if weight, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return graph.Edge{}, xerrors.Errorf("weight %q: %w", fields[2], ErrMalformedLine)
		}
	}

	return graph.Edge{Src: graph.NewID(src), Dst: graph.NewID(dst), Weight: weight}, nil
}

// ReadIDs reads one vertex id per line. Blank lines and '#' comments are
// skipped.
func ReadIDs(r io.Reader) ([]graph.ID, error) {
	var (
		ids     []graph.ID
		line    int
		scanner = bufio.NewScanner(r)
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}

		id, err := graph.ParseID(text)
		if err != nil {
			return nil, xerrors.Errorf("id list line %d: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("read id list: %w", err)
	}
	return ids, nil
}
