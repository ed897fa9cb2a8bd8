package graph

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"

	"golang.org/x/xerrors"
)

// ErrInvalidID is returned when a textual vertex id cannot be parsed.
var ErrInvalidID = xerrors.New("invalid vertex id")

// Kind separates vertex populations that share the same numeric id space,
// such as the users and items of a rating graph.
type Kind uint8

const (
	Plain Kind = iota
	User
	Item
)

var kindPrefix = [...]string{Plain: "", User: "u", Item: "i"}

// ID identifies a vertex. IDs are comparable and totally ordered: first by
// Kind, then by Num.
type ID struct {
	Kind Kind
	Num  int64
}

// NewID returns a Plain vertex id.
func NewID(num int64) ID { return ID{Num: num} }

// UserID returns the id of a user vertex in a rating graph.
func UserID(num int64) ID { return ID{Kind: User, Num: num} }

// ItemID returns the id of an item vertex in a rating graph.
func ItemID(num int64) ID { return ID{Kind: Item, Num: num} }

// Compare returns -1, 0 or +1 depending on whether id sorts before, equal to
// or after other.
func (id ID) Compare(other ID) int {
	switch {
	case id.Kind < other.Kind:
		return -1
	case id.Kind > other.Kind:
		return 1
	case id.Num < other.Num:
		return -1
	case id.Num > other.Num:
		return 1
	}
	return 0
}

// Hash returns the 64-bit FNV-1a hash of the id.
func (id ID) Hash() uint64 {
	var buf [9]byte
	buf[0] = byte(id.Kind)
	binary.LittleEndian.PutUint64(buf[1:], uint64(id.Num))

	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func (id ID) String() string {
	if int(id.Kind) < len(kindPrefix) {
		return kindPrefix[id.Kind] + strconv.FormatInt(id.Num, 10)
	}
	return strconv.Itoa(int(id.Kind)) + ":" + strconv.FormatInt(id.Num, 10)
}

// ParseID parses the textual form produced by ID.String for the Plain, User
// and Item kinds.
func ParseID(s string) (ID, error) {
	kind := Plain
	switch {
	case len(s) > 0 && s[0] == 'u':
		kind, s = User, s[1:]
	case len(s) > 0 && s[0] == 'i':
		kind, s = Item, s[1:]
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ID{}, xerrors.Errorf("parse %q: %w", s, ErrInvalidID)
	}
	return ID{Kind: kind, Num: num}, nil
}

type Iterator interface {
	Next() bool
	Error() error
	Close() error
}

// Edge is a weighted directed edge of the input graph.
type Edge struct {
	Src    ID
	Dst    ID
	Weight float64
}

type EdgeIterator interface {
	Iterator
	Edge() *Edge
}

// EdgeStore is implemented by persistent or in-memory edge collections that
// can feed the graph loader.
type EdgeStore interface {
	// AppendEdge stores a new edge. Edges are iterated in insertion order.
	AppendEdge(*Edge) error

	// Edges returns an iterator over all stored edges.
	Edges() (EdgeIterator, error)
}
