// Package cluster partitions sets of frames or atoms into clusters, starting
// from a matrix of pairwise similarities such as the responsibility products
// of a PAMM analysis. The pairwise relation is first compacted into a
// NeighborList (a per-node neighbor count plus a flattened neighbor-index
// table), which also behaves as a gonum graph.Undirected, and then handed to
// a pluggable clustering Strategy.
//
// Cluster assignments are hard, piecewise-constant results: there is no
// derivative to propagate through them, and nothing in this package offers
// one. Asking the Engine for a force panics rather than returning a silent
// zero.
package cluster

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/graph"
)

// Sentinel errors for ill-formed inputs.
var (
	ErrNilRelation = errors.New("cluster: nil relation given")
	ErrNotSquare   = errors.New("cluster: relation matrix is not square")
	ErrNoStrategy  = errors.New("cluster: no clustering strategy configured")
	ErrBadEntry    = errors.New("cluster: sparse entry out of range")
)

// Relation is a source of pairwise similarity weights over n nodes.
// Any gonum mat.Matrix satisfies it.
type Relation interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// Entry is one stored weight of a sparse relation.
type Entry struct {
	I, J int
	W    float64
}

// Sparse is a pre-sparsified relation: only the stored entries are visited
// during adjacency building, so an N-node relation with E entries costs
// O(E) instead of O(N^2). The store may be upper-triangular; the mirrored
// entries are synthesized by Build.
type Sparse struct {
	n       int
	entries []Entry
}

// NewSparse returns an empty sparse relation over n nodes.
func NewSparse(n int) *Sparse {
	return &Sparse{n: n}
}

// Set stores the weight w for the pair (i,j).
func (s *Sparse) Set(i, j int, w float64) {
	s.entries = append(s.entries, Entry{i, j, w})
}

// Dims returns the (square) dimensions of the relation.
func (s *Sparse) Dims() (int, int) { return s.n, s.n }

// At returns the stored weight for (i,j), or zero. It scans the entry list,
// so it is only meant for tests and small relations; Build never calls it
// on a Sparse.
func (s *Sparse) At(i, j int) float64 {
	for _, e := range s.entries {
		if e.I == i && e.J == j {
			return e.W
		}
	}
	return 0
}

// NeighborList is the compacted adjacency structure the clustering
// strategies work on: for each node, how many neighbors it has and which,
// stored in one flattened index table. Neighbor lists are sorted by index,
// which makes traversal order, and therefore cluster ids, deterministic.
type NeighborList struct {
	n       int
	nneigh  []int //per-node neighbor count
	offsets []int //node i's neighbors live in flat[offsets[i]:offsets[i]+nneigh[i]]
	flat    []int
}

// BuildOption modifies how a relation is compacted into a NeighborList.
type BuildOption func(*buildConf)

type buildConf struct {
	thresh    float64
	selfLoops bool
}

// WithThreshold only keeps pairs whose weight is strictly above t.
// The default threshold is zero: any positive weight is an edge.
func WithThreshold(t float64) BuildOption {
	return func(c *buildConf) { c.thresh = t }
}

// WithSelfLoops keeps i-i relations as neighbors of themselves. They are
// excluded by default, as almost every similarity measure relates a node
// maximally to itself, which says nothing.
func WithSelfLoops() BuildOption {
	return func(c *buildConf) { c.selfLoops = true }
}

// Build compacts rel into a NeighborList. The relation is taken as
// symmetric: a pair is connected if the weight exceeds the threshold in
// either direction, so upper-triangular stores come out mirrored. A dense
// relation costs O(N^2); a *Sparse one only visits its stored entries.
func Build(rel Relation, opts ...BuildOption) (*NeighborList, error) {
	if rel == nil {
		return nil, ErrNilRelation
	}
	conf := new(buildConf)
	for _, o := range opts {
		o(conf)
	}
	r, c := rel.Dims()
	if r != c {
		return nil, ErrNotSquare
	}
	lists := make([][]int, r)
	var err error
	if sp, ok := rel.(*Sparse); ok {
		err = buildSparse(sp, conf, lists)
	} else {
		buildDense(rel, conf, lists)
	}
	if err != nil {
		return nil, err
	}
	return fromLists(lists), nil
}

func buildDense(rel Relation, conf *buildConf, lists [][]int) {
	n := len(lists)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rel.At(i, j) > conf.thresh || rel.At(j, i) > conf.thresh {
				lists[i] = append(lists[i], j)
				lists[j] = append(lists[j], i)
			}
		}
		if conf.selfLoops && rel.At(i, i) > conf.thresh {
			lists[i] = append(lists[i], i)
		}
	}
}

func buildSparse(sp *Sparse, conf *buildConf, lists [][]int) error {
	n := len(lists)
	seen := make(map[[2]int]bool, len(sp.entries))
	for _, e := range sp.entries {
		if e.I < 0 || e.I >= n || e.J < 0 || e.J >= n {
			return ErrBadEntry
		}
		if e.W <= conf.thresh {
			continue
		}
		i, j := e.I, e.J
		if i == j {
			if conf.selfLoops && !seen[[2]int{i, i}] {
				seen[[2]int{i, i}] = true
				lists[i] = append(lists[i], i)
			}
			continue
		}
		if j < i {
			i, j = j, i
		}
		if seen[[2]int{i, j}] {
			continue
		}
		seen[[2]int{i, j}] = true
		lists[i] = append(lists[i], j)
		lists[j] = append(lists[j], i)
	}
	return nil
}

func fromLists(lists [][]int) *NeighborList {
	nl := new(NeighborList)
	nl.n = len(lists)
	nl.nneigh = make([]int, nl.n)
	nl.offsets = make([]int, nl.n)
	total := 0
	for i, l := range lists {
		sort.Ints(l)
		nl.nneigh[i] = len(l)
		nl.offsets[i] = total
		total += len(l)
	}
	nl.flat = make([]int, 0, total)
	for _, l := range lists {
		nl.flat = append(nl.flat, l...)
	}
	return nl
}

// N returns the number of nodes.
func (nl *NeighborList) N() int { return nl.n }

// NNeighbors returns the number of neighbors of node i.
func (nl *NeighborList) NNeighbors(i int) int { return nl.nneigh[i] }

// Neighbors returns the neighbor indices of node i, sorted. The slice is a
// view into the list's storage; don't write to it.
func (nl *NeighborList) Neighbors(i int) []int {
	return nl.flat[nl.offsets[i] : nl.offsets[i]+nl.nneigh[i]]
}

// NEdges returns the number of stored neighbor entries (twice the number of
// undirected edges, plus any self-loops).
func (nl *NeighborList) NEdges() int { return len(nl.flat) }

/*gonum graph.Undirected implementation, so the same structure can be fed
 * directly to the graph/topo algorithms.*/

type gnode int64

func (v gnode) ID() int64 { return int64(v) }

type gedge struct{ f, t gnode }

func (e gedge) From() graph.Node         { return e.f }
func (e gedge) To() graph.Node           { return e.t }
func (e gedge) ReversedEdge() graph.Edge { return gedge{e.t, e.f} }

// nodeIter iterates a fixed list of node indices.
type nodeIter struct {
	ids  []int
	curr int
}

func (it *nodeIter) Len() int { return len(it.ids) - it.curr }
func (it *nodeIter) Next() bool {
	if it.curr >= len(it.ids) {
		return false
	}
	it.curr++
	return true
}
func (it *nodeIter) Node() graph.Node { return gnode(it.ids[it.curr-1]) }
func (it *nodeIter) Reset()           { it.curr = 0 }

// Node returns the node with the given ID, or nil if it is out of range.
func (nl *NeighborList) Node(id int64) graph.Node {
	if id < 0 || id >= int64(nl.n) {
		return nil
	}
	return gnode(id)
}

// Nodes returns an iterator over all nodes, in index order.
func (nl *NeighborList) Nodes() graph.Nodes {
	ids := make([]int, nl.n)
	for i := range ids {
		ids[i] = i
	}
	return &nodeIter{ids: ids}
}

// From returns an iterator over the neighbors of the node with the given ID.
func (nl *NeighborList) From(id int64) graph.Nodes {
	if id < 0 || id >= int64(nl.n) {
		return &nodeIter{}
	}
	return &nodeIter{ids: nl.Neighbors(int(id))}
}

// HasEdgeBetween tells whether the two nodes are neighbors.
func (nl *NeighborList) HasEdgeBetween(xid, yid int64) bool {
	if xid < 0 || xid >= int64(nl.n) {
		return false
	}
	neigh := nl.Neighbors(int(xid))
	k := sort.SearchInts(neigh, int(yid))
	return k < len(neigh) && neigh[k] == int(yid)
}

// Edge returns the edge between the two nodes, or nil if they are not
// neighbors.
func (nl *NeighborList) Edge(uid, vid int64) graph.Edge {
	if !nl.HasEdgeBetween(uid, vid) {
		return nil
	}
	return gedge{gnode(uid), gnode(vid)}
}

// EdgeBetween is Edge; the graph is undirected.
func (nl *NeighborList) EdgeBetween(xid, yid int64) graph.Edge {
	return nl.Edge(xid, yid)
}
