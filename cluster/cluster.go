package cluster

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	pamm "github.com/rmera/gopamm"
)

// Assignment is the result of one clustering pass: which cluster each node
// belongs to, and how big each cluster is. Cluster ids are dense, 0..C-1,
// numbered in the order the clusters were discovered (the cluster containing
// the lowest-indexed otherwise-unassigned node comes first). An Assignment
// is rebuilt from scratch on every pass and is deterministic for a given
// NeighborList.
//
// There is intentionally no derivative accessor on an Assignment: the
// mapping is piecewise constant, so no force can flow through it.
type Assignment struct {
	which []int
	sizes []int
}

// N returns the number of nodes partitioned.
func (a *Assignment) N() int { return len(a.which) }

// NumClusters returns the number of clusters found.
func (a *Assignment) NumClusters() int { return len(a.sizes) }

// Cluster returns the cluster id of node i.
func (a *Assignment) Cluster(i int) int { return a.which[i] }

// Size returns the number of nodes in cluster c.
func (a *Assignment) Size(c int) int { return a.sizes[c] }

// Sizes returns a copy of the per-cluster size table.
func (a *Assignment) Sizes() []int {
	s := make([]int, len(a.sizes))
	copy(s, a.sizes)
	return s
}

// Members returns the indices of the nodes in cluster c, in index order.
func (a *Assignment) Members(c int) []int {
	m := make([]int, 0, a.sizes[c])
	for i, w := range a.which {
		if w == c {
			m = append(m, i)
		}
	}
	return m
}

// Strategy is one rule for partitioning a NeighborList into clusters.
// Strategies are selected at configuration time; they must be deterministic
// given the same input.
type Strategy interface {
	Cluster(nl *NeighborList) (*Assignment, error)
}

// ConnectedComponents is the baseline strategy: breadth-first traversal over
// the neighbor lists, every reachable set is one cluster, isolated nodes are
// singleton clusters. Nodes are visited in index order, so cluster ids come
// out in discovery order.
type ConnectedComponents struct{}

// Cluster partitions nl into its connected components.
func (ConnectedComponents) Cluster(nl *NeighborList) (*Assignment, error) {
	if nl == nil {
		return nil, ErrNilRelation
	}
	n := nl.N()
	which := make([]int, n)
	for i := range which {
		which[i] = -1
	}
	var sizes []int
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if which[i] >= 0 {
			continue
		}
		id := len(sizes)
		size := 0
		queue = append(queue[:0], i)
		which[i] = id
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			size++
			for _, w := range nl.Neighbors(v) {
				if which[w] < 0 {
					which[w] = id
					queue = append(queue, w)
				}
			}
		}
		sizes = append(sizes, size)
	}
	return &Assignment{which: which, sizes: sizes}, nil
}

// GonumComponents finds the same partition through gonum's
// graph/topo machinery, using the NeighborList as a graph.Undirected. The
// components come back in unspecified order, so they are relabeled by their
// lowest-indexed member; that makes the ids identical to the ones
// ConnectedComponents produces.
type GonumComponents struct{}

// Cluster partitions nl into its connected components via graph/topo.
func (GonumComponents) Cluster(nl *NeighborList) (*Assignment, error) {
	if nl == nil {
		return nil, ErrNilRelation
	}
	comps := topo.ConnectedComponents(nl)
	mins := make([]int64, len(comps))
	for c, comp := range comps {
		min := comp[0].ID()
		for _, v := range comp[1:] {
			if v.ID() < min {
				min = v.ID()
			}
		}
		mins[c] = min
	}
	order := make([]int, len(comps))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return mins[order[a]] < mins[order[b]] })
	which := make([]int, nl.N())
	sizes := make([]int, len(comps))
	for id, c := range order {
		sizes[id] = len(comps[c])
		for _, v := range comps[c] {
			which[v.ID()] = id
		}
	}
	return &Assignment{which: which, sizes: sizes}, nil
}

// Engine runs the full compact-then-partition pass and publishes the result.
// One Engine serves one stream of clustering requests; concurrent,
// independent analyses (say, one per replica) must each use their own
// Engine, with their own NeighborList and Assignment.
type Engine struct {
	strategy  Strategy
	buildOpts []BuildOption
	nl        *NeighborList
	published *Assignment
}

// NewEngine returns an Engine using the given strategy and adjacency-building
// options. A nil strategy means ConnectedComponents.
func NewEngine(strategy Strategy, opts ...BuildOption) *Engine {
	if strategy == nil {
		strategy = ConnectedComponents{}
	}
	return &Engine{strategy: strategy, buildOpts: opts}
}

// Run builds the adjacency structure from rel, partitions it, and publishes
// the assignment. On any failure the previous published assignment is left
// untouched: a partial result is never visible.
func (e *Engine) Run(rel Relation) (*Assignment, error) {
	if e.strategy == nil {
		return nil, ErrNoStrategy
	}
	nl, err := Build(rel, e.buildOpts...)
	if err != nil {
		return nil, err
	}
	a, err := e.strategy.Cluster(nl)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, s := range a.sizes {
		total += s
	}
	if total != nl.N() {
		//a strategy that loses or double-counts nodes is broken beyond recovery
		panic(pamm.PanicMsg("goPAMM/cluster: strategy returned a partition not covering every node exactly once"))
	}
	e.nl = nl
	e.published = a
	return a, nil
}

// Assignment returns the last successfully published assignment, or nil if
// no pass has completed yet.
func (e *Engine) Assignment() *Assignment { return e.published }

// NeighborList returns the adjacency structure of the last successful pass.
func (e *Engine) NeighborList() *NeighborList { return e.nl }

// ForceOnNode panics, always. A hard cluster assignment is not
// differentiable, and silently answering zero here would hide a modeling
// bug in the caller.
func (e *Engine) ForceOnNode(i int) float64 {
	panic(pamm.ErrForceOnNonDifferentiable)
}
