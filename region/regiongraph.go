package region

import (
	"fmt"
	"sync"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Graph composes several named Regions into a graph connected by byte-range
// edges: "region A's bytes [lo,hi) are region B" (§3's region graph). Exactly
// one region is the designated root, reachable from any other region by
// following edges backwards only if the caller built the graph that way —
// Graph itself only requires the root to exist and be named.
type Graph struct {
	mu      sync.RWMutex
	root    string
	regions map[string]*Region
	edges   map[string][]edge // parent name -> its edges
}

type edge struct {
	rng   Range
	child string
}

// NewGraph creates an empty region graph with no root set yet.
func NewGraph() *Graph {
	return &Graph{regions: make(map[string]*Region), edges: make(map[string][]edge)}
}

// AddRegion registers r under its own Name(). The first region added becomes
// the root unless SetRoot is called explicitly afterwards.
func (g *Graph) AddRegion(r *Region) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.regions[r.Name()]; exists {
		return perr.New(perr.SchemaMismatch, fmt.Sprintf("region graph: duplicate region name %q", r.Name()))
	}
	g.regions[r.Name()] = r
	if g.root == "" {
		g.root = r.Name()
	}
	return nil
}

// SetRoot designates name as the graph's root region. name must already be
// registered via AddRegion.
func (g *Graph) SetRoot(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.regions[name]; !ok {
		return perr.New(perr.SchemaMismatch, fmt.Sprintf("region graph: unknown region %q", name))
	}
	g.root = name
	return nil
}

// Root returns the designated root region, or nil if none has been added.
func (g *Graph) Root() *Region {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.root == "" {
		return nil
	}
	return g.regions[g.root]
}

// Region looks up a region by name.
func (g *Graph) Region(name string) (*Region, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.regions[name]
	return r, ok
}

// Connect records that parent's byte range rng is occupied by child, i.e. an
// edge in the region graph. Both regions must already be registered.
func (g *Graph) Connect(parent string, rng Range, child string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.regions[parent]; !ok {
		return perr.New(perr.SchemaMismatch, fmt.Sprintf("region graph: unknown parent region %q", parent))
	}
	if _, ok := g.regions[child]; !ok {
		return perr.New(perr.SchemaMismatch, fmt.Sprintf("region graph: unknown child region %q", child))
	}
	g.edges[parent] = append(g.edges[parent], edge{rng: rng, child: child})
	return nil
}

// Children returns the (range, region-name) edges leaving parent, in
// connection order.
func (g *Graph) Children(parent string) []struct {
	Range Range
	Name  string
} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	es := g.edges[parent]
	out := make([]struct {
		Range Range
		Name  string
	}, len(es))
	for i, e := range es {
		out[i] = struct {
			Range Range
			Name  string
		}{Range: e.rng, Name: e.child}
	}
	return out
}
