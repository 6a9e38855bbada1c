package expr

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
)

// DirtyExpr is an editable expression graph. Its maps are exported so
// rewrites and builders can edit entries directly; nothing checks integrity
// until [DirtyExpr.Commit], which re-validates the whole graph and seals it
// into an [NExpr]. A DirtyExpr cannot be evaluated.
//
// DirtyExpr is not safe for concurrent use.
type DirtyExpr struct {
	// Root is the intended root node ID. It must resolve at commit time.
	Root NodeID

	// Nodes is the adjacency map. Edit freely; dangling references and
	// cycles are caught at commit.
	Nodes map[NodeID]Entry

	// Aliases maps human-chosen names to node IDs. Targets must resolve at
	// commit time.
	Aliases map[string]NodeID

	counter int
}

// generatedID matches IDs minted by FreshID, so the counter can be seeded
// past any that already exist.
var generatedID = regexp.MustCompile(`^n(\d+)$`)

// NewDirty returns an empty editable graph.
func NewDirty() *DirtyExpr {
	return &DirtyExpr{
		Nodes:   make(map[NodeID]Entry),
		Aliases: make(map[string]NodeID),
	}
}

// NewDirtyFrom copies any graph view into a fresh editable graph. Entries,
// child slices, and the alias table are cloned, so edits never leak back
// into the source. The fresh-ID counter is seeded past the highest existing
// generated ID.
func NewDirtyFrom(g Graph) *DirtyExpr {
	d := NewDirty()
	d.Root = g.RootID()
	for _, id := range g.IDs() {
		e, _ := g.Entry(id)
		d.Nodes[id] = e.clone()
	}
	maps.Copy(d.Aliases, g.AliasTable())
	d.seedCounter()
	return d
}

// Ensure both graph forms satisfy the read-only view.
var (
	_ Graph = NExpr{}
	_ Graph = (*DirtyExpr)(nil)
)

func (d *DirtyExpr) seedCounter() {
	for id := range d.Nodes {
		m := generatedID.FindStringSubmatch(string(id))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > d.counter {
			d.counter = n
		}
	}
}

// FreshID mints a node ID that is not in use in this graph.
// IDs have the form "n<counter>" from a monotonically increasing counter.
func (d *DirtyExpr) FreshID() NodeID {
	for {
		d.counter++
		id := NodeID("n" + strconv.Itoa(d.counter))
		if _, taken := d.Nodes[id]; !taken {
			return id
		}
	}
}

// AddNode stores the entry under a fresh ID and returns the ID.
// This is the builder-side convenience over editing Nodes directly.
func (d *DirtyExpr) AddNode(e Entry) NodeID {
	id := d.FreshID()
	d.Nodes[id] = e.clone()
	return id
}

// RootID returns the intended root node ID.
func (d *DirtyExpr) RootID() NodeID { return d.Root }

// Entry returns a copy of the entry stored at id and true,
// or a zero entry and false if the node does not exist.
func (d *DirtyExpr) Entry(id NodeID) (Entry, bool) {
	e, ok := d.Nodes[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// IDs returns every node ID in the adjacency map.
// The order is not guaranteed.
func (d *DirtyExpr) IDs() []NodeID {
	ids := make([]NodeID, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of nodes in the adjacency map.
func (d *DirtyExpr) Len() int { return len(d.Nodes) }

// Alias resolves a human-chosen name to a node ID.
func (d *DirtyExpr) Alias(name string) (NodeID, bool) {
	id, ok := d.Aliases[name]
	return id, ok
}

// AliasTable returns a copy of the alias table. Never nil.
func (d *DirtyExpr) AliasTable() map[string]NodeID {
	out := make(map[string]NodeID, len(d.Aliases))
	maps.Copy(out, d.Aliases)
	return out
}

// SwapEntry replaces the entry at id wholesale. Returns ErrUnknownNode if
// the node does not exist, or ErrTypeMismatch if the new entry's output tag
// is incompatible with the old one — ancestors consume the node's result by
// position, so its effective type must not change under them. Tag either
// side with [cty.DynamicPseudoType] to opt out of the check.
func (d *DirtyExpr) SwapEntry(id NodeID, e Entry) error {
	old, ok := d.Nodes[id]
	if !ok {
		return fmt.Errorf("swap %q: %w", id, ErrUnknownNode)
	}
	if !TypesCompatible(old.Out, e.Out) {
		return fmt.Errorf("swap %q: %s -> %s: %w",
			id, typeOrDynamic(old.Out).FriendlyName(), typeOrDynamic(e.Out).FriendlyName(), ErrTypeMismatch)
	}
	d.Nodes[id] = e.clone()
	return nil
}

// RewireChildren redirects every child reference to from so it points at to
// instead. Both nodes must exist, and to's output tag must be compatible
// with from's (same contract as [DirtyExpr.SwapEntry]). The from node itself
// is untouched and may become unreachable; see the dagql GC pass.
func (d *DirtyExpr) RewireChildren(from, to NodeID) error {
	src, ok := d.Nodes[from]
	if !ok {
		return fmt.Errorf("rewire from %q: %w", from, ErrUnknownNode)
	}
	dst, ok := d.Nodes[to]
	if !ok {
		return fmt.Errorf("rewire to %q: %w", to, ErrUnknownNode)
	}
	if !TypesCompatible(src.Out, dst.Out) {
		return fmt.Errorf("rewire %q -> %q: %s -> %s: %w",
			from, to, typeOrDynamic(src.Out).FriendlyName(), typeOrDynamic(dst.Out).FriendlyName(), ErrTypeMismatch)
	}
	for id, e := range d.Nodes {
		for i, c := range e.Children {
			if c.IsRef() && c.Target() == from {
				e.Children[i] = Ref(to)
			}
		}
		d.Nodes[id] = e
	}
	return nil
}

// Commit validates the graph and seals it into an immutable [NExpr]:
//
//  1. The root ID resolves to an entry.
//  2. Every child reference resolves to an entry in the same map.
//  3. Every alias targets an existing entry.
//  4. The graph is acyclic (depth-first search with white/gray/black
//     coloring, run from every node so orphaned cycles are caught too).
//
// On failure the returned error wraps the matching sentinel
// (ErrUnknownRoot, ErrDanglingReference, ErrDanglingAlias, ErrGraphHasCycle)
// and names the offending node; the DirtyExpr is left unchanged and can be
// fixed and re-committed. On success the sealed graph owns deep copies of
// all entries, so later edits to the DirtyExpr do not affect it.
func (d *DirtyExpr) Commit() (NExpr, error) {
	if _, ok := d.Nodes[d.Root]; !ok {
		return NExpr{}, fmt.Errorf("commit: root %q: %w", d.Root, ErrUnknownRoot)
	}
	for id, e := range d.Nodes {
		for i, c := range e.Children {
			if !c.IsRef() {
				continue
			}
			if _, ok := d.Nodes[c.Target()]; !ok {
				return NExpr{}, fmt.Errorf("commit: node %q child %d references %q: %w",
					id, i, c.Target(), ErrDanglingReference)
			}
		}
	}
	for name, id := range d.Aliases {
		if _, ok := d.Nodes[id]; !ok {
			return NExpr{}, fmt.Errorf("commit: alias %q references %q: %w", name, id, ErrDanglingAlias)
		}
	}
	if cycle := d.findCycle(); cycle != "" {
		return NExpr{}, fmt.Errorf("commit: node %q is on a cycle: %w", cycle, ErrGraphHasCycle)
	}

	sealed := NExpr{
		root:    d.Root,
		nodes:   make(map[NodeID]Entry, len(d.Nodes)),
		aliases: make(map[string]NodeID, len(d.Aliases)),
	}
	for id, e := range d.Nodes {
		sealed.nodes[id] = e.clone()
	}
	maps.Copy(sealed.aliases, d.Aliases)
	return sealed, nil
}

// findCycle returns the ID of a node on a cycle, or "" if the graph is
// acyclic.
func (d *DirtyExpr) findCycle() NodeID {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int, len(d.Nodes))
	var onCycle NodeID

	var dfs func(id NodeID)
	dfs = func(id NodeID) {
		color[id] = gray
		for _, c := range d.Nodes[id].Children {
			if !c.IsRef() {
				continue
			}
			child := c.Target()
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				onCycle = child
				return
			}
		}
		color[id] = black
	}

	for id := range d.Nodes {
		if color[id] == white {
			dfs(id)
			if onCycle != "" {
				return onCycle
			}
		}
	}
	return ""
}
