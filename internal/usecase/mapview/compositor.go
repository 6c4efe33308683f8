package mapview

import (
	"sort"
	"sync"
)

// Layer is a fixed draw rank. Higher layers draw above lower ones.
type Layer int

// Layers, bottom to top.
const (
	LayerTiles Layer = iota
	LayerBoundaries
	LayerMarkers
	LayerFilterPolygons
	LayerFilterVertices
	LayerSitePins
)

var layerNames = [...]string{"tiles", "boundaries", "markers", "filter_polygons", "filter_vertices", "site_pins"}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return "unknown"
	}
	return layerNames[l]
}

type rank struct {
	layer Layer
	seq   uint64
}

func (r rank) less(o rank) bool {
	if r.layer != o.layer {
		return r.layer < o.layer
	}
	return r.seq < o.seq
}

// Compositor keeps nodes in draw order: by layer, then by insertion within a layer.
type Compositor[T comparable] struct {
	mu    sync.Mutex
	seq   uint64
	ranks map[T]rank
	order []T
}

// NewCompositor creates an empty compositor.
func NewCompositor[T comparable]() *Compositor[T] {
	return &Compositor[T]{ranks: make(map[T]rank)}
}

// Add places node on layer. Re-adding a node moves it to the top of its new layer.
func (c *Compositor[T]) Add(node T, layer Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ranks[node]; ok {
		c.removeLocked(node)
	}
	c.seq++
	r := rank{layer: layer, seq: c.seq}
	i := sort.Search(len(c.order), func(i int) bool { return r.less(c.ranks[c.order[i]]) })

	var zero T
	c.order = append(c.order, zero)
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = node
	c.ranks[node] = r
}

// Remove drops node from the draw list. It reports whether the node was present.
func (c *Compositor[T]) Remove(node T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(node)
}

func (c *Compositor[T]) removeLocked(node T) bool {
	r, ok := c.ranks[node]
	if !ok {
		return false
	}
	i := sort.Search(len(c.order), func(i int) bool { return !c.ranks[c.order[i]].less(r) })
	c.order = append(c.order[:i], c.order[i+1:]...)
	delete(c.ranks, node)
	return true
}

// DrawList returns the nodes bottom to top.
func (c *Compositor[T]) DrawList() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.order...)
}

// LayerOf returns the layer of a node.
func (c *Compositor[T]) LayerOf(node T) (Layer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ranks[node]
	return r.layer, ok
}

// Count returns the number of nodes on layer.
func (c *Compositor[T]) Count(layer Layer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	lo := sort.Search(len(c.order), func(i int) bool { return c.ranks[c.order[i]].layer >= layer })
	hi := sort.Search(len(c.order), func(i int) bool { return c.ranks[c.order[i]].layer > layer })
	return hi - lo
}

// Len returns the total number of nodes.
func (c *Compositor[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
