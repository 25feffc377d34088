// Package recommend keeps the "related tracks" graph: an undirected
// adjacency list over track ids where two tracks are neighbors iff they
// share a genre.
package recommend

import "catalog-service/internal/catalog"

// Graph is symmetric, has no self edges and no duplicate neighbors.
// Neighbor lists keep insertion order. Not safe for concurrent use.
type Graph struct {
	adj map[int64][]int64
}

func NewGraph() *Graph {
	return &Graph{adj: make(map[int64][]int64)}
}

// AddEdge links a and b. Duplicate avoidance is a linear scan of the
// neighbor list, O(degree) per call.
func (g *Graph) AddEdge(a, b int64) {
	if a == b {
		return
	}
	if _, ok := g.adj[a]; !ok {
		g.adj[a] = []int64{}
	}
	if _, ok := g.adj[b]; !ok {
		g.adj[b] = []int64{}
	}
	if !contains(g.adj[a], b) {
		g.adj[a] = append(g.adj[a], b)
	}
	if !contains(g.adj[b], a) {
		g.adj[b] = append(g.adj[b], a)
	}
}

// RemoveNode drops id and every edge incident to it.
func (g *Graph) RemoveNode(id int64) {
	for _, n := range g.adj[id] {
		g.adj[n] = without(g.adj[n], id)
	}
	delete(g.adj, id)
}

// Recommend returns a copy of id's neighbors, empty when id is unknown.
func (g *Graph) Recommend(id int64) []int64 {
	out := make([]int64, len(g.adj[id]))
	copy(out, g.adj[id])
	return out
}

// Link connects id to every other track of the same genre, in the order
// tracks is given.
func (g *Graph) Link(id int64, genre string, tracks []catalog.Track) {
	for _, t := range tracks {
		if t.ID != id && t.Genre == genre {
			g.AddEdge(id, t.ID)
		}
	}
}

// Rebuild replaces the graph with one built from tracks by comparing every
// pair: O(n²), acceptable at catalog scale.
func (g *Graph) Rebuild(tracks []catalog.Track) {
	g.adj = make(map[int64][]int64, len(tracks))
	for _, a := range tracks {
		for _, b := range tracks {
			if a.ID != b.ID && a.Genre == b.Genre {
				g.AddEdge(a.ID, b.ID)
			}
		}
	}
}

func contains(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func without(list []int64, id int64) []int64 {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
