// Package graph holds the live node graph being edited on the canvas.
//
// Every operation is total: unknown ids and rejected connections are silent
// no-ops so the editor never blocks on a stale reference. Graph is not safe
// for concurrent use; callers serialize access.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"flowbuilder/backend/internal/catalog"
	"flowbuilder/backend/pkg/models"
)

const connectionIDPrefix = "conn-"

// Graph is the in-memory node and connection collection.
type Graph struct {
	nodes       []*models.Node
	connections []models.Connection
	nextConn    int
	newID       func() string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{newID: func() string { return uuid.New().String() }}
}

// AddNode places a node seeded from the (kind, label) template, or with an
// empty config when no template matches, and returns its id.
func (g *Graph) AddNode(pos models.Position, kind models.Kind, label string) string {
	node := &models.Node{
		ID:       g.newID(),
		Kind:     kind,
		Label:    label,
		Position: pos,
	}
	if tmpl, ok := catalog.Lookup(kind, label); ok {
		node.Config = tmpl.NewConfig()
		node.Args = tmpl.NewArgs()
	}
	g.nodes = append(g.nodes, node)
	return node.ID
}

// UpdateNodePosition moves a node.
func (g *Graph) UpdateNodePosition(id string, pos models.Position) {
	if n := g.find(id); n != nil {
		n.Position = pos
	}
}

// UpdateNodeConfig sets a single config field, keeping the others.
func (g *Graph) UpdateNodeConfig(id, key, value string) {
	if n := g.find(id); n != nil {
		n.Config.Set(key, value)
	}
}

// UpdateNodeArgs replaces a node's positional args.
func (g *Graph) UpdateNodeArgs(id string, args []string) {
	if n := g.find(id); n != nil {
		n.Args = append([]string(nil), args...)
	}
}

// RemoveNode deletes a node and every connection touching it.
func (g *Graph) RemoveNode(id string) {
	idx := g.index(id)
	if idx < 0 {
		return
	}
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)

	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	g.connections = kept
}

// AddConnection links source to target. Self-loops, duplicates and edges to
// nodes that do not exist are dropped; ok reports whether an edge was added.
func (g *Graph) AddConnection(source, target string) (id string, ok bool) {
	if source == target {
		return "", false
	}
	if g.find(source) == nil || g.find(target) == nil {
		return "", false
	}
	for _, c := range g.connections {
		if c.Source == source && c.Target == target {
			return "", false
		}
	}
	g.nextConn++
	conn := models.Connection{
		ID:     fmt.Sprintf("%s%d", connectionIDPrefix, g.nextConn),
		Source: source,
		Target: target,
	}
	g.connections = append(g.connections, conn)
	return conn.ID, true
}

// RemoveConnection deletes a connection by id.
func (g *Graph) RemoveConnection(id string) {
	for i, c := range g.connections {
		if c.ID == id {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return
		}
	}
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (models.Node, bool) {
	n := g.find(id)
	if n == nil {
		return models.Node{}, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []models.Node {
	out := make([]models.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}
	return out
}

// Connections returns a copy of the connection list.
func (g *Graph) Connections() []models.Connection {
	return append([]models.Connection{}, g.connections...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Snapshot returns a deep, detached copy of the graph.
func (g *Graph) Snapshot() models.Graph {
	return models.Graph{Nodes: g.Nodes(), Connections: g.Connections()}
}

// Replace swaps the graph contents for a deep copy of snap. Connections that
// reference missing nodes are pruned.
func (g *Graph) Replace(snap models.Graph) {
	cp := snap.Clone()
	g.nodes = make([]*models.Node, 0, len(cp.Nodes))
	present := make(map[string]bool, len(cp.Nodes))
	for i := range cp.Nodes {
		g.nodes = append(g.nodes, &cp.Nodes[i])
		present[cp.Nodes[i].ID] = true
	}

	g.connections = nil
	g.nextConn = 0
	for _, c := range cp.Connections {
		if !present[c.Source] || !present[c.Target] {
			continue
		}
		g.connections = append(g.connections, c)
		if n := connectionSeq(c.ID); n > g.nextConn {
			g.nextConn = n
		}
	}
}

func (g *Graph) find(id string) *models.Node {
	if idx := g.index(id); idx >= 0 {
		return g.nodes[idx]
	}
	return nil
}

func (g *Graph) index(id string) int {
	for i, n := range g.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// connectionSeq extracts N from a "conn-N" id, or 0.
func connectionSeq(id string) int {
	if !strings.HasPrefix(id, connectionIDPrefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, connectionIDPrefix))
	if err != nil {
		return 0
	}
	return n
}
