// Package models defines the domain models for the test-flow builder
package models

import (
	"time"
)

// Kind is the variant tag of a node. It drives both styling on the canvas and
// how the node contributes to the execution payload.
type Kind string

const (
	KindContext   Kind = "context"
	KindTrigger   Kind = "trigger"
	KindAction    Kind = "action"
	KindAssertion Kind = "assertion"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindContext, KindTrigger, KindAction, KindAssertion:
		return true
	}
	return false
}

// Position is a canvas-relative coordinate. It has no bounds.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Node is a unit of test behavior placed on the canvas
type Node struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"type"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
	Config   Config   `json:"config"`
	Args     []string `json:"args,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Config = n.Config.Clone()
	if n.Args != nil {
		out.Args = append([]string(nil), n.Args...)
	}
	return out
}

// ContextEntry returns the key/value pair a context node contributes to the
// execution context. ok is false for other kinds or when either field is
// missing.
func (n Node) ContextEntry() (key, value string, ok bool) {
	if n.Kind != KindContext {
		return "", "", false
	}
	key, hasKey := n.Config.Get("key")
	value, hasValue := n.Config.Get("value")
	if !hasKey || !hasValue {
		return "", "", false
	}
	return key, value, true
}

// Connection is a directed edge between two nodes
type Connection struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a detached snapshot of nodes and connections.
type Graph struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Clone returns a deep copy that shares no memory with g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes:       make([]Node, 0, len(g.Nodes)),
		Connections: make([]Connection, 0, len(g.Connections)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	out.Connections = append(out.Connections, g.Connections...)
	return out
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
