// Package canvas turns pointer events from the builder canvas into graph
// mutations: node dragging, connection drawing with snap-to-target,
// click-to-place from a pending palette selection, and palette drops.
package canvas

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"flowbuilder/backend/pkg/models"
)

// ErrUnknownEvent is returned by Dispatch for an unrecognized event type.
var ErrUnknownEvent = errors.New("unknown canvas event")

// Editor is the part of the graph model the canvas drives.
type Editor interface {
	Node(id string) (models.Node, bool)
	Nodes() []models.Node
	AddNode(pos models.Position, kind models.Kind, label string) string
	UpdateNodePosition(id string, pos models.Position)
	AddConnection(source, target string) (string, bool)
}

// EventType names a pointer interaction.
type EventType string

const (
	EventHeaderDown   EventType = "header_down"
	EventOutputDown   EventType = "output_down"
	EventMove         EventType = "move"
	EventInputUp      EventType = "input_up"
	EventUp           EventType = "up"
	EventClick        EventType = "click"
	EventDrop         EventType = "drop"
	EventSelectNode   EventType = "select_pending"
	EventClearPending EventType = "clear_pending"
)

// Event is one pointer interaction in canvas coordinates.
type Event struct {
	Type    EventType       `json:"type" validate:"required"`
	NodeID  string          `json:"node_id,omitempty"`
	Point   models.Position `json:"point"`
	Kind    models.Kind     `json:"kind,omitempty"`
	Label   string          `json:"label,omitempty"`
	Payload string          `json:"payload,omitempty"`
}

// Mode is the interaction currently in progress.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeDragging Mode = "dragging"
	ModeDrawing  Mode = "drawing"
)

// PendingNode is a palette selection waiting for a canvas click.
type PendingNode struct {
	Kind  models.Kind `json:"type"`
	Label string      `json:"label"`
}

// Line is the transient connection being drawn.
type Line struct {
	Source     string          `json:"source"`
	Start      models.Position `json:"start"`
	End        models.Position `json:"end"`
	Control1   models.Position `json:"control1"`
	Control2   models.Position `json:"control2"`
	SnapTarget string          `json:"snap_target,omitempty"`
}

// View is the transient interaction state the canvas renders.
type View struct {
	Mode           Mode         `json:"mode"`
	DraggingNodeID string       `json:"dragging_node_id,omitempty"`
	Line           *Line        `json:"line,omitempty"`
	Pending        *PendingNode `json:"pending,omitempty"`
}

// Outcome reports what a dispatched event changed.
type Outcome struct {
	PlacedNodeID string `json:"placed_node_id,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	View         View   `json:"view"`
}

type dragState struct {
	nodeID string
	offset models.Position
}

type drawState struct {
	source     string
	anchor     models.Position
	end        models.Position
	snapTarget string
}

// Session is the pointer state machine for one builder session. Node
// dragging and connection drawing are tracked independently.
type Session struct {
	drag    *dragState
	draw    *drawState
	pending *PendingNode
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Dispatch applies ev to the session, mutating ed as needed.
func (s *Session) Dispatch(ed Editor, ev Event) (Outcome, error) {
	var out Outcome
	switch ev.Type {
	case EventHeaderDown:
		s.beginDrag(ed, ev.NodeID, ev.Point)
	case EventOutputDown:
		s.beginDraw(ed, ev.NodeID)
	case EventMove:
		s.move(ed, ev.Point)
	case EventInputUp:
		out.ConnectionID = s.finishDraw(ed, ev.NodeID)
		s.drag = nil
	case EventUp:
		s.drag = nil
		s.draw = nil
	case EventClick:
		out.PlacedNodeID = s.click(ed, ev.Point)
	case EventDrop:
		out.PlacedNodeID = s.drop(ed, ev.Payload, ev.Point)
	case EventSelectNode:
		s.pending = &PendingNode{Kind: ev.Kind, Label: ev.Label}
	case EventClearPending:
		s.pending = nil
	default:
		return Outcome{View: s.View()}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	out.View = s.View()
	return out, nil
}

// View returns the current transient state.
func (s *Session) View() View {
	v := View{Mode: ModeIdle}
	if s.drag != nil {
		v.Mode = ModeDragging
		v.DraggingNodeID = s.drag.nodeID
	}
	if s.draw != nil {
		v.Mode = ModeDrawing
		c1, c2 := Curve(s.draw.anchor, s.draw.end)
		v.Line = &Line{
			Source:     s.draw.source,
			Start:      s.draw.anchor,
			End:        s.draw.end,
			Control1:   c1,
			Control2:   c2,
			SnapTarget: s.draw.snapTarget,
		}
	}
	if s.pending != nil {
		p := *s.pending
		v.Pending = &p
	}
	return v
}

// Reset drops any in-progress interaction and the pending selection.
func (s *Session) Reset() {
	s.drag = nil
	s.draw = nil
	s.pending = nil
}

func (s *Session) beginDrag(ed Editor, nodeID string, pointer models.Position) {
	n, ok := ed.Node(nodeID)
	if !ok {
		return
	}
	s.drag = &dragState{nodeID: nodeID, offset: pointer.Sub(n.Position)}
}

func (s *Session) beginDraw(ed Editor, nodeID string) {
	n, ok := ed.Node(nodeID)
	if !ok {
		return
	}
	anchor := OutputAnchor(n)
	s.draw = &drawState{source: nodeID, anchor: anchor, end: anchor}
}

func (s *Session) move(ed Editor, pointer models.Position) {
	if s.drag != nil {
		ed.UpdateNodePosition(s.drag.nodeID, pointer.Sub(s.drag.offset))
	}
	if s.draw != nil {
		s.draw.end = pointer
		s.draw.snapTarget = ""
		for _, n := range ed.Nodes() {
			if n.ID == s.draw.source || !InSnapZone(n, pointer) {
				continue
			}
			s.draw.end = InputAnchor(n)
			s.draw.snapTarget = n.ID
			break
		}
	}
}

func (s *Session) finishDraw(ed Editor, target string) string {
	if s.draw == nil {
		return ""
	}
	source := s.draw.source
	s.draw = nil
	if source == target {
		return ""
	}
	id, _ := ed.AddConnection(source, target)
	return id
}

func (s *Session) click(ed Editor, pointer models.Position) string {
	if s.pending == nil || s.drag != nil || s.draw != nil {
		return ""
	}
	p := *s.pending
	s.pending = nil
	return ed.AddNode(pointer, p.Kind, p.Label)
}

// drop places a node from a serialized palette entry. Malformed payloads are
// ignored.
func (s *Session) drop(ed Editor, payload string, pointer models.Position) string {
	if payload == "" {
		return ""
	}
	var entry PendingNode
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return ""
	}
	return ed.AddNode(pointer, entry.Kind, entry.Label)
}
