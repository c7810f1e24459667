package canvas

import (
	"math"

	"flowbuilder/backend/pkg/models"
)

// Node box and connector geometry, in canvas pixels.
const (
	NodeWidth        = 240.0
	NodeHeight       = 80.0
	ConnectorRadius  = 12.0
	ConnectorCenterY = 40.0
	SnapRadius       = 16.0
	maxCurveOffset   = 100.0
)

// Path is the drawn form of one connection.
type Path struct {
	ConnectionID string          `json:"connection_id"`
	Source       string          `json:"source"`
	Target       string          `json:"target"`
	Start        models.Position `json:"start"`
	End          models.Position `json:"end"`
	Control1     models.Position `json:"control1"`
	Control2     models.Position `json:"control2"`
}

// OutputAnchor is the centre of a node's right-hand (output) connector.
func OutputAnchor(n models.Node) models.Position {
	return n.Position.Add(models.Position{X: NodeWidth + ConnectorRadius, Y: ConnectorCenterY})
}

// InputAnchor is the centre of a node's left-hand (input) connector.
func InputAnchor(n models.Node) models.Position {
	return n.Position.Add(models.Position{X: -ConnectorRadius, Y: ConnectorCenterY})
}

// InSnapZone reports whether p lies in the rectangle around n's input side
// that captures a connection being drawn.
func InSnapZone(n models.Node, p models.Position) bool {
	return p.X >= n.Position.X-SnapRadius &&
		p.X <= n.Position.X+SnapRadius &&
		p.Y >= n.Position.Y &&
		p.Y <= n.Position.Y+NodeHeight
}

// Curve returns the cubic Bézier control points between start and end.
func Curve(start, end models.Position) (c1, c2 models.Position) {
	offset := math.Min(maxCurveOffset, math.Abs(end.X-start.X)/2)
	c1 = start.Add(models.Position{X: offset})
	c2 = end.Sub(models.Position{X: offset})
	return c1, c2
}

// Paths derives every connection's geometry from the current node positions.
// Connections whose endpoints are missing are skipped.
func Paths(nodes []models.Node, connections []models.Connection) []Path {
	byID := make(map[string]models.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	paths := make([]Path, 0, len(connections))
	for _, c := range connections {
		src, ok := byID[c.Source]
		if !ok {
			continue
		}
		dst, ok := byID[c.Target]
		if !ok {
			continue
		}
		start, end := OutputAnchor(src), InputAnchor(dst)
		c1, c2 := Curve(start, end)
		paths = append(paths, Path{
			ConnectionID: c.ID,
			Source:       c.Source,
			Target:       c.Target,
			Start:        start,
			End:          end,
			Control1:     c1,
			Control2:     c2,
		})
	}
	return paths
}
