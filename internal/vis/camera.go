package vis

import (
	"gioui.org/io/pointer"
)

// Camera maps grid coordinates to screen pixels with pan and zoom. World
// units are pixels at zoom 1, one cell being CellSize across.
type Camera struct {
	OffsetX float32
	OffsetY float32
	Zoom    float32

	dragging bool
	lastX    float32
	lastY    float32
}

// CellSize is the world-space width of one grid cell.
const CellSize = 24.0

func NewCamera() *Camera {
	return &Camera{OffsetX: 40, OffsetY: 40, Zoom: 1}
}

func (c *Camera) Reset() {
	c.OffsetX, c.OffsetY, c.Zoom = 40, 40, 1
}

// WorldToScreen converts world coordinates to screen pixels.
func (c *Camera) WorldToScreen(wx, wy float64) (float32, float32) {
	return float32(wx)*c.Zoom + c.OffsetX, float32(wy)*c.Zoom + c.OffsetY
}

// ScreenToWorld converts screen pixels back to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (float64, float64) {
	return float64((sx - c.OffsetX) / c.Zoom), float64((sy - c.OffsetY) / c.Zoom)
}

// CellToScreen returns the screen position of a cell's top-left corner.
func (c *Camera) CellToScreen(row, col int) (float32, float32) {
	return c.WorldToScreen(float64(col)*CellSize, float64(row)*CellSize)
}

// HandleEvent processes pointer events for pan (any button drag) and
// scroll zoom centered on the cursor.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = true
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Drag:
		if c.dragging {
			c.OffsetX += ev.Position.X - c.lastX
			c.OffsetY += ev.Position.Y - c.lastY
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Release, pointer.Cancel:
		c.dragging = false

	case pointer.Scroll:
		if ev.Scroll.Y == 0 {
			return
		}
		wx, wy := c.ScreenToWorld(ev.Position.X, ev.Position.Y)
		factor := float32(1.1)
		if ev.Scroll.Y > 0 {
			c.Zoom /= factor
		} else {
			c.Zoom *= factor
		}
		if c.Zoom < 0.1 {
			c.Zoom = 0.1
		}
		if c.Zoom > 10 {
			c.Zoom = 10
		}
		// Keep the world point under the cursor fixed.
		nsx, nsy := c.WorldToScreen(wx, wy)
		c.OffsetX += ev.Position.X - nsx
		c.OffsetY += ev.Position.Y - nsy
	}
}

// FitGrid frames the whole grid inside the viewport with a margin.
func (c *Camera) FitGrid(rows, cols int, screenW, screenH, margin float32) {
	worldW := float64(cols) * CellSize
	worldH := float64(rows) * CellSize
	if worldW <= 0 || worldH <= 0 {
		return
	}
	zx := (screenW - 2*margin) / float32(worldW)
	zy := (screenH - 2*margin) / float32(worldH)
	c.Zoom = zx
	if zy < zx {
		c.Zoom = zy
	}
	if c.Zoom < 0.1 {
		c.Zoom = 0.1
	}
	if c.Zoom > 10 {
		c.Zoom = 10
	}
	c.OffsetX = screenW/2 - float32(worldW/2)*c.Zoom
	c.OffsetY = screenH/2 - float32(worldH/2)*c.Zoom
}
