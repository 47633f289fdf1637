package vis

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/parcelworks/logisim/internal/core"
)

var (
	colorBackground = color.NRGBA{R: 25, G: 28, B: 32, A: 255}
	colorGridLine   = color.NRGBA{R: 40, G: 45, B: 50, A: 255}
	colorWall       = color.NRGBA{R: 70, G: 74, B: 80, A: 255}
	colorPickup     = color.NRGBA{R: 90, G: 200, B: 120, A: 255}
	colorDropoff    = color.NRGBA{R: 235, G: 200, B: 80, A: 255}
	colorAgent      = color.NRGBA{R: 100, G: 200, B: 255, A: 255}
	colorCarrying   = color.NRGBA{R: 120, G: 230, B: 140, A: 255}
	colorBlocked    = color.NRGBA{R: 240, G: 110, B: 100, A: 255}
	colorTrail      = color.NRGBA{R: 100, G: 200, B: 255, A: 60}
)

const trailLength = 20

// Workspace is the main grid view.
type Workspace struct {
	replay   *Replay
	playback *Playback
	camera   *Camera

	fitted bool
}

func NewWorkspace(rp *Replay, pb *Playback, cam *Camera) *Workspace {
	return &Workspace{replay: rp, playback: pb, camera: cam}
}

// Layout renders the current frame.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, colorBackground)

	if !w.fitted {
		w.camera.FitGrid(w.replay.Grid.Rows, w.replay.Grid.Cols,
			float32(bounds.X), float32(bounds.Y), 40)
		w.fitted = true
	}

	w.handlePointerEvents(gtx)

	w.drawGrid(gtx)
	w.drawPackages(gtx)
	w.drawTrails(gtx)
	w.drawAgents(gtx)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:       w,
			Kinds:        pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollBounds: image.Rect(-10, -10, 10, 10),
		})
		if !ok {
			break
		}
		if pe, ok := ev.(pointer.Event); ok {
			w.camera.HandleEvent(pe)
		}
	}
}

func (w *Workspace) drawGrid(gtx layout.Context) {
	g := w.replay.Grid
	cell := float32(CellSize) * w.camera.Zoom

	// Grid lines.
	for r := 0; r <= g.Rows; r++ {
		sx, sy := w.camera.CellToScreen(r, 0)
		ex, _ := w.camera.CellToScreen(r, g.Cols)
		fillRect(gtx, sx, sy, ex-sx, 1, colorGridLine)
	}
	for c := 0; c <= g.Cols; c++ {
		sx, sy := w.camera.CellToScreen(0, c)
		_, ey := w.camera.CellToScreen(g.Rows, c)
		fillRect(gtx, sx, sy, 1, ey-sy, colorGridLine)
	}

	// Walls.
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if g.IsWall(core.Cell{Row: r, Col: c}) {
				sx, sy := w.camera.CellToScreen(r, c)
				fillRect(gtx, sx, sy, cell, cell, colorWall)
			}
		}
	}
}

func (w *Workspace) drawPackages(gtx layout.Context) {
	frame := w.replay.FrameAt(w.playback.Tick())
	cell := float32(CellSize) * w.camera.Zoom
	inset := cell * 0.2

	for _, p := range frame.Packages {
		if p.State == core.Waiting {
			sx, sy := w.camera.CellToScreen(p.Pickup.Row, p.Pickup.Col)
			fillRect(gtx, sx+inset, sy+inset, cell-2*inset, cell-2*inset, colorPickup)
		}
		if p.State != core.Delivered {
			sx, sy := w.camera.CellToScreen(p.Dropoff.Row, p.Dropoff.Col)
			strokeRect(gtx, sx+inset, sy+inset, cell-2*inset, cell-2*inset, 2, colorDropoff)
		}
	}
}

func (w *Workspace) drawTrails(gtx layout.Context) {
	frame := w.replay.FrameAt(w.playback.Tick())
	cell := float32(CellSize) * w.camera.Zoom
	dot := cell * 0.3

	for _, a := range frame.Agents {
		for _, c := range w.replay.TrailThrough(a.ID, w.playback.Tick(), trailLength) {
			sx, sy := w.camera.CellToScreen(c.Row, c.Col)
			fillRect(gtx, sx+(cell-dot)/2, sy+(cell-dot)/2, dot, dot, colorTrail)
		}
	}
}

func (w *Workspace) drawAgents(gtx layout.Context) {
	tick := w.playback.Tick()
	frac := float32(w.playback.Current - float64(tick))
	cur := w.replay.FrameAt(tick)
	next := w.replay.FrameAt(tick + 1)

	cell := float32(CellSize) * w.camera.Zoom
	radius := cell * 0.38

	for i, a := range cur.Agents {
		row, col := float32(a.Pos.Row), float32(a.Pos.Col)
		if i < len(next.Agents) && tick < w.replay.MaxTick() {
			// Glide toward the next frame's cell.
			n := next.Agents[i]
			row += (float32(n.Pos.Row) - row) * frac
			col += (float32(n.Pos.Col) - col) * frac
		}
		sx, sy := w.camera.WorldToScreen(float64(col)*CellSize, float64(row)*CellSize)
		cx := sx + cell/2
		cy := sy + cell/2

		tint := colorAgent
		switch {
		case a.Blocked:
			tint = colorBlocked
		case a.Carrying:
			tint = colorCarrying
		}
		fillCircle(gtx, cx, cy, radius, tint)
	}
}

func fillRect(gtx layout.Context, x, y, w, h float32, col color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	rect := image.Rect(int(x), int(y), int(x+w), int(y+h))
	paint.FillShape(gtx.Ops, col, clip.Rect(rect).Op())
}

func strokeRect(gtx layout.Context, x, y, w, h, width float32, col color.NRGBA) {
	rect := image.Rect(int(x), int(y), int(x+w), int(y+h))
	paint.FillShape(gtx.Ops, col, clip.Stroke{
		Path:  clip.Rect(rect).Path(),
		Width: width,
	}.Op())
}

func fillCircle(gtx layout.Context, cx, cy, r float32, col color.NRGBA) {
	rect := image.Rect(int(cx-r), int(cy-r), int(cx+r), int(cy+r))
	paint.FillShape(gtx.Ops, col, clip.Ellipse(rect).Op())
}
