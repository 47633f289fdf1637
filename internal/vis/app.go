package vis

import (
	"fmt"
	"image/color"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/parcelworks/logisim/internal/core"
)

// App is the playback application: a workspace over a replay with a
// timeline underneath.
type App struct {
	replay    *Replay
	playback  *Playback
	camera    *Camera
	workspace *Workspace
	timeline  *Timeline
	theme     *material.Theme
}

func NewApp(rp *Replay) *App {
	pb := NewPlayback(rp.MaxTick())
	cam := NewCamera()
	return &App{
		replay:    rp,
		playback:  pb,
		camera:    cam,
		workspace: NewWorkspace(rp, pb, cam),
		timeline:  NewTimeline(pb),
		theme:     material.NewTheme(),
	}
}

// Run drives the window event loop until the window closes.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKey(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.playback.Playing {
				a.playback.Advance()
				w.Invalidate()
			}
		}
	}
}

func (a *App) handleKey(e key.Event) {
	switch e.Name {
	case key.NameSpace:
		a.playback.TogglePlay()
	case key.NameLeftArrow:
		a.playback.StepBack()
	case key.NameRightArrow:
		a.playback.StepForward()
	case key.NameHome:
		a.playback.Reset()
	case key.NameUpArrow:
		a.playback.SetSpeed(a.playback.Speed * 2)
	case key.NameDownArrow:
		a.playback.SetSpeed(a.playback.Speed / 2)
	case "R":
		a.camera.Reset()
	case "F":
		// Refit on the next frame.
		a.workspace.fitted = false
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.layoutHeader(gtx)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return a.workspace.Layout(gtx, a.theme)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}

func (a *App) layoutHeader(gtx layout.Context) layout.Dimensions {
	frame := a.replay.FrameAt(a.playback.Tick())
	delivered := 0
	for _, p := range frame.Packages {
		if p.State == core.Delivered {
			delivered++
		}
	}
	label := material.Label(a.theme, 14, fmt.Sprintf(
		"run %s | scenario %s | delivered %d/%d | space play, arrows step/speed, drag pan, scroll zoom",
		a.replay.RunID, a.replay.Scenario, delivered, len(frame.Packages)))
	label.Color = color.NRGBA{R: 200, G: 205, B: 210, A: 255}
	label.Alignment = text.Start
	return layout.Inset{Top: unit.Dp(6), Bottom: unit.Dp(6), Left: unit.Dp(10)}.Layout(gtx, label.Layout)
}
