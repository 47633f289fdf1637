package obsws

import (
	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/sim"
)

// TickMsg is the wire form of one tick snapshot.
type TickMsg struct {
	Type     string       `json:"type"` // always "tick"
	Tick     int          `json:"tick"`
	Done     bool         `json:"done"`
	Agents   []AgentView  `json:"agents"`
	Packages []ParcelView `json:"packages"`
	Stats    sim.Stats    `json:"stats"`
}

// AgentView is the observer-facing slice of one agent's state.
type AgentView struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Pos     [2]int `json:"pos"`
	State   string `json:"state"`
	Mode    string `json:"mode"`
	Wait    int    `json:"wait"`
	Package int    `json:"package"`
	PathLen int    `json:"path_len"`
}

// ParcelView is the observer-facing slice of one package's state.
type ParcelView struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Pickup     [2]int `json:"pickup"`
	Dropoff    [2]int `json:"dropoff"`
	State      string `json:"state"`
	AssignedTo int    `json:"assigned_to"`
}

// Snapshot flattens the live simulation state into a TickMsg.
func Snapshot(tick int, done bool, agents []*core.Agent, packages []*core.Package, stats sim.Stats) TickMsg {
	msg := TickMsg{
		Type:     "tick",
		Tick:     tick,
		Done:     done,
		Agents:   make([]AgentView, 0, len(agents)),
		Packages: make([]ParcelView, 0, len(packages)),
		Stats:    stats,
	}
	for _, a := range agents {
		msg.Agents = append(msg.Agents, AgentView{
			ID:      a.ID,
			Name:    a.Name,
			Pos:     [2]int{a.Pos.Row, a.Pos.Col},
			State:   a.State.String(),
			Mode:    a.Mode.String(),
			Wait:    a.Wait,
			Package: a.PackageID,
			PathLen: len(a.Path),
		})
	}
	for _, p := range packages {
		msg.Packages = append(msg.Packages, ParcelView{
			ID:         p.ID,
			Name:       p.Name,
			Pickup:     [2]int{p.Pickup.Row, p.Pickup.Col},
			Dropoff:    [2]int{p.Dropoff.Row, p.Dropoff.Col},
			State:      p.State.String(),
			AssignedTo: p.AssignedTo,
		})
	}
	return msg
}
