// Package scenario loads simulation scenarios from JSON files and
// optional YAML tuning overrides. A scenario fixes the grid geometry and
// the initial agent and package placements; tuning adjusts thresholds and
// cost weights without touching geometry.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/parcelworks/logisim/internal/core"
)

// Wall is an inclusive rectangle of blocked cells, [r1, c1, r2, c2].
type Wall [4]int

// AgentSpec places one agent. Pos doubles as the agent's home cell.
type AgentSpec struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Pos  [2]int `json:"pos"`
}

// PackageSpec places one package.
type PackageSpec struct {
	Name    string `json:"name"`
	Pickup  [2]int `json:"pickup"`
	Dropoff [2]int `json:"dropoff"`
}

// Settings overrides a subset of core.Config from the scenario file.
// Pointer fields distinguish "absent" from an explicit zero.
type Settings struct {
	Rows     *int `json:"rows,omitempty"`
	Cols     *int `json:"cols,omitempty"`
	MaxSteps *int `json:"max_steps,omitempty"`
}

// Scenario is one decoded scenario file.
type Scenario struct {
	Name     string        `json:"name"`
	Settings Settings      `json:"settings"`
	Walls    []Wall        `json:"walls"`
	Agents   []AgentSpec   `json:"agents"`
	Packages []PackageSpec `json:"packages"`
}

var schema = jsonschema.MustCompileString("scenario.schema.json", schemaJSON)

// Load reads, schema-validates and placement-validates a scenario file.
// Any validation failure is fatal for the run: a scenario that places an
// agent or package on a wall or out of bounds cannot be repaired later.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates scenario bytes.
func Parse(raw []byte) (*Scenario, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyTo folds the scenario's settings overrides into cfg.
func (s *Scenario) ApplyTo(cfg core.Config) core.Config {
	if s.Settings.Rows != nil {
		cfg.Rows = *s.Settings.Rows
	}
	if s.Settings.Cols != nil {
		cfg.Cols = *s.Settings.Cols
	}
	if s.Settings.MaxSteps != nil {
		cfg.MaxSteps = *s.Settings.MaxSteps
	}
	return cfg
}

// Build materializes the scenario into a grid, agents and packages.
// cfg should already have the scenario's settings applied.
func (s *Scenario) Build(cfg core.Config) (*core.Grid, []*core.Agent, []*core.Package) {
	var walls []core.Cell
	for _, w := range s.Walls {
		walls = append(walls, core.WallRect(w[0], w[1], w[2], w[3])...)
	}
	grid := core.NewGrid(cfg.Rows, cfg.Cols, walls)

	agents := make([]*core.Agent, 0, len(s.Agents))
	for i, spec := range s.Agents {
		id := spec.ID
		if id == 0 {
			id = i + 1
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("R%d", id)
		}
		agents = append(agents, core.NewAgent(id, name, cell(spec.Pos)))
	}

	packages := make([]*core.Package, 0, len(s.Packages))
	for i, spec := range s.Packages {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("P%d", i+1)
		}
		packages = append(packages, core.NewPackage(i, name, cell(spec.Pickup), cell(spec.Dropoff)))
	}
	return grid, agents, packages
}

func (s *Scenario) validate() error {
	rows, cols := 26, 80
	if s.Settings.Rows != nil {
		rows = *s.Settings.Rows
	}
	if s.Settings.Cols != nil {
		cols = *s.Settings.Cols
	}
	if rows < 1 || cols < 1 {
		return fmt.Errorf("scenario: grid %dx%d is empty", rows, cols)
	}

	blocked := make(map[core.Cell]bool)
	for i, w := range s.Walls {
		for _, c := range core.WallRect(w[0], w[1], w[2], w[3]) {
			if c.Row < 0 || c.Row >= rows || c.Col < 0 || c.Col >= cols {
				return fmt.Errorf("scenario: wall %d cell %v out of %dx%d grid", i, c, rows, cols)
			}
			blocked[c] = true
		}
	}

	check := func(kind, name string, p [2]int) error {
		c := cell(p)
		if c.Row < 0 || c.Row >= rows || c.Col < 0 || c.Col >= cols {
			return fmt.Errorf("scenario: %s %s at %v is out of the %dx%d grid", kind, name, c, rows, cols)
		}
		if blocked[c] {
			return fmt.Errorf("scenario: %s %s at %v is inside a wall", kind, name, c)
		}
		return nil
	}

	seen := make(map[int]string)
	for i, a := range s.Agents {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("R%d", i+1)
		}
		if err := check("agent", name, a.Pos); err != nil {
			return err
		}
		if a.ID != 0 {
			if prev, dup := seen[a.ID]; dup {
				return fmt.Errorf("scenario: agents %s and %s share id %d", prev, name, a.ID)
			}
			seen[a.ID] = name
		}
	}
	for i, p := range s.Packages {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("P%d", i+1)
		}
		if err := check("package pickup", name, p.Pickup); err != nil {
			return err
		}
		if err := check("package dropoff", name, p.Dropoff); err != nil {
			return err
		}
	}
	return nil
}

func cell(p [2]int) core.Cell {
	return core.Cell{Row: p[0], Col: p[1]}
}
