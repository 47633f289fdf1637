package core

// Grid is the static geometry of the warehouse floor: bounds, walls and the
// precomputed corridor scores. It is immutable after construction and safe
// to read from concurrent planners.
type Grid struct {
	Rows, Cols int

	walls    map[Cell]struct{}
	corridor map[Cell]int
}

// NewGrid builds a grid with the given wall cells. Wall cells outside the
// bounds are ignored.
func NewGrid(rows, cols int, walls []Cell) *Grid {
	g := &Grid{
		Rows:     rows,
		Cols:     cols,
		walls:    make(map[Cell]struct{}, len(walls)),
		corridor: make(map[Cell]int, rows*cols),
	}
	for _, w := range walls {
		if g.InBounds(w) {
			g.walls[w] = struct{}{}
		}
	}
	g.computeCorridors()
	return g
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// IsWall reports whether c is a wall cell.
func (g *Grid) IsWall(c Cell) bool {
	_, ok := g.walls[c]
	return ok
}

// IsFree reports whether c is in bounds and not a wall.
func (g *Grid) IsFree(c Cell) bool {
	return g.InBounds(c) && !g.IsWall(c)
}

// Neighbors returns the free orthogonal neighbors of c, in the fixed
// Directions order.
func (g *Grid) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range Directions {
		n := c.Step(d)
		if g.IsFree(n) {
			out = append(out, n)
		}
	}
	return out
}

// IsNarrowPassage reports whether c has at most two free orthogonal
// neighbors. Narrow cells are bottlenecks and get a cost surcharge for
// low-priority traffic.
func (g *Grid) IsNarrowPassage(c Cell) bool {
	open := 0
	for _, d := range Directions {
		if g.IsFree(c.Step(d)) {
			open++
		}
	}
	return open <= 2
}

// CorridorScore returns the number of free 8-neighbors of c (0 for walls).
// High scores mark wide corridors that planning rewards.
func (g *Grid) CorridorScore(c Cell) int {
	return g.corridor[c]
}

func (g *Grid) computeCorridors() {
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			cell := Cell{r, c}
			if g.IsWall(cell) {
				g.corridor[cell] = 0
				continue
			}
			open := 0
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					n := Cell{r + dr, c + dc}
					if g.IsFree(n) {
						open++
					}
				}
			}
			g.corridor[cell] = open
		}
	}
}

// WallRect expands a rectangle [r1,c1,r2,c2] into its wall cells. Corners
// may be given in any order.
func WallRect(r1, c1, r2, c2 int) []Cell {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	cells := make([]Cell, 0, (r2-r1+1)*(c2-c1+1))
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			cells = append(cells, Cell{r, c})
		}
	}
	return cells
}
