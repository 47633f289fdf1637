package core

// Package is one delivery job: carry from Pickup to Dropoff. Packages are
// created at load time; a depleted scenario may append replacements but
// never mutates delivered ones.
type Package struct {
	ID   int
	Name string

	Pickup  Cell
	Dropoff Cell

	State PackageState

	// AssignedTo is the agent currently responsible, NoID when
	// unassigned. Exactly one agent may hold a WAITING package.
	AssignedTo int
}

// NewPackage creates a waiting, unassigned package.
func NewPackage(id int, name string, pickup, dropoff Cell) *Package {
	return &Package{
		ID:         id,
		Name:       name,
		Pickup:     pickup,
		Dropoff:    dropoff,
		State:      Waiting,
		AssignedTo: NoID,
	}
}
