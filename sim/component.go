package sim

import (
	"sync"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is a element that is being simulated.
type Component interface {
	Named
	Handler
	Hookable
}

// ComponentBase provides some functions that other component can use.
type ComponentBase struct {
	HookableBase
	sync.Mutex
	name string
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name

	return c
}

// Name returns the name of the BasicComponent
func (c *ComponentBase) Name() string {
	return c.name
}

// NameMustBeValid panics if the name cannot be used to identify a component.
// Names are used as table keys and URL path segments by the recorders and
// the monitor, so they may not be empty or contain white space or slashes.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	for _, r := range name {
		switch r {
		case ' ', '\t', '\n', '/':
			panic("name " + name + " contains an invalid character")
		}
	}
}
