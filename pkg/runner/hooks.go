package runner

import (
	"iter"
	"maps"
	"slices"
)

// Priority for hooks, the lowest values are run first. Defaults to 0, but negative values are ok.
type Priority int

// IterationInfo is given to the iteration hooks.
type IterationInfo struct {
	// Executable name.
	Executable string

	// Repeat is the 0-based iteration index.
	Repeat, NumRepeats int

	// Final is true for the last repeat, the one whose outputs are returned.
	Final bool

	// Arguments of the repeat, owned by the runner: hooks must not destroy them.
	Arguments BufferSet

	// Outputs of the repeat, only set for OnIterationEnd hooks. Also owned by the runner.
	Outputs BufferSet
}

// IterationHookFn is the type of the hooks called at the iteration boundaries.
// An error returned by a hook aborts the run.
type IterationHookFn func(info *IterationInfo) error

// RunEndHookFn is the type of the hooks called when a Run returns, with the error it is about to return (nil on
// success). They are called for failed runs too, after every buffer was released.
type RunEndHookFn func(executable string, runErr error) error

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks organizes hooks per priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{
		hooks: make(map[Priority][]H),
	}
}

// Add hook at the given priority.
func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// All returns an iterator over all registered hooks in priority order.
// Hooks with the same priority are returned in the order they were added.
func (h *priorityHooks[H]) All() iter.Seq[H] {
	return func(yield func(H) bool) {
		for _, priority := range slices.Sorted(maps.Keys(h.hooks)) {
			for _, hook := range h.hooks[priority] {
				if !yield(hook) {
					return
				}
			}
		}
	}
}
