package shapes

import (
	"fmt"
	"slices"
)

// MemorySpace identifies where a buffer lives, as requested by a Layout.
type MemorySpace int

const (
	// DeviceMemorySpace is the device default memory.
	DeviceMemorySpace MemorySpace = 0

	// HostMemorySpace is host memory pinned for (and addressable by) the device.
	// The value matches XLA's Layout::kHostMemorySpace.
	HostMemorySpace MemorySpace = 5
)

// String implements fmt.Stringer.
func (m MemorySpace) String() string {
	switch m {
	case DeviceMemorySpace:
		return "device"
	case HostMemorySpace:
		return "host"
	default:
		return fmt.Sprintf("MemorySpace(%d)", int(m))
	}
}

// Layout of an array on device. A nil *Layout means the default layout.
type Layout struct {
	// MinorToMajor lists the axes from the fastest varying to the slowest varying.
	// If empty, the default (row-major) order is used.
	MinorToMajor []int

	MemorySpace MemorySpace
}

// Clone returns a deep copy. It returns nil for a nil layout.
func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	return &Layout{MinorToMajor: slices.Clone(l.MinorToMajor), MemorySpace: l.MemorySpace}
}

// Equal returns whether both layouts are equal. Two nil layouts are equal.
func (l *Layout) Equal(l2 *Layout) bool {
	if l == nil || l2 == nil {
		return l == l2
	}
	return l.MemorySpace == l2.MemorySpace && slices.Equal(l.MinorToMajor, l2.MinorToMajor)
}

// String implements fmt.Stringer.
func (l *Layout) String() string {
	if l == nil {
		return "{}"
	}
	if l.MemorySpace == DeviceMemorySpace {
		return fmt.Sprintf("%v", l.MinorToMajor)
	}
	return fmt.Sprintf("%v:S(%d)", l.MinorToMajor, int(l.MemorySpace))
}
