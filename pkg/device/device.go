// Package device defines the API of the device-client: the devices of a process, the buffers stored on them,
// and the compiled executables that run on them.
//
// It is implemented by the actual accelerator runtimes (for instance a PJRT plugin wrapper), and by
// the pure Go simulator in backends/hostsim.
package device

import (
	"fmt"

	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
)

// ErrUnimplemented is returned (wrapped) by a Client when an optional feature is not supported,
// for instance custom layouts on BufferFromHostLiteral.
var ErrUnimplemented = errors.New("unimplemented")

// MemoryKind is the kind of memory a MemorySpace refers to.
type MemoryKind int

const (
	// DeviceMemory is the default memory of a device.
	DeviceMemory MemoryKind = iota

	// PinnedHostMemory is host memory pinned and addressable by the device.
	PinnedHostMemory
)

// String implements fmt.Stringer.
func (k MemoryKind) String() string {
	switch k {
	case DeviceMemory:
		return "device"
	case PinnedHostMemory:
		return "pinned_host"
	default:
		return fmt.Sprintf("MemoryKind(%d)", int(k))
	}
}

// MemorySpace identifies a memory attached to a device.
type MemorySpace struct {
	Kind     MemoryKind
	DeviceID int
}

// String implements fmt.Stringer.
func (m MemorySpace) String() string {
	return fmt.Sprintf("%s@device#%d", m.Kind, m.DeviceID)
}

// Device is one addressable accelerator.
type Device interface {
	// ID is the global numeric id of the device.
	ID() int

	// DefaultMemorySpace of the device.
	DefaultMemorySpace() MemorySpace

	// MemorySpaceByKind returns the memory space of the given kind attached to the device,
	// or an error if the device doesn't have one.
	MemorySpaceByKind(kind MemoryKind) (MemorySpace, error)
}

// Buffer is an on-device allocation holding one array (or tuple) value.
//
// Buffers are owned by exactly one holder at a time: the holder is responsible for calling Destroy.
type Buffer interface {
	Device() Device
	MemorySpace() MemorySpace

	// Shape of the buffer on device, including its layout if it is not the default.
	Shape() shapes.Shape

	// Ready returns the completion signal of the operation that produced the buffer:
	// a transfer, an allocation or an execution.
	Ready() *xsync.Future

	// ToLiteral starts an asynchronous transfer of the buffer contents into dst, which must have the
	// buffer's shape (without layout). The returned future completes when the transfer is done.
	ToLiteral(dst *literal.Literal) *xsync.Future

	// Destroy releases the device memory. The buffer must not be used afterward.
	// Destroying a buffer that was donated to an execution is a no-op, destroying it twice is an error.
	Destroy() error
}

// Client is the connection to the devices of the process.
type Client interface {
	// AddressableDevices returns the devices that this process can address, in order.
	AddressableDevices() []Device

	// BufferFromHostLiteral starts a transfer of lit to the given memory space.
	// The layout is optional: if nil, the default layout is used.
	// If custom layouts are not supported, it returns an error matching ErrUnimplemented.
	//
	// The returned buffer's Ready future completes when the transfer is done.
	BufferFromHostLiteral(lit *literal.Literal, space MemorySpace, layout *shapes.Layout) (Buffer, error)

	// CreateUninitializedBuffer allocates a buffer on the given memory space, without initializing its contents.
	CreateUninitializedBuffer(shape shapes.Shape, space MemorySpace) (Buffer, error)
}

// ExecuteOptions configures one execution of an Executable.
type ExecuteOptions struct {
	// ArgumentsAreTupled indicates the arguments are given as one tuple buffer per device.
	ArgumentsAreTupled bool

	// UntupleResult requests a tuple result to be returned as one buffer per tuple element.
	UntupleResult bool

	// LaunchID identifies the execution, it is used by runtimes to match collectives across devices.
	LaunchID int
}

// Executable is a Program compiled and loaded on a set of devices.
type Executable interface {
	// Name of the executable, for logging.
	Name() string

	// Program returns the compiled program: parameter and result shapes, aliases and device assignment.
	Program() *program.Program

	// AddressableDevices on which the executable runs, in the order of the arguments/outputs
	// of Execute.
	AddressableDevices() []Device

	// Execute starts the execution on every addressable device, with the arguments given per device
	// (args[deviceIdx][argIdx]).
	//
	// It returns the output buffers per device and one completion signal per device.
	// Arguments remain owned by the caller. The ones donated to an aliased output (see Program.Aliases)
	// are consumed: their storage now belongs to the output buffer, and they can only be destroyed.
	Execute(args [][]Buffer, opts ExecuteOptions) (outputs [][]Buffer, done []*xsync.Future, err error)
}
