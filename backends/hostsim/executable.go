package hostsim

import (
	"fmt"

	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Call holds the parameters of one execution of a ProgramFn on one device.
type Call struct {
	DeviceID int
	Logical  program.LogicalDeviceID
	LaunchID int

	// Params has one literal per program parameter (tuple parameters are given as tuple literals).
	// They are copies: the function may modify them or return them as part of the result.
	Params []*literal.Literal
}

// ProgramFn implements a simulated program: it returns a literal with the program's result shape.
type ProgramFn func(call *Call) (*literal.Literal, error)

// Executable is a Program "compiled" for the simulated devices.
type Executable struct {
	client  *Client
	prog    *program.Program
	fn      ProgramFn
	devices []device.Device
	ptype   program.ParameterType
}

// Compile-time check:
var _ device.Executable = (*Executable)(nil)

// Compile returns an executable that runs fn on every addressable device of the client.
//
// If the program has no replicas and partitions set, every addressable device is a replica. If it has no
// device assignment, the default one is used (see program.DefaultDeviceAssignment).
func (c *Client) Compile(prog *program.Program, fn ProgramFn) (*Executable, error) {
	compiled := *prog
	numDevices := len(c.addressable)
	if compiled.NumReplicas == 0 && compiled.NumPartitions == 0 {
		rp, err := program.ComputeReplicasAndPartitions(numDevices, 0, 0, 1)
		if err != nil {
			return nil, err
		}
		compiled.NumReplicas, compiled.NumPartitions = rp.Replicas, rp.Partitions
	}
	if compiled.DeviceAssignment == nil {
		var err error
		compiled.DeviceAssignment, err = program.DefaultDeviceAssignment(numDevices,
			program.ReplicasAndPartitions{Replicas: compiled.NumReplicas, Partitions: compiled.NumPartitions})
		if err != nil {
			return nil, errors.WithMessagef(err, "hostsim: compiling %q", prog.Name)
		}
	}
	if len(compiled.DeviceAssignment) != numDevices {
		return nil, errors.Errorf("hostsim: program %q assigned to %d devices, but there are %d addressable devices",
			prog.Name, len(compiled.DeviceAssignment), numDevices)
	}
	if err := compiled.Validate(); err != nil {
		return nil, err
	}
	klog.V(1).Infof("hostsim: compiled %q for %d devices (%d replicas, %d partitions)",
		compiled.Name, numDevices, compiled.NumReplicas, compiled.NumPartitions)
	return &Executable{
		client:  c,
		prog:    &compiled,
		fn:      fn,
		devices: c.AddressableDevices(),
		ptype:   program.Classify(&compiled),
	}, nil
}

// Name implements device.Executable.
func (e *Executable) Name() string { return e.prog.Name }

// Program implements device.Executable.
func (e *Executable) Program() *program.Program { return e.prog }

// AddressableDevices implements device.Executable.
func (e *Executable) AddressableDevices() []device.Device { return e.devices }

// numFlatArguments returns the number of arguments expected per device by Execute.
func (e *Executable) numFlatArguments(opts device.ExecuteOptions) int {
	if e.ptype.FlattenArguments() && !opts.ArgumentsAreTupled {
		return e.prog.ParameterShapes[0].TupleSize()
	}
	return e.prog.NumParameters()
}

// outputShapes returns the shapes of the output buffers of each device.
func (e *Executable) outputShapes(opts device.ExecuteOptions) []shapes.Shape {
	if opts.UntupleResult && e.prog.ResultShape.IsTuple() {
		return e.prog.ResultShape.TupleShapes
	}
	return []shapes.Shape{e.prog.ResultShape}
}

// Execute implements device.Executable.
//
// Outputs are returned immediately, and become ready when the execution on their device finishes.
// Arguments aliased to an output slot are donated.
func (e *Executable) Execute(args [][]device.Buffer, opts device.ExecuteOptions) ([][]device.Buffer, []*xsync.Future, error) {
	if len(args) != len(e.devices) {
		return nil, nil, errors.Errorf("hostsim: %q given arguments for %d devices, but it runs on %d devices",
			e.prog.Name, len(args), len(e.devices))
	}
	numArgs := e.numFlatArguments(opts)
	for deviceIdx, deviceArgs := range args {
		if len(deviceArgs) != numArgs {
			return nil, nil, errors.Errorf("hostsim: %q given %d arguments for device #%d, expected %d",
				e.prog.Name, len(deviceArgs), e.devices[deviceIdx].ID(), numArgs)
		}
		for argIdx, arg := range deviceArgs {
			if arg == nil || arg.Device().ID() != e.devices[deviceIdx].ID() {
				return nil, nil, errors.Errorf("hostsim: %q argument #%d for device #%d is missing or on another device",
					e.prog.Name, argIdx, e.devices[deviceIdx].ID())
			}
		}
	}

	outputShapes := e.outputShapes(opts)
	outputs := make([][]device.Buffer, len(e.devices))
	done := make([]*xsync.Future, len(e.devices))
	for deviceIdx, d := range e.devices {
		dev := d.(*Device)
		deviceOutputs := make([]*Buffer, len(outputShapes))
		outputs[deviceIdx] = make([]device.Buffer, len(outputShapes))
		for ii, shape := range outputShapes {
			space, err := dev.MemorySpaceByKind(memoryKindOf(shape))
			if err != nil {
				space = dev.DefaultMemorySpace()
			}
			deviceOutputs[ii] = e.client.newBuffer(dev, space, shape)
			outputs[deviceIdx][ii] = deviceOutputs[ii]
		}
		done[deviceIdx] = xsync.NewFuture()
		deviceArgs := args[deviceIdx]
		logical := e.prog.DeviceAssignment[deviceIdx]
		deviceDone := done[deviceIdx]
		e.client.numExecutions.Add(1)
		e.client.pool.Run(func() {
			err := e.executeOnDevice(dev, logical, deviceArgs, deviceOutputs, opts)
			for _, output := range deviceOutputs {
				output.ready.Set(err)
			}
			deviceDone.Set(err)
		})
	}
	return outputs, done, nil
}

func memoryKindOf(shape shapes.Shape) device.MemoryKind {
	if shape.MemorySpace() == shapes.HostMemorySpace {
		return device.PinnedHostMemory
	}
	return device.DeviceMemory
}

// executeOnDevice runs the program function and fills the outputs.
func (e *Executable) executeOnDevice(dev *Device, logical program.LogicalDeviceID,
	args []device.Buffer, outputs []*Buffer, opts device.ExecuteOptions) error {
	if err := xsync.AwaitAll(readyFutures(args)...); err != nil {
		return errors.WithMessagef(err, "hostsim: argument of %q on device #%d failed", e.prog.Name, dev.id)
	}
	if e.client.executeFailure != nil {
		if err := e.client.executeFailure(dev.id, opts.LaunchID); err != nil {
			return err
		}
	}

	// Read arguments, and find the ones donated.
	flat := make([]*literal.Literal, len(args))
	donated := make([]int, len(args))
	for ii := range donated {
		donated[ii] = -1
	}
	for argIdx, arg := range args {
		buf, ok := arg.(*Buffer)
		if !ok {
			return errors.Errorf("hostsim: argument #%d of %q is not a hostsim buffer (%T)", argIdx, e.prog.Name, arg)
		}
		data, err := buf.read()
		if err != nil {
			return errors.WithMessagef(err, "argument #%d", argIdx)
		}
		flat[argIdx] = data.Clone()
		donated[argIdx] = e.donatedTo(argIdx, opts, len(outputs))
	}
	params := flat
	if e.ptype.FlattenArguments() && !opts.ArgumentsAreTupled {
		params = []*literal.Literal{literal.MakeTuple(flat...)}
	}

	result, err := e.fn(&Call{DeviceID: dev.id, Logical: logical, LaunchID: opts.LaunchID, Params: params})
	if err != nil {
		return errors.WithMessagef(err, "hostsim: executing %q on device #%d", e.prog.Name, dev.id)
	}
	if !shapes.Compatible(e.prog.ResultShape.WithoutLayout(), result.Shape()) {
		return errors.Errorf("hostsim: %q returned shape %s on device #%d, expected %s",
			e.prog.Name, result.Shape(), dev.id, e.prog.ResultShape)
	}

	results := []*literal.Literal{result}
	if len(outputs) > 1 || (opts.UntupleResult && result.IsTuple()) {
		results = result.Elements()
	}
	for argIdx, outputIdx := range donated {
		if outputIdx < 0 {
			continue
		}
		// The output takes over the argument storage, updated in place.
		storage, err := args[argIdx].(*Buffer).donate()
		if err != nil {
			return err
		}
		if err = storage.CopyFrom(results[outputIdx]); err != nil {
			return errors.WithMessagef(err, "hostsim: aliased output #%d of %q", outputIdx, e.prog.Name)
		}
		results[outputIdx] = storage
	}
	for ii, output := range outputs {
		output.setData(results[ii])
	}
	return nil
}

// donatedTo returns the output slot the argument is donated to, or -1.
// Only arguments aliased to a whole output buffer are donated.
func (e *Executable) donatedTo(argIdx int, opts device.ExecuteOptions, numOutputs int) int {
	var (
		outputIndex shapes.ShapeIndex
		found       bool
	)
	if e.ptype.FlattenArguments() && !opts.ArgumentsAreTupled {
		outputIndex, found = e.prog.Aliases.GetAliasedOutput(0, shapes.ShapeIndex{argIdx})
	} else {
		outputIndex, found = e.prog.Aliases.GetAliasedOutput(argIdx, shapes.ShapeIndex{})
	}
	if !found {
		return -1
	}
	untupled := opts.UntupleResult && e.prog.ResultShape.IsTuple()
	switch {
	case untupled && len(outputIndex) == 1 && outputIndex[0] < numOutputs:
		return outputIndex[0]
	case !untupled && len(outputIndex) == 0:
		return 0
	}
	return -1
}

func readyFutures(buffers []device.Buffer) []*xsync.Future {
	futures := make([]*xsync.Future, len(buffers))
	for ii, buf := range buffers {
		futures[ii] = buf.Ready()
	}
	return futures
}

// String implements fmt.Stringer.
func (e *Executable) String() string {
	return fmt.Sprintf("hostsim.Executable(%q, %d devices)", e.prog.Name, len(e.devices))
}
