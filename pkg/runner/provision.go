package runner

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PerDeviceLiterals maps a device id to its ordered list of literals: the arguments of a program
// or its outputs.
type PerDeviceLiterals map[int][]*literal.Literal

// BufferSet holds the buffers of the arguments (or outputs) of one execution, per addressable device
// (in the order of Executable.AddressableDevices) and per slot.
type BufferSet [][]device.Buffer

// Destroy every buffer of the set, logging failures. The set is emptied.
func (bs BufferSet) Destroy() {
	for deviceIdx, buffers := range bs {
		for slot, buffer := range buffers {
			if buffer == nil {
				continue
			}
			if err := buffer.Destroy(); err != nil {
				klog.Warningf("failed to destroy buffer for device #%d, slot %d: %+v", deviceIdx, slot, err)
			}
			buffers[slot] = nil
		}
	}
}

// drainAndDestroy waits for any pending operation on the buffers, ignoring failures, and destroys them.
func (bs BufferSet) drainAndDestroy() {
	_ = xsync.AwaitAll(bs.readyFutures()...)
	bs.Destroy()
}

// readyFutures returns the Ready signal of every buffer in the set.
func (bs BufferSet) readyFutures() []*xsync.Future {
	var futures []*xsync.Future
	for _, buffers := range bs {
		for _, buffer := range buffers {
			if buffer != nil {
				futures = append(futures, buffer.Ready())
			}
		}
	}
	return futures
}

// provisioner creates the argument buffers of an executable on each of its addressable devices.
type provisioner struct {
	client  device.Client
	prog    *program.Program
	devices []device.Device
	flatten bool

	mode            ArgumentMode
	logArguments    bool
	randomSeed      uint64
	rng             *rand.Rand
	alarmThreshold  time.Duration
	onSlowAlarm     func()
	numCreations    atomic.Int64
	layoutFallbacks atomic.Int64
}

// parameterShapes returns the shapes of the arguments as given to Execute.
// When flattening, the program must have exactly one parameter, a tuple.
func (p *provisioner) parameterShapes() ([]shapes.Shape, error) {
	if !p.flatten {
		return p.prog.ParameterShapes, nil
	}
	if len(p.prog.ParameterShapes) != 1 || !p.prog.ParameterShapes[0].IsTuple() {
		return nil, errors.Wrapf(ErrInvalidFlattenRequest,
			"program %q: flattening arguments requires exactly one tuple parameter, got %d parameters",
			p.prog.Name, len(p.prog.ParameterShapes))
	}
	return p.prog.ParameterShapes[0].TupleShapes, nil
}

// create the arguments for every addressable device: from the given literals (replay) if not nil,
// or else synthesized according to the argument mode.
//
// It only returns once every buffer is ready. On failure, the buffers already created are destroyed.
func (p *provisioner) create(arguments PerDeviceLiterals) (BufferSet, error) {
	p.numCreations.Add(1)
	if p.alarmThreshold > 0 {
		start := time.Now()
		alarm := time.AfterFunc(p.alarmThreshold, func() {
			klog.Warningf("Creating arguments for %q is taking more than %s", p.prog.Name, p.alarmThreshold)
			if p.onSlowAlarm != nil {
				p.onSlowAlarm()
			}
		})
		defer func() {
			alarm.Stop()
			klog.V(2).Infof("Arguments for %q created in %s", p.prog.Name, time.Since(start))
		}()
	}

	var (
		args BufferSet
		err  error
	)
	switch {
	case arguments != nil:
		args, err = p.copyArguments(arguments)
	case p.mode == Uninitialized:
		args, err = p.createUninitialized()
	default:
		args, err = p.createSynthesized()
	}
	if err != nil {
		return nil, err
	}
	if err = xsync.AwaitAll(args.readyFutures()...); err != nil {
		args.Destroy()
		return nil, errors.WithMessagef(err, "while waiting for the arguments of %q to be ready on device", p.prog.Name)
	}
	return args, nil
}

// createSynthesized creates fake arguments. For the shared modes the literals are created once and copied
// to every device.
func (p *provisioner) createSynthesized() (BufferSet, error) {
	paramShapes, err := p.parameterShapes()
	if err != nil {
		return nil, err
	}
	shared := p.mode == UseSharedRandomInputs || p.mode == UseZerosAsInput
	var sharedLiterals []*literal.Literal
	perDevice := make([][]*literal.Literal, len(p.devices))
	for deviceIdx, dev := range p.devices {
		if shared && sharedLiterals != nil {
			perDevice[deviceIdx] = sharedLiterals
			continue
		}
		rng := p.rng
		if rng == nil {
			rng = deviceRandomSource(p.randomSeed, deviceIdx)
		}
		literals := make([]*literal.Literal, len(paramShapes))
		for argIdx, shape := range paramShapes {
			literals[argIdx], err = makeFakeLiteral(shape, p.mode, dev.ID(), rng)
			if err != nil {
				return nil, errors.WithMessagef(err, "argument #%d for device #%d", argIdx, dev.ID())
			}
		}
		perDevice[deviceIdx] = literals
		if shared {
			sharedLiterals = literals
		}
	}
	return p.transfer(perDevice, paramShapes)
}

// copyArguments transfers the given literals. If arguments are flattened, a device given only one tuple literal
// has its elements used as arguments.
func (p *provisioner) copyArguments(arguments PerDeviceLiterals) (BufferSet, error) {
	if len(arguments) != len(p.devices) {
		return nil, errors.Wrapf(ErrArgumentCountMismatch,
			"arguments given for %d devices, but %q has %d addressable devices", len(arguments), p.prog.Name, len(p.devices))
	}
	paramShapes, err := p.parameterShapes()
	if err != nil {
		return nil, err
	}
	perDevice := make([][]*literal.Literal, len(p.devices))
	for deviceIdx, dev := range p.devices {
		literals, found := arguments[dev.ID()]
		if !found {
			return nil, errors.Wrapf(ErrArgumentCountMismatch, "no arguments given for device #%d", dev.ID())
		}
		if p.flatten && len(literals) == 1 && literals[0].IsTuple() {
			literals = literals[0].Elements()
		}
		if len(literals) != len(paramShapes) {
			return nil, errors.Wrapf(ErrArgumentCountMismatch, "%d arguments given for device #%d, but %q takes %d",
				len(literals), dev.ID(), p.prog.Name, len(paramShapes))
		}
		for argIdx, lit := range literals {
			if !shapes.Compatible(paramShapes[argIdx].WithoutLayout(), lit.Shape()) {
				return nil, errors.Wrapf(ErrShapeMismatch, "argument #%d for device #%d has shape %s, but parameter requires %s",
					argIdx, dev.ID(), lit.Shape(), paramShapes[argIdx])
			}
		}
		perDevice[deviceIdx] = literals
	}
	return p.transfer(perDevice, paramShapes)
}

// transfer issues the host-to-device transfers of the literals, using the layout (and memory space) of the
// parameters. It doesn't wait for the transfers to complete.
func (p *provisioner) transfer(perDevice [][]*literal.Literal, paramShapes []shapes.Shape) (BufferSet, error) {
	args := make(BufferSet, len(p.devices))
	var totalBytes uintptr
	for deviceIdx, dev := range p.devices {
		args[deviceIdx] = make([]device.Buffer, len(paramShapes))
		for argIdx, lit := range perDevice[deviceIdx] {
			if p.logArguments {
				klog.Infof("Argument #%d for device #%d: %s", argIdx, dev.ID(), lit)
			}
			buffer, err := p.bufferFromLiteral(dev, lit, paramShapes[argIdx])
			if err != nil {
				args.drainAndDestroy()
				return nil, errors.WithMessagef(err, "failed to transfer argument #%d to device #%d", argIdx, dev.ID())
			}
			args[deviceIdx][argIdx] = buffer
			totalBytes += lit.Shape().Memory()
		}
	}
	klog.V(1).Infof("Transferring %d arguments to %d devices (%s) for %q",
		len(paramShapes), len(p.devices), humanize.Bytes(uint64(totalBytes)), p.prog.Name)
	return args, nil
}

// bufferFromLiteral transfers one argument with the parameter layout, falling back to the default layout
// if the client doesn't support custom layouts.
func (p *provisioner) bufferFromLiteral(dev device.Device, lit *literal.Literal, paramShape shapes.Shape) (device.Buffer, error) {
	space, err := memorySpaceFor(dev, paramShape)
	if err != nil {
		return nil, err
	}
	buffer, err := p.client.BufferFromHostLiteral(lit, space, paramShape.Layout)
	if err != nil && paramShape.Layout != nil && errors.Is(err, device.ErrUnimplemented) {
		klog.V(1).Infof("Custom layout %s not supported for device #%d, using the default layout: %v",
			paramShape.Layout, dev.ID(), err)
		p.layoutFallbacks.Add(1)
		buffer, err = p.client.BufferFromHostLiteral(lit, space, nil)
	}
	return buffer, err
}

// memorySpaceFor returns the memory space of the device requested by the shape's layout.
func memorySpaceFor(dev device.Device, shape shapes.Shape) (device.MemorySpace, error) {
	if shape.MemorySpace() != shapes.HostMemorySpace {
		return dev.DefaultMemorySpace(), nil
	}
	space, err := dev.MemorySpaceByKind(device.PinnedHostMemory)
	if err != nil {
		return space, errors.WithMessagef(err, "shape %s requires pinned host memory on device #%d", shape, dev.ID())
	}
	return space, nil
}

// createUninitialized allocates the arguments on the default memory space of the devices without transferring
// any data.
func (p *provisioner) createUninitialized() (BufferSet, error) {
	paramShapes, err := p.parameterShapes()
	if err != nil {
		return nil, err
	}
	args := make(BufferSet, len(p.devices))
	for deviceIdx, dev := range p.devices {
		args[deviceIdx] = make([]device.Buffer, len(paramShapes))
		for argIdx, shape := range paramShapes {
			// Allocated as declared: dynamic dimensions take their bound.
			args[deviceIdx][argIdx], err = p.client.CreateUninitializedBuffer(shape, dev.DefaultMemorySpace())
			if err != nil {
				args.drainAndDestroy()
				return nil, errors.WithMessagef(err, "failed to allocate argument #%d on device #%d", argIdx, dev.ID())
			}
		}
	}
	return args, nil
}
