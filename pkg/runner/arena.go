package runner

import (
	"github.com/gomlx/hlorunner/pkg/device"
	"k8s.io/klog/v2"
)

// argSlot is an argument of the current repeat and whether it is owned by the original table.
type argSlot struct {
	buffer     device.Buffer
	isOriginal bool
}

// outputSlot is an output of the last repeat and whether it was moved into the arguments.
type outputSlot struct {
	buffer device.Buffer
	moved  bool
}

// slotArena owns every buffer of a run, addressed by (device, slot).
//
// Buffers move between tables, they are never shared: an output moved into the arguments is owned by
// the arguments table from then on. A buffer is destroyed exactly once, when its owner releases it.
type slotArena struct {
	// original holds the arguments of the first repeat (or of the last recreation), reused by unaliased slots.
	original BufferSet

	arguments [][]argSlot
	outputs   [][]outputSlot
}

// reset releases everything and takes ownership of freshly provisioned arguments.
func (a *slotArena) reset(args BufferSet) {
	a.releaseAll()
	a.original = args
	a.arguments = make([][]argSlot, len(args))
	for deviceIdx, buffers := range args {
		a.arguments[deviceIdx] = make([]argSlot, len(buffers))
		for slot, buffer := range buffers {
			a.arguments[deviceIdx][slot] = argSlot{buffer: buffer, isOriginal: true}
		}
	}
}

// argumentSet returns the current arguments, still owned by the arena.
func (a *slotArena) argumentSet() BufferSet {
	args := make(BufferSet, len(a.arguments))
	for deviceIdx, slots := range a.arguments {
		args[deviceIdx] = make([]device.Buffer, len(slots))
		for slot, s := range slots {
			args[deviceIdx][slot] = s.buffer
		}
	}
	return args
}

// setOutputs takes ownership of the outputs of the last execution.
func (a *slotArena) setOutputs(outputs BufferSet) {
	a.releaseOutputs()
	a.outputs = make([][]outputSlot, len(outputs))
	for deviceIdx, buffers := range outputs {
		a.outputs[deviceIdx] = make([]outputSlot, len(buffers))
		for slot, buffer := range buffers {
			a.outputs[deviceIdx][slot] = outputSlot{buffer: buffer}
		}
	}
}

// outputSet returns the outputs of the last execution, still owned by the arena.
func (a *slotArena) outputSet() BufferSet {
	outputs := make(BufferSet, len(a.outputs))
	for deviceIdx, slots := range a.outputs {
		outputs[deviceIdx] = make([]device.Buffer, len(slots))
		for slot, s := range slots {
			outputs[deviceIdx][slot] = s.buffer
		}
	}
	return outputs
}

// advance derives the arguments of the next repeat with the AliasMap, moving the aliased outputs into
// the arguments table. Superseded arguments that are not owned by the original table, and outputs not moved,
// are released.
func (a *slotArena) advance(m AliasMap) error {
	next, err := m.Derive(a.outputSet(), a.original)
	if err != nil {
		return err
	}
	for deviceIdx, slots := range a.arguments {
		for _, s := range slots {
			if !s.isOriginal {
				release(s.buffer, deviceIdx)
			}
		}
	}
	for deviceIdx, buffers := range next {
		for slot, buffer := range buffers {
			isOriginal := !m.IsAliased(slot)
			a.arguments[deviceIdx][slot] = argSlot{buffer: buffer, isOriginal: isOriginal}
			if !isOriginal {
				a.outputs[deviceIdx][m[slot]].moved = true
			}
		}
	}
	a.releaseOutputs()
	return nil
}

// releaseOutputs destroys the outputs not moved to the arguments table, and clears the outputs table.
func (a *slotArena) releaseOutputs() {
	for deviceIdx, slots := range a.outputs {
		for _, s := range slots {
			if !s.moved {
				release(s.buffer, deviceIdx)
			}
		}
	}
	a.outputs = nil
}

// releaseAll destroys every buffer owned by the arena.
func (a *slotArena) releaseAll() {
	a.releaseOutputs()
	for deviceIdx, slots := range a.arguments {
		for _, s := range slots {
			if !s.isOriginal {
				release(s.buffer, deviceIdx)
			}
		}
	}
	a.arguments = nil
	a.original.Destroy()
	a.original = nil
}

func release(buffer device.Buffer, deviceIdx int) {
	if buffer == nil {
		return
	}
	if err := buffer.Destroy(); err != nil {
		klog.Warningf("failed to destroy buffer on device #%d: %+v", deviceIdx, err)
	}
}
