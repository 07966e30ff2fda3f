package runner

import (
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/pkg/errors"
)

// NoAlias marks an argument slot not aliased to any output.
const NoAlias = -1

// AliasMap maps each (flattened) argument slot to the output slot that replaces it in the next repeat,
// or NoAlias.
type AliasMap []int

// NewAliasMap derives the AliasMap of a program from its alias table.
//
// For ParameterOneTupleOfArrays slot p is the element p of the single tuple parameter. For ParameterOneListOfArrays
// it is the parameter p. ParameterOther programs never reuse outputs.
//
// If the result is a tuple (and hence untupled in intermediate repeats), the output slot is the first element of the
// aliased output index. Otherwise, the output index must be empty and the output slot is 0.
func NewAliasMap(prog *program.Program, ptype program.ParameterType) (AliasMap, error) {
	var numSlots int
	switch ptype {
	case program.ParameterOneTupleOfArrays:
		numSlots = prog.ParameterShapes[0].TupleSize()
	default:
		numSlots = len(prog.ParameterShapes)
	}
	m := make(AliasMap, numSlots)
	for slot := range m {
		m[slot] = NoAlias
		var (
			outputIndex shapes.ShapeIndex
			found       bool
		)
		switch ptype {
		case program.ParameterOneTupleOfArrays:
			outputIndex, found = prog.Aliases.GetAliasedOutput(0, shapes.ShapeIndex{slot})
		case program.ParameterOneListOfArrays:
			outputIndex, found = prog.Aliases.GetAliasedOutput(slot, shapes.ShapeIndex{})
		}
		if !found {
			continue
		}
		if prog.ResultShape.IsTuple() {
			if len(outputIndex) == 0 {
				return nil, errors.Wrapf(ErrShapeMismatch, "program %q: argument slot %d aliased to the whole tuple result %s",
					prog.Name, slot, prog.ResultShape)
			}
			if outputIndex[0] >= prog.ResultShape.TupleSize() {
				return nil, errors.Wrapf(ErrShapeMismatch, "program %q: argument slot %d aliased to output %s, out of range for result %s",
					prog.Name, slot, outputIndex, prog.ResultShape)
			}
			m[slot] = outputIndex[0]
		} else {
			if len(outputIndex) != 0 {
				return nil, errors.Wrapf(ErrShapeMismatch, "program %q: argument slot %d aliased to output %s, but the result %s is not a tuple",
					prog.Name, slot, outputIndex, prog.ResultShape)
			}
			m[slot] = 0
		}
	}
	return m, nil
}

// IsAliased returns whether the slot is fed by an output of the previous repeat.
func (m AliasMap) IsAliased(slot int) bool {
	return slot < len(m) && m[slot] != NoAlias
}

// NumAliased returns the number of aliased slots.
func (m AliasMap) NumAliased() int {
	var count int
	for _, o := range m {
		if o != NoAlias {
			count++
		}
	}
	return count
}

// Derive returns the arguments of the next repeat: aliased slots take the output buffer of the previous repeat,
// and the other slots take the buffer of the original (first repeat) arguments.
//
// It only rewires buffers: nothing is copied or transferred.
func (m AliasMap) Derive(outputs, original BufferSet) (BufferSet, error) {
	if len(outputs) != len(original) {
		return nil, errors.Wrapf(ErrArgumentCountMismatch, "outputs for %d devices, original arguments for %d devices",
			len(outputs), len(original))
	}
	args := make(BufferSet, len(original))
	for deviceIdx := range original {
		if len(original[deviceIdx]) != len(m) {
			return nil, errors.Wrapf(ErrArgumentCountMismatch, "device #%d has %d arguments, expected %d",
				deviceIdx, len(original[deviceIdx]), len(m))
		}
		args[deviceIdx] = make([]device.Buffer, len(m))
		for slot, outputSlot := range m {
			if outputSlot == NoAlias {
				args[deviceIdx][slot] = original[deviceIdx][slot]
				continue
			}
			if outputSlot >= len(outputs[deviceIdx]) {
				return nil, errors.Wrapf(ErrShapeMismatch, "device #%d: argument slot %d aliased to output %d, but there are only %d outputs",
					deviceIdx, slot, outputSlot, len(outputs[deviceIdx]))
			}
			args[deviceIdx][slot] = outputs[deviceIdx][outputSlot]
		}
	}
	return args, nil
}
