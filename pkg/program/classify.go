package program

import "github.com/gomlx/hlorunner/pkg/core/shapes"

// ParameterType is the calling convention of a program, derived from its parameter shapes.
type ParameterType int

const (
	// ParameterOneTupleOfArrays is a program with exactly one parameter, a tuple whose elements are all arrays.
	ParameterOneTupleOfArrays ParameterType = iota

	// ParameterOneListOfArrays is a program whose parameters are all arrays (no tuples).
	ParameterOneListOfArrays

	// ParameterOther is any other combination, for instance nested tuples or more than one tuple.
	ParameterOther
)

//go:generate go tool enumer -type=ParameterType -trimprefix=Parameter -transform=snake -values -text -json -yaml -output=gen_parametertype_enumer.go classify.go

// Classify returns the ParameterType of the program.
func Classify(p *Program) ParameterType {
	if len(p.ParameterShapes) == 1 && p.ParameterShapes[0].IsTuple() {
		for _, element := range p.ParameterShapes[0].TupleShapes {
			if element.IsTuple() {
				return ParameterOther
			}
		}
		return ParameterOneTupleOfArrays
	}
	for _, shape := range p.ParameterShapes {
		if shape.IsTuple() {
			return ParameterOther
		}
	}
	return ParameterOneListOfArrays
}

// FlattenArguments returns whether the arguments are given as the flattened elements of the single tuple parameter.
func (t ParameterType) FlattenArguments() bool {
	return t == ParameterOneTupleOfArrays
}

// DefaultUntupleResult returns whether a result is untupled by default in intermediate iterations: only for
// the array-based conventions, and only if the result is a tuple.
func (t ParameterType) DefaultUntupleResult(resultIsTuple bool) bool {
	return resultIsTuple && (t == ParameterOneTupleOfArrays || t == ParameterOneListOfArrays)
}

// FlattenedParameterShapes returns the shapes of the arguments as passed to the executable: the elements of the
// tuple for ParameterOneTupleOfArrays, the parameter shapes otherwise.
func FlattenedParameterShapes(p *Program) []shapes.Shape {
	if Classify(p).FlattenArguments() {
		return p.ParameterShapes[0].TupleShapes
	}
	return p.ParameterShapes
}
