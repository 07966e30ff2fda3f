package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/hlorunner/backends/hostsim"
	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/pkg/errors"
)

// demoProgram builds a program and the Go function that simulates it.
type demoProgram struct {
	description string
	build       func(size int) (*program.Program, hostsim.ProgramFn, error)
}

var demoPrograms = map[string]demoProgram{
	"accumulate": {
		description: "two f32[size] parameters (x, acc), returns (x, acc+x) with acc aliased",
		build:       buildAccumulate,
	},
	"train_step": {
		description: "one tuple (weights f32[size,size], bias f32[size], step s64), fully aliased to the updated tuple",
		build:       buildTrainStep,
	},
	"matmul": {
		description: "two f32[size,size] parameters, returns their product, nothing aliased",
		build:       buildMatMul,
	},
}

func demoProgramsUsage() string {
	names := make([]string, 0, len(demoPrograms))
	for name := range demoPrograms {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for ii, name := range names {
		parts[ii] = fmt.Sprintf("%q: %s", name, demoPrograms[name].description)
	}
	return strings.Join(parts, "; ")
}

func buildAccumulate(size int) (*program.Program, hostsim.ProgramFn, error) {
	f32 := shapes.Make(dtypes.Float32, size)
	prog := &program.Program{
		Name:            "accumulate",
		ParameterShapes: []shapes.Shape{f32, f32},
		ResultShape:     shapes.MakeTuple(f32, f32),
	}
	if err := prog.Aliases.SetUpAlias(shapes.ShapeIndex{1}, 1, nil, program.MayAlias); err != nil {
		return nil, nil, err
	}
	return prog, func(call *hostsim.Call) (*literal.Literal, error) {
		x, acc := call.Params[0], call.Params[1]
		accFlat := acc.Flat().([]float32)
		for ii, v := range x.Flat().([]float32) {
			accFlat[ii] += v
		}
		return literal.MakeTuple(x, acc), nil
	}, nil
}

func buildTrainStep(size int) (*program.Program, hostsim.ProgramFn, error) {
	state := []shapes.Shape{
		shapes.Make(dtypes.Float32, size, size),
		shapes.Make(dtypes.Float32, size),
		shapes.Make(dtypes.Int64),
	}
	prog := &program.Program{
		Name:            "train_step",
		ParameterShapes: []shapes.Shape{shapes.MakeTuple(state...)},
		ResultShape:     shapes.MakeTuple(state...),
	}
	for ii := range state {
		if err := prog.Aliases.SetUpAlias(shapes.ShapeIndex{ii}, 0, shapes.ShapeIndex{ii}, program.MustAlias); err != nil {
			return nil, nil, err
		}
	}
	return prog, func(call *hostsim.Call) (*literal.Literal, error) {
		elements, err := call.Params[0].DecomposeTuple()
		if err != nil {
			return nil, err
		}
		weights, bias := elements[0].Flat().([]float32), elements[1].Flat().([]float32)
		for ii := range weights {
			weights[ii] = 0.999*weights[ii] + 0.001*bias[ii%size]
		}
		elements[2].Flat().([]int64)[0]++
		return literal.MakeTuple(elements...), nil
	}, nil
}

func buildMatMul(size int) (*program.Program, hostsim.ProgramFn, error) {
	if size > 1024 {
		return nil, nil, errors.Errorf("matmul is limited to size 1024, got %d", size)
	}
	matrix := shapes.Make(dtypes.Float32, size, size)
	prog := &program.Program{
		Name:            "matmul",
		ParameterShapes: []shapes.Shape{matrix, matrix},
		ResultShape:     matrix,
	}
	return prog, func(call *hostsim.Call) (*literal.Literal, error) {
		a, b := call.Params[0].Flat().([]float32), call.Params[1].Flat().([]float32)
		result := make([]float32, size*size)
		for row := range size {
			for k := range size {
				aValue := a[row*size+k]
				for col := range size {
					result[row*size+col] += aValue * b[k*size+col]
				}
			}
		}
		return literal.FromFlat(result, size, size)
	}, nil
}
