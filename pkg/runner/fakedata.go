package runner

import (
	"math/rand/v2"

	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/pkg/errors"
)

// fakeShape returns the host shape used for synthesized data: layout dropped and dynamic axes with size 0.
func fakeShape(shape shapes.Shape) shapes.Shape {
	return shape.WithoutLayout().WithDynamicSizes(0)
}

// makeFakeLiteral synthesizes an argument for the given parameter shape.
// Tuple shapes produce tuple literals, filled recursively.
func makeFakeLiteral(shape shapes.Shape, mode ArgumentMode, deviceID int, rng *rand.Rand) (*literal.Literal, error) {
	lit, err := literal.New(fakeShape(shape))
	if err != nil {
		return nil, errors.WithMessagef(err, "can't create fake argument for shape %s", shape)
	}
	switch mode {
	case UseDeviceIDAsInput:
		err = fillWithValue(lit, deviceID)
	case UseRandomInputs, UseSharedRandomInputs:
		lit.FillRandom(rng)
	case UseZerosAsInput:
		// literal.New already zero-initializes.
	default:
		err = errors.Errorf("argument mode %s doesn't synthesize data", mode)
	}
	if err != nil {
		return nil, err
	}
	return lit, nil
}

// fillWithValue fills every array of lit with value. Bool arrays get (value%2 == 0).
func fillWithValue(lit *literal.Literal, value int) error {
	if lit.IsTuple() {
		for ii, element := range lit.Elements() {
			if err := fillWithValue(element, value); err != nil {
				return errors.WithMessagef(err, "tuple element #%d", ii)
			}
		}
		return nil
	}
	if lit.Shape().DType == dtypes.Bool {
		return lit.Fill(value%2 == 0)
	}
	return lit.Fill(value)
}

// deviceRandomSource returns the pseudo-random source for the arguments of the deviceIdx-th device.
func deviceRandomSource(seed uint64, deviceIdx int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(deviceIdx)+1))
}
