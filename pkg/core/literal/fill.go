package literal

import (
	"math/rand/v2"
	"reflect"

	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Fill sets every element of the literal, recursively for tuples, to value converted to the literal's dtype.
//
// Bool literals require a bool value. Numeric values are converted with Go's conversion rules,
// so a negative number filled into an unsigned literal wraps around.
func (l *Literal) Fill(value any) error {
	if l.IsTuple() {
		for ii, element := range l.elements {
			if err := element.Fill(value); err != nil {
				return errors.WithMessagef(err, "tuple element #%d", ii)
			}
		}
		return nil
	}
	elementV, err := convertValue(value, l.shape.DType)
	if err != nil {
		return errors.WithMessagef(err, "Literal.Fill(%v) for shape %s", value, l.shape)
	}
	flatV := reflect.ValueOf(l.flat)
	for ii := range flatV.Len() {
		flatV.Index(ii).Set(elementV)
	}
	return nil
}

// convertValue converts value to a reflect.Value of dtype's Go type.
func convertValue(value any, dtype dtypes.DType) (reflect.Value, error) {
	valueV := reflect.ValueOf(value)
	if !valueV.IsValid() {
		return reflect.Value{}, errors.New("nil value")
	}
	switch dtype {
	case dtypes.Bool:
		if valueV.Kind() != reflect.Bool {
			return reflect.Value{}, errors.Errorf("a bool is required for dtype Bool, got %T", value)
		}
		return valueV, nil
	case dtypes.Float16:
		if valueV.Type() == dtype.GoType() {
			return valueV, nil
		}
		f32, err := toFloat64(valueV)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(float16.Fromfloat32(float32(f32))), nil
	}
	if valueV.Kind() == reflect.Bool {
		// Numeric dtypes take 0 or 1.
		if valueV.Bool() {
			valueV = reflect.ValueOf(1)
		} else {
			valueV = reflect.ValueOf(0)
		}
	}
	if valueV.Type() == reflect.TypeOf(float16.Float16(0)) {
		valueV = reflect.ValueOf(valueV.Interface().(float16.Float16).Float32())
	}
	goType := dtype.GoType()
	if dtype.IsComplex() && valueV.Kind() != reflect.Complex64 && valueV.Kind() != reflect.Complex128 {
		f, err := toFloat64(valueV)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(complex(f, 0)).Convert(goType), nil
	}
	if !valueV.CanConvert(goType) {
		return reflect.Value{}, errors.Errorf("can't convert %T to dtype %s", value, dtype)
	}
	return valueV.Convert(goType), nil
}

func toFloat64(valueV reflect.Value) (float64, error) {
	switch {
	case valueV.Type() == reflect.TypeOf(float16.Float16(0)):
		return float64(valueV.Interface().(float16.Float16).Float32()), nil
	case valueV.CanInt():
		return float64(valueV.Int()), nil
	case valueV.CanUint():
		return float64(valueV.Uint()), nil
	case valueV.CanFloat():
		return valueV.Float(), nil
	}
	return 0, errors.Errorf("can't convert %s to a float", valueV.Type())
}

// FillRandom fills the literal, recursively for tuples, with pseudo-random values from rng:
//
//   - Floats and complex numbers: uniform in [0, 1) (for complex, both real and imaginary parts).
//   - Integers: uniform in [0, 100).
//   - Bool: true or false with equal probability.
func (l *Literal) FillRandom(rng *rand.Rand) {
	if l.IsTuple() {
		for _, element := range l.elements {
			element.FillRandom(rng)
		}
		return
	}
	switch flat := l.flat.(type) {
	case []bool:
		for ii := range flat {
			flat[ii] = rng.IntN(2) == 0
		}
	case []float16.Float16:
		for ii := range flat {
			flat[ii] = float16.Fromfloat32(rng.Float32())
		}
	case []float32:
		for ii := range flat {
			flat[ii] = rng.Float32()
		}
	case []float64:
		for ii := range flat {
			flat[ii] = rng.Float64()
		}
	case []complex64:
		for ii := range flat {
			flat[ii] = complex(rng.Float32(), rng.Float32())
		}
	case []complex128:
		for ii := range flat {
			flat[ii] = complex(rng.Float64(), rng.Float64())
		}
	default:
		// Integer types.
		flatV := reflect.ValueOf(l.flat)
		goType := l.shape.DType.GoType()
		for ii := range flatV.Len() {
			flatV.Index(ii).Set(reflect.ValueOf(rng.IntN(100)).Convert(goType))
		}
	}
}
