// Package snapshot loads the arguments of a program, per device, from a JSON file, to be replayed by runner.Run.
//
// Format:
//
//	{
//	  "program": "train_step",
//	  "devices": [
//	    {"device_id": 0, "arguments": [
//	      {"dtype": "Float32", "dims": [2, 2], "values": [1, 2, 3, 4]},
//	      {"dtype": "Int32", "values": 7},
//	      {"dtype": "Bool", "dims": [1024], "fill": true},
//	      {"tuple": [{"dtype": "C64", "dims": [1], "values": [[1, -1]]}]}
//	    ]}
//	  ]
//	}
//
// DTypes can be given by their Go name ("Float32") or XLA name ("F32"). Complex values are given as [real, imag] pairs.
// A value without dims is a scalar; "fill" sets every element of the array to the same value.
package snapshot

import (
	"bytes"
	"io"
	"os"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

type fileJSON struct {
	Program string       `json:"program"`
	Devices []deviceJSON `json:"devices"`
}

type deviceJSON struct {
	DeviceID  int         `json:"device_id"`
	Arguments []valueJSON `json:"arguments"`
}

type valueJSON struct {
	DType  dtypes.DType    `json:"dtype"`
	Dims   []int           `json:"dims"`
	Values json.RawMessage `json:"values"`
	Fill   any             `json:"fill"`
	Tuple  []valueJSON     `json:"tuple"`
}

// Snapshot holds the arguments loaded from a file.
type Snapshot struct {
	// Program name, informative only.
	Program string

	Arguments runner.PerDeviceLiterals
}

// Load reads a snapshot.
func Load(r io.Reader) (*Snapshot, error) {
	var file fileJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	s := &Snapshot{Program: file.Program, Arguments: make(runner.PerDeviceLiterals, len(file.Devices))}
	for _, dev := range file.Devices {
		if _, found := s.Arguments[dev.DeviceID]; found {
			return nil, errors.Errorf("snapshot: device #%d given more than once", dev.DeviceID)
		}
		literals := make([]*literal.Literal, len(dev.Arguments))
		for ii, value := range dev.Arguments {
			var err error
			literals[ii], err = value.toLiteral()
			if err != nil {
				return nil, errors.WithMessagef(err, "snapshot: argument #%d of device #%d", ii, dev.DeviceID)
			}
		}
		s.Arguments[dev.DeviceID] = literals
	}
	klog.V(1).Infof("Loaded snapshot of %q with arguments for %d devices", s.Program, len(s.Arguments))
	return s, nil
}

// LoadFile reads a snapshot from the file in path.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open snapshot %q", path)
	}
	defer func() { _ = f.Close() }()
	s, err := Load(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading %q", path)
	}
	return s, nil
}

func (v *valueJSON) toLiteral() (*literal.Literal, error) {
	if v.Tuple != nil {
		if v.DType != dtypes.InvalidDType || v.Values != nil || v.Fill != nil {
			return nil, errors.New("a tuple can't have dtype, values or fill")
		}
		elements := make([]*literal.Literal, len(v.Tuple))
		for ii, element := range v.Tuple {
			var err error
			elements[ii], err = element.toLiteral()
			if err != nil {
				return nil, errors.WithMessagef(err, "tuple element #%d", ii)
			}
		}
		return literal.MakeTuple(elements...), nil
	}
	if v.DType == dtypes.InvalidDType {
		return nil, errors.New("missing dtype")
	}
	for _, dim := range v.Dims {
		if dim < 0 {
			return nil, errors.Errorf("invalid dims %v", v.Dims)
		}
	}
	lit, err := literal.New(shapes.Make(v.DType, v.Dims...))
	if err != nil {
		return nil, err
	}
	switch {
	case v.Fill != nil && v.Values != nil:
		return nil, errors.New("only one of values or fill can be given")
	case v.Fill != nil:
		err = lit.Fill(v.Fill)
	case v.Values != nil:
		err = decodeValues(lit, v.Values)
	}
	if err != nil {
		return nil, err
	}
	return lit, nil
}

// decodeValues decodes the flat values of lit. A single value (not a list) is accepted for scalars.
func decodeValues(lit *literal.Literal, raw json.RawMessage) error {
	dtype := lit.Shape().DType
	if !isList(raw, dtype.IsComplex()) {
		raw = append(append([]byte{'['}, raw...), ']')
	}
	var flat any
	switch {
	case dtype == dtypes.Float16:
		var f32 []float32
		if err := json.Unmarshal(raw, &f32); err != nil {
			return errors.Wrapf(err, "failed to decode %s values", dtype)
		}
		f16 := make([]float16.Float16, len(f32))
		for ii, v := range f32 {
			f16[ii] = float16.Fromfloat32(v)
		}
		flat = f16
	case dtype.IsComplex():
		var pairs [][2]float64
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return errors.Wrapf(err, "failed to decode %s values, expected [real, imag] pairs", dtype)
		}
		values := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), len(pairs), len(pairs))
		for ii, pair := range pairs {
			values.Index(ii).Set(reflect.ValueOf(complex(pair[0], pair[1])).Convert(dtype.GoType()))
		}
		flat = values.Interface()
	default:
		ptr := reflect.New(reflect.SliceOf(dtype.GoType()))
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return errors.Wrapf(err, "failed to decode %s values", dtype)
		}
		flat = ptr.Elem().Interface()
	}
	if n := reflect.ValueOf(flat).Len(); n != lit.Shape().Size() {
		return errors.Errorf("shape %s requires %d values, got %d", lit.Shape(), lit.Shape().Size(), n)
	}
	reflect.Copy(reflect.ValueOf(lit.Flat()), reflect.ValueOf(flat))
	return nil
}

// isList returns whether raw is a list of values. For complex numbers, a value is itself a list.
func isList(raw []byte, isComplex bool) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return false
	}
	if !isComplex {
		return true
	}
	inner := bytes.TrimSpace(raw[1:])
	return len(inner) > 0 && (inner[0] == '[' || inner[0] == ']')
}
