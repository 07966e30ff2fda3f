// Package dtypes includes the DType enum for the element types of device buffers and host literals.
//
// The numeric values follow the PJRT C API buffer types (PJRT_Buffer_Type_*), so they can be passed
// unchanged to a PJRT based device client.
//
// It includes converters to/from Go native types (and reflect.Type) and some constraint interfaces
// to be used with generics.
package dtypes

import (
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is an enum that represents the data type of a buffer or a literal.
type DType int32

const (
	// InvalidDType is the zero value, used also as the DType of tuple shapes.
	InvalidDType DType = 0

	// Bool is a predicate: two-state booleans.
	Bool DType = 1

	Int8  DType = 2
	Int16 DType = 3
	Int32 DType = 4
	Int64 DType = 5

	Uint8  DType = 6
	Uint16 DType = 7
	Uint32 DType = 8
	Uint64 DType = 9

	// Float16 is stored in Go as float16.Float16, from github.com/x448/float16.
	Float16 DType = 10
	Float32 DType = 11
	Float64 DType = 12

	// Complex64 is paired F32 (real, imag).
	Complex64 DType = 14
	// Complex128 is paired F64 (real, imag).
	Complex128 DType = 15
)

// Aliases using the XLA primitive type names.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	F32  = Float32
	F64  = Float64
	C64  = Complex64
	C128 = Complex128
)

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// MapOfNames to their dtypes. It includes the XLA aliases (PRED, F32, ...) and, after
// initialization, the lower-case version of all names.
var MapOfNames = map[string]DType{
	"INVALID": InvalidDType,
	"PRED":    Bool,
	"S8":      Int8,
	"S16":     Int16,
	"S32":     Int32,
	"S64":     Int64,
	"U8":      Uint8,
	"U16":     Uint16,
	"U32":     Uint32,
	"U64":     Uint64,
	"F16":     Float16,
	"F32":     Float32,
	"F64":     Float64,
	"C64":     Complex64,
	"C128":    Complex128,
}

func init() {
	if strconv.IntSize != 32 && strconv.IntSize != 64 {
		panic(errors.Errorf("cannot use int of %d bits -- only platforms with int32 or int64 are supported", strconv.IntSize))
	}
	for dtype, name := range dtypeNames {
		MapOfNames[name] = dtype
	}
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if _, found := MapOfNames[lowerKey]; !found {
			MapOfNames[lowerKey] = MapOfNames[key]
		}
	}
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if name, found := dtypeNames[dtype]; found {
		return name
	}
	return "DType(" + strconv.Itoa(int(dtype)) + ")"
}

// FromName returns the DType for the given name. It accepts the Go names ("Float32"), the XLA
// names ("F32") and their lower-case versions.
func FromName(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		return InvalidDType, errors.Errorf("unknown dtype %q", name)
	}
	return dtype, nil
}

// MarshalText implements encoding.TextMarshaler.
func (dtype DType) MarshalText() ([]byte, error) {
	return []byte(dtype.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dtype *DType) UnmarshalText(text []byte) error {
	var err error
	*dtype, err = FromName(string(text))
	return err
}

// IsSupported returns whether dtype can be stored in a literal.
func (dtype DType) IsSupported() bool {
	_, found := goTypes[dtype]
	return found
}

var (
	float16Type = reflect.TypeOf(float16.Float16(0))

	goTypes = map[DType]reflect.Type{
		Bool:       reflect.TypeOf(true),
		Int8:       reflect.TypeOf(int8(0)),
		Int16:      reflect.TypeOf(int16(0)),
		Int32:      reflect.TypeOf(int32(0)),
		Int64:      reflect.TypeOf(int64(0)),
		Uint8:      reflect.TypeOf(uint8(0)),
		Uint16:     reflect.TypeOf(uint16(0)),
		Uint32:     reflect.TypeOf(uint32(0)),
		Uint64:     reflect.TypeOf(uint64(0)),
		Float16:    float16Type,
		Float32:    reflect.TypeOf(float32(0)),
		Float64:    reflect.TypeOf(float64(0)),
		Complex64:  reflect.TypeOf(complex64(0)),
		Complex128: reflect.TypeOf(complex128(0)),
	}
)

// GoType returns the Go `reflect.Type` corresponding to the DType.
// It panics for unsupported dtypes, see IsSupported.
func (dtype DType) GoType() reflect.Type {
	t, found := goTypes[dtype]
	if !found {
		panic(errors.Errorf("unknown dtype %q (%d) in DType.GoType", dtype, int32(dtype)))
	}
	return t
}

// Size returns the number of bytes for one element of the given DType.
func (dtype DType) Size() int {
	return int(dtype.GoType().Size())
}

// Memory returns the number of bytes for the given DType. It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// FromGoType returns the DType for the given "reflect.Type", or InvalidDType if not supported.
func FromGoType(t reflect.Type) DType {
	if t == float16Type {
		return Float16
	}
	switch t.Kind() {
	case reflect.Int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16
	case reflect.Int8:
		return Int8
	case reflect.Uint64:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8
	case reflect.Bool:
		return Bool
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}

// FromGenericsType returns the DType enum for the given type.
func FromGenericsType[T Supported]() DType {
	var t T
	return FromGoType(reflect.TypeOf(t))
}

// IsFloat returns whether dtype is a float. It returns false for complex numbers.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether dtype is a signed or unsigned integer.
func (dtype DType) IsInt() bool {
	return dtype == Int8 || dtype == Int16 || dtype == Int32 || dtype == Int64 ||
		dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// IsUnsigned returns whether dtype is one of the unsigned integer types.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// IsComplex returns whether dtype is a complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// Supported lists the Go types that can be stored in a literal.
//
// Notice Go's `int` type is not portable, since it may translate to Int32 or Int64 depending
// on the platform.
type Supported interface {
	bool | float16.Float16 | float32 | float64 | int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 | complex64 | complex128
}
