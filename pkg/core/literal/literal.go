// Package literal implements Literal, a host-resident typed and shaped value.
//
// A Literal holds either an array, stored as a flat Go slice of the type corresponding to its
// DType (row-major), or a tuple of other literals.
//
// Literals are what is transferred to and from device buffers.
package literal

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Literal is a host value: an array or a tuple of literals.
//
// Its shape never carries a layout: layouts are a device concern.
type Literal struct {
	shape shapes.Shape

	// flat holds the array data, a slice of shape.DType.GoType(). Nil for tuples.
	flat any

	// elements of a tuple literal. Nil for arrays.
	elements []*Literal
}

// New returns a Literal with the given shape, with the data initialized with zeros.
// Tuples are created recursively.
func New(shape shapes.Shape) (*Literal, error) {
	if !shape.Ok() {
		return nil, errors.New("literal.New: invalid shape")
	}
	shape = shape.WithoutLayout()
	if shape.IsTuple() {
		elements := make([]*Literal, 0, shape.TupleSize())
		for _, elementShape := range shape.TupleShapes {
			element, err := New(elementShape)
			if err != nil {
				return nil, err
			}
			elements = append(elements, element)
		}
		return &Literal{shape: shape, elements: elements}, nil
	}
	if !shape.DType.IsSupported() {
		return nil, errors.Errorf("literal.New: unsupported dtype %s for shape %s", shape.DType, shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size)
	return &Literal{shape: shape, flat: flatV.Interface()}, nil
}

// FromFlat creates an array literal from the flat data (row-major) and dimensions.
// The flat slice is owned by the literal afterward.
func FromFlat[T dtypes.Supported](flat []T, dimensions ...int) (*Literal, error) {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if shape.Size() != len(flat) {
		return nil, errors.Errorf("literal.FromFlat: shape %s requires %d elements, got %d", shape, shape.Size(), len(flat))
	}
	return &Literal{shape: shape, flat: flat}, nil
}

// FromScalar creates a scalar literal.
func FromScalar[T dtypes.Supported](value T) *Literal {
	l, _ := FromFlat([]T{value})
	return l
}

// MakeTuple creates a tuple literal that takes ownership of the given elements.
func MakeTuple(elements ...*Literal) *Literal {
	elementShapes := make([]shapes.Shape, 0, len(elements))
	for _, element := range elements {
		elementShapes = append(elementShapes, element.shape)
	}
	if elements == nil {
		elements = []*Literal{}
	}
	return &Literal{shape: shapes.MakeTuple(elementShapes...), elements: elements}
}

// Shape of the literal.
func (l *Literal) Shape() shapes.Shape { return l.shape }

// IsTuple returns whether the literal is a tuple.
func (l *Literal) IsTuple() bool { return l.shape.IsTuple() }

// Flat returns the flat data of an array literal, a slice of the Go type corresponding to the DType.
// The returned slice is owned by the literal. It returns nil for tuples.
func (l *Literal) Flat() any { return l.flat }

// Elements of a tuple literal. The returned literals are still owned by l.
func (l *Literal) Elements() []*Literal { return l.elements }

// DecomposeTuple breaks the tuple into its elements, which are returned.
// The literal l becomes an empty tuple afterward.
func (l *Literal) DecomposeTuple() ([]*Literal, error) {
	if !l.IsTuple() {
		return nil, errors.Errorf("Literal.DecomposeTuple: literal of shape %s is not a tuple", l.shape)
	}
	elements := l.elements
	l.elements = []*Literal{}
	l.shape = shapes.MakeTuple()
	return elements, nil
}

// Clone returns a deep copy of the literal.
func (l *Literal) Clone() *Literal {
	if l.IsTuple() {
		elements := make([]*Literal, 0, len(l.elements))
		for _, element := range l.elements {
			elements = append(elements, element.Clone())
		}
		return &Literal{shape: l.shape.Clone(), elements: elements}
	}
	flatV := reflect.ValueOf(l.flat)
	cloneV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(cloneV, flatV)
	return &Literal{shape: l.shape.Clone(), flat: cloneV.Interface()}
}

// CopyFrom copies the contents of src into l. Both must have the same shape.
func (l *Literal) CopyFrom(src *Literal) error {
	if !l.shape.Equal(src.shape) {
		return errors.Errorf("Literal.CopyFrom: shape mismatch, destination is %s, source is %s", l.shape, src.shape)
	}
	if l.IsTuple() {
		for ii, element := range l.elements {
			if err := element.CopyFrom(src.elements[ii]); err != nil {
				return errors.WithMessagef(err, "tuple element #%d", ii)
			}
		}
		return nil
	}
	reflect.Copy(reflect.ValueOf(l.flat), reflect.ValueOf(src.flat))
	return nil
}

// Bytes returns the raw bytes of an array literal's data, pointing to the literal storage.
// It returns nil for tuples and empty arrays.
func (l *Literal) Bytes() []byte {
	if l.IsTuple() {
		return nil
	}
	flatV := reflect.ValueOf(l.flat)
	if flatV.Len() == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(flatV.UnsafePointer()), flatV.Len()*l.shape.DType.Size())
}

// Equal returns whether both literals have the same shape and the same bytes.
func (l *Literal) Equal(other *Literal) bool {
	if l == nil || other == nil {
		return l == other
	}
	if !l.shape.Equal(other.shape) {
		return false
	}
	if l.IsTuple() {
		for ii, element := range l.elements {
			if !element.Equal(other.elements[ii]) {
				return false
			}
		}
		return true
	}
	return bytes.Equal(l.Bytes(), other.Bytes())
}

// maxStringElements is the maximum number of elements printed by Literal.String.
const maxStringElements = 16

// String implements fmt.Stringer. Large arrays are truncated.
func (l *Literal) String() string {
	if l == nil {
		return "<nil>"
	}
	if l.IsTuple() {
		parts := make([]string, 0, len(l.elements))
		for _, element := range l.elements {
			parts = append(parts, element.String())
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	}
	flatV := reflect.ValueOf(l.flat)
	if l.shape.IsScalar() {
		return fmt.Sprintf("%s: %v", l.shape, flatV.Index(0).Interface())
	}
	if flatV.Len() <= maxStringElements {
		return fmt.Sprintf("%s: %v", l.shape, l.flat)
	}
	return fmt.Sprintf("%s: %v...", l.shape, flatV.Slice(0, maxStringElements).Interface())
}
