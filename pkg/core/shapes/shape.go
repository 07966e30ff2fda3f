// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, Layout and ShapeIndex.
//
// Shape represents the shape (rank, dimensions and DType) of a device buffer, of a host literal,
// or of a parameter/result of a compiled program. It can also be a tuple of other shapes.
//
// Axes may be marked as dynamic: in that case the dimension given is an upper bound, and the
// actual size is only known for a concrete value.
//
// Example: the multi-dimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` has shape `(Int32)[2 3]`,
// which can be created with `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Shape of an array or a tuple.
//
// Use Make or MakeTuple to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// DynamicDimensions marks which axes are dynamic. If nil, all axes are static.
	DynamicDimensions []bool

	// TupleShapes is non-nil if this is a tuple (it may have 0 elements).
	TupleShapes []Shape

	// Layout is optional: nil means the default layout of the device.
	Layout *Layout
}

// Make returns an array Shape with the values given.
// Dimensions must be >= 0: zero-sized axes are valid.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			panic(errors.Errorf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s))
		}
	}
	return s
}

// MakeTuple returns a shape representing a tuple of elements with the given shapes.
func MakeTuple(elements ...Shape) Shape {
	if elements == nil {
		elements = []Shape{}
	}
	return Shape{DType: dtypes.InvalidDType, TupleShapes: elements}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{}, is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType || s.TupleShapes != nil }

// IsTuple returns whether the shape represents a tuple.
func (s Shape) IsTuple() bool { return s.DType == dtypes.InvalidDType && s.TupleShapes != nil }

// IsArray returns whether the shape is a valid non-tuple shape.
func (s Shape) IsArray() bool { return s.DType != dtypes.InvalidDType }

// TupleSize returns the number of elements in the tuple, if it is a tuple.
func (s Shape) TupleSize() int { return len(s.TupleShapes) }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no axes (rank==0).
func (s Shape) IsScalar() bool { return s.IsArray() && s.Rank() == 0 }

// Size returns the number of elements of DType needed for this shape. It's the product of all dimensions.
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Memory returns the memory in bytes used to store an array of the given shape.
// For tuples, it is the sum of the memory of its elements.
func (s Shape) Memory() uintptr {
	if s.IsTuple() {
		var total uintptr
		for _, element := range s.TupleShapes {
			total += element.Memory()
		}
		return total
	}
	if !s.DType.IsSupported() {
		return 0
	}
	return s.DType.Memory() * uintptr(s.Size())
}

// IsDynamicDimension returns whether the given axis is dynamic.
func (s Shape) IsDynamicDimension(axis int) bool {
	return axis < len(s.DynamicDimensions) && s.DynamicDimensions[axis]
}

// IsStatic returns true if no axis, recursively for tuples, is dynamic.
func (s Shape) IsStatic() bool {
	if s.IsTuple() {
		for _, element := range s.TupleShapes {
			if !element.IsStatic() {
				return false
			}
		}
		return true
	}
	return !slices.Contains(s.DynamicDimensions, true)
}

// WithDynamicDimensions returns a copy of the shape with the given axes marked as dynamic.
// The dimension of those axes becomes their upper bound.
func (s Shape) WithDynamicDimensions(axes ...int) Shape {
	s2 := s.Clone()
	if s2.DynamicDimensions == nil {
		s2.DynamicDimensions = make([]bool, s2.Rank())
	}
	for _, axis := range axes {
		if axis < 0 || axis >= s2.Rank() {
			panic(errors.Errorf("Shape.WithDynamicDimensions(%v): axis %d out-of-bounds for %s", axes, axis, s))
		}
		s2.DynamicDimensions[axis] = true
	}
	return s2
}

// WithDynamicSizes returns a copy of the shape where every dynamic axis, recursively for tuples,
// has its dimension replaced by size. The axes remain marked as dynamic.
func (s Shape) WithDynamicSizes(size int) Shape {
	s2 := s.Clone()
	if s2.IsTuple() {
		for ii := range s2.TupleShapes {
			s2.TupleShapes[ii] = s2.TupleShapes[ii].WithDynamicSizes(size)
		}
		return s2
	}
	for axis := range s2.Dimensions {
		if s2.IsDynamicDimension(axis) {
			s2.Dimensions[axis] = size
		}
	}
	return s2
}

// WithLayout returns a copy of the shape with the given layout.
func (s Shape) WithLayout(layout *Layout) Shape {
	s2 := s.Clone()
	s2.Layout = layout.Clone()
	return s2
}

// WithoutLayout returns a copy of the shape with the layout cleared, recursively for tuples.
// This is the "host shape" of a device shape.
func (s Shape) WithoutLayout() Shape {
	s2 := s.Clone()
	s2.Layout = nil
	for ii := range s2.TupleShapes {
		s2.TupleShapes[ii] = s2.TupleShapes[ii].WithoutLayout()
	}
	return s2
}

// MemorySpace returns the memory space requested by the layout, or DeviceMemorySpace if there is no layout.
func (s Shape) MemorySpace() MemorySpace {
	if s.Layout == nil {
		return DeviceMemorySpace
	}
	return s.Layout.MemorySpace
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.IsTuple() {
		parts := make([]string, 0, s.TupleSize())
		for _, element := range s.TupleShapes {
			parts = append(parts, element.String())
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s)[", s.DType)
	for axis, dim := range s.Dimensions {
		if axis > 0 {
			sb.WriteString(" ")
		}
		if s.IsDynamicDimension(axis) {
			sb.WriteString("<=")
		}
		fmt.Fprintf(&sb, "%d", dim)
	}
	sb.WriteString("]")
	if s.Layout != nil {
		sb.WriteString(s.Layout.String())
	}
	return sb.String()
}

// Equal compares two shapes for equality: dtype, dimensions, dynamic axes and tuple elements are compared.
// Layouts are not compared, see EqualWithLayout.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType || s.IsTuple() != s2.IsTuple() {
		return false
	}
	if s.IsTuple() {
		if s.TupleSize() != s2.TupleSize() {
			return false
		}
		for ii, element := range s.TupleShapes {
			if !element.Equal(s2.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	if !slices.Equal(s.Dimensions, s2.Dimensions) {
		return false
	}
	for axis := range s.Dimensions {
		if s.IsDynamicDimension(axis) != s2.IsDynamicDimension(axis) {
			return false
		}
	}
	return true
}

// EqualWithLayout compares the shapes and their layouts.
func (s Shape) EqualWithLayout(s2 Shape) bool {
	if !s.Equal(s2) || !s.Layout.Equal(s2.Layout) {
		return false
	}
	for ii, element := range s.TupleShapes {
		if !element.EqualWithLayout(s2.TupleShapes[ii]) {
			return false
		}
	}
	return true
}

// Compatible returns whether a concrete value of shape actual can be used where bound is expected:
// same dtype and rank, and every axis has the same dimension, or, if the axis is dynamic in bound,
// a dimension not larger than the bound. Layouts are ignored.
func Compatible(bound, actual Shape) bool {
	if bound.DType != actual.DType || bound.IsTuple() != actual.IsTuple() {
		return false
	}
	if bound.IsTuple() {
		if bound.TupleSize() != actual.TupleSize() {
			return false
		}
		for ii, element := range bound.TupleShapes {
			if !Compatible(element, actual.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	if bound.Rank() != actual.Rank() {
		return false
	}
	for axis, dim := range bound.Dimensions {
		if bound.IsDynamicDimension(axis) {
			if actual.Dimensions[axis] > dim {
				return false
			}
		} else if actual.Dimensions[axis] != dim {
			return false
		}
	}
	return true
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	s2.DynamicDimensions = slices.Clone(s.DynamicDimensions)
	s2.Layout = s.Layout.Clone()
	if s.TupleShapes != nil {
		s2.TupleShapes = make([]Shape, 0, len(s.TupleShapes))
		for _, subShape := range s.TupleShapes {
			s2.TupleShapes = append(s2.TupleShapes, subShape.Clone())
		}
	}
	return
}
