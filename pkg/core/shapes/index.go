package shapes

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ShapeIndex is a path into a (nested) tuple shape: each element selects the tuple element
// at that level. The empty index refers to the shape itself.
type ShapeIndex []int

// String implements fmt.Stringer.
func (idx ShapeIndex) String() string {
	parts := make([]string, len(idx))
	for ii, element := range idx {
		parts[ii] = strconv.Itoa(element)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Equal returns whether both indices are the same path.
func (idx ShapeIndex) Equal(idx2 ShapeIndex) bool {
	return slices.Equal(idx, idx2)
}

// SubShape returns the shape at the given index.
func (s Shape) SubShape(index ShapeIndex) (Shape, error) {
	sub := s
	for level, element := range index {
		if !sub.IsTuple() {
			return Invalid(), errors.Errorf("shape %s: can't index non-tuple at position %d of index %v", s, level, index)
		}
		if element < 0 || element >= sub.TupleSize() {
			return Invalid(), errors.Errorf("shape %s: index %v out-of-bounds at position %d (tuple has %d elements)",
				s, index, level, sub.TupleSize())
		}
		sub = sub.TupleShapes[element]
	}
	return sub, nil
}

// Leaves iterates over the non-tuple shapes of s, depth-first, yielding each leaf's index and shape.
// A non-tuple shape yields only itself, with an empty index.
//
// The yielded index is owned by the iterator: clone it if it is to be kept.
func (s Shape) Leaves() iter.Seq2[ShapeIndex, Shape] {
	return func(yield func(ShapeIndex, Shape) bool) {
		var index ShapeIndex
		var recurse func(sub Shape) bool
		recurse = func(sub Shape) bool {
			if !sub.IsTuple() {
				return yield(index, sub)
			}
			for ii, element := range sub.TupleShapes {
				index = append(index, ii)
				if !recurse(element) {
					return false
				}
				index = index[:len(index)-1]
			}
			return true
		}
		recurse(s)
	}
}

// HasNestedTuple returns whether s is a tuple with at least one element that is itself a tuple.
func (s Shape) HasNestedTuple() bool {
	for _, element := range s.TupleShapes {
		if element.IsTuple() {
			return true
		}
	}
	return false
}
