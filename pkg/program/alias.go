package program

import (
	"fmt"
	"iter"
	"slices"

	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/pkg/errors"
)

// AliasKind tells whether the runtime may or must reuse the parameter storage for the output.
type AliasKind int

const (
	// MayAlias lets the runtime decide whether to reuse the parameter buffer for the output.
	MayAlias AliasKind = iota

	// MustAlias requires the parameter buffer to be donated to the output.
	MustAlias
)

// String implements fmt.Stringer.
func (k AliasKind) String() string {
	if k == MustAlias {
		return "must-alias"
	}
	return "may-alias"
}

// Alias declares that the output at OutputIndex may reuse the storage of the parameter ParameterNumber
// at ParameterIndex (the empty index if the parameter is not a tuple).
type Alias struct {
	OutputIndex     shapes.ShapeIndex
	ParameterNumber int
	ParameterIndex  shapes.ShapeIndex
	Kind            AliasKind
}

// String implements fmt.Stringer.
func (a Alias) String() string {
	return fmt.Sprintf("output%s <- param#%d%s (%s)", a.OutputIndex, a.ParameterNumber, a.ParameterIndex, a.Kind)
}

// AliasConfig is the input/output alias table of a program.
// The zero value is an empty table, ready to use.
type AliasConfig struct {
	aliases []Alias
}

// SetUpAlias adds an alias from the parameter at (paramNumber, paramIndex) to the output at outputIndex.
// Each output and each parameter can only be aliased once.
func (c *AliasConfig) SetUpAlias(outputIndex shapes.ShapeIndex, paramNumber int, paramIndex shapes.ShapeIndex, kind AliasKind) error {
	for _, a := range c.aliases {
		if a.OutputIndex.Equal(outputIndex) {
			return errors.Errorf("output %s is already aliased to parameter #%d%s", outputIndex, a.ParameterNumber, a.ParameterIndex)
		}
		if a.ParameterNumber == paramNumber && a.ParameterIndex.Equal(paramIndex) {
			return errors.Errorf("parameter #%d%s is already aliased to output %s", paramNumber, paramIndex, a.OutputIndex)
		}
	}
	c.aliases = append(c.aliases, Alias{
		OutputIndex:     slices.Clone(outputIndex),
		ParameterNumber: paramNumber,
		ParameterIndex:  slices.Clone(paramIndex),
		Kind:            kind,
	})
	return nil
}

// GetAliasedOutput returns the output index aliased to the parameter at (paramNumber, paramIndex), if any.
func (c *AliasConfig) GetAliasedOutput(paramNumber int, paramIndex shapes.ShapeIndex) (shapes.ShapeIndex, bool) {
	for _, a := range c.aliases {
		if a.ParameterNumber == paramNumber && a.ParameterIndex.Equal(paramIndex) {
			return a.OutputIndex, true
		}
	}
	return nil, false
}

// Len returns the number of aliases configured.
func (c *AliasConfig) Len() int { return len(c.aliases) }

// All iterates over the aliases in the order they were set up.
func (c *AliasConfig) All() iter.Seq[Alias] {
	return func(yield func(Alias) bool) {
		for _, a := range c.aliases {
			if !yield(a) {
				return
			}
		}
	}
}
