// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package program describes a compiled device program as seen from the host: its parameter and
// result shapes, its input/output aliases and its assignment of devices to replicas and partitions.
//
// It also classifies the calling convention of a program (see Classify).
package program

import (
	"fmt"

	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrParameterOutOfRange is returned (wrapped) when a parameter number doesn't exist in the program.
var ErrParameterOutOfRange = errors.New("parameter out of range")

// LogicalDeviceID locates a device in the replica/partition grid of a program.
type LogicalDeviceID struct {
	Replica, Partition int
}

// String implements fmt.Stringer.
func (id LogicalDeviceID) String() string {
	return fmt.Sprintf("(replica=%d, partition=%d)", id.Replica, id.Partition)
}

// Program is the host view of a compiled program. It is immutable once compiled.
type Program struct {
	// Name of the program, used for logging.
	Name string

	// ParameterShapes in order. Their Layout, if set, is the layout the executable requires
	// for the argument, including its memory space.
	ParameterShapes []shapes.Shape

	// ResultShape is the shape of the program output, often a tuple.
	ResultShape shapes.Shape

	// Aliases between parameters and outputs.
	Aliases AliasConfig

	NumReplicas, NumPartitions int

	// DeviceAssignment maps each addressable device (in the order of the executable's devices) to its
	// replica and partition.
	DeviceAssignment []LogicalDeviceID
}

// NumParameters returns the number of (not flattened) parameters.
func (p *Program) NumParameters() int { return len(p.ParameterShapes) }

// ParameterShape returns the shape of the parameter, or an error if the index is out of range.
func (p *Program) ParameterShape(paramIdx int) (shapes.Shape, error) {
	if paramIdx < 0 || paramIdx >= len(p.ParameterShapes) {
		return shapes.Invalid(), errors.Wrapf(ErrParameterOutOfRange, "program %q: parameter #%d, it has %d parameters",
			p.Name, paramIdx, len(p.ParameterShapes))
	}
	return p.ParameterShapes[paramIdx], nil
}

// Validate checks the consistency of the program description.
func (p *Program) Validate() error {
	if !p.ResultShape.Ok() {
		return errors.Errorf("program %q: invalid result shape", p.Name)
	}
	for ii, shape := range p.ParameterShapes {
		if !shape.Ok() {
			return errors.Errorf("program %q: parameter #%d has an invalid shape", p.Name, ii)
		}
	}
	if p.NumReplicas < 1 || p.NumPartitions < 1 {
		return errors.Errorf("program %q: invalid number of replicas (%d) or partitions (%d)",
			p.Name, p.NumReplicas, p.NumPartitions)
	}
	for ii, id := range p.DeviceAssignment {
		if id.Replica < 0 || id.Replica >= p.NumReplicas || id.Partition < 0 || id.Partition >= p.NumPartitions {
			return errors.Errorf("program %q: device #%d assigned to %s, out of range for %d replicas and %d partitions",
				p.Name, ii, id, p.NumReplicas, p.NumPartitions)
		}
	}
	for alias := range p.Aliases.All() {
		paramShape, err := p.ParameterShape(alias.ParameterNumber)
		if err != nil {
			return errors.WithMessage(err, "invalid alias")
		}
		if _, err = paramShape.SubShape(alias.ParameterIndex); err != nil {
			return errors.WithMessagef(err, "program %q: invalid alias %s", p.Name, alias)
		}
		if _, err = p.ResultShape.SubShape(alias.OutputIndex); err != nil {
			return errors.WithMessagef(err, "program %q: invalid alias %s", p.Name, alias)
		}
	}
	return nil
}

// ReplicasAndPartitions of a run.
type ReplicasAndPartitions struct {
	Replicas, Partitions int
}

// ComputeReplicasAndPartitions calculates the number of replicas and partitions for a run on deviceCount devices.
//
// Explicit values (> 0) of numReplicas and numPartitions take precedence. If only one of them is given, the other is
// derived from the total number of devices (deviceCount * numSlices). If none is given, every device is a replica.
// numSlices is the number of slices in a multi-slice configuration, 1 otherwise.
func ComputeReplicasAndPartitions(deviceCount, numReplicas, numPartitions, numSlices int) (ReplicasAndPartitions, error) {
	if numSlices < 1 {
		return ReplicasAndPartitions{}, errors.Errorf("numSlices must be >= 1, got %d", numSlices)
	}
	total := deviceCount * numSlices
	var result ReplicasAndPartitions
	switch {
	case numReplicas > 0 && numPartitions > 0:
		result = ReplicasAndPartitions{numReplicas, numPartitions}
	case numReplicas > 0:
		result = ReplicasAndPartitions{numReplicas, total / numReplicas}
	case numPartitions > 0:
		result = ReplicasAndPartitions{total / numPartitions, numPartitions}
	default:
		result = ReplicasAndPartitions{total, 1}
	}
	klog.V(1).Infof("Calculated replicas: %d, partitions: %d", result.Replicas, result.Partitions)
	if result.Replicas < 1 || result.Partitions < 1 {
		return result, errors.Errorf("invalid number of replicas (%d) and partitions (%d) for %d devices and %d slices",
			result.Replicas, result.Partitions, deviceCount, numSlices)
	}
	return result, nil
}

// DefaultDeviceAssignment assigns numDevices devices to the replica/partition grid, partitions varying fastest:
// device d is assigned to replica d/numPartitions and partition d%numPartitions.
func DefaultDeviceAssignment(numDevices int, rp ReplicasAndPartitions) ([]LogicalDeviceID, error) {
	if numDevices > rp.Replicas*rp.Partitions {
		return nil, errors.Errorf("%d devices can't be assigned to %d replicas x %d partitions",
			numDevices, rp.Replicas, rp.Partitions)
	}
	assignment := make([]LogicalDeviceID, numDevices)
	for d := range assignment {
		assignment[d] = LogicalDeviceID{Replica: d / rp.Partitions, Partition: d % rp.Partitions}
	}
	return assignment, nil
}
