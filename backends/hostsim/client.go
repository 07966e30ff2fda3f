// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hostsim implements a simulated device client in pure Go: devices are host memory, transfers are copies
// and "programs" are Go functions over literals.
//
// Transfers and executions are asynchronous, run on a workers pool, so the completion signals behave like
// the ones of an accelerator runtime. Options allow simulating clients without custom layouts or pinned host
// memory, devices not addressable by the process, latencies and failures.
package hostsim

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/gomlx/hlorunner/internal/workerspool"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Compile-time check:
var _ device.Client = (*Client)(nil)

// Device is a simulated device.
type Device struct {
	id         int
	pinnedHost bool
}

// Compile-time check:
var _ device.Device = (*Device)(nil)

// ID implements device.Device.
func (d *Device) ID() int { return d.id }

// DefaultMemorySpace implements device.Device.
func (d *Device) DefaultMemorySpace() device.MemorySpace {
	return device.MemorySpace{Kind: device.DeviceMemory, DeviceID: d.id}
}

// MemorySpaceByKind implements device.Device.
func (d *Device) MemorySpaceByKind(kind device.MemoryKind) (device.MemorySpace, error) {
	switch {
	case kind == device.DeviceMemory:
		return d.DefaultMemorySpace(), nil
	case kind == device.PinnedHostMemory && d.pinnedHost:
		return device.MemorySpace{Kind: device.PinnedHostMemory, DeviceID: d.id}, nil
	}
	return device.MemorySpace{}, errors.Errorf("device #%d has no memory space of kind %s", d.id, kind)
}

// Stats are counters of the operations of a Client.
type Stats struct {
	// HostToDevice transfers started.
	HostToDevice int64

	// Uninitialized buffers allocated.
	Uninitialized int64

	// DeviceToHost transfers started.
	DeviceToHost int64

	// Executions is the number of program executions, counted per device.
	Executions int64

	// Donations is the number of argument buffers whose storage was moved to an output.
	Donations int64

	// LiveBuffers holding storage: created and neither destroyed nor donated.
	LiveBuffers int64
}

// Option configures a Client.
type Option func(c *Client)

// WithNumDevices sets the number of devices, with ids 0 to n-1. The default is 1.
func WithNumDevices(n int) Option {
	return func(c *Client) { c.numDevices = n }
}

// WithAddressableDevices restricts the devices addressable by this process to the given ids.
// By default every device is addressable.
func WithAddressableDevices(ids ...int) Option {
	return func(c *Client) { c.addressableIDs = slices.Clone(ids) }
}

// WithoutCustomLayouts makes BufferFromHostLiteral fail with device.ErrUnimplemented if a layout is given.
func WithoutCustomLayouts() Option {
	return func(c *Client) { c.noCustomLayouts = true }
}

// WithoutPinnedHostMemory removes the pinned host memory space from the devices.
func WithoutPinnedHostMemory() Option {
	return func(c *Client) { c.noPinnedHost = true }
}

// WithMaxParallelism sets the number of asynchronous operations running in parallel.
// 0 makes every operation synchronous. The default is runtime.NumCPU().
func WithMaxParallelism(n int) Option {
	return func(c *Client) { c.pool = workerspool.New(n) }
}

// WithTransferLatency adds a delay to every host-to-device transfer.
func WithTransferLatency(latency time.Duration) Option {
	return func(c *Client) { c.transferLatency = latency }
}

// WithExecuteFailure makes executions fail when fn returns an error for the device id and launch id.
func WithExecuteFailure(fn func(deviceID, launchID int) error) Option {
	return func(c *Client) { c.executeFailure = fn }
}

// WithToHostFailure makes device-to-host transfers of a device fail when fn returns an error.
func WithToHostFailure(fn func(deviceID int) error) Option {
	return func(c *Client) { c.toHostFailure = fn }
}

// Client of the simulated devices.
type Client struct {
	numDevices     int
	addressableIDs []int
	devices        []*Device
	addressable    []device.Device

	noCustomLayouts, noPinnedHost bool
	transferLatency               time.Duration
	executeFailure                func(deviceID, launchID int) error
	toHostFailure                 func(deviceID int) error

	pool *workerspool.Pool

	numHostToDevice, numUninitialized, numDeviceToHost atomic.Int64
	numExecutions, numDonations, numLive               atomic.Int64
}

// New creates a Client with the given options.
func New(options ...Option) (*Client, error) {
	c := &Client{numDevices: 1}
	for _, option := range options {
		option(c)
	}
	if c.numDevices < 1 {
		return nil, errors.Errorf("hostsim: number of devices must be >= 1, got %d", c.numDevices)
	}
	if c.pool == nil {
		c.pool = workerspool.NewDefault()
	}
	for id := range c.numDevices {
		c.devices = append(c.devices, &Device{id: id, pinnedHost: !c.noPinnedHost})
	}
	if c.addressableIDs == nil {
		for _, d := range c.devices {
			c.addressable = append(c.addressable, d)
		}
	} else {
		for _, id := range c.addressableIDs {
			if id < 0 || id >= c.numDevices {
				return nil, errors.Errorf("hostsim: addressable device #%d doesn't exist, there are %d devices", id, c.numDevices)
			}
			c.addressable = append(c.addressable, c.devices[id])
		}
	}
	klog.V(1).Infof("hostsim: created client with %d devices (%d addressable)", c.numDevices, len(c.addressable))
	return c, nil
}

// AddressableDevices implements device.Client.
func (c *Client) AddressableDevices() []device.Device {
	return slices.Clone(c.addressable)
}

// NumDevices returns the total number of devices, addressable or not.
func (c *Client) NumDevices() int { return c.numDevices }

// Stats returns the counters of operations so far.
func (c *Client) Stats() Stats {
	return Stats{
		HostToDevice:  c.numHostToDevice.Load(),
		Uninitialized: c.numUninitialized.Load(),
		DeviceToHost:  c.numDeviceToHost.Load(),
		Executions:    c.numExecutions.Load(),
		Donations:     c.numDonations.Load(),
		LiveBuffers:   c.numLive.Load(),
	}
}

// Wait blocks until every asynchronous operation started so far is finished.
func (c *Client) Wait() {
	c.pool.Wait()
}

// addressableDevice returns the device of the memory space, if it is addressable and the memory kind exists.
func (c *Client) addressableDevice(space device.MemorySpace) (*Device, error) {
	for _, d := range c.addressable {
		if d.ID() == space.DeviceID {
			dev := d.(*Device)
			if _, err := dev.MemorySpaceByKind(space.Kind); err != nil {
				return nil, err
			}
			return dev, nil
		}
	}
	return nil, errors.Errorf("hostsim: device #%d is not addressable", space.DeviceID)
}

// BufferFromHostLiteral implements device.Client.
// The literal is copied asynchronously: the caller can't modify it until the buffer is ready.
func (c *Client) BufferFromHostLiteral(lit *literal.Literal, space device.MemorySpace, layout *shapes.Layout) (device.Buffer, error) {
	dev, err := c.addressableDevice(space)
	if err != nil {
		return nil, err
	}
	if layout != nil && c.noCustomLayouts {
		return nil, errors.Wrapf(device.ErrUnimplemented, "hostsim: custom layout %s for device #%d", layout, dev.id)
	}
	if layout != nil && len(layout.MinorToMajor) != 0 && len(layout.MinorToMajor) != lit.Shape().Rank() {
		return nil, errors.Errorf("hostsim: layout %s invalid for shape %s", layout, lit.Shape())
	}
	c.numHostToDevice.Add(1)
	buf := c.newBuffer(dev, space, lit.Shape().WithLayout(layout))
	c.pool.Run(func() {
		if c.transferLatency > 0 {
			time.Sleep(c.transferLatency)
		}
		buf.setData(lit.Clone())
		buf.ready.Set(nil)
	})
	return buf, nil
}

// CreateUninitializedBuffer implements device.Client.
func (c *Client) CreateUninitializedBuffer(shape shapes.Shape, space device.MemorySpace) (device.Buffer, error) {
	dev, err := c.addressableDevice(space)
	if err != nil {
		return nil, err
	}
	data, err := literal.New(shape)
	if err != nil {
		return nil, errors.WithMessage(err, "hostsim: CreateUninitializedBuffer")
	}
	c.numUninitialized.Add(1)
	buf := c.newBuffer(dev, space, shape)
	buf.setData(data)
	buf.ready.Set(nil)
	return buf, nil
}

// BufferFromLiteral is a synchronous version of BufferFromHostLiteral on the default memory of the device,
// mostly for tests.
func (c *Client) BufferFromLiteral(lit *literal.Literal, deviceID int) (device.Buffer, error) {
	buf, err := c.BufferFromHostLiteral(lit, device.MemorySpace{Kind: device.DeviceMemory, DeviceID: deviceID}, nil)
	if err != nil {
		return nil, err
	}
	if err = buf.Ready().Await(); err != nil {
		return nil, err
	}
	return buf, nil
}

// ToLiteral is a synchronous transfer of a buffer to a new literal, mostly for tests.
func ToLiteral(buf device.Buffer) (*literal.Literal, error) {
	lit, err := literal.New(buf.Shape())
	if err != nil {
		return nil, err
	}
	if err = xsync.AwaitAll(buf.ToLiteral(lit)); err != nil {
		return nil, err
	}
	return lit, nil
}
