package hostsim

import (
	"sync"

	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
)

type bufferState int

const (
	bufferLive bufferState = iota
	bufferDonated
	bufferDestroyed
)

// Buffer is a simulated device buffer: its storage is a host literal.
type Buffer struct {
	client *Client
	dev    *Device
	space  device.MemorySpace
	shape  shapes.Shape
	ready  *xsync.Future

	mu    sync.Mutex
	state bufferState
	data  *literal.Literal
}

// Compile-time check:
var _ device.Buffer = (*Buffer)(nil)

func (c *Client) newBuffer(dev *Device, space device.MemorySpace, shape shapes.Shape) *Buffer {
	c.numLive.Add(1)
	return &Buffer{
		client: c,
		dev:    dev,
		space:  space,
		shape:  shape,
		ready:  xsync.NewFuture(),
	}
}

// Device implements device.Buffer.
func (b *Buffer) Device() device.Device { return b.dev }

// MemorySpace implements device.Buffer.
func (b *Buffer) MemorySpace() device.MemorySpace { return b.space }

// Shape implements device.Buffer.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// Ready implements device.Buffer.
func (b *Buffer) Ready() *xsync.Future { return b.ready }

// IsDonated returns whether the buffer storage was donated to the output of an execution.
func (b *Buffer) IsDonated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == bufferDonated
}

// setData sets the buffer storage, once produced.
func (b *Buffer) setData(data *literal.Literal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
}

// read returns the storage of a live buffer.
func (b *Buffer) read() (*literal.Literal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case bufferDonated:
		return nil, errors.Errorf("hostsim: buffer %s on device #%d was donated", b.shape, b.dev.id)
	case bufferDestroyed:
		return nil, errors.Errorf("hostsim: buffer %s on device #%d was destroyed", b.shape, b.dev.id)
	}
	if b.data == nil {
		return nil, errors.Errorf("hostsim: buffer %s on device #%d has no data", b.shape, b.dev.id)
	}
	return b.data, nil
}

// donate moves the storage out of the buffer, which can only be destroyed afterward.
func (b *Buffer) donate() (*literal.Literal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != bufferLive {
		return nil, errors.Errorf("hostsim: can't donate buffer %s on device #%d, it is no longer live", b.shape, b.dev.id)
	}
	data := b.data
	b.data = nil
	b.state = bufferDonated
	b.client.numDonations.Add(1)
	b.client.numLive.Add(-1)
	return data, nil
}

// ToLiteral implements device.Buffer.
func (b *Buffer) ToLiteral(dst *literal.Literal) *xsync.Future {
	done := xsync.NewFuture()
	b.client.numDeviceToHost.Add(1)
	b.client.pool.Run(func() {
		if err := b.ready.Await(); err != nil {
			done.Set(errors.WithMessage(err, "hostsim: buffer failed to be created"))
			return
		}
		if b.client.toHostFailure != nil {
			if err := b.client.toHostFailure(b.dev.id); err != nil {
				done.Set(err)
				return
			}
		}
		data, err := b.read()
		if err == nil {
			err = dst.CopyFrom(data)
		}
		done.Set(err)
	})
	return done
}

// Destroy implements device.Buffer.
func (b *Buffer) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case bufferDestroyed:
		return errors.Errorf("hostsim: buffer %s on device #%d destroyed twice", b.shape, b.dev.id)
	case bufferLive:
		b.client.numLive.Add(-1)
	}
	b.state = bufferDestroyed
	b.data = nil
	return nil
}
