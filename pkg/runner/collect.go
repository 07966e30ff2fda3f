package runner

import (
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// collectOutputs transfers the selected outputs to the host, according to mode.
//
// Every output buffer is awaited, whatever the mode. Transfers are joined with first-error-wins, and all of
// them are completed before returning, even on failure. The returned map is empty (not nil) if nothing is
// returned.
func collectOutputs(client device.Client, outputs BufferSet, mode OutputMode, logOutputs bool) (PerDeviceLiterals, error) {
	if err := xsync.AwaitAll(outputs.readyFutures()...); err != nil {
		return nil, errors.WithMessage(err, "while waiting for outputs")
	}
	results := make(PerDeviceLiterals)
	if mode == NotReturnOutputs {
		return results, nil
	}
	if mode == ReturnDevice0Outputs && !isDevice0Addressable(client) {
		klog.V(1).Infof("Device 0 is not addressable by this process, no outputs returned")
		return results, nil
	}

	join := xsync.NewStatusJoin()
	for _, buffers := range outputs {
		if len(buffers) == 0 {
			continue
		}
		deviceID := buffers[0].Device().ID()
		if mode == ReturnDevice0Outputs && deviceID != 0 {
			continue
		}
		literals := make([]*literal.Literal, len(buffers))
		for ii, buffer := range buffers {
			lit, err := literal.New(buffer.Shape().WithoutLayout())
			if err != nil {
				join.Add(1)
				join.Done(&TransferError{DeviceID: deviceID, Err: err})
				continue
			}
			literals[ii] = lit
			join.Add(1)
			buffer.ToLiteral(lit).OnReady(func(err error) {
				if err != nil {
					err = &TransferError{DeviceID: deviceID, Err: err}
				}
				join.Done(err)
			})
		}
		results[deviceID] = literals
	}
	if err := join.Wait(); err != nil {
		return nil, err
	}
	if logOutputs {
		for deviceID, literals := range results {
			for ii, lit := range literals {
				klog.Infof("Output #%d of device #%d: %s", ii, deviceID, lit)
			}
		}
	}
	return results, nil
}

// isDevice0Addressable returns whether the device with id 0 is addressable by this process.
func isDevice0Addressable(client device.Client) bool {
	for _, dev := range client.AddressableDevices() {
		if dev.ID() == 0 {
			return true
		}
	}
	return false
}
