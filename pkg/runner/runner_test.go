package runner

import (
	"fmt"
	"testing"
	"time"

	"github.com/gomlx/hlorunner/backends/hostsim"
	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addProgram takes two arrays and returns their sum.
func addProgram(shape shapes.Shape) (*program.Program, hostsim.ProgramFn) {
	prog := &program.Program{
		Name:            "add",
		ParameterShapes: []shapes.Shape{shape, shape},
		ResultShape:     shape.WithoutLayout(),
	}
	fn := func(call *hostsim.Call) (*literal.Literal, error) {
		sum := call.Params[0].Clone()
		a, b := sum.Flat().([]float32), call.Params[1].Flat().([]float32)
		for ii := range a {
			a[ii] += b[ii]
		}
		return sum, nil
	}
	return prog, fn
}

// accumulateProgram takes (x, acc) and returns (x, acc+x), with acc aliased to the second output.
func accumulateProgram(t *testing.T) (*program.Program, hostsim.ProgramFn) {
	f32 := shapes.Make(dtypes.Float32, 2)
	prog := &program.Program{
		Name:            "accumulate",
		ParameterShapes: []shapes.Shape{f32, f32},
		ResultShape:     shapes.MakeTuple(f32, f32),
	}
	require.NoError(t, prog.Aliases.SetUpAlias(shapes.ShapeIndex{1}, 1, nil, program.MayAlias))
	fn := func(call *hostsim.Call) (*literal.Literal, error) {
		x := call.Params[0]
		acc := call.Params[1]
		accFlat, xFlat := acc.Flat().([]float32), x.Flat().([]float32)
		for ii := range accFlat {
			accFlat[ii] += xFlat[ii]
		}
		return literal.MakeTuple(x, acc), nil
	}
	return prog, fn
}

// stepProgram takes one tuple of (f32[2], i32[3], f64) and returns the tuple with every value incremented,
// fully aliased.
func stepProgram(t *testing.T) (*program.Program, hostsim.ProgramFn) {
	elements := []shapes.Shape{shapes.Make(dtypes.Float32, 2), shapes.Make(dtypes.Int32, 3), shapes.Make(dtypes.Float64)}
	prog := &program.Program{
		Name:            "step",
		ParameterShapes: []shapes.Shape{shapes.MakeTuple(elements...)},
		ResultShape:     shapes.MakeTuple(elements...),
	}
	for ii := range elements {
		require.NoError(t, prog.Aliases.SetUpAlias(shapes.ShapeIndex{ii}, 0, shapes.ShapeIndex{ii}, program.MustAlias))
	}
	fn := func(call *hostsim.Call) (*literal.Literal, error) {
		state := call.Params[0].Elements()
		for ii := range state[0].Flat().([]float32) {
			state[0].Flat().([]float32)[ii]++
		}
		for ii := range state[1].Flat().([]int32) {
			state[1].Flat().([]int32)[ii]++
		}
		state[2].Flat().([]float64)[0]++
		return literal.MakeTuple(state...), nil
	}
	return prog, fn
}

func compile(t *testing.T, client *hostsim.Client, prog *program.Program, fn hostsim.ProgramFn) *hostsim.Executable {
	exec, err := client.Compile(prog, fn)
	require.NoError(t, err)
	return exec
}

// recorder keeps the buffers seen by the iteration hooks.
type recorder struct {
	arguments, outputs []BufferSet
	events             []string
}

func (r *recorder) attach(runner *Runner) *Runner {
	return runner.
		OnIterationStart("record", 0, func(info *IterationInfo) error {
			r.arguments = append(r.arguments, cloneSet(info.Arguments))
			r.events = append(r.events, fmt.Sprintf("start:%d", info.Repeat))
			return nil
		}).
		OnIterationEnd("record", 0, func(info *IterationInfo) error {
			r.outputs = append(r.outputs, cloneSet(info.Outputs))
			r.events = append(r.events, fmt.Sprintf("end:%d", info.Repeat))
			return nil
		})
}

func cloneSet(bs BufferSet) BufferSet {
	clone := make(BufferSet, len(bs))
	for ii, buffers := range bs {
		clone[ii] = append([]device.Buffer(nil), buffers...)
	}
	return clone
}

func TestZerosOnThreeDevices(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(3)))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 4))
	exec := compile(t, client, prog, fn)
	require.Equal(t, program.ParameterOneListOfArrays, program.Classify(exec.Program()))

	var argLiterals [][]*literal.Literal
	r := New(client).OnIterationStart("capture", 0, func(info *IterationInfo) error {
		for _, buffers := range info.Arguments {
			var literals []*literal.Literal
			for _, buf := range buffers {
				literals = append(literals, must.M1(hostsim.ToLiteral(buf)))
			}
			argLiterals = append(argLiterals, literals)
		}
		return nil
	})
	cfg := DefaultRunConfig()
	cfg.ArgumentMode = UseZerosAsInput
	results, err := r.Run(exec, nil, cfg)
	require.NoError(t, err)

	require.Len(t, argLiterals, 3)
	for _, literals := range argLiterals {
		require.Len(t, literals, 2)
		for ii, lit := range literals {
			assert.Equal(t, []float32{0, 0, 0, 0}, lit.Flat())
			assert.Equal(t, argLiterals[0][ii].Bytes(), lit.Bytes(), "arguments must be byte-identical across devices")
		}
	}
	require.Len(t, results, 3)
	for deviceID := range 3 {
		require.Len(t, results[deviceID], 1)
		assert.Equal(t, []float32{0, 0, 0, 0}, results[deviceID][0].Flat())
	}
	assert.Equal(t, int64(1), r.Stats().ArgumentCreations)
	assert.Equal(t, int64(6), client.Stats().HostToDevice, "3 devices x 2 arguments")
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestAliasedTupleReuse(t *testing.T) {
	const numDevices, numRepeats = 2, 4
	client := must.M1(hostsim.New(hostsim.WithNumDevices(numDevices)))
	prog, fn := stepProgram(t)
	exec := compile(t, client, prog, fn)
	require.Equal(t, program.ParameterOneTupleOfArrays, program.Classify(exec.Program()))

	rec := &recorder{}
	r := rec.attach(New(client))
	cfg := DefaultRunConfig()
	cfg.NumRepeats = numRepeats
	results, err := r.Run(exec, nil, cfg)
	require.NoError(t, err)

	// Only the first repeat creates arguments.
	assert.Equal(t, int64(1), r.Stats().ArgumentCreations)
	assert.Equal(t, int64(3*numDevices), client.Stats().HostToDevice)
	assert.Equal(t, int64(numRepeats*numDevices), client.Stats().Executions)

	// Arguments of repeat k+1 are the outputs of repeat k.
	require.Len(t, rec.arguments, numRepeats)
	for k := range numRepeats - 1 {
		for d := range numDevices {
			require.Len(t, rec.outputs[k][d], 3, "intermediate results are untupled")
			for slot := range 3 {
				assert.True(t, rec.arguments[k+1][d][slot] == rec.outputs[k][d][slot],
					"repeat %d, device %d, slot %d: argument is not the previous output", k+1, d, slot)
			}
		}
	}

	// Tuple results are untupled on the last repeat too, even with the default configuration.
	require.Nil(t, cfg.UntupleResult)
	require.Len(t, results, numDevices)
	for d := range numDevices {
		require.Len(t, results[d], 3)
		state := results[d]
		want := float32(d + numRepeats)
		assert.Equal(t, []float32{want, want}, state[0].Flat())
		assert.Equal(t, []int32{int32(want), int32(want), int32(want)}, state[1].Flat())
		assert.Equal(t, []float64{float64(want)}, state[2].Flat())
	}
	assert.Equal(t, int64(0), client.Stats().LiveBuffers, "every buffer must be released")
}

func TestUnaliasedSlotReusesOriginal(t *testing.T) {
	const numRepeats = 5
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	prog, fn := accumulateProgram(t)
	exec := compile(t, client, prog, fn)

	rec := &recorder{}
	r := rec.attach(New(client))
	cfg := DefaultRunConfig()
	cfg.NumRepeats = numRepeats
	untuple := true
	cfg.UntupleResult = &untuple
	results, err := r.Run(exec, nil, cfg)
	require.NoError(t, err)

	for k := range numRepeats {
		for d := range 2 {
			assert.True(t, rec.arguments[k][d][0] == rec.arguments[0][d][0],
				"unaliased slot 0 must reuse the buffer of the first repeat (repeat %d)", k)
			if k > 0 {
				assert.True(t, rec.arguments[k][d][1] == rec.outputs[k-1][d][1])
				assert.False(t, rec.arguments[k][d][1] == rec.arguments[k-1][d][1])
			}
		}
	}

	// Device d starts with x=acc=d, so acc = d*(numRepeats+1). Final result untupled as requested.
	for d := range 2 {
		require.Len(t, results[d], 2)
		assert.Equal(t, []float32{float32(d), float32(d)}, results[d][0].Flat())
		want := float32(d * (numRepeats + 1))
		assert.Equal(t, []float32{want, want}, results[d][1].Flat())
	}
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestRecreateBuffersBetweenRepeats(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	prog, fn := accumulateProgram(t)
	exec := compile(t, client, prog, fn)
	rec := &recorder{}
	r := rec.attach(New(client))
	cfg := DefaultRunConfig()
	cfg.NumRepeats = 3
	cfg.RecreateBuffersBetweenRepeats = true
	results, err := r.Run(exec, nil, cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(3), r.Stats().ArgumentCreations)
	assert.False(t, rec.arguments[1][0][0] == rec.arguments[0][0][0])
	assert.False(t, rec.arguments[2][0][1] == rec.outputs[1][0][1])

	// Fresh arguments every time: acc = x + x = 2*d.
	require.Len(t, results[1], 2)
	assert.Equal(t, []float32{2, 2}, results[1][1].Flat())
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestOutputModes(t *testing.T) {
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))

	t.Run("device 0 not addressable", func(t *testing.T) {
		client := must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithAddressableDevices(1)))
		exec := compile(t, client, prog, fn)
		cfg := DefaultRunConfig()
		cfg.OutputMode = ReturnDevice0Outputs
		results, err := Run(client, exec, nil, cfg)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
		assert.Equal(t, int64(0), client.Stats().DeviceToHost)
	})

	t.Run("device 0 addressable", func(t *testing.T) {
		client := must.M1(hostsim.New(hostsim.WithNumDevices(3)))
		exec := compile(t, client, prog, fn)
		cfg := DefaultRunConfig()
		cfg.OutputMode = ReturnDevice0Outputs
		results, err := Run(client, exec, nil, cfg)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Contains(t, results, 0)
		assert.Equal(t, int64(1), client.Stats().DeviceToHost)
	})

	t.Run("not returned", func(t *testing.T) {
		client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
		exec := compile(t, client, prog, fn)
		cfg := DefaultRunConfig()
		cfg.OutputMode = NotReturnOutputs
		results, err := Run(client, exec, nil, cfg)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, int64(0), client.Stats().DeviceToHost)
		assert.Equal(t, int64(0), client.Stats().LiveBuffers)
	})

	t.Run("not returned still reports errors", func(t *testing.T) {
		failure := errors.New("execution failed on device")
		client := must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithExecuteFailure(func(deviceID, launchID int) error {
			if deviceID == 1 {
				return failure
			}
			return nil
		})))
		exec := compile(t, client, prog, fn)
		cfg := DefaultRunConfig()
		cfg.OutputMode = NotReturnOutputs
		_, err := Run(client, exec, nil, cfg)
		require.ErrorIs(t, err, failure)
	})
}

func TestDeviceIDAsInput(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	params := []shapes.Shape{shapes.Make(dtypes.Bool, 2), shapes.Make(dtypes.Int64, 3), shapes.Make(dtypes.Float16)}
	prog := &program.Program{
		Name:            "identity",
		ParameterShapes: params,
		ResultShape:     shapes.MakeTuple(params...),
	}
	exec := compile(t, client, prog, func(call *hostsim.Call) (*literal.Literal, error) {
		return literal.MakeTuple(call.Params...), nil
	})
	results, err := Run(client, exec, nil, DefaultRunConfig())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for d := range 2 {
		elements := results[d]
		require.Len(t, elements, 3)
		assert.Equal(t, []bool{d%2 == 0, d%2 == 0}, elements[0].Flat())
		assert.Equal(t, []int64{int64(d), int64(d), int64(d)}, elements[1].Flat())
	}
}

func TestRandomInputs(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 16))
	exec := compile(t, client, prog, fn)

	for _, mode := range []ArgumentMode{UseRandomInputs, UseSharedRandomInputs} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := DefaultRunConfig()
			cfg.ArgumentMode = mode
			cfg.RandomSeed = 17
			results, err := Run(client, exec, nil, cfg)
			require.NoError(t, err)
			sameAcrossDevices := results[0][0].Equal(results[1][0])
			if mode == UseSharedRandomInputs {
				assert.True(t, sameAcrossDevices)
			} else {
				assert.False(t, sameAcrossDevices)
			}

			// Same seed, same results.
			again, err := Run(client, exec, nil, cfg)
			require.NoError(t, err)
			assert.True(t, results[0][0].Equal(again[0][0]))
		})
	}
}

func TestReplayArguments(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)

	arguments := PerDeviceLiterals{
		0: {must.M1(literal.FromFlat([]float32{1, 2}, 2)), must.M1(literal.FromFlat([]float32{10, 20}, 2))},
		1: {must.M1(literal.FromFlat([]float32{3, 4}, 2)), must.M1(literal.FromFlat([]float32{30, 40}, 2))},
	}
	results, err := Run(client, exec, arguments, DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22}, results[0][0].Flat())
	assert.Equal(t, []float32{33, 44}, results[1][0].Flat())

	_, err = Run(client, exec, PerDeviceLiterals{0: arguments[0]}, DefaultRunConfig())
	require.ErrorIs(t, err, ErrArgumentCountMismatch)

	_, err = Run(client, exec, PerDeviceLiterals{0: arguments[0], 2: arguments[1]}, DefaultRunConfig())
	require.ErrorIs(t, err, ErrArgumentCountMismatch, "device 1 missing")

	_, err = Run(client, exec, PerDeviceLiterals{0: arguments[0], 1: arguments[1][:1]}, DefaultRunConfig())
	require.ErrorIs(t, err, ErrArgumentCountMismatch)

	wrongShape := PerDeviceLiterals{0: arguments[0], 1: {arguments[1][0], literal.FromScalar(float32(1))}}
	_, err = Run(client, exec, wrongShape, DefaultRunConfig())
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestReplayTupleArgument(t *testing.T) {
	client := must.M1(hostsim.New())
	prog, fn := stepProgram(t)
	exec := compile(t, client, prog, fn)
	state := literal.MakeTuple(
		must.M1(literal.FromFlat([]float32{1, 2}, 2)),
		must.M1(literal.FromFlat([]int32{1, 2, 3}, 3)),
		literal.FromScalar(float64(5)),
	)
	cfg := DefaultRunConfig()
	cfg.NumRepeats = 2
	results, err := Run(client, exec, PerDeviceLiterals{0: {state}}, cfg)
	require.NoError(t, err)
	got := results[0]
	require.Len(t, got, 3)
	assert.Equal(t, []float32{3, 4}, got[0].Flat())
	assert.Equal(t, []int32{3, 4, 5}, got[1].Flat())
	assert.Equal(t, []float64{7}, got[2].Flat())
	assert.Equal(t, []float32{1, 2}, state.Elements()[0].Flat(), "given arguments must not be modified")
}

func TestLayoutFallback(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithoutCustomLayouts()))
	shape := shapes.Make(dtypes.Float32, 2).WithLayout(&shapes.Layout{MinorToMajor: []int{0}})
	prog, fn := addProgram(shape)
	exec := compile(t, client, prog, fn)
	r := New(client)
	results, err := r.Run(exec, nil, DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2}, results[1][0].Flat())
	assert.Equal(t, int64(4), r.Stats().LayoutFallbacks, "one fallback per argument")
	assert.Equal(t, int64(4), client.Stats().HostToDevice)
}

func TestPinnedHostArguments(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 2).WithLayout(&shapes.Layout{MemorySpace: shapes.HostMemorySpace})
	prog, fn := addProgram(shape)

	client := must.M1(hostsim.New())
	exec := compile(t, client, prog, fn)
	var kinds []device.MemoryKind
	r := New(client).OnIterationStart("kinds", 0, func(info *IterationInfo) error {
		for _, buf := range info.Arguments[0] {
			kinds = append(kinds, buf.MemorySpace().Kind)
		}
		return nil
	})
	_, err := r.Run(exec, nil, DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []device.MemoryKind{device.PinnedHostMemory, device.PinnedHostMemory}, kinds)

	noPinned := must.M1(hostsim.New(hostsim.WithoutPinnedHostMemory()))
	_, err = Run(noPinned, compile(t, noPinned, prog, fn), nil, DefaultRunConfig())
	require.Error(t, err)
}

func TestSlowProvisioningAlarm(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithTransferLatency(100 * time.Millisecond)))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)
	r := New(client)
	cfg := DefaultRunConfig()
	cfg.SlowProvisioningThreshold = 10 * time.Millisecond
	_, err := r.Run(exec, nil, cfg)
	require.NoError(t, err, "the alarm only logs")
	require.Eventually(t, func() bool { return r.Stats().SlowProvisioningAlarms == 1 }, time.Second, time.Millisecond)
}

func TestExecutionError(t *testing.T) {
	failure := errors.New("out of memory")
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithExecuteFailure(func(deviceID, launchID int) error {
		if deviceID == 0 && launchID == 3 {
			return failure
		}
		return nil
	})))
	prog, fn := stepProgram(t)
	exec := compile(t, client, prog, fn)
	rec := &recorder{}
	r := rec.attach(New(client))
	cfg := DefaultRunConfig()
	cfg.NumRepeats = 5
	_, err := r.Run(exec, nil, cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExecution)
	require.ErrorIs(t, err, failure)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 2, execErr.Repeat)
	assert.Equal(t, []string{"start:0", "end:0", "start:1", "end:1", "start:2"}, rec.events)
	assert.Equal(t, int64(0), client.Stats().LiveBuffers, "buffers of a failed run are released")
}

func TestTransferError(t *testing.T) {
	failure := errors.New("link down")
	client := must.M1(hostsim.New(hostsim.WithNumDevices(3), hostsim.WithToHostFailure(func(deviceID int) error {
		if deviceID == 1 {
			return failure
		}
		return nil
	})))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)
	_, err := Run(client, exec, nil, DefaultRunConfig())
	require.ErrorIs(t, err, ErrTransfer)
	require.ErrorIs(t, err, failure)
	var transferErr *TransferError
	require.True(t, errors.As(err, &transferErr))
	assert.Equal(t, 1, transferErr.DeviceID)
	assert.Equal(t, int64(3), client.Stats().DeviceToHost, "every transfer was issued and drained")
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

type fakeProfiler struct {
	events *[]string
}

func (p fakeProfiler) StartSession() error {
	*p.events = append(*p.events, "profile:start")
	return nil
}

func (p fakeProfiler) StopSession() error {
	*p.events = append(*p.events, "profile:stop")
	return nil
}

func TestProfilerAndHooks(t *testing.T) {
	client := must.M1(hostsim.New())
	prog, fn := accumulateProgram(t)
	exec := compile(t, client, prog, fn)
	rec := &recorder{}
	r := New(client).WithProfiler(fakeProfiler{events: &rec.events})
	r.OnIterationStart("first", -1, func(info *IterationInfo) error {
		rec.events = append(rec.events, fmt.Sprintf("first:%d", info.Repeat))
		return nil
	})
	rec.attach(r)
	cfg := DefaultRunConfig()
	cfg.NumRepeats = 2
	_, err := r.Run(exec, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"first:0", "start:0", "end:0",
		"first:1", "start:1", "profile:start", "profile:stop", "end:1",
	}, rec.events)

	// Hook errors abort the run.
	hookErr := errors.New("stop here")
	r.OnIterationEnd("failing", 10, func(info *IterationInfo) error { return hookErr })
	_, err = r.Run(exec, nil, cfg)
	require.ErrorIs(t, err, hookErr)
	require.Contains(t, err.Error(), `OnIterationEnd(hook "failing")`)
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestRunEndHooks(t *testing.T) {
	failure := errors.New("out of memory")
	client := must.M1(hostsim.New(hostsim.WithExecuteFailure(func(deviceID, launchID int) error {
		if launchID == 2 {
			return failure
		}
		return nil
	})))
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)
	var ended []error
	r := New(client).OnRunEnd("record", 0, func(executable string, runErr error) error {
		assert.Equal(t, "add", executable)
		assert.Equal(t, int64(0), client.Stats().LiveBuffers, "buffers are released before the run ends")
		ended = append(ended, runErr)
		return nil
	})

	_, err := r.Run(exec, nil, DefaultRunConfig())
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.NoError(t, ended[0])

	cfg := DefaultRunConfig()
	cfg.NumRepeats = 3
	_, err = r.Run(exec, nil, cfg)
	require.ErrorIs(t, err, failure)
	require.Len(t, ended, 2)
	assert.ErrorIs(t, ended[1], failure)

	// Errors of the hooks are returned for runs that succeeded, and don't mask the failure of those that didn't.
	hookErr := errors.New("cleanup failed")
	r.OnRunEnd("failing", 1, func(string, error) error { return hookErr })
	_, err = r.Run(exec, nil, cfg)
	require.ErrorIs(t, err, failure)
	require.NotErrorIs(t, err, hookErr)
	_, err = New(client).OnRunEnd("failing", 0, func(string, error) error { return hookErr }).
		Run(exec, nil, DefaultRunConfig())
	require.ErrorIs(t, err, hookErr)
	require.Contains(t, err.Error(), `OnRunEnd(hook "failing")`)
}

func TestProvisionArgumentsOnly(t *testing.T) {
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	prog, fn := stepProgram(t)
	exec := compile(t, client, prog, fn)

	args, err := ProvisionArgumentsOnly(client, exec, Uninitialized)
	require.NoError(t, err)
	require.Len(t, args, 2)
	for _, buffers := range args {
		require.Len(t, buffers, 3, "tuple parameter is flattened")
		for _, buf := range buffers {
			require.True(t, buf.Ready().IsReady())
		}
	}
	assert.Equal(t, int64(6), client.Stats().Uninitialized)
	assert.Equal(t, int64(0), client.Stats().HostToDevice)
	args.Destroy()
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)

	_, err = ProvisionArgumentsOnly(client, exec, ArgumentMode(42))
	require.Error(t, err)

	// Dynamic dimensions are allocated with their bound, on the default memory space even if the layout
	// asks for pinned host memory.
	client = must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithoutPinnedHostMemory()))
	bounded := shapes.Make(dtypes.Float32, 1024).WithDynamicDimensions(0).
		WithLayout(&shapes.Layout{MinorToMajor: []int{0}, MemorySpace: shapes.HostMemorySpace})
	prog, fn = addProgram(bounded)
	exec = compile(t, client, prog, fn)
	args, err = ProvisionArgumentsOnly(client, exec, Uninitialized)
	require.NoError(t, err)
	for d, buffers := range args {
		require.Len(t, buffers, 2)
		for _, buf := range buffers {
			assert.Equal(t, []int{1024}, buf.Shape().Dimensions)
			assert.Equal(t, uintptr(4*1024), buf.Shape().Memory())
			assert.True(t, buf.Shape().IsDynamicDimension(0))
			assert.Equal(t, device.DeviceMemory, buf.MemorySpace().Kind, "device #%d", d)
		}
	}
	args.Destroy()
	assert.Equal(t, int64(0), client.Stats().LiveBuffers)
}

func TestInvalidFlattenRequest(t *testing.T) {
	client := must.M1(hostsim.New())
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)
	cfg := DefaultRunConfig()
	p := New(client).newProvisioner(exec, true, &cfg)
	_, err := p.create(nil)
	require.ErrorIs(t, err, ErrInvalidFlattenRequest)
}

func TestInvalidConfig(t *testing.T) {
	client := must.M1(hostsim.New())
	prog, fn := addProgram(shapes.Make(dtypes.Float32, 2))
	exec := compile(t, client, prog, fn)
	cfg := DefaultRunConfig()
	cfg.NumRepeats = 0
	_, err := Run(client, exec, nil, cfg)
	require.Error(t, err)
}
