package runner

import (
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// loop executes the repeats of one Run. Repeats are strictly sequential: the arguments of a repeat are
// only derived once every completion of the previous one was awaited.
type loop struct {
	runner      *Runner
	exec        device.Executable
	prog        *program.Program
	ptype       program.ParameterType
	aliasMap    AliasMap
	provisioner *provisioner
	arena       *slotArena
	cfg         *RunConfig
}

// mustUntupleResult returns whether the result has to be untupled regardless of the configuration.
// It holds for every tuple result, so each device always returns the leaves of its result.
func mustUntupleResult(result shapes.Shape) bool {
	return result.IsTuple()
}

// untupleResult returns the untuple option for the given repeat.
func (l *loop) untupleResult(final bool) bool {
	if mustUntupleResult(l.prog.ResultShape) {
		return true
	}
	if !final {
		return l.ptype.DefaultUntupleResult(l.prog.ResultShape.IsTuple())
	}
	return l.cfg.UntupleResult != nil && *l.cfg.UntupleResult
}

// run executes every repeat and returns the outputs of the last one, still owned by the arena.
func (l *loop) run(arguments PerDeviceLiterals) (BufferSet, error) {
	numRepeats := l.cfg.NumRepeats
	for repeat := range numRepeats {
		final := repeat == numRepeats-1
		if repeat == 0 || l.cfg.RecreateBuffersBetweenRepeats {
			args, err := l.provisioner.create(arguments)
			if err != nil {
				return nil, errors.WithMessagef(err, "creating arguments for repeat #%d", repeat)
			}
			l.arena.reset(args)
		} else {
			if err := l.arena.advance(l.aliasMap); err != nil {
				return nil, errors.WithMessagef(err, "deriving arguments for repeat #%d", repeat)
			}
		}
		if err := l.executeRepeat(repeat, final); err != nil {
			return nil, err
		}
	}
	return l.arena.outputSet(), nil
}

// executeRepeat runs one repeat and awaits all its completions.
func (l *loop) executeRepeat(repeat int, final bool) error {
	info := &IterationInfo{
		Executable: l.exec.Name(),
		Repeat:     repeat,
		NumRepeats: l.cfg.NumRepeats,
		Final:      final,
		Arguments:  l.arena.argumentSet(),
	}
	for hook := range l.runner.onIterationStart.All() {
		if err := hook.fn(info); err != nil {
			return errors.WithMessagef(err, "OnIterationStart(hook %q) for repeat #%d", hook.name, repeat)
		}
	}

	opts := device.ExecuteOptions{
		ArgumentsAreTupled: false,
		UntupleResult:      l.untupleResult(final),
		LaunchID:           repeat + 1,
	}
	klog.V(1).Infof("Executing %q repeat %d/%d (untuple_result=%v)", l.exec.Name(), repeat+1, l.cfg.NumRepeats, opts.UntupleResult)

	profiler := l.runner.profiler
	if final && profiler != nil {
		if err := profiler.StartSession(); err != nil {
			return errors.WithMessagef(err, "failed to start profiling session for %q", l.exec.Name())
		}
	}
	outputs, done, err := l.exec.Execute(info.Arguments, opts)
	if err == nil {
		l.arena.setOutputs(outputs)
		info.Outputs = outputs
		// Every completion is awaited, even after a failure, so nothing is left in flight.
		err = xsync.AwaitAll(append(done, BufferSet(outputs).readyFutures()...)...)
	}
	var stopErr error
	if final && profiler != nil {
		stopErr = profiler.StopSession()
	}
	if err != nil {
		return &ExecutionError{Repeat: repeat, Err: err}
	}
	if stopErr != nil {
		return errors.WithMessagef(stopErr, "failed to stop profiling session for %q", l.exec.Name())
	}

	for hook := range l.runner.onIterationEnd.All() {
		if err := hook.fn(info); err != nil {
			return errors.WithMessagef(err, "OnIterationEnd(hook %q) for repeat #%d", hook.name, repeat)
		}
	}
	return nil
}
