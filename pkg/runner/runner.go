// Package runner executes a compiled program repeatedly on a set of devices.
//
// A Run creates the arguments on every addressable device (synthesized, see ArgumentMode, or copied from
// given literals), executes the program NumRepeats times, and transfers the outputs of the last repeat
// back to the host (see OutputMode).
//
// Between repeats, arguments aliased to outputs (see program.AliasConfig) are fed by the outputs of the previous
// repeat, without any copy or host round-trip. The other arguments reuse the buffers of the first repeat.
// Optionally (RunConfig.RecreateBuffersBetweenRepeats) the arguments are created anew for every repeat.
//
// Example:
//
//	cfg := runner.DefaultRunConfig()
//	cfg.NumRepeats = 10
//	outputs, err := runner.New(client).
//		OnIterationEnd("progress", 0, func(info *runner.IterationInfo) error { bar.Add(1); return nil }).
//		Run(exec, nil, cfg)
package runner

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/gomlx/hlorunner/pkg/device"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Profiler is an externally owned profiling capability. A session is started immediately before the last
// repeat is executed, and stopped immediately after it completes.
type Profiler interface {
	StartSession() error
	StopSession() error
}

// Stats accumulated by a Runner over all its runs.
type Stats struct {
	// ArgumentCreations counts how many times a full set of arguments was created on the devices.
	ArgumentCreations int64

	// LayoutFallbacks counts arguments transferred with the default layout because the client doesn't
	// support the custom layout required by the program.
	LayoutFallbacks int64

	// SlowProvisioningAlarms counts how many times creating the arguments took longer than
	// RunConfig.SlowProvisioningThreshold.
	SlowProvisioningAlarms int64
}

// Runner executes programs on the devices of a client. Configure it before the first Run.
// It must not be used by more than one Run at a time.
type Runner struct {
	client   device.Client
	profiler Profiler
	rng      *rand.Rand

	onIterationStart *priorityHooks[*hookWithName[IterationHookFn]]
	onIterationEnd   *priorityHooks[*hookWithName[IterationHookFn]]
	onRunEnd         *priorityHooks[*hookWithName[RunEndHookFn]]

	argumentCreations, layoutFallbacks, slowAlarms atomic.Int64
}

// New creates a Runner for the devices of client.
func New(client device.Client) *Runner {
	return &Runner{
		client:           client,
		onIterationStart: newPriorityHooks[*hookWithName[IterationHookFn]](),
		onIterationEnd:   newPriorityHooks[*hookWithName[IterationHookFn]](),
		onRunEnd:         newPriorityHooks[*hookWithName[RunEndHookFn]](),
	}
}

// WithProfiler sets the profiler used for the last repeat of every run. It returns the Runner, so calls can be chained.
func (r *Runner) WithProfiler(profiler Profiler) *Runner {
	r.profiler = profiler
	return r
}

// WithRandomSource sets the random source used for random arguments, instead of the per-device sources seeded
// with RunConfig.RandomSeed. It returns the Runner, so calls can be chained.
func (r *Runner) WithRandomSource(rng *rand.Rand) *Runner {
	r.rng = rng
	return r
}

// OnIterationStart adds a hook with given priority and name (for error reporting), called once the arguments of
// a repeat are ready and before it is executed.
func (r *Runner) OnIterationStart(name string, priority Priority, fn IterationHookFn) *Runner {
	r.onIterationStart.Add(priority, &hookWithName[IterationHookFn]{name: name, fn: fn})
	return r
}

// OnIterationEnd adds a hook with given priority and name (for error reporting), called once every completion of
// a repeat was awaited.
func (r *Runner) OnIterationEnd(name string, priority Priority, fn IterationHookFn) *Runner {
	r.onIterationEnd.Add(priority, &hookWithName[IterationHookFn]{name: name, fn: fn})
	return r
}

// OnRunEnd adds a hook with given priority and name (for error reporting), called when Run returns, whether
// it succeeded or not.
func (r *Runner) OnRunEnd(name string, priority Priority, fn RunEndHookFn) *Runner {
	r.onRunEnd.Add(priority, &hookWithName[RunEndHookFn]{name: name, fn: fn})
	return r
}

// runEnd calls the OnRunEnd hooks. Hook errors are returned only if the run itself succeeded.
func (r *Runner) runEnd(executable string, runErr error) error {
	for hook := range r.onRunEnd.All() {
		if err := hook.fn(executable, runErr); err != nil {
			err = errors.WithMessagef(err, "OnRunEnd(hook %q)", hook.name)
			if runErr != nil {
				klog.Warningf("Run(%q) failed, and then: %+v", executable, err)
				continue
			}
			runErr = err
		}
	}
	return runErr
}

// Stats returns the statistics accumulated so far.
func (r *Runner) Stats() Stats {
	return Stats{
		ArgumentCreations:      r.argumentCreations.Load(),
		LayoutFallbacks:        r.layoutFallbacks.Load(),
		SlowProvisioningAlarms: r.slowAlarms.Load(),
	}
}

func (r *Runner) newProvisioner(exec device.Executable, flatten bool, cfg *RunConfig) *provisioner {
	p := &provisioner{
		client:         r.client,
		prog:           exec.Program(),
		devices:        exec.AddressableDevices(),
		flatten:        flatten,
		mode:           cfg.ArgumentMode,
		logArguments:   cfg.LogInputOutput,
		randomSeed:     cfg.RandomSeed,
		rng:            r.rng,
		alarmThreshold: cfg.SlowProvisioningThreshold,
		onSlowAlarm:    func() { r.slowAlarms.Add(1) },
	}
	return p
}

// collectStats adds the counters of the provisioner to the Runner stats.
func (r *Runner) collectStats(p *provisioner) {
	r.argumentCreations.Add(p.numCreations.Load())
	r.layoutFallbacks.Add(p.layoutFallbacks.Load())
}

// Run executes exec cfg.NumRepeats times and returns the outputs of the last repeat, per device id, as selected by
// cfg.OutputMode.
//
// If arguments is not nil, it is used instead of synthesized arguments: it must have one entry per addressable
// device (keyed by device id) with one literal per parameter. For programs taking one tuple of arrays, a device
// entry can also be the single tuple literal.
//
// Every buffer created by Run is destroyed before it returns, also on failure.
func (r *Runner) Run(exec device.Executable, arguments PerDeviceLiterals, cfg RunConfig) (PerDeviceLiterals, error) {
	results, err := r.run(exec, arguments, cfg)
	if err = r.runEnd(exec.Name(), err); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) run(exec device.Executable, arguments PerDeviceLiterals, cfg RunConfig) (PerDeviceLiterals, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prog := exec.Program()
	ptype := program.Classify(prog)
	aliasMap, err := NewAliasMap(prog, ptype)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Running %q: parameter type %s, %d aliased arguments, %d repeats on %d devices",
		exec.Name(), ptype, aliasMap.NumAliased(), cfg.NumRepeats, len(exec.AddressableDevices()))

	p := r.newProvisioner(exec, ptype.FlattenArguments(), &cfg)
	defer r.collectStats(p)
	arena := &slotArena{}
	defer arena.releaseAll()
	l := &loop{
		runner:      r,
		exec:        exec,
		prog:        prog,
		ptype:       ptype,
		aliasMap:    aliasMap,
		provisioner: p,
		arena:       arena,
		cfg:         &cfg,
	}
	outputs, err := l.run(arguments)
	if err != nil {
		return nil, errors.WithMessagef(err, "Run(%q)", exec.Name())
	}
	results, err := collectOutputs(r.client, outputs, cfg.OutputMode, cfg.LogInputOutput)
	if err != nil {
		return nil, errors.WithMessagef(err, "Run(%q)", exec.Name())
	}
	return results, nil
}

// ProvisionArgumentsOnly creates the arguments of exec on its addressable devices, as Run would for its first
// repeat, and returns them. It is meant for harnesses that separate setup from timed execution.
//
// The caller owns the returned buffers and must destroy them (see BufferSet.Destroy).
func (r *Runner) ProvisionArgumentsOnly(exec device.Executable, mode ArgumentMode) (BufferSet, error) {
	cfg := DefaultRunConfig()
	cfg.ArgumentMode = mode
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := r.newProvisioner(exec, program.Classify(exec.Program()).FlattenArguments(), &cfg)
	defer r.collectStats(p)
	args, err := p.create(nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "ProvisionArgumentsOnly(%q)", exec.Name())
	}
	return args, nil
}

// Run executes exec with a default Runner, see Runner.Run.
func Run(client device.Client, exec device.Executable, arguments PerDeviceLiterals, cfg RunConfig) (PerDeviceLiterals, error) {
	return New(client).Run(exec, arguments, cfg)
}

// ProvisionArgumentsOnly creates the arguments of exec with a default Runner, see Runner.ProvisionArgumentsOnly.
func ProvisionArgumentsOnly(client device.Client, exec device.Executable, mode ArgumentMode) (BufferSet, error) {
	return New(client).ProvisionArgumentsOnly(exec, mode)
}
