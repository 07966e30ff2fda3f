// hlorunner runs a demo program repeatedly on simulated devices, and reports the outputs of the last repeat.
//
// Example:
//
//	hlorunner -program=train_step -devices=4 -set="num_repeats=100;argument_mode=use_random_inputs" -progress
//
// Arguments can be replayed from a JSON snapshot (see package snapshot) with -snapshot, and the run configuration
// read from a YAML file with -config (flags given with -set take precedence).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gomlx/hlorunner/backends/hostsim"
	"github.com/gomlx/hlorunner/pkg/profiling"
	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/gomlx/hlorunner/pkg/snapshot"
	"github.com/gomlx/hlorunner/pkg/support/fsutil"
	"github.com/gomlx/hlorunner/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagProgram  = flag.String("program", "accumulate", "Demo program to run: "+demoProgramsUsage())
	flagSize     = flag.Int("size", 1024, "Size of the axes of the demo program parameters.")
	flagConfig   = flag.String("config", "", "YAML file with the run configuration. Values given with -set take precedence.")
	flagSettings = commandline.CreateRunSettingsFlag("set")
	flagSnapshot = flag.String("snapshot", "", "JSON snapshot with the arguments to replay, instead of synthesizing them.")

	flagDevices         = flag.Int("devices", 1, "Number of simulated devices.")
	flagAddressable     = flag.String("addressable", "", "Comma-separated ids of the devices addressable by this process. Defaults to all.")
	flagNoCustomLayouts = flag.Bool("no_custom_layouts", false, "Simulate a client that doesn't support custom layouts.")
	flagLatency         = flag.Duration("transfer_latency", 0, "Simulated latency of every host-to-device transfer.")
	flagParallelism     = flag.Int("parallelism", -1, "Maximum number of simulated device operations in parallel. "+
		"-1 uses the number of CPUs, 0 runs them synchronously.")

	flagProgress = flag.Bool("progress", false, "Display a progress bar with the repeats.")
	flagProfile  = flag.Bool("profile", false, "Record a profiling session of the last repeat.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'hlorunner -help'.", flag.Args())
		os.Exit(1)
	}
	if err := run(); err != nil {
		klog.Errorf("Failed: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	demo, found := demoPrograms[*flagProgram]
	if !found {
		return errors.Errorf("unknown -program=%q, valid values are: %s", *flagProgram, demoProgramsUsage())
	}
	prog, fn, err := demo.build(*flagSize)
	if err != nil {
		return err
	}

	options, err := clientOptions()
	if err != nil {
		return err
	}
	client, err := hostsim.New(options...)
	if err != nil {
		return errors.WithMessagef(err, "-devices=%d -addressable=%q", *flagDevices, *flagAddressable)
	}
	exec, err := client.Compile(prog, fn)
	if err != nil {
		return err
	}

	var arguments runner.PerDeviceLiterals
	if *flagSnapshot != "" {
		path, err := fsutil.ResolvePath(*flagSnapshot)
		if err != nil {
			return errors.WithMessagef(err, "-snapshot=%q", *flagSnapshot)
		}
		s, err := snapshot.LoadFile(path)
		if err != nil {
			return err
		}
		if s.Program != "" && s.Program != prog.Name {
			klog.Warningf("Snapshot was taken for program %q, replaying it on %q", s.Program, prog.Name)
		}
		arguments = s.Arguments
	}

	r := runner.New(client)
	var recorder *profiling.Recorder
	if *flagProfile {
		recorder = profiling.NewRecorder()
		r.WithProfiler(recorder)
	}
	if *flagProgress {
		commandline.AttachProgressBar(r, func() (name, value string) {
			return "Device executions", strconv.FormatInt(client.Stats().Executions, 10)
		})
	}
	klog.V(1).Infof("Run configuration:\n%s", commandline.SprintRunSettings(cfg))

	start := time.Now()
	outputs, err := r.Run(exec, arguments, cfg)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}
	fmt.Print(commandline.SprintSummary(&commandline.RunReport{
		Executable: exec.Name(),
		NumDevices: len(exec.AddressableDevices()),
		Config:     cfg,
		Stats:      r.Stats(),
		Elapsed:    elapsed,
		Outputs:    outputs,
	}))
	if recorder != nil {
		fmt.Print(recorder.Summary())
	}
	return nil
}

// loadConfig reads -config, if given, and applies -set.
func loadConfig() (runner.RunConfig, error) {
	cfg := runner.DefaultRunConfig()
	if *flagConfig != "" {
		path, err := fsutil.ResolvePath(*flagConfig)
		if err != nil {
			return cfg, err
		}
		if exists, err := fsutil.FileExists(path); err != nil || !exists {
			return cfg, errors.Errorf("-config=%q: file not found (err=%v)", *flagConfig, err)
		}
		cfg, err = runner.LoadRunConfig(path)
		if err != nil {
			return cfg, err
		}
	}
	if _, err := commandline.ParseRunSettings(&cfg, *flagSettings); err != nil {
		return cfg, errors.WithMessage(err, "-set")
	}
	return cfg, nil
}

func clientOptions() ([]hostsim.Option, error) {
	options := []hostsim.Option{
		hostsim.WithNumDevices(*flagDevices),
		hostsim.WithTransferLatency(*flagLatency),
	}
	if *flagParallelism >= 0 {
		options = append(options, hostsim.WithMaxParallelism(*flagParallelism))
	}
	if *flagAddressable != "" {
		var ids []int
		for _, part := range strings.Split(*flagAddressable, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, errors.WithMessagef(err, "-addressable=%q", *flagAddressable)
			}
			ids = append(ids, id)
		}
		options = append(options, hostsim.WithAddressableDevices(ids...))
	}
	if *flagNoCustomLayouts {
		options = append(options, hostsim.WithoutCustomLayouts())
	}
	return options, nil
}
