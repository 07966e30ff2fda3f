// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gomlx/hlorunner/backends/hostsim"
	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunSettings(t *testing.T) {
	cfg := runner.DefaultRunConfig()
	settingsSet, err := ParseRunSettings(&cfg,
		"num_repeats=1_000;argument_mode=use_zeros_as_input; untuple_result = true;slow_provisioning_threshold=250ms;")
	require.NoError(t, err)
	require.Equal(t, []string{"num_repeats", "argument_mode", "untuple_result", "slow_provisioning_threshold"}, settingsSet)
	assert.Equal(t, 1000, cfg.NumRepeats)
	assert.Equal(t, runner.UseZerosAsInput, cfg.ArgumentMode)
	require.NotNil(t, cfg.UntupleResult)
	assert.True(t, *cfg.UntupleResult)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowProvisioningThreshold)
	assert.Equal(t, runner.ReturnOutputs, cfg.OutputMode, "not set, keeps value")

	for _, bad := range []string{"num_repeats", "unknown=1", "argument_mode=use_ones", "num_repeats=0", "random_seed=x"} {
		cfg := runner.DefaultRunConfig()
		_, err = ParseRunSettings(&cfg, bad)
		assert.Error(t, err, "setting %q should fail", bad)
	}
}

func TestParseRunSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	require.NoError(t, os.WriteFile(path, []byte(`
# Benchmark settings.
num_repeats=20
output_mode=not_return_outputs;recreate_buffers_between_repeats=true
`), 0o600))
	cfg := runner.DefaultRunConfig()
	settingsSet, err := ParseRunSettings(&cfg, "random_seed=3;file:"+path)
	require.NoError(t, err)
	require.Equal(t, []string{"random_seed", "num_repeats", "output_mode", "recreate_buffers_between_repeats"}, settingsSet)
	assert.Equal(t, uint64(3), cfg.RandomSeed)
	assert.Equal(t, 20, cfg.NumRepeats)
	assert.Equal(t, runner.NotReturnOutputs, cfg.OutputMode)
	assert.True(t, cfg.RecreateBuffersBetweenRepeats)

	_, err = ParseRunSettings(&cfg, "file:"+filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestRunSettingNames(t *testing.T) {
	names := RunSettingNames()
	assert.Contains(t, names, "argument_mode")
	assert.Contains(t, names, "untuple_result")
	assert.Len(t, names, 8)
	assert.Contains(t, SprintRunSettings(runner.DefaultRunConfig()), "argument_mode: use_device_id_as_input")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23ms", FormatDuration(1234567*time.Nanosecond))
	assert.Equal(t, "2.00s", FormatDuration(2*time.Second))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second))
	assert.Equal(t, time.Duration(0), medianDuration(nil))
	assert.Equal(t, 3*time.Second, medianDuration([]time.Duration{5 * time.Second, time.Second, 3 * time.Second}))
}

func TestSprintSummary(t *testing.T) {
	cfg := runner.DefaultRunConfig()
	cfg.NumRepeats = 4
	summary := SprintSummary(&RunReport{
		Executable: "accumulate",
		NumDevices: 2,
		Config:     cfg,
		Stats:      runner.Stats{ArgumentCreations: 1, LayoutFallbacks: 3},
		Elapsed:    2 * time.Second,
		Outputs: runner.PerDeviceLiterals{
			1: {must.M1(literal.FromFlat([]float32{1, 2}, 2))},
			0: {literal.FromScalar(int32(7))},
		},
	})
	assert.Contains(t, summary, "accumulate")
	assert.Contains(t, summary, "layout fallbacks")
	assert.NotContains(t, summary, "slow provisioning alarms")
	assert.Contains(t, summary, "500.00ms")
	assert.Contains(t, summary, "(Float32)[2]")
}

func TestProgressBarFinishesFailedRun(t *testing.T) {
	failure := errors.New("device lost")
	client := must.M1(hostsim.New(hostsim.WithNumDevices(2), hostsim.WithExecuteFailure(func(deviceID, launchID int) error {
		if launchID == 3 {
			return failure
		}
		return nil
	})))
	prog := &program.Program{
		Name:            "identity",
		ParameterShapes: []shapes.Shape{shapes.Make(dtypes.Float32)},
		ResultShape:     shapes.Make(dtypes.Float32),
	}
	exec := must.M1(client.Compile(prog, func(call *hostsim.Call) (*literal.Literal, error) {
		return call.Params[0].Clone(), nil
	}))
	r := runner.New(client)
	pBar := attachProgressBar(r)

	cfg := runner.DefaultRunConfig()
	cfg.NumRepeats = 5
	_, err := r.Run(exec, nil, cfg)
	require.ErrorIs(t, err, failure)
	assert.Nil(t, pBar.bar, "display must be finished when the run fails")
	assert.Nil(t, pBar.updates)
	assert.Equal(t, 2, pBar.totalAmount)

	cfg.NumRepeats = 2
	_, err = r.Run(exec, nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, pBar.bar)
	assert.Nil(t, pBar.updates)
	assert.Equal(t, 2, pBar.totalAmount)
}
