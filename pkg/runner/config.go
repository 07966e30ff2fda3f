package runner

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ArgumentMode defines how the arguments of the program are synthesized, when they are not given explicitly.
type ArgumentMode int

const (
	// UseDeviceIDAsInput fills every element of every argument with the id of the device it is created for.
	// For Bool arguments the value is (id%2 == 0).
	UseDeviceIDAsInput ArgumentMode = iota

	// UseRandomInputs creates independent pseudo-random arguments for each device.
	UseRandomInputs

	// UseSharedRandomInputs creates one set of pseudo-random arguments and copies it to every device.
	UseSharedRandomInputs

	// UseZerosAsInput creates one set of zero arguments and copies it to every device.
	UseZerosAsInput

	// Uninitialized allocates the arguments on device without initializing them.
	// Only useful to measure execution time with programs that don't depend on the argument values.
	Uninitialized
)

// OutputMode defines which outputs are transferred back to the host after the last repeat.
type OutputMode int

const (
	// ReturnOutputs transfers the outputs of every device.
	ReturnOutputs OutputMode = iota

	// ReturnDevice0Outputs transfers only the outputs of the device with id 0, if it is addressable.
	ReturnDevice0Outputs

	// NotReturnOutputs transfers nothing. Outputs are still awaited, so errors are reported.
	NotReturnOutputs
)

//go:generate go tool enumer -type=ArgumentMode -transform=snake -values -text -json -yaml -output=gen_argumentmode_enumer.go config.go
//go:generate go tool enumer -type=OutputMode -transform=snake -values -text -json -yaml -output=gen_outputmode_enumer.go config.go

// DefaultSlowProvisioningThreshold is the time after which a warning is logged if the arguments
// are still being created.
const DefaultSlowProvisioningThreshold = 5 * time.Second

// RunConfig configures one Run.
type RunConfig struct {
	// ArgumentMode is used when no arguments are given to Run.
	ArgumentMode ArgumentMode `yaml:"argument_mode"`

	// OutputMode selects the outputs returned by Run.
	OutputMode OutputMode `yaml:"output_mode"`

	// NumRepeats is the number of times the program is executed, it must be >= 1.
	NumRepeats int `yaml:"num_repeats"`

	// RecreateBuffersBetweenRepeats creates new arguments for every repeat, instead of feeding the aliased
	// outputs of one repeat as the arguments of the next.
	RecreateBuffersBetweenRepeats bool `yaml:"recreate_buffers_between_repeats"`

	// UntupleResult, if set, forces whether the result of the last repeat is untupled.
	// If nil, the last result is not untupled, unless the runtime requires it (see Run).
	UntupleResult *bool `yaml:"untuple_result,omitempty"`

	// LogInputOutput logs the arguments and the outputs returned.
	LogInputOutput bool `yaml:"log_input_output"`

	// RandomSeed for UseRandomInputs and UseSharedRandomInputs, if no random source is given to the Runner.
	RandomSeed uint64 `yaml:"random_seed"`

	// SlowProvisioningThreshold after which a warning is logged while creating the arguments.
	// Zero disables the warning.
	SlowProvisioningThreshold time.Duration `yaml:"slow_provisioning_threshold"`
}

// DefaultRunConfig returns the default configuration: one repeat, arguments filled with the device id,
// all outputs returned.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ArgumentMode:              UseDeviceIDAsInput,
		OutputMode:                ReturnOutputs,
		NumRepeats:                1,
		SlowProvisioningThreshold: DefaultSlowProvisioningThreshold,
	}
}

// Validate the configuration.
func (c *RunConfig) Validate() error {
	if c.NumRepeats < 1 {
		return errors.Errorf("RunConfig.NumRepeats must be >= 1, got %d", c.NumRepeats)
	}
	if !c.ArgumentMode.IsAArgumentMode() {
		return errors.Errorf("RunConfig.ArgumentMode has invalid value %d", int(c.ArgumentMode))
	}
	if !c.OutputMode.IsAOutputMode() {
		return errors.Errorf("RunConfig.OutputMode has invalid value %d", int(c.OutputMode))
	}
	if c.SlowProvisioningThreshold < 0 {
		return errors.Errorf("RunConfig.SlowProvisioningThreshold must be >= 0, got %s", c.SlowProvisioningThreshold)
	}
	return nil
}

// ParseRunConfig parses a YAML configuration. Fields not given keep their DefaultRunConfig values.
func ParseRunConfig(data []byte) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse RunConfig")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadRunConfig reads a YAML configuration file, see ParseRunConfig.
func LoadRunConfig(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, errors.Wrapf(err, "failed to read RunConfig from %q", path)
	}
	cfg, err := ParseRunConfig(data)
	if err != nil {
		return cfg, errors.WithMessagef(err, "while loading %q", path)
	}
	return cfg, nil
}
