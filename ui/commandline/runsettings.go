package commandline

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/gomlx/hlorunner/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RunSettingNames returns the names of the runner.RunConfig fields that can be set, as in its YAML encoding.
func RunSettingNames() []string {
	var names []string
	cfgType := reflect.TypeOf(runner.RunConfig{})
	for ii := range cfgType.NumField() {
		tag := cfgType.Field(ii).Tag.Get("yaml")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}

// ParseRunSettings from settings, typically the contents of a flag set by the user, into cfg.
// The settings are a list separated by ";": e.g.: "num_repeats=10;argument_mode=use_zeros_as_input".
//
// Values are parsed as YAML values of the corresponding field, so enums take their names and durations
// take strings like "500ms". For integers, "_" can be used as a separator: 1_000_000 = 1000000.
//
// An entry "file:<path>" reads settings from a file, one or more per line, and lines starting with "#"
// are comments.
//
// It returns the names of the settings set, in order. The resulting configuration is validated.
func ParseRunSettings(cfg *runner.RunConfig, settings string) (settingsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		settingsSet, err = parseRunSetting(cfg, setting, settingsSet)
		if err != nil {
			return
		}
	}
	err = cfg.Validate()
	return
}

func parseRunSetting(cfg *runner.RunConfig, setting string, settingsSet []string) ([]string, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return settingsSet, nil
	}
	if filePath, found := strings.CutPrefix(setting, "file:"); found {
		filePath, err := fsutil.ResolvePath(filePath)
		if err != nil {
			return settingsSet, err
		}
		contents, err := os.ReadFile(filePath)
		if err != nil {
			return settingsSet, errors.Wrapf(err, "failed to read settings from file %q", filePath)
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				settingsSet, err = parseRunSetting(cfg, lineSetting, settingsSet)
				if err != nil {
					return settingsSet, err
				}
			}
		}
		return settingsSet, nil
	}

	name, value, found := strings.Cut(setting, "=")
	if !found {
		return settingsSet, errors.Errorf("can't parse setting %q: each setting requires the format \"<name>=<value>\"", setting)
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !slices.Contains(RunSettingNames(), name) {
		return settingsSet, errors.Errorf("unknown setting %q, valid settings are %q", name, RunSettingNames())
	}
	if isNumber(value) {
		value = strings.ReplaceAll(value, "_", "")
	}
	if err := yaml.Unmarshal([]byte(name+": "+value), cfg); err != nil {
		return settingsSet, errors.Wrapf(err, "failed to parse value %q for setting %q", value, name)
	}
	return append(settingsSet, name), nil
}

func isNumber(value string) bool {
	value = strings.TrimPrefix(value, "-")
	return value != "" && strings.Trim(value, "0123456789_") == ""
}

// CreateRunSettingsFlag creates a string flag with the given flagName (if empty it will be named "set") and with
// a description of the settings available, with their defaults.
//
// The flag should be created before the call to `flags.Parse()`.
//
// Example usage:
//
//	func main() {
//		settings := commandline.CreateRunSettingsFlag("")
//		flag.Parse()
//		cfg := runner.DefaultRunConfig()
//		_, err := commandline.ParseRunSettings(&cfg, *settings)
//		if err != nil { panic(err) }
//		fmt.Println(commandline.SprintRunSettings(cfg))
//		...
//	}
func CreateRunSettingsFlag(flagName string) *string {
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{
		`Set run configuration values. ` +
			`It should be a list of elements "name=value" separated by ";". ` +
			`It can also be given an entry like: "file:settings_file.txt", in ` +
			`which case the file will be read and the settings will be parsed, ` +
			`with new-lines working as ";" to separate settings and lines starting with "#" are considered comments. ` +
			`Available settings and their defaults:`,
		SprintRunSettings(runner.DefaultRunConfig()),
	}
	var settings string
	flag.StringVar(&settings, flagName, "", strings.Join(parts, "\n"))
	return &settings
}

// SprintRunSettings pretty-prints the configuration, one setting per line.
func SprintRunSettings(cfg runner.RunConfig) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("\t<failed to print settings: %v>", err)
	}
	var parts []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		parts = append(parts, "\t"+line)
	}
	return strings.Join(parts, "\n")
}
