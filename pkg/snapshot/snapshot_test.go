package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/hlorunner/backends/hostsim"
	"github.com/gomlx/hlorunner/pkg/core/dtypes"
	"github.com/gomlx/hlorunner/pkg/core/literal"
	"github.com/gomlx/hlorunner/pkg/core/shapes"
	"github.com/gomlx/hlorunner/pkg/program"
	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

const example = `{
  "program": "train_step",
  "devices": [
    {"device_id": 1, "arguments": [
      {"dtype": "Float32", "dims": [2, 2], "values": [1, 2, 3, 4]},
      {"dtype": "S32", "values": 7},
      {"dtype": "Bool", "dims": [3], "fill": true},
      {"tuple": [
        {"dtype": "C64", "dims": [2], "values": [[1, -1], [0, 2]]},
        {"dtype": "F16", "dims": [2], "values": [0.5, 1.5]}
      ]}
    ]},
    {"device_id": 0, "arguments": [
      {"dtype": "Float32", "dims": [2, 2], "fill": 0},
      {"dtype": "Int32", "values": [-7]},
      {"dtype": "bool", "dims": [3], "values": [true, false, true]},
      {"tuple": [
        {"dtype": "Complex64", "values": [3, 4]},
        {"dtype": "Float16", "dims": [0], "values": []}
      ]}
    ]}
  ]
}`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(example))
	require.NoError(t, err)
	assert.Equal(t, "train_step", s.Program)
	require.Len(t, s.Arguments, 2)

	dev1 := s.Arguments[1]
	require.Len(t, dev1, 4)
	assert.True(t, dev1[0].Shape().Equal(shapes.Make(dtypes.Float32, 2, 2)))
	assert.Equal(t, []float32{1, 2, 3, 4}, dev1[0].Flat())
	assert.True(t, dev1[1].Shape().IsScalar())
	assert.Equal(t, []int32{7}, dev1[1].Flat())
	assert.Equal(t, []bool{true, true, true}, dev1[2].Flat())
	require.True(t, dev1[3].IsTuple())
	assert.Equal(t, []complex64{complex(1, -1), complex(0, 2)}, dev1[3].Elements()[0].Flat())
	assert.Equal(t, []float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(1.5)}, dev1[3].Elements()[1].Flat())

	dev0 := s.Arguments[0]
	assert.Equal(t, []float32{0, 0, 0, 0}, dev0[0].Flat())
	assert.Equal(t, []int32{-7}, dev0[1].Flat())
	assert.Equal(t, []bool{true, false, true}, dev0[2].Flat())
	assert.Equal(t, []complex64{complex(3, 4)}, dev0[3].Elements()[0].Flat())
	assert.Equal(t, 0, dev0[3].Elements()[1].Shape().Size())
}

func TestLoadErrors(t *testing.T) {
	for name, data := range map[string]string{
		"malformed":       `{"devices": [`,
		"unknown field":   `{"devices": [], "extra": 1}`,
		"unknown dtype":   `{"devices": [{"device_id": 0, "arguments": [{"dtype": "Float128", "values": [1]}]}]}`,
		"missing dtype":   `{"devices": [{"device_id": 0, "arguments": [{"dims": [1], "values": [1]}]}]}`,
		"too few values":  `{"devices": [{"device_id": 0, "arguments": [{"dtype": "F32", "dims": [3], "values": [1, 2]}]}]}`,
		"fill and values": `{"devices": [{"device_id": 0, "arguments": [{"dtype": "F32", "values": [1], "fill": 1}]}]}`,
		"bad bool fill":   `{"devices": [{"device_id": 0, "arguments": [{"dtype": "Bool", "fill": 1}]}]}`,
		"negative dims":   `{"devices": [{"device_id": 0, "arguments": [{"dtype": "F32", "dims": [-1], "fill": 1}]}]}`,
		"tuple dtype":     `{"devices": [{"device_id": 0, "arguments": [{"dtype": "F32", "tuple": []}]}]}`,
		"repeated device": `{"devices": [{"device_id": 0, "arguments": []}, {"device_id": 0, "arguments": []}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(data))
			require.Error(t, err)
		})
	}
}

func TestLoadFileAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "program": "scale",
  "devices": [
    {"device_id": 0, "arguments": [{"dtype": "F64", "dims": [3], "values": [1, 2, 3]}, {"dtype": "F64", "values": 2}]},
    {"device_id": 1, "arguments": [{"dtype": "F64", "dims": [3], "fill": 1}, {"dtype": "F64", "values": -1}]}
  ]
}`), 0o600))
	s, err := LoadFile(path)
	require.NoError(t, err)

	client := must.M1(hostsim.New(hostsim.WithNumDevices(2)))
	exec := must.M1(client.Compile(&program.Program{
		Name:            "scale",
		ParameterShapes: []shapes.Shape{shapes.Make(dtypes.Float64, 3), shapes.Make(dtypes.Float64)},
		ResultShape:     shapes.Make(dtypes.Float64, 3),
	}, func(call *hostsim.Call) (*literal.Literal, error) {
		x, factor := call.Params[0], call.Params[1].Flat().([]float64)[0]
		for ii, v := range x.Flat().([]float64) {
			x.Flat().([]float64)[ii] = v * factor
		}
		return x, nil
	}))
	results, err := runner.Run(client, exec, s.Arguments, runner.DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, results[0][0].Flat())
	assert.Equal(t, []float64{-1, -1, -1}, results[1][0].Flat())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
