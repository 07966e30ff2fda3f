package dtypes

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromName(t *testing.T) {
	for name, want := range map[string]DType{
		"Float32": Float32,
		"F32":     Float32,
		"f32":     Float32,
		"PRED":    Bool,
		"bool":    Bool,
		"S64":     Int64,
		"float16": Float16,
	} {
		got, err := FromName(name)
		require.NoError(t, err, "name=%q", name)
		assert.Equal(t, want, got, "name=%q", name)
	}
	_, err := FromName("F8E4M3")
	require.Error(t, err)
}

func TestTextMarshaling(t *testing.T) {
	text, err := Uint16.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Uint16", string(text))

	var dtype DType
	require.NoError(t, dtype.UnmarshalText([]byte("c64")))
	assert.Equal(t, Complex64, dtype)
	require.Error(t, dtype.UnmarshalText([]byte("nope")))
}

func TestGoTypes(t *testing.T) {
	assert.Equal(t, Float16, FromGenericsType[float16.Float16]())
	assert.Equal(t, Int8, FromGenericsType[int8]())
	assert.Equal(t, Bool, FromGoType(reflect.TypeOf(true)))
	assert.Equal(t, InvalidDType, FromGoType(reflect.TypeOf("string")))

	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 16, Complex128.Size())
	assert.Equal(t, 1, Bool.Size())
	assert.True(t, Uint32.IsInt())
	assert.True(t, Uint32.IsUnsigned())
	assert.False(t, Float64.IsInt())
	assert.True(t, Float16.IsFloat())
	assert.False(t, InvalidDType.IsSupported())
	assert.Panics(t, func() { _ = InvalidDType.GoType() })
	assert.Equal(t, "DType(99)", DType(99).String())
}
