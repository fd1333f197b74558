package serialization

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiver_ScalarsAndSequences(t *testing.T) {
	a := NewArchiver()
	a.SetType("OutputPort")
	require.NoError(t, a.Set("name", "output"))
	require.NoError(t, a.Set("size", 3))
	require.NoError(t, a.Set("values", []float64{1.5, 2, 3}))

	var name string
	var size int
	var values []float64
	require.NoError(t, a.Get("name", &name))
	require.NoError(t, a.Get("size", &size))
	require.NoError(t, a.Get("values", &values))

	assert.Equal(t, "OutputPort", a.Type())
	assert.Equal(t, "output", name)
	assert.Equal(t, 3, size)
	assert.Equal(t, []float64{1.5, 2, 3}, values)
	assert.Equal(t, []string{"name", "size", "values"}, a.Names())
}

func TestArchiver_UnsupportedValues(t *testing.T) {
	a := NewArchiver()
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"struct", struct{ X int }{1}},
		{"map", map[string]int{"a": 1}},
		{"bytes", []byte("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, a.Set("p", tt.value), ErrUnsupportedValue)
		})
	}
}

func TestArchiver_MissingProperty(t *testing.T) {
	a := NewArchiver()
	a.SetType("Node")

	var id string
	err := a.Get("id", &id)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingProperty)

	var mpe *MissingPropertyError
	require.ErrorAs(t, err, &mpe)
	assert.Equal(t, "Node", mpe.Object)
	assert.Equal(t, "id", mpe.Property)

	found, err := a.Lookup("id", &id)
	assert.False(t, found)
	assert.NoError(t, err)

	_, err = a.SubObject("child")
	assert.ErrorIs(t, err, ErrMissingProperty)
	_, err = a.Objects("children")
	assert.ErrorIs(t, err, ErrMissingProperty)
}

func TestArchiver_NestedScopesDoNotCollide(t *testing.T) {
	a := NewArchiver()
	a.SetType("Node")
	require.NoError(t, a.Set("name", "outer"))
	child := a.Object("header")
	child.SetType("Header")
	require.NoError(t, child.Set("name", "inner"))

	ports := a.SetObjects("ports", 2)
	require.NoError(t, ports[0].Set("name", "a"))
	require.NoError(t, ports[1].Set("name", "b"))

	restored, err := fromWire(a.wire(), true)
	require.NoError(t, err)

	var outer, inner string
	require.NoError(t, restored.Get("name", &outer))
	sub, err := restored.SubObject("header")
	require.NoError(t, err)
	require.NoError(t, sub.Get("name", &inner))
	assert.Equal(t, "outer", outer)
	assert.Equal(t, "inner", inner)
	assert.Equal(t, "Header", sub.Type())

	list, err := restored.Objects("ports")
	require.NoError(t, err)
	require.Len(t, list, 2)
	var second string
	require.NoError(t, list[1].Get("name", &second))
	assert.Equal(t, "b", second)
}

func TestArchiver_EmptyObjectSequence(t *testing.T) {
	a := NewArchiver()
	a.SetType("Node")
	a.SetObjects("inputPorts", 0)

	restored, err := fromWire(a.wire(), true)
	require.NoError(t, err)
	list, err := restored.Objects("inputPorts")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestArchiver_ObjectReadAsScalar(t *testing.T) {
	a := NewArchiver()
	a.Object("child").SetType("Child")

	var s string
	assert.ErrorIs(t, a.Get("child", &s), ErrUnsupportedValue)
}

func TestFromWire_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"not a map", []any{1, 2}},
		{"no type", map[string]any{"properties": map[string]any{}}},
		{"properties not a map", map[string]any{"type": "X", "properties": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromWire(tt.raw, true)
			assert.ErrorIs(t, err, ErrMalformedObject)
		})
	}
}

func TestFromWire_UntypedNestedScopes(t *testing.T) {
	a := NewArchiver()
	a.SetType("Node")
	require.NoError(t, a.Object("header").Set("version", "1.0.0"))
	require.NoError(t, a.AppendObject("ports").Set("name", "x"))

	restored, err := fromWire(a.wire(), true)
	require.NoError(t, err)

	header, err := restored.SubObject("header")
	require.NoError(t, err)
	assert.Empty(t, header.Type())

	ports, err := restored.Objects("ports")
	require.NoError(t, err)
	require.Len(t, ports, 1)
	var name string
	require.NoError(t, ports[0].Get("name", &name))
	assert.Equal(t, "x", name)

	untyped := NewArchiver()
	require.NoError(t, untyped.Set("name", "x"))
	_, err = fromWire(untyped.wire(), true)
	assert.ErrorIs(t, err, ErrMalformedObject)
}

func TestFromWire_NormalizesJSONNumbers(t *testing.T) {
	raw := map[string]any{
		"type": "OutputPort",
		"properties": map[string]any{
			"size":   json.Number("4"),
			"scale":  json.Number("2.5"),
			"values": []any{json.Number("1"), json.Number("1.5")},
			"nested": map[string]any{"n": json.Number("7")},
		},
	}

	a, err := fromWire(raw, true)
	require.NoError(t, err)

	wire := a.wire()[wirePropsKey].(map[string]any)
	assert.Equal(t, int64(4), wire["size"])
	assert.Equal(t, 2.5, wire["scale"])
	assert.Equal(t, []any{int64(1), 1.5}, wire["values"])
	assert.Equal(t, map[string]any{"n": int64(7)}, wire["nested"])
}

func TestArchiver_GetRejectsLossyIntegers(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		target  any
		wantErr bool
	}{
		{"integral float into int", 4.0, new(int), false},
		{"fractional float into int", 2.75, new(int), true},
		{"fractional float32 into int64", float32(0.5), new(int64), true},
		{"negative into uint", int64(-1), new(uint), true},
		{"overflow int8", int64(300), new(int8), true},
		{"overflow uint8 from uint", uint64(256), new(uint8), true},
		{"huge float into int64", 1e20, new(int64), true},
		{"fraction in int slice", []any{1.0, 2.5}, new([]int), true},
		{"float target keeps fraction", 2.75, new(float64), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArchiver()
			a.SetType("OutputPort")
			a.props["size"] = tt.value

			err := a.Get("size", tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNumberRange)
				return
			}
			assert.NoError(t, err)
		})
	}
}
