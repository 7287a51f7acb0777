package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistogram(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Histogram
	}{
		{"empty object", `{}`, Histogram{}},
		{"ints", `{"mov": 3, "call": 1}`, Histogram{"mov": 3, "call": 1}},
		{"floats", `{"4": 0.5, "12": 2.25}`, Histogram{"4": 0.5, "12": 2.25}},
		{"negative", `{"x": -1}`, Histogram{"x": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHistogram(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, h)
		})
	}
}

func TestParseHistogram_NFCKeysMerge(t *testing.T) {
	// "é" precomposed and "e" + combining acute normalize to the same key.
	h, err := ParseHistogram("{\"caf\u00e9\": 1, \"cafe\u0301\": 2}")
	require.NoError(t, err)

	assert.Len(t, h, 1)
	assert.Equal(t, float64(3), h["caf\u00e9"])
}

func TestParseHistogram_Errors(t *testing.T) {
	inputs := map[string]string{
		"not json":      `deadbeef`,
		"array":         `[1, 2]`,
		"string values": `{"mov": "three"}`,
		"null value":    `{"mov": null}`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHistogram(input)
			assert.Error(t, err)
		})
	}
}

func TestHistogram_Norm(t *testing.T) {
	assert.Equal(t, float64(5), Histogram{"a": 3, "b": 4}.Norm())
	assert.Equal(t, float64(0), Histogram{}.Norm())
}

func TestHistogram_MarshalCanonical(t *testing.T) {
	out, err := Histogram{"mov": 3, "call": 1, "add": 0.5}.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"add":0.5,"call":1,"mov":3}`, out)

	// Round trip keeps the content.
	h, err := ParseHistogram(out)
	require.NoError(t, err)
	assert.Equal(t, Histogram{"mov": 3, "call": 1, "add": 0.5}, h)
}

func TestParseAdjacency(t *testing.T) {
	g, err := ParseAdjacency(`{"0": ["1", "2"], "1": ["2"]}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2"}, g.Nodes())
	assert.Empty(t, g["2"], "implicit block has no successors")
	assert.Equal(t, "0", g.Entry())
}

func TestAdjacency_EntryWithLoop(t *testing.T) {
	g, err := ParseAdjacency(`{"b": ["a"], "a": ["b"]}`)
	require.NoError(t, err)
	assert.Equal(t, "a", g.Entry(), "all blocks have predecessors: smallest id wins")

	empty, err := ParseAdjacency(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "", empty.Entry())
}

func TestParseAdjacency_Error(t *testing.T) {
	_, err := ParseAdjacency(`{"0": "1"}`)
	assert.Error(t, err)
}
