package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Histogram is a sparse category → count vector.
// Keys are NFC normalized so that the same mnemonic spelled with different
// Unicode compositions lands in the same bucket.
type Histogram map[string]float64

// ParseHistogram decodes a histogram payload.
//
// The payload must be a JSON object whose values are numbers. Keys are
// normalized to NFC; keys that collapse to the same normalized form are
// summed. An empty object yields an empty (non-nil) histogram.
func ParseHistogram(data string) (Histogram, error) {
	raw := make(map[string]json.Number)
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse histogram: %w", err)
	}

	h := make(Histogram, len(raw))
	for k, num := range raw {
		v, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("parse histogram: key %q: %w", k, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("parse histogram: key %q: non-finite count", k)
		}
		h[norm.NFC.String(k)] += v
	}
	return h, nil
}

// SortedKeys returns the histogram keys in byte order.
func (h Histogram) SortedKeys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Norm returns the L2 norm of the histogram.
func (h Histogram) Norm() float64 {
	var sum float64
	for _, v := range h {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MarshalCanonical encodes the histogram with sorted, NFC normalized keys.
// Used when writing payloads so that equal histograms have equal text.
func (h Histogram) MarshalCanonical() (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(norm.NFC.String(k))
		if err != nil {
			return "", fmt.Errorf("marshal histogram: %w", err)
		}
		val, err := json.Marshal(h[k])
		if err != nil {
			return "", fmt.Errorf("marshal histogram: key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}
