package notify

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecipients(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{name: "comma string", in: "+1555, +1666 ,+1555", want: []string{"+1555", "+1666"}},
		{name: "string array", in: []string{" a@x.io", "b@x.io", "a@x.io"}, want: []string{"a@x.io", "b@x.io"}},
		{name: "decoded json array", in: []any{"a@x.io", " ", float64(15551234), nil}, want: []string{"a@x.io", "15551234"}},
		{name: "array elements are not split", in: []any{"a@x.io,b@x.io"}, want: []string{"a@x.io,b@x.io"}},
		{name: "scalar number", in: float64(15551234), want: []string{"15551234"}},
		{name: "blank string", in: "  , ,", want: []string{}},
		{name: "nil", in: nil, want: []string{}},
		{name: "object", in: map[string]any{"to": "x"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRecipients(tt.in))
		})
	}
}

func TestNormalizeRecipientsFromJSONBody(t *testing.T) {
	var body struct {
		To any `json:"to"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"to":["+1555","+1555"," +1666 "]}`), &body))
	assert.Equal(t, []string{"+1555", "+1666"}, NormalizeRecipients(body.To))
}

// Randomized inputs built from a small alphabet of recipients, padding and
// duplicates must always produce a trimmed, non-empty, duplicate-free list
// that preserves first-occurrence order.
func TestNormalizeRecipientsProperties(t *testing.T) {
	pool := []string{"+15550001", "+15550002", "a@x.io", "b@x.io", "", " "}
	pads := []string{"", " ", "\t", "  "}
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 500 {
		n := rng.IntN(8)
		raw := make([]string, n)
		for j := range raw {
			raw[j] = pads[rng.IntN(len(pads))] + pool[rng.IntN(len(pool))] + pads[rng.IntN(len(pads))]
		}

		var in any = raw
		if i%2 == 0 {
			in = strings.Join(raw, ",")
		}
		got := NormalizeRecipients(in)

		var expected []string
		seen := map[string]bool{}
		for _, r := range raw {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			expected = append(expected, r)
		}
		if expected == nil {
			expected = []string{}
		}

		require.Equal(t, expected, got, fmt.Sprintf("input %q", raw))
		for _, r := range got {
			assert.NotEmpty(t, r)
			assert.Equal(t, strings.TrimSpace(r), r)
		}
	}
}
