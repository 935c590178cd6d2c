package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{`25`, 25, true},
		{`"30"`, 30, true},
		{`-4`, -4, true},
		{`2.0`, 2, true},
		{`2.5`, 0, false},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{``, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInt(json.RawMessage(tc.raw))
		assert.Equalf(t, tc.ok, ok, "raw %q", tc.raw)
		if tc.ok {
			assert.Equalf(t, tc.want, got, "raw %q", tc.raw)
		}
	}

	_, ok := ParseNonNegativeInt(json.RawMessage(`-1`))
	assert.False(t, ok)
	_, ok = ParsePositiveInt(json.RawMessage(`0`))
	assert.False(t, ok)
	got, ok := ParseNonNegativeInt(json.RawMessage(`0`))
	assert.True(t, ok)
	assert.Zero(t, got)
}

func TestParseBoolAndString(t *testing.T) {
	for raw, want := range map[string]bool{`true`: true, `"on"`: true, `1`: true, `false`: false, `"no"`: false, `0`: false} {
		got, ok := ParseBool(json.RawMessage(raw))
		assert.Truef(t, ok, "raw %q", raw)
		assert.Equalf(t, want, got, "raw %q", raw)
	}
	_, ok := ParseBool(json.RawMessage(`2`))
	assert.False(t, ok)

	s, ok := ParseString(json.RawMessage(`"  redis:6379 "`))
	assert.True(t, ok)
	assert.Equal(t, "redis:6379", s)
	_, ok = ParseString(json.RawMessage(`5`))
	assert.False(t, ok)
}
