package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderValue_IsEmpty(t *testing.T) {
	empty := []any{nil, "", "{}", "[]", map[string]any{}, []any{}}
	for _, v := range empty {
		assert.True(t, newProviderValue(v).isEmpty(), "%#v", v)
	}

	nonEmpty := []any{"{some:x}", true, false, float64(0), []any{"x"}, map[string]any{"k": "v"}}
	for _, v := range nonEmpty {
		assert.False(t, newProviderValue(v).isEmpty(), "%#v", v)
	}
}

func TestProviderValue_DisplayString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{float64(3), "3"},
		{float64(2.5), "2.5"},
		{true, "true"},
		{map[string]any{"displayName": "Ada"}, "Ada"},
		{map[string]any{"name": "Option A"}, "Option A"},
		{map[string]any{"value": "42"}, "42"},
		// displayName wins over name/value
		{map[string]any{"value": "v", "displayName": "d"}, "d"},
		{[]any{map[string]any{"name": "a"}, "b", nil}, "a, b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, newProviderValue(c.in).displayString(), "%#v", c.in)
	}
}

func TestProviderValue_AsFloat(t *testing.T) {
	got := newProviderValue("5.5").asFloat()
	require.NotNil(t, got)
	assert.InDelta(t, 5.5, *got, 0.0001)

	got = newProviderValue(float64(8)).asFloat()
	require.NotNil(t, got)
	assert.InDelta(t, 8, *got, 0.0001)

	assert.Nil(t, newProviderValue("abc").asFloat())
	assert.Nil(t, newProviderValue(nil).asFloat())
	assert.Nil(t, newProviderValue(map[string]any{"value": "5"}).asFloat())
}
