package filters_test

import (
	"testing"

	envoy_lua_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/lua/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

func TestHeaderManipulationStrategy_ValidConvert(t *testing.T) {
	s := &filters.HeaderManipulationStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"request_headers_to_add": []any{
				map[string]any{"header": map[string]any{"key": "X-Trace", "value": "abc123"}},
			},
			"response_headers_to_remove": []any{"X-Internal"},
		},
	}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)

	var cfg envoy_lua_v3.Lua
	require.NoError(t, any.UnmarshalTo(&cfg))
	src := cfg.DefaultSourceCode.GetInlineString()
	assert.Contains(t, src, "envoy_on_request")
	assert.Contains(t, src, "envoy_on_response")
	assert.Contains(t, src, "h:headers():add([[X-Trace]], [[abc123]])")
	assert.Contains(t, src, "h:headers():remove([[X-Internal]])")
}

func TestHeaderManipulationStrategy_RejectsLuaInjectionAttempt(t *testing.T) {
	s := &filters.HeaderManipulationStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"request_headers_to_add": []any{
				map[string]any{"header": map[string]any{"key": "X", "value": "]] .. os.execute('x') .. [["}},
			},
		},
	}
	assert.Error(t, s.Validate(f))
}

// TestLuaLongBracket_RoundTrip exercises the property from the spec: every
// Lua-safe string, when emitted through the long-bracket literal form,
// parses back to exactly itself with no closing sequence escaping early.
func TestLuaLongBracket_RoundTrip(t *testing.T) {
	cases := []string{
		"plain",
		"with spaces and 123",
		"contains ] single bracket",
		"contains ]] double bracket",
		"contains ]=] one equals close attempt",
		"contains ]==] two equals close attempt",
		"",
	}
	for _, s := range cases {
		if err := validate.LuaSafe("v", s); err != nil {
			continue
		}
		lit := filters.LuaLongBracket(s)
		parsed, ok := parseLuaLongBracket(lit)
		require.True(t, ok, "literal %q did not parse as a long bracket", lit)
		assert.Equal(t, s, parsed)
	}
}

// parseLuaLongBracket is a minimal reference parser for Lua 5.1's
// long-bracket string syntax: "[" "="* "[" ... "]" "="* "]", used only to
// verify the emitter's round-trip property in tests.
func parseLuaLongBracket(lit string) (string, bool) {
	if len(lit) < 2 || lit[0] != '[' {
		return "", false
	}
	i := 1
	n := 0
	for i < len(lit) && lit[i] == '=' {
		n++
		i++
	}
	if i >= len(lit) || lit[i] != '[' {
		return "", false
	}
	i++
	eq := ""
	for j := 0; j < n; j++ {
		eq += "="
	}
	closeSeq := "]" + eq + "]"
	if len(lit) < i+len(closeSeq) {
		return "", false
	}
	if lit[len(lit)-len(closeSeq):] != closeSeq {
		return "", false
	}
	body := lit[i : len(lit)-len(closeSeq)]
	return body, true
}
