package filters

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	envoy_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_lua_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/lua/v3"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

type headerKV struct {
	Key   string
	Value string
}

// HeaderManipulationStrategy converts a "header_manipulation" HTTPFilter
// into an inline Lua script that adds/removes headers on request and
// response.
type HeaderManipulationStrategy struct{}

func decodeHeaderList(cfg map[string]any, key string) ([]headerKV, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.Errorf("header_manipulation: %s must be an array", key)
	}
	out := make([]headerKV, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, errors.Errorf("header_manipulation: %s entries must be objects", key)
		}
		hdr, ok := m["header"].(map[string]any)
		if !ok {
			return nil, errors.Errorf("header_manipulation: %s entries must have a \"header\" object", key)
		}
		k, _ := hdr["key"].(string)
		v, _ := hdr["value"].(string)
		out = append(out, headerKV{Key: k, Value: v})
	}
	return out, nil
}

func (s *HeaderManipulationStrategy) Validate(f *store.HTTPFilter) error {
	for k := range f.Config {
		switch k {
		case "request_headers_to_add", "response_headers_to_add",
			"request_headers_to_remove", "response_headers_to_remove":
		default:
			return errors.Errorf("header_manipulation: unknown config field %q", k)
		}
	}

	for _, key := range []string{"request_headers_to_add", "response_headers_to_add"} {
		list, err := decodeHeaderList(f.Config, key)
		if err != nil {
			return err
		}
		for _, kv := range list {
			if err := validate.HeaderName("key", kv.Key); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
			if err := validate.HeaderValue("value", kv.Value); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
			if err := validate.LuaSafe("key", kv.Key); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
			if err := validate.LuaSafe("value", kv.Value); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
		}
	}

	for _, key := range []string{"request_headers_to_remove", "response_headers_to_remove"} {
		names, ok := configStringSlice(f.Config, key)
		if !ok {
			continue
		}
		for _, name := range names {
			if err := validate.HeaderName("name", name); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
			if err := validate.LuaSafe("name", name); err != nil {
				return errors.Wrap(err, "header_manipulation")
			}
		}
	}
	return nil
}

func (s *HeaderManipulationStrategy) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	reqAdd, _ := decodeHeaderList(f.Config, "request_headers_to_add")
	respAdd, _ := decodeHeaderList(f.Config, "response_headers_to_add")
	reqRemove, _ := configStringSlice(f.Config, "request_headers_to_remove")
	respRemove, _ := configStringSlice(f.Config, "response_headers_to_remove")

	script := generateLuaScript(reqAdd, reqRemove, respAdd, respRemove)

	cfg := &envoy_lua_v3.Lua{
		DefaultSourceCode: &envoy_core_v3.DataSource{
			Specifier: &envoy_core_v3.DataSource_InlineString{InlineString: script},
		},
	}
	return anypb.New(cfg)
}

func generateLuaScript(reqAdd []headerKV, reqRemove []string, respAdd []headerKV, respRemove []string) string {
	var b strings.Builder

	b.WriteString("function envoy_on_request(h)\n")
	for _, kv := range reqAdd {
		fmt.Fprintf(&b, "  h:headers():add(%s, %s)\n", LuaLongBracket(kv.Key), LuaLongBracket(kv.Value))
	}
	for _, name := range reqRemove {
		fmt.Fprintf(&b, "  h:headers():remove(%s)\n", LuaLongBracket(name))
	}
	b.WriteString("end\n\n")

	b.WriteString("function envoy_on_response(h)\n")
	for _, kv := range respAdd {
		fmt.Fprintf(&b, "  h:headers():add(%s, %s)\n", LuaLongBracket(kv.Key), LuaLongBracket(kv.Value))
	}
	for _, name := range respRemove {
		fmt.Fprintf(&b, "  h:headers():remove(%s)\n", LuaLongBracket(name))
	}
	b.WriteString("end\n")

	return b.String()
}

// LuaLongBracket emits s as a Lua long-bracket string literal [=*[...]=*],
// choosing the smallest run of '=' such that the closing sequence cannot
// appear inside s — no character of s ever needs escaping, which makes
// injection through crafted header keys/values structurally impossible.
func LuaLongBracket(s string) string {
	n := 0
	for {
		closer := "]" + strings.Repeat("=", n) + "]"
		if !strings.Contains(s, closer) {
			break
		}
		n++
	}
	eq := strings.Repeat("=", n)
	return "[" + eq + "[" + s + "]" + eq + "]"
}
