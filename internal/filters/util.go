package filters

import (
	"time"

	envoy_route_v3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	envoy_type_matcher_v3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
)

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// prefixRouteMatch builds a RouteMatch matching every path under prefix.
func prefixRouteMatch(prefix string) *envoy_route_v3.RouteMatch {
	return &envoy_route_v3.RouteMatch{
		PathSpecifier: &envoy_route_v3.RouteMatch_Prefix{Prefix: prefix},
	}
}

// safeRegexMatcher wraps regex in a RegexMatcher. Does not escape regex
// meta characters — callers must only ever pass an anchored alternation of
// Lua-safe, validator-checked literal values, never raw user input.
func safeRegexMatcher(regex string) *envoy_type_matcher_v3.RegexMatcher {
	return &envoy_type_matcher_v3.RegexMatcher{
		Regex: regex,
	}
}
