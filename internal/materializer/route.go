package materializer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	envoy_route_v3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	envoy_type_matcher_v3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"

	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

// MaterializeRoute re-validates r and builds its Envoy Route message.
func MaterializeRoute(r *store.Route) (*envoy_route_v3.Route, error) {
	if err := revalidateRoute(r); err != nil {
		return nil, errors.Wrapf(err, "materializing route %q", r.Name)
	}

	match := &envoy_route_v3.RouteMatch{
		PathSpecifier: &envoy_route_v3.RouteMatch_Prefix{Prefix: r.Path},
	}

	switch len(r.HTTPMethods) {
	case 0:
		// No method matcher: matches all.
	case 1:
		match.Headers = []*envoy_route_v3.HeaderMatcher{methodExactMatcher(r.HTTPMethods[0])}
	default:
		match.Headers = []*envoy_route_v3.HeaderMatcher{methodRegexMatcher(r.HTTPMethods)}
	}

	action := &envoy_route_v3.RouteAction{
		ClusterSpecifier: &envoy_route_v3.RouteAction_Cluster{Cluster: r.ClusterName},
	}
	if r.PrefixRewrite != "" {
		action.PrefixRewrite = r.PrefixRewrite
	}

	return &envoy_route_v3.Route{
		Name:  r.Name,
		Match: match,
		Action: &envoy_route_v3.Route_Route{
			Route: action,
		},
	}, nil
}

func methodExactMatcher(method string) *envoy_route_v3.HeaderMatcher {
	return &envoy_route_v3.HeaderMatcher{
		Name: ":method",
		HeaderMatchSpecifier: &envoy_route_v3.HeaderMatcher_StringMatch{
			StringMatch: &envoy_type_matcher_v3.StringMatcher{
				MatchPattern: &envoy_type_matcher_v3.StringMatcher_Exact{Exact: strings.ToUpper(method)},
			},
		},
	}
}

func methodRegexMatcher(methods []string) *envoy_route_v3.HeaderMatcher {
	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}
	pattern := fmt.Sprintf("^(%s)$", strings.Join(upper, "|"))
	return &envoy_route_v3.HeaderMatcher{
		Name: ":method",
		HeaderMatchSpecifier: &envoy_route_v3.HeaderMatcher_StringMatch{
			StringMatch: &envoy_type_matcher_v3.StringMatcher{
				MatchPattern: &envoy_type_matcher_v3.StringMatcher_SafeRegex{
					SafeRegex: &envoy_type_matcher_v3.RegexMatcher{Regex: pattern},
				},
			},
		},
	}
}

func revalidateRoute(r *store.Route) error {
	if err := validate.Name("name", r.Name); err != nil {
		return err
	}
	if err := validate.Path("path", r.Path); err != nil {
		return err
	}
	if err := validate.Name("cluster_name", r.ClusterName); err != nil {
		return err
	}
	return nil
}
