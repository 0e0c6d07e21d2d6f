package filters

import (
	"strings"

	"github.com/pkg/errors"
	envoy_cors_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/cors/v3"
	envoy_type_matcher_v3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

// CORSStrategy converts a "cors" HTTPFilter into the Envoy CORS HTTP
// filter's enabling marker, plus (via BuildPerRouteConfig) the per-route
// CorsPolicy the materializer attaches as typed_per_filter_config — Envoy's
// `envoy.filters.http.cors` filter message itself carries no fields; the
// actual allow-list lives on the route's CorsPolicy it gates.
type CORSStrategy struct {
	allowedMethods []string
}

// NewCORSStrategy constructs a CORSStrategy validating allowed_methods
// against allowedMethods.
func NewCORSStrategy(allowedMethods []string) *CORSStrategy {
	return &CORSStrategy{allowedMethods: allowedMethods}
}

func (s *CORSStrategy) Validate(f *store.HTTPFilter) error {
	for k := range f.Config {
		switch k {
		case "allowed_origins", "allowed_methods", "allowed_headers", "allow_credentials":
		default:
			return errors.Errorf("cors: unknown config field %q", k)
		}
	}

	if origins, ok := configStringSlice(f.Config, "allowed_origins"); ok {
		for _, o := range origins {
			if len(o) == 0 || len(o) > 253 {
				return errors.New("cors: allowed_origins entries must be 1..253 characters")
			}
			if err := validate.LuaSafe("allowed_origins", o); err != nil {
				return errors.Wrap(err, "cors")
			}
		}
	}

	if methods, ok := configStringSlice(f.Config, "allowed_methods"); ok {
		for _, m := range methods {
			if err := validate.HTTPMethod("allowed_methods", m, s.allowedMethods); err != nil {
				return errors.Wrap(err, "cors")
			}
		}
	}

	if headers, ok := configStringSlice(f.Config, "allowed_headers"); ok {
		for _, h := range headers {
			if err := validate.HeaderName("allowed_headers", h); err != nil {
				return errors.Wrap(err, "cors")
			}
		}
	}

	if _, ok := f.Config["allow_credentials"]; ok {
		if _, ok := configBool(f.Config, "allow_credentials"); !ok {
			return errors.New("cors: allow_credentials must be a bool")
		}
	}
	return nil
}

func (s *CORSStrategy) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	return anypb.New(&envoy_cors_v3.Cors{})
}

// CORSFilterName is the typed_per_filter_config key Envoy's CORS HTTP
// filter reads its per-route/per-virtual-host policy from.
const CORSFilterName = "envoy.filters.http.cors"

// PerRouteFilterName reports the typed_per_filter_config key BuildPerRouteConfig's
// output belongs under.
func (s *CORSStrategy) PerRouteFilterName() string { return CORSFilterName }

// BuildPerRouteConfig constructs the CorsPolicy the materializer attaches
// to a route as typed_per_filter_config for CORSFilterName, carrying the
// values the strategy validated — resolving the spec's CORS open question
// by surfacing allowed_origins/allowed_methods/allowed_headers/
// allow_credentials instead of emitting only the empty-default Cors marker.
func (s *CORSStrategy) BuildPerRouteConfig(f *store.HTTPFilter) (*anypb.Any, error) {
	policy := &envoy_cors_v3.CorsPolicy{}

	if origins, ok := configStringSlice(f.Config, "allowed_origins"); ok {
		for _, o := range origins {
			policy.AllowOriginStringMatch = append(policy.AllowOriginStringMatch, &envoy_type_matcher_v3.StringMatcher{
				MatchPattern: &envoy_type_matcher_v3.StringMatcher_Exact{Exact: o},
				IgnoreCase:   true,
			})
		}
	}
	if methods, ok := configStringSlice(f.Config, "allowed_methods"); ok {
		policy.AllowMethods = strings.Join(methods, ",")
	}
	if headers, ok := configStringSlice(f.Config, "allowed_headers"); ok {
		policy.AllowHeaders = strings.Join(headers, ",")
	}
	if cred, ok := configBool(f.Config, "allow_credentials"); ok {
		policy.AllowCredentials = wrapperspb.Bool(cred)
	}
	return anypb.New(policy)
}
