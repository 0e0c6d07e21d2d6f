package filters

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	envoy_rbac_config_v3 "github.com/envoyproxy/go-control-plane/envoy/config/rbac/v3"
	envoy_route_v3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	envoy_rbac_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/rbac/v3"
	envoy_type_matcher_v3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

// RequestValidationStrategy converts a "request_validation" HTTPFilter into
// an Envoy RBAC filter that allows only requests matching the declared
// method, header, and path shape.
type RequestValidationStrategy struct {
	allowedMethods []string
}

// NewRequestValidationStrategy constructs a RequestValidationStrategy
// validating allowed_methods against allowedMethods.
func NewRequestValidationStrategy(allowedMethods []string) *RequestValidationStrategy {
	return &RequestValidationStrategy{allowedMethods: allowedMethods}
}

func (s *RequestValidationStrategy) Validate(f *store.HTTPFilter) error {
	for k := range f.Config {
		switch k {
		case "allowed_methods", "required_headers", "allowed_paths":
		default:
			return errors.Errorf("request_validation: unknown config field %q", k)
		}
	}

	if methods, ok := configStringSlice(f.Config, "allowed_methods"); ok {
		for _, m := range methods {
			if m != strings.ToUpper(m) {
				return errors.Errorf("request_validation: allowed_methods entry %q must be uppercase", m)
			}
			if err := validate.HTTPMethod("allowed_methods", m, s.allowedMethods); err != nil {
				return errors.Wrap(err, "request_validation")
			}
		}
	}

	if headers, ok := configStringSlice(f.Config, "required_headers"); ok {
		for _, h := range headers {
			if err := validate.HeaderName("required_headers", h); err != nil {
				return errors.Wrap(err, "request_validation")
			}
		}
	}

	if paths, ok := configStringSlice(f.Config, "allowed_paths"); ok {
		for _, p := range paths {
			if err := validate.Path("allowed_paths", p); err != nil {
				return errors.Wrap(err, "request_validation")
			}
			if err := validate.LuaSafe("allowed_paths", p); err != nil {
				return errors.Wrap(err, "request_validation")
			}
		}
	}
	return nil
}

func (s *RequestValidationStrategy) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	methods, _ := configStringSlice(f.Config, "allowed_methods")
	headers, _ := configStringSlice(f.Config, "required_headers")
	paths, _ := configStringSlice(f.Config, "allowed_paths")

	var permissions []*envoy_rbac_config_v3.Permission

	if len(methods) > 0 {
		permissions = append(permissions, &envoy_rbac_config_v3.Permission{
			Rule: &envoy_rbac_config_v3.Permission_Header{
				Header: &envoy_route_v3.HeaderMatcher{
					Name: ":method",
					HeaderMatchSpecifier: &envoy_route_v3.HeaderMatcher_StringMatch{
						StringMatch: safeRegexStringMatch(anchoredAlternation(methods)),
					},
				},
			},
		})
	}

	for _, h := range headers {
		permissions = append(permissions, &envoy_rbac_config_v3.Permission{
			Rule: &envoy_rbac_config_v3.Permission_Header{
				Header: &envoy_route_v3.HeaderMatcher{
					Name: h,
					HeaderMatchSpecifier: &envoy_route_v3.HeaderMatcher_PresentMatch{
						PresentMatch: true,
					},
				},
			},
		})
	}

	if len(paths) > 0 {
		permissions = append(permissions, &envoy_rbac_config_v3.Permission{
			Rule: &envoy_rbac_config_v3.Permission_Header{
				Header: &envoy_route_v3.HeaderMatcher{
					Name: ":path",
					HeaderMatchSpecifier: &envoy_route_v3.HeaderMatcher_StringMatch{
						StringMatch: safeRegexStringMatch(anchoredAlternation(paths)),
					},
				},
			},
		})
	}

	if len(permissions) == 0 {
		permissions = []*envoy_rbac_config_v3.Permission{
			{Rule: &envoy_rbac_config_v3.Permission_Any{Any: true}},
		}
	}

	policy := &envoy_rbac_config_v3.Policy{
		Permissions: []*envoy_rbac_config_v3.Permission{allOf(permissions)},
		Principals: []*envoy_rbac_config_v3.Principal{
			{Identifier: &envoy_rbac_config_v3.Principal_Any{Any: true}},
		},
	}

	cfg := &envoy_rbac_v3.RBAC{
		Rules: &envoy_rbac_config_v3.RBAC{
			Action: envoy_rbac_config_v3.RBAC_ALLOW,
			Policies: map[string]*envoy_rbac_config_v3.Policy{
				"allow_valid_requests": policy,
			},
		},
	}
	return anypb.New(cfg)
}

func allOf(permissions []*envoy_rbac_config_v3.Permission) *envoy_rbac_config_v3.Permission {
	if len(permissions) == 1 {
		return permissions[0]
	}
	return &envoy_rbac_config_v3.Permission{
		Rule: &envoy_rbac_config_v3.Permission_AndRules{
			AndRules: &envoy_rbac_config_v3.Permission_Set{Rules: permissions},
		},
	}
}

func anchoredAlternation(values []string) string {
	return fmt.Sprintf("^(%s)$", strings.Join(values, "|"))
}

func safeRegexStringMatch(pattern string) *envoy_type_matcher_v3.StringMatcher {
	return &envoy_type_matcher_v3.StringMatcher{
		MatchPattern: &envoy_type_matcher_v3.StringMatcher_SafeRegex{
			SafeRegex: safeRegexMatcher(pattern),
		},
	}
}
