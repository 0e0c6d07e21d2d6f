package filters

import (
	envoy_hcm_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	envoy_router_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/router/v3"
	"github.com/envoyproxy/go-control-plane/pkg/wellknown"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/store"
)

// envoyFilterName maps a FilterType to the Envoy extension name carried on
// the wire HttpFilter.Name field (distinct from the internal filter
// record's own Name, which strategies use for names inside the typed
// config, such as the rate-limit stat prefix or the JWT provider name).
var envoyFilterName = map[store.FilterType]string{
	store.FilterTypeRateLimit:          "envoy.filters.http.local_ratelimit",
	store.FilterTypeCORS:               "envoy.filters.http.cors",
	store.FilterTypeAuthentication:     "envoy.filters.http.jwt_authn",
	store.FilterTypeHeaderManipulation: "envoy.filters.http.lua",
	store.FilterTypeRequestValidation:  "envoy.filters.http.rbac",
}

// BuildChain assembles the listener's HTTP filter chain: for each tag in
// order, the validated and converted blobs of every enabled filter of that
// type (in the order they appear in allFilters; the store lists them sorted
// by name), followed by the mandatory terminal Router filter.
func (r *Registry) BuildChain(allFilters []*store.HTTPFilter, order []string) ([]*envoy_hcm_v3.HttpFilter, error) {
	byType := make(map[store.FilterType][]*store.HTTPFilter)
	for _, f := range allFilters {
		if !f.Enabled {
			continue
		}
		byType[f.FilterType] = append(byType[f.FilterType], f)
	}

	var chain []*envoy_hcm_v3.HttpFilter
	for _, tag := range order {
		ft := store.FilterType(tag)
		for _, f := range byType[ft] {
			if err := r.Validate(f); err != nil {
				return nil, errors.Wrapf(err, "validating filter %q", f.Name)
			}
			any, err := r.Convert(f)
			if err != nil {
				return nil, errors.Wrapf(err, "converting filter %q", f.Name)
			}
			name, ok := envoyFilterName[ft]
			if !ok {
				return nil, errors.Errorf("no Envoy filter name registered for type %q", ft)
			}
			chain = append(chain, &envoy_hcm_v3.HttpFilter{
				Name: name,
				ConfigType: &envoy_hcm_v3.HttpFilter_TypedConfig{
					TypedConfig: any,
				},
			})
		}
	}

	routerAny, err := anypb.New(&envoy_router_v3.Router{})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling terminal router filter")
	}
	chain = append(chain, &envoy_hcm_v3.HttpFilter{
		Name: wellknown.Router,
		ConfigType: &envoy_hcm_v3.HttpFilter_TypedConfig{
			TypedConfig: routerAny,
		},
	})

	return chain, nil
}
