package materializer

import (
	"github.com/pkg/errors"
	envoy_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_listener_v3 "github.com/envoyproxy/go-control-plane/envoy/config/listener/v3"
	envoy_hcm_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	"github.com/envoyproxy/go-control-plane/pkg/wellknown"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/config"
)

// MaterializeListener builds the singleton Listener, binding RDS-over-ADS
// to the configured route-config name and embedding httpFilters as the
// HCM's filter chain (already including the terminal Router filter).
func MaterializeListener(cfg *config.Resources, httpFilters []*envoy_hcm_v3.HttpFilter) (*envoy_listener_v3.Listener, error) {
	hcm := &envoy_hcm_v3.HttpConnectionManager{
		StatPrefix: cfg.ListenerName,
		RouteSpecifier: &envoy_hcm_v3.HttpConnectionManager_Rds{
			Rds: &envoy_hcm_v3.Rds{
				ConfigSource: &envoy_core_v3.ConfigSource{
					ConfigSourceSpecifier: &envoy_core_v3.ConfigSource_Ads{
						Ads: &envoy_core_v3.AggregatedConfigSource{},
					},
					ResourceApiVersion: envoy_core_v3.ApiVersion_V3,
				},
				RouteConfigName: cfg.RouteConfigName,
			},
		},
		HttpFilters: httpFilters,
	}

	hcmAny, err := anypb.New(hcm)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling http connection manager")
	}

	return &envoy_listener_v3.Listener{
		Name:    cfg.ListenerName,
		Address: socketAddress(cfg.ListenerAddress, cfg.ListenerPort),
		FilterChains: []*envoy_listener_v3.FilterChain{
			{
				Filters: []*envoy_listener_v3.Filter{
					{
						Name: wellknown.HTTPConnectionManager,
						ConfigType: &envoy_listener_v3.Filter_TypedConfig{
							TypedConfig: hcmAny,
						},
					},
				},
			},
		},
	}, nil
}
