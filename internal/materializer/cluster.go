package materializer

import (
	"log/slog"

	"github.com/pkg/errors"
	envoy_cluster_v3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	envoy_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_endpoint_v3 "github.com/envoyproxy/go-control-plane/envoy/config/endpoint/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

var discoveryTypes = map[string]envoy_cluster_v3.Cluster_DiscoveryType{
	"STATIC":      envoy_cluster_v3.Cluster_STATIC,
	"STRICT_DNS":  envoy_cluster_v3.Cluster_STRICT_DNS,
	"LOGICAL_DNS": envoy_cluster_v3.Cluster_LOGICAL_DNS,
}

var dnsLookupFamilies = map[string]envoy_cluster_v3.Cluster_DnsLookupFamily{
	"V4_ONLY": envoy_cluster_v3.Cluster_V4_ONLY,
	"V6_ONLY": envoy_cluster_v3.Cluster_V6_ONLY,
	"AUTO":    envoy_cluster_v3.Cluster_AUTO,
	"ALL":     envoy_cluster_v3.Cluster_ALL,
}

var lbPolicies = map[store.LBPolicyKind]envoy_cluster_v3.Cluster_LbPolicy{
	store.LBPolicyUnspecified:  envoy_cluster_v3.Cluster_ROUND_ROBIN,
	store.LBPolicyRoundRobin:   envoy_cluster_v3.Cluster_ROUND_ROBIN,
	store.LBPolicyLeastRequest: envoy_cluster_v3.Cluster_LEAST_REQUEST,
	store.LBPolicyRandom:       envoy_cluster_v3.Cluster_RANDOM,
	store.LBPolicyRingHash:     envoy_cluster_v3.Cluster_RING_HASH,
}

// MaterializeCluster re-validates c and builds its Envoy Cluster message.
func MaterializeCluster(c *store.Cluster, cfg *config.Resources, log *slog.Logger) (*envoy_cluster_v3.Cluster, error) {
	if err := revalidateCluster(c); err != nil {
		return nil, errors.Wrapf(err, "materializing cluster %q", c.Name)
	}

	lbEndpoints := make([]*envoy_endpoint_v3.LbEndpoint, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		lbEndpoints = append(lbEndpoints, &envoy_endpoint_v3.LbEndpoint{
			HostIdentifier: &envoy_endpoint_v3.LbEndpoint_Endpoint{
				Endpoint: &envoy_endpoint_v3.Endpoint{
					Address: socketAddress(ep.Host, uint32(ep.Port)),
				},
			},
		})
	}

	lbPolicy := envoy_cluster_v3.Cluster_ROUND_ROBIN
	if c.LBPolicy != nil {
		if mapped, ok := lbPolicies[c.LBPolicy.Kind]; ok {
			lbPolicy = mapped
		} else {
			log.Warn("custom LB policy not recognized, falling back to ROUND_ROBIN", "cluster", c.Name, "policy", c.LBPolicy.Custom)
		}
	}

	discoveryType, ok := discoveryTypes[cfg.ClusterDiscoveryType]
	if !ok {
		discoveryType = envoy_cluster_v3.Cluster_STRICT_DNS
	}
	dnsFamily, ok := dnsLookupFamilies[cfg.DNSLookupFamily]
	if !ok {
		dnsFamily = envoy_cluster_v3.Cluster_V4_ONLY
	}

	return &envoy_cluster_v3.Cluster{
		Name:                 c.Name,
		ClusterDiscoveryType: &envoy_cluster_v3.Cluster_Type{Type: discoveryType},
		DnsLookupFamily:      dnsFamily,
		ConnectTimeout:       durationpb.New(cfg.ClusterConnectTimeout),
		LbPolicy:             lbPolicy,
		LoadAssignment: &envoy_endpoint_v3.ClusterLoadAssignment{
			ClusterName: c.Name,
			Endpoints: []*envoy_endpoint_v3.LocalityLbEndpoints{
				{LbEndpoints: lbEndpoints},
			},
		},
	}, nil
}

func revalidateCluster(c *store.Cluster) error {
	if err := validate.Name("name", c.Name); err != nil {
		return err
	}
	if len(c.Endpoints) == 0 {
		return errors.New("endpoints must be non-empty")
	}
	for _, ep := range c.Endpoints {
		if err := validate.Host("host", ep.Host); err != nil {
			return err
		}
		if err := validate.Port("port", ep.Port); err != nil {
			return err
		}
	}
	return nil
}

func socketAddress(host string, port uint32) *envoy_core_v3.Address {
	return &envoy_core_v3.Address{
		Address: &envoy_core_v3.Address_SocketAddress{
			SocketAddress: &envoy_core_v3.SocketAddress{
				Protocol: envoy_core_v3.SocketAddress_TCP,
				Address:  host,
				PortSpecifier: &envoy_core_v3.SocketAddress_PortValue{
					PortValue: port,
				},
			},
		},
	}
}

// clusterAny marshals a materialized Cluster into a typed Any.
func clusterAny(c *envoy_cluster_v3.Cluster) (*anypb.Any, error) {
	return anypb.New(c)
}
