// Package materializer translates the in-memory configuration store into
// Envoy's wire-format resources: Cluster, RouteConfiguration, and Listener
// protobuf messages, each wrapped as a typed google.protobuf.Any.
package materializer

import (
	"log/slog"

	envoy_route_v3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	"github.com/envoyproxy/go-control-plane/pkg/resource/v3"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
)

// perRouteConfigurer is implemented by HTTP-filter strategies whose effect
// is carried as typed_per_filter_config on the route rather than (or in
// addition to) the listener-level filter entry. Only CORSStrategy
// implements it today.
type perRouteConfigurer interface {
	BuildPerRouteConfig(f *store.HTTPFilter) (*anypb.Any, error)
	PerRouteFilterName() string
}

// Materializer builds typed-config Any resources on demand from the store.
type Materializer struct {
	st       *store.Store
	cfg      *config.Config
	registry *filters.Registry
	log      *slog.Logger
}

// New constructs a Materializer over st, driven by cfg and registry.
func New(st *store.Store, cfg *config.Config, registry *filters.Registry, log *slog.Logger) *Materializer {
	return &Materializer{st: st, cfg: cfg, registry: registry, log: log}
}

// GetResourcesByType dispatches on the canonical xDS type URL. Unknown type
// URLs return an empty, non-error result (reserved for future EDS etc.).
func (m *Materializer) GetResourcesByType(typeURL string) ([]*anypb.Any, error) {
	switch typeURL {
	case resource.ClusterType:
		return m.materializeClusters()
	case resource.RouteType:
		return m.materializeRouteConfiguration()
	case resource.ListenerType:
		return m.materializeListener()
	default:
		return nil, nil
	}
}

func (m *Materializer) materializeClusters() ([]*anypb.Any, error) {
	clusters := m.st.ListClusters()
	out := make([]*anypb.Any, 0, len(clusters))
	for _, c := range clusters {
		built, err := MaterializeCluster(c, &m.cfg.Resources, m.log)
		if err != nil {
			return nil, err
		}
		any, err := clusterAny(built)
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling cluster %q", c.Name)
		}
		out = append(out, any)
	}
	return out, nil
}

func (m *Materializer) materializeRouteConfiguration() ([]*anypb.Any, error) {
	routes := m.st.ListRoutes()
	envoyRoutes := make([]*envoy_route_v3.Route, 0, len(routes))
	for _, r := range routes {
		// A route's cluster may have been deleted after the route was
		// admitted (deletion does not cascade). Surface that as a
		// materialization failure rather than emitting a dangling
		// reference to Envoy.
		if !m.st.ClusterExists(r.ClusterName) {
			return nil, errors.Errorf("materializing route %q: cluster %q no longer exists", r.Name, r.ClusterName)
		}
		built, err := MaterializeRoute(r)
		if err != nil {
			return nil, err
		}
		if err := m.attachPerRouteConfig(built, r); err != nil {
			return nil, err
		}
		envoyRoutes = append(envoyRoutes, built)
	}

	vhost := &envoy_route_v3.VirtualHost{
		Name:    m.cfg.Resources.VirtualHostName,
		Domains: m.cfg.Resources.VirtualHostDomains,
		Routes:  envoyRoutes,
	}

	routeConfig := &envoy_route_v3.RouteConfiguration{
		Name:         m.cfg.Resources.RouteConfigName,
		VirtualHosts: []*envoy_route_v3.VirtualHost{vhost},
	}

	any, err := anypb.New(routeConfig)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling route configuration")
	}
	return []*anypb.Any{any}, nil
}

// attachPerRouteConfig sets built.TypedPerFilterConfig from any enabled
// filter associated with r whose strategy carries a per-route config (CORS
// today). A route with no filter association, or none of the matching
// kind, is left untouched.
func (m *Materializer) attachPerRouteConfig(built *envoy_route_v3.Route, r *store.Route) error {
	rf, err := m.st.GetRouteFilters(r.Name)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, name := range rf.FilterNames {
		f, err := m.st.GetHTTPFilter(name)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !f.Enabled {
			continue
		}
		strategy, err := m.registry.Lookup(f.FilterType)
		if err != nil {
			continue
		}
		configurer, ok := strategy.(perRouteConfigurer)
		if !ok {
			continue
		}
		any, err := configurer.BuildPerRouteConfig(f)
		if err != nil {
			return errors.Wrapf(err, "building per-route config for filter %q on route %q", name, r.Name)
		}
		if built.TypedPerFilterConfig == nil {
			built.TypedPerFilterConfig = make(map[string]*anypb.Any)
		}
		built.TypedPerFilterConfig[configurer.PerRouteFilterName()] = any
	}
	return nil
}

func (m *Materializer) materializeListener() ([]*anypb.Any, error) {
	allFilters := m.st.ListHTTPFilters()
	chain, err := m.registry.BuildChain(allFilters, m.cfg.DefaultFilterOrder)
	if err != nil {
		return nil, errors.Wrap(err, "assembling http filter chain")
	}

	listener, err := MaterializeListener(&m.cfg.Resources, chain)
	if err != nil {
		return nil, err
	}

	any, err := anypb.New(listener)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling listener")
	}
	return []*anypb.Any{any}, nil
}
