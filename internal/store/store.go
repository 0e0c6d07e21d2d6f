// Package store implements the in-memory, concurrent-safe configuration
// repository: clusters, routes, HTTP filters, and route-filter
// associations, with validation and capacity enforcement on every mutation.
//
// Each collection is guarded by its own sync.RWMutex so that, for example,
// validating a route's cluster_name dependency only needs a brief read lock
// on the cluster collection and never takes its write lock, and a route
// write never blocks cluster reads.
package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/validate"
)

// Store is the concurrent-safe repository of routing intent. The zero
// value is not usable; construct with New.
type Store struct {
	cfg *config.Config
	log *slog.Logger

	clustersMu sync.RWMutex
	clusters   map[string]*Cluster

	routesMu sync.RWMutex
	routes   map[string]*Route

	filtersMu sync.RWMutex
	filters   map[string]*HTTPFilter

	routeFiltersMu sync.RWMutex
	routeFilters   map[string]*RouteFilters
}

// New constructs an empty Store governed by cfg's limits and allow-lists.
func New(cfg *config.Config, log *slog.Logger) *Store {
	return &Store{
		cfg:          cfg,
		log:          log,
		clusters:     make(map[string]*Cluster),
		routes:       make(map[string]*Route),
		filters:      make(map[string]*HTTPFilter),
		routeFilters: make(map[string]*RouteFilters),
	}
}

// --- Clusters ---

func (s *Store) validateCluster(c *Cluster) error {
	if err := validate.Name("name", c.Name); err != nil {
		return wrapErr(KindValidationFailed, string(KindCluster), c.Name, err.Error(), err)
	}
	if len(c.Endpoints) == 0 {
		return newErr(KindValidationFailed, string(KindCluster), c.Name, "endpoints must be non-empty")
	}
	if len(c.Endpoints) > s.cfg.Limits.MaxEndpointsPerCluster {
		return newErr(KindCapacityExceeded, string(KindCluster), c.Name,
			"endpoint count exceeds per-cluster limit")
	}
	for _, ep := range c.Endpoints {
		if err := validate.Host("host", ep.Host); err != nil {
			return wrapErr(KindValidationFailed, string(KindCluster), c.Name, err.Error(), err)
		}
		if err := validate.Port("port", ep.Port); err != nil {
			return wrapErr(KindValidationFailed, string(KindCluster), c.Name, err.Error(), err)
		}
	}
	return nil
}

// AddCluster validates and inserts a new cluster.
func (s *Store) AddCluster(c *Cluster) (string, error) {
	if err := s.validateCluster(c); err != nil {
		return "", err
	}
	s.clustersMu.Lock()
	defer s.clustersMu.Unlock()

	if len(s.clusters) >= s.cfg.Limits.MaxClusters {
		if s.cfg.CapacityStrict {
			return "", newErr(KindCapacityExceeded, string(KindCluster), c.Name, "cluster collection is at capacity")
		}
		s.log.Warn("cluster capacity exceeded, admitting anyway", "name", c.Name, "limit", s.cfg.Limits.MaxClusters)
	}
	if _, exists := s.clusters[c.Name]; exists {
		return "", newErr(KindConflict, string(KindCluster), c.Name, "already exists")
	}
	s.clusters[c.Name] = c.Clone()
	return c.Name, nil
}

// GetCluster returns a shared-immutable snapshot of the named cluster.
func (s *Store) GetCluster(name string) (*Cluster, error) {
	s.clustersMu.RLock()
	defer s.clustersMu.RUnlock()
	c, ok := s.clusters[name]
	if !ok {
		return nil, newErr(KindNotFound, string(KindCluster), name, "not found")
	}
	return c.Clone(), nil
}

// ListClusters returns a consistent enumeration of all clusters, ordered
// by name.
func (s *Store) ListClusters() []*Cluster {
	s.clustersMu.RLock()
	defer s.clustersMu.RUnlock()
	out := make([]*Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateCluster replaces an existing cluster wholesale (PUT semantics).
func (s *Store) UpdateCluster(name string, c *Cluster) (*Cluster, error) {
	if err := s.validateCluster(c); err != nil {
		return nil, err
	}
	s.clustersMu.Lock()
	defer s.clustersMu.Unlock()

	if _, exists := s.clusters[name]; !exists {
		return nil, newErr(KindNotFound, string(KindCluster), name, "not found")
	}
	c.Name = name
	s.clusters[name] = c.Clone()
	return c.Clone(), nil
}

// RemoveCluster deletes a cluster by name. Routes that reference it are
// left in place; the materializer surfaces the dangling reference as a
// validation error on the next materialization (see the materializer's
// route configuration build).
func (s *Store) RemoveCluster(name string) error {
	s.clustersMu.Lock()
	defer s.clustersMu.Unlock()
	if _, exists := s.clusters[name]; !exists {
		return newErr(KindNotFound, string(KindCluster), name, "not found")
	}
	delete(s.clusters, name)
	return nil
}

func (s *Store) clusterExists(name string) bool {
	s.clustersMu.RLock()
	defer s.clustersMu.RUnlock()
	_, ok := s.clusters[name]
	return ok
}

// ClusterExists reports whether name names a currently admitted cluster.
// Exported for the materializer's dangling-reference check at emission
// time: deleting a cluster does not cascade-delete routes
// that reference it, so materialization re-checks the dependency.
func (s *Store) ClusterExists(name string) bool {
	return s.clusterExists(name)
}

// --- Routes ---

func (s *Store) validateRoute(r *Route) error {
	if err := validate.Name("name", r.Name); err != nil {
		return wrapErr(KindValidationFailed, string(KindRoute), r.Name, err.Error(), err)
	}
	if err := validate.Path("path", r.Path); err != nil {
		return wrapErr(KindValidationFailed, string(KindRoute), r.Name, err.Error(), err)
	}
	if err := validate.Name("cluster_name", r.ClusterName); err != nil {
		return wrapErr(KindValidationFailed, string(KindRoute), r.Name, err.Error(), err)
	}
	for _, m := range r.HTTPMethods {
		if err := validate.HTTPMethod("http_methods", m, s.cfg.AllowedHTTPMethods); err != nil {
			return wrapErr(KindValidationFailed, string(KindRoute), r.Name, err.Error(), err)
		}
	}
	// Referential dependency: the cluster must exist at admission time.
	// Read the cluster map without holding its write lock (§4.2).
	if !s.clusterExists(r.ClusterName) {
		return newErr(KindDependencyMissing, string(KindRoute), r.Name,
			errors.Errorf("cluster %q does not exist", r.ClusterName).Error())
	}
	return nil
}

// AddRoute validates and inserts a new route.
func (s *Store) AddRoute(r *Route) (string, error) {
	if err := s.validateRoute(r); err != nil {
		return "", err
	}
	s.routesMu.Lock()
	defer s.routesMu.Unlock()

	if len(s.routes) >= s.cfg.Limits.MaxRoutes {
		if s.cfg.CapacityStrict {
			return "", newErr(KindCapacityExceeded, string(KindRoute), r.Name, "route collection is at capacity")
		}
		s.log.Warn("route capacity exceeded, admitting anyway", "name", r.Name, "limit", s.cfg.Limits.MaxRoutes)
	}
	if _, exists := s.routes[r.Name]; exists {
		return "", newErr(KindConflict, string(KindRoute), r.Name, "already exists")
	}
	s.routes[r.Name] = r.Clone()
	return r.Name, nil
}

// GetRoute returns a shared-immutable snapshot of the named route.
func (s *Store) GetRoute(name string) (*Route, error) {
	s.routesMu.RLock()
	defer s.routesMu.RUnlock()
	r, ok := s.routes[name]
	if !ok {
		return nil, newErr(KindNotFound, string(KindRoute), name, "not found")
	}
	return r.Clone(), nil
}

// ListRoutes returns a consistent enumeration of all routes, ordered by
// name.
func (s *Store) ListRoutes() []*Route {
	s.routesMu.RLock()
	defer s.routesMu.RUnlock()
	out := make([]*Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateRoute replaces an existing route wholesale. Validation (including
// the existence check) always runs before the existence-of-the-old-record
// check is acted on, so a concurrent delete-then-update yields NotFound and
// an update-then-delete yields a deleted record — never a revived one.
func (s *Store) UpdateRoute(name string, r *Route) (*Route, error) {
	if err := s.validateRoute(r); err != nil {
		return nil, err
	}
	s.routesMu.Lock()
	defer s.routesMu.Unlock()

	if _, exists := s.routes[name]; !exists {
		return nil, newErr(KindNotFound, string(KindRoute), name, "not found")
	}
	r.Name = name
	s.routes[name] = r.Clone()
	return r.Clone(), nil
}

// RemoveRoute deletes a route by name.
func (s *Store) RemoveRoute(name string) error {
	s.routesMu.Lock()
	defer s.routesMu.Unlock()
	if _, exists := s.routes[name]; !exists {
		return newErr(KindNotFound, string(KindRoute), name, "not found")
	}
	delete(s.routes, name)
	return nil
}

// --- HTTP Filters ---

func (s *Store) validateFilterShape(f *HTTPFilter) error {
	if err := validate.Name("name", f.Name); err != nil {
		return wrapErr(KindValidationFailed, string(KindHTTPFilter), f.Name, err.Error(), err)
	}
	allowed := false
	for _, t := range s.cfg.AllowedFilterTypes {
		if string(f.FilterType) == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return newErr(KindValidationFailed, string(KindHTTPFilter), f.Name,
			errors.Errorf("filter_type %q is not in the allowed list", f.FilterType).Error())
	}
	return nil
}

// AddHTTPFilter inserts a new HTTP filter after shape validation. Deep
// schema validation of Config is the strategy's responsibility and happens
// at materialization time (or may be invoked eagerly by a caller via
// filters.Registry.Validate before calling AddHTTPFilter).
func (s *Store) AddHTTPFilter(f *HTTPFilter) (string, error) {
	if err := s.validateFilterShape(f); err != nil {
		return "", err
	}
	s.filtersMu.Lock()
	defer s.filtersMu.Unlock()

	if len(s.filters) >= s.cfg.Limits.MaxHTTPFilters {
		if s.cfg.CapacityStrict {
			return "", newErr(KindCapacityExceeded, string(KindHTTPFilter), f.Name, "http filter collection is at capacity")
		}
		s.log.Warn("http filter capacity exceeded, admitting anyway", "name", f.Name, "limit", s.cfg.Limits.MaxHTTPFilters)
	}
	if _, exists := s.filters[f.Name]; exists {
		return "", newErr(KindConflict, string(KindHTTPFilter), f.Name, "already exists")
	}
	s.filters[f.Name] = f.Clone()
	return f.Name, nil
}

// GetHTTPFilter returns a shared-immutable snapshot of the named filter.
func (s *Store) GetHTTPFilter(name string) (*HTTPFilter, error) {
	s.filtersMu.RLock()
	defer s.filtersMu.RUnlock()
	f, ok := s.filters[name]
	if !ok {
		return nil, newErr(KindNotFound, string(KindHTTPFilter), name, "not found")
	}
	return f.Clone(), nil
}

// ListHTTPFilters returns a consistent enumeration of all filters, ordered
// by name.
func (s *Store) ListHTTPFilters() []*HTTPFilter {
	s.filtersMu.RLock()
	defer s.filtersMu.RUnlock()
	out := make([]*HTTPFilter, 0, len(s.filters))
	for _, f := range s.filters {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateHTTPFilter replaces an existing filter wholesale.
func (s *Store) UpdateHTTPFilter(name string, f *HTTPFilter) (*HTTPFilter, error) {
	if err := s.validateFilterShape(f); err != nil {
		return nil, err
	}
	s.filtersMu.Lock()
	defer s.filtersMu.Unlock()

	if _, exists := s.filters[name]; !exists {
		return nil, newErr(KindNotFound, string(KindHTTPFilter), name, "not found")
	}
	f.Name = name
	s.filters[name] = f.Clone()
	return f.Clone(), nil
}

// RemoveHTTPFilter deletes a filter by name.
func (s *Store) RemoveHTTPFilter(name string) error {
	s.filtersMu.Lock()
	defer s.filtersMu.Unlock()
	if _, exists := s.filters[name]; !exists {
		return newErr(KindNotFound, string(KindHTTPFilter), name, "not found")
	}
	delete(s.filters, name)
	return nil
}

func (s *Store) httpFilterExists(name string) bool {
	s.filtersMu.RLock()
	defer s.filtersMu.RUnlock()
	_, ok := s.filters[name]
	return ok
}

// --- Route-Filter associations ---

// AddRouteFilters associates a route with an ordered subset of filter
// names. Every filter name must already exist.
func (s *Store) AddRouteFilters(rf *RouteFilters) error {
	if err := validate.Name("route_name", rf.RouteName); err != nil {
		return newErr(KindValidationFailed, string(KindRouteFilters), rf.RouteName, err.Error())
	}
	for _, name := range rf.FilterNames {
		if !s.httpFilterExists(name) {
			return newErr(KindDependencyMissing, string(KindRouteFilters), rf.RouteName,
				errors.Errorf("filter %q does not exist", name).Error())
		}
	}
	s.routeFiltersMu.Lock()
	defer s.routeFiltersMu.Unlock()
	s.routeFilters[rf.RouteName] = rf.Clone()
	return nil
}

// GetRouteFilters returns the filter association for a route, if any.
func (s *Store) GetRouteFilters(routeName string) (*RouteFilters, error) {
	s.routeFiltersMu.RLock()
	defer s.routeFiltersMu.RUnlock()
	rf, ok := s.routeFilters[routeName]
	if !ok {
		return nil, newErr(KindNotFound, string(KindRouteFilters), routeName, "not found")
	}
	return rf.Clone(), nil
}

// RemoveRouteFilters deletes a route's filter association.
func (s *Store) RemoveRouteFilters(routeName string) error {
	s.routeFiltersMu.Lock()
	defer s.routeFiltersMu.Unlock()
	if _, exists := s.routeFilters[routeName]; !exists {
		return newErr(KindNotFound, string(KindRouteFilters), routeName, "not found")
	}
	delete(s.routeFilters, routeName)
	return nil
}

// --- Observability ---

// CapacityInfo reports current population, limit, and utilization for the
// given collection kind.
func (s *Store) CapacityInfo(kind Kind) CapacityInfo {
	var current, limit int
	switch kind {
	case KindCluster:
		s.clustersMu.RLock()
		current = len(s.clusters)
		s.clustersMu.RUnlock()
		limit = s.cfg.Limits.MaxClusters
	case KindRoute:
		s.routesMu.RLock()
		current = len(s.routes)
		s.routesMu.RUnlock()
		limit = s.cfg.Limits.MaxRoutes
	case KindHTTPFilter:
		s.filtersMu.RLock()
		current = len(s.filters)
		s.filtersMu.RUnlock()
		limit = s.cfg.Limits.MaxHTTPFilters
	}
	info := CapacityInfo{Current: current, Limit: limit}
	if limit > 0 {
		info.Utilization = float64(current) / float64(limit)
	}
	return info
}
