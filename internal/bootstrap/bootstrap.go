// Package bootstrap loads a JSON seed file into the store at startup, so a
// freshly started control plane is never pushed an empty
// RouteConfiguration/Listener pair before an operator has a chance to
// populate it through the admin API. Generalizes the teacher's
// xdsServer.Seed() (which hardcoded a couple of example Services) to the
// richer cluster/route/filter/route-filter schema, read from a file instead
// of compiled in.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/envoyage/envoyage/internal/store"
)

// File is the on-disk shape of a seed file. Every section is optional;
// clusters are admitted before routes, and routes before route-filter
// associations, so referential dependencies resolve in one pass.
type File struct {
	Clusters     []store.Cluster      `json:"clusters"`
	Routes       []store.Route        `json:"routes"`
	HTTPFilters  []store.HTTPFilter   `json:"http_filters"`
	RouteFilters []store.RouteFilters `json:"route_filters"`
}

// LoadFile reads path and admits its contents into st. An empty path is a
// no-op: callers pass cfg.SeedPath directly.
func LoadFile(path string, st *store.Store, log *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file %q: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing seed file %q: %w", path, err)
	}

	for i := range f.Clusters {
		c := f.Clusters[i]
		if _, err := st.AddCluster(&c); err != nil {
			return fmt.Errorf("seeding cluster %q: %w", c.Name, err)
		}
	}
	for i := range f.Routes {
		r := f.Routes[i]
		if _, err := st.AddRoute(&r); err != nil {
			return fmt.Errorf("seeding route %q: %w", r.Name, err)
		}
	}
	for i := range f.HTTPFilters {
		hf := f.HTTPFilters[i]
		if _, err := st.AddHTTPFilter(&hf); err != nil {
			return fmt.Errorf("seeding http filter %q: %w", hf.Name, err)
		}
	}
	for i := range f.RouteFilters {
		rf := f.RouteFilters[i]
		if err := st.AddRouteFilters(&rf); err != nil {
			return fmt.Errorf("seeding route filters for %q: %w", rf.RouteName, err)
		}
	}

	log.Info("seed file loaded", "path", path,
		"clusters", len(f.Clusters), "routes", len(f.Routes),
		"http_filters", len(f.HTTPFilters), "route_filters", len(f.RouteFilters))
	return nil
}
