// Package docker implements an optional startup-time seed loader: inspect
// currently running containers carrying envoyage labels and admit one
// cluster plus one route per container into the store, so a control plane
// started alongside an existing compose project isn't pushed an empty
// RouteConfiguration/Listener while an admin populates it by hand.
//
// This replaces the teacher's live Docker-event watcher (which kept an
// in-memory service registry continuously in sync with container
// start/stop events). That model doesn't fit the store's richer
// cluster/route/filter graph — a container maps naturally to a cluster and
// a route, but there is no single Docker label covering filter chains or
// route-filter associations, so continuous reconciliation would only ever
// cover a slice of the schema. Seeding once at startup, leaving the admin
// API as the source of truth for everything else, is the generalization
// that fits (see DESIGN.md).
//
// Label reference (add to any docker-compose.yml service):
//
//	envoyage.enable: "true"            # required — opt this container in
//	envoyage.path:   "/app"            # required — route path prefix
//	envoyage.port:   "8080"            # required — port the app listens on
//	envoyage.name:   "myapp"           # optional — override cluster/route name
//
// If envoyage.name is not set, the name is derived from the Docker Compose
// service label (com.docker.compose.service) or the container name.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerclient "github.com/docker/docker/client"

	"github.com/envoyage/envoyage/internal/store"
)

// Label keys the seed loader looks for on containers.
const (
	labelEnable = "envoyage.enable"
	labelPath   = "envoyage.path"
	labelPort   = "envoyage.port"
	labelName   = "envoyage.name"

	// Docker Compose sets this automatically on every container it manages.
	// Used as a fallback name when envoyage.name is not set.
	labelComposeSvc = "com.docker.compose.service"
)

// Seeder inspects the local Docker daemon once to pre-populate a Store.
type Seeder struct {
	client *dockerclient.Client
	log    *slog.Logger
}

// NewSeeder connects to the local Docker daemon. Reads DOCKER_HOST /
// DOCKER_CERT_PATH / DOCKER_TLS_VERIFY from the environment, with automatic
// API version negotiation so it works across daemon versions.
func NewSeeder(log *slog.Logger) (*Seeder, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to Docker daemon: %w", err)
	}
	return &Seeder{client: cli, log: log}, nil
}

// Seed lists running containers and admits one cluster and one route per
// opted-in container into st. Errors admitting an individual container are
// logged and skipped — one malformed container must not abort startup.
func (s *Seeder) Seed(ctx context.Context, st *store.Store) error {
	containers, err := s.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}

	admitted := 0
	for _, c := range containers {
		if c.Labels[labelEnable] != "true" {
			continue
		}
		if err := s.admit(ctx, st, c.ID); err != nil {
			s.log.Warn("skipping container during seed", "id", shortID(c.ID), "error", err)
			continue
		}
		admitted++
	}
	s.log.Info("docker seed complete", "scanned", len(containers), "admitted", admitted)
	return nil
}

// admit inspects a container by ID, validates its labels, resolves its IP
// address, and admits a cluster plus route built from it.
func (s *Seeder) admit(ctx context.Context, st *store.Store, id string) error {
	info, err := s.client.ContainerInspect(ctx, id)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", shortID(id), err)
	}

	labels := info.Config.Labels
	if labels[labelEnable] != "true" {
		return nil
	}

	path := labels[labelPath]
	if path == "" {
		return fmt.Errorf("missing required label %q", labelPath)
	}
	portStr := labels[labelPort]
	if portStr == "" {
		return fmt.Errorf("missing required label %q", labelPort)
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid label %q=%q: %w", labelPort, portStr, err)
	}

	ip, err := containerIP(info)
	if err != nil {
		return fmt.Errorf("resolving IP for %s: %w", shortID(id), err)
	}

	name := serviceName(labels)
	if name == "" {
		name = strings.TrimPrefix(info.Name, "/")
	}

	cluster := &store.Cluster{
		Name:      name,
		Endpoints: []store.Endpoint{{Host: ip, Port: int(port)}},
	}
	if _, err := st.AddCluster(cluster); err != nil && !store.IsConflict(err) {
		return fmt.Errorf("admitting cluster %q: %w", name, err)
	}

	route := &store.Route{Name: name, Path: path, ClusterName: name}
	if _, err := st.AddRoute(route); err != nil && !store.IsConflict(err) {
		return fmt.Errorf("admitting route %q: %w", name, err)
	}

	s.log.Info("docker: seeded cluster and route", "name", name, "path", path, "upstream", fmt.Sprintf("%s:%d", ip, port))
	return nil
}

// containerIP returns the IP address of a container, choosing the best
// network.
//
// Selection order:
//  1. Any network whose name contains "envoyage" (the dedicated proxy mesh).
//  2. The first network with a non-empty IP address (compose project network).
func containerIP(info types.ContainerJSON) (string, error) {
	networks := info.NetworkSettings.Networks
	if len(networks) == 0 {
		return "", fmt.Errorf("container has no attached networks")
	}

	for name, net := range networks {
		if strings.Contains(strings.ToLower(name), "envoyage") && net.IPAddress != "" {
			return net.IPAddress, nil
		}
	}

	for _, net := range networks {
		if net.IPAddress != "" {
			return net.IPAddress, nil
		}
	}

	return "", fmt.Errorf("no IP address found in any attached network")
}

// serviceName derives a stable unique name from a label map.
//
//  1. envoyage.name (explicit user override — highest priority)
//  2. com.docker.compose.service (auto-set by Compose on every container)
//  3. Empty string — caller falls back to container name
func serviceName(labels map[string]string) string {
	if v := labels[labelName]; v != "" {
		return v
	}
	if v := labels[labelComposeSvc]; v != "" {
		return v
	}
	return ""
}

// shortID returns the first 12 characters of a Docker container ID,
// matching the format used by docker ps and docker logs.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
