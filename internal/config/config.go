// Package config loads and validates the control plane configuration from
// environment variables. All settings have sensible defaults so the binary
// works out of the box for local development without any .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the control plane.
// Values are loaded once at startup via Load() and then treated as immutable.
type Config struct {
	// XDSAddr is the gRPC listen address for the xDS server.
	// Envoy connects here to receive dynamic configuration.
	XDSAddr string

	// APIAddr is the HTTP listen address for the management API.
	APIAddr string

	// Limits bounds the population of each store collection and the
	// endpoint count of any single cluster.
	Limits Limits

	// CapacityStrict, when true, rejects the (limit+1)-th record with
	// CapacityExceeded. When false, the breach is logged as a warning and
	// the record is admitted anyway.
	CapacityStrict bool

	// AllowedHTTPMethods is the allow-list routes, request-validation
	// filters, and CORS configs must draw their methods from.
	AllowedHTTPMethods []string

	// AllowedLBPolicies lists the known (non-Custom) LB policy strings. It is
	// not consulted when a policy is parsed: store.ParseLBPolicy matches a
	// fixed set of the same four names, and anything else is admitted as
	// Custom.
	AllowedLBPolicies []string

	// AllowedFilterTypes is the allow-list HTTPFilter.filter_type must be
	// drawn from.
	AllowedFilterTypes []string

	// DefaultFilterOrder is the default sequence of filter-type tags the
	// materializer walks when assembling a listener's HTTP filter chain.
	DefaultFilterOrder []string

	Breaker Breaker

	Resources Resources

	// SeedPath, if non-empty, is a JSON file loaded into the store at
	// startup before the xDS server begins serving.
	SeedPath string
}

// Limits bounds store collection sizes.
type Limits struct {
	MaxClusters            int
	MaxRoutes              int
	MaxHTTPFilters         int
	MaxEndpointsPerCluster int
}

// Breaker holds the circuit breaker's configurable thresholds.
type Breaker struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// Resources names and addresses the singleton RouteConfiguration and
// Listener the materializer emits, plus cluster-wide Envoy defaults.
type Resources struct {
	RouteConfigName    string
	VirtualHostName    string
	VirtualHostDomains []string

	ListenerName    string
	ListenerAddress string
	ListenerPort    uint32

	ClusterConnectTimeout time.Duration
	ClusterProtocol       string // "TCP" (only protocol materialized today)
	ClusterDiscoveryType  string // "STATIC", "STRICT_DNS" or "LOGICAL_DNS"
	DNSLookupFamily       string // "V4_ONLY", "V6_ONLY", "AUTO", "ALL"
}

// Load reads configuration from environment variables, falling back to
// defaults suitable for local development. No variable is strictly
// required.
func Load() (*Config, error) {
	cfg := &Config{
		XDSAddr: getEnv("ENVOYAGE_XDS_ADDR", ":18000"),
		APIAddr: getEnv("ENVOYAGE_API_ADDR", ":8080"),
		Limits: Limits{
			MaxClusters:            getEnvInt("ENVOYAGE_MAX_CLUSTERS", 500),
			MaxRoutes:              getEnvInt("ENVOYAGE_MAX_ROUTES", 2000),
			MaxHTTPFilters:         getEnvInt("ENVOYAGE_MAX_HTTP_FILTERS", 200),
			MaxEndpointsPerCluster: getEnvInt("ENVOYAGE_MAX_ENDPOINTS_PER_CLUSTER", 100),
		},
		CapacityStrict:     getEnvBool("ENVOYAGE_CAPACITY_STRICT", true),
		AllowedHTTPMethods: getEnvList("ENVOYAGE_ALLOWED_HTTP_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}),
		AllowedLBPolicies:  []string{"ROUND_ROBIN", "LEAST_REQUEST", "RANDOM", "RING_HASH"},
		AllowedFilterTypes: []string{"rate_limit", "cors", "authentication", "header_manipulation", "request_validation"},
		DefaultFilterOrder: getEnvList("ENVOYAGE_FILTER_ORDER", []string{"request_validation", "authentication", "cors", "rate_limit", "header_manipulation"}),
		Breaker: Breaker{
			FailureThreshold: getEnvInt("ENVOYAGE_BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  getEnvDuration("ENVOYAGE_BREAKER_RECOVERY_TIMEOUT", 30*time.Second),
		},
		Resources: Resources{
			RouteConfigName:       getEnv("ENVOYAGE_ROUTE_CONFIG_NAME", "envoyage_routes"),
			VirtualHostName:       getEnv("ENVOYAGE_VIRTUAL_HOST_NAME", "envoyage_vhost"),
			VirtualHostDomains:    getEnvList("ENVOYAGE_VIRTUAL_HOST_DOMAINS", []string{"*"}),
			ListenerName:          getEnv("ENVOYAGE_LISTENER_NAME", "envoyage_listener"),
			ListenerAddress:       getEnv("ENVOYAGE_LISTENER_ADDRESS", "0.0.0.0"),
			ListenerPort:          uint32(getEnvInt("ENVOYAGE_LISTENER_PORT", 10000)),
			ClusterConnectTimeout: getEnvDuration("ENVOYAGE_CLUSTER_CONNECT_TIMEOUT", 5*time.Second),
			ClusterProtocol:       "TCP",
			ClusterDiscoveryType:  getEnv("ENVOYAGE_CLUSTER_DISCOVERY_TYPE", "STRICT_DNS"),
			DNSLookupFamily:       getEnv("ENVOYAGE_DNS_LOOKUP_FAMILY", "V4_ONLY"),
		},
		SeedPath: getEnv("ENVOYAGE_SEED_PATH", ""),
	}

	if cfg.Limits.MaxEndpointsPerCluster < 1 {
		return nil, fmt.Errorf("ENVOYAGE_MAX_ENDPOINTS_PER_CLUSTER must be >= 1")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
