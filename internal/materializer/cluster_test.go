package materializer_test

import (
	"io"
	"log/slog"
	"testing"

	envoy_cluster_v3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/materializer"
	"github.com/envoyage/envoyage/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResourcesConfig() *config.Resources {
	return &config.Resources{
		ClusterDiscoveryType: "STRICT_DNS",
		DNSLookupFamily:      "V4_ONLY",
	}
}

func TestMaterializeCluster_BasicShape(t *testing.T) {
	c := &store.Cluster{
		Name:      "svc",
		Endpoints: []store.Endpoint{{Host: "10.0.0.1", Port: 8080}},
	}
	built, err := materializer.MaterializeCluster(c, testResourcesConfig(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "svc", built.Name)
	assert.Equal(t, envoy_cluster_v3.Cluster_STRICT_DNS, built.GetClusterDiscoveryType())
	require.Len(t, built.LoadAssignment.Endpoints, 1)
	require.Len(t, built.LoadAssignment.Endpoints[0].LbEndpoints, 1)

	addr := built.LoadAssignment.Endpoints[0].LbEndpoints[0].GetEndpoint().Address.GetSocketAddress()
	assert.Equal(t, "10.0.0.1", addr.Address)
	assert.EqualValues(t, 8080, addr.GetPortValue())
}

func TestMaterializeCluster_CustomLBPolicyFallsBackToRoundRobin(t *testing.T) {
	c := &store.Cluster{
		Name:      "svc",
		Endpoints: []store.Endpoint{{Host: "10.0.0.1", Port: 8080}},
		LBPolicy:  &store.LBPolicy{Kind: store.LBPolicyCustom, Custom: "maglev"},
	}
	built, err := materializer.MaterializeCluster(c, testResourcesConfig(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, envoy_cluster_v3.Cluster_ROUND_ROBIN, built.LbPolicy)
}

func TestMaterializeCluster_RejectsInvalidPort(t *testing.T) {
	c := &store.Cluster{
		Name:      "svc",
		Endpoints: []store.Endpoint{{Host: "10.0.0.1", Port: 70000}},
	}
	_, err := materializer.MaterializeCluster(c, testResourcesConfig(), testLogger())
	assert.Error(t, err)
}

func TestMaterializeCluster_Deterministic(t *testing.T) {
	c := &store.Cluster{
		Name:      "svc",
		Endpoints: []store.Endpoint{{Host: "10.0.0.1", Port: 8080}, {Host: "10.0.0.2", Port: 8081}},
	}
	a, err := materializer.MaterializeCluster(c, testResourcesConfig(), testLogger())
	require.NoError(t, err)
	b, err := materializer.MaterializeCluster(c, testResourcesConfig(), testLogger())
	require.NoError(t, err)

	ba, err := protoMarshalDeterministic(a)
	require.NoError(t, err)
	bb, err := protoMarshalDeterministic(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
}
