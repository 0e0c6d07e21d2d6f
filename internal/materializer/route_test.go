package materializer_test

import (
	"testing"

	envoy_route_v3 "github.com/envoyproxy/go-control-plane/envoy/config/route/v3"
	envoy_type_matcher_v3 "github.com/envoyproxy/go-control-plane/envoy/type/matcher/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/materializer"
	"github.com/envoyage/envoyage/internal/store"
)

func TestMaterializeRoute_NoMethods(t *testing.T) {
	r := &store.Route{Name: "r1", Path: "/api", ClusterName: "svc"}
	built, err := materializer.MaterializeRoute(r)
	require.NoError(t, err)
	assert.Nil(t, built.Match.Headers)
	assert.Equal(t, "/api", built.Match.GetPrefix())
	assert.Equal(t, "svc", built.GetRoute().GetCluster())
}

func TestMaterializeRoute_SingleMethodUsesExactMatch(t *testing.T) {
	r := &store.Route{Name: "r1", Path: "/api", ClusterName: "svc", HTTPMethods: []string{"get"}}
	built, err := materializer.MaterializeRoute(r)
	require.NoError(t, err)
	require.Len(t, built.Match.Headers, 1)
	sm, ok := built.Match.Headers[0].HeaderMatchSpecifier.(*envoy_route_v3.HeaderMatcher_StringMatch)
	require.True(t, ok)
	exact, ok := sm.StringMatch.MatchPattern.(*envoy_type_matcher_v3.StringMatcher_Exact)
	require.True(t, ok)
	assert.Equal(t, "GET", exact.Exact)
}

func TestMaterializeRoute_MultipleMethodsUsesRegex(t *testing.T) {
	r := &store.Route{Name: "r1", Path: "/api", ClusterName: "svc", HTTPMethods: []string{"GET", "POST"}}
	built, err := materializer.MaterializeRoute(r)
	require.NoError(t, err)
	require.Len(t, built.Match.Headers, 1)
	sm, ok := built.Match.Headers[0].HeaderMatchSpecifier.(*envoy_route_v3.HeaderMatcher_StringMatch)
	require.True(t, ok)
	regex, ok := sm.StringMatch.MatchPattern.(*envoy_type_matcher_v3.StringMatcher_SafeRegex)
	require.True(t, ok)
	assert.Equal(t, "^(GET|POST)$", regex.SafeRegex.Regex)
}

func TestMaterializeRoute_PrefixRewrite(t *testing.T) {
	r := &store.Route{Name: "r1", Path: "/api", ClusterName: "svc", PrefixRewrite: "/v2"}
	built, err := materializer.MaterializeRoute(r)
	require.NoError(t, err)
	assert.Equal(t, "/v2", built.GetRoute().PrefixRewrite)
}

func TestMaterializeRoute_RejectsInvalidPath(t *testing.T) {
	r := &store.Route{Name: "r1", Path: "noslash", ClusterName: "svc"}
	_, err := materializer.MaterializeRoute(r)
	assert.Error(t, err)
}
