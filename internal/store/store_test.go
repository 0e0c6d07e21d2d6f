package store_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Limits: config.Limits{
			MaxClusters:            2,
			MaxRoutes:              2,
			MaxHTTPFilters:         2,
			MaxEndpointsPerCluster: 3,
		},
		CapacityStrict:     true,
		AllowedHTTPMethods: []string{"GET", "POST"},
		AllowedFilterTypes: []string{"rate_limit", "cors", "authentication", "header_manipulation", "request_validation"},
	}
}

func newTestStore() *store.Store {
	return store.New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validCluster(name string) *store.Cluster {
	return &store.Cluster{
		Name:      name,
		Endpoints: []store.Endpoint{{Host: "10.0.0.1", Port: 8080}},
	}
}

func TestAddCluster_Success(t *testing.T) {
	s := newTestStore()
	name, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)
	assert.Equal(t, "backend", name)

	got, err := s.GetCluster("backend")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.Endpoints[0].Host)
}

func TestAddCluster_Conflict(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)
	_, err = s.AddCluster(validCluster("backend"))
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
}

func TestAddCluster_ValidationFailed(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(&store.Cluster{Name: "bad name!"})
	require.Error(t, err)
	assert.True(t, store.IsValidationFailed(err))
}

func TestAddCluster_CapacityExceeded(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("c1"))
	require.NoError(t, err)
	_, err = s.AddCluster(validCluster("c2"))
	require.NoError(t, err)
	_, err = s.AddCluster(validCluster("c3"))
	require.Error(t, err)
	assert.True(t, store.IsCapacityExceeded(err))
}

func TestAddCluster_TooManyEndpoints(t *testing.T) {
	s := newTestStore()
	c := validCluster("c1")
	c.Endpoints = []store.Endpoint{
		{Host: "10.0.0.1", Port: 1},
		{Host: "10.0.0.2", Port: 2},
		{Host: "10.0.0.3", Port: 3},
		{Host: "10.0.0.4", Port: 4},
	}
	_, err := s.AddCluster(c)
	require.Error(t, err)
	assert.True(t, store.IsCapacityExceeded(err))
}

func TestGetCluster_NotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.GetCluster("missing")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestUpdateCluster_NotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.UpdateCluster("missing", validCluster("missing"))
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestRemoveCluster(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)
	require.NoError(t, s.RemoveCluster("backend"))
	_, err = s.GetCluster("backend")
	assert.True(t, store.IsNotFound(err))
}

func TestClone_Isolation(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)

	got, err := s.GetCluster("backend")
	require.NoError(t, err)
	got.Endpoints[0].Host = "mutated"

	again, err := s.GetCluster("backend")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", again.Endpoints[0].Host)
}

func validRoute(name, clusterName string) *store.Route {
	return &store.Route{
		Name:        name,
		Path:        "/api",
		ClusterName: clusterName,
	}
}

func TestAddRoute_RequiresClusterToExist(t *testing.T) {
	s := newTestStore()
	_, err := s.AddRoute(validRoute("r1", "missing-cluster"))
	require.Error(t, err)
	assert.True(t, store.IsDependencyMissing(err))
}

func TestAddRoute_Success(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)

	_, err = s.AddRoute(validRoute("r1", "backend"))
	require.NoError(t, err)

	got, err := s.GetRoute("r1")
	require.NoError(t, err)
	assert.Equal(t, "backend", got.ClusterName)
}

func TestAddRoute_InvalidHTTPMethod(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)

	r := validRoute("r1", "backend")
	r.HTTPMethods = []string{"TRACE"}
	_, err = s.AddRoute(r)
	require.Error(t, err)
	assert.True(t, store.IsValidationFailed(err))
}

func TestAddRoute_Conflict(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)
	_, err = s.AddRoute(validRoute("r1", "backend"))
	require.NoError(t, err)
	_, err = s.AddRoute(validRoute("r1", "backend"))
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
}

func TestListRoutes_Ordered(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("backend"))
	require.NoError(t, err)
	_, err = s.AddRoute(validRoute("zeta", "backend"))
	require.NoError(t, err)
	_, err = s.AddRoute(validRoute("alpha", "backend"))
	require.NoError(t, err)

	got := s.ListRoutes()
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, "zeta", got[1].Name)
}

func TestAddHTTPFilter_UnknownType(t *testing.T) {
	s := newTestStore()
	_, err := s.AddHTTPFilter(&store.HTTPFilter{Name: "f1", FilterType: store.FilterType("bogus")})
	require.Error(t, err)
	assert.True(t, store.IsValidationFailed(err))
}

func TestAddRouteFilters_RequiresFiltersToExist(t *testing.T) {
	s := newTestStore()
	err := s.AddRouteFilters(&store.RouteFilters{RouteName: "r1", FilterNames: []string{"missing"}})
	require.Error(t, err)
	assert.True(t, store.IsDependencyMissing(err))
}

func TestAddRouteFilters_Success(t *testing.T) {
	s := newTestStore()
	_, err := s.AddHTTPFilter(&store.HTTPFilter{Name: "f1", FilterType: store.FilterTypeCORS, Enabled: true})
	require.NoError(t, err)

	err = s.AddRouteFilters(&store.RouteFilters{RouteName: "r1", FilterNames: []string{"f1"}})
	require.NoError(t, err)

	got, err := s.GetRouteFilters("r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, got.FilterNames)
}

func TestCapacityInfo(t *testing.T) {
	s := newTestStore()
	_, err := s.AddCluster(validCluster("c1"))
	require.NoError(t, err)

	info := s.CapacityInfo(store.KindCluster)
	assert.Equal(t, 1, info.Current)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 0.5, info.Utilization)
}
