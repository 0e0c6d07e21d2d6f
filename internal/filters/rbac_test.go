package filters_test

import (
	"testing"

	envoy_rbac_config_v3 "github.com/envoyproxy/go-control-plane/envoy/config/rbac/v3"
	envoy_rbac_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/rbac/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
)

func TestRequestValidationStrategy_Valid(t *testing.T) {
	s := filters.NewRequestValidationStrategy([]string{"GET", "POST"})
	f := &store.HTTPFilter{
		Config: map[string]any{
			"allowed_methods":  []any{"GET", "POST"},
			"required_headers": []any{"X-Request-Id"},
			"allowed_paths":    []any{"/api", "/health"},
		},
	}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)

	var cfg envoy_rbac_v3.RBAC
	require.NoError(t, any.UnmarshalTo(&cfg))
	assert.Equal(t, envoy_rbac_config_v3.RBAC_ALLOW, cfg.Rules.Action)
	policy, ok := cfg.Rules.Policies["allow_valid_requests"]
	require.True(t, ok)
	require.Len(t, policy.Principals, 1)
	require.Len(t, policy.Permissions, 1)
}

func TestRequestValidationStrategy_RejectsLowercaseMethod(t *testing.T) {
	s := filters.NewRequestValidationStrategy([]string{"GET"})
	f := &store.HTTPFilter{Config: map[string]any{"allowed_methods": []any{"get"}}}
	assert.Error(t, s.Validate(f))
}

func TestRequestValidationStrategy_RejectsTraversalPath(t *testing.T) {
	s := filters.NewRequestValidationStrategy([]string{"GET"})
	f := &store.HTTPFilter{Config: map[string]any{"allowed_paths": []any{"/x/../../etc"}}}
	assert.Error(t, s.Validate(f))
}

func TestRequestValidationStrategy_EmptyConfigYieldsAnyPermission(t *testing.T) {
	s := filters.NewRequestValidationStrategy([]string{"GET"})
	f := &store.HTTPFilter{}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)
	var cfg envoy_rbac_v3.RBAC
	require.NoError(t, any.UnmarshalTo(&cfg))
	policy := cfg.Rules.Policies["allow_valid_requests"]
	require.Len(t, policy.Permissions, 1)
	_, ok := policy.Permissions[0].Rule.(*envoy_rbac_config_v3.Permission_Any)
	assert.True(t, ok)
}
