package filters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	envoy_local_ratelimit_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/local_ratelimit/v3"

	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
)

func TestRateLimitStrategy_Valid(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Name:       "rl",
		FilterType: store.FilterTypeRateLimit,
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "minute",
		},
		Enabled: true,
	}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)

	var cfg envoy_local_ratelimit_v3.LocalRateLimit
	require.NoError(t, any.UnmarshalTo(&cfg))
	assert.EqualValues(t, 100, cfg.TokenBucket.MaxTokens)
	assert.EqualValues(t, 100, cfg.TokenBucket.TokensPerFill.Value)
	assert.Equal(t, int64(60), cfg.TokenBucket.FillInterval.Seconds)
	assert.EqualValues(t, 100, cfg.FilterEnabled.DefaultValue.Numerator)
	assert.EqualValues(t, 100, cfg.FilterEnforced.DefaultValue.Numerator)
}

func TestRateLimitStrategy_BurstSize(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "second",
			"burst_size":        200,
		},
	}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)
	var cfg envoy_local_ratelimit_v3.LocalRateLimit
	require.NoError(t, any.UnmarshalTo(&cfg))
	assert.EqualValues(t, 200, cfg.TokenBucket.MaxTokens)
}

func TestRateLimitStrategy_BurstBelowRequestsRejected(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "second",
			"burst_size":        50,
		},
	}
	assert.Error(t, s.Validate(f))
}

func TestRateLimitStrategy_BurstEqualAccepted(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "second",
			"burst_size":        100,
		},
	}
	assert.NoError(t, s.Validate(f))
}

func TestRateLimitStrategy_UnknownTimeUnit(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "fortnight",
		},
	}
	assert.Error(t, s.Validate(f))
}

func TestRateLimitStrategy_RequestsOutOfRange(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	assert.Error(t, s.Validate(&store.HTTPFilter{Config: map[string]any{"requests_per_unit": 0, "time_unit": "second"}}))
	assert.Error(t, s.Validate(&store.HTTPFilter{Config: map[string]any{"requests_per_unit": 1_000_001, "time_unit": "second"}}))
}

func TestRateLimitStrategy_UnknownField(t *testing.T) {
	s := &filters.RateLimitStrategy{}
	f := &store.HTTPFilter{
		Config: map[string]any{
			"requests_per_unit": 100,
			"time_unit":         "second",
			"bogus":             true,
		},
	}
	assert.Error(t, s.Validate(f))
}
