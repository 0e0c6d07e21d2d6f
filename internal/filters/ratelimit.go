package filters

import (
	"github.com/pkg/errors"
	envoy_config_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_local_ratelimit_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/local_ratelimit/v3"
	envoy_type_v3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/envoyage/envoyage/internal/store"
)

var timeUnitSeconds = map[string]int64{
	"second": 1,
	"minute": 60,
	"hour":   3600,
	"day":    86400,
}

// RateLimitStrategy converts a "rate_limit" HTTPFilter into an Envoy
// LocalRateLimit typed config backed by a token bucket.
type RateLimitStrategy struct{}

func (s *RateLimitStrategy) Validate(f *store.HTTPFilter) error {
	for k := range f.Config {
		switch k {
		case "requests_per_unit", "time_unit", "burst_size":
		default:
			return errors.Errorf("rate_limit: unknown config field %q", k)
		}
	}

	rpu, ok := configInt(f.Config, "requests_per_unit")
	if !ok {
		return errors.New("rate_limit: requests_per_unit is required")
	}
	if rpu < 1 || rpu > 1_000_000 {
		return errors.New("rate_limit: requests_per_unit must be between 1 and 1,000,000")
	}

	unit, ok := configString(f.Config, "time_unit")
	if !ok {
		return errors.New("rate_limit: time_unit is required")
	}
	if _, ok := timeUnitSeconds[unit]; !ok {
		return errors.Errorf("rate_limit: time_unit %q is not one of second, minute, hour, day", unit)
	}

	if burst, ok := configInt(f.Config, "burst_size"); ok {
		if burst < rpu {
			return errors.New("rate_limit: burst_size must be >= requests_per_unit")
		}
	}
	return nil
}

func (s *RateLimitStrategy) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	rpu, _ := configInt(f.Config, "requests_per_unit")
	unit, _ := configString(f.Config, "time_unit")
	maxTokens := rpu
	if burst, ok := configInt(f.Config, "burst_size"); ok {
		maxTokens = burst
	}

	cfg := &envoy_local_ratelimit_v3.LocalRateLimit{
		StatPrefix: f.Name,
		TokenBucket: &envoy_type_v3.TokenBucket{
			MaxTokens:     uint32(maxTokens),
			TokensPerFill: wrapperspb.UInt32(uint32(rpu)),
			FillInterval:  durationpb.New(secondsToDuration(timeUnitSeconds[unit])),
		},
		FilterEnabled: &envoy_config_core_v3.RuntimeFractionalPercent{
			DefaultValue: fullPercent(),
		},
		FilterEnforced: &envoy_config_core_v3.RuntimeFractionalPercent{
			DefaultValue: fullPercent(),
		},
	}
	return anypb.New(cfg)
}

func fullPercent() *envoy_type_v3.FractionalPercent {
	return &envoy_type_v3.FractionalPercent{
		Numerator:   100,
		Denominator: envoy_type_v3.FractionalPercent_HUNDRED,
	}
}
