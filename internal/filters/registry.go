// Package filters implements one conversion strategy per HTTP-filter kind:
// validate an internal store.HTTPFilter record, then convert it into the
// Envoy typed-config blob that kind demands. The registry is assembled once
// at startup from the app's effective configuration, since some strategies
// (request_validation, in particular) need the configured HTTP-method
// allow-list to validate against.
package filters

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/store"
)

// Strategy validates and converts one HTTPFilter kind.
type Strategy interface {
	// Validate checks f.Config against the strategy's schema, returning a
	// descriptive error (often a wrapped *validate.FieldError) on the first
	// failure.
	Validate(f *store.HTTPFilter) error

	// Convert produces the Envoy typed-config Any for f. Callers must have
	// called Validate first; Convert does not re-validate.
	Convert(f *store.HTTPFilter) (*anypb.Any, error)
}

// Registry dispatches a FilterType to its Strategy.
type Registry struct {
	strategies map[store.FilterType]Strategy
}

// NewRegistry builds the registry from effective configuration. Construction
// is not stateless: several strategies close over cfg's allow-lists.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		strategies: map[store.FilterType]Strategy{
			store.FilterTypeRateLimit:          &RateLimitStrategy{},
			store.FilterTypeCORS:               NewCORSStrategy(cfg.AllowedHTTPMethods),
			store.FilterTypeAuthentication:     &JWTAuthnStrategy{},
			store.FilterTypeHeaderManipulation: &HeaderManipulationStrategy{},
			store.FilterTypeRequestValidation:  NewRequestValidationStrategy(cfg.AllowedHTTPMethods),
		},
	}
}

// ErrUnsupportedFilterType is returned when no strategy is registered for a
// filter's type tag.
type ErrUnsupportedFilterType struct {
	FilterType store.FilterType
}

func (e *ErrUnsupportedFilterType) Error() string {
	return errors.Errorf("unsupported filter type %q", e.FilterType).Error()
}

// Lookup returns the strategy for tag, or ErrUnsupportedFilterType.
func (r *Registry) Lookup(tag store.FilterType) (Strategy, error) {
	s, ok := r.strategies[tag]
	if !ok {
		return nil, &ErrUnsupportedFilterType{FilterType: tag}
	}
	return s, nil
}

// Validate dispatches to the strategy for f.FilterType.
func (r *Registry) Validate(f *store.HTTPFilter) error {
	s, err := r.Lookup(f.FilterType)
	if err != nil {
		return err
	}
	return s.Validate(f)
}

// Convert dispatches to the strategy for f.FilterType.
func (r *Registry) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	s, err := r.Lookup(f.FilterType)
	if err != nil {
		return nil, err
	}
	return s.Convert(f)
}

// configString extracts a required string field from an opaque config map.
func configString(cfg map[string]any, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// configInt extracts an integer field, tolerating the float64 that JSON
// decoding produces.
func configInt(cfg map[string]any, key string) (int, bool) {
	v, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// configStringSlice extracts a []string field, tolerating []any (the shape
// JSON decoding produces).
func configStringSlice(cfg map[string]any, key string) ([]string, bool) {
	v, ok := cfg[key]
	if !ok {
		return nil, false
	}
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// configBool extracts a bool field.
func configBool(cfg map[string]any, key string) (bool, bool) {
	v, ok := cfg[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
