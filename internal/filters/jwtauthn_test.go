package filters_test

import (
	"encoding/base64"
	"strings"
	"testing"

	envoy_jwt_authn_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
)

func TestJWTAuthnStrategy_Valid(t *testing.T) {
	s := &filters.JWTAuthnStrategy{}
	f := &store.HTTPFilter{
		Name: "jwt",
		Config: map[string]any{
			"jwt_secret": "a-perfectly-fine-32-character-key!!",
			"jwt_issuer": "issuer.example.com",
		},
	}
	require.NoError(t, s.Validate(f))

	any, err := s.Convert(f)
	require.NoError(t, err)

	var cfg envoy_jwt_authn_v3.JwtAuthentication
	require.NoError(t, any.UnmarshalTo(&cfg))

	provider, ok := cfg.Providers["jwt_provider"]
	require.True(t, ok)
	assert.Equal(t, "issuer.example.com", provider.Issuer)

	localJwks, ok := provider.JwksSourceSpecifier.(*envoy_jwt_authn_v3.JwtProvider_LocalJwks)
	require.True(t, ok)
	inline := localJwks.LocalJwks.GetInlineString()
	wantKey := base64.StdEncoding.EncodeToString([]byte("a-perfectly-fine-32-character-key!!"))
	assert.True(t, strings.Contains(inline, wantKey))

	require.Len(t, cfg.Rules, 1)
}

func TestJWTAuthnStrategy_RejectsShortSecret(t *testing.T) {
	s := &filters.JWTAuthnStrategy{}
	f := &store.HTTPFilter{Config: map[string]any{"jwt_secret": "short", "jwt_issuer": "x"}}
	assert.Error(t, s.Validate(f))
}

func TestJWTAuthnStrategy_RequiresIssuer(t *testing.T) {
	s := &filters.JWTAuthnStrategy{}
	f := &store.HTTPFilter{Config: map[string]any{"jwt_secret": "a-perfectly-fine-32-character-key!!"}}
	assert.Error(t, s.Validate(f))
}
