package filters

import (
	"encoding/base64"
	"fmt"

	"github.com/pkg/errors"
	envoy_jwt_authn_v3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/jwt_authn/v3"
	envoy_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/validate"
)

// JWTAuthnStrategy converts an "authentication" HTTPFilter into an Envoy
// JwtAuthentication config with a single local-JWKS provider.
type JWTAuthnStrategy struct{}

func (s *JWTAuthnStrategy) Validate(f *store.HTTPFilter) error {
	for k := range f.Config {
		switch k {
		case "jwt_secret", "jwt_issuer":
		default:
			return errors.Errorf("authentication: unknown config field %q", k)
		}
	}

	secret, ok := configString(f.Config, "jwt_secret")
	if !ok {
		return errors.New("authentication: jwt_secret is required")
	}
	if err := validate.JWTSecret("jwt_secret", secret); err != nil {
		return errors.Wrap(err, "authentication")
	}

	issuer, ok := configString(f.Config, "jwt_issuer")
	if !ok {
		return errors.New("authentication: jwt_issuer is required")
	}
	if len(issuer) == 0 || len(issuer) > 100 {
		return errors.New("authentication: jwt_issuer must be 1..100 characters")
	}
	return nil
}

func (s *JWTAuthnStrategy) Convert(f *store.HTTPFilter) (*anypb.Any, error) {
	secret, _ := configString(f.Config, "jwt_secret")
	issuer, _ := configString(f.Config, "jwt_issuer")
	providerName := f.Name + "_provider"

	jwksInline := fmt.Sprintf(`{"keys":[{"kty":"oct","k":"%s"}]}`, base64.StdEncoding.EncodeToString([]byte(secret)))

	cfg := &envoy_jwt_authn_v3.JwtAuthentication{
		Providers: map[string]*envoy_jwt_authn_v3.JwtProvider{
			providerName: {
				Issuer: issuer,
				JwksSourceSpecifier: &envoy_jwt_authn_v3.JwtProvider_LocalJwks{
					LocalJwks: &envoy_core_v3.DataSource{
						Specifier: &envoy_core_v3.DataSource_InlineString{
							InlineString: jwksInline,
						},
					},
				},
			},
		},
		Rules: []*envoy_jwt_authn_v3.RequirementRule{
			{
				Match: prefixRouteMatch("/"),
				RequirementType: &envoy_jwt_authn_v3.RequirementRule_Requires{
					Requires: &envoy_jwt_authn_v3.JwtRequirement{
						RequiresType: &envoy_jwt_authn_v3.JwtRequirement_ProviderName{
							ProviderName: providerName,
						},
					},
				},
			},
		},
	}
	return anypb.New(cfg)
}
