package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/envoyage/envoyage/internal/validate"
)

func TestPort(t *testing.T) {
	assert.NoError(t, validate.Port("port", 1))
	assert.NoError(t, validate.Port("port", 65535))
	assert.Error(t, validate.Port("port", 0))
	assert.Error(t, validate.Port("port", 65536))
}

func TestPath(t *testing.T) {
	assert.NoError(t, validate.Path("path", "/"))
	assert.NoError(t, validate.Path("path", "/api"))
	assert.Error(t, validate.Path("path", "//a"))
	assert.Error(t, validate.Path("path", "/a/../b"))
	assert.Error(t, validate.Path("path", "noslash"))
}

func TestHost(t *testing.T) {
	assert.NoError(t, validate.Host("host", "10.0.0.1"))
	assert.NoError(t, validate.Host("host", "example.com"))
	assert.Error(t, validate.Host("host", "-bad.com"))
	assert.Error(t, validate.Host("host", "bad-.com"))
}

func TestJWTSecret(t *testing.T) {
	assert.Error(t, validate.JWTSecret("secret", "short"))
	assert.Error(t, validate.JWTSecret("secret", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.Error(t, validate.JWTSecret("secret", "this-string-contains-the-word-secret-in-it"))
	assert.NoError(t, validate.JWTSecret("secret", "a-perfectly-fine-32-character-key!!"))

	// exactly 31 vs 32 boundary
	assert.Error(t, validate.JWTSecret("secret", "0123456789012345678901234567890"))  // len 31
	assert.NoError(t, validate.JWTSecret("secret", "01234567890123456789012345678901")) // len 32
}

func TestLuaSafe(t *testing.T) {
	assert.NoError(t, validate.LuaSafe("v", "hello world"))
	assert.Error(t, validate.LuaSafe("v", "]] .. os.execute('x') .. [["))
	assert.Error(t, validate.LuaSafe("v", "loadstring(x)"))
	assert.Error(t, validate.LuaSafe("v", "a\x00b"))
}

func TestHTTPMethod(t *testing.T) {
	allowed := []string{"GET", "POST"}
	assert.NoError(t, validate.HTTPMethod("m", "get", allowed))
	assert.Error(t, validate.HTTPMethod("m", "TRACE", allowed))
}

func TestHeaderValue(t *testing.T) {
	assert.NoError(t, validate.HeaderValue("v", "value\twith tab"))
	assert.Error(t, validate.HeaderValue("v", "value\nwith newline"))
}
