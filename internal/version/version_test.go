package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/envoyage/envoyage/internal/version"
)

func TestBumpVersion_Monotonic(t *testing.T) {
	tr := version.NewTracker()
	assert.Equal(t, "0", tr.CurrentVersionString())
	assert.EqualValues(t, 1, tr.BumpVersion())
	assert.EqualValues(t, 2, tr.BumpVersion())
	assert.Equal(t, "2", tr.CurrentVersionString())
}

func TestNextNonce_UniqueAndMonotonic(t *testing.T) {
	tr := version.NewTracker()
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		n := tr.NextNonce()
		assert.False(t, seen[n], "nonce %q reused", n)
		seen[n] = true
		assert.NotEqual(t, prev, n)
		prev = n
	}
}
