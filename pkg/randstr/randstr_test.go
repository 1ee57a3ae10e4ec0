package randstr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomString(t *testing.T) {
	const letters = "abc123"
	g := New([]byte(letters))

	s := g.GenerateRandomString(32)
	assert.Len(t, s, 32)
	for _, r := range s {
		assert.True(t, strings.ContainsRune(letters, r), "unexpected rune %q", r)
	}
	assert.Empty(t, g.GenerateRandomString(0))
}
