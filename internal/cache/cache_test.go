package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKey(t *testing.T) {
	type req struct {
		Algorithm string `json:"algorithm"`
		Limit     int    `json:"limit"`
	}

	a := MatchKey("u1", req{Algorithm: "hybrid", Limit: 10})
	b := MatchKey("u1", req{Algorithm: "hybrid", Limit: 10})
	c := MatchKey("u1", req{Algorithm: "hybrid", Limit: 20})
	d := MatchKey("u2", req{Algorithm: "hybrid", Limit: 10})

	assert.Equal(t, a, b, "identical requests share a key")
	assert.NotEqual(t, a, c, "a different request shape gets its own key")
	assert.NotEqual(t, a, d)

	assert.True(t, strings.HasPrefix(a, MatchPrefix("u1")))
	assert.False(t, strings.HasPrefix(d, MatchPrefix("u1")))
}
