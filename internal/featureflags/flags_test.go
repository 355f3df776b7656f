package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	s := Parse("")
	assert.False(t, s.Enabled(MarkdownPosts, "sid"))
	assert.True(t, s.Enabled(FollowReconcile, "sid"))
	assert.False(t, s.Enabled("unknown", "sid"))
}

func TestBooleanValues(t *testing.T) {
	s := Parse("a=on,b=off,c=TRUE,d=false,e=1,f=0,follow_reconcile=off")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, s.Enabled(name, "sid"), name)
	}
	for _, name := range []string{"b", "d", "f", FollowReconcile} {
		assert.False(t, s.Enabled(name, "sid"), name)
	}
}

func TestPercentageRollout(t *testing.T) {
	s := Parse("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, s.Enabled("always", ""))
	assert.False(t, s.Enabled("never", "sid"))
	assert.False(t, s.Enabled("broken", "sid"))
	assert.False(t, s.Enabled("canary", ""), "partial rollout needs a subject")

	first := s.Enabled("canary", "session-42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Enabled("canary", "session-42"))
	}
}

func TestParseIgnoresMalformed(t *testing.T) {
	s := Parse(" bad ,x=on, Y = 20% ,=on,z=")

	assert.Equal(t, map[string]string{
		FollowReconcile: "on",
		MarkdownPosts:   "off",
		"x":             "on",
		"y":             "20%",
	}, s.Settings())
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.Enabled(MarkdownPosts, "sid"))
	assert.Nil(t, s.Settings())
}
