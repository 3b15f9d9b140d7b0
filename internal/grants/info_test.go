package grants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_TouchIsMonotonicOnExpiresAt(t *testing.T) {
	i := newInfo("t1", 1000, 1000)

	i.touch("t2", 500, 1500) // lower expiresAt: ignored
	assert.EqualValues(t, 1000, i.ExpiresAt())
	assert.Equal(t, "t1", i.AccessToken())
	assert.EqualValues(t, 1500, i.LastUsed(), "lastUsed always advances")

	i.touch("t3", 2000, 2000) // higher expiresAt: replaces both
	assert.EqualValues(t, 2000, i.ExpiresAt())
	assert.Equal(t, "t3", i.AccessToken())
}

func TestInfo_TouchTieKeepsCurrentToken(t *testing.T) {
	i := newInfo("original", 1000, 1000)
	i.touch("challenger", 1000, 1100)

	assert.Equal(t, "original", i.AccessToken())
	assert.EqualValues(t, 1000, i.ExpiresAt())
}

func TestInfo_GrantsNilUntilFirstFetch(t *testing.T) {
	i := newInfo("t1", 1000, 1000)
	assert.Nil(t, i.Grants())

	i.setGrants([]byte(`{"ok":true}`))
	assert.JSONEq(t, `{"ok":true}`, string(i.Grants()))
}

func TestInfo_IdleOrExpired(t *testing.T) {
	i := newInfo("t1", 10_000, 1_000)

	assert.False(t, i.idleOrExpired(1_500, 5_000), "fresh entry, not expired")
	assert.True(t, i.idleOrExpired(7_000, 5_000), "lastUsed older than maxIdle")

	i2 := newInfo("t1", 500, 1_000)
	assert.True(t, i2.idleOrExpired(1_000, 5_000), "expiresAt already passed")
}
