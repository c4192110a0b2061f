package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuanceRepoSaveGet(t *testing.T) {
	r := NewIssuanceRepo()
	now := time.Unix(1000, 0)
	r.Save(Issuance{SessionID: "sess_1", Model: "m", ExpiresAt: 1060, IssuedAt: now})

	got, ok := r.Get("sess_1", now)
	require.True(t, ok)
	assert.Equal(t, "m", got.Model)

	_, ok = r.Get("sess_2", now)
	assert.False(t, ok)
}

func TestIssuanceRepoExpiry(t *testing.T) {
	r := NewIssuanceRepo()
	r.Save(Issuance{SessionID: "old", ExpiresAt: 1010, IssuedAt: time.Unix(1000, 0)})
	r.Save(Issuance{SessionID: "forever", IssuedAt: time.Unix(1000, 0)})

	_, ok := r.Get("old", time.Unix(1010, 0))
	assert.False(t, ok)
	_, ok = r.Get("forever", time.Unix(99999, 0))
	assert.True(t, ok)

	r.Save(Issuance{SessionID: "a", ExpiresAt: 1020, IssuedAt: time.Unix(1000, 0)})
	r.Save(Issuance{SessionID: "b", ExpiresAt: 2000, IssuedAt: time.Unix(1500, 0)})
	assert.Equal(t, 2, r.Len())
}

func TestIssuanceRepoIgnoresAnonymous(t *testing.T) {
	r := NewIssuanceRepo()
	r.Save(Issuance{IssuedAt: time.Now()})
	assert.Zero(t, r.Len())
}
