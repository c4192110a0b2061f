package memory

import (
	"sync"
	"time"
)

// Issuance records a credential handed out by the relay. The secret itself
// is never stored.
type Issuance struct {
	SessionID string    `json:"session_id"`
	Model     string    `json:"model,omitempty"`
	ExpiresAt int64     `json:"expires_at,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

func (i Issuance) expired(now time.Time) bool {
	return i.ExpiresAt > 0 && now.Unix() >= i.ExpiresAt
}

type IssuanceRepo struct {
	m sync.Map
}

func NewIssuanceRepo() *IssuanceRepo {
	return &IssuanceRepo{}
}

// Save stores i and drops entries whose credential has expired.
func (r *IssuanceRepo) Save(i Issuance) {
	if i.SessionID == "" {
		return
	}
	r.Prune(i.IssuedAt)
	r.m.Store(i.SessionID, i)
}

func (r *IssuanceRepo) Get(id string, now time.Time) (Issuance, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return Issuance{}, false
	}
	i := v.(Issuance)
	if i.expired(now) {
		r.m.Delete(id)
		return Issuance{}, false
	}
	return i, true
}

func (r *IssuanceRepo) Prune(now time.Time) {
	r.m.Range(func(k, v any) bool {
		if v.(Issuance).expired(now) {
			r.m.Delete(k)
		}
		return true
	})
}

func (r *IssuanceRepo) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
