// Package credpool implements the gateway's concurrent credential pool:
// priority/round-robin selection, affinity pinning, per-credential RPM
// gating, failure accounting with auto-disable, and single-flighted usage
// queries. The whole pool is a single critical section guarded by one
// mutex — not an actor — matching the teacher's metadata-cache pattern of
// a plain lock-guarded struct with a copy-on-read snapshot.
package credpool

import (
	"time"

	"golang.org/x/time/rate"
)

// AuthMethod is how a credential authenticates to the upstream.
type AuthMethod string

const (
	AuthBearer AuthMethod = "bearer"
	AuthSigV4  AuthMethod = "sigv4"
)

// CredentialEntry is one slot in the pool. Index is stable for the entry's
// lifetime; every other field is mutated only through Pool methods.
type CredentialEntry struct {
	Index    int
	Priority uint32
	Disabled bool

	FailureCount uint32
	ExpiresAt    *time.Time

	AuthMethod    AuthMethod
	HasProfileARN bool

	// Bearer auth.
	BearerToken string

	// SigV4 auth.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	ProfileARN      string

	// RPM gating.
	TargetRPM int

	lastUseAt    time.Time
	lastSuccess  time.Time
	limiter      *rate.Limiter
}

// eligible reports whether e can be selected right now, ignoring gating.
func (e *CredentialEntry) eligible(now time.Time) bool {
	if e.Disabled {
		return false
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false
	}
	return true
}

// gated reports whether e's RPM limiter currently forbids another request.
// Tokens is a non-consuming read of the limiter's bucket; AllowN(now, 0)
// would always return true (reserving zero tokens can never be denied) and
// so can never actually signal gating.
func (e *CredentialEntry) gated(now time.Time) bool {
	if e.limiter == nil {
		return false
	}
	return e.limiter.Tokens(now) < 1
}

// Snapshot is an immutable, consistent view of one entry returned by
// Pool.Snapshot; it never aliases pool-internal state.
type Snapshot struct {
	Index         int
	Priority      uint32
	Disabled      bool
	FailureCount  uint32
	ExpiresAt     *time.Time
	AuthMethod    AuthMethod
	HasProfileARN bool
}

func (e *CredentialEntry) snapshot() Snapshot {
	var expires *time.Time
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		expires = &t
	}
	return Snapshot{
		Index:         e.Index,
		Priority:      e.Priority,
		Disabled:      e.Disabled,
		FailureCount:  e.FailureCount,
		ExpiresAt:     expires,
		AuthMethod:    e.AuthMethod,
		HasProfileARN: e.HasProfileARN,
	}
}
