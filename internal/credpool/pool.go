package credpool

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaygate/gateway/internal/gwerrors"
)

// SelectionMode chooses how Acquire picks among eligible entries.
type SelectionMode string

const (
	ModePriority SelectionMode = "priority"
	ModeBalanced SelectionMode = "balanced"
)

// autoDisableThreshold is the failure count at which an entry is taken out
// of rotation automatically.
const autoDisableThreshold = 5

// FailureKind classifies a dispatch failure for accounting purposes. Only
// credential-scoped failures increment FailureCount.
type FailureKind string

const (
	FailureCredentialExhausted FailureKind = "credential_exhausted"
	FailureRateLimited         FailureKind = "rate_limited"
	FailureOther               FailureKind = "other"
)

// Pool is the gateway's single shared mutable resource. All mutation is
// serialized behind mu; Snapshot returns copies so callers never observe a
// torn read.
type Pool struct {
	mu      sync.Mutex
	entries []*CredentialEntry
	mode    SelectionMode
	cursor  int // round-robin cursor, advanced under mu

	refresh *refreshGroup
}

// New builds a pool from a set of credential entries. TargetRPM of 0 means
// unlimited for that entry.
func New(mode SelectionMode, entries []CredentialEntry) *Pool {
	p := &Pool{
		mode:    mode,
		entries: make([]*CredentialEntry, len(entries)),
		refresh: newRefreshGroup(),
	}
	for i := range entries {
		e := entries[i]
		e.Index = i
		if e.TargetRPM > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(float64(e.TargetRPM)/60.0), 1)
		}
		p.entries[i] = &e
	}
	return p
}

// Handle is what Acquire hands to a dispatch attempt: enough to sign and
// issue one request, plus the index needed to report back.
type Handle struct {
	Index      int
	AuthMethod AuthMethod

	BearerToken string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// Acquire selects an eligible, non-gated credential. affinityKey, when
// non-empty, pins selection to the same entry across calls as long as that
// entry stays eligible and ungated; otherwise it falls back to the pool's
// configured selection mode.
func (p *Pool) Acquire(affinityKey string) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()

	if affinityKey != "" {
		if e := p.entries[affinityIndex(affinityKey, len(p.entries))]; e.eligible(now) && !e.gated(now) {
			return p.acquireEntry(e, now), nil
		}
	}

	var chosen *CredentialEntry
	switch p.mode {
	case ModeBalanced:
		chosen = p.pickRoundRobin(now)
	default:
		chosen = p.pickPriority(now)
	}

	if chosen == nil {
		return Handle{}, gwerrors.Wrap(gwerrors.QuotaExhausted, "no eligible credential", gwerrors.ErrCredentialsExhausted)
	}
	return p.acquireEntry(chosen, now), nil
}

func (p *Pool) acquireEntry(e *CredentialEntry, now time.Time) Handle {
	e.lastUseAt = now
	if e.limiter != nil {
		e.limiter.AllowN(now, 1)
	}
	return Handle{
		Index:           e.Index,
		AuthMethod:      e.AuthMethod,
		BearerToken:     e.BearerToken,
		AccessKeyID:     e.AccessKeyID,
		SecretAccessKey: e.SecretAccessKey,
		SessionToken:    e.SessionToken,
		Region:          e.Region,
	}
}

// pickPriority returns the lowest-priority-number eligible, ungated entry,
// tie-breaking by the round-robin cursor. Falls back to an eligible-but-
// gated entry only when nothing ungated exists, so gating never starves a
// request while another entry is usable.
func (p *Pool) pickPriority(now time.Time) *CredentialEntry {
	var best, bestGated *CredentialEntry
	for i := 0; i < len(p.entries); i++ {
		e := p.entries[(p.cursor+i)%len(p.entries)]
		if !e.eligible(now) {
			continue
		}
		if e.gated(now) {
			if bestGated == nil || e.Priority < bestGated.Priority {
				bestGated = e
			}
			continue
		}
		if best == nil || e.Priority < best.Priority {
			best = e
		}
	}
	if best != nil {
		p.cursor = (best.Index + 1) % len(p.entries)
		return best
	}
	return bestGated
}

// pickRoundRobin walks forward from the cursor for the next eligible,
// preferably ungated, entry. It does not itself move the cursor: repeated
// calls return the same entry until SwitchToNext (called explicitly on
// failure) or SetDisabled advances the rotation. This keeps a successful
// credential sticky across consecutive requests instead of round-robining
// on every single call regardless of outcome.
func (p *Pool) pickRoundRobin(now time.Time) *CredentialEntry {
	var gatedFallback *CredentialEntry
	for i := 0; i < len(p.entries); i++ {
		idx := (p.cursor + i) % len(p.entries)
		e := p.entries[idx]
		if !e.eligible(now) {
			continue
		}
		if e.gated(now) {
			if gatedFallback == nil {
				gatedFallback = e
			}
			continue
		}
		return e
	}
	return gatedFallback
}

// affinityIndex hashes key (FNV-1a) into one of n buckets, one per pool
// entry whether enabled or not; Acquire falls back to the selection mode
// when the hashed entry is ineligible or gated.
func affinityIndex(key string, n int) int {
	if n == 0 {
		return 0
	}
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return int(h % uint32(n))
}

// ReportSuccess records the time of the latest success for index. It does
// not reset FailureCount.
func (p *Pool) ReportSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.entryAt(index); e != nil {
		e.lastSuccess = time.Now()
	}
}

// ReportFailure records a failure against index. Credential-scoped
// failures increment FailureCount and auto-disable past the threshold.
func (p *Pool) ReportFailure(index int, kind FailureKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entryAt(index)
	if e == nil {
		return
	}
	switch kind {
	case FailureCredentialExhausted, FailureRateLimited:
		e.FailureCount++
		if e.FailureCount >= autoDisableThreshold {
			e.Disabled = true
		}
	}
}

// SwitchToNext advances the round-robin cursor past the current selection,
// skipping disabled/expired entries.
func (p *Pool) SwitchToNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for i := 1; i <= len(p.entries); i++ {
		idx := (p.cursor + i) % len(p.entries)
		if p.entries[idx].eligible(now) {
			p.cursor = idx
			return
		}
	}
}

// Snapshot returns an immutable, consistent view of every entry.
func (p *Pool) Snapshot() []Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Snapshot, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.snapshot()
	}
	return out
}

func (p *Pool) entryAt(index int) *CredentialEntry {
	for _, e := range p.entries {
		if e.Index == index {
			return e
		}
	}
	return nil
}

// SetDisabled enables or disables index. Disabling the entry the cursor
// currently points to advances the cursor so the next Acquire doesn't spin
// through a dead slot.
func (p *Pool) SetDisabled(index int, disabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entryAt(index)
	if e == nil {
		return
	}
	wasCurrent := p.cursor == index
	e.Disabled = disabled
	if disabled && wasCurrent {
		now := time.Now()
		for i := 1; i <= len(p.entries); i++ {
			idx := (index + i) % len(p.entries)
			if p.entries[idx].eligible(now) {
				p.cursor = idx
				break
			}
		}
	}
}

// SetPriority updates index's priority for the priority selection mode.
func (p *Pool) SetPriority(index int, priority uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.entryAt(index); e != nil {
		e.Priority = priority
	}
}

// ResetAndEnable clears failure accounting and enables index.
func (p *Pool) ResetAndEnable(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.entryAt(index); e != nil {
		e.FailureCount = 0
		e.Disabled = false
	}
}
