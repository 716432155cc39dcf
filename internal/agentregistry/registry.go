// Package agentregistry tracks known agents — the local host and any
// connected peers — and reaps ones that have gone silent past their TTL.
package agentregistry

import (
	"sort"
	"sync"
	"time"

	"github.com/cloi-dev/hub/internal/hubcore"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Registry is a single-writer, concurrent-read store of AgentRecords.
// The host's own record is exempt from reaping.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*hubcore.AgentRecord

	ttl          time.Duration
	hostIdentity string
	now          Clock
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithClock overrides the time source, for deterministic tests.
func WithClock(clock Clock) Option {
	return func(r *Registry) { r.now = clock }
}

// New creates a Registry. ttl is the duration of silence after which a
// non-host agent is eligible for reaping. hostIdentity names the
// record that Reap must never evict.
func New(ttl time.Duration, hostIdentity string, opts ...Option) *Registry {
	r := &Registry{
		byID:         make(map[string]*hubcore.AgentRecord),
		ttl:          ttl,
		hostIdentity: hostIdentity,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts or fully replaces the record for rec.Identity,
// stamping LastSeen to the current time and Status to active.
func (r *Registry) Register(rec hubcore.AgentRecord) hubcore.AgentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.LastSeen = r.now()
	rec.Status = hubcore.AgentStatusActive
	stored := rec
	r.byID[rec.Identity] = &stored
	return stored
}

// Touch refreshes LastSeen for identity and marks it active again if
// it had expired. It reports false if identity is unknown.
func (r *Registry) Touch(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[identity]
	if !ok {
		return false
	}
	rec.LastSeen = r.now()
	rec.Status = hubcore.AgentStatusActive
	return true
}

// Get returns a copy of the record for identity.
func (r *Registry) Get(identity string) (hubcore.AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[identity]
	if !ok {
		return hubcore.AgentRecord{}, false
	}
	return *rec, true
}

// Remove deletes identity unconditionally, including the host record.
func (r *Registry) Remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, identity)
}

// Find returns every active non-host record whose capability set is a
// superset of required, ordered by LastSeen descending then Identity
// ascending for deterministic dispatch.
func (r *Registry) Find(required []string) []hubcore.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]hubcore.AgentRecord, 0, len(r.byID))
	for id, rec := range r.byID {
		if id == r.hostIdentity {
			continue
		}
		if rec.Status != hubcore.AgentStatusActive {
			continue
		}
		if !rec.HasCapabilities(required) {
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// All returns a copy of every record, regardless of status, ordered by
// Identity ascending.
func (r *Registry) All() []hubcore.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]hubcore.AgentRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Reap marks every non-host record whose LastSeen is older than ttl as
// expired, returning the identities it changed. It never touches the
// host record, matching the single-local-process model.
func (r *Registry) Reap() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	var reaped []string
	for id, rec := range r.byID {
		if id == r.hostIdentity {
			continue
		}
		if rec.Status == hubcore.AgentStatusExpired {
			continue
		}
		if rec.LastSeen.Before(cutoff) {
			rec.Status = hubcore.AgentStatusExpired
			reaped = append(reaped, id)
		}
	}
	sort.Strings(reaped)
	return reaped
}

// Len returns the total number of records, active or expired.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
