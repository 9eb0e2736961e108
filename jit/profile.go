package jit

import "sync/atomic"

// Profile is the execution-count side of the hot-path profiler (spec.md
// §3.6): a mapping from cell name to call count, plus the configured
// threshold shared from EngineConfig.
type Profile struct {
	threshold uint64
	counts    map[string]*uint64
}

func newProfile(threshold uint64) *Profile {
	return &Profile{threshold: threshold, counts: map[string]*uint64{}}
}

func (p *Profile) counter(name string) *uint64 {
	c, ok := p.counts[name]
	if !ok {
		var zero uint64
		c = &zero
		p.counts[name] = c
	}
	return c
}

// RecordAndCheck atomically bumps name's call count and returns true
// exactly on the transition from "not hot" to "hot" — never true twice for
// the same transition (spec.md §4.7).
func (p *Profile) RecordAndCheck(name string) bool {
	c := p.counter(name)
	newVal := atomic.AddUint64(c, 1)
	return newVal == p.threshold
}

// Reset zeroes name's counter (called once a cell becomes compiled).
func (p *Profile) Reset(name string) {
	atomic.StoreUint64(p.counter(name), 0)
}

// Count returns name's current call count, for Stats/tests.
func (p *Profile) Count(name string) uint64 {
	return atomic.LoadUint64(p.counter(name))
}
