package cache

import "time"

// Metrics receives cache lifecycle events. Labels are operation namespaces.
type Metrics interface {
	Hit(namespace string)
	Miss(namespace string)
	// Bypass is a call with a non-positive TTL that skipped the cache entirely.
	Bypass(namespace string)
	// Coalesced is a caller that shared another caller's in-flight computation.
	Coalesced(namespace string)
	Loaded(namespace string, took time.Duration, err error)
	Evicted(n int)
}

// NoopMetrics ignores every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)                          {}
func (NoopMetrics) Miss(string)                         {}
func (NoopMetrics) Bypass(string)                       {}
func (NoopMetrics) Coalesced(string)                    {}
func (NoopMetrics) Loaded(string, time.Duration, error) {}
func (NoopMetrics) Evicted(int)                         {}
