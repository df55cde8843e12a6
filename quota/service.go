package quota

import (
	"sync"
	"time"
)

// bytesPerMB is the unit conversion used throughout this package: all
// configuration is expressed in MB, all accounting is done in bytes.
const bytesPerMB = 1 << 20

// Config is a single service's static quota policy, as read from
// configuration.
type Config struct {
	// QuotaMB bounds the service's total allotted output size.
	QuotaMB int64
	// JobSizeMB estimates the output a single job will occupy, used to
	// admit or defer submission before anything has actually run.
	JobSizeMB int64
	// MinLifetime protects a terminal job's output from garbage
	// collection until it has existed at least this long.
	MinLifetime time.Duration
	// MaxLifetime forces a terminal (or killed/aborted) job's removal
	// once its reference path is older than this. Zero disables the rule.
	MaxLifetime time.Duration
	// MaxRuntime forces a running job to be aged out once it has run
	// longer than this. Zero disables the rule.
	MaxRuntime time.Duration
}

// Quota returns the service's quota in bytes.
func (c Config) Quota() int64 { return c.QuotaMB * bytesPerMB }

// JobSize returns the per-job size estimate in bytes.
func (c Config) JobSize() int64 { return c.JobSizeMB * bytesPerMB }

// Service tracks one service's live quota accounting: the name, its
// static Config, and the mutable current_size/real_size counters the
// registry updates as jobs move through the lifecycle.
type Service struct {
	Name   string
	Config Config

	mu          sync.Mutex
	currentSize int64
	realSize    int64
	proxied     map[string]struct{}
}

// NewService constructs a Service with zeroed accounting.
func NewService(name string, cfg Config) *Service {
	return &Service{Name: name, Config: cfg, proxied: make(map[string]struct{})}
}

// CurrentSize returns the sum of job_size estimates for jobs the registry
// currently considers proxied (queued or later, not yet removed).
func (s *Service) CurrentSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSize
}

// RealSize returns the service's last measured bytes on disk.
func (s *Service) RealSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.realSize
}

// AddJobProxy accounts for a newly admitted job by adding its job_size
// estimate to current_size. Called when a job moves into queued. Idempotent
// per id: a job already tracked as proxied is not double-counted.
func (s *Service) AddJobProxy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proxied[id]; ok {
		return
	}
	s.proxied[id] = struct{}{}
	s.currentSize += s.Config.JobSize()
}

// RemoveJobProxy removes a job's job_size estimate from current_size.
// Called before a job is removed from the in-memory index, whether by
// garbage collection or client-requested deletion. Idempotent and safe to
// call for an id that was never proxied (e.g. a job aborted before ever
// reaching queued): such a call is a no-op rather than an underflow.
func (s *Service) RemoveJobProxy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proxied[id]; !ok {
		return
	}
	delete(s.proxied, id)
	s.currentSize -= s.Config.JobSize()
	if s.currentSize < 0 {
		s.currentSize = 0
	}
}

// RemoveJob reduces real_size by size after a job's output has been
// physically deleted.
func (s *Service) RemoveJob(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realSize -= size
	if s.realSize < 0 {
		s.realSize = 0
	}
}

// UpdateJob re-measures a single job's contribution to real_size, used on
// startup to reconcile accounting against what is actually on disk.
func (s *Service) UpdateJob(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realSize += size
}
