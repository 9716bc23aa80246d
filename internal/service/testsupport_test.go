package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// memViolationStore is an in-memory violation store for service tests. It
// enforces the same unique dedup key as the violations_dedup_key index so
// concurrency tests exercise the storage backstop.
type memViolationStore struct {
	mu         sync.Mutex
	byID       map[string]*models.Violation
	dedupKeys  map[string]string
	insertSeq  int
	createHook func()
}

func newMemViolationStore() *memViolationStore {
	return &memViolationStore{
		byID:      make(map[string]*models.Violation),
		dedupKeys: make(map[string]string),
	}
}

func dedupKeyOf(v *models.Violation) string {
	day, _ := DayBounds(v.ViolationDate)
	student := ""
	if v.StudentName != nil {
		student = *v.StudentName
	}
	return strings.Join([]string{v.ViolatingClass, day.Format("2006-01-02"), v.DedupBucket, string(v.TargetType), student}, "|")
}

func (m *memViolationStore) Create(_ context.Context, v *models.Violation) error {
	if m.createHook != nil {
		m.createHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dedupKeyOf(v)
	if _, exists := m.dedupKeys[key]; exists {
		return appErrors.ErrDuplicateViolation
	}
	if v.ID == "" {
		m.insertSeq++
		v.ID = fmt.Sprintf("v-%04d", m.insertSeq)
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	clone := *v
	m.byID[v.ID] = &clone
	m.dedupKeys[key] = v.ID
	return nil
}

func (m *memViolationStore) Update(_ context.Context, v *models.Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[v.ID]
	if !ok {
		return appErrors.ErrNotFound
	}
	delete(m.dedupKeys, dedupKeyOf(old))
	key := dedupKeyOf(v)
	if owner, exists := m.dedupKeys[key]; exists && owner != v.ID {
		m.dedupKeys[dedupKeyOf(old)] = old.ID
		return appErrors.ErrDuplicateViolation
	}
	v.UpdatedAt = time.Now().UTC()
	clone := *v
	m.byID[v.ID] = &clone
	m.dedupKeys[key] = v.ID
	return nil
}

func (m *memViolationStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	delete(m.dedupKeys, dedupKeyOf(v))
	delete(m.byID, id)
	return nil
}

func (m *memViolationStore) FindByID(_ context.Context, id string) (*models.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (m *memViolationStore) List(_ context.Context, filter models.ViolationFilter) ([]models.Violation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Violation
	for _, v := range m.byID {
		if filter.ViolatingClass != "" && v.ViolatingClass != filter.ViolatingClass {
			continue
		}
		if filter.Grade != 0 && v.Grade != filter.Grade {
			continue
		}
		out = append(out, *v)
	}
	return out, len(out), nil
}

func (m *memViolationStore) CountMatching(_ context.Context, probe models.DuplicateProbe) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.byID {
		if v.ViolatingClass != probe.ViolatingClass {
			continue
		}
		if v.ViolationDate.Before(probe.DayStart) || v.ViolationDate.After(probe.DayEnd) {
			continue
		}
		typeMatch := false
		for _, t := range probe.Types {
			if v.ViolationType == t {
				typeMatch = true
				break
			}
		}
		if !typeMatch {
			continue
		}
		if v.TargetType != probe.TargetType {
			continue
		}
		if probe.TargetType == models.TargetStudent {
			name := ""
			if probe.StudentName != nil {
				name = *probe.StudentName
			}
			if v.StudentName == nil || *v.StudentName != name {
				continue
			}
		}
		count++
	}
	return count, nil
}

func (m *memViolationStore) ListInRange(_ context.Context, from, to time.Time) ([]models.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Violation
	for _, v := range m.byID {
		if v.ViolationDate.Before(from) || v.ViolationDate.After(to) {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (m *memViolationStore) DistinctClasses(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, v := range m.byID {
		if _, ok := seen[v.ViolatingClass]; ok {
			continue
		}
		seen[v.ViolatingClass] = struct{}{}
		out = append(out, v.ViolatingClass)
	}
	return out, nil
}

func (m *memViolationStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memLogStore collects audit entries.
type memLogStore struct {
	mu      sync.Mutex
	entries []models.ViolationLog
}

func (m *memLogStore) Append(_ context.Context, entry *models.ViolationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLogStore) ListByViolation(_ context.Context, violationID string) ([]models.ViolationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ViolationLog
	for _, e := range m.entries {
		if e.ViolationID == violationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fixedSettings serves a static submission snapshot.
type fixedSettings struct {
	snapshot SubmissionSettings
	err      error
}

func (f *fixedSettings) SubmissionSnapshot(context.Context) (SubmissionSettings, error) {
	return f.snapshot, f.err
}

// recordingCache counts invalidations.
type recordingCache struct {
	mu          sync.Mutex
	invalidated int
}

func (r *recordingCache) DeleteByPattern(context.Context, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated++
	return nil
}

// recordingEvidence collects released refs.
type recordingEvidence struct {
	released []string
}

func (r *recordingEvidence) Release(_ context.Context, refs []string) error {
	r.released = append(r.released, refs...)
	return nil
}

func strPtr(s string) *string { return &s }

// localDate builds an instant in the school timezone.
func localDate(year int, month time.Month, day, hour, minute, sec int) time.Time {
	return time.Date(year, month, day, hour, minute, sec, 0, SchoolZone)
}
