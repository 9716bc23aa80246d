package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

func newAbsenceFixture(store *memViolationStore, settings SubmissionSettings) *AbsenceService {
	guard := NewDuplicateGuard(store, nil)
	return NewAbsenceService(store, guard, NewSubmissionWindow(), &fixedSettings{snapshot: settings}, &recordingCache{}, nil, nil)
}

func configuredSettings() SubmissionSettings {
	return SubmissionSettings{SystemReporterID: "system-bot"}
}

func TestAbsenceSubmitMorning(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, configuredSettings())
	morning := localDate(2026, time.March, 9, 6, 0, 0)

	result, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10a1", Reason: "ốm"},
		{Name: "Trần Bình", ClassName: "11B3"},
	}, morning)

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.Equal(t, []string{"Nguyễn Văn An", "Trần Bình"}, result.SuccessfulStudents)
	assert.True(t, localDate(2026, time.March, 9, 0, 0, 0).Equal(result.ViolationDate))

	violations, _, err := store.List(context.Background(), models.ViolationFilter{ViolatingClass: "10A1"})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, "system-bot", v.ReporterID)
	assert.Equal(t, catalog.AbsenceExcusedType, v.ViolationType)
	assert.Equal(t, "10A1", v.ViolatingClass)
	assert.Equal(t, 10, v.Grade)
	require.NotNil(t, v.RequesterName)
	assert.Equal(t, "Nguyễn Thị Hoa", *v.RequesterName)
	require.NotNil(t, v.Details)
	assert.Equal(t, "ốm", *v.Details)
}

func TestAbsenceSubmitAfternoonTargetsTomorrow(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, configuredSettings())

	result, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
	}, localDate(2026, time.March, 9, 14, 30, 0))

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.True(t, localDate(2026, time.March, 10, 0, 0, 0).Equal(result.ViolationDate))
}

func TestAbsenceSubmitOutsideWindow(t *testing.T) {
	svc := newAbsenceFixture(newMemViolationStore(), configuredSettings())

	_, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
	}, localDate(2026, time.March, 9, 9, 0, 0))

	assert.True(t, errors.Is(err, appErrors.ErrOutsideWindow))
}

func TestAbsenceSubmitDebugModeBypassesWindow(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, SubmissionSettings{DebugMode: true, SystemReporterID: "system-bot"})

	result, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
	}, localDate(2026, time.March, 9, 9, 0, 0))

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	// Debug behaves as the morning window: the request targets today.
	assert.True(t, localDate(2026, time.March, 9, 0, 0, 0).Equal(result.ViolationDate))
}

func TestAbsenceSubmitBatchPreconditions(t *testing.T) {
	morning := localDate(2026, time.March, 9, 6, 0, 0)
	students := []AbsenceStudent{{Name: "Nguyễn Văn An", ClassName: "10A1"}}

	t.Run("requester too short", func(t *testing.T) {
		svc := newAbsenceFixture(newMemViolationStore(), configuredSettings())
		_, err := svc.Submit(context.Background(), " A ", students, morning)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidRequesterName))
	})

	t.Run("requester length counted in runes", func(t *testing.T) {
		svc := newAbsenceFixture(newMemViolationStore(), configuredSettings())
		// Two runes, four UTF-8 bytes: valid.
		_, err := svc.Submit(context.Background(), "Hà", students, morning)
		assert.NoError(t, err)
	})

	t.Run("empty batch", func(t *testing.T) {
		svc := newAbsenceFixture(newMemViolationStore(), configuredSettings())
		_, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", nil, morning)
		assert.True(t, errors.Is(err, appErrors.ErrEmptyBatch))
	})

	t.Run("system reporter not configured", func(t *testing.T) {
		svc := newAbsenceFixture(newMemViolationStore(), SubmissionSettings{})
		_, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", students, morning)
		assert.True(t, errors.Is(err, appErrors.ErrSystemNotConfigured))
	})
}

func TestAbsenceSubmitSkipsDoNotAbortSiblings(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, configuredSettings())
	morning := localDate(2026, time.March, 9, 6, 0, 0)

	// Seed a committed absence for An so the resubmission is a duplicate.
	first, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
	}, morning)
	require.NoError(t, err)
	require.Equal(t, 1, first.SuccessCount)

	result, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
		{Name: "Trần Bình", ClassName: "99Z9"},
		{Name: "Lê Chi", ClassName: "11B3"},
	}, morning)

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Equal(t, []string{"Lê Chi"}, result.SuccessfulStudents)
	require.Len(t, result.SkippedStudents, 2)
	assert.Equal(t, skipReasonDuplicate, result.SkippedStudents[0].Reason)
	assert.Equal(t, "Nguyễn Văn An", result.SkippedStudents[0].Name)
	assert.Equal(t, skipReasonInvalidClass, result.SkippedStudents[1].Reason)
	assert.Equal(t, "99Z9", result.SkippedStudents[1].ClassName)
}

func TestAbsenceSubmitInBatchSiblingDuplicate(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, configuredSettings())

	result, err := svc.Submit(context.Background(), "Nguyễn Thị Hoa", []AbsenceStudent{
		{Name: "Nguyễn Văn An", ClassName: "10A1"},
		{Name: "nguyễn văn an", ClassName: "10a1"},
	}, localDate(2026, time.March, 9, 6, 0, 0))

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, skipReasonDuplicate, result.SkippedStudents[0].Reason)
	assert.Equal(t, 1, store.count())
}

func TestAbsenceSubmitConcurrentSameStudent(t *testing.T) {
	store := newMemViolationStore()
	svc := newAbsenceFixture(store, configuredSettings())
	morning := localDate(2026, time.March, 9, 6, 0, 0)
	students := []AbsenceStudent{{Name: "Nguyễn Văn An", ClassName: "10A1"}}

	// Hold every submitter at the store boundary until all have passed the
	// guard's read, so the unique key is the only thing preventing double
	// commit.
	const submitters = 8
	var gate sync.WaitGroup
	gate.Add(submitters)
	ready := make(chan struct{})
	store.createHook = func() {
		gate.Done()
		<-ready
	}

	results := make([]*AbsenceSubmitResult, submitters)
	errs := make([]error, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Submit(context.Background(), "Nguyễn Thị Hoa", students, morning)
		}(i)
	}
	gate.Wait()
	close(ready)
	wg.Wait()

	accepted := 0
	for i := 0; i < submitters; i++ {
		require.NoError(t, errs[i])
		accepted += results[i].SuccessCount
		if results[i].SuccessCount == 0 {
			assert.Equal(t, skipReasonDuplicate, results[i].SkippedStudents[0].Reason)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, store.count())
}
