package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
)

func seedViolation(t *testing.T, store *memViolationStore, class, violationType string, targetType models.TargetType, studentName *string, date time.Time) {
	t.Helper()
	guard := NewDuplicateGuard(store, nil)
	v := &models.Violation{
		ReporterID:     "teacher-1",
		TargetType:     targetType,
		StudentName:    studentName,
		ViolatingClass: class,
		ViolationDate:  date,
		ViolationType:  violationType,
		DedupBucket:    guard.Bucket(violationType),
		Status:         models.StatusReported,
	}
	require.NoError(t, store.Create(context.Background(), v))
}

func TestDuplicateGuardExactType(t *testing.T) {
	store := newMemViolationStore()
	guard := NewDuplicateGuard(store, nil)
	day := localDate(2026, time.March, 9, 8, 0, 0)

	seedViolation(t, store, "10A1", "Mất trật tự", models.TargetClass, nil, day)

	exists, err := guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "10A1",
		TargetType:     models.TargetClass,
		ViolationType:  "Mất trật tự",
	}, day)
	require.NoError(t, err)
	assert.True(t, exists)

	// A different non-attendance type for the same class and day is fine.
	exists, err = guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "10A1",
		TargetType:     models.TargetClass,
		ViolationType:  "Không đồng phục",
	}, day)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDuplicateGuardAttendanceBucket(t *testing.T) {
	store := newMemViolationStore()
	guard := NewDuplicateGuard(store, nil)
	day := localDate(2026, time.March, 9, 8, 0, 0)
	name := "Nguyễn Văn An"

	seedViolation(t, store, "11B3", catalog.AbsenceExcusedType, models.TargetStudent, &name, day)

	// Any other attendance type for the same student collides with the bucket.
	exists, err := guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "11B3",
		TargetType:     models.TargetStudent,
		StudentName:    &name,
		ViolationType:  "Nghỉ học không phép",
	}, day)
	require.NoError(t, err)
	assert.True(t, exists)

	// The same student on a different day does not.
	exists, err = guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "11B3",
		TargetType:     models.TargetStudent,
		StudentName:    &name,
		ViolationType:  catalog.AbsenceExcusedType,
	}, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDuplicateGuardSubjectIsolation(t *testing.T) {
	store := newMemViolationStore()
	guard := NewDuplicateGuard(store, nil)
	day := localDate(2026, time.March, 9, 8, 0, 0)
	an := "Nguyễn Văn An"
	binh := "Trần Bình"

	seedViolation(t, store, "12C2", "Mất trật tự", models.TargetStudent, &an, day)

	// A class-level record of the same type does not collide with the
	// student-level one.
	exists, err := guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "12C2",
		TargetType:     models.TargetClass,
		ViolationType:  "Mất trật tự",
	}, day)
	require.NoError(t, err)
	assert.False(t, exists)

	// Neither does a different student in the same class.
	exists, err = guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "12C2",
		TargetType:     models.TargetStudent,
		StudentName:    &binh,
		ViolationType:  "Mất trật tự",
	}, day)
	require.NoError(t, err)
	assert.False(t, exists)

	// A different class is a different subject entirely.
	exists, err = guard.Exists(context.Background(), &models.Violation{
		ViolatingClass: "12C3",
		TargetType:     models.TargetStudent,
		StudentName:    &an,
		ViolationType:  "Mất trật tự",
	}, day)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDuplicateGuardBucket(t *testing.T) {
	guard := NewDuplicateGuard(newMemViolationStore(), nil)

	assert.Equal(t, models.AttendanceBucket, guard.Bucket(catalog.AbsenceExcusedType))
	assert.Equal(t, models.AttendanceBucket, guard.Bucket("Đi học muộn không phép"))
	assert.Equal(t, "Mất trật tự", guard.Bucket("Mất trật tự"))
}

func TestDuplicateGuardKey(t *testing.T) {
	guard := NewDuplicateGuard(newMemViolationStore(), nil)
	day := localDate(2026, time.March, 9, 13, 0, 0)
	name := "  Nguyễn Văn An "

	a := guard.Key(&models.Violation{
		ViolatingClass: "10A1",
		TargetType:     models.TargetStudent,
		StudentName:    &name,
		ViolationType:  catalog.AbsenceExcusedType,
	}, day)
	trimmed := "nguyễn văn an"
	b := guard.Key(&models.Violation{
		ViolatingClass: "10A1",
		TargetType:     models.TargetStudent,
		StudentName:    &trimmed,
		ViolationType:  "Nghỉ học không phép",
	}, day)

	// Same student, same day, same attendance bucket: identical keys even
	// with different raw spelling and a different attendance type.
	assert.Equal(t, a, b)

	c := guard.Key(&models.Violation{
		ViolatingClass: "10A1",
		TargetType:     models.TargetClass,
		ViolationType:  catalog.AbsenceExcusedType,
	}, day)
	assert.NotEqual(t, a, c)
}
