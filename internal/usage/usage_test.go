package usage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastflix/internal/apperr"
	"fastflix/internal/storage"
)

const testDevice = "ffx_device_loyw3v28_AbCdEf0123456789"

// countingStore records every call so tests can assert on exact reads and writes.
type countingStore struct {
	*storage.Memory

	mu      sync.Mutex
	gets    []string
	sets    []string
	deletes []string

	failSet    map[string]bool
	failGet    map[string]bool
	failDelete bool
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: storage.NewMemory(), failSet: map[string]bool{}, failGet: map[string]bool{}}
}

func (c *countingStore) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	c.gets = append(c.gets, key)
	fail := c.failGet[key]
	c.mu.Unlock()
	if fail {
		return "", errors.New("backend down")
	}
	return c.Memory.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets = append(c.sets, key)
	fail := c.failSet[key]
	c.mu.Unlock()
	if fail {
		return errors.New("backend down")
	}
	return c.Memory.Set(ctx, key, value)
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.deletes = append(c.deletes, key)
	c.mu.Unlock()
	if c.failDelete {
		return errors.New("backend down")
	}
	return c.Memory.Delete(ctx, key)
}

func (c *countingStore) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets, c.sets, c.deletes = nil, nil, nil
}

func (c *countingStore) setsOf(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.sets {
		if k == key {
			n++
		}
	}
	return n
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func fixedClock(year int, month time.Month) func() time.Time {
	return func() time.Time { return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC) }
}

func newTestStore(backend storage.Store, now func() time.Time) *Store {
	s := NewStore(backend, quietLogger())
	s.now = now
	return s
}

// =============================================================================
// Keys
// =============================================================================

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "ffx_device_abc-123", SanitizeKey("ffx_device_abc-123"))
	assert.Equal(t, "a_b_c__", SanitizeKey("a.b/c é"))
	assert.Len(t, SanitizeKey(strings.Repeat("x", 250)), 100)
	assert.Equal(t, "ffx_user_data_dev_1", RecordKey("dev:1"))
	assert.Equal(t, "fastflix_prompts_old123_2024-01", LegacyKey("old123", "2024-01"))
	assert.Equal(t, "migration_old_123", MigrationKey("old@123"))
}

// =============================================================================
// Record store
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	backend := newCountingStore()
	s := newTestStore(backend, fixedClock(2024, time.March))
	ctx := context.Background()

	require.NoError(t, s.SetUserData(ctx, &Record{
		DeviceID:           testDevice,
		MonthlyPromptCount: 4,
		CurrentMonth:       "2024-03",
		LegacyUserID:       "old123",
	}))
	got, err := s.GetUserData(ctx, testDevice)

	require.NoError(t, err)
	assert.Equal(t, 4, got.MonthlyPromptCount)
	assert.Equal(t, "2024-03", got.CurrentMonth)
	assert.Equal(t, "old123", got.LegacyUserID)
	assert.True(t, got.LastUpdated.Equal(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
}

func TestStore_MonthRollover(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	require.NoError(t, newTestStore(backend, fixedClock(2023, time.December)).SetUserData(ctx, &Record{
		DeviceID:           testDevice,
		MonthlyPromptCount: 9,
		CurrentMonth:       "2023-12",
	}))
	backend.reset()

	s := newTestStore(backend, fixedClock(2024, time.January))
	got, err := s.GetUserData(ctx, testDevice)

	require.NoError(t, err)
	assert.Equal(t, 0, got.MonthlyPromptCount)
	assert.Equal(t, "2024-01", got.CurrentMonth)
	assert.Equal(t, 1, backend.setsOf(RecordKey(testDevice)), "rollover persists exactly once")

	// The rolled-over record is what is stored now, so a second read writes nothing.
	backend.reset()
	_, err = s.GetUserData(ctx, testDevice)
	require.NoError(t, err)
	assert.Equal(t, 0, backend.setsOf(RecordKey(testDevice)))
}

func TestStore_ReadRawDoesNotReconcile(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	require.NoError(t, newTestStore(backend, fixedClock(2023, time.December)).SetUserData(ctx, &Record{
		DeviceID: testDevice, MonthlyPromptCount: 2, CurrentMonth: "2023-12",
	}))
	backend.reset()

	rec, ok, err := newTestStore(backend, fixedClock(2024, time.February)).ReadRaw(ctx, testDevice)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2023-12", rec.CurrentMonth)
	assert.Empty(t, backend.sets)
}

func TestStore_AbsentRecordNotPersisted(t *testing.T) {
	backend := newCountingStore()
	s := newTestStore(backend, fixedClock(2024, time.May))

	got, err := s.GetUserData(context.Background(), testDevice)

	require.NoError(t, err)
	assert.Equal(t, 0, got.MonthlyPromptCount)
	assert.Equal(t, "2024-05", got.CurrentMonth)
	assert.Empty(t, backend.sets)
}

func TestStore_DefaultRecordFollowsClock(t *testing.T) {
	s := newTestStore(storage.NewMemory(), fixedClock(2023, time.December))

	rec := s.DefaultRecord(testDevice)

	assert.Equal(t, testDevice, rec.DeviceID)
	assert.Equal(t, 0, rec.MonthlyPromptCount)
	assert.Equal(t, "2023-12", rec.CurrentMonth)
	assert.True(t, rec.LastUpdated.Equal(time.Date(2023, time.December, 15, 12, 0, 0, 0, time.UTC)))
}

func TestStore_CorruptRecordTreatedAsAbsent(t *testing.T) {
	backend := newCountingStore()
	require.NoError(t, backend.Memory.Set(context.Background(), RecordKey(testDevice), "{oops"))
	s := newTestStore(backend, fixedClock(2024, time.May))

	got, err := s.GetUserData(context.Background(), testDevice)

	require.NoError(t, err)
	assert.Equal(t, 0, got.MonthlyPromptCount)
}

func TestStore_ReadFailure(t *testing.T) {
	backend := newCountingStore()
	backend.failGet[RecordKey(testDevice)] = true
	s := newTestStore(backend, fixedClock(2024, time.May))

	got, err := s.GetUserData(context.Background(), testDevice)

	assert.Nil(t, got)
	assert.Equal(t, apperr.StorageRead, apperr.CodeOf(err))
}

func TestStore_IncrementIsMonotonic(t *testing.T) {
	s := newTestStore(newCountingStore(), fixedClock(2024, time.June))
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := s.IncrementPromptCount(ctx, testDevice)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	s := newTestStore(newCountingStore(), fixedClock(2024, time.June))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementPromptCount(ctx, testDevice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetUserData(ctx, testDevice)
	require.NoError(t, err)
	assert.Equal(t, 25, got.MonthlyPromptCount)
}

func TestStore_IncrementFailure(t *testing.T) {
	backend := newCountingStore()
	backend.failSet[RecordKey(testDevice)] = true
	s := newTestStore(backend, fixedClock(2024, time.June))

	n, err := s.IncrementPromptCount(context.Background(), testDevice)

	assert.Zero(t, n)
	assert.Equal(t, apperr.Increment, apperr.CodeOf(err))
}

func TestStore_ResetMonthlyCount(t *testing.T) {
	s := newTestStore(newCountingStore(), fixedClock(2024, time.June))
	ctx := context.Background()
	require.NoError(t, s.SetUserData(ctx, &Record{DeviceID: testDevice, MonthlyPromptCount: 7, CurrentMonth: "2024-06", LegacyUserID: "old"}))

	require.NoError(t, s.ResetMonthlyCount(ctx, testDevice))
	got, err := s.GetUserData(ctx, testDevice)

	require.NoError(t, err)
	assert.Equal(t, 0, got.MonthlyPromptCount)
	assert.Equal(t, "old", got.LegacyUserID)
}

func TestStore_ResetFailure(t *testing.T) {
	backend := newCountingStore()
	backend.failSet[RecordKey(testDevice)] = true

	err := newTestStore(backend, fixedClock(2024, time.June)).ResetMonthlyCount(context.Background(), testDevice)

	assert.Equal(t, apperr.Reset, apperr.CodeOf(err))
}

func TestStore_SetUserDataRejectsMissingDevice(t *testing.T) {
	err := newTestStore(newCountingStore(), time.Now).SetUserData(context.Background(), &Record{})

	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}

func TestStore_ClearAll(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	for _, k := range []string{RecordKey("a"), RecordKey("b"), LegacyKey("old", "2024-01"), MigrationKey("old"), "unrelated"} {
		require.NoError(t, backend.Memory.Set(ctx, k, "x"))
	}

	n, err := newTestStore(backend, time.Now).ClearAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	keys, _ := backend.ListKeys(ctx)
	assert.Equal(t, []string{"unrelated"}, keys)
}

// =============================================================================
// Migration
// =============================================================================

func newTestMigrator(backend *countingStore, now func() time.Time) *Migrator {
	m := NewMigrator(newTestStore(backend, now), backend, quietLogger())
	m.now = now
	return m
}

func TestMigrator_MigratesLegacyCount(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	require.NoError(t, backend.Memory.Set(ctx, "fastflix_prompts_old123_2024-01", "2"))
	m := newTestMigrator(backend, fixedClock(2024, time.January))

	migrated, err := m.Migrate(ctx, "old123", testDevice)

	require.NoError(t, err)
	assert.True(t, migrated)

	rec, ok, err := m.users.ReadRaw(ctx, testDevice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rec.MonthlyPromptCount)
	assert.Equal(t, "old123", rec.LegacyUserID)
	assert.Equal(t, "2024-01", rec.CurrentMonth)

	marker, err := backend.Memory.Get(ctx, "migration_old123")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, marker)
	assert.NoError(t, err)

	_, err = backend.Memory.Get(ctx, "fastflix_prompts_old123_2024-01")
	assert.ErrorIs(t, err, storage.ErrNotFound, "legacy key is removed")

	// Rerun leaves the count at 2.
	again, err := m.Migrate(ctx, "old123", testDevice)
	require.NoError(t, err)
	assert.False(t, again)
	rec, _, _ = m.users.ReadRaw(ctx, testDevice)
	assert.Equal(t, 2, rec.MonthlyPromptCount)
}

func TestMigrator_SecondRunOnlyReadsMarker(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	m := newTestMigrator(backend, fixedClock(2024, time.January))
	_, err := m.Migrate(ctx, "old123", testDevice)
	require.NoError(t, err)
	backend.reset()

	migrated, err := m.Migrate(ctx, "old123", testDevice)

	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, []string{"migration_old123"}, backend.gets)
	assert.Empty(t, backend.sets)
	assert.Empty(t, backend.deletes)
}

func TestMigrator_DefaultsBadLegacyValues(t *testing.T) {
	for name, value := range map[string]string{"absent": "", "garbage": "two", "negative": "-4"} {
		t.Run(name, func(t *testing.T) {
			backend := newCountingStore()
			ctx := context.Background()
			if value != "" {
				require.NoError(t, backend.Memory.Set(ctx, "fastflix_prompts_old_2024-01", value))
			}
			m := newTestMigrator(backend, fixedClock(2024, time.January))

			migrated, err := m.Migrate(ctx, "old", testDevice)

			require.NoError(t, err)
			assert.True(t, migrated)
			rec, _, _ := m.users.ReadRaw(ctx, testDevice)
			assert.Equal(t, 0, rec.MonthlyPromptCount)
		})
	}
}

func TestMigrator_MarkerWriteFailureIsRetryable(t *testing.T) {
	backend := newCountingStore()
	ctx := context.Background()
	require.NoError(t, backend.Memory.Set(ctx, "fastflix_prompts_old_2024-01", "3"))
	backend.failSet["migration_old"] = true
	m := newTestMigrator(backend, fixedClock(2024, time.January))

	_, err := m.Migrate(ctx, "old", testDevice)
	assert.Equal(t, apperr.Migration, apperr.CodeOf(err))

	backend.failSet["migration_old"] = false
	migrated, err := m.Migrate(ctx, "old", testDevice)

	require.NoError(t, err)
	assert.True(t, migrated)
	rec, _, _ := m.users.ReadRaw(ctx, testDevice)
	assert.Equal(t, 3, rec.MonthlyPromptCount)
}

func TestMigrator_LegacyDeleteFailureIsSwallowed(t *testing.T) {
	backend := newCountingStore()
	backend.failDelete = true
	m := newTestMigrator(backend, fixedClock(2024, time.January))

	migrated, err := m.Migrate(context.Background(), "old", testDevice)

	require.NoError(t, err)
	assert.True(t, migrated)
}

func TestMigrator_MarkerReadFailure(t *testing.T) {
	backend := newCountingStore()
	backend.failGet["migration_old"] = true
	m := newTestMigrator(backend, fixedClock(2024, time.January))

	_, err := m.Migrate(context.Background(), "old", testDevice)

	assert.Equal(t, apperr.Migration, apperr.CodeOf(err))
}

func TestMigrator_RequiresIDs(t *testing.T) {
	m := newTestMigrator(newCountingStore(), time.Now)

	_, err := m.Migrate(context.Background(), " ", testDevice)

	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}
