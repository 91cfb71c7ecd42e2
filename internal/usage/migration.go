package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fastflix/internal/apperr"
	"fastflix/internal/storage"
)

const (
	// LegacyPrefix prefixes counters written under the old anonymous user ID scheme.
	LegacyPrefix = "fastflix_prompts_"

	// MigrationPrefix prefixes the marker written once a legacy ID has been migrated.
	MigrationPrefix = "migration_"
)

// LegacyKey is the legacy counter key for a user and month, e.g. fastflix_prompts_old123_2024-01.
func LegacyKey(oldUserID, month string) string {
	return fmt.Sprintf("%s%s_%s", LegacyPrefix, oldUserID, month)
}

// MigrationKey is the marker key for a legacy user ID.
func MigrationKey(oldUserID string) string {
	return MigrationPrefix + SanitizeKey(oldUserID)
}

// Migrator moves a legacy monthly counter onto a device record exactly once per legacy ID.
type Migrator struct {
	users *Store
	store storage.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewMigrator(users *Store, store storage.Store, log logrus.FieldLogger) *Migrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Migrator{users: users, store: store, log: log.WithField("component", "migration"), now: time.Now}
}

// Migrate copies the current month's legacy count for oldUserID onto newDeviceID. It returns
// false when the migration had already been done. A failed run can be retried.
func (m *Migrator) Migrate(ctx context.Context, oldUserID, newDeviceID string) (bool, error) {
	if strings.TrimSpace(oldUserID) == "" || newDeviceID == "" {
		return false, apperr.New(apperr.Validation, "legacy user id and device id are required")
	}
	log := m.log.WithFields(logrus.Fields{"legacyUserId": oldUserID, "deviceId": newDeviceID})

	markerKey := MigrationKey(oldUserID)
	_, err := m.store.Get(ctx, markerKey)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, apperr.Wrap(apperr.Migration, "read migration marker", err)
	}

	now := m.now()
	month := MonthOf(now)
	legacyKey := LegacyKey(oldUserID, month)
	count, err := m.legacyCount(ctx, legacyKey)
	if err != nil {
		return false, apperr.Wrap(apperr.Migration, "read legacy counter", err)
	}

	rec := &Record{
		DeviceID:           newDeviceID,
		MonthlyPromptCount: count,
		CurrentMonth:       month,
		LegacyUserID:       oldUserID,
	}
	if err := m.users.SetUserData(ctx, rec); err != nil {
		return false, apperr.Wrap(apperr.Migration, "write migrated record", err)
	}
	if err := m.store.Set(ctx, markerKey, now.UTC().Format(time.RFC3339)); err != nil {
		return false, apperr.Wrap(apperr.Migration, "write migration marker", err)
	}

	if err := m.store.Delete(ctx, legacyKey); err != nil {
		log.WithError(err).Warn("failed to delete legacy counter")
	}

	log.WithField("count", count).Info("migrated legacy prompt counter")
	return true, nil
}

// legacyCount parses the legacy value. Absent, unparsable and negative values count as 0.
func (m *Migrator) legacyCount(ctx context.Context, key string) (int, error) {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		m.log.WithField("key", key).WithField("value", raw).Warn("unparsable legacy counter, using 0")
		return 0, nil
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}
