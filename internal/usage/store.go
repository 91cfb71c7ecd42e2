// Package usage keeps the per-device monthly prompt counter and migrates counters written
// under the legacy anonymous user ID scheme.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fastflix/internal/apperr"
	"fastflix/internal/storage"
)

const (
	// UserDataPrefix prefixes the key of every device record.
	UserDataPrefix = "ffx_user_data_"

	monthLayout   = "2006-01"
	maxKeyPartLen = 100
)

// Record is the persisted usage state of one device.
type Record struct {
	DeviceID           string    `json:"deviceId"`
	MonthlyPromptCount int       `json:"monthlyPromptCount"`
	CurrentMonth       string    `json:"currentMonth"`
	LastUpdated        time.Time `json:"lastUpdated"`
	LegacyUserID       string    `json:"legacyUserId,omitempty"`
}

// Store reads and writes device records. Within one process, increments for the same device
// are serialized; concurrent writers in other processes can still lose an update.
type Store struct {
	store storage.Store
	log   logrus.FieldLogger
	now   func() time.Time

	locks sync.Map // record key -> *sync.Mutex
}

func NewStore(store storage.Store, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{store: store, log: log.WithField("component", "usage"), now: time.Now}
}

// SanitizeKey replaces anything outside [A-Za-z0-9_-] with '_' and caps the length.
func SanitizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxKeyPartLen {
			break
		}
	}
	return b.String()
}

// RecordKey is the storage key for a device's record.
func RecordKey(deviceID string) string {
	return UserDataPrefix + SanitizeKey(deviceID)
}

// MonthOf formats t as YYYY-MM.
func MonthOf(t time.Time) string {
	return t.Format(monthLayout)
}

func (s *Store) currentMonth() string {
	return MonthOf(s.now())
}

// DefaultRecord is a zero-count record for the store's current month. Callers fall back to it
// on error.
func (s *Store) DefaultRecord(deviceID string) *Record {
	now := s.now()
	return &Record{DeviceID: deviceID, CurrentMonth: MonthOf(now), LastUpdated: now.UTC()}
}

// ReadRaw returns the stored record without any month adjustment. ok is false when there is
// no record or the stored value is corrupt.
func (s *Store) ReadRaw(ctx context.Context, deviceID string) (*Record, bool, error) {
	key := RecordKey(deviceID)
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.StorageRead, "read usage record", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("corrupt usage record, treating as absent")
		return nil, false, nil
	}
	if rec.DeviceID == "" {
		rec.DeviceID = deviceID
	}
	return &rec, true, nil
}

// ReconcileMonth resets the counter when rec belongs to an earlier month and persists the
// reset. changed reports whether a reset happened.
func (s *Store) ReconcileMonth(ctx context.Context, rec *Record) (*Record, bool, error) {
	month := s.currentMonth()
	if rec.CurrentMonth == month {
		return rec, false, nil
	}

	rolled := *rec
	rolled.MonthlyPromptCount = 0
	rolled.CurrentMonth = month
	if err := s.write(ctx, &rolled); err != nil {
		return nil, false, apperr.Wrap(apperr.StorageWrite, "persist month rollover", err)
	}
	s.log.WithFields(logrus.Fields{"deviceId": rec.DeviceID, "from": rec.CurrentMonth, "to": month}).
		Info("monthly prompt count rolled over")
	return &rolled, true, nil
}

// GetUserData returns the device's record for the current month. A device with no record gets
// a zero-count record that is not persisted until the first write.
func (s *Store) GetUserData(ctx context.Context, deviceID string) (*Record, error) {
	rec, ok, err := s.ReadRaw(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.DefaultRecord(deviceID), nil
	}
	rec, _, err = s.ReconcileMonth(ctx, rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetUserData stamps LastUpdated and overwrites the stored record.
func (s *Store) SetUserData(ctx context.Context, rec *Record) error {
	if rec == nil || rec.DeviceID == "" {
		return apperr.New(apperr.Validation, "record has no device id")
	}
	if err := s.write(ctx, rec); err != nil {
		return apperr.Wrap(apperr.StorageWrite, "write usage record", err)
	}
	return nil
}

// IncrementPromptCount adds one prompt for the current month and returns the new count.
func (s *Store) IncrementPromptCount(ctx context.Context, deviceID string) (int, error) {
	unlock := s.lock(deviceID)
	defer unlock()

	rec, err := s.GetUserData(ctx, deviceID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Increment, "read before increment", err)
	}
	rec.MonthlyPromptCount++
	if err := s.write(ctx, rec); err != nil {
		return 0, apperr.Wrap(apperr.Increment, "persist increment", err)
	}
	return rec.MonthlyPromptCount, nil
}

// ResetMonthlyCount sets the current month's count to zero, keeping any legacy link.
func (s *Store) ResetMonthlyCount(ctx context.Context, deviceID string) error {
	unlock := s.lock(deviceID)
	defer unlock()

	rec, ok, err := s.ReadRaw(ctx, deviceID)
	if err != nil {
		return apperr.Wrap(apperr.Reset, "read before reset", err)
	}
	if !ok {
		rec = &Record{DeviceID: deviceID}
	}
	rec.MonthlyPromptCount = 0
	rec.CurrentMonth = s.currentMonth()
	if err := s.write(ctx, rec); err != nil {
		return apperr.Wrap(apperr.Reset, "persist reset", err)
	}
	return nil
}

// ClearAll deletes every device record, legacy counter and migration marker. It returns the
// number of keys removed.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.Clear, "list keys", err)
	}

	var owned []string
	for _, k := range keys {
		if strings.HasPrefix(k, UserDataPrefix) || strings.HasPrefix(k, LegacyPrefix) || strings.HasPrefix(k, MigrationPrefix) {
			owned = append(owned, k)
		}
	}
	if err := s.store.DeleteMany(ctx, owned); err != nil {
		return 0, apperr.Wrap(apperr.Clear, "delete keys", err)
	}
	s.log.WithField("keys", len(owned)).Info("cleared usage data")
	return len(owned), nil
}

func (s *Store) write(ctx context.Context, rec *Record) error {
	rec.LastUpdated = s.now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, RecordKey(rec.DeviceID), string(payload))
}

func (s *Store) lock(deviceID string) func() {
	v, _ := s.locks.LoadOrStore(RecordKey(deviceID), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
