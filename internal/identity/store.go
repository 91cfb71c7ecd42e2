package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fastflix/internal/apperr"
	"fastflix/internal/storage"
)

const (
	// StorageKey is the secure-store key holding the device identity.
	StorageKey = "ffx_device_identity"

	// SchemaVersion is written into every stored identity.
	SchemaVersion = "1.0"
)

// DeviceIdentity is the record kept in secure storage.
type DeviceIdentity struct {
	DeviceID     string    `json:"deviceId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
	Version      string    `json:"version"`
}

// Store resolves the device ID, creating and persisting one on first use.
// The resolved ID is cached for the life of the Store.
type Store struct {
	secure    storage.SecureStore
	generator *Generator
	log       logrus.FieldLogger
	now       func() time.Time

	mu     sync.Mutex
	cached *DeviceIdentity
}

func NewStore(secure storage.SecureStore, generator *Generator, log logrus.FieldLogger) *Store {
	if generator == nil {
		generator = NewGenerator()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		secure:    secure,
		generator: generator,
		log:       log.WithField("component", "identity"),
		now:       time.Now,
	}
}

// GetOrCreateDeviceID returns the stored device ID or creates one. Concurrent callers
// share a single creation.
func (s *Store) GetOrCreateDeviceID(ctx context.Context) (string, error) {
	id, err := s.Identity(ctx)
	if err != nil {
		return "", err
	}
	return id.DeviceID, nil
}

// Identity returns a copy of the full identity record, creating it if needed.
func (s *Store) Identity(ctx context.Context) (*DeviceIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		copied := *s.cached
		return &copied, nil
	}

	if existing := s.load(ctx); existing != nil {
		existing.LastAccessed = s.now().UTC()
		if err := s.write(ctx, existing); err != nil {
			s.log.WithError(err).Warn("failed to update lastAccessed")
		}
		s.cached = existing
		copied := *existing
		return &copied, nil
	}

	id, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	created := &DeviceIdentity{DeviceID: id, CreatedAt: now, LastAccessed: now, Version: SchemaVersion}
	if err := s.write(ctx, created); err != nil {
		return nil, apperr.Wrap(apperr.Keychain, "store device identity", err)
	}

	s.log.WithField("deviceId", id).Info("created device identity")
	s.cached = created
	copied := *created
	return &copied, nil
}

// Clear deletes the stored identity and forgets the cached one. A new ID is minted on next use.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if err := s.secure.Delete(ctx, StorageKey); err != nil {
		return apperr.Wrap(apperr.Clear, "delete device identity", err)
	}
	s.log.Info("cleared device identity")
	return nil
}

// load returns the stored identity, or nil when it is absent, unreadable or invalid.
func (s *Store) load(ctx context.Context) *DeviceIdentity {
	raw, err := s.secure.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to read device identity, creating a new one")
		return nil
	}

	var stored DeviceIdentity
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.WithError(err).Warn("stored device identity is corrupt")
		return nil
	}
	if !IsValid(stored.DeviceID) {
		s.log.WithField("deviceId", stored.DeviceID).Warn("stored device identity is invalid")
		return nil
	}
	if stored.Version == "" {
		stored.Version = SchemaVersion
	}
	return &stored
}

func (s *Store) write(ctx context.Context, id *DeviceIdentity) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.secure.Set(ctx, StorageKey, string(payload))
}
