// Package device wires identity, usage and migration into the boot sequence the app runs on launch.
package device

import (
	"context"

	"github.com/sirupsen/logrus"

	"fastflix/internal/apperr"
	"fastflix/internal/identity"
	"fastflix/internal/usage"
)

// BootState is what the app needs after launch.
type BootState struct {
	DeviceID string
	Usage    *usage.Record
	Migrated bool
	// MigrationErr holds the tagged error of a failed migration; the next boot retries it.
	MigrationErr error
	// Degraded is set when the counter could not be read and Usage is a default record.
	Degraded bool
}

type Session struct {
	identity *identity.Store
	usage    *usage.Store
	migrator *usage.Migrator
	log      logrus.FieldLogger
}

func NewSession(identityStore *identity.Store, usageStore *usage.Store, migrator *usage.Migrator, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		identity: identityStore,
		usage:    usageStore,
		migrator: migrator,
		log:      log.WithField("component", "session"),
	}
}

// Boot resolves the device ID, migrates legacyUserID when given, then reads the counter.
// Only a missing device identity fails the boot; counter and migration problems are logged
// and the state falls back to a zero-count record.
func (s *Session) Boot(ctx context.Context, legacyUserID string) (*BootState, error) {
	deviceID, err := s.identity.GetOrCreateDeviceID(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.DeviceID, "resolve device identity", err)
	}
	state := &BootState{DeviceID: deviceID}
	log := s.log.WithField("deviceId", deviceID)

	if legacyUserID != "" && s.migrator != nil {
		migrated, err := s.migrator.Migrate(ctx, legacyUserID, deviceID)
		if err != nil {
			log.WithError(err).WithField("code", apperr.CodeOf(err)).Warn("legacy migration failed, will retry next launch")
			state.MigrationErr = err
		}
		state.Migrated = migrated
	}

	rec, err := s.usage.GetUserData(ctx, deviceID)
	if err != nil {
		log.WithError(err).WithField("code", apperr.CodeOf(err)).Warn("usage read failed, using default record")
		rec = s.usage.DefaultRecord(deviceID)
		state.Degraded = true
	}
	state.Usage = rec
	return state, nil
}

// RecordPrompt counts one prompt for this device and returns the new monthly count, or 0 when
// the count could not be updated.
func (s *Session) RecordPrompt(ctx context.Context) int {
	deviceID, err := s.identity.GetOrCreateDeviceID(ctx)
	if err != nil {
		s.log.WithError(err).Warn("cannot record prompt without a device identity")
		return 0
	}
	n, err := s.usage.IncrementPromptCount(ctx, deviceID)
	if err != nil {
		s.log.WithError(err).WithField("deviceId", deviceID).Warn("prompt increment failed")
		return 0
	}
	return n
}
