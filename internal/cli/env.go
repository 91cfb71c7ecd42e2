package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"fastflix/internal/apiclient"
	"fastflix/internal/device"
	"fastflix/internal/identity"
	"fastflix/internal/redis"
	"fastflix/internal/storage"
	"fastflix/internal/usage"
)

// env holds the flag values and the lazily opened stores shared by every command.
type env struct {
	dataDir    string
	redisURL   string
	apiURL     string
	token      string
	noKeychain bool

	log      *logrus.Logger
	secure   storage.SecureStore
	general  storage.Store
	closers  []func() error
	identity *identity.Store
	usage    *usage.Store
	session  *device.Session
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fastflix"
	}
	return filepath.Join(dir, "fastflix")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(dataDir string) *logrus.Logger {
	formatter := new(logrus.TextFormatter)
	formatter.TimestampFormat = time.RFC3339
	formatter.FullTimestamp = true

	log := logrus.New()
	log.SetFormatter(formatter)
	log.SetLevel(logrus.InfoLevel)
	log.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(dataDir, "ffx.log"),
		MaxSize:    1, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
	})
	return log
}

// open prepares logging and storage. It is idempotent.
func (e *env) open(ctx context.Context) error {
	if e.session != nil {
		return nil
	}
	if err := os.MkdirAll(e.dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	e.log = newLogger(e.dataDir)

	if e.noKeychain {
		e.secure = storage.NewMemory()
	} else {
		kr := storage.NewKeyring("")
		if err := kr.Probe(); err != nil {
			e.log.WithError(err).Warn("OS keychain unavailable, device identity will not persist")
			e.secure = storage.NewMemory()
		} else {
			e.secure = kr
		}
	}

	if e.redisURL != "" {
		client, err := redis.Connect(ctx, e.redisURL)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, client.Close)
		e.general = storage.NewRedis(client.Client, "ffx")
	} else {
		db, err := storage.OpenSQLite(filepath.Join(e.dataDir, "ffx.db"), e.log)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, db.Close)
		e.general = db
	}

	e.identity = identity.NewStore(e.secure, nil, e.log)
	e.usage = usage.NewStore(e.general, e.log)
	e.session = device.NewSession(e.identity, e.usage, usage.NewMigrator(e.usage, e.general, e.log), e.log)
	return nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && e.log != nil {
			e.log.WithError(err).Warn("close failed")
		}
	}
	e.closers = nil
}

// api returns a backend client carrying the token and this device's ID.
func (e *env) api(ctx context.Context) (*apiclient.Client, error) {
	if err := e.open(ctx); err != nil {
		return nil, err
	}
	deviceID, err := e.identity.GetOrCreateDeviceID(ctx)
	if err != nil {
		return nil, err
	}
	return apiclient.NewClient(e.apiURL, e.token, deviceID), nil
}
