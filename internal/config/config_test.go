package config

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("TOKEN_MAX_AGE", "")
	t.Setenv("TRIAL_DAYS", "not-a-number")
	t.Setenv("ADMIN_EMAILS", " admin@fastflix.app, ,ops@fastflix.app ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.TokenMaxAge != 30*24*60*60 {
		t.Errorf("TokenMaxAge = %d, want 30 days", cfg.TokenMaxAge)
	}
	if cfg.TrialDays != 7 {
		t.Errorf("TrialDays = %d, want 7", cfg.TrialDays)
	}
	if cfg.HTTPTimeoutSeconds != 30 {
		t.Errorf("HTTPTimeoutSeconds = %d, want 30", cfg.HTTPTimeoutSeconds)
	}
	if len(cfg.AdminEmails) != 2 {
		t.Fatalf("AdminEmails = %v, want 2 entries", cfg.AdminEmails)
	}
	if !cfg.IsAdminEmail("ADMIN@fastflix.app") {
		t.Error("admin lookup should be case-insensitive")
	}
	if cfg.IsAdminEmail("") {
		t.Error("empty email must never be admin")
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}

func TestValidate_Postgres(t *testing.T) {
	cfg := &Config{JWTSecret: "s", DBDriver: DriverPostgres}
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without host should fail validation")
	}

	cfg.DBHost = "localhost"
	cfg.DBName = "fastflix"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.DBDriver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail validation")
	}
}
