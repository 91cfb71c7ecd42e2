package database

// schema is written in the subset of SQL shared by SQLite (and Turso) and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT,
		name TEXT,
		avatar_url TEXT,
		auth_provider TEXT NOT NULL,
		provider_user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (auth_provider, provider_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS users_email_idx ON users (email)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT REFERENCES users (id) ON DELETE CASCADE,
		device_id TEXT,
		status TEXT NOT NULL,
		product_id TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMP NOT NULL,
		will_renew BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_user_idx ON subscriptions (user_id)`,
	`CREATE INDEX IF NOT EXISTS subscriptions_device_idx ON subscriptions (device_id)`,

	`CREATE TABLE IF NOT EXISTS trials (
		user_id TEXT PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
		trial_started_at TIMESTAMP,
		trial_ends_at TIMESTAMP,
		trial_used BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS watchlist (
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		tmdb_id BIGINT NOT NULL,
		media_type TEXT NOT NULL,
		title TEXT NOT NULL,
		poster_path TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, tmdb_id, media_type)
	)`,
}
