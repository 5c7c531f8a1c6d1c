package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS topics (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		name_fold TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id SERIAL PRIMARY KEY,
		uuid TEXT NOT NULL UNIQUE,
		host_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE RESTRICT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		name_fold TEXT NOT NULL DEFAULT '',
		description_fold TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id SERIAL PRIMARY KEY,
		uuid TEXT NOT NULL UNIQUE,
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS room_participants (
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_host_id ON rooms(host_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_topic_id ON rooms(topic_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_room_participants_user_id ON room_participants(user_id)`,
}

func (a *adapter) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := a.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema exec failed: %w", err)
		}
	}
	return nil
}
