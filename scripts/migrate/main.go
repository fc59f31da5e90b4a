// Command migrate applies the database schema. Statements are idempotent so
// the tool can run against an existing database.
package main

import (
	"flag"
	"log"

	"github.com/uniwatch/uniwatch-api/pkg/config"
	"github.com/uniwatch/uniwatch-api/pkg/database"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		phone         TEXT NOT NULL DEFAULT '',
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id              UUID PRIMARY KEY,
		name            TEXT NOT NULL,
		number          INTEGER NOT NULL,
		section         TEXT NOT NULL,
		semester        TEXT NOT NULL,
		year            INTEGER NOT NULL,
		teacher_id      UUID NOT NULL REFERENCES users (id),
		training_status TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (name, number, section, semester, year, teacher_id)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id          UUID PRIMARY KEY,
		class_id    UUID NOT NULL REFERENCES classes (id),
		student_id  UUID NOT NULL REFERENCES users (id),
		person_id   TEXT NOT NULL,
		enrolled_at TIMESTAMPTZ NOT NULL,
		UNIQUE (class_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lectures (
		id          UUID PRIMARY KEY,
		class_id    UUID NOT NULL REFERENCES classes (id),
		record_date TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lecture_images (
		id         UUID PRIMARY KEY,
		lecture_id UUID NOT NULL REFERENCES lectures (id),
		blob_name  TEXT NOT NULL,
		url        TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_attendance (
		id         UUID PRIMARY KEY,
		lecture_id UUID NOT NULL REFERENCES lectures (id),
		student_id UUID NOT NULL REFERENCES users (id),
		present    BOOLEAN NOT NULL,
		UNIQUE (lecture_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS facial_profiles (
		id         UUID PRIMARY KEY,
		student_id UUID NOT NULL UNIQUE REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS facial_profile_images (
		id         UUID PRIMARY KEY,
		profile_id UUID NOT NULL REFERENCES facial_profiles (id),
		blob_name  TEXT NOT NULL,
		url        TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_teacher ON classes (teacher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_class ON enrollments (class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_lectures_class ON lectures (class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_lecture_images_lecture ON lecture_images (lecture_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_lecture ON student_attendance (lecture_id)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_images_profile ON facial_profile_images (profile_id)`,
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("failed to apply statement: %v\n%s", err, stmt)
		}
	}
	log.Printf("schema applied (%d statements)", len(statements))
}
