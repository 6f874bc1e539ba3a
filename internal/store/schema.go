package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table the service needs. Safe to call on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS admins (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS hackathons (
    id                BIGSERIAL PRIMARY KEY,
    title             TEXT NOT NULL,
    slug              TEXT NOT NULL DEFAULT '',
    client_name       TEXT,
    execution_date    DATE,
    executed_by       TEXT,
    description       TEXT NOT NULL,
    registration_link TEXT,
    skills_focused    TEXT,
    status            TEXT NOT NULL DEFAULT 'scheduled'
                      CHECK (status IN ('scheduled', 'upcoming', 'ongoing', 'completed', 'deleted')),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_hackathons_status ON hackathons(status);

CREATE TABLE IF NOT EXISTS candidates (
    id           BIGSERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL UNIQUE,
    phone        TEXT NOT NULL DEFAULT '',
    age          INTEGER,
    degree       TEXT NOT NULL DEFAULT '',
    university   TEXT NOT NULL DEFAULT '',
    batch        TEXT NOT NULL DEFAULT '',
    skills       TEXT NOT NULL DEFAULT '',
    qr_code      TEXT UNIQUE,
    qr_image_url TEXT NOT NULL DEFAULT '',
    photo_url    TEXT NOT NULL DEFAULT '',
    resume_path  TEXT NOT NULL DEFAULT '',
    selfie_path  TEXT NOT NULL DEFAULT '',
    hackathon_id BIGINT REFERENCES hackathons(id) ON DELETE SET NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_candidates_name ON candidates(name);
CREATE INDEX IF NOT EXISTS idx_candidates_email_phone ON candidates(email, phone);

CREATE TABLE IF NOT EXISTS attendance (
    id              BIGSERIAL PRIMARY KEY,
    candidate_id    BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
    attendance_date DATE NOT NULL,
    check_in_time   TIMESTAMPTZ NOT NULL,
    check_out_time  TIMESTAMPTZ,
    status          TEXT NOT NULL DEFAULT 'present' CHECK (status IN ('present', 'checked_out')),
    CONSTRAINT uq_attendance_candidate_day UNIQUE (candidate_id, attendance_date),
    CONSTRAINT ck_attendance_checkout_after_checkin
        CHECK (check_out_time IS NULL OR check_out_time >= check_in_time)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(attendance_date);
CREATE INDEX IF NOT EXISTS idx_attendance_check_in ON attendance(check_in_time DESC, id DESC);

CREATE TABLE IF NOT EXISTS squads (
    id           BIGSERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    hackathon_id BIGINT REFERENCES hackathons(id) ON DELETE SET NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS squad_members (
    squad_id     BIGINT NOT NULL REFERENCES squads(id) ON DELETE CASCADE,
    candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
    PRIMARY KEY (squad_id, candidate_id)
);

CREATE INDEX IF NOT EXISTS idx_squad_members_candidate ON squad_members(candidate_id);
`
