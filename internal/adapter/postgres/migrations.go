package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NotifyChannel is the LISTEN/NOTIFY channel the change triggers publish on.
const NotifyChannel = "outage_changes"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS barangays (
  id SERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS feeders (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY,
  barangay TEXT
);

CREATE TABLE IF NOT EXISTS announcements (
  id UUID PRIMARY KEY,
  type TEXT,
  status TEXT,
  barangay TEXT,
  areas_affected TEXT[] NOT NULL DEFAULT '{}',
  description TEXT,
  location TEXT,
  cause TEXT,
  feeder_id BIGINT REFERENCES feeders(id),
  scheduled_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  estimated_restoration_at TIMESTAMPTZ,
  latitude DOUBLE PRECISION,
  longitude DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS announcement_images (
  id BIGSERIAL PRIMARY KEY,
  announcement_id UUID NOT NULL REFERENCES announcements(id) ON DELETE CASCADE,
  image_url TEXT NOT NULL,
  UNIQUE (announcement_id, image_url)
);

CREATE TABLE IF NOT EXISTS reports (
  id UUID PRIMARY KEY,
  user_id UUID NOT NULL,
  barangay_id INT REFERENCES barangays(id),
  status TEXT NOT NULL DEFAULT 'pending',
  description TEXT,
  outage_time TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_announcements_created ON announcements(created_at);
CREATE INDEX IF NOT EXISTS idx_announcements_scheduled ON announcements(scheduled_at);
CREATE INDEX IF NOT EXISTS idx_announcements_status ON announcements(lower(status));
CREATE INDEX IF NOT EXISTS idx_announcement_images_announcement ON announcement_images(announcement_id);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id, created_at);
`

const notifySQL = `
CREATE OR REPLACE FUNCTION beacon_notify_change() RETURNS trigger AS $$
DECLARE
  rec RECORD;
BEGIN
  IF TG_OP = 'DELETE' THEN
    rec := OLD;
  ELSE
    rec := NEW;
  END IF;
  PERFORM pg_notify('` + NotifyChannel + `',
    json_build_object('table', TG_TABLE_NAME, 'type', TG_OP, 'id', rec.id)::text);
  RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS announcements_notify ON announcements;
CREATE TRIGGER announcements_notify AFTER INSERT OR UPDATE OR DELETE ON announcements
  FOR EACH ROW EXECUTE FUNCTION beacon_notify_change();

DROP TRIGGER IF EXISTS announcement_images_notify ON announcement_images;
CREATE TRIGGER announcement_images_notify AFTER INSERT OR UPDATE OR DELETE ON announcement_images
  FOR EACH ROW EXECUTE FUNCTION beacon_notify_change();

DROP TRIGGER IF EXISTS feeders_notify ON feeders;
CREATE TRIGGER feeders_notify AFTER INSERT OR UPDATE OR DELETE ON feeders
  FOR EACH ROW EXECUTE FUNCTION beacon_notify_change();
`

// RunMigrations creates the tables the service reads and installs the change
// notification triggers. It is idempotent.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, notifySQL); err != nil {
		return fmt.Errorf("install change triggers: %w", err)
	}
	return nil
}
