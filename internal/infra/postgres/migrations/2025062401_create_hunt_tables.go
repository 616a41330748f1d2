package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createHuntTablesSQL = `
CREATE TABLE IF NOT EXISTS challenges (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	points INTEGER NOT NULL DEFAULT 0,
	answer TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS teams (
	name TEXT PRIMARY KEY,
	submitter TEXT NOT NULL,
	players TEXT NOT NULL DEFAULT '',
	registered_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS submissions (
	id BIGSERIAL PRIMARY KEY,
	team TEXT NOT NULL,
	challenge_id INTEGER NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS submissions_team_idx ON submissions (team, challenge_id);
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createHuntTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS submissions; DROP TABLE IF EXISTS teams; DROP TABLE IF EXISTS challenges`)
			return err
		},
	)
}
