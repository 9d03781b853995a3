package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_live_competitions.sql
var createLiveCompetitionsSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createLiveCompetitionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP TABLE IF EXISTS live_competition_answers;
				DROP TABLE IF EXISTS live_competition_participants;
				DROP TABLE IF EXISTS live_competitions;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS users;`)
			return err
		},
	)
}
