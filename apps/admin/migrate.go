package main

import (
	"github.com/pressly/goose/v3"

	"github.com/trezcool/edutrack/storage/database"
	"github.com/trezcool/edutrack/storage/database/migrations"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.SetupMigrations(); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db, migrations.Dir, args[1:]...)
}
