package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/assets"
	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/backup"
	"github.com/trezcool/edutrack/core/payment"
	"github.com/trezcool/edutrack/core/user"
	logsvc "github.com/trezcool/edutrack/services/logger"
	"github.com/trezcool/edutrack/storage/database"
	sqlxrepos "github.com/trezcool/edutrack/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	user.LoadCommonPasswords(assets.FS, assets.CommonPasswordsFile, logger)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	backups, err := backup.NewManager(database.NewBackupEngine(db, conf, logger), backup.OptionsFromConfig(conf), logger)
	if err != nil {
		logger.Fatal("setting up backups", err)
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrSvc:  user.NewService(sqlxrepos.NewUserRepository(db), validate),
		backups: backups,
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
