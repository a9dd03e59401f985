package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/edutrack/apps/api/echo"
	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/backup"
	"github.com/trezcool/edutrack/core/contact"
	"github.com/trezcool/edutrack/core/payment"
	"github.com/trezcool/edutrack/core/setting"
	"github.com/trezcool/edutrack/core/staff"
	"github.com/trezcool/edutrack/core/user"
	emailsvc "github.com/trezcool/edutrack/services/email"
	logsvc "github.com/trezcool/edutrack/services/logger"
	"github.com/trezcool/edutrack/storage/database"
	sqlxrepos "github.com/trezcool/edutrack/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DB         core.DB
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    *user.Service
	PaymentSvc *payment.Service
	SettingSvc *setting.Service
	StaffSvc   *staff.Service
	ContactSvc *contact.Service
	BackupMgr  *backup.Manager
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newBackupEngine(db *sqlx.DB, conf *core.Config, loggerParam DBLoggerParam) backup.Engine {
	return database.NewBackupEngine(db, conf, loggerParam.Logger)
}

func newBackupManager(engine backup.Engine, conf *core.Config, logger core.Logger) (*backup.Manager, error) {
	return backup.NewManager(engine, backup.OptionsFromConfig(conf), logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		PaymentSvc: p.PaymentSvc,
		SettingSvc: p.SettingSvc,
		StaffSvc:   p.StaffSvc,
		ContactSvc: p.ContactSvc,
		BackupMgr:  p.BackupMgr,
		StatusCheck: func(ctx context.Context) error {
			return database.StatusCheck(ctx, p.DB)
		},
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewPaymentRepository))
	must(c.Provide(sqlxrepos.NewSettingRepository))
	must(c.Provide(sqlxrepos.NewStaffRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(setting.NewService))
	must(c.Provide(staff.NewService))
	must(c.Provide(contact.NewService))
	must(c.Provide(newBackupEngine))
	must(c.Provide(newBackupManager))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
