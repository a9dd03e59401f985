package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/storage/database/migrations"
)

const masterDB = "master"

func dsn(dbName string, admin bool, conf *core.Config) string {
	usr := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		usr = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	q := make(url.Values)
	q.Set("database", dbName)
	q.Set("app name", conf.AppName)
	if conf.Database.Encrypt != "" {
		q.Set("encrypt", conf.Database.Encrypt)
	}
	q.Set("TrustServerCertificate", strconv.FormatBool(conf.Database.TrustServerCertificate))
	if conf.Database.ConnTimeout > 0 {
		q.Set("connection timeout", strconv.Itoa(int(conf.Database.ConnTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     usr,
		Host:     conf.Database.Address(),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(dbName, admin, conf))
	if err != nil {
		return nil, err
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
	}
	if conf.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Open opens the app database pool and waits for it to be reachable.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// SetupMigrations points goose at the embedded SQL Server migrations.
func SetupMigrations() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("mssql")
}

// Migrate applies all the pending migrations.
func Migrate(db *sqlx.DB) error {
	if err := SetupMigrations(); err != nil {
		return errors.Wrap(err, "setting up migrations")
	}
	if err := goose.Up(db.DB, migrations.Dir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// StatusCheck reports whether the database answers a trivial query.
func StatusCheck(ctx context.Context, db core.DB) error {
	var one int
	return db.GetContext(ctx, &one, "SELECT 1")
}

func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func quoteString(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func exists(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var found int
	err := db.GetContext(ctx, &found, query, args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func createLogin(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" || conf.Database.User == conf.Database.AdminUser {
		return nil
	}
	found, err := exists(ctx, db, "SELECT 1 FROM sys.server_principals WHERE name = @p1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app login")
	}
	if !found {
		q := fmt.Sprintf("CREATE LOGIN %s WITH PASSWORD = %s, CHECK_POLICY = OFF",
			quoteIdent(conf.Database.User), quoteString(conf.Database.Password))
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app login")
		}
	}
	// backup & restore of the app database
	q := fmt.Sprintf("ALTER SERVER ROLE [dbcreator] ADD MEMBER %s", quoteIdent(conf.Database.User))
	if _, err = db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "granting dbcreator")
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT 1 FROM sys.databases WHERE name = @p1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, "CREATE DATABASE "+quoteIdent(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func createDBUser(ctx context.Context, conf *core.Config) error {
	if conf.Database.User == "" || conf.Database.User == conf.Database.AdminUser {
		return nil
	}
	db, err := open(conf.Database.Name, true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	usr := quoteIdent(conf.Database.User)
	q := fmt.Sprintf(
		"IF DATABASE_PRINCIPAL_ID(%s) IS NULL CREATE USER %s FOR LOGIN %s; ALTER ROLE [db_owner] ADD MEMBER %s;",
		quoteString(conf.Database.User), usr, usr, usr,
	)
	if _, err = db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "creating database user")
	}
	return nil
}

// CreateIfNotExist creates the app login, database & database user using the admin credentials.
// It does nothing when no admin user is configured.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.AdminUser == "" {
		return nil
	}
	ctx := context.Background()

	// connect as admin
	db, err := open(masterDB, true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createLogin(ctx, db, conf); err != nil {
		return err
	}
	if err = createDB(ctx, db, conf); err != nil {
		return err
	}
	return createDBUser(ctx, conf)
}
