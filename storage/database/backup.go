package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/backup"
)

const (
	defaultRestoreTimeout = time.Hour
	revertTimeout         = 30 * time.Second
	revertAttempts        = 3
)

type execConn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Close() error
}

// discardingConn never goes back to the pool: its session was switched to master.
type discardingConn struct {
	*sqlx.Conn
}

func (c discardingConn) Close() error {
	err := c.Conn.Raw(func(interface{}) error { return driver.ErrBadConn })
	if err != nil && !errors.Is(err, driver.ErrBadConn) {
		return err
	}
	return nil
}

// BackupEngine takes & restores native SQL Server backups of the app database.
type BackupEngine struct {
	db             core.DBExecutor
	name           string
	connect        func(ctx context.Context) (execConn, error)
	restoreTimeout time.Duration
	logger         core.Logger
}

var _ backup.Engine = (*BackupEngine)(nil)

func NewBackupEngine(db *sqlx.DB, conf *core.Config, logger core.Logger) *BackupEngine {
	return &BackupEngine{
		db:   db,
		name: conf.Database.Name,
		connect: func(ctx context.Context) (execConn, error) {
			conn, err := db.Connx(ctx)
			if err != nil {
				return nil, err
			}
			return discardingConn{conn}, nil
		},
		restoreTimeout: defaultRestoreTimeout,
		logger:         logger,
	}
}

func (e *BackupEngine) Database() string {
	return e.name
}

func (e *BackupEngine) Backup(ctx context.Context, path, name, description string) error {
	q := fmt.Sprintf(
		"BACKUP DATABASE %s TO DISK = @p1 WITH INIT, CHECKSUM, NAME = @p2, DESCRIPTION = @p3",
		quoteIdent(e.name),
	)
	if _, err := e.db.ExecContext(ctx, q, path, name, description); err != nil {
		return errors.Wrapf(err, "backing up database %s", e.name)
	}
	return nil
}

// Restore switches the database to single-user mode, restores it from path,
// then switches it back to multi-user mode, whatever the outcome of the restore.
//
// Cancelling ctx does not abort a running restore: it would leave the database in RESTORING state.
func (e *BackupEngine) Restore(ctx context.Context, path string) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.restoreTimeout)
	defer cancel()

	conn, err := e.connect(ctx)
	if err != nil {
		return errors.Wrap(err, "acquiring connection")
	}
	defer func() { _ = conn.Close() }()

	// no parameters: the statement runs as a plain batch and the change sticks to the session
	if _, err = conn.ExecContext(ctx, "USE [master]"); err != nil {
		return errors.Wrap(err, "switching to master")
	}

	db := quoteIdent(e.name)
	defer func() {
		if rErr := e.revertMultiUser(conn); rErr != nil {
			if err != nil {
				err = errors.Wrapf(err, "reverting to MULTI_USER also failed: %v", rErr)
			} else {
				err = rErr
			}
		}
	}()

	if _, err = conn.ExecContext(ctx, fmt.Sprintf("ALTER DATABASE %s SET SINGLE_USER WITH ROLLBACK IMMEDIATE", db)); err != nil {
		return errors.Wrap(err, "switching to SINGLE_USER")
	}
	if _, err = conn.ExecContext(ctx, fmt.Sprintf("RESTORE DATABASE %s FROM DISK = @p1 WITH REPLACE", db), path); err != nil {
		return errors.Wrapf(err, "restoring database %s", e.name)
	}
	return nil
}

// revertMultiUser retries on a fresh connection when the restore connection got broken.
func (e *BackupEngine) revertMultiUser(conn execConn) error {
	q := fmt.Sprintf("ALTER DATABASE %s SET MULTI_USER", quoteIdent(e.name))

	var fresh execConn
	defer func() {
		if fresh != nil {
			_ = fresh.Close()
		}
	}()

	var err error
	for attempt := 1; attempt <= revertAttempts; attempt++ {
		if err = e.execRevert(conn, q); err == nil {
			return nil
		}
		e.logger.Warn(fmt.Sprintf("reverting %s to MULTI_USER (attempt %d): %v", e.name, attempt, err))
		if attempt == revertAttempts {
			break
		}

		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		if c, cErr := e.reconnect(); cErr == nil {
			if fresh != nil {
				_ = fresh.Close()
			}
			fresh, conn = c, c
		}
	}
	return errors.Wrap(err, "reverting database to MULTI_USER")
}

func (e *BackupEngine) execRevert(conn execConn, q string) error {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()
	_, err := conn.ExecContext(ctx, q)
	return err
}

func (e *BackupEngine) reconnect() (execConn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()

	conn, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = conn.ExecContext(ctx, "USE [master]"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
