package dummydb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/backup"
)

// Mode mimics the user access mode of a SQL Server database.
type Mode string

const (
	ModeMultiUser  Mode = "MULTI_USER"
	ModeSingleUser Mode = "SINGLE_USER"
)

// BackupEngine writes fake backup files & records the restores it is asked to run.
type BackupEngine struct {
	mu sync.Mutex

	name       string
	mode       Mode
	backups    []string
	restores   []string
	running    int
	maxRunning int

	// Delay is the duration of every operation.
	Delay time.Duration
	// BackupErr & RestoreErr make the matching operation fail.
	BackupErr  error
	RestoreErr error
	// SkipFile makes Backup succeed without producing a file.
	SkipFile bool
}

var _ backup.Engine = (*BackupEngine)(nil)

func NewBackupEngine(name string) *BackupEngine {
	return &BackupEngine{name: name, mode: ModeMultiUser}
}

func (e *BackupEngine) Database() string { return e.name }

func (e *BackupEngine) enter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running++
	if e.running > e.maxRunning {
		e.maxRunning = e.running
	}
}

func (e *BackupEngine) leave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running--
}

func (e *BackupEngine) wait(ctx context.Context) error {
	if e.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(e.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *BackupEngine) Backup(ctx context.Context, path, name, description string) error {
	e.enter()
	defer e.leave()

	if err := e.wait(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.backups = append(e.backups, path)
	e.mu.Unlock()

	if e.BackupErr != nil {
		return e.BackupErr
	}
	if e.SkipFile {
		return nil
	}
	content := fmt.Sprintf("BACKUP %s\n%s\n%s\n%s\n", e.name, name, description, time.Now().UTC().Format(time.RFC3339Nano))
	return errors.Wrap(os.WriteFile(path, []byte(content), 0640), "writing backup file")
}

// Restore always leaves the database in multi-user mode.
func (e *BackupEngine) Restore(ctx context.Context, path string) error {
	e.enter()
	defer e.leave()

	e.mu.Lock()
	e.mode = ModeSingleUser
	e.restores = append(e.restores, path)
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.mode = ModeMultiUser
		e.mu.Unlock()
	}()

	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "opening backup file")
	}
	if err := e.wait(ctx); err != nil {
		return err
	}
	return e.RestoreErr
}

func (e *BackupEngine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *BackupEngine) Backups() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.backups...)
}

func (e *BackupEngine) Restores() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.restores...)
}

// MaxConcurrency is the highest number of operations that ran at once.
func (e *BackupEngine) MaxConcurrency() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxRunning
}
