package backup

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

const (
	fileExt     = ".bak"
	metaExt     = ".json"
	autoMarker  = "_auto_"
	maxNameLen  = 128 // BACKUP ... WITH NAME
	maxDescrLen = 255 // BACKUP ... WITH DESCRIPTION
)

var (
	// errors
	ErrNotFound      = errors.WithMessage(core.ErrNotFound, "backup")
	ErrNotRestorable = errors.New("backup is not complete and cannot be restored")
	ErrCorrupted     = errors.New("backup corrupted: checksum mismatch")
)

type Type string

const (
	TypeManual Type = "manual"
	TypeAuto   Type = "auto"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Backup describes a backup file of the backup directory; ID is its filename without extension.
type Backup struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	Checksum    string    `json:"checksum,omitempty"`
}

type Stats struct {
	TotalBackups      int        `json:"totalBackups"`
	TotalSize         int64      `json:"totalSize"`
	LastBackup        *time.Time `json:"lastBackup"`
	AutoBackupEnabled bool       `json:"autoBackupEnabled"`
	RetentionDays     int        `json:"retentionDays"`
}

// NewBackup holds the options of a backup to take.
type NewBackup struct {
	Description string `json:"description" validate:"max=255"`
	Type        Type   `json:"-"`
}

// Engine takes & restores full backups of a single database.
//
// Paths are the ones the database server sees.
type Engine interface {
	Database() string
	Backup(ctx context.Context, path, name, description string) error
	// Restore replaces the database with the backup found at path.
	// The database must be left accepting connections whether the restore succeeds or not.
	Restore(ctx context.Context, path string) error
}

// metadata is persisted next to every backup file as "<id>.json".
type metadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Database    string    `json:"database"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (m metadata) backup() Backup {
	return Backup{
		ID:          m.ID,
		Filename:    m.Filename,
		Size:        m.Size,
		CreatedAt:   m.CreatedAt,
		Type:        m.Type,
		Status:      m.Status,
		Description: m.Description,
		Checksum:    m.Checksum,
	}
}
