package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

type Options struct {
	Dir           string
	ServerDir     string // Dir as seen by the database server; defaults to the absolute Dir
	Prefix        string
	RetentionDays int
	AutoEnabled   bool
}

// OptionsFromConfig maps the backup configuration onto Manager Options.
func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		Dir:           conf.Backup.Dir,
		ServerDir:     conf.Backup.ServerDir,
		Prefix:        conf.Backup.Prefix,
		RetentionDays: conf.Backup.RetentionDays,
		AutoEnabled:   conf.Backup.AutoEnabled,
	}
}

// Manager handles the backup files of one database.
//
// Create, Restore & Delete are serialized per database; List & Stats never block.
type Manager struct {
	engine Engine
	opts   Options
	logger core.Logger
	locks  *keyedLock
	now    func() time.Time
}

func NewManager(engine Engine, opts Options, logger core.Logger) (*Manager, error) {
	if opts.Dir == "" {
		return nil, errors.New("backup dir is required")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving backup dir")
	}
	if err = os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "creating backup dir")
	}
	opts.Dir = dir
	if opts.ServerDir == "" {
		opts.ServerDir = dir
	}
	if opts.Prefix == "" {
		opts.Prefix = engine.Database()
	}

	return &Manager{
		engine: engine,
		opts:   opts,
		logger: logger,
		locks:  newKeyedLock(),
		now:    time.Now,
	}, nil
}

func (m *Manager) Dir() string { return m.opts.Dir }

func (m *Manager) localPath(name string) string { return filepath.Join(m.opts.Dir, name) }

// serverPath joins name to the server-side backup dir, following the dir's separator style.
func (m *Manager) serverPath(name string) string {
	dir := m.opts.ServerDir
	if strings.Contains(dir, `\`) {
		return strings.TrimRight(dir, `\`) + `\` + name
	}
	return path.Join(dir, name)
}

// cleanID validates a client supplied backup ID; it must name a file of the backup dir.
func cleanID(id string) (string, bool) {
	id = strings.TrimSuffix(strings.TrimSpace(id), fileExt)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") || filepath.Base(id) != id {
		return "", false
	}
	return id, true
}

func (m *Manager) newID(typ Type, at time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format("2006-01-02T15:04:05.000Z"))
	sep := "_"
	if typ == TypeAuto {
		sep = autoMarker
	}
	id := m.opts.Prefix + sep + ts
	for i := 1; ; i++ {
		if _, err := os.Stat(m.localPath(id + fileExt)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s%s%s-%d", m.opts.Prefix, sep, ts, i)
	}
}

func (m *Manager) writeMetadata(meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling metadata")
	}

	// atomic write via temp file
	metaPath := m.localPath(meta.ID + metaExt)
	tmpPath := metaPath + ".tmp"
	if err = os.WriteFile(tmpPath, data, 0640); err != nil {
		return errors.Wrap(err, "writing metadata")
	}
	if err = os.Rename(tmpPath, metaPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "renaming metadata")
	}
	return nil
}

// readMetadata returns the metadata of the backup file described by fi.
// Backups without (valid) metadata get it inferred from their file.
func (m *Manager) readMetadata(id string, fi os.FileInfo) metadata {
	inferred := metadata{
		ID:        id,
		Filename:  id + fileExt,
		Type:      TypeManual,
		Status:    StatusCompleted,
		CreatedAt: fi.ModTime().UTC(),
	}
	if strings.Contains(id, autoMarker) {
		inferred.Type = TypeAuto
	}

	data, err := os.ReadFile(m.localPath(id + metaExt))
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn(fmt.Sprintf("reading backup metadata %s: %v", id, err), err)
		}
		inferred.Size = fi.Size()
		return inferred
	}
	var meta metadata
	if err = json.Unmarshal(data, &meta); err != nil || meta.ID != id {
		m.logger.Warn(fmt.Sprintf("invalid backup metadata %s: %v", id, err))
		inferred.Size = fi.Size()
		return inferred
	}
	meta.Filename = id + fileExt
	meta.Size = fi.Size()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = inferred.CreatedAt
	}
	return meta
}

type entry struct {
	meta    metadata
	modTime time.Time
}

func (m *Manager) scan() ([]entry, error) {
	dirEntries, err := os.ReadDir(m.opts.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading backup dir")
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) { // deleted meanwhile
				continue
			}
			return nil, errors.Wrap(err, "reading backup file info")
		}
		id := strings.TrimSuffix(name, fileExt)
		entries = append(entries, entry{meta: m.readMetadata(id, fi), modTime: fi.ModTime()})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].modTime.After(entries[j].modTime) })
	return entries, nil
}

// List returns every backup of the backup dir, most recently modified first.
func (m *Manager) List(_ context.Context) ([]Backup, error) {
	entries, err := m.scan()
	if err != nil {
		return nil, err
	}
	backups := make([]Backup, 0, len(entries))
	for _, e := range entries {
		backups = append(backups, e.meta.backup())
	}
	return backups, nil
}

func (m *Manager) Stats(_ context.Context) (Stats, error) {
	entries, err := m.scan()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalBackups:      len(entries),
		AutoBackupEnabled: m.opts.AutoEnabled,
		RetentionDays:     m.opts.RetentionDays,
	}
	for _, e := range entries {
		stats.TotalSize += e.meta.Size
	}
	// same ordering as List: the most recently modified file
	if len(entries) > 0 {
		last := entries[0].modTime
		stats.LastBackup = &last
	}
	return stats, nil
}

// Get returns the backup identified by id.
func (m *Manager) Get(_ context.Context, id string) (Backup, error) {
	meta, err := m.lookup(id)
	if err != nil {
		return Backup{}, err
	}
	return meta.backup(), nil
}

func (m *Manager) lookup(id string) (metadata, error) {
	id, ok := cleanID(id)
	if !ok {
		return metadata{}, ErrNotFound
	}
	fi, err := os.Stat(m.localPath(id + fileExt))
	if err != nil {
		if os.IsNotExist(err) {
			return metadata{}, ErrNotFound
		}
		return metadata{}, errors.Wrap(err, "reading backup file info")
	}
	if fi.IsDir() {
		return metadata{}, ErrNotFound
	}
	return m.readMetadata(id, fi), nil
}

// Locate returns the local path of the backup identified by id, for download.
func (m *Manager) Locate(ctx context.Context, id string) (string, Backup, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return "", Backup{}, err
	}
	return m.localPath(b.Filename), b, nil
}

// Create takes a new full backup of the database.
func (m *Manager) Create(ctx context.Context, nb NewBackup) (b Backup, err error) {
	if nb.Type == "" {
		nb.Type = TypeManual
	}
	start := time.Now()
	defer func() {
		backupOperationsTotal.WithLabelValues("backup", statusLabel(err)).Inc()
		backupDurationHistogram.WithLabelValues(string(nb.Type), statusLabel(err)).Observe(time.Since(start).Seconds())
	}()

	release, err := m.locks.Lock(ctx, m.engine.Database())
	if err != nil {
		return Backup{}, errors.Wrap(err, "waiting for backup lock")
	}
	defer release()

	id := m.newID(nb.Type, m.now())
	meta := metadata{
		ID:          id,
		Filename:    id + fileExt,
		Database:    m.engine.Database(),
		Type:        nb.Type,
		Status:      StatusInProgress,
		Description: core.Truncate(core.CleanString(nb.Description), maxDescrLen),
		CreatedAt:   m.now().UTC(),
	}
	if err = m.writeMetadata(meta); err != nil {
		return Backup{}, err
	}

	name := core.Truncate(fmt.Sprintf("%s %s backup", meta.Database, nb.Type), maxNameLen)
	if err = m.engine.Backup(ctx, m.serverPath(meta.Filename), name, meta.Description); err != nil {
		m.abortCreate(meta, err)
		return Backup{}, errors.Wrap(err, "backing up database")
	}

	localPath := m.localPath(meta.Filename)
	fi, err := os.Stat(localPath)
	if err != nil {
		m.abortCreate(meta, err)
		return Backup{}, errors.Wrapf(err, "backup file %s not found in backup dir", meta.Filename)
	}
	checksum, err := fileChecksum(localPath)
	if err != nil {
		m.abortCreate(meta, err)
		return Backup{}, errors.Wrap(err, "computing backup checksum")
	}

	meta.Status = StatusCompleted
	meta.Size = fi.Size()
	meta.Checksum = checksum
	meta.CompletedAt = m.now().UTC()
	if err = m.writeMetadata(meta); err != nil {
		return Backup{}, err
	}
	backupSizeGauge.WithLabelValues(meta.Database).Set(float64(meta.Size))

	m.logger.Info(fmt.Sprintf("backup %s created (%d bytes)", meta.Filename, meta.Size))
	return meta.backup(), nil
}

// abortCreate marks a failed backup; it is forgotten when no file was produced.
func (m *Manager) abortCreate(meta metadata, cause error) {
	if _, err := os.Stat(m.localPath(meta.Filename)); os.IsNotExist(err) {
		if err = os.Remove(m.localPath(meta.ID + metaExt)); err != nil && !os.IsNotExist(err) {
			m.logger.Warn(fmt.Sprintf("removing backup metadata %s: %v", meta.ID, err), err)
		}
		return
	}
	meta.Status = StatusFailed
	meta.Error = cause.Error()
	meta.CompletedAt = m.now().UTC()
	if err := m.writeMetadata(meta); err != nil {
		m.logger.Warn(fmt.Sprintf("writing backup metadata %s: %v", meta.ID, err), err)
	}
}

// Restore replaces the database with the backup identified by id.
// Unknown backups are reported before the database is touched.
func (m *Manager) Restore(ctx context.Context, id string) (b Backup, err error) {
	meta, err := m.lookup(id)
	if err != nil {
		return Backup{}, err
	}

	start := time.Now()
	defer func() {
		backupOperationsTotal.WithLabelValues("restore", statusLabel(err)).Inc()
		restoreDurationHistogram.WithLabelValues(statusLabel(err)).Observe(time.Since(start).Seconds())
	}()

	release, err := m.locks.Lock(ctx, m.engine.Database())
	if err != nil {
		return Backup{}, errors.Wrap(err, "waiting for backup lock")
	}
	defer release()

	// the file may have been deleted while waiting
	if meta, err = m.lookup(meta.ID); err != nil {
		return Backup{}, err
	}
	if meta.Status != StatusCompleted {
		return Backup{}, ErrNotRestorable
	}
	if meta.Checksum != "" {
		if err = verifyChecksum(m.localPath(meta.Filename), meta.Checksum); err != nil {
			return Backup{}, err
		}
	}

	if err = m.engine.Restore(ctx, m.serverPath(meta.Filename)); err != nil {
		return Backup{}, errors.Wrap(err, "restoring database")
	}
	m.logger.Info(fmt.Sprintf("database %s restored from %s", m.engine.Database(), meta.Filename))
	return meta.backup(), nil
}

// Delete removes the backup identified by id along with its metadata.
func (m *Manager) Delete(ctx context.Context, id string) (b Backup, err error) {
	defer func() {
		backupOperationsTotal.WithLabelValues("delete", statusLabel(err)).Inc()
	}()

	if _, err = m.lookup(id); err != nil {
		return Backup{}, err
	}
	release, err := m.locks.Lock(ctx, m.engine.Database())
	if err != nil {
		return Backup{}, errors.Wrap(err, "waiting for backup lock")
	}
	defer release()

	meta, err := m.lookup(id)
	if err != nil {
		return Backup{}, err
	}
	if err = m.remove(meta); err != nil {
		return Backup{}, err
	}
	return meta.backup(), nil
}

func (m *Manager) remove(meta metadata) error {
	if err := os.Remove(m.localPath(meta.Filename)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "removing backup file")
	}
	if err := os.Remove(m.localPath(meta.ID + metaExt)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing backup metadata")
	}
	return nil
}

// Prune removes the automatic backups older than the retention period.
// Manual backups are always kept.
func (m *Manager) Prune(ctx context.Context) ([]Backup, error) {
	if m.opts.RetentionDays <= 0 {
		return nil, nil
	}
	release, err := m.locks.Lock(ctx, m.engine.Database())
	if err != nil {
		return nil, errors.Wrap(err, "waiting for backup lock")
	}
	defer release()

	entries, err := m.scan()
	if err != nil {
		return nil, err
	}
	cutoff := m.now().UTC().AddDate(0, 0, -m.opts.RetentionDays)
	var pruned []Backup
	for _, e := range entries {
		if e.meta.Type != TypeAuto || e.meta.Status == StatusInProgress || !e.meta.CreatedAt.Before(cutoff) {
			continue
		}
		if err = m.remove(e.meta); err != nil && !core.IsNotFound(err) {
			return pruned, err
		}
		pruned = append(pruned, e.meta.backup())
	}
	if len(pruned) > 0 {
		backupOperationsTotal.WithLabelValues("prune", statusLabel(nil)).Add(float64(len(pruned)))
	}
	return pruned, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func verifyChecksum(path, expected string) error {
	actual, err := fileChecksum(path)
	if err != nil {
		return errors.Wrap(err, "computing backup checksum")
	}
	if actual != expected {
		return errors.Wrapf(ErrCorrupted, "expected %s, got %s", expected, actual)
	}
	return nil
}
