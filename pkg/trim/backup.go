package trim

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// concealPrefix hides a file from archivers and from the walker.
	concealPrefix = "."

	// backupSuffix marks a concealed file as a pristine copy.
	backupSuffix = ".orig"

	// tempPrefix names in-flight temporary files.
	tempPrefix = ".gathertrim-"
)

// IsConcealed reports whether a base name is hidden from the archive.
func IsConcealed(name string) bool {
	return strings.HasPrefix(name, concealPrefix)
}

// IsBackup reports whether a base name is a backup written by Backup.
func IsBackup(name string) bool {
	return strings.HasPrefix(name, concealPrefix) &&
		strings.HasSuffix(name, backupSuffix) &&
		!strings.HasPrefix(name, tempPrefix) &&
		len(name) > len(concealPrefix)+len(backupSuffix)
}

// BackupPath returns where the pristine copy of path is kept.
func BackupPath(path string) string {
	return filepath.Join(filepath.Dir(path), concealPrefix+filepath.Base(path)+backupSuffix)
}

// OriginalPath maps a backup path back to the live file it preserves.
func OriginalPath(backupPath string) string {
	name := filepath.Base(backupPath)
	name = strings.TrimSuffix(strings.TrimPrefix(name, concealPrefix), backupSuffix)
	return filepath.Join(filepath.Dir(backupPath), name)
}

// BackupManager keeps pristine copies of files before they are trimmed and
// puts them back afterwards.
type BackupManager struct {
	logger *slog.Logger
}

// NewBackupManager creates a backup manager.
func NewBackupManager() *BackupManager {
	return &BackupManager{
		logger: slog.Default().With("component", "trim.backup"),
	}
}

// Exists reports whether path already has a live backup.
func (b *BackupManager) Exists(path string) bool {
	_, err := os.Lstat(BackupPath(path))
	return err == nil
}

// PristinePath returns the backup of path when one exists, else path.
func (b *BackupManager) PristinePath(path string) string {
	if b.Exists(path) {
		return BackupPath(path)
	}
	return path
}

// Backup copies the current bytes of path to its concealed sibling. An
// existing backup is left alone, so the copy always holds the bytes from
// before the first trim. The copy is written under a temporary name and
// renamed, so a backup file is never partial.
func (b *BackupManager) Backup(path string) (bool, error) {
	if b.Exists(path) {
		b.logger.Debug("backup already present", "path", path)
		return false, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return false, err
	}

	if err := replaceFile(BackupPath(path), info.Mode().Perm(), src); err != nil {
		return false, fmt.Errorf("failed to back up %s: %w", path, err)
	}

	b.logger.Debug("backup created", "path", path, "backup", BackupPath(path))
	return true, nil
}

// Restore walks root and moves every backup over its live file, removing
// the backup. Leftover temporary files from an interrupted run are deleted.
// Failures on single files are joined into the returned error and do not
// stop the walk; an unreadable root is returned as is.
func (b *BackupManager) Restore(root string) ([]string, error) {
	var restored []string
	var errs []error

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		switch {
		case strings.HasPrefix(name, tempPrefix):
			if err := os.Remove(path); err != nil {
				errs = append(errs, err)
			}
		case IsBackup(name):
			original := OriginalPath(path)
			if err := os.Rename(path, original); err != nil {
				errs = append(errs, fmt.Errorf("failed to restore %s: %w", original, err))
				return nil
			}
			restored = append(restored, original)
		}
		return nil
	})
	if err != nil {
		return restored, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	if len(restored) > 0 {
		b.logger.Info("restored trimmed files", "root", root, "count", len(restored))
	}
	return restored, errors.Join(errs...)
}
