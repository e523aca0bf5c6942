// Package archive packs a trimmed must-gather tree into a gzip-compressed
// tarball for upload. Concealed entries, which hold the pristine copies of
// trimmed files, are left out.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/trim"
)

// ErrTooLarge is returned when an archive exceeds the configured upload
// limit.
var ErrTooLarge = errors.New("archive exceeds maximum upload size")

// nameLayout timestamps archive names in UTC.
const nameLayout = "2006-01-02_15:04:05Z"

// Name returns the archive file name for a run started at t.
func Name(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s.tar.gz", prefix, t.UTC().Format(nameLayout))
}

// Result describes a written archive.
type Result struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Files int    `json:"files"`
}

// Archiver writes tar.gz archives of a directory tree.
type Archiver struct {
	config *config.ArchiveConfig
	logger *slog.Logger
}

// New creates an archiver.
func New(cfg *config.ArchiveConfig) *Archiver {
	return &Archiver{
		config: cfg,
		logger: slog.Default().With("component", "archive"),
	}
}

// Create archives root into the configured directory under Name(prefix, at).
// Entries are stored under the base name of root. A partially written
// archive is removed on failure.
func (a *Archiver) Create(ctx context.Context, root string, at time.Time) (res *Result, err error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	if err := os.MkdirAll(a.config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	path := filepath.Join(a.config.Dir, Name(a.config.Prefix, at))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	gz, err := gzip.NewWriterLevel(f, a.config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid compression level: %w", err)
	}
	tw := tar.NewWriter(gz)

	a.logger.Info("creating archive", "path", path, "root", root)

	files, err := addTree(ctx, tw, root, a.isArchive)
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	res = &Result{Path: path, Size: st.Size(), Files: files}
	a.logger.Info("archive created", "path", path, "size", res.Size, "files", res.Files)
	return res, nil
}

// CheckSize returns ErrTooLarge when res exceeds the configured maximum.
// A non-positive maximum disables the check.
func (a *Archiver) CheckSize(res *Result) error {
	if a.config.MaxSize > 0 && res.Size > a.config.MaxSize {
		return fmt.Errorf("%s is %d bytes, limit %d: %w", res.Path, res.Size, a.config.MaxSize, ErrTooLarge)
	}
	return nil
}

// isArchive reports whether path is an archive written by a, including the
// one being written. It keeps an archive directory placed inside the
// gathered tree out of the tarball.
func (a *Archiver) isArchive(path string) bool {
	dir, err := filepath.Abs(a.config.Dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil || filepath.Dir(abs) != dir {
		return false
	}
	ok, _ := filepath.Match(a.config.Prefix+"-*.tar.gz", filepath.Base(abs))
	return ok
}

// addTree writes every non-concealed entry below root, except regular files
// for which skip returns true, and returns the number of regular files
// written.
func addTree(ctx context.Context, tw *tar.Writer, root string, skip func(path string) bool) (int, error) {
	base := filepath.Dir(root)
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && trim.IsConcealed(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && skip != nil && skip(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		} else if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if err := copyFile(tw, path); err != nil {
			return fmt.Errorf("failed to archive %s: %w", path, err)
		}
		files++
		return nil
	})
	return files, err
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
