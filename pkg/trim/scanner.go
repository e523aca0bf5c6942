package trim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultChunkSize is the step of the backward probe.
const DefaultChunkSize = 64 * 1024

// Source is a random-access view of a file's bytes. *strings.Reader,
// *bytes.Reader and *io.SectionReader all satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// lineReader reads whole lines forward from an offset of a Source.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(src Source, offset int64) *lineReader {
	section := io.NewSectionReader(src, offset, src.Size()-offset)
	return &lineReader{r: bufio.NewReaderSize(section, 32*1024)}
}

// next returns the next line including its newline. At end of input it
// returns an empty line; a final line without newline is returned as is.
func (lr *lineReader) next() ([]byte, error) {
	line, err := lr.r.ReadBytes('\n')
	if err == io.EOF {
		return line, nil
	}
	return line, err
}

// Scanner locates the first byte of a file that must be kept.
type Scanner struct {
	chunkSize int64
}

// NewScanner returns a scanner probing backwards in chunkSize steps.
// A non-positive size selects DefaultChunkSize.
func NewScanner(chunkSize int64) *Scanner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Scanner{chunkSize: chunkSize}
}

// ChunkSize returns the probe step in bytes.
func (s *Scanner) ChunkSize() int64 {
	return s.chunkSize
}

// Anchor runs the coarse backward search. Starting one chunk before the end
// it steps back until the first timestamped line after a chunk boundary is
// Earlier, and returns that boundary. The result is 0 when no probed chunk
// starts before the deadline.
func (s *Scanner) Anchor(src Source, c Classifier) (int64, error) {
	offset := src.Size() - s.chunkSize
	for offset > 0 {
		lr := newLineReader(src, offset)
		// The first line is most likely cut by the chunk boundary.
		if _, err := lr.next(); err != nil {
			return 0, err
		}
		result, err := firstDefinite(lr, c)
		if err != nil {
			return 0, err
		}
		if result == Earlier {
			return offset, nil
		}
		offset -= s.chunkSize
	}
	return 0, nil
}

// firstDefinite reads forward until a line is Earlier or Later.
func firstDefinite(lr *lineReader, c Classifier) (Classification, error) {
	for {
		line, err := lr.next()
		if err != nil {
			return NoTimestamp, err
		}
		if len(line) == 0 {
			return Later, nil
		}
		if result := c.Classify(line); result != NoTimestamp {
			return result, nil
		}
	}
}

// Refine walks forward from anchor and returns the offset of the first byte
// to keep. An Earlier line moves the cut past itself; NoTimestamp lines stay
// pending and are kept with the next Later line; the first Later line or the
// end of the file stops the walk. When anchor is not 0 the partial line at
// the anchor is discarded with the Earlier content that follows it.
func (s *Scanner) Refine(src Source, c Classifier, anchor int64) (int64, error) {
	lr := newLineReader(src, anchor)
	pos, cut := anchor, anchor

	if anchor > 0 {
		line, err := lr.next()
		if err != nil {
			return 0, err
		}
		pos += int64(len(line))
		cut = pos
	}

	for {
		line, err := lr.next()
		if err != nil {
			return 0, err
		}
		if len(line) == 0 {
			return cut, nil
		}
		switch c.Classify(line) {
		case Later:
			return cut, nil
		case Earlier:
			pos += int64(len(line))
			cut = pos
		default:
			pos += int64(len(line))
		}
	}
}

// Locate returns trim_start for src: Anchor followed by Refine.
func (s *Scanner) Locate(src Source, c Classifier) (int64, error) {
	anchor, err := s.Anchor(src, c)
	if err != nil {
		return 0, fmt.Errorf("backward search failed: %w", err)
	}
	start, err := s.Refine(src, c, anchor)
	if err != nil {
		return 0, fmt.Errorf("forward refinement failed: %w", err)
	}
	return start, nil
}

// Result describes the outcome of trimming one file.
type Result struct {
	Path         string
	TrimStart    int64
	OriginalSize int64
	NewSize      int64
	Trimmed      bool
}

// Discarded returns the number of original bytes dropped from the live file.
func (r Result) Discarded() int64 {
	if !r.Trimmed {
		return 0
	}
	return r.TrimStart
}

// BeforeWrite is called after the cut is known and before the file is
// replaced. Returning an error leaves the file untouched.
type BeforeWrite func(path string) error

// TrimFile trims the file at path in place. When the whole file is kept it
// returns without side effects; otherwise beforeWrite runs, then the
// header and the retained tail replace the file atomically.
func (s *Scanner) TrimFile(path string, c Classifier, deadline Deadline, beforeWrite BeforeWrite) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{Path: path}, err
	}
	src := io.NewSectionReader(f, 0, info.Size())
	res := Result{Path: path, OriginalSize: info.Size(), NewSize: info.Size()}

	start, err := s.Locate(src, c)
	if err != nil {
		return res, err
	}
	res.TrimStart = start
	if start == 0 {
		return res, nil
	}

	if beforeWrite != nil {
		if err := beforeWrite(path); err != nil {
			return res, err
		}
	}

	header := deadline.Header()
	tail := io.NewSectionReader(f, start, info.Size()-start)
	if err := replaceFile(path, info.Mode().Perm(), io.MultiReader(strings.NewReader(header), tail)); err != nil {
		return res, err
	}

	res.Trimmed = true
	res.NewSize = int64(len(header)) + info.Size() - start
	return res, nil
}

// replaceFile writes content to a temporary sibling and renames it over
// path, so readers see either the old or the new file and never a mix.
// The file and then its directory are synced.
func replaceFile(path string, perm os.FileMode, content io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true

	// The rename is durable only once the directory entry is.
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to sync directory of %s: %w", path, err)
	}
	return nil
}

// syncDir flushes a directory to disk. Tests replace it.
var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
