package trim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	bytes    int64
}

func (r *fakeRecorder) RecordFile(kind Kind, outcome string, discarded int64, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[string(kind)+"/"+outcome]++
	r.bytes += discarded
}

const (
	podOld = "2023-12-31T23:58:00Z stdout F first\n2023-12-31T23:59:30Z stdout F second\n"
	podNew = "2024-01-01T00:00:05Z stdout F third\n"

	nodeHeader = "-- Logs begin at 2024-01-01 00:00:00 UTC, end at 2024-01-01 02:00:00 UTC. --\n"
	nodeOld    = "Jan 01 01:29:59 worker-0 kubelet[2211]: old\n"
	nodeNew    = "Jan 01 01:30:01 worker-0 kubelet[2211]: new\n"
)

// mustGatherTree lays out a small collection directory and returns its root.
func mustGatherTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "namespaces", "app", "pods", "web", "web", "logs", "current.log"), podOld+podNew, 0644)
	writeFile(t, filepath.Join(root, "namespaces", "app", "pods", "idle", "idle", "logs", "current.log"), podNew, 0644)
	writeFile(t, filepath.Join(root, "nodes", "worker-0", "kubelet_service.log"), nodeHeader+nodeOld+nodeNew, 0644)
	writeFile(t, filepath.Join(root, "must-gather.log"), podOld, 0644)
	writeFile(t, filepath.Join(root, "version"), "4.14\n", 0644)
	return root
}

func TestWalker_KindOf(t *testing.T) {
	w := NewWalker(nil)

	tests := []struct {
		name string
		want Kind
	}{
		{"current.log", KindPod},
		{"previous.log", KindPod},
		{"kubelet_service.log", KindNode},
		{"NetworkManager_service.log", KindNode},
		{"kubelet", KindNode},
		{"version", KindUnclassified},
		{"event-filter.html", KindUnclassified},
	}
	for _, tt := range tests {
		if got := w.KindOf(tt.name); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWalker_Run(t *testing.T) {
	root := mustGatherTree(t)
	deadline := DeadlineAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := &fakeRecorder{}

	report, err := NewWalker(nil, WithRecorder(rec)).Run(context.Background(), root, deadline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected file errors: %v", report.Errors)
	}
	if len(report.Files) != 3 {
		t.Errorf("expected 3 classified files, got %d", len(report.Files))
	}
	if report.Unclassified != 1 {
		t.Errorf("expected 1 unclassified file, got %d", report.Unclassified)
	}

	web := filepath.Join(root, "namespaces", "app", "pods", "web", "web", "logs", "current.log")
	if got := readFile(t, web); got != deadline.Header()+podNew {
		t.Errorf("unexpected trimmed content %q", got)
	}
	if got := readFile(t, BackupPath(web)); got != podOld+podNew {
		t.Errorf("expected backup with all three lines, got %q", got)
	}

	idle := filepath.Join(root, "namespaces", "app", "pods", "idle", "idle", "logs", "current.log")
	if got := readFile(t, idle); got != podNew {
		t.Errorf("expected untouched file, got %q", got)
	}
	if _, err := os.Stat(BackupPath(idle)); !os.IsNotExist(err) {
		t.Error("expected no backup for an untouched file")
	}

	// Everything in the node log is after midnight.
	node := filepath.Join(root, "nodes", "worker-0", "kubelet_service.log")
	if got := readFile(t, node); got != nodeHeader+nodeOld+nodeNew {
		t.Errorf("expected untouched node log, got %q", got)
	}

	if got := readFile(t, filepath.Join(root, "must-gather.log")); got != podOld {
		t.Errorf("expected must-gather.log to be skipped, got %q", got)
	}

	if rec.outcomes["pod/"+OutcomeTrimmed] != 1 || rec.outcomes["pod/"+OutcomeKept] != 1 || rec.outcomes["node/"+OutcomeKept] != 1 {
		t.Errorf("unexpected recorded outcomes %v", rec.outcomes)
	}
	if rec.bytes != report.BytesDiscarded() || rec.bytes != int64(len(podOld)) {
		t.Errorf("expected %d discarded bytes, recorder %d, report %d", len(podOld), rec.bytes, report.BytesDiscarded())
	}
}

func TestWalker_Run_NodeLog(t *testing.T) {
	root := t.TempDir()
	node := filepath.Join(root, "nodes", "worker-0", "kubelet_service.log")
	writeFile(t, node, nodeHeader+nodeOld+nodeNew, 0644)

	now := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	deadline := NewDeadline(now, DefaultWindow)

	report, err := NewWalker(nil).Run(context.Background(), root, deadline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Trimmed()) != 1 {
		t.Fatalf("expected one trimmed file, got %+v", report.Files)
	}
	if got := readFile(t, node); got != deadline.Header()+nodeNew {
		t.Errorf("unexpected trimmed content %q", got)
	}
}

func TestWalker_Run_MalformedHeaderContinues(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "nodes", "worker-0", "NetworkManager_service.log")
	writeFile(t, bad, nodeOld+nodeNew, 0644)
	pod := filepath.Join(root, "pods", "current.log")
	writeFile(t, pod, podOld+podNew, 0644)

	deadline := DeadlineAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	report, err := NewWalker(nil).Run(context.Background(), root, deadline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 file error, got %v", report.Errors)
	}
	fe := report.Errors[0]
	if fe.Path != bad || fe.Kind != KindMalformedHeader || !errors.Is(fe, ErrMalformedHeader) {
		t.Errorf("unexpected file error %v", fe)
	}
	if got := readFile(t, bad); got != nodeOld+nodeNew {
		t.Errorf("expected malformed file unchanged, got %q", got)
	}
	if got := readFile(t, pod); got != deadline.Header()+podNew {
		t.Errorf("expected pod log trimmed, got %q", got)
	}
}

func TestWalker_Run_RestoreIsByteIdentical(t *testing.T) {
	root := mustGatherTree(t)
	node := filepath.Join(root, "nodes", "worker-0", "kubelet_service.log")
	originals := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		originals[path] = readFile(t, path)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	w := NewWalker(nil)
	deadline := NewDeadline(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), DefaultWindow)
	if _, err := w.Run(context.Background(), root, deadline); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, node); got == originals[node] {
		t.Fatal("expected node log to be trimmed")
	}

	if _, err := w.Backups().Restore(root); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		want, ok := originals[path]
		if !ok {
			t.Errorf("unexpected file after restore: %s", path)
			return nil
		}
		if got := readFile(t, path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWalker_Run_RetrimIsIdempotent(t *testing.T) {
	root := t.TempDir()
	pod := filepath.Join(root, "pods", "current.log")
	node := filepath.Join(root, "nodes", "kubelet_service.log")
	writeFile(t, pod, podOld+podNew, 0644)
	writeFile(t, node, nodeHeader+nodeOld+nodeNew, 0644)

	w := NewWalker(nil)
	first := DeadlineAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if _, err := w.Run(context.Background(), root, first); err != nil {
		t.Fatal(err)
	}
	trimmedPod := readFile(t, pod)

	// Same deadline: the synthetic header is pending and followed by a
	// later line, so nothing changes.
	report, err := w.Run(context.Background(), root, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Trimmed()) != 0 {
		t.Errorf("expected no rewrites, got %+v", report.Trimmed())
	}
	if got := readFile(t, pod); got != trimmedPod {
		t.Errorf("expected stable content, got %q", got)
	}

	// A later deadline drops the old header along with the older lines,
	// and the node log is still classified by its backed up header.
	second := DeadlineAt(time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC))
	if _, err := w.Run(context.Background(), root, second); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, node); got != second.Header()+nodeNew {
		t.Errorf("unexpected node content %q", got)
	}
	if got := readFile(t, BackupPath(node)); got != nodeHeader+nodeOld+nodeNew {
		t.Errorf("expected backup to keep the first original, got %q", got)
	}
	if strings.Count(readFile(t, pod), headerPrefix) != 1 {
		t.Errorf("expected a single header, got %q", readFile(t, pod))
	}

	if _, err := w.Run(context.Background(), root, second); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, node); got != second.Header()+nodeNew {
		t.Errorf("expected node log unchanged on re-run, got %q", got)
	}
}

func TestWalker_Run_Cancelled(t *testing.T) {
	root := mustGatherTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWalker(nil).Run(ctx, root, newYear)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWalker_Run_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil).Run(context.Background(), filepath.Join(t.TempDir(), "missing"), newYear)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
