package trim

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupPaths(t *testing.T) {
	tests := []struct {
		path   string
		backup string
	}{
		{"current.log", ".current.log.orig"},
		{"/data/ns/pod/current.log", "/data/ns/pod/.current.log.orig"},
		{"nodes/kubelet_service.log", "nodes/.kubelet_service.log.orig"},
	}

	for _, tt := range tests {
		if got := BackupPath(tt.path); got != tt.backup {
			t.Errorf("BackupPath(%q) = %q, want %q", tt.path, got, tt.backup)
		}
		if got := OriginalPath(tt.backup); got != filepath.Clean(tt.path) {
			t.Errorf("OriginalPath(%q) = %q, want %q", tt.backup, got, tt.path)
		}
	}
}

func TestIsBackup(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".current.log.orig", true},
		{"current.log.orig", false},
		{".orig", false},
		{".gitignore", false},
		{".gathertrim-.current.log.orig-1234", false},
	}
	for _, tt := range tests {
		if got := IsBackup(tt.name); got != tt.want {
			t.Errorf("IsBackup(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackupManager_BackupKeepsFirstCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.log")
	writeFile(t, path, "first version\n", 0640)

	b := NewBackupManager()
	created, err := b.Backup(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected backup to be created")
	}

	writeFile(t, path, "second version\n", 0640)
	created, err = b.Backup(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing backup to be kept")
	}

	if got := readFile(t, BackupPath(path)); got != "first version\n" {
		t.Errorf("expected backup of first version, got %q", got)
	}
	if b.PristinePath(path) != BackupPath(path) {
		t.Errorf("expected pristine path to be the backup")
	}

	info, err := os.Stat(BackupPath(path))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("expected backup mode 0640, got %v", info.Mode().Perm())
	}
}

func TestBackupManager_Restore(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "ns", "pod-a", "current.log")
	b := filepath.Join(root, "nodes", "worker-0", "kubelet_service.log")
	writeFile(t, a, "original a\n", 0644)
	writeFile(t, b, "original b\n", 0644)

	mgr := NewBackupManager()
	for _, p := range []string{a, b} {
		if _, err := mgr.Backup(p); err != nil {
			t.Fatalf("backup failed: %v", err)
		}
		writeFile(t, p, "trimmed\n", 0644)
	}

	// Leftover from an interrupted rewrite and an unrelated hidden file.
	stray := filepath.Join(root, "ns", "pod-a", tempPrefix+"current.log-99")
	writeFile(t, stray, "partial", 0600)
	hidden := filepath.Join(root, ".keep")
	writeFile(t, hidden, "", 0644)

	restored, err := mgr.Restore(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(restored) != 2 {
		t.Errorf("expected 2 restored files, got %v", restored)
	}

	if got := readFile(t, a); got != "original a\n" {
		t.Errorf("expected original content, got %q", got)
	}
	if got := readFile(t, b); got != "original b\n" {
		t.Errorf("expected original content, got %q", got)
	}
	for _, p := range []string{BackupPath(a), BackupPath(b), stray} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s to be gone", p)
		}
	}
	if _, err := os.Stat(hidden); err != nil {
		t.Errorf("expected unrelated hidden file to remain: %v", err)
	}
}

func TestBackupManager_RestoreMissingRoot(t *testing.T) {
	if _, err := NewBackupManager().Restore(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}
