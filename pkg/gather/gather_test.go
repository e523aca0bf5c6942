package gather

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"medik8s/gathertrim/pkg/config"
)

// fakeCommand writes an executable shell script standing in for oc.
func fakeCommand(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name    string
		images  []string
		streams []string
		want    []string
	}{
		{
			name: "default image",
			want: []string{"adm", "must-gather", "--dest-dir=out", "--image=quay.io/kubevirt/must-gather"},
		},
		{
			name:   "explicit images",
			images: []string{"a", "b"},
			want:   []string{"adm", "must-gather", "--dest-dir=out", "--image=a", "--image=b"},
		},
		{
			name:    "image streams only",
			streams: []string{"openshift/must-gather"},
			want:    []string{"adm", "must-gather", "--dest-dir=out", "--image-stream=openshift/must-gather"},
		},
		{
			name:    "both",
			images:  []string{"a"},
			streams: []string{"s"},
			want:    []string{"adm", "must-gather", "--dest-dir=out", "--image=a", "--image-stream=s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(&config.GatherConfig{
				DestDir:      "out",
				DefaultImage: config.DefaultGatherImage,
				Images:       tt.images,
				ImageStreams: tt.streams,
			})
			if got := r.Args(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "gather-files")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dest, "stale.log")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(&config.GatherConfig{
		Command:      fakeCommand(t, `echo "gathering $3"`),
		DestDir:      dest,
		DefaultImage: "img",
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dest, OutputFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "gathering --dest-dir="+dest+"\n" {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected destination to be recreated")
	}
}

func TestRun_Failure(t *testing.T) {
	r := NewRunner(&config.GatherConfig{
		Command:      fakeCommand(t, "echo 'not logged in' >&2; exit 3"),
		DestDir:      filepath.Join(t.TempDir(), "out"),
		DefaultImage: "img",
	})

	err := r.Run(context.Background())
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if gerr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", gerr.ExitCode)
	}
	if gerr.Stderr != "not logged in" {
		t.Errorf("Stderr = %q", gerr.Stderr)
	}
	if !strings.Contains(gerr.Error(), "not logged in") {
		t.Errorf("Error() = %q", gerr.Error())
	}
}

func TestRun_Timeout(t *testing.T) {
	r := NewRunner(&config.GatherConfig{
		Command:      fakeCommand(t, "exec sleep 5"),
		DestDir:      filepath.Join(t.TempDir(), "out"),
		DefaultImage: "img",
		Timeout:      50 * time.Millisecond,
	})

	err := r.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRun_MissingCommand(t *testing.T) {
	r := NewRunner(&config.GatherConfig{
		Command:      filepath.Join(t.TempDir(), "missing"),
		DestDir:      filepath.Join(t.TempDir(), "out"),
		DefaultImage: "img",
	})

	var gerr *Error
	if err := r.Run(context.Background()); !errors.As(err, &gerr) || gerr.ExitCode != -1 {
		t.Fatalf("expected *Error with exit code -1, got %v", err)
	}
}
