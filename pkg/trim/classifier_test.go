package trim

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPodLogClassifier(t *testing.T) {
	c := NewPodLogClassifier(DeadlineAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	tests := []struct {
		line string
		want Classification
	}{
		{"", Later},
		{"2023-12-31T23:58:00Z stdout F a\n", Earlier},
		{"2024-01-01T00:00:00Z stdout F b\n", Later},
		{"2024-01-01T00:00:05Z stdout F c\n", Later},
		{"    at main.go:12\n", NoTimestamp},
		{"\n", NoTimestamp},
	}

	for _, tt := range tests {
		if got := c.Classify([]byte(tt.line)); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestNodeLogClassifier(t *testing.T) {
	deadline := DeadlineAt(time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC))
	c, err := NewNodeLogClassifier(
		[]byte("-- Logs begin at 2024-01-01 00:00:00 UTC, end at 2024-01-01 02:00:00 UTC. --\n"),
		deadline,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ReferenceYear() != 2024 {
		t.Errorf("expected reference year 2024, got %d", c.ReferenceYear())
	}

	tests := []struct {
		line string
		want Classification
	}{
		{"", Later},
		{"Jan  1 01:29:59 worker-0 kubelet[1]: a\n", Earlier},
		{"Jan  1 01:30:01 worker-0 kubelet[1]: b\n", Later},
		{"-- Reboot --\n", NoTimestamp},
	}
	for _, tt := range tests {
		if got := c.Classify([]byte(tt.line)); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestNewNodeLogClassifierFromFile(t *testing.T) {
	dir := t.TempDir()
	deadline := DeadlineAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	good := filepath.Join(dir, "kubelet_service.log")
	if err := os.WriteFile(good, []byte("-- Logs begin at 2023-12-31 23:00:00 UTC, end at 2024-01-01 01:00:00 UTC. --\nDec 31 23:30:00 h k: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := NewNodeLogClassifierFromFile(good, deadline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Header().End.Equal(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end bound %v", c.Header().End)
	}

	bad := filepath.Join(dir, "NetworkManager_service.log")
	if err := os.WriteFile(bad, []byte("Dec 31 23:30:00 h NetworkManager: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewNodeLogClassifierFromFile(bad, deadline); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}

	if _, err := NewNodeLogClassifierFromFile(filepath.Join(dir, "missing"), deadline); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	orphan := filepath.Join(dir, "kubelet_orphan.log")
	if err := os.WriteFile(orphan, []byte(deadline.Header()+"Jan 01 00:30:00 h k: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewNodeLogClassifierFromFile(orphan, deadline)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader for a trimmed file without backup, got %v", err)
	}
	if !strings.Contains(err.Error(), "backup is missing") {
		t.Errorf("error should name the missing backup: %v", err)
	}
}

func TestClassification_String(t *testing.T) {
	if NoTimestamp.String() != "no_timestamp" || Earlier.String() != "earlier" || Later.String() != "later" {
		t.Error("unexpected classification names")
	}
}
