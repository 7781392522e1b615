package id_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/KarthikHK-01/queuectl/id"
)

func TestNewJobID_IsUUIDv7(t *testing.T) {
	got := id.NewJobID()
	u, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", got, err)
	}
	if u.Version() != 7 {
		t.Errorf("version = %d, want 7", u.Version())
	}
}

func TestNewJobID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		s := id.NewJobID()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate id %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestNewWorkerID_Prefix(t *testing.T) {
	got := id.NewWorkerID()
	if !strings.HasPrefix(got, id.WorkerPrefix) {
		t.Errorf("expected prefix %q, got %q", id.WorkerPrefix, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"simple", "job1", true},
		{"uuid", id.NewJobID(), true},
		{"punctuated", "nightly-report_2024.01", true},
		{"empty", "", false},
		{"space", "job 1", false},
		{"tab", "job\t1", false},
		{"newline", "job\n", false},
		{"too long", strings.Repeat("a", id.MaxLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := id.Validate(tt.input)
			if tt.ok && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.input, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate(%q) = nil, want error", tt.input)
			}
		})
	}
}
