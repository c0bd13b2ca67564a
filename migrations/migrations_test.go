package migrations

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestFS_SequentialGooseFiles(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for i, n := range names {
		prefix := fmt.Sprintf("%05d_", i+1)
		if !strings.HasPrefix(n, prefix) {
			t.Fatalf("migration %q out of sequence, want prefix %q", n, prefix)
		}
		b, err := fs.ReadFile(FS, n)
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		if !strings.Contains(string(b), "-- +goose Up") || !strings.Contains(string(b), "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", n)
		}
	}
}
