package payloads

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/waymap/waymap/pkg/finding"
)

func TestLoadCatalog_KeepsHashPayloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlipayload.txt")
	if err := os.WriteFile(path, []byte("'\n# \n' OR 1=1 #\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"'", "#", "' OR 1=1 #"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLoadCatalog_Unreadable(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, finding.ErrDefinitionLoad) {
		t.Errorf("expected ErrDefinitionLoad, got %v", err)
	}
}
