package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shard-a"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shard-b"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	source := NewDirSource(dir)

	ids, err := source.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "shard-a" || ids[1] != "shard-b" {
		t.Errorf("unexpected listing: %v", ids)
	}

	size, err := source.Size(context.Background(), "shard-a")
	if err != nil || size != 10 {
		t.Errorf("expected size 10, got %d (%v)", size, err)
	}

	got, err := source.Read(context.Background(), "shard-a", 3, 4)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "3456" {
		t.Errorf("expected %q, got %q", "3456", got)
	}

	// Short read at end of file
	got, err = source.Read(context.Background(), "shard-b", 1, 10)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "bc" {
		t.Errorf("expected %q, got %q", "bc", got)
	}

	if _, err := source.Size(context.Background(), "missing"); err == nil {
		t.Error("unknown data id must fail")
	}
}
