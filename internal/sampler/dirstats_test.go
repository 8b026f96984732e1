package sampler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/models"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0640); err != nil {
		t.Fatal(err)
	}
}

func TestDirStats_SizeAndCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.log"), 1024)
	writeFile(t, filepath.Join(dir, "b.log"), 2048)
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(sub, "c.log"), 512)

	src := NewDirStatsSource([]string{dir}, zap.NewNop())
	metrics, err := src.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(metrics) != 2 {
		t.Fatalf("got %d metrics, want 2 (size + count)", len(metrics))
	}

	byName := map[models.MetricName]models.Metric{}
	for _, m := range metrics {
		byName[m.Name] = m
	}

	size, ok := byName[models.MetricDirectorySize]
	if !ok {
		t.Fatal("missing Directory Size metric")
	}
	wantMB := float64(1024+2048+512) / (1024 * 1024)
	if size.Value != wantMB {
		t.Errorf("size = %v MB, want %v MB", size.Value, wantMB)
	}
	if size.Path != dir {
		t.Errorf("size path = %q, want %q", size.Path, dir)
	}

	count, ok := byName[models.MetricDirectoryFileCount]
	if !ok {
		t.Fatal("missing Directory File Count metric")
	}
	if count.Value != 3 {
		t.Errorf("file count = %v, want 3", count.Value)
	}
	if count.Unit != "files" {
		t.Errorf("count unit = %q, want \"files\"", count.Unit)
	}
}

func TestDirStats_UnreadablePathSkipped(t *testing.T) {
	good := t.TempDir()
	writeFile(t, filepath.Join(good, "x"), 10)
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	src := NewDirStatsSource([]string{missing, good}, zap.NewNop())
	metrics, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("one bad path must not fail the collection: %v", err)
	}

	if len(metrics) != 2 {
		t.Fatalf("got %d metrics, want 2 for the surviving path", len(metrics))
	}
	for _, m := range metrics {
		if m.Path != good {
			t.Errorf("metric path = %q, want %q", m.Path, good)
		}
	}
}

func TestDirStats_SetPathsReplacesList(t *testing.T) {
	src := NewDirStatsSource([]string{"/a"}, zap.NewNop())
	src.SetPaths([]string{"/b", "/c"})

	got := src.Paths()
	if len(got) != 2 || got[0] != "/b" || got[1] != "/c" {
		t.Errorf("Paths() = %v, want [/b /c]", got)
	}
}

func TestDirStats_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	src := NewDirStatsSource([]string{dir}, zap.NewNop())
	metrics, err := src.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 2 {
		t.Fatalf("got %d metrics, want 2", len(metrics))
	}
	for _, m := range metrics {
		if m.Value != 0 {
			t.Errorf("%s = %v, want 0 for empty directory", m.Name, m.Value)
		}
	}
}
