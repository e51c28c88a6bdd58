package result_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/stats"
)

func samplePack(name string) *result.PackResult {
	return &result.PackResult{
		Name:    name,
		Errors:  1,
		Entries: 5,
		Retries: 2,
		Time:    stats.NewMeasure([]float64{10, 20, 0}, stats.UnitMilliseconds),
		Memory:  stats.NewMeasure([]float64{2, 2, 0}, stats.UnitMegabytes),
	}
}

func TestWriteAndReadPackResult(t *testing.T) {
	dir := t.TempDir()
	pack := samplePack("walk.js")
	if err := result.WritePackResult(dir, pack); err != nil {
		t.Fatalf("WritePackResult: %v", err)
	}
	got, err := result.ReadPackResult(result.PackPath(dir, "walk.js"))
	if err != nil {
		t.Fatalf("ReadPackResult: %v", err)
	}
	if got.Name != pack.Name {
		t.Errorf("name: got %q, want %q", got.Name, pack.Name)
	}
	if got.Time.Stdev != pack.Time.Stdev {
		t.Errorf("time stdev: got %f, want %f", got.Time.Stdev, pack.Time.Stdev)
	}
	if len(got.Memory.Samples) != 3 {
		t.Errorf("memory samples: got %d, want 3", len(got.Memory.Samples))
	}
}

func TestPackCounts(t *testing.T) {
	pack := samplePack("glob.js")
	if pack.Launches() != 3 {
		t.Errorf("launches: got %d, want 3", pack.Launches())
	}
	if pack.Succeeded() != 2 {
		t.Errorf("succeeded: got %d, want 2", pack.Succeeded())
	}
	if pack.AllFailed() {
		t.Error("pack with successes reported as all failed")
	}
	pack.Errors = 3
	if !pack.AllFailed() {
		t.Error("expected all failed")
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestReadPacksSkipsBrokenFiles(t *testing.T) {
	runDir, err := result.CreateRunDir(t.TempDir())
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	for _, name := range []string{"b.js", "a.js"} {
		if err := result.WritePackResult(runDir, samplePack(name)); err != nil {
			t.Fatalf("WritePackResult: %v", err)
		}
	}
	os.WriteFile(filepath.Join(runDir, "packs", "broken.json"), []byte("{"), 0o644)

	packs, err := result.ReadPacks(runDir)
	if err != nil {
		t.Fatalf("ReadPacks: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("got %d packs, want 2", len(packs))
	}
	if packs[0].Name != "a.js" || packs[1].Name != "b.js" {
		t.Errorf("order: got %q, %q", packs[0].Name, packs[1].Name)
	}
}

func TestSameNamedSuitesStoredSeparately(t *testing.T) {
	runDir, err := result.CreateRunDir(t.TempDir())
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	first, second := samplePack("index.js"), samplePack("index.js")
	first.Path = "a/index.js"
	second.Path = "b/nested/index.js"
	second.Entries = 9
	for _, p := range []*result.PackResult{first, second} {
		if err := result.WritePackResult(runDir, p); err != nil {
			t.Fatalf("WritePackResult: %v", err)
		}
	}

	packs, err := result.ReadPacks(runDir)
	if err != nil {
		t.Fatalf("ReadPacks: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("got %d packs, want 2", len(packs))
	}
	if packs[0].Key() != "a/index.js" || packs[1].Key() != "b/nested/index.js" {
		t.Errorf("keys: got %q, %q", packs[0].Key(), packs[1].Key())
	}
	if packs[1].Entries != 9 {
		t.Errorf("second pack entries: got %d, want 9", packs[1].Entries)
	}
	if _, err := os.Stat(result.PackPath(runDir, "b/nested/index.js")); err != nil {
		t.Errorf("nested pack file: %v", err)
	}
}

func TestKeyFallsBackToName(t *testing.T) {
	pack := samplePack("walk.js")
	if pack.Key() != "walk.js" {
		t.Errorf("key: got %q, want walk.js", pack.Key())
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &result.RunManifest{
		ID:        "run-1",
		StartedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
		Type:      "sync",
		Launches:  3,
		MaxStdev:  5,
		Retries:   2,
		Revision:  "abc1234",
	}
	if err := result.WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	got, err := result.ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if !got.StartedAt.Equal(m.StartedAt) || got.Revision != m.Revision || got.Launches != 3 {
		t.Errorf("manifest mismatch: %+v", got)
	}
}
