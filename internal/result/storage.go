package result

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	manifestFile = "manifest.json"
	packsDir     = "packs"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(runDir, packsDir), 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// PackPath is where the final result of the suite with the given key is
// stored inside runDir. Nested keys map to nested files.
func PackPath(runDir, key string) string {
	return filepath.Join(runDir, packsDir, filepath.FromSlash(key)+".json")
}

func WritePackResult(runDir string, res *PackResult) error {
	return writeJSON(PackPath(runDir, res.Key()), res)
}

func ReadPackResult(path string) (*PackResult, error) {
	var res PackResult
	if err := readJSON(path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListPacks returns the stored pack files of runDir, including nested ones,
// in path order.
func ListPacks(runDir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(filepath.Join(runDir, packsDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPacks loads every stored pack of runDir. Unreadable files are skipped.
func ReadPacks(runDir string) ([]*PackResult, error) {
	paths, err := ListPacks(runDir)
	if err != nil {
		return nil, err
	}
	var packs []*PackResult
	for _, p := range paths {
		res, err := ReadPackResult(p)
		if err != nil {
			continue
		}
		packs = append(packs, res)
	}
	return packs, nil
}

func WriteManifest(runDir string, m *RunManifest) error {
	return writeJSON(filepath.Join(runDir, manifestFile), m)
}

func ReadManifest(runDir string) (*RunManifest, error) {
	var m RunManifest
	if err := readJSON(filepath.Join(runDir, manifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
