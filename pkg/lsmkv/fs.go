package lsmkv

import (
	"fmt"
	"os"
	"path/filepath"
)

// listTableFiles returns the ".sst" files directly under dir, in no
// particular order — callers sort by min key after loading.
func listTableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sst" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("lsmkv: mkdir %s: %w", path, err)
	}
	return nil
}

func removeDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("lsmkv: remove %s: %w", path, err)
	}
	return nil
}
