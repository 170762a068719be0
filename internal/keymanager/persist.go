package keymanager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CurrentMapFilename and OldMapFilename are the on-disk global map
// artifact names.
const (
	CurrentMapFilename = "current_global_key_map.json"
	OldMapFilename     = "old_global_key_map.json"
)

// LoadOldMap reads the previous run's global map from dir. A missing file
// is not an error: it returns an empty map, as on a first run.
func LoadOldMap(dir string) (GlobalMap, error) {
	return loadMap(filepath.Join(dir, OldMapFilename))
}

// LoadCurrentMap reads the current global map from dir, as left by the
// previous run's Persist call. A missing file returns an empty map.
func LoadCurrentMap(dir string) (GlobalMap, error) {
	return loadMap(filepath.Join(dir, CurrentMapFilename))
}

func loadMap(path string) (GlobalMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(GlobalMap), nil
		}
		return nil, fmt.Errorf("keymanager: read %s: %w", path, err)
	}
	var m GlobalMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("keymanager: parse %s: %w", path, err)
	}
	if m == nil {
		m = make(GlobalMap)
	}
	return m, nil
}

// Persist writes current as the new current_global_key_map.json in dir,
// first renaming any existing current file to the old filename. The write
// itself goes to a sibling temp file and is renamed onto the target, so a
// crash mid-write never leaves a truncated file.
func Persist(dir string, current GlobalMap) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("keymanager: create dir %s: %w", dir, err)
	}

	currentPath := filepath.Join(dir, CurrentMapFilename)
	oldPath := filepath.Join(dir, OldMapFilename)

	if _, err := os.Stat(currentPath); err == nil {
		if err := os.Rename(currentPath, oldPath); err != nil {
			return fmt.Errorf("keymanager: rotate old map: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("keymanager: stat %s: %w", currentPath, err)
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("keymanager: marshal current map: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".current_global_key_map-*.tmp")
	if err != nil {
		return fmt.Errorf("keymanager: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("keymanager: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("keymanager: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, currentPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("keymanager: rename temp file onto %s: %w", currentPath, err)
	}
	return nil
}
