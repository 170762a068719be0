package tracker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backup copies the existing file at path into backupsDir with a
// timestamped suffix, then prunes older backups of the same base file down
// to the two most recent.
func backup(path, backupsDir string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s for backup: %w", path, err)
	}
	defer src.Close()

	if err := os.MkdirAll(backupsDir, 0o755); err != nil {
		return fmt.Errorf("create backups dir %s: %w", backupsDir, err)
	}

	base := filepath.Base(path)
	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	backupPath := filepath.Join(backupsDir, fmt.Sprintf("%s.%s.bak", base, stamp))

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("create backup %s: %w", backupPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return fmt.Errorf("copy backup %s: %w", backupPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return fmt.Errorf("close backup %s: %w", backupPath, err)
	}

	return pruneBackups(backupsDir, base)
}

// pruneBackups keeps only the two most recent backups of base (by lexical
// suffix, which sorts chronologically since the stamp is zero-padded) and
// removes the rest.
func pruneBackups(backupsDir, base string) error {
	entries, err := os.ReadDir(backupsDir)
	if err != nil {
		return fmt.Errorf("read backups dir %s: %w", backupsDir, err)
	}

	prefix := base + "."
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	const keep = 2
	if len(names) <= keep {
		return nil
	}
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(backupsDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale backup %s: %w", name, err)
		}
	}
	return nil
}
