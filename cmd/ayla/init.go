package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aylahq/ayla-agent/internal/defaults"
	"github.com/aylahq/ayla-agent/personas"
)

// runInit initializes an Ayla working directory with default files.
// It creates the data directory and copies the bundled config example
// and persona prompts. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Ayla workspace in %s\n", dir)

	for _, sub := range []string{"data", "personas"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	// Write config example if no config exists.
	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(configPath, defaults.ConfigYAML); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	// Copy the bundled persona prompts for reference and editing. The
	// server seeds its persona store from the same embedded set; edits
	// go in via the /reload-agents endpoint or the store directly.
	err := fs.WalkDir(personas.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		destPath := filepath.Join(dir, "personas", d.Name())

		content, err := personas.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}

		if err := writeIfMissing(destPath, content); err != nil {
			return err
		}
		fmt.Fprintf(w, "  ✓ %s\n", destPath)
		return nil
	})
	if err != nil {
		return fmt.Errorf("install personas: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml, then run: ayla serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, so init never overwrites user customizations.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, 0o644)
}
