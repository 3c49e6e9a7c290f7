package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// artefactPath decides where the artefact for source goes: the -o path if
// given, else the source name with ext, placed in the configured output
// directory or next to the source.
func (d *Driver) artefactPath(source, ext string) (string, error) {
	if d.opts.Output != "" {
		return d.opts.Output, nil
	}

	fullPath, parentDir, err := pathInfo(source)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(fullPath), filepath.Ext(fullPath)) + ext

	if dir := d.cfg.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
		return filepath.Join(dir, name), nil
	}
	return filepath.Join(parentDir, name), nil
}

// pathInfo returns the absolute path of relPath and the directory that
// contains it.
func pathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", relPath, err)
	}
	return fullPath, filepath.Dir(fullPath), nil
}
