package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxConfigSize bounds how large a config file this package will read,
// mirroring the root config package's own DoS guard for untrusted file
// input.
const maxConfigSize = 10 << 20 // 10MB

// safeReadFile reads a YAML config file after validating its path and size,
// rejecting directory traversal, non-YAML extensions, and paths that do not
// resolve to a regular file. Symlinks are followed, so a link to a regular
// file is read.
func safeReadFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("path traversal not allowed: %s", path)
	}
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("only .yaml/.yml config files allowed: %s", path)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", cleanPath)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}

	return os.ReadFile(cleanPath)
}
