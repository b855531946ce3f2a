// Package staging manages the directory where assets are copied to disk before
// extraction. Every path it hands out is unique and confined to the directory.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/logging"
)

const (
	// DefaultDirPerm is used when the staging directory has to be created.
	DefaultDirPerm = 0o750

	// MaxStemBytes and MaxExtBytes cap the name parts of a staged file so that
	// "{uuid}-{stem}.{ext}" stays well below the 255 byte file name limit.
	MaxStemBytes = 128
	MaxExtBytes  = 32
)

// Area is a staging directory shared by concurrent extractions.
type Area struct {
	dir    string
	logger arbor.ILogger
}

// NewArea creates a staging area rooted at dir. The directory is not created
// until Ensure is called.
func NewArea(dir string, logger arbor.ILogger) (*Area, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging directory cannot be empty")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging directory: %w", err)
	}

	return &Area{
		dir:    filepath.Clean(absDir),
		logger: logging.OrDiscard(logger),
	}, nil
}

// Dir returns the absolute staging directory
func (a *Area) Dir() string {
	return a.dir
}

// Ensure creates the staging directory if it does not exist
func (a *Area) Ensure() error {
	info, err := os.Stat(a.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(a.dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create staging directory %s: %w", a.dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access staging directory %s: %w", a.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("staging path is not a directory: %s", a.dir)
	}
	return nil
}

// Path returns a fresh file path of the form "{uuid}-{stem}.{ext}". The stem
// is sanitized so that asset names cannot escape the staging directory, and
// long stems or extensions are shortened on a rune boundary.
func (a *Area) Path(stem, ext string) (string, error) {
	name := uuid.NewString()
	if s := Truncate(sanitize(stem), MaxStemBytes); s != "" {
		name += "-" + s
	}
	if e := Truncate(sanitize(strings.TrimPrefix(ext, ".")), MaxExtBytes); e != "" {
		name += "." + e
	}

	path := filepath.Join(a.dir, name)
	if !a.Contains(path) {
		return "", fmt.Errorf("staged path is outside staging directory: %s", path)
	}
	return path, nil
}

// Contains reports whether path lies inside the staging directory
func (a *Area) Contains(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	cleanPath := filepath.Clean(absPath)

	dirWithSep := a.dir
	if !strings.HasSuffix(dirWithSep, string(filepath.Separator)) {
		dirWithSep += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath, dirWithSep)
}

// Remove deletes a staged file. Failures are logged and reported through the
// return value; a file that is already gone is not a failure.
func (a *Area) Remove(path string) error {
	if path == "" {
		return nil
	}
	if !a.Contains(path) {
		return fmt.Errorf("refusing to remove path outside staging directory: %s", path)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove staged file")
		return err
	}
	return nil
}

// Pending lists the files currently present in the staging directory
func (a *Area) Pending() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read staging directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(a.dir, entry.Name()))
	}
	return files, nil
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// sanitize strips path separators, null bytes and parent references from a
// file name component.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "..", "_")
	return strings.TrimSpace(s)
}
