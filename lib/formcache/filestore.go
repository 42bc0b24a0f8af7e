// Package formcache keeps sealed form state on disk, one file per form hash.
//
// The directory is created on first use and receives a deny-all .htaccess
// and an empty index.html so a web server pointed at it does not list or
// serve the files.
package formcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("formcache: entry not found")

// ErrInvalidKey is returned for keys that are not 32 lowercase hex digits.
var ErrInvalidKey = errors.New("formcache: invalid key")

var keyPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

const (
	accessFile    = ".htaccess"
	accessRules   = "# Deny access to cached form state\nRequire all denied\nDeny from all\n"
	indexFile     = "index.html"
	filePerm      = 0o600
	directoryPerm = 0o750
)

// FileStore maps keys to files in a single directory.
type FileStore struct {
	dir      string
	initOnce sync.Once
	initErr  error
}

// NewFileStore returns a store rooted at dir. Nothing touches the disk
// until the first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// ValidKey reports whether key may be used as a file name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func (s *FileStore) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// ensureDir creates the directory and its access guard files once.
func (s *FileStore) ensureDir() error {
	s.initOnce.Do(func() {
		if err := os.MkdirAll(s.dir, directoryPerm); err != nil {
			s.initErr = fmt.Errorf("failed to create cache directory %q: %w", s.dir, err)
			return
		}
		guards := map[string]string{accessFile: accessRules, indexFile: ""}
		for name, body := range guards {
			p := filepath.Join(s.dir, name)
			if _, err := os.Stat(p); err == nil {
				continue
			}
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				s.initErr = fmt.Errorf("failed to write %s in %q: %w", name, s.dir, err)
				return
			}
		}
	})
	return s.initErr
}

// Put writes data under key, replacing any previous entry.
func (s *FileStore) Put(key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("failed to store form at %q, make sure the directory is writable: %w", p, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store form at %q: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store form at %q: %w", p, err)
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store form at %q: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store form at %q: %w", p, err)
	}
	return nil
}

// Get reads the entry for key.
func (s *FileStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form from %q: %w", p, err)
	}
	return data, nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *FileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", p, err)
	}
	return nil
}

// Purge removes entries last written before cutoff and returns how many
// were removed. Guard files and foreign files are left alone.
func (s *FileStore) Purge(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory %q: %w", s.dir, err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !ValidKey(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
