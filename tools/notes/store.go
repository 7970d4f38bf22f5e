package notes

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when the note file does not exist.
	ErrNotFound = errors.New("note not found")
	// ErrInvalidName is returned for file names that escape the notes directory.
	ErrInvalidName = errors.New("invalid file name")
)

// Extensions are the file extensions kept as is,
// other names get .txt appended.
var Extensions = []string{".txt", ".md", ".json"}

// FileInfo describes a note file.
type FileInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Store keeps notes as plain files in a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir, the directory is created if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("notes directory is not specified")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create notes directory")
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// WithClock sets the time source used for generated file names.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir returns the notes directory.
func (s *Store) Dir() string {
	return s.dir
}

// NormalizeName appends .txt to names without a known extension.
func NormalizeName(name string) string {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return name
		}
	}
	return name + ".txt"
}

// TimestampName returns the generated name for a note saved at t.
func TimestampName(t time.Time) string {
	return "note_" + t.Format("20060102_150405") + ".txt"
}

func (s *Store) path(name string) (string, error) {
	if name == "" ||
		name == "." ||
		name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes the content and returns the path of the file.
// Empty name is replaced with the timestamp name.
func (s *Store) Save(name, content string) (string, error) {
	if name == "" {
		name = TimestampName(s.now())
	} else {
		name = NormalizeName(name)
	}
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// Read returns the content of the note.
func (s *Store) Read(name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WithStack(ErrNotFound)
		}
		return "", errors.WithStack(err)
	}
	return string(b), nil
}

// List returns the regular files, most recently modified first.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var list []FileInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// removed while listing
			continue
		}
		list = append(list, FileInfo{
			Name:     fi.Name(),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Modified.After(list[j].Modified)
	})
	return list, nil
}

// Delete removes the note.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err = os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.WithStack(ErrNotFound)
		}
		return errors.WithStack(err)
	}
	return nil
}
