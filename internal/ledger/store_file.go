package ledger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sirekapreview/reviewer/internal/errors"
)

const stateFilePerm = 0o600

// stateFile is the on-disk layout of the YAML state file.
type stateFile struct {
	Contributed *int `yaml:"contributed,omitempty"`
}

// FileStore keeps the counter in a small YAML file. Writes go to a temp file
// in the same directory which is then renamed over the target.
type FileStore struct {
	fs   afero.Fs
	path string
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFs replaces the OS filesystem, mainly for tests.
func WithFs(fs afero.Fs) FileStoreOption {
	return func(s *FileStore) { s.fs = fs }
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{fs: afero.NewOsFs(), path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the state file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (int, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.New(err).
			Category(errors.CategoryFileIO).
			Component(componentName).
			Context("operation", "read-state").
			Context("path", s.path).
			Build()
	}

	var st stateFile
	if err := yaml.Unmarshal(data, &st); err != nil {
		return 0, false, errors.New(err).
			Category(errors.CategoryFileParsing).
			Component(componentName).
			Context("path", s.path).
			Build()
	}
	if st.Contributed == nil {
		return 0, false, nil
	}
	return *st.Contributed, true, nil
}

func (s *FileStore) Save(_ context.Context, n int) error {
	data, err := yaml.Marshal(stateFile{Contributed: &n})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileParsing).
			Component(componentName).
			Build()
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return s.writeError(err, "create-dir")
	}

	tmp, err := afero.TempFile(s.fs, dir, ".state-*.yaml")
	if err != nil {
		return s.writeError(err, "create-temp")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return s.writeError(err, "write-temp")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return s.writeError(err, "sync-temp")
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return s.writeError(err, "close-temp")
	}
	if err := s.fs.Chmod(tmpName, stateFilePerm); err != nil {
		_ = s.fs.Remove(tmpName)
		return s.writeError(err, "chmod-temp")
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return s.writeError(err, "rename")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) writeError(err error, op string) error {
	return errors.New(err).
		Category(errors.CategoryFileIO).
		Component(componentName).
		Context("operation", op).
		Context("path", s.path).
		Build()
}
