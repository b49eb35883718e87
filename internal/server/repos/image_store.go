package repos

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// ImageStore keeps uploaded image blobs keyed by image id.
type ImageStore struct {
	fs  afero.Fs
	dir string
}

func NewImageStore(fsys afero.Fs, dir string) (*ImageStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ImageStore{fs: fsys, dir: dir}, nil
}

func (s *ImageStore) Put(id string, data []byte) error {
	return afero.WriteFile(s.fs, s.path(id), data, 0o644)
}

func (s *ImageStore) Get(id string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *ImageStore) Remove(id string) error {
	err := s.fs.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *ImageStore) path(id string) string {
	return filepath.Join(s.dir, id)
}
