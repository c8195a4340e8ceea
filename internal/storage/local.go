package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/validator"
)

// LocalStore keeps uploads as flat files in one directory.
// Concurrent writes of the same name are not coordinated, the last writer wins.
type LocalStore struct {
	dir          string
	publicPrefix string
}

func NewLocalStore(dir, publicPrefix string) *LocalStore {
	return &LocalStore{
		dir:          filepath.Clean(dir),
		publicPrefix: publicPrefix,
	}
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes data under name, creating the directory when missing.
// name must already be a single sanitized path component.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	target, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir: %v", entity.ErrStorage, err)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", entity.ErrStorage, name, err)
	}

	return target, nil
}

// Open returns the stored file called name. Names that are not a single
// path component, missing files and directories are ErrUploadNotFound.
func (s *LocalStore) Open(ctx context.Context, name string) (*os.File, error) {
	target, err := s.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUploadNotFound, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", entity.ErrUploadNotFound, name)
		}
		return nil, fmt.Errorf("%w: open %s: %v", entity.ErrStorage, name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", entity.ErrStorage, name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %q is not a file", entity.ErrUploadNotFound, name)
	}

	return f, nil
}

func (s *LocalStore) PublicPath(name string) string {
	return validator.PublicPath(s.publicPrefix, name)
}

// List returns stored files, newest first. A missing directory is an empty list.
func (s *LocalStore) List(ctx context.Context) ([]entity.StoredUpload, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []entity.StoredUpload{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read upload dir: %v", entity.ErrStorage, err)
	}

	uploads := make([]entity.StoredUpload, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}

		uploads = append(uploads, entity.StoredUpload{
			Name:       entry.Name(),
			Path:       s.PublicPath(entry.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.SliceStable(uploads, func(i, j int) bool {
		if uploads[i].ModifiedAt.Equal(uploads[j].ModifiedAt) {
			return uploads[i].Name < uploads[j].Name
		}
		return uploads[i].ModifiedAt.After(uploads[j].ModifiedAt)
	})

	return uploads, nil
}

func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidFilename, name)
	}

	target := filepath.Join(s.dir, name)
	if filepath.Dir(target) != s.dir {
		return "", fmt.Errorf("%w: %q escapes upload dir", entity.ErrInvalidFilename, name)
	}

	return target, nil
}
