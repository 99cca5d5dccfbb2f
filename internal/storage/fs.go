package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/SayaAndy/image-gallery/config"
	"github.com/gabriel-vasile/mimetype"
)

// FSStore serves objects from a local directory, mostly for development and tests.
type FSStore struct {
	root string
	fsys fs.FS
}

var _ Store = &FSStore{}

func NewFSStore(cfg *config.FSConfig) (*FSStore, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fail to stat storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root '%s' is not a directory", cfg.Root)
	}
	return &FSStore{root: cfg.Root, fsys: os.DirFS(cfg.Root)}, nil
}

func (s *FSStore) List(ctx context.Context, prefix string) ([]*Object, error) {
	objects := []*Object{}

	dir := path.Dir(prefix + "x")
	if _, err := fs.Stat(s.fsys, dir); errors.Is(err, fs.ErrNotExist) {
		return objects, nil
	}

	err := fs.WalkDir(s.fsys, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(name, prefix) {
			return nil
		}

		obj, err := s.stat(name)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate over local objects: %w", err)
	}

	return objects, nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	if !fs.ValidPath(key) {
		return nil, nil, fmt.Errorf("'%s': %w", key, ErrNotFound)
	}

	obj, err := s.stat(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("'%s': %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	file, err := s.fsys.Open(key)
	if err != nil {
		return nil, nil, fmt.Errorf("fail to open '%s': %w", key, err)
	}
	return file, obj, nil
}

func (s *FSStore) stat(key string) (*Object, error) {
	info, err := fs.Stat(s.fsys, key)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}

	contentType := "application/octet-stream"
	if strings.HasSuffix(key, ".md") {
		contentType = "text/markdown"
	} else if mime, err := mimetype.DetectFile(filepath.Join(s.root, filepath.FromSlash(key))); err == nil {
		contentType = mime.String()
	}

	return &Object{Key: key, ContentType: contentType, Size: info.Size()}, nil
}
