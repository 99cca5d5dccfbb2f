package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SayaAndy/image-gallery/config"
)

var ErrNotFound = errors.New("object not found")

// Object describes a stored file. Key is relative to the configured prefix.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Info        map[string]string
}

type Store interface {
	List(ctx context.Context, prefix string) ([]*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
}

func NewStore(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "b2":
		return NewB2Store(ctx, cfg.B2)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "fs":
		return NewFSStore(cfg.FS)
	}
	return nil, fmt.Errorf("unknown storage type '%s'", cfg.Type)
}

func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	reader, _, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("fail to read '%s' content: %w", key, err)
	}
	return content, nil
}

func IsMarkdown(obj *Object) bool {
	return strings.Contains(obj.ContentType, "text/markdown") || strings.HasSuffix(obj.Key, ".md")
}
