package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Backblaze/blazer/b2"
	"github.com/SayaAndy/image-gallery/config"
)

type B2Store struct {
	prefix string
	bucket *b2.Bucket
	b2cl   *b2.Client
}

var _ Store = &B2Store{}

func NewB2Store(ctx context.Context, cfg *config.B2Config) (*B2Store, error) {
	b2cl, err := b2.NewClient(ctx, cfg.KeyID, cfg.ApplicationKey)
	if err != nil {
		return nil, fmt.Errorf("fail to initialize b2 client: %w", err)
	}

	bucket, err := b2cl.Bucket(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("fail to open b2 bucket '%s': %w", cfg.BucketName, err)
	}

	return &B2Store{b2cl: b2cl, bucket: bucket, prefix: cfg.Prefix}, nil
}

func (s *B2Store) List(ctx context.Context, prefix string) ([]*Object, error) {
	objects := []*Object{}

	iter := s.bucket.List(ctx, b2.ListPrefix(s.prefix+prefix))
	for iter.Next() {
		obj := iter.Object()
		if obj == nil {
			return nil, fmt.Errorf("failed to reference object in B2 bucket")
		}

		attrs, err := obj.Attrs(ctx)
		if err != nil {
			return nil, fmt.Errorf("get attributes for object: %w", err)
		}

		if attrs.Status != b2.Uploaded {
			continue
		}

		objects = append(objects, &Object{
			Key:         strings.TrimPrefix(obj.Name(), s.prefix),
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			Info:        attrs.Info,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate over B2 objects: %w", err)
	}

	return objects, nil
}

func (s *B2Store) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	obj := s.bucket.Object(s.prefix + key)
	if obj == nil {
		return nil, nil, fmt.Errorf("failed to reference object in B2 bucket")
	}

	attrs, err := obj.Attrs(ctx)
	if b2.IsNotExist(err) {
		return nil, nil, fmt.Errorf("'%s': %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error getting attributes of an object: %w", err)
	}

	return obj.NewReader(ctx), &Object{
		Key:         key,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Info:        attrs.Info,
	}, nil
}
