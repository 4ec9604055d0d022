// Package audio resolves episode audio for playback. Audio lives in an
// object store as content-addressed blobs; documents point at their
// blob through a small pointer object next to the transcript.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// pointerPattern matches the blob reference inside a pointer object:
// "sha:<40-64 hex chars>".
var pointerPattern = regexp.MustCompile(`\bsha:([a-fA-F0-9]{40,64})\b`)

// maxPointerSize bounds how much of an object is read when probing for
// a pointer.
const maxPointerSize = 512

// handleTTL is how long presigned playback URLs stay valid.
const handleTTL = 6 * time.Hour

// Store resolves documents to presigned audio URLs.
type Store struct {
	client *minio.Client
	bucket string
}

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func New(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// objectKey maps a document path to its audio object.
func objectKey(doc string) string {
	return strings.TrimSuffix(doc, ".json")
}

// ResolveHandle returns a presigned playback URL for the document's
// audio. Tiny objects are treated as pointers and dereferenced to
// blobs/<sha> first.
func (s *Store) ResolveHandle(ctx context.Context, doc string) (string, error) {
	key := objectKey(doc)

	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("stat audio object: %w", err)
	}
	if stat.Size <= maxPointerSize {
		if deref, err := s.derefPointer(ctx, key); err == nil && deref != "" {
			key = deref
		}
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, handleTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign audio object: %w", err)
	}
	return presigned.String(), nil
}

// derefPointer reads a pointer object and returns the blob key it
// names, or "" when the object is not a pointer.
func (s *Store) derefPointer(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("read pointer object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxPointerSize))
	if err != nil {
		return "", fmt.Errorf("read pointer bytes: %w", err)
	}
	m := pointerPattern.FindSubmatch(data)
	if m == nil {
		return "", nil
	}
	return "blobs/" + string(m[1]), nil
}
