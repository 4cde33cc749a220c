// Package storage uploads cover images and avatars to an S3-compatible
// object store and hands back publicly servable URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

const (
	FolderBlogCovers = "blog_covers"
	FolderAvatars    = "avatars"
)

type Store struct {
	client   *minio.Client
	endpoint string
	bucket   string
	secure   bool
}

func New(endpoint, accessKey, secretKey, bucket string, secure bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialise object storage client")
	}
	return &Store{client: client, endpoint: endpoint, bucket: bucket, secure: secure}, nil
}

// Upload stores the file under a freshly generated object name inside folder
// and returns its public URL. ext must carry the leading dot.
func (s *Store) Upload(ctx context.Context, r io.Reader, size int64, folder, ext, contentType string) (string, error) {
	k, err := ksuid.NewRandom()
	if err != nil {
		return "", err
	}
	objectName := folder + "/" + k.String() + ext
	_, err = s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to upload object")
	}
	return s.urlFor(objectName), nil
}

// Delete removes the object a previously returned URL points at. Callers
// treat failures as best-effort, a stale object never fails the parent write.
func (s *Store) Delete(ctx context.Context, fileURL string) error {
	objectName, ok := s.objectName(fileURL)
	if !ok {
		return fmt.Errorf("url %q does not belong to bucket %q", fileURL, s.bucket)
	}
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

func (s *Store) urlFor(objectName string) string {
	scheme := "http://"
	if s.secure {
		scheme = "https://"
	}
	return scheme + s.endpoint + "/" + s.bucket + "/" + objectName
}

// objectName extracts the object key from a URL produced by urlFor. Foreign
// URLs (caller-supplied cover image links) report ok=false.
func (s *Store) objectName(fileURL string) (string, bool) {
	for _, scheme := range []string{"http://", "https://"} {
		prefix := scheme + s.endpoint + "/" + s.bucket + "/"
		if strings.HasPrefix(fileURL, prefix) {
			return strings.TrimPrefix(fileURL, prefix), true
		}
	}
	return "", false
}
