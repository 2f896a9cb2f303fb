// Package assets stores uploaded media and published site files in
// S3-compatible object storage.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"siteforge/api/internal/util"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is the externally reachable URL prefix for objects,
	// e.g. https://cdn.example.com/siteforge
	PublicBaseURL string
}

type Service struct {
	client *minio.Client
	bucket string
	public string
}

// New connects to object storage and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("assets: created bucket %s", cfg.Bucket)
	}

	return &Service{
		client: client,
		bucket: cfg.Bucket,
		public: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores a user-uploaded file under the website's prefix and returns
// its public URL. The object name gets a random ID so uploads never collide.
func (s *Service) Upload(ctx context.Context, websiteID, filename, contentType string, r io.Reader, size int64) (string, error) {
	ext := path.Ext(filename)
	objectName := fmt.Sprintf("sites/%s/uploads/%s%s", websiteID, util.NewID("asset"), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.PublicURL(objectName), nil
}

// PutSiteFile writes one published page (or the preview screenshot) for a
// website. Published files have stable names so re-publishing overwrites.
func (s *Service) PutSiteFile(ctx context.Context, websiteID, filename, contentType string, data []byte) (string, error) {
	objectName := fmt.Sprintf("sites/%s/public/%s", websiteID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put site file: %w", err)
	}

	return s.PublicURL(objectName), nil
}

// RemoveSiteFiles deletes everything published for a website. Used when a
// site is unpublished or deleted.
func (s *Service) RemoveSiteFiles(ctx context.Context, websiteID string) error {
	prefix := fmt.Sprintf("sites/%s/", websiteID)

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objectCh {
		if obj.Err != nil {
			return fmt.Errorf("list site files: %w", obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", obj.Key, err)
		}
	}
	return nil
}

// PublicURL maps an object name to its externally reachable URL.
func (s *Service) PublicURL(objectName string) string {
	return s.public + "/" + objectName
}
