// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/internetofwater/ldsync/internal/config"
	"github.com/internetofwater/ldsync/internal/opentelemetry"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// The prefix under which run reports are stored
const ReportPrefix = "reports/"

// A run report that can be serialized to JSON-LD
type JsonLdReport interface {
	ToJsonLdReader() (io.Reader, error)
}

// Wrapper to allow us to extend the minio client struct with new methods
type MinioClientWrapper struct {
	// Base client for accessing minio
	Client *minio.Client
	// Reports are only ever written to one bucket
	DefaultBucket string
}

// Set up a minio client for the configured report bucket
func NewMinioClientWrapper(cfg config.ReportConfig) (*MinioClientWrapper, error) {
	endpoint := cfg.Address
	if cfg.Port != 0 {
		endpoint = fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Accesskey, cfg.Secretkey, ""),
		Secure: cfg.SSL,
	}
	if cfg.Region == "" {
		log.Debug("Minio client created with no region set")
	} else {
		options.Region = cfg.Region
	}

	client, err := minio.New(endpoint, options)
	if err != nil {
		return nil, err
	}
	return &MinioClientWrapper{Client: client, DefaultBucket: cfg.Bucket}, nil
}

// Create the default bucket if it does not exist
func (m *MinioClientWrapper) MakeDefaultBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.DefaultBucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Client.MakeBucket(ctx, m.DefaultBucket, minio.MakeBucketOptions{})
}

// Store an object in the default bucket
func (m *MinioClientWrapper) Store(ctx context.Context, path string, data io.Reader) error {
	_, err := m.Client.PutObject(ctx, m.DefaultBucket, path, data, -1, minio.PutObjectOptions{ContentType: "application/ld+json"})
	return err
}

// Exists reports whether an object is stored under path
func (m *MinioClientWrapper) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.DefaultBucket, path, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	// NoSuchKey is the error code S3 returns for a missing object
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// ObjectList returns the sorted names of the objects under prefix
func (m *MinioClientWrapper) ObjectList(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for object := range m.Client.ListObjects(ctx, m.DefaultBucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, object.Err
		}
		names = append(names, object.Key)
	}
	sort.Strings(names)
	return names, nil
}

// ReportKey returns the object name of a report of the given kind
func ReportKey(kind string, at time.Time) string {
	return fmt.Sprintf("%s%s_%s.jsonld", ReportPrefix, kind, at.UTC().Format("20060102T150405Z"))
}

// unusedReportKey returns ReportKey unless a report is already stored there,
// in which case a numeric suffix is added
func (m *MinioClientWrapper) unusedReportKey(ctx context.Context, kind string, at time.Time) (string, error) {
	key := ReportKey(kind, at)
	exists, err := m.Exists(ctx, key)
	if err != nil || !exists {
		return key, err
	}
	base := strings.TrimSuffix(key, ".jsonld")
	names, err := m.ObjectList(ctx, base)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		taken[name] = true
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d.jsonld", base, i)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// UploadReport serializes the report and stores it under the reports prefix
// without replacing an earlier report. It returns the object name
func (m *MinioClientWrapper) UploadReport(ctx context.Context, kind string, report JsonLdReport, at time.Time) (string, error) {
	ctx, span := opentelemetry.SubSpanFromCtxWithName(ctx, "upload_report")
	defer span.End()

	reader, err := report.ToJsonLdReader()
	if err != nil {
		return "", err
	}
	key, err := m.unusedReportKey(ctx, kind, at)
	if err != nil {
		return "", err
	}
	if err := m.Store(ctx, key, reader); err != nil {
		return "", fmt.Errorf("uploading %s to bucket %s: %w", key, m.DefaultBucket, err)
	}
	log.Infof("Uploaded %s report to s3://%s/%s", kind, m.DefaultBucket, key)
	return key, nil
}
