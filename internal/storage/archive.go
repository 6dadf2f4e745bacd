// Package storage archives filled notice PDFs to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/pkg/awsconf"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

// S3API is the part of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive stores sent notices under <prefix>/<semester>/<row>-<file>.
type Archive struct {
	client S3API
	bucket string
	prefix string
}

// NewArchive creates an S3 archive from config. It returns nil when no
// bucket is configured; a nil *Archive ignores every Put.
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	awsCfg, err := awsconf.Load(ctx, awsconf.Options{Region: cfg.Region, Profile: cfg.AWSProfile})
	if err != nil {
		return nil, err
	}
	return NewArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewArchiveWithClient wraps an existing S3 client.
func NewArchiveWithClient(client S3API, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a notice file.
func (a *Archive) Key(semester string, rowIndex int, fileName string) string {
	term := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(semester), " ", "-"))
	return path.Join(a.prefix, term, fmt.Sprintf("%d-%s", rowIndex, fileName))
}

// Put uploads a local file and returns its key.
func (a *Archive) Put(ctx context.Context, semester string, rowIndex int, localPath string) (string, error) {
	if a == nil {
		return "", nil
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", localPath, err)
	}

	key := a.Key(semester, rowIndex, filepath.Base(localPath))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", a.bucket, key, err)
	}

	logger.Info("storage: archived notice", "bucket", a.bucket, "key", key, "bytes", len(data))
	return key, nil
}
