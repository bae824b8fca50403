// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/poiesic/docchat/core"
)

// KeyPrefix is prepended to every uploaded object key.
const KeyPrefix = "uploads/"

// ObjectPutter is the part of the S3 API the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies source PDFs into an S3 bucket under a random key.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	logger *slog.Logger
}

// NewS3Uploader creates an uploader for bucket using the default AWS
// credential chain.
func NewS3Uploader(ctx context.Context, bucket, region string) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), bucket)
}

// NewS3UploaderWithClient creates an uploader around an existing client.
func NewS3UploaderWithClient(client ObjectPutter, bucket string) (*S3Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: s3 client required", core.ErrInvalidArgument)
	}
	if core.IsBlank(bucket) {
		return nil, fmt.Errorf("%w: bucket name required", core.ErrInvalidArgument)
	}
	return &S3Uploader{
		client: client,
		bucket: strings.TrimSpace(bucket),
		logger: slog.Default().With("component", "s3-uploader"),
	}, nil
}

// Upload stores the PDF at path as uploads/<uuid><ext> and returns its
// s3:// URI. Files without a .pdf extension are rejected.
func (u *S3Uploader) Upload(ctx context.Context, path string) (string, error) {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, ".pdf") {
		return "", fmt.Errorf("%w: only .pdf files can be uploaded, got %q", core.ErrInvalidArgument, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrUploadFailed, err)
	}
	defer f.Close()

	key := KeyPrefix + uuid.NewString() + ext
	u.logger.Info("uploading document", "path", path, "bucket", u.bucket, "key", key)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		u.logger.Error("upload failed", "bucket", u.bucket, "key", key, "err", err)
		return "", fmt.Errorf("%w: s3://%s/%s: %w", core.ErrUploadFailed, u.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
