// Copyright 2025 The R-Lake Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// S3Config has the parameters used to connect to an S3-compatible
// object store.
type S3Config struct {
	AccessKey string // Access key.
	Bucket    string // The name of the bucket.
	Endpoint  string // The server to use, e.g. a self-hosted provider.
	Insecure  bool   // For testing against self-hosted providers.
	SecretKey string // Secret associated with the access key.
}

// NewS3 returns a Store backed by an S3-compatible provider. The
// bucket is created if it does not already exist.
func NewS3(ctx context.Context, config *S3Config) (Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to object store")
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "checking bucket %q", config.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "creating bucket %q", config.Bucket)
		}
		log.Infof("created artifact bucket %q", config.Bucket)
	}

	return &s3Store{bucket: config.Bucket, client: client}, nil
}

type s3Store struct {
	bucket string
	client *minio.Client
}

// Put implements Store. Transient upload failures are retried.
func (s *s3Store) Put(ctx context.Context, runID, path string) (string, error) {
	key := fmt.Sprintf("runs/%s/%s", runID, filepath.Base(path))

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(func() error {
		_, err := s.client.FPutObject(ctx, s.bucket, key, path,
			minio.PutObjectOptions{ContentType: "text/csv"})
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(expBackoff, ctx), func(err error, d time.Duration) {
		log.WithError(err).Warnf("uploading %s; retrying in %s", key, d)
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s", key)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
