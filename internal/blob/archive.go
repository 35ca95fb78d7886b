// Package blob mirrors bill attachments into S3-compatible object storage.
// The database row stays the source of truth; the archive copy exists for
// off-site retention and is written best-effort.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"taxportal/api/internal/store"
)

type Archive struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useTLS bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Archive{client: client, bucket: bucket}, nil
}

// ArchiveBill copies one bill into the bucket under a per-institution
// prefix. Failures are logged, never surfaced; losing the archive copy must
// not fail the payment write.
func (a *Archive) ArchiveBill(ctx context.Context, institutionID string, slNo int, bill store.Bill) {
	key := fmt.Sprintf("bills/%s/%d", institutionID, slNo)
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(bill.Data), int64(len(bill.Data)),
		minio.PutObjectOptions{ContentType: bill.Filetype})
	if err != nil {
		log.Printf("blob: archive bill %s: %v", key, err)
		return
	}
}

// RemoveBill drops the archived copy when its record is deleted.
func (a *Archive) RemoveBill(ctx context.Context, institutionID string, slNo int) {
	key := fmt.Sprintf("bills/%s/%d", institutionID, slNo)
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Printf("blob: remove bill %s: %v", key, err)
	}
}
