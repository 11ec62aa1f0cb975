// Package blob implements photo storage on S3: batch upload, presigned GET
// URLs, best-effort deletion, and a best-effort download helper used by the
// photo-loading loops. It also resolves legacy full-URL references back to
// storage keys.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
)

// URLValidity bounds how long a presigned GET URL stays fetchable. The
// resolver re-signs on every call, so this only needs to outlive one fetch.
const URLValidity = 15 * time.Minute

// objectAPI is the slice of the S3 client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the slice of the S3 presign client the store uses.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Store struct {
	client  objectAPI
	presign presignAPI
	httpc   *http.Client
	bucket  string
	log     logging.Logger
}

func New(client *s3.Client, bucket string, log logging.Logger) *Store {
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		httpc:   http.DefaultClient,
		bucket:  bucket,
		log:     log,
	}
}

func storageKey(parentID string) string {
	return fmt.Sprintf("couples/%s/%s.jpg", parentID, uuid.New())
}

// Upload stores each payload under a fresh key namespaced by parentID and
// returns the keys in payload order. The batch aborts on the first failure:
// a partial key list would leave the caller with unrecoverable ambiguity.
func (s *Store) Upload(ctx context.Context, payloads [][]byte, parentID string) ([]string, error) {
	keys := make([]string, 0, len(payloads))
	for i, payload := range payloads {
		key := storageKey(parentID)
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String("image/jpeg"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: uploading payload %d of %d: %v", common.ErrNetwork, i+1, len(payloads), err)
		}
		keys = append(keys, key)
	}
	s.log.Debug(ctx, "uploaded blobs", "parentId", parentID, "count", len(keys))
	return keys, nil
}

// SignedURL returns a time-limited GET URL for key. The key is verified to
// exist first; a missing object surfaces common.ErrNotFound.
func (s *Store) SignedURL(ctx context.Context, key string) (string, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: blob %s", common.ErrNotFound, key)
		}
		return "", fmt.Errorf("%w: checking blob %s: %v", common.ErrNetwork, key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(URLValidity))
	if err != nil {
		return "", fmt.Errorf("%w: signing url for %s: %v", common.ErrNetwork, key, err)
	}
	return req.URL, nil
}

// Delete removes one blob.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting blob %s: %v", common.ErrNetwork, key, err)
	}
	return nil
}

// DeleteMany removes every key it can, logging the ones it cannot. It never
// aborts early: callers use it for cascading cleanup where partial success
// beats blocking a parent deletion. The joined error is informational.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "blob delete failed, continuing", "key", key, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DownloadImage fetches the photo behind ref. Absent (false) on any
// resolution or fetch failure: callers run this in best-effort loops.
func (s *Store) DownloadImage(ctx context.Context, ref models.BlobReference) ([]byte, bool) {
	resolver := NewResolver(s)
	url, err := resolver.Resolve(ctx, ref)
	if err != nil {
		s.log.Warn(ctx, "skipping unresolvable photo", "ref", ref.Value, "error", err)
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		s.log.Warn(ctx, "photo fetch failed", "ref", ref.Value, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn(ctx, "photo fetch returned non-200", "ref", ref.Value, "status", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	return data, true
}
