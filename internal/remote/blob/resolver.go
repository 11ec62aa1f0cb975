package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/models"
)

// URLSigner issues a time-limited fetchable URL for a storage key.
type URLSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

// Resolver maps a BlobReference to a fetchable URL. Current-format keys are
// signed directly; legacy full URLs first have their storage key extracted
// from the URL path. Nothing is cached: every call re-signs.
type Resolver struct {
	signer URLSigner
}

func NewResolver(signer URLSigner) *Resolver {
	return &Resolver{signer: signer}
}

// Resolve returns a signed URL for ref. A legacy URL that does not embed an
// extractable storage key fails with common.ErrResolution; batch callers
// skip that item and continue.
func (r *Resolver) Resolve(ctx context.Context, ref models.BlobReference) (string, error) {
	key := ref.Value
	if ref.Kind == models.RefLegacyURL {
		extracted, err := StorageKeyFromURL(ref.Value)
		if err != nil {
			return "", err
		}
		key = extracted
	}
	return r.signer.SignedURL(ctx, key)
}

// StorageKeyFromURL structurally parses a legacy download URL. Two layouts
// are recognized: virtual-hosted ("<bucket>.s3.<region>.amazonaws.com/<key>")
// and path-style ("s3.<region>.amazonaws.com/<bucket>/<key>").
func StorageKeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a valid url", common.ErrResolution, raw)
	}

	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: %q has no object path", common.ErrResolution, raw)
	}

	switch {
	case strings.Contains(u.Host, ".s3."):
		// bucket carried in the host, path is the key
	case strings.HasPrefix(u.Host, "s3."):
		// first path segment is the bucket
		parts := strings.SplitN(path, "/", 2)
		if len(parts) < 2 || parts[1] == "" {
			return "", fmt.Errorf("%w: %q has no key after bucket", common.ErrResolution, raw)
		}
		path = parts[1]
	default:
		return "", fmt.Errorf("%w: unrecognized legacy host %q", common.ErrResolution, u.Host)
	}

	key, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("%w: unescaping %q: %v", common.ErrResolution, path, err)
	}
	return key, nil
}
