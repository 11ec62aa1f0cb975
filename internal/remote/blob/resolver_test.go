package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/models"
)

type fakeSigner struct {
	lastKey string
	url     string
	err     error
}

func (f *fakeSigner) SignedURL(ctx context.Context, key string) (string, error) {
	f.lastKey = key
	return f.url, f.err
}

func TestResolve_BareKeyPassesThrough(t *testing.T) {
	signer := &fakeSigner{url: "https://signed.example/x"}
	r := NewResolver(signer)

	got, err := r.Resolve(context.Background(), models.ParseBlobRef("couples/c1/p.jpg"))
	require.NoError(t, err)
	require.Equal(t, "https://signed.example/x", got)
	require.Equal(t, "couples/c1/p.jpg", signer.lastKey)
}

func TestResolve_LegacyVirtualHostedURL(t *testing.T) {
	signer := &fakeSigner{url: "https://signed.example/x"}
	r := NewResolver(signer)

	ref := models.ParseBlobRef("https://media.s3.eu-west-1.amazonaws.com/couples/c1/old.jpg?X-Amz-Expires=900")
	require.Equal(t, models.RefLegacyURL, ref.Kind)

	_, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "couples/c1/old.jpg", signer.lastKey)
}

func TestResolve_LegacyPathStyleURL(t *testing.T) {
	signer := &fakeSigner{url: "https://signed.example/x"}
	r := NewResolver(signer)

	ref := models.ParseBlobRef("https://s3.eu-west-1.amazonaws.com/media/couples/c1/old.jpg")
	_, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "couples/c1/old.jpg", signer.lastKey)
}

func TestResolve_LegacyURLEscapedKey(t *testing.T) {
	signer := &fakeSigner{}
	r := NewResolver(signer)

	ref := models.ParseBlobRef("https://media.s3.eu-west-1.amazonaws.com/couples%2Fc1%2Fold.jpg")
	_, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "couples/c1/old.jpg", signer.lastKey)
}

func TestResolve_UnextractableLegacyURL(t *testing.T) {
	r := NewResolver(&fakeSigner{})

	for _, raw := range []string{
		"https://example.com/",                     // no object path
		"https://example.com/some/file.jpg",        // unrecognized host
		"https://s3.eu-west-1.amazonaws.com/media", // bucket but no key
	} {
		_, err := r.Resolve(context.Background(), models.ParseBlobRef(raw))
		require.ErrorIs(t, err, common.ErrResolution, "raw=%s", raw)
	}
}

func TestParseBlobRef_Classification(t *testing.T) {
	require.Equal(t, models.RefKey, models.ParseBlobRef("couples/c1/p.jpg").Kind)
	require.Equal(t, models.RefLegacyURL, models.ParseBlobRef("https://host/p.jpg").Kind)
	require.Equal(t, models.RefLegacyURL, models.ParseBlobRef("http://host/p.jpg").Kind)
}
