package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventClone_DoesNotShareSlices(t *testing.T) {
	e := Event{
		ID:        "e1",
		PhotoRefs: []string{"k1", "k2"},
		Comments:  []Comment{{ID: "cm1", Text: "hi"}},
	}

	c := e.Clone()
	c.PhotoRefs[0] = "changed"
	c.Comments[0].Text = "changed"

	require.Equal(t, "k1", e.PhotoRefs[0])
	require.Equal(t, "hi", e.Comments[0].Text)
}

func TestBucketItemClone_DoesNotShareSlices(t *testing.T) {
	b := BucketItem{
		ID:        "b1",
		PhotoRefs: []string{"k1"},
		Comments:  []Comment{{ID: "cm1"}},
	}

	c := b.Clone()
	c.PhotoRefs[0] = "changed"

	require.Equal(t, "k1", b.PhotoRefs[0])
}

func TestParseBlobRef(t *testing.T) {
	tests := []struct {
		raw  string
		kind RefKind
	}{
		{"couples/c1/p.jpg", RefKey},
		{"https://media.s3.eu-west-1.amazonaws.com/p.jpg", RefLegacyURL},
		{"http://host/p.jpg", RefLegacyURL},
		{"", RefKey},
	}
	for _, tc := range tests {
		got := ParseBlobRef(tc.raw)
		require.Equal(t, tc.kind, got.Kind, "raw=%q", tc.raw)
		require.Equal(t, tc.raw, got.Value)
	}
}

func TestCaps(t *testing.T) {
	require.Equal(t, 10, MaxPhotoRefs)
	require.Equal(t, 50, MaxComments)
}
