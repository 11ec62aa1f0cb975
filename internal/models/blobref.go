package models

import "strings"

// RefKind tags the two shapes a stored blob reference can take.
type RefKind int

const (
	// RefKey is the current format: a bare object-store key.
	RefKey RefKind = iota

	// RefLegacyURL is the legacy format: a full download URL whose path
	// embeds the storage key.
	RefLegacyURL
)

// BlobReference is a tagged reference to a photo in the object store.
// References are parsed once at the boundary (ParseBlobRef) instead of
// prefix-checking strings at every call site.
type BlobReference struct {
	Kind  RefKind
	Value string
}

// ParseBlobRef classifies a stored reference string. Anything carrying a
// URL scheme is treated as legacy; everything else is a storage key.
func ParseBlobRef(s string) BlobReference {
	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return BlobReference{Kind: RefLegacyURL, Value: s}
	}
	return BlobReference{Kind: RefKey, Value: s}
}
