package blobcache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Distinct prefixes keep event-photo keys and bucket-item-photo keys from
// ever colliding for the same reference string.
const (
	eventKeyPrefix  = "ev:"
	bucketKeyPrefix = "bk:"
)

func deriveKey(prefix, parentID, ref string) string {
	sum := sha256.Sum256([]byte(ref + parentID))
	return prefix + hex.EncodeToString(sum[:])
}

// EventKey derives the cache key for an event photo. Pure: the same inputs
// always yield the same key.
func EventKey(parentID, ref string) string {
	return deriveKey(eventKeyPrefix, parentID, ref)
}

// BucketKey derives the cache key for a bucket-list-item photo.
func BucketKey(parentID, ref string) string {
	return deriveKey(bucketKeyPrefix, parentID, ref)
}
