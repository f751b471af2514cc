// Package cache provides a byte-block cache for immutable artifact
// blobs (matrices, result tables) read through remote blob stores.
package cache

import "context"

// Kind separates key spaces so distinct artifact classes can coexist in
// one cache without collisions.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBlob         // raw blob blocks fetched through a caching store
)

// Key identifies one cached block. Path is the blob name within its
// store; Offset is the block-aligned byte offset.
type Key struct {
	Kind   Kind
	Path   string
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
// Implementations must be safe for concurrent use.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)

	// Set caches a block. The caller must treat b as immutable after the
	// call; implementations may retain it without copying.
	Set(ctx context.Context, key Key, b []byte)

	// Invalidate drops every entry for which match returns true.
	Invalidate(match func(key Key) bool)
}
