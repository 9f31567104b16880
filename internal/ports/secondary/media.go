package secondary

import (
	"context"

	"github.com/example/mediadb/internal/core/files"
)

// FileHasher computes every digest of a file in one read pass.
type FileHasher interface {
	// HashFile returns the digests and byte size of the file at path.
	HashFile(ctx context.Context, path string) (files.HashSet, int64, error)

	// PerceptualHash computes the 64-bit perceptual hash of a still image.
	PerceptualHash(ctx context.Context, path string) (uint64, error)
}

// MediaProber identifies file formats and reads their properties.
type MediaProber interface {
	// DetectMime sniffs the mime type of the file at path.
	DetectMime(ctx context.Context, path string) (string, error)

	// Probe reads width, height, duration, frames and words as the mime allows.
	// A failed probe returns whatever metadata it gathered alongside the error.
	Probe(ctx context.Context, path, mime string) (files.Metadata, error)
}

// ClientFileStore defines the secondary port for the content-addressed file store.
type ClientFileStore interface {
	// Has reports whether the bytes for hash are present.
	Has(ctx context.Context, hash files.Hash, mime string) (bool, error)

	// Put copies the file at src into the store.
	Put(ctx context.Context, src string, hash files.Hash, mime string) error

	// Remove deletes the bytes for hash. Missing bytes are not an error.
	Remove(ctx context.Context, hash files.Hash, mime string) error

	// Path returns where the bytes for hash live.
	Path(hash files.Hash, mime string) string
}
