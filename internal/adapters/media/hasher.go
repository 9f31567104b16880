// Package media reads file bytes: digests, perceptual hashes, mime sniffing
// and metadata probing.
package media

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/ports/secondary"
)

// Hasher implements secondary.FileHasher.
type Hasher struct{}

// NewHasher creates a new file hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile reads the file once, feeding every digest.
func (h *Hasher) HashFile(ctx context.Context, path string) (files.HashSet, int64, error) {
	var set files.HashSet
	if err := ctx.Err(); err != nil {
		return set, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return set, 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	s256, s1, s512, m5 := sha256.New(), sha1.New(), sha512.New(), md5.New()
	size, err := io.Copy(io.MultiWriter(s256, s1, s512, m5), f)
	if err != nil {
		return set, 0, fmt.Errorf("read file: %w", err)
	}

	copy(set.SHA256[:], s256.Sum(nil))
	set.MD5 = m5.Sum(nil)
	set.SHA1 = s1.Sum(nil)
	set.SHA512 = s512.Sum(nil)
	return set, size, nil
}

// PerceptualHash computes a 64-bit difference hash: the image is reduced to
// 9x8 grayscale and each bit records whether a pixel is brighter than its
// right neighbour.
func (h *Hasher) PerceptualHash(ctx context.Context, path string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	img, err := imaging.Open(path)
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}
	return DifferenceHash(img), nil
}

// DifferenceHash returns the dHash of an already decoded image.
func DifferenceHash(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, 9, 8, imaging.Box))

	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			left := small.Pix[small.PixOffset(x, y)]
			right := small.Pix[small.PixOffset(x+1, y)]
			hash <<= 1
			if left > right {
				hash |= 1
			}
		}
	}
	return hash
}

// Ensure Hasher implements the interface
var _ secondary.FileHasher = (*Hasher)(nil)
