package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
)

// parseHashes reads SHA-256 hashes given as hex.
// Returns an error naming the first argument that is not a full hash.
func parseHashes(args []string) ([]files.Hash, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one file hash is required")
	}
	hashes := make([]files.Hash, 0, len(args))
	for _, arg := range args {
		h, err := files.ParseHash(arg)
		if err != nil {
			if len(strings.TrimSpace(arg)) < 2*files.HashSize {
				return nil, fmt.Errorf("invalid hash '%s'. Use the full 64 character sha256 shown by 'mediadb info'", arg)
			}
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// parseServiceKey accepts a service key as shown by 'mediadb services list'.
func parseServiceKey(arg string) (services.Key, error) {
	key := strings.TrimSpace(arg)
	if key == "" {
		return "", fmt.Errorf("service key is required")
	}
	return services.Key(key), nil
}

// parseRating reads a rating value, or "none" to clear the rating.
func parseRating(arg string) (*float64, error) {
	if strings.EqualFold(arg, "none") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rating '%s'. Use a number or 'none'", arg)
	}
	return &v, nil
}
