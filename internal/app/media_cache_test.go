package app

import (
	"testing"
	"time"

	"github.com/example/mediadb/internal/metrics"
	"github.com/example/mediadb/internal/ports/primary"
)

func TestMediaCache(t *testing.T) {
	cache := NewMediaCache(2, time.Minute, metrics.NewNop())

	if _, ok := cache.Get(1); ok {
		t.Error("expected miss on empty cache")
	}

	cache.Add(&primary.MediaResult{ID: 1})
	cache.Add(&primary.MediaResult{ID: 2})
	if got, ok := cache.Get(1); !ok || got.ID != 1 {
		t.Errorf("Get(1) = %v, %v, want hit", got, ok)
	}

	// Adding a third evicts the least recently used (2)
	cache.Add(&primary.MediaResult{ID: 3})
	if _, ok := cache.Get(2); ok {
		t.Error("expected 2 to be evicted")
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}

	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", cache.Len())
	}
}

func TestMediaCache_Disabled(t *testing.T) {
	cache := NewMediaCache(0, time.Minute, metrics.NewNop())
	if cache != nil {
		t.Fatal("expected nil cache for size 0")
	}

	cache.Add(&primary.MediaResult{ID: 1})
	if _, ok := cache.Get(1); ok {
		t.Error("disabled cache returned a hit")
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}
