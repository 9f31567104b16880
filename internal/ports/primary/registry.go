package primary

import (
	"context"

	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
)

// RegistryService defines the primary port for the service registry.
type RegistryService interface {
	// Services returns the active services.
	Services(ctx context.Context) ([]services.Service, error)

	// Service returns one active service.
	Service(ctx context.Context, key services.Key) (*services.Service, error)

	// WriteServices replaces the registry with the given list.
	WriteServices(ctx context.Context, list []services.Service) error

	// Version returns the registry version.
	Version(ctx context.Context) (int64, error)

	// GenerateService builds a service with a fresh key and default options.
	GenerateService(serviceType services.Type, name string) services.Service

	// TagFilter returns the tag filter of a service.
	TagFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error)

	// SetTagFilter replaces the tag filter of a service.
	SetTagFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error
}
