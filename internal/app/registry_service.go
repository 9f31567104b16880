package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// RegistryServiceImpl implements the RegistryService interface.
type RegistryServiceImpl struct {
	serviceRepo secondary.ServiceRepository
	queue       *WriteQueue
	logger      *zap.Logger
}

// NewRegistryService creates a new RegistryService with injected dependencies.
func NewRegistryService(serviceRepo secondary.ServiceRepository, queue *WriteQueue, logger *zap.Logger) *RegistryServiceImpl {
	return &RegistryServiceImpl{
		serviceRepo: serviceRepo,
		queue:       queue,
		logger:      logger,
	}
}

// Services returns the active services.
func (s *RegistryServiceImpl) Services(ctx context.Context) ([]services.Service, error) {
	records, err := s.serviceRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	list := make([]services.Service, len(records))
	for i, r := range records {
		list[i] = r.Service
	}
	return list, nil
}

// Service returns one active service.
func (s *RegistryServiceImpl) Service(ctx context.Context, key services.Key) (*services.Service, error) {
	record, err := s.serviceRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("%w: service %s is disabled", errs.ErrNotFound, key)
	}
	return &record.Service, nil
}

// WriteServices replaces the registry with list. The diff is planned and
// applied inside one write job so no other write can interleave.
func (s *RegistryServiceImpl) WriteServices(ctx context.Context, list []services.Service) error {
	return s.queue.Write(ctx, "registry", func(ctx context.Context) error {
		records, err := s.serviceRepo.List(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to list services: %w", err)
		}

		var active, inactive []services.Service
		for _, r := range records {
			if r.Active {
				active = append(active, r.Service)
			} else {
				inactive = append(inactive, r.Service)
			}
		}

		plan, err := services.PlanRegistryWrite(active, inactive, list)
		if err != nil {
			return err
		}
		if plan.IsEmpty() {
			return nil
		}

		if err := s.serviceRepo.ApplyPlan(ctx, plan); err != nil {
			return fmt.Errorf("failed to write services: %w", err)
		}

		s.logger.Info("service registry written",
			zap.Int("added", len(plan.Added)),
			zap.Int("reactivated", len(plan.Reactivated)),
			zap.Int("updated", len(plan.Updated)),
			zap.Int("removed", len(plan.Removed)))
		return nil
	})
}

// Version returns the registry version.
func (s *RegistryServiceImpl) Version(ctx context.Context) (int64, error) {
	return s.serviceRepo.Version(ctx)
}

// GenerateService builds a service with a fresh key and default options.
func (s *RegistryServiceImpl) GenerateService(serviceType services.Type, name string) services.Service {
	return services.GenerateService(services.GenerateKey(), serviceType, name)
}

// TagFilter returns the tag filter of a service.
func (s *RegistryServiceImpl) TagFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error) {
	if _, err := s.Service(ctx, key); err != nil {
		return nil, err
	}
	return s.serviceRepo.GetTagFilter(ctx, key)
}

// SetTagFilter replaces the tag filter of a service.
func (s *RegistryServiceImpl) SetTagFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error {
	if _, err := s.Service(ctx, key); err != nil {
		return err
	}
	return s.queue.Write(ctx, "tag filter", func(ctx context.Context) error {
		return s.serviceRepo.SetTagFilter(ctx, key, filter)
	})
}

// Ensure RegistryServiceImpl implements the interface.
var _ primary.RegistryService = (*RegistryServiceImpl)(nil)
