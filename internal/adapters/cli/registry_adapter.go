package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
	"github.com/example/mediadb/internal/ports/primary"
)

// RegistryAdapter is a thin adapter that translates CLI operations to RegistryService calls.
type RegistryAdapter struct {
	service primary.RegistryService
	out     io.Writer
}

// NewRegistryAdapter creates a new RegistryAdapter with the given service.
func NewRegistryAdapter(service primary.RegistryService, out io.Writer) *RegistryAdapter {
	return &RegistryAdapter{
		service: service,
		out:     out,
	}
}

// List prints the active services.
func (a *RegistryAdapter) List(ctx context.Context) ([]services.Service, error) {
	list, err := a.service.Services(ctx)
	if err != nil {
		return nil, err
	}
	version, err := a.service.Version(ctx)
	if err != nil {
		return nil, err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tTYPE\tNAME")
	fmt.Fprintln(w, "---\t----\t----")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Key, s.Type, s.Name)
	}
	w.Flush()
	fmt.Fprintf(a.out, "\nregistry version %d\n", version)
	return list, nil
}

// Add registers a new service of the given type.
func (a *RegistryAdapter) Add(ctx context.Context, serviceType services.Type, name string) (services.Service, error) {
	list, err := a.service.Services(ctx)
	if err != nil {
		return services.Service{}, err
	}

	svc := a.service.GenerateService(serviceType, name)
	if err := a.service.WriteServices(ctx, append(list, svc)); err != nil {
		return services.Service{}, err
	}

	fmt.Fprintf(a.out, "✓ Added service %s: %s (%s)\n", svc.Key, svc.Name, svc.Type)
	return svc, nil
}

// Remove soft-disables a service. Its content is kept and returns if the
// service is added back under the same key.
func (a *RegistryAdapter) Remove(ctx context.Context, key services.Key) error {
	list, err := a.service.Services(ctx)
	if err != nil {
		return err
	}

	next := make([]services.Service, 0, len(list))
	var removed *services.Service
	for i := range list {
		if list[i].Key == key {
			removed = &list[i]
			continue
		}
		next = append(next, list[i])
	}
	if removed == nil {
		return fmt.Errorf("%w: service %s", errs.ErrNotFound, key)
	}

	if err := a.service.WriteServices(ctx, next); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Removed service %s: %s\n", removed.Key, removed.Name)
	return nil
}

// ShowFilter prints the tag filter of a service.
func (a *RegistryAdapter) ShowFilter(ctx context.Context, key services.Key) (*tagfilter.TagFilter, error) {
	filter, err := a.service.TagFilter(ctx, key)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Tag filter for %s: %s\n", key, filter.ToPermittedString())
	rules := filter.Rules()
	if len(rules) == 0 {
		return filter, nil
	}
	fmt.Fprintln(a.out, rule)
	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	for _, slice := range sortedSlices(rules) {
		fmt.Fprintf(w, "  %s\t%s\n", tagfilter.SliceString(slice), rules[slice])
	}
	w.Flush()
	return filter, nil
}

// SetFilter replaces the tag filter of a service.
func (a *RegistryAdapter) SetFilter(ctx context.Context, key services.Key, filter *tagfilter.TagFilter) error {
	if err := a.service.SetTagFilter(ctx, key, filter); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Tag filter for %s: %s\n", key, filter.ToPermittedString())
	return nil
}
