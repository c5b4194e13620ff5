package platform

import (
	"context"
	"fmt"
	"sort"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// Registry keeps a mapping from platform names to their publishers. Only
// enabled platforms get registered.
type Registry struct {
	publishers map[string]ports.Publisher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{publishers: map[string]ports.Publisher{}}
}

// Register adds or replaces a publisher for a platform name.
func (r *Registry) Register(name string, publisher ports.Publisher) {
	if r.publishers == nil {
		r.publishers = map[string]ports.Publisher{}
	}
	r.publishers[name] = publisher
}

// Resolve returns a publisher by platform name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Publisher, error) {
	if publisher, ok := r.publishers[name]; ok {
		return publisher, nil
	}
	return nil, fmt.Errorf("platform %s is not registered", name)
}

// Names lists registered platforms in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target routes Publish calls to one fixed platform resolved from the
// registry, so the workflow depends only on ports.Publisher.
type Target struct {
	registry *Registry
	name     string
}

var _ ports.Publisher = (*Target)(nil)

// NewTarget binds a platform name; resolution happens per call so the
// registry can be populated after construction.
func NewTarget(registry *Registry, name string) *Target {
	return &Target{registry: registry, name: name}
}

// Publish forwards to the named platform's publisher.
func (t *Target) Publish(ctx context.Context, mediaPath string, meta domain.LocalizedMetadata) error {
	publisher, err := t.registry.Resolve(t.name)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, mediaPath, meta)
}
