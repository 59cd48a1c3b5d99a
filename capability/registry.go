package capability

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateCapability is returned when a different descriptor is
	// registered under an existing name.
	ErrDuplicateCapability = errors.New("capability already registered")

	// ErrNotFound is returned when a capability name is unknown.
	ErrNotFound = errors.New("capability not found")

	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid capability descriptor")
)

// DuplicatePolicy decides what happens when a name is registered twice with
// different descriptors.
type DuplicatePolicy int

const (
	// Reject returns ErrDuplicateCapability.
	Reject DuplicatePolicy = iota

	// Overwrite replaces the existing descriptor.
	Overwrite
)

// Option configures a Registry.
type Option func(*Registry)

// WithDuplicatePolicy sets the duplicate registration policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithCatalog mirrors every registration into c.
func WithCatalog(c *Catalog) Option {
	return func(r *Registry) {
		r.catalog = c
	}
}

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// Registry maps capability names to descriptors.
type Registry struct {
	mu      sync.RWMutex
	items   map[string]Descriptor
	order   []string
	policy  DuplicatePolicy
	catalog *Catalog
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		items:  make(map[string]Descriptor),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a capability. Registering an identical descriptor again is a
// no-op.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d = d.clone()

	r.mu.Lock()
	existing, exists := r.items[d.Name]
	switch {
	case exists && existing.Equal(d):
		r.mu.Unlock()
		return nil
	case exists && r.policy == Reject:
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, d.Name)
	case !exists:
		r.order = append(r.order, d.Name)
	}
	r.items[d.Name] = d
	r.mu.Unlock()

	if exists {
		r.logger.Warn().Str("capability", d.Name).Msg("capability overwritten")
	}
	if r.catalog != nil {
		if err := r.catalog.Add(d); err != nil {
			r.logger.Warn().Err(err).Str("capability", d.Name).Msg("catalog update failed")
		}
	}
	return nil
}

// RegisterAll registers descriptors in order and stops at the first error.
func (r *Registry) RegisterAll(ds []Descriptor) error {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d.clone(), nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name].clone())
	}
	return out
}

// Names returns capability names sorted for deterministic output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := append([]string(nil), r.order...)
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Catalog returns the attached catalog, or nil.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}
