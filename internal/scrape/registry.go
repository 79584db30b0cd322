package scrape

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultPageLimit caps pagination for descriptors that do not set their
// own ceiling.
const DefaultPageLimit = 200

// Constructor builds a strategy from its descriptor. Adding a site means
// adding a descriptor with a constructor; the orchestrator never changes.
type Constructor func(desc SiteDescriptor, logger *zap.Logger) (Strategy, error)

// SiteDescriptor is the static configuration for one site.
type SiteDescriptor struct {
	// SiteID is the unique key the site is requested by.
	SiteID string
	// PageLimit is the safety ceiling on pagination.
	PageLimit int
	// Params carries strategy-specific tuning knobs.
	Params map[string]string
	// New constructs the site's strategy.
	New Constructor
}

// Param returns the named parameter or fallback when unset.
func (d SiteDescriptor) Param(name, fallback string) string {
	if v, ok := d.Params[name]; ok && v != "" {
		return v
	}
	return fallback
}

// Registry is a static, read-only mapping from site id to descriptor.
// It performs no I/O; lookup of an unknown key is its only failure mode.
type Registry struct {
	order []string
	sites map[string]SiteDescriptor
}

// NewRegistry builds a registry from descriptors, preserving their order.
func NewRegistry(descriptors ...SiteDescriptor) (*Registry, error) {
	r := &Registry{sites: make(map[string]SiteDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		if desc.SiteID == "" {
			return nil, fmt.Errorf("registry: descriptor with empty site id")
		}
		if _, dup := r.sites[desc.SiteID]; dup {
			return nil, fmt.Errorf("registry: duplicate site id %q", desc.SiteID)
		}
		if desc.PageLimit <= 0 {
			desc.PageLimit = DefaultPageLimit
		}
		r.sites[desc.SiteID] = desc
		r.order = append(r.order, desc.SiteID)
	}
	return r, nil
}

// Lookup returns the descriptor for siteID.
func (r *Registry) Lookup(siteID string) (SiteDescriptor, error) {
	desc, ok := r.sites[siteID]
	if !ok {
		return SiteDescriptor{}, &ConfigurationError{Key: siteID, Reason: "unknown site"}
	}
	return desc, nil
}

// SiteIDs returns all configured site ids in registration order.
func (r *Registry) SiteIDs() []string {
	return append([]string(nil), r.order...)
}

// Factory resolves site ids to constructed strategies.
type Factory struct {
	registry *Registry
	logger   *zap.Logger
}

// NewFactory creates a Factory over the registry.
func NewFactory(registry *Registry, logger *zap.Logger) *Factory {
	return &Factory{registry: registry, logger: logger}
}

// Resolve looks up the descriptor and instantiates its strategy. An
// unknown id yields a ConfigurationError; a missing or failing
// constructor yields a StrategyLoadError.
func (f *Factory) Resolve(siteID string) (Strategy, error) {
	desc, err := f.registry.Lookup(siteID)
	if err != nil {
		return nil, err
	}
	if desc.New == nil {
		return nil, &StrategyLoadError{SiteID: siteID, Err: fmt.Errorf("no constructor bound")}
	}
	strategy, err := desc.New(desc, f.logger.Named(siteID))
	if err != nil {
		return nil, &StrategyLoadError{SiteID: siteID, Err: err}
	}
	return strategy, nil
}

// SiteIDs exposes the registry's configured sites in fixed order.
func (f *Factory) SiteIDs() []string {
	return f.registry.SiteIDs()
}
