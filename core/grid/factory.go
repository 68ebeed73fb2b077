package grid

import (
	"fmt"
	"time"

	"github.com/kilianp07/datagrid/core/logger"
	"github.com/kilianp07/datagrid/core/metrics"
	"github.com/kilianp07/datagrid/core/persistence"
	"github.com/kilianp07/datagrid/core/service"
)

// ConfigService is the container name of the full configuration tree.
const ConfigService = "Config"

// DefaultStore is the store segment of manager service names.
const DefaultStore = "datagrid"

// Factory builds grids for service names starting with its prefix.
type Factory struct {
	resolver  *Resolver
	store     string
	providers map[Variant]persistence.ProviderFactory
	log       logger.Logger
	sink      metrics.Sink
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithPrefix sets the handled prefix and configuration key.
func WithPrefix(p string) FactoryOption {
	return func(f *Factory) { f.resolver = NewResolver(p) }
}

// WithStore sets the store segment of manager service names.
func WithStore(s string) FactoryOption {
	return func(f *Factory) {
		if s != "" {
			f.store = s
		}
	}
}

// WithProviderFactory sets how models of the variant rebuild their manager.
func WithProviderFactory(v Variant, create persistence.ProviderFactory) FactoryOption {
	return func(f *Factory) { f.providers[v] = create }
}

// WithLogger sets the logger passed to grids and their models.
func WithLogger(l logger.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// WithSink sets the metrics sink passed to grids and their models.
func WithSink(s metrics.Sink) FactoryOption {
	return func(f *Factory) {
		if s != nil {
			f.sink = s
		}
	}
}

// NewFactory returns a factory for DefaultPrefix and DefaultStore unless
// options say otherwise.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		resolver:  NewResolver(DefaultPrefix),
		store:     DefaultStore,
		providers: map[Variant]persistence.ProviderFactory{},
		log:       logger.Nop{},
		sink:      metrics.NopSink{},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Resolver exposes the configuration resolver.
func (f *Factory) Resolver() *Resolver { return f.resolver }

// CanCreate reports whether requestedName is a grid service name.
func (f *Factory) CanCreate(requestedName string) bool {
	return f.resolver.CanHandle(requestedName)
}

// Create resolves the configuration of requestedName, picks the variant from
// its grid type, fetches the variant's manager from loc and builds the grid.
func (f *Factory) Create(loc service.Locator, requestedName string) (*Grid, error) {
	if !f.CanCreate(requestedName) {
		return nil, fmt.Errorf("grid factory cannot create %q: missing prefix %q", requestedName, f.resolver.Prefix())
	}
	raw, err := loc.Get(ConfigService)
	if err != nil {
		return nil, err
	}
	base, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s service is %T", ErrConfigurationMissing, ConfigService, raw)
	}
	res, err := f.resolver.Resolve(requestedName, base, loc)
	if err != nil {
		return nil, err
	}

	variant := VariantFor(res.GridType)
	mgrName := variant.ManagerService(f.store)
	v, err := loc.Get(mgrName)
	if err != nil {
		return nil, err
	}
	manager, ok := v.(persistence.Provider)
	if !ok {
		return nil, fmt.Errorf("service %s has type %T, want a persistence provider", mgrName, v)
	}

	g, err := constructors[variant](res.Config, loc, manager)
	if err != nil {
		return nil, err
	}
	g.gridType = res.GridType
	g.create = f.providers[variant]
	g.log = f.log
	g.sink = f.sink

	f.log.Infow("grid created", map[string]any{
		"name":      requestedName,
		"grid_type": res.GridType,
		"variant":   variant.String(),
		"manager":   manager.ID(),
		"applied":   res.Applied,
		"skipped":   res.Skipped,
	})
	if g.create == nil {
		f.log.Warnf("grid %s: no provider factory for %s, models cannot recover from failures", requestedName, variant)
	}
	if gr, ok := f.sink.(metrics.GridRecorder); ok {
		ev := metrics.GridEvent{GridType: res.GridType, Variant: variant.String(), Overrides: res.Applied, Time: time.Now()}
		if err := gr.RecordGrid(ev); err != nil {
			f.log.Warnf("record grid: %v", err)
		}
	}
	return g, nil
}
