package grid

import (
	"fmt"

	"github.com/kilianp07/datagrid/core/factory"
	"github.com/kilianp07/datagrid/core/logger"
	"github.com/kilianp07/datagrid/core/metrics"
	"github.com/kilianp07/datagrid/core/model"
	"github.com/kilianp07/datagrid/core/persistence"
	"github.com/kilianp07/datagrid/core/service"
)

// Options are the grid-level settings read from the merged configuration.
// Keys not listed here stay available through Grid.Config.
type Options struct {
	CompressScript bool                      `json:"compress_script"`
	Factories      []string                  `json:"factories"`
	GridModel      map[string]map[string]any `json:"grid_model"`
	ToolbarButtons map[string]any            `json:"toolbar_buttons"`
}

// Grid is a configured grid bound to the manager of its variant.
type Grid struct {
	gridType string
	variant  Variant
	config   map[string]any
	locator  service.Locator
	manager  persistence.Provider
	create   persistence.ProviderFactory
	log      logger.Logger
	sink     metrics.Sink
}

type constructor func(cfg map[string]any, loc service.Locator, manager persistence.Provider) (*Grid, error)

var constructors = map[Variant]constructor{
	Relational: newRelationalGrid,
	Document:   newDocumentGrid,
}

func newRelationalGrid(cfg map[string]any, loc service.Locator, manager persistence.Provider) (*Grid, error) {
	if manager == nil {
		return nil, fmt.Errorf("relational grid: %w", persistence.ErrProviderUnavailable)
	}
	return newGrid(Relational, cfg, loc, manager), nil
}

func newDocumentGrid(cfg map[string]any, loc service.Locator, manager persistence.Provider) (*Grid, error) {
	if manager == nil {
		return nil, fmt.Errorf("document grid: %w", persistence.ErrProviderUnavailable)
	}
	return newGrid(Document, cfg, loc, manager), nil
}

func newGrid(v Variant, cfg map[string]any, loc service.Locator, manager persistence.Provider) *Grid {
	return &Grid{
		variant: v,
		config:  cfg,
		locator: loc,
		manager: manager,
		log:     logger.Nop{},
		sink:    metrics.NopSink{},
	}
}

func (g *Grid) Type() string                  { return g.gridType }
func (g *Grid) Variant() Variant              { return g.variant }
func (g *Grid) Config() map[string]any        { return g.config }
func (g *Grid) Locator() service.Locator      { return g.locator }
func (g *Grid) Manager() persistence.Provider { return g.manager }

// Options decodes the known grid-level settings.
func (g *Grid) Options() (Options, error) {
	var o Options
	if err := factory.DecodeWeak(g.config, &o); err != nil {
		return o, fmt.Errorf("decode grid options: %w", err)
	}
	return o, nil
}

// ModelOptions returns the grid_model overrides for one entity class, or an
// empty map.
func (g *Grid) ModelOptions(class string) map[string]any {
	models, _ := asMap(g.config["grid_model"])
	opts, ok := asMap(models[class])
	if !ok {
		return map[string]any{}
	}
	return Merge(opts, nil)
}

// Model returns a model bound to class. A manager closed by an earlier
// failure is rebuilt first, so models handed out later start from a usable
// session.
func (g *Grid) Model(class string, opts ...model.Option) (*model.Model, error) {
	if !g.manager.IsOpen() {
		if g.create == nil {
			return nil, fmt.Errorf("%s manager %s is closed: %w", g.variant, g.manager.ID(), persistence.ErrProviderClosed)
		}
		fresh, err := g.create(g.manager.Connection(), g.manager.Configuration())
		if err != nil {
			return nil, fmt.Errorf("reopen %s manager: %w", g.variant, err)
		}
		g.log.Infof("grid %s: replaced closed manager %s with %s", g.gridType, g.manager.ID(), fresh.ID())
		g.manager = fresh
	}
	all := append([]model.Option{model.WithLogger(g.log), model.WithSink(g.sink)}, opts...)
	m := model.New(g.manager, g.create, all...)
	if err := m.Bind(class); err != nil {
		return nil, err
	}
	return m, nil
}
