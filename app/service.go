// Package app wires configuration, database, mappers and the grid factory
// into one service container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/datagrid/config"
	"github.com/kilianp07/datagrid/core/grid"
	coremetrics "github.com/kilianp07/datagrid/core/metrics"
	"github.com/kilianp07/datagrid/core/model"
	coremon "github.com/kilianp07/datagrid/core/monitoring"
	"github.com/kilianp07/datagrid/core/persistence"
	"github.com/kilianp07/datagrid/core/service"
	"github.com/kilianp07/datagrid/infra/database"
	"github.com/kilianp07/datagrid/infra/logger"
	_ "github.com/kilianp07/datagrid/infra/metrics"
	"github.com/kilianp07/datagrid/infra/monitoring"
	"github.com/kilianp07/datagrid/infra/odm"
	"github.com/kilianp07/datagrid/infra/orm"
)

// Service holds the shared resources of one process.
type Service struct {
	Config    *config.Config
	Conn      *persistence.Connection
	Mapping   *persistence.Configuration
	Container *service.Container
	Grids     *grid.Factory
	Sink      coremetrics.Sink
	log       logger.Logger
}

// New opens the database and registers the configuration, both default
// managers and every override file in a fresh container.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	mapping, err := cfg.Mapping()
	if err != nil {
		return nil, fmt.Errorf("entity mapping: %w", err)
	}
	conn, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	ormFactory := orm.Factory(orm.WithLogger(logger.New("orm")))
	odmFactory := odm.Factory(odm.WithLogger(logger.New("odm")))

	c := service.NewContainer()
	c.Set(grid.ConfigService, cfg.Raw)
	managers := map[grid.Variant]persistence.ProviderFactory{
		grid.Relational: ormFactory,
		grid.Document:   odmFactory,
	}
	for v, create := range managers {
		if err := c.Register(v.ManagerService(cfg.Grid.Store), func(service.Locator) (any, error) {
			return create(conn, mapping)
		}); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	for name := range cfg.Overrides {
		path, _ := cfg.OverridePath(name)
		if err := c.Register(name, func(service.Locator) (any, error) {
			return config.LoadFile(path)
		}); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	grids := grid.NewFactory(
		grid.WithPrefix(cfg.Grid.Prefix),
		grid.WithStore(cfg.Grid.Store),
		grid.WithProviderFactory(grid.Relational, ormFactory),
		grid.WithProviderFactory(grid.Document, odmFactory),
		grid.WithLogger(logger.New("grid")),
		grid.WithSink(sink),
	)
	logg.Infow("service ready", map[string]any{
		"driver":    cfg.Database.Driver,
		"classes":   mapping.Classes(),
		"overrides": len(cfg.Overrides),
	})
	return &Service{
		Config:    cfg,
		Conn:      conn,
		Mapping:   mapping,
		Container: c,
		Grids:     grids,
		Sink:      sink,
		log:       logg,
	}, nil
}

// Grid builds the grid registered under name.
func (s *Service) Grid(name string) (*grid.Grid, error) {
	return s.Grids.Create(s.Container, name)
}

// Model builds the grid named gridName and returns its model for class.
func (s *Service) Model(gridName, class string) (*model.Model, error) {
	g, err := s.Grid(gridName)
	if err != nil {
		return nil, err
	}
	return g.Model(class)
}

// CreateSchema creates the tables and document collections of every mapped
// class.
func (s *Service) CreateSchema(ctx context.Context) error {
	if err := orm.NewSchemaTool(s.Conn, s.Mapping).Create(ctx); err != nil {
		return err
	}
	return odm.CreateCollections(ctx, s.Conn, s.Mapping)
}

// Close flushes monitoring and closes the database.
func (s *Service) Close() error {
	coremon.Flush(2 * time.Second)
	return s.Conn.Close()
}
