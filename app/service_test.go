package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/datagrid/config"
	"github.com/kilianp07/datagrid/core/grid"
	"github.com/kilianp07/datagrid/core/persistence"
)

const testConfig = `database:
  driver: sqlite
  path: grid.db
entities:
  brand:
    table: brands
    columns:
      - name: title
        type: TEXT NOT NULL UNIQUE
overrides:
  brand_grid: brand_grid.yaml
logging:
  level: error
jqgrid:
  factories: [brand_grid, not_registered]
  compress_script: true
  grid_model:
    brand:
      isSubGridAsGrid: true
`

func newService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datagrid.yaml"), []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brand_grid.yaml"), []byte("grid_model:\n  brand:\n    caption: Brands\n"), 0o644))

	cfg, err := config.Load(filepath.Join(dir, "datagrid.yaml"))
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(dir, cfg.Database.Path)

	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.CreateSchema(context.Background()))
	return svc
}

func TestService_ResolvesGridWithOverrides(t *testing.T) {
	svc := newService(t)

	g, err := svc.Grid("jqgrid")
	require.NoError(t, err)
	assert.Equal(t, grid.Relational, g.Variant())
	assert.Equal(t, map[string]any{"isSubGridAsGrid": true, "caption": "Brands"}, g.ModelOptions("brand"))

	opts, err := g.Options()
	require.NoError(t, err)
	assert.True(t, opts.CompressScript)

	doc, err := svc.Grid(`jqgrid\odm`)
	require.NoError(t, err)
	assert.Equal(t, grid.Document, doc.Variant())
	assert.NotEqual(t, g.Manager().ID(), doc.Manager().ID())

	_, err = svc.Grid("other")
	assert.Error(t, err)
}

func TestService_ModelRecoversAcrossVariants(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for _, name := range []string{"jqgridorm", `jqgrid\odm`} {
		t.Run(name, func(t *testing.T) {
			m, err := svc.Model(name, "brand")
			require.NoError(t, err)

			saved, err := m.Save(ctx, persistence.NewRecord("brand").Set("title", "Acme"))
			require.NoError(t, err)
			require.NotZero(t, saved.EntityID())

			got, ok, err := m.FindByID(ctx, saved.EntityID())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Acme", got.(*persistence.Record).Fields["title"])

			removed, err := m.RemoveByID(ctx, saved.EntityID())
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = m.RemoveByID(ctx, saved.EntityID())
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestService_UniqueViolationReplacesManager(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	m, err := svc.Model("jqgrid", "brand")
	require.NoError(t, err)
	before := m.Provider().ID()

	_, err = m.Save(ctx, persistence.NewRecord("brand").Set("title", "Acme"))
	require.NoError(t, err)
	_, err = m.Save(ctx, persistence.NewRecord("brand").Set("title", "Acme"))
	var opErr *persistence.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.NotEqual(t, before, m.Provider().ID())

	// The shared default manager is closed now; later grids get a fresh one.
	m2, err := svc.Model("jqgrid", "brand")
	require.NoError(t, err)
	assert.True(t, m2.Provider().IsOpen())
	_, err = m2.Save(ctx, persistence.NewRecord("brand").Set("title", "Globex"))
	require.NoError(t, err)
}

func TestService_UnknownClass(t *testing.T) {
	svc := newService(t)
	_, err := svc.Model("jqgrid", "missing")
	assert.ErrorIs(t, err, persistence.ErrUnknownClass)
}
