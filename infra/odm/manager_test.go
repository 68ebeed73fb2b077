package odm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/datagrid/core/model"
	"github.com/kilianp07/datagrid/core/persistence"
	"github.com/kilianp07/datagrid/infra/database"
)

type article struct {
	ID    int64          `json:"id"`
	Title string         `json:"title"`
	Tags  []string       `json:"tags"`
	Meta  map[string]any `json:"meta"`
}

func (a *article) EntityID() int64      { return a.ID }
func (a *article) SetEntityID(id int64) { a.ID = id }

func setup(t *testing.T) (*persistence.Connection, *persistence.Configuration) {
	t.Helper()
	conn, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "odm.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	cfg := persistence.NewConfiguration()
	require.NoError(t, cfg.Register(persistence.ClassMetadata{
		Name:    "article",
		Columns: []persistence.Column{{Name: "title"}, {Name: "tags"}, {Name: "meta"}},
		New:     func() persistence.Entity { return &article{} },
	}))
	require.NoError(t, cfg.Register(persistence.ClassMetadata{Name: "note", Columns: []persistence.Column{{Name: "body"}}}))
	require.NoError(t, CreateCollections(context.Background(), conn, cfg))
	return conn, cfg
}

func TestCodec_PreservesDocumentShape(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)
	data, err := c.Encode(map[string]any{
		"n":      42,
		"neg":    int32(-3),
		"nested": map[string]any{"a": []any{"x", 1.5}},
		"nil":    nil,
	})
	require.NoError(t, err)
	doc, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc["n"])
	assert.Equal(t, int64(-3), doc["neg"])
	assert.Equal(t, map[string]any{"a": []any{"x", 1.5}}, doc["nested"])
	assert.Nil(t, doc["nil"])

	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	data, err = c.Encode(map[string]any{"at": at})
	require.NoError(t, err)
	doc, err = c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05.000000006Z", doc["at"])

	_, err = c.Decode([]byte{0xff})
	assert.Error(t, err)
}

func TestDocumentManager_StoreAndLoad(t *testing.T) {
	ctx := context.Background()
	conn, cfg := setup(t)
	dm, err := New(conn, cfg)
	require.NoError(t, err)

	a := &article{Title: "Grids", Tags: []string{"ui", "tables"}, Meta: map[string]any{"pages": 3}}
	require.NoError(t, dm.Persist(a))
	require.NoError(t, dm.Persist(persistence.NewRecord("note").Set("body", "hello")))
	require.NoError(t, dm.Flush(ctx))
	require.NotZero(t, a.ID)

	repo, err := dm.Repository("article")
	require.NoError(t, err)
	got, ok, err := repo.Find(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &article{ID: a.ID, Title: "Grids", Tags: []string{"ui", "tables"}, Meta: map[string]any{"pages": int64(3)}}, got)

	a.Title = "Data grids"
	require.NoError(t, dm.Persist(a))
	require.NoError(t, dm.Flush(ctx))
	all, err := repo.FindAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Data grids", all[0].(*article).Title)

	require.NoError(t, dm.Remove(a))
	require.NoError(t, dm.Flush(ctx))
	_, ok, err = repo.Find(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	notes, err := dm.Repository("note")
	require.NoError(t, err)
	list, err := notes.FindAll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].(*persistence.Record).Fields["body"])
}

type event struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

func (e *event) EntityID() int64      { return e.ID }
func (e *event) SetEntityID(id int64) { e.ID = id }

func TestModel_TimeFieldRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, cfg := setup(t)
	require.NoError(t, cfg.Register(persistence.ClassMetadata{
		Name:    "event",
		Columns: []persistence.Column{{Name: "name"}, {Name: "at"}},
		New:     func() persistence.Entity { return &event{} },
	}))
	require.NoError(t, CreateCollections(ctx, conn, cfg))
	dm, err := New(conn, cfg)
	require.NoError(t, err)

	m := model.New(dm, Factory())
	require.NoError(t, m.Bind("event"))
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	saved, err := m.Save(ctx, &event{Name: "deploy", At: at})
	require.NoError(t, err)

	got, ok, err := m.FindByID(ctx, saved.EntityID())
	require.NoError(t, err)
	require.True(t, ok)
	ev := got.(*event)
	assert.Equal(t, "deploy", ev.Name)
	assert.True(t, at.Equal(ev.At), "want %v got %v", at, ev.At)
}

func TestDocumentManager_ClosesAfterFailedFlush(t *testing.T) {
	ctx := context.Background()
	conn, cfg := setup(t)
	dm, err := New(conn, cfg)
	require.NoError(t, err)

	require.NoError(t, dm.Persist(&article{ID: 404, Title: "ghost"}))
	err = dm.Flush(ctx)
	require.Error(t, err)
	assert.False(t, dm.IsOpen())
	assert.ErrorIs(t, dm.Persist(&article{Title: "later"}), persistence.ErrProviderClosed)
	assert.ErrorIs(t, dm.Flush(ctx), persistence.ErrProviderClosed)
	assert.Error(t, dm.Remove(&article{}))
}

func TestModel_RecoversDocumentManager(t *testing.T) {
	ctx := context.Background()
	conn, cfg := setup(t)
	dm, err := New(conn, cfg)
	require.NoError(t, err)

	m := model.New(dm, Factory())
	require.NoError(t, m.Bind("article"))

	_, err = m.Save(ctx, &article{ID: 7, Title: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document with id 7")
	assert.NotEqual(t, dm.ID(), m.Provider().ID())

	saved, err := m.Save(ctx, &article{Title: "after recovery"})
	require.NoError(t, err)
	found, ok, err := m.FindByID(ctx, saved.EntityID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "after recovery", found.(*article).Title)
}
