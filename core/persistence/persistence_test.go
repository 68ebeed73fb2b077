package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brand struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (b *brand) EntityID() int64      { return b.ID }
func (b *brand) SetEntityID(id int64) { b.ID = id }

func brandMeta() ClassMetadata {
	return ClassMetadata{
		Name:    "brand",
		Table:   "brands",
		Columns: []Column{{Name: "name", Type: "TEXT NOT NULL UNIQUE"}, {Name: "active", Type: "BOOLEAN"}},
		New:     func() Entity { return &brand{} },
	}
}

func TestConfiguration_Register(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.Register(brandMeta()))
	require.NoError(t, cfg.Register(ClassMetadata{Name: "note", Columns: []Column{{Name: "body"}}}))

	m, err := cfg.Metadata("note")
	require.NoError(t, err)
	assert.Equal(t, "note", m.Table)
	assert.Equal(t, "id", m.Identifier)
	assert.Equal(t, "TEXT", m.Columns[0].Type)
	assert.Equal(t, []string{"brand", "note"}, cfg.Classes())

	assert.Error(t, cfg.Register(brandMeta()), "duplicate class")
	assert.Error(t, cfg.Register(ClassMetadata{}), "missing name")
	assert.Error(t, cfg.Register(ClassMetadata{Name: "x", Table: "drop table;"}))
	assert.Error(t, cfg.Register(ClassMetadata{Name: "y", Columns: []Column{{Name: "a", Type: "TEXT; --"}}}))
	assert.Error(t, cfg.Register(ClassMetadata{Name: "z", Columns: []Column{{Name: "a"}, {Name: "a"}}}))

	_, err = cfg.Metadata("missing")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestConfiguration_MetadataFor(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.Register(brandMeta()))
	require.NoError(t, cfg.Register(ClassMetadata{Name: "note"}))

	m, err := cfg.MetadataFor(&brand{})
	require.NoError(t, err)
	assert.Equal(t, "brand", m.Name)

	m, err = cfg.MetadataFor(NewRecord("note"))
	require.NoError(t, err)
	assert.Equal(t, "note", m.Name)

	_, err = cfg.MetadataFor(NewRecord("ghost"))
	assert.ErrorIs(t, err, ErrUnknownClass)
	_, err = cfg.MetadataFor(nil)
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestFieldsOfAndHydrate(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.Register(brandMeta()))
	meta, _ := cfg.Metadata("brand")

	fields, err := FieldsOf(meta, &brand{ID: 3, Name: "acme", Active: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "acme", "active": true}, fields)

	e, err := Hydrate(meta, 9, map[string]any{"name": "acme", "active": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, &brand{ID: 9, Name: "acme", Active: true}, e)

	rec := NewRecord("brand").Set("name", "globex")
	fields, err = FieldsOf(meta, rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "globex", "active": nil}, fields)
}

func TestHydrate_Record(t *testing.T) {
	meta := &ClassMetadata{Name: "note", Columns: []Column{{Name: "body"}}}
	e, err := Hydrate(meta, 4, map[string]any{"body": "hello"})
	require.NoError(t, err)
	r, ok := e.(*Record)
	require.True(t, ok)
	assert.Equal(t, int64(4), r.ID)
	v, _ := r.Get("body")
	assert.Equal(t, "hello", v)
}

type codedErr struct{ code int }

func (e codedErr) Error() string { return fmt.Sprintf("code %d", e.code) }
func (e codedErr) Code() int     { return e.code }

func TestOperationError(t *testing.T) {
	cause := fmt.Errorf("exec: %w", codedErr{code: 2067})
	opErr := NewOperationError("save", "brand", cause)
	assert.Equal(t, cause.Error(), opErr.Error())
	assert.Equal(t, "2067", opErr.Code)
	assert.True(t, errors.Is(opErr, cause))
	var ce codedErr
	assert.True(t, errors.As(opErr, &ce))

	pg := NewOperationError("remove", "brand", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.Equal(t, "23505", pg.Code)
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestDialect(t *testing.T) {
	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", d.Rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	assert.Equal(t, "BYTEA", d.BlobType())

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "x = ?", d.Rebind("x = ?"))
	assert.Equal(t, `"brands"`, d.Quote("brands"))

	_, err = DialectFor("oracle")
	assert.Error(t, err)
	_, err = NewConnection(nil, "sqlite")
	assert.Error(t, err)
}
