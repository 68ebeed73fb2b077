package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
		want map[string]any
	}{
		{
			name: "scalar overwrite and keep",
			a:    map[string]any{"x": 1, "y": "keep"},
			b:    map[string]any{"x": 2},
			want: map[string]any{"x": 2, "y": "keep"},
		},
		{
			name: "nested mappings merge",
			a:    map[string]any{"grid_model": map[string]any{"brands": map[string]any{"isSubGridAsGrid": true}}},
			b:    map[string]any{"grid_model": map[string]any{"brands": map[string]any{"caption": "Brands"}, "users": map[string]any{}}},
			want: map[string]any{"grid_model": map[string]any{
				"brands": map[string]any{"isSubGridAsGrid": true, "caption": "Brands"},
				"users":  map[string]any{},
			}},
		},
		{
			name: "sequences merge by position",
			a:    map[string]any{"cols": []any{"a", map[string]any{"w": 1}, "c"}},
			b:    map[string]any{"cols": []any{"A", map[string]any{"h": 2}, "C", "D"}},
			want: map[string]any{"cols": []any{"A", map[string]any{"w": 1, "h": 2}, "C", "D"}},
		},
		{
			name: "shorter sequence keeps tail",
			a:    map[string]any{"f": []string{"a", "b", "c"}},
			b:    map[string]any{"f": []string{"z"}},
			want: map[string]any{"f": []any{"z", "b", "c"}},
		},
		{
			name: "type mismatch takes later value",
			a:    map[string]any{"k": map[string]any{"x": 1}},
			b:    map[string]any{"k": "flat"},
			want: map[string]any{"k": "flat"},
		},
		{
			name: "nil inputs",
			a:    nil,
			b:    map[string]any{"x": 1},
			want: map[string]any{"x": 1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Merge(tc.a, tc.b))
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	inner := map[string]any{"w": 1}
	a := map[string]any{"n": inner, "s": []any{"a"}}
	b := map[string]any{"n": map[string]any{"h": 2}, "s": []any{"b", "c"}}

	out := Merge(a, b)
	out["n"].(map[string]any)["w"] = 99
	out["s"].([]any)[0] = "mutated"

	assert.Equal(t, map[string]any{"w": 1}, inner)
	assert.Equal(t, []any{"a"}, a["s"])
	assert.Equal(t, map[string]any{"h": 2}, b["n"])
	assert.Equal(t, []any{"b", "c"}, b["s"])
}

func TestMergeAll_Order(t *testing.T) {
	base := map[string]any{"x": 0, "keep": true}
	got := MergeAll(base, map[string]any{"x": 1}, map[string]any{"x": 2, "y": 1})
	assert.Equal(t, map[string]any{"x": 2, "y": 1, "keep": true}, got)
	assert.Equal(t, map[string]any{"x": 0, "keep": true}, base)
}

func scalarMap() *rapid.Generator[map[string]any] {
	return rapid.Custom(func(t *rapid.T) map[string]any {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-e]`), rapid.ID[string]).Draw(t, "keys")
		m := make(map[string]any, len(keys))
		for _, k := range keys {
			m[k] = rapid.IntRange(0, 9).Draw(t, "v")
		}
		return m
	})
}

// Scalar keys only in a are unchanged, keys in both take b's value, keys only
// in b are added.
func TestMerge_ScalarProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := scalarMap().Draw(t, "a")
		b := scalarMap().Draw(t, "b")
		out := Merge(a, b)
		for k, v := range a {
			if bv, ok := b[k]; ok {
				if out[k] != bv {
					t.Fatalf("key %s: want b's %v, got %v", k, bv, out[k])
				}
			} else if out[k] != v {
				t.Fatalf("key %s: want a's %v, got %v", k, v, out[k])
			}
		}
		for k, v := range b {
			if out[k] != v {
				t.Fatalf("key %s: want %v, got %v", k, v, out[k])
			}
		}
		if len(out) > len(a)+len(b) {
			t.Fatalf("unexpected keys in %v", out)
		}
	})
}

// Nested mappings present on both sides are merged with the same rules.
func TestMerge_NestedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := scalarMap().Draw(t, "a")
		b := scalarMap().Draw(t, "b")
		out := Merge(map[string]any{"n": a}, map[string]any{"n": b})
		assert.Equal(t, Merge(a, b), out["n"])
	})
}
