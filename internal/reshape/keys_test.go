package reshape

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nested() any {
	return map[string]any{
		"a": []any{
			map[string]any{"b": []any{[]any{map[string]any{"c": "x"}}}},
			"leaf",
			nil,
		},
		"d": map[string]any{"e": map[string]any{"a": 1}},
	}
}

func TestMapKeysDeepEmptyMapIsIdentity(t *testing.T) {
	in := nested()
	if diff := cmp.Diff(in, MapKeysDeep(in, nil)); diff != "" {
		t.Fatalf("nil key map changed value:\n%s", diff)
	}
	if diff := cmp.Diff(in, MapKeysDeep(in, map[string]string{})); diff != "" {
		t.Fatalf("empty key map changed value:\n%s", diff)
	}
}

func TestMapKeysDeepRecurses(t *testing.T) {
	got := MapKeysDeep(nested(), map[string]string{"a": "A", "c": "C"})
	want := map[string]any{
		"A": []any{
			map[string]any{"b": []any{[]any{map[string]any{"C": "x"}}}},
			"leaf",
			nil,
		},
		"d": map[string]any{"e": map[string]any{"A": 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMapKeysDeepLeaves(t *testing.T) {
	assert.Equal(t, "s", MapKeysDeep("s", map[string]string{"s": "t"}))
	assert.Nil(t, MapKeysDeep(nil, map[string]string{"a": "b"}))
}

func TestParseKeyMap(t *testing.T) {
	m, err := ParseKeyMap(`{"a":"b"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "b"}, m)

	m, err = ParseKeyMap(map[string]any{"x": "y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "y"}, m)

	m, err = ParseKeyMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = ParseKeyMap(`not json`)
	require.Error(t, err)
	_, err = ParseKeyMap(map[string]any{"a": 1})
	require.Error(t, err)
	_, err = ParseKeyMap(3)
	require.Error(t, err)
}

func TestParseRoots(t *testing.T) {
	r, err := ParseRoots("data")
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, r)

	r, err = ParseRoots([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r)

	r, err = ParseRoots("")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = ParseRoots([]any{"a", 1})
	require.Error(t, err)
}

func TestParseSetters(t *testing.T) {
	s, err := ParseSetters([]any{
		map[string]any{"field": "total", "path": "meta.total"},
		map[string]any{"path": "extra"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Setter{{Field: "total", Path: "meta.total"}, {Path: "extra"}}, s)

	_, err = ParseSetters([]any{map[string]any{"field": "x"}})
	require.Error(t, err)
	_, err = ParseSetters("x")
	require.Error(t, err)
}
