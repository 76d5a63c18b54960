package catalog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecord_AssignsIDAndTime(t *testing.T) {
	s := newTestStore(t)

	e, err := s.Record(Entry{Project: "flask", Source: "https://github.com/pallets/flask", OutputDir: "docs/flask", Chapters: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.CreatedAt)

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestRecord_ReplacesSameID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Record(Entry{ID: "run-1", Project: "p", OutputDir: "out/p", Chapters: 3})
	require.NoError(t, err)
	_, err = s.Record(Entry{ID: "run-1", Project: "p", OutputDir: "out/p", Chapters: 5, Placeholders: 1})
	require.NoError(t, err)

	list, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Chapters)
	assert.Equal(t, 1, list[0].Placeholders)
}

func TestRecord_RequiresProjectAndOutput(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Record(Entry{Project: "p"})
	assert.Error(t, err)
	_, err = s.Record(Entry{OutputDir: "out"})
	assert.Error(t, err)
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	s := newTestStore(t)
	for _, e := range []Entry{
		{ID: "a", Project: "one", OutputDir: "o/one", CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "b", Project: "two", OutputDir: "o/two", CreatedAt: "2026-01-02T00:00:00Z"},
		{ID: "c", Project: "one", OutputDir: "o/one", CreatedAt: "2026-01-03T00:00:00Z"},
	} {
		_, err := s.Record(e)
		require.NoError(t, err)
	}

	all, err := s.List("", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	one, err := s.List("one", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(one))

	limited, err := s.List("", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(limited))

	latest, err := s.Latest("one")
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	s := newTestStore(t)
	list, err := s.List("", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Latest("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Record(Entry{Project: "p", OutputDir: "o"})
	require.NoError(t, err)
	list, err := s.List("", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpen_DriverError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }

	_, err := Open(filepath.Join(t.TempDir(), "c.db"))
	assert.ErrorContains(t, err, "boom")
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
