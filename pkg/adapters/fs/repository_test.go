package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r := NewRepository(Config{Path: t.TempDir()})
	require.NoError(t, r.Initialize(context.Background()))
	return r
}

func TestBoardRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	b := core.Board{
		ID:   "b1",
		Name: "groceries",
		Entries: []core.Entry{
			{ID: "e1", Kind: "note", Content: "milk", X: 10, Y: 20},
		},
		Reminders: []core.ReminderItem{
			{ID: "r1", Title: "buy milk", DueAt: 1700000000, Status: core.ReminderScheduled},
		},
		UpdatedAt: 42,
	}
	b.Settings.UserName = "ada"

	require.NoError(t, r.SaveBoard(ctx, b))

	got, err := r.LoadBoard(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	// The board file is plain indented JSON in the expected spot.
	data, err := os.ReadFile(filepath.Join(r.Path, "boards", "b1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "groceries"`)
}

func TestLoadBoardNotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.LoadBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBoardIDValidation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.LoadBoard(ctx, "../escape")
	assert.Error(t, err)
	assert.Error(t, r.SaveBoard(ctx, core.Board{ID: ""}))
	assert.Error(t, r.SaveBoard(ctx, core.Board{ID: "a/b"}))
	assert.Error(t, r.SaveBoard(ctx, core.Board{ID: "index"}), "index is reserved")
}

func TestYAMLBoardKeepsEncoding(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// A hand-authored YAML board is readable...
	yamlBoard := "id: b1\nname: from yaml\nupdatedAt: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(r.Path, "boards", "b1.yaml"), []byte(yamlBoard), 0644))

	got, err := r.LoadBoard(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "from yaml", got.Name)

	// ...and saving it back keeps the YAML extension.
	got.Name = "still yaml"
	require.NoError(t, r.SaveBoard(ctx, got))

	_, err = os.Stat(filepath.Join(r.Path, "boards", "b1.yaml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(r.Path, "boards", "b1.json"))
	assert.True(t, os.IsNotExist(err), "no parallel json copy")
}

func TestListBoardIDsSkipsIndexAndUnknownFiles(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveBoard(ctx, core.Board{ID: "beta"}))
	require.NoError(t, r.SaveBoard(ctx, core.Board{ID: "alpha"}))
	require.NoError(t, os.WriteFile(filepath.Join(r.Path, "boards", "notes.txt"), []byte("x"), 0644))

	ids, err := r.ListBoardIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids, "sorted, index and foreign files excluded")
}

func TestDeleteBoard(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveBoard(ctx, core.Board{ID: "b1"}))
	require.NoError(t, r.DeleteBoard(ctx, "b1"))

	_, err := r.LoadBoard(ctx, "b1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, r.DeleteBoard(ctx, "b1"), core.ErrNotFound)

	ids, err := r.ListBoardIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGlobalSettingsRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// Missing record is the zero value, not an error.
	g, err := r.LoadGlobalSettings(ctx)
	require.NoError(t, err)
	assert.Zero(t, g)

	g.UserName = "ada"
	g.Memories = []string{"prefers tea"}
	g.UpdatedAt = 99
	require.NoError(t, r.SaveGlobalSettings(ctx, g))

	got, err := r.LoadGlobalSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestForwardCompatibleRecords(t *testing.T) {
	r := newTestRepo(t)

	// Unknown fields from a future version are ignored, known ones kept.
	future := `{"id":"b1","name":"ok","updatedAt":3,"someFutureField":{"deep":true}}`
	require.NoError(t, os.WriteFile(filepath.Join(r.Path, "boards", "b1.json"), []byte(future), 0644))

	got, err := r.LoadBoard(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Name)
	assert.EqualValues(t, 3, got.UpdatedAt)
}

func TestMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	r := NewRepository(Config{Path: missing, MustExist: true})
	assert.Error(t, r.Initialize(context.Background()))
}

func TestResolveEvent(t *testing.T) {
	r := NewRepository(Config{Path: "/vault"})

	cases := []struct {
		path string
		want core.Event
		ok   bool
	}{
		{"/vault/global/settings.json", core.Event{Tag: core.TagGlobalSettings}, true},
		{"/vault/boards/b1.json", core.Event{Tag: core.TagBoard, BoardID: "b1"}, true},
		{"/vault/boards/b2.yaml", core.Event{Tag: core.TagBoard, BoardID: "b2"}, true},
		{"/vault/boards/index.json", core.Event{Tag: core.TagBoardsIndex}, true},
		{"/vault/assets/img/cat.png", core.Event{Tag: core.TagAssets}, true},
		{"/vault/boards/.hidden.json", core.Event{}, false},
		{"/vault/boards/b1.json.tmp123", core.Event{}, false},
		{"/vault/unrelated.json", core.Event{}, false},
	}
	for _, tc := range cases {
		got, ok := r.resolveEvent(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		if ok {
			assert.Equal(t, tc.want.Tag, got.Tag, tc.path)
			assert.Equal(t, tc.want.BoardID, got.BoardID, tc.path)
		}
	}
}
