package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/activation"
)

func TestTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		tpl     Template
		wantErr bool
	}{
		{"valid", Template{Name: "daily", Agents: []string{"a", "b"}, Mode: activation.ModeChain}, false},
		{"empty_mode_ok", Template{Name: "daily", Agents: []string{"a"}}, false},
		{"missing_name", Template{Agents: []string{"a"}}, true},
		{"path_separator", Template{Name: "../escape", Agents: []string{"a"}}, true},
		{"no_agents", Template{Name: "daily"}, true},
		{"unknown_mode", Template{Name: "daily", Agents: []string{"a"}, Mode: "race"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tpl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	tpl := Template{
		Name:        "summarize-then-post",
		Description: "summarize a doc and post the result",
		Agents:      []string{"summarizer", "poster"},
		Mode:        activation.ModeChain,
	}
	require.NoError(t, store.Save(tpl))

	got, err := store.Load("summarize-then-post")
	require.NoError(t, err)
	assert.Equal(t, tpl, got)
}

func TestStoreSaveInvalid(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Error(t, store.Save(Template{Name: "empty"}))
}

func TestStoreSaveReplaces(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(Template{Name: "wf", Agents: []string{"a"}}))
	require.NoError(t, store.Save(Template{Name: "wf", Agents: []string{"a", "b"}, Mode: activation.ModeParallel}))

	got, err := store.Load("wf")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Agents)
	assert.Equal(t, activation.ModeParallel, got.Mode)
}

func TestStoreLoadNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStoreLoadFillsName(t *testing.T) {
	dir := t.TempDir()
	// Hand-written file without a name field
	data := []byte("agents:\n  - solo\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bare.yaml"), data, 0o600))

	store := NewStore(dir)
	got, err := store.Load("bare")
	require.NoError(t, err)
	assert.Equal(t, "bare", got.Name)
	assert.Equal(t, []string{"solo"}, got.Agents)
}

func TestStoreList(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(Template{Name: "zeta", Agents: []string{"a"}}))
	require.NoError(t, store.Save(Template{Name: "alpha", Agents: []string{"b"}}))

	templates, err := store.List()
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "alpha", templates[0].Name)
	assert.Equal(t, "zeta", templates[1].Name)
}

func TestStoreListMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"))

	templates, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestStoreListSkipsNonYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	store := NewStore(dir)
	require.NoError(t, store.Save(Template{Name: "real", Agents: []string{"a"}}))

	templates, err := store.List()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "real", templates[0].Name)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(Template{Name: "wf", Agents: []string{"a"}}))
	require.NoError(t, store.Delete("wf"))

	_, err := store.Load("wf")
	assert.Error(t, err)
}

func TestStoreDeleteNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	err := store.Delete("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
