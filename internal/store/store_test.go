package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"providers", "activations", "app_data"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Activation store tests ---

func newActivation(id, agentID string) domain.ActivationRecord {
	return domain.ActivationRecord{
		ID:        id,
		AgentID:   agentID,
		Status:    domain.StatusPending,
		Input:     map[string]any{"prompt": "hello"},
		CreatedAt: time.Now(),
	}
}

func TestActivationStore_CreateGet(t *testing.T) {
	as := NewActivationStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, as.Create(ctx, newActivation("act-1", "summarizer")))

	got, err := as.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, "summarizer", got.AgentID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "hello", got.Input["prompt"])
	assert.Nil(t, got.Error)
}

func TestActivationStore_Get_NotFound(t *testing.T) {
	as := NewActivationStore(testDB(t))

	_, err := as.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrActivationNotFound)
}

func TestActivationStore_Update(t *testing.T) {
	as := NewActivationStore(testDB(t))
	ctx := context.Background()

	rec := newActivation("act-1", "summarizer")
	require.NoError(t, as.Create(ctx, rec))

	rec.Status = domain.StatusRunning
	rec.StartedAt = time.Now()
	rec.InstanceMode = domain.ModeLocalDirect
	require.NoError(t, as.Update(ctx, rec))

	rec.Status = domain.StatusSucceeded
	rec.Output = map[string]any{"summary": "done"}
	rec.CompletedAt = time.Now()
	require.NoError(t, as.Update(ctx, rec))

	got, err := as.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.False(t, got.StartedAt.IsZero())
	assert.False(t, got.CompletedAt.IsZero())
	out, ok := got.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "done", out["summary"])
}

func TestActivationStore_TerminalImmutable(t *testing.T) {
	as := NewActivationStore(testDB(t))
	ctx := context.Background()

	rec := newActivation("act-1", "summarizer")
	require.NoError(t, as.Create(ctx, rec))

	rec.Status = domain.StatusFailed
	rec.Error = &domain.ErrorInfo{Kind: domain.ErrKindExecution, Message: "boom"}
	rec.CompletedAt = time.Now()
	require.NoError(t, as.Update(ctx, rec))

	// A terminal record never changes again
	rec.Status = domain.StatusRunning
	rec.Error = nil
	err := as.Update(ctx, rec)
	assert.ErrorIs(t, err, domain.ErrActivationTerminal)

	got, err := as.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, domain.ErrKindExecution, got.Error.Kind)
	assert.Equal(t, "boom", got.Error.Message)
}

func TestActivationStore_Update_NotFound(t *testing.T) {
	as := NewActivationStore(testDB(t))

	err := as.Update(context.Background(), newActivation("ghost", "summarizer"))
	assert.ErrorIs(t, err, domain.ErrActivationNotFound)
}

func TestActivationStore_List_Filters(t *testing.T) {
	as := NewActivationStore(testDB(t))
	ctx := context.Background()

	a := newActivation("act-1", "summarizer")
	b := newActivation("act-2", "summarizer")
	b.SessionID = "sess-1"
	c := newActivation("act-3", "translator")
	for _, rec := range []domain.ActivationRecord{a, b, c} {
		require.NoError(t, as.Create(ctx, rec))
	}

	recs, err := as.List(ctx, ActivationFilter{AgentID: "summarizer"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = as.List(ctx, ActivationFilter{SessionID: "sess-1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "act-2", recs[0].ID)

	recs, err = as.List(ctx, ActivationFilter{Status: domain.StatusPending, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

// --- Provider store tests ---

func TestProviderStore_UpsertLookup(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	cfg, err := ps.Upsert(ctx, domain.ProviderConfig{
		Type:     domain.ServiceLLM,
		Name:     "anthropic",
		Endpoint: "https://api.anthropic.com/v1",
		Model:    "claude-sonnet-4-5",
		APIKey:   "key-1",
		Default:  true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)

	got, err := ps.Lookup(ctx, domain.ServiceLLM, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, got.ID)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	assert.True(t, got.Default)
}

func TestProviderStore_Lookup_NotFound(t *testing.T) {
	ps := NewProviderStore(testDB(t))

	_, err := ps.Lookup(context.Background(), domain.ServiceLLM, "ghost")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestProviderStore_DefaultSwap(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	_, err := ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "openai", Default: true})
	require.NoError(t, err)
	_, err = ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Default: true})
	require.NoError(t, err)

	// Exactly one default survives, the most recent one
	def, err := ps.DefaultFor(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", def.Name)

	old, err := ps.Lookup(ctx, domain.ServiceLLM, "openai")
	require.NoError(t, err)
	assert.False(t, old.Default)
}

func TestProviderStore_DefaultPerType(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	_, err := ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Default: true})
	require.NoError(t, err)
	_, err = ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceStorage, Name: "gdrive", Default: true})
	require.NoError(t, err)

	// Defaults are independent across types
	llm, err := ps.DefaultFor(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", llm.Name)

	storage, err := ps.DefaultFor(ctx, domain.ServiceStorage)
	require.NoError(t, err)
	assert.Equal(t, "gdrive", storage.Name)
}

func TestProviderStore_DefaultFor_None(t *testing.T) {
	ps := NewProviderStore(testDB(t))

	_, err := ps.DefaultFor(context.Background(), domain.ServiceOAuth)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestProviderStore_Upsert_PreservesID(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	first, err := ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Model: "v1"})
	require.NoError(t, err)

	second, err := ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Model: "v2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := ps.Lookup(ctx, domain.ServiceLLM, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Model)
}

func TestProviderStore_Settings(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	_, err := ps.Upsert(ctx, domain.ProviderConfig{
		Type: domain.ServiceOAuth,
		Name: "google",
		Settings: map[string]string{
			"clientId": "abc",
			"authUrl":  "https://accounts.google.com/o/oauth2/auth",
		},
	})
	require.NoError(t, err)

	got, err := ps.Lookup(ctx, domain.ServiceOAuth, "google")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Settings["clientId"])
}

func TestProviderStore_ListDelete(t *testing.T) {
	ps := NewProviderStore(testDB(t))
	ctx := context.Background()

	_, err := ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic"})
	require.NoError(t, err)
	_, err = ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "openai"})
	require.NoError(t, err)
	_, err = ps.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceData, Name: "local"})
	require.NoError(t, err)

	llms, err := ps.List(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	assert.Len(t, llms, 2)

	all, err := ps.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, ps.Delete(ctx, domain.ServiceLLM, "openai"))
	assert.ErrorIs(t, ps.Delete(ctx, domain.ServiceLLM, "openai"), domain.ErrProviderNotFound)
}

// --- Data store tests ---

func TestDataStore_PutGet(t *testing.T) {
	ds := NewDataStore(testDB(t))
	ctx := context.Background()

	type note struct {
		Text string `json:"text"`
	}

	require.NoError(t, ds.Put(ctx, "summarizer", "notes", "n1", note{Text: "hi"}))

	var got note
	require.NoError(t, ds.Get(ctx, "summarizer", "notes", "n1", &got))
	assert.Equal(t, "hi", got.Text)
}

func TestDataStore_Get_NotFound(t *testing.T) {
	ds := NewDataStore(testDB(t))

	var out map[string]any
	err := ds.Get(context.Background(), "summarizer", "notes", "ghost", &out)
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestDataStore_Put_Replaces(t *testing.T) {
	ds := NewDataStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, ds.Put(ctx, "summarizer", "notes", "n1", "v1"))
	require.NoError(t, ds.Put(ctx, "summarizer", "notes", "n1", "v2"))

	var got string
	require.NoError(t, ds.Get(ctx, "summarizer", "notes", "n1", &got))
	assert.Equal(t, "v2", got)
}

func TestDataStore_QueryDelete(t *testing.T) {
	ds := NewDataStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, ds.Put(ctx, "summarizer", "notes", "n1", "a"))
	require.NoError(t, ds.Put(ctx, "summarizer", "notes", "n2", "b"))
	require.NoError(t, ds.Put(ctx, "translator", "notes", "n1", "c"))

	rows, err := ds.Query(ctx, "summarizer", "notes")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, ds.Delete(ctx, "summarizer", "notes", "n1"))
	rows, err = ds.Query(ctx, "summarizer", "notes")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
