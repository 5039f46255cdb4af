package provider

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
)

func testRegistry() *MemoryRegistry {
	return NewMemoryRegistry(logging.Nop())
}

func TestRegistry_UpsertLookup(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	cfg, err := reg.Upsert(ctx, domain.ProviderConfig{
		Type:  domain.ServiceLLM,
		Name:  "anthropic",
		Model: "claude-3-sonnet-20240229",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)

	got, err := reg.Lookup(ctx, domain.ServiceLLM, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, got.ID)
	assert.Equal(t, "claude-3-sonnet-20240229", got.Model)
}

func TestRegistry_Lookup_NotFound(t *testing.T) {
	reg := testRegistry()

	_, err := reg.Lookup(context.Background(), domain.ServiceLLM, "ghost")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestRegistry_Upsert_RequiresTypeAndName(t *testing.T) {
	reg := testRegistry()

	_, err := reg.Upsert(context.Background(), domain.ProviderConfig{Name: "anthropic"})
	assert.Error(t, err)
	_, err = reg.Upsert(context.Background(), domain.ProviderConfig{Type: domain.ServiceLLM})
	assert.Error(t, err)
}

func TestRegistry_Upsert_PreservesID(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	first, err := reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Model: "v1"})
	require.NoError(t, err)

	second, err := reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Model: "v2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestRegistry_DefaultSwap(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	_, err := reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "openai", Default: true})
	require.NoError(t, err)
	_, err = reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic", Default: true})
	require.NoError(t, err)

	def, err := reg.DefaultFor(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", def.Name)

	old, err := reg.Lookup(ctx, domain.ServiceLLM, "openai")
	require.NoError(t, err)
	assert.False(t, old.Default)
}

func TestRegistry_DefaultFor_None(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	_, err := reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic"})
	require.NoError(t, err)

	_, err = reg.DefaultFor(ctx, domain.ServiceLLM)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestRegistry_ConcurrentUpserts_SingleDefault(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	// Many goroutines race to set their provider as the default. The
	// invariant: at the end there is exactly one default for the type.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Upsert(ctx, domain.ProviderConfig{
				Type:    domain.ServiceLLM,
				Name:    fmt.Sprintf("provider-%d", i),
				Default: true,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	configs, err := reg.List(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	require.Len(t, configs, 32)

	defaults := 0
	for _, cfg := range configs {
		if cfg.Default {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestRegistry_List(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	_, _ = reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "anthropic"})
	_, _ = reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceLLM, Name: "openai"})
	_, _ = reg.Upsert(ctx, domain.ProviderConfig{Type: domain.ServiceStorage, Name: "gdrive"})

	llms, err := reg.List(ctx, domain.ServiceLLM)
	require.NoError(t, err)
	assert.Len(t, llms, 2)

	all, err := reg.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestApplyKnownDefaults(t *testing.T) {
	endpoint, model := ApplyKnownDefaults("anthropic", "", "")
	assert.Equal(t, "https://api.anthropic.com", endpoint)
	assert.Equal(t, "claude-3-sonnet-20240229", model)

	// Explicit values win
	endpoint, model = ApplyKnownDefaults("anthropic", "https://proxy.internal", "claude-x")
	assert.Equal(t, "https://proxy.internal", endpoint)
	assert.Equal(t, "claude-x", model)

	// Unknown names pass through
	endpoint, model = ApplyKnownDefaults("selfhosted", "", "")
	assert.Empty(t, endpoint)
	assert.Empty(t, model)
}
