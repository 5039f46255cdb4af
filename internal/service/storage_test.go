package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/domain"
)

func testLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(domain.ProviderConfig{
		Name:     "local",
		Type:     domain.ServiceStorage,
		Settings: map[string]string{"root": t.TempDir()},
	})
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutGet(t *testing.T) {
	s := testLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "reports/summary.txt", strings.NewReader("hello")))

	rc, err := s.Get(ctx, "reports/summary.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalStorage_ListPrefix(t *testing.T) {
	s := testLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "reports/a.txt", strings.NewReader("a")))
	require.NoError(t, s.Put(ctx, "reports/b.txt", strings.NewReader("b")))
	require.NoError(t, s.Put(ctx, "notes/c.txt", strings.NewReader("c")))

	names, err := s.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/a.txt", "reports/b.txt"}, names)
}

func TestLocalStorage_Delete(t *testing.T) {
	s := testLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.txt", strings.NewReader("a")))
	require.NoError(t, s.Delete(ctx, "a.txt"))

	_, err := s.Get(ctx, "a.txt")
	assert.Error(t, err)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := testLocalStorage(t)
	ctx := context.Background()

	for _, name := range []string{"../escape.txt", "/abs.txt", "."} {
		err := s.Put(ctx, name, strings.NewReader("x"))
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestLocalStorage_RequiresRoot(t *testing.T) {
	_, err := NewLocalStorage(domain.ProviderConfig{Name: "local", Type: domain.ServiceStorage})
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "local", unavail.Provider)
}

func TestDriveStorage_RequiresSettings(t *testing.T) {
	_, err := NewDriveStorage(context.Background(), domain.ProviderConfig{Name: "gdrive", Type: domain.ServiceStorage})
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
}
