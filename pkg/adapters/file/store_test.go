package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/hexcast/pkg/adapters/file"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileHistoryStore_Contract(t *testing.T) {
	ports.RunHistoryStoreContract(t, file.NewHistoryStore(t.TempDir()))
}

func TestFileStore_AtomicWrite(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewSessionState("s1")))
	state := domain.NewSessionState("s1")
	state.Phase = domain.PhaseCasting
	require.NoError(t, store.Save(ctx, "s1", state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "s1.json", entries[0].Name())

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCasting, loaded.Phase)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "sessions"))
	ctx := context.Background()

	err := store.Save(ctx, "../escape", domain.NewSessionState("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	history := file.NewHistoryStore(dir)
	_, err = history.Create(ctx, ports.ValidHistoryRecord("a/b"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileStore_ListEmptyDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
