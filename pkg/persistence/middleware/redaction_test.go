package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/hexcast/pkg/adapters/memory"
	"github.com/aretw0/hexcast/pkg/persistence/middleware"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewRedactionMiddleware(middleware.DefaultRedactionPatterns)
	ports.RunHistoryStoreContract(t, mw(memory.NewHistoryStore()))
}

func TestRedactionMiddleware_Masking(t *testing.T) {
	underlying := memory.NewHistoryStore()
	store := middleware.NewRedactionMiddleware(middleware.DefaultRedactionPatterns)(underlying)
	ctx := context.Background()

	rec := ports.ValidHistoryRecord("alice")
	rec.Intention = "Should I write to bob@example.com or call +55 11 98765-4321?"
	rec.Interpretation = "Reach out to bob@example.com."

	_, err := store.Create(ctx, rec)
	require.NoError(t, err)
	assert.Contains(t, rec.Intention, "bob@example.com", "caller copy must stay intact")

	entries, err := underlying.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Should I write to *** or call ***?", entries[0].Intention)
	assert.Equal(t, "Reach out to ***.", entries[0].Interpretation)
}

func TestRedactionMiddleware_CustomPattern(t *testing.T) {
	underlying := memory.NewHistoryStore()
	store := middleware.NewRedactionMiddleware([]string{`(?i)secret\w*`})(underlying)
	ctx := context.Background()

	rec := ports.ValidHistoryRecord("bob")
	rec.Intention = "Is my SecretProject ready?"
	_, err := store.Create(ctx, rec)
	require.NoError(t, err)

	entries, err := store.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Is my *** ready?", entries[0].Intention)
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewRedactionMiddleware([]string{"("})
	})
}
