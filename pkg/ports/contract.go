package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a state
		state := domain.NewSessionState(sessionID)
		state.Phase = domain.PhaseCasting
		state.Mode = domain.ModeManual
		state.Intention = "What should I focus on?"
		state.Tosses = []domain.Toss{{3, 3, 2}, {2, 2, 2}}
		state.InterpretationRequested = true

		// 2. Save
		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Phase, loaded.Phase)
		assert.Equal(t, state.Mode, loaded.Mode)
		assert.Equal(t, state.Intention, loaded.Intention)
		assert.Equal(t, state.Tosses, loaded.Tosses)
		assert.True(t, loaded.InterpretationRequested)
	})

	t.Run("Save and Load Reading", func(t *testing.T) {
		id := sessionID + "-reading"
		state := domain.NewSessionState(id)
		state.Phase = domain.PhaseCastingComplete
		state.Reading = &domain.Reading{
			Pattern:  domain.Pattern{1, 0, 1, 1, 1, 0},
			Changing: domain.ChangingLines{false, false, false, true, false, false},
			Hexagram: domain.Hexagram{Number: 49, Name: "Ko", Title: "Revolution"},
		}
		require.NoError(t, store.Save(ctx, id, state))
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, loaded.Reading)
		assert.Equal(t, state.Reading.Pattern, loaded.Reading.Pattern)
		assert.Equal(t, state.Reading.Changing, loaded.Reading.Changing)
		assert.Equal(t, 49, loaded.Reading.Hexagram.Number)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, sessionID, domain.NewSessionState(sessionID))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 sessions
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState(id1))
		_ = store.Save(ctx, id2, domain.NewSessionState(id2))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// ValidHistoryRecord returns a record that passes domain validation.
func ValidHistoryRecord(userID string) domain.HistoryRecord {
	tosses := make([]int, 0, domain.HistoryCoinsPerCoin)
	for i := 0; i < domain.HistoryCoinsPerCoin; i++ {
		tosses = append(tosses, int(domain.Heads))
	}
	return domain.HistoryRecord{
		UserID:         userID,
		Intention:      "Where is this going?",
		Tosses:         tosses,
		Hexagram:       1,
		Mode:           domain.ModeAutomatic,
		Interpretation: "Persevere.",
	}
}

// RunHistoryStoreContract verifies that a HistoryStore implementation
// validates records and lists them newest first, per user.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405.000000000")

	t.Run("Create and List", func(t *testing.T) {
		ids := make([]string, 0, 3)
		for i := 1; i <= 3; i++ {
			rec := ValidHistoryRecord(userID)
			rec.Hexagram = i
			rec.Intention = fmt.Sprintf("question %d", i)
			id, err := store.Create(ctx, rec)
			require.NoError(t, err)
			require.NotEmpty(t, id)
			ids = append(ids, id)
			// Keep CreatedAt strictly increasing for ordering.
			time.Sleep(2 * time.Millisecond)
		}

		entries, err := store.List(ctx, userID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ids[2], entries[0].ID, "newest first")
		assert.Equal(t, 3, entries[0].Hexagram)
		assert.Equal(t, ids[0], entries[2].ID)
		assert.Equal(t, "question 1", entries[2].Intention)
		assert.Len(t, entries[0].Tosses, domain.HistoryCoinsPerCoin)
		assert.False(t, entries[0].CreatedAt.IsZero())
	})

	t.Run("Isolated per user", func(t *testing.T) {
		entries, err := store.List(ctx, userID+"-other")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Extended coin count", func(t *testing.T) {
		rec := ValidHistoryRecord(userID + "-ext")
		rec.Tosses = append(rec.Tosses, 2, 3, 2)
		_, err := store.Create(ctx, rec)
		assert.NoError(t, err)
	})

	t.Run("Rejects unauthenticated", func(t *testing.T) {
		_, err := store.Create(ctx, ValidHistoryRecord(""))
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Rejects invalid input", func(t *testing.T) {
		rec := ValidHistoryRecord(userID)
		rec.Tosses = rec.Tosses[:17]
		_, err := store.Create(ctx, rec)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		rec = ValidHistoryRecord(userID)
		rec.Mode = "psychic"
		_, err = store.Create(ctx, rec)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		rec = ValidHistoryRecord(userID)
		rec.Hexagram = 65
		_, err = store.Create(ctx, rec)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
