package game

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/session"
	"github.com/jwebster45206/gatekeeper/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seededStorage() *storage.MockStorage {
	store := storage.NewMockStorage()
	store.AddLevel("01_first.json", level.Level{
		Name: "First",
		NPCs: []level.NPC{
			{Kind: level.KindReal, CharacterID: 1, CharacterName: "Ann", QAPairs: []level.QAPair{{Question: "Name?", Answer: "Ann."}}},
			{Kind: level.KindFake, CharacterID: 2, CharacterName: "Ann"},
		},
	})
	store.AddLevel("02_second.json", level.Level{
		Name: "Second",
		NPCs: []level.NPC{{Kind: level.KindReal, CharacterID: 3, CharacterName: "Bo"}},
	})
	return store
}

func newTestGame(t *testing.T, store *storage.MockStorage) (*Game, *session.Progress) {
	t.Helper()
	progress := session.NewProgress()
	g := New(store, store, progress, Presentation{}, Options{SlotCount: 3}, testLogger())
	require.NoError(t, g.Reload(context.Background()))
	return g, progress
}

func TestGame_PlaysThroughLevels(t *testing.T) {
	store := seededStorage()
	g, progress := newTestGame(t, store)

	var events []encounter.EventType
	g.OnEvent(func(ev encounter.Event) { events = append(events, ev.Type) })

	require.NoError(t, g.Start())
	assert.Equal(t, encounter.StateAwaitingDecision, g.Flow.State())
	assert.Equal(t, []string{"Name?"}, g.Questions.SlotTexts())

	require.True(t, g.Flow.OnDecision(encounter.Pass))
	require.True(t, g.Flow.OnDecision(encounter.Pass))
	assert.Equal(t, encounter.StateLevelComplete, g.Flow.State())
	assert.False(t, g.Finished())

	require.NoError(t, g.NextLevel())
	assert.Equal(t, "Second", g.Flow.LevelName())
	require.True(t, g.Flow.OnDecision(encounter.Dismiss))
	assert.True(t, g.Finished())

	assert.ErrorIs(t, g.NextLevel(), level.ErrAtLastLevel)

	correct, total := progress.Score()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"First", "Second"}, progress.CompletedLevels)
	assert.Contains(t, events, encounter.EventLevelCompleted)

	saved, err := store.LoadProgress(context.Background(), progress.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, []string{"First", "Second"}, saved.CompletedLevels)
}

func TestGame_RetryAndPrevious(t *testing.T) {
	g, progress := newTestGame(t, seededStorage())
	require.NoError(t, g.Start())
	require.True(t, g.Flow.OnDecision(encounter.Dismiss))

	require.NoError(t, g.RetryLevel())
	assert.Equal(t, 0, g.Flow.CurrentNPCIndex())
	assert.Empty(t, progress.Decisions)

	assert.ErrorIs(t, g.PreviousLevel(), level.ErrAtFirstLevel)
	require.NoError(t, g.NextLevel())
	require.NoError(t, g.PreviousLevel())
	assert.Equal(t, "First", g.Flow.LevelName())
}

func TestGame_Resume(t *testing.T) {
	g, _ := newTestGame(t, seededStorage())

	g.Resume(1)
	assert.Equal(t, 1, g.Levels.CurrentIndex())

	g.Resume(9)
	assert.Equal(t, 1, g.Levels.CurrentIndex())

	g.Resume(-1)
	assert.Equal(t, 1, g.Levels.CurrentIndex())
}

func TestGame_ReloadErrors(t *testing.T) {
	g := New(nil, nil, nil, Presentation{}, Options{}, testLogger())
	assert.Error(t, g.Reload(context.Background()))

	g = New(storage.NewMockStorage(), nil, nil, Presentation{}, Options{}, testLogger())
	assert.ErrorIs(t, g.Reload(context.Background()), level.ErrNoLevels)
	assert.ErrorIs(t, g.Start(), level.ErrNoLevels)
}
