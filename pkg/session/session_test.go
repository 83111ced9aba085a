package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSaver struct {
	saves int
	last  Progress
	err   error
}

func (s *fakeSaver) SaveProgress(ctx context.Context, id uuid.UUID, p *Progress) error {
	s.saves++
	s.last = *p
	return s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decided(levelName string, levelIndex, npcIndex int, kind level.Kind, dir encounter.Direction) encounter.Event {
	npc := level.NPC{Kind: kind, CharacterID: npcIndex, CharacterName: "npc"}
	d := encounter.NewDecision(npcIndex, npc, dir)
	return encounter.Event{
		Type:       encounter.EventEncounterDecided,
		Level:      levelName,
		LevelIndex: levelIndex,
		NPCIndex:   npcIndex,
		NPC:        &npc,
		Decision:   &d,
	}
}

func TestProgress_Scoring(t *testing.T) {
	p := NewProgress()
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, -1, p.LevelIndex)

	p.StartLevel(0, "first")
	p.Record(encounter.Decision{Correct: true})
	p.Record(encounter.Decision{Correct: false})
	p.Record(encounter.Decision{Correct: true})

	correct, total := p.Score()
	assert.Equal(t, 2, correct)
	assert.Equal(t, 3, total)

	p.StartLevel(1, "second")
	p.Record(encounter.Decision{Correct: false})
	correct, total = p.LevelScore()
	assert.Equal(t, 0, correct)
	assert.Equal(t, 1, total)

	correct, total = p.Score()
	assert.Equal(t, 2, correct)
	assert.Equal(t, 4, total)
}

func TestProgress_CompleteLevelOnce(t *testing.T) {
	p := NewProgress()
	p.CompleteLevel("first")
	p.CompleteLevel("first")
	p.CompleteLevel("second")
	assert.Equal(t, []string{"first", "second"}, p.CompletedLevels)
}

func TestTracker_FollowsEvents(t *testing.T) {
	saver := &fakeSaver{}
	tr := NewTracker(nil, saver, testLogger())

	tr.Handle(encounter.Event{Type: encounter.EventEncounterStarted, Level: "gate", LevelIndex: 2, NPCIndex: 0})
	tr.Handle(decided("gate", 2, 0, level.KindReal, encounter.Pass))
	tr.Handle(encounter.Event{Type: encounter.EventEncounterStarted, Level: "gate", LevelIndex: 2, NPCIndex: 1})
	tr.Handle(decided("gate", 2, 1, level.KindReal, encounter.Dismiss))
	tr.Handle(encounter.Event{Type: encounter.EventLevelCompleted, Level: "gate", LevelIndex: 2, NPCIndex: 2})

	p := tr.Progress()
	assert.Equal(t, 2, p.LevelIndex)
	assert.Equal(t, "gate", p.LevelName)
	assert.Len(t, p.Decisions, 2)
	assert.Equal(t, []string{"gate"}, p.CompletedLevels)
	correct, total := p.Score()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 2, total)

	assert.Equal(t, 3, saver.saves)
	assert.Equal(t, []string{"gate"}, saver.last.CompletedLevels)
}

func TestTracker_ReplayResetsLevelDecisions(t *testing.T) {
	tr := NewTracker(nil, nil, testLogger())

	tr.Handle(encounter.Event{Type: encounter.EventEncounterStarted, Level: "gate", LevelIndex: 0, NPCIndex: 0})
	tr.Handle(decided("gate", 0, 0, level.KindFake, encounter.Pass))
	tr.Handle(encounter.Event{Type: encounter.EventEncounterStarted, Level: "gate", LevelIndex: 0, NPCIndex: 0})

	assert.Empty(t, tr.Progress().Decisions)
	_, total := tr.Progress().Score()
	assert.Equal(t, 1, total)
}

func TestTracker_SaveErrorsAreNotFatal(t *testing.T) {
	saver := &fakeSaver{err: errors.New("redis down")}
	tr := NewTracker(nil, saver, testLogger())

	tr.Handle(decided("gate", 0, 0, level.KindReal, encounter.Pass))
	require.Equal(t, 1, saver.saves)
	assert.Len(t, tr.Progress().Decisions, 1)
}
