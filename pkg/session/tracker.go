package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
)

const saveTimeout = 2 * time.Second

// Saver persists progress. storage.Storage satisfies it.
type Saver interface {
	SaveProgress(ctx context.Context, id uuid.UUID, p *Progress) error
}

// Tracker folds controller events into a Progress and saves it. Saving is
// best effort: failures are logged and play goes on.
type Tracker struct {
	progress *Progress
	store    Saver
	logger   *slog.Logger
}

// NewTracker tracks progress p. store may be nil to keep progress in memory.
func NewTracker(p *Progress, store Saver, logger *slog.Logger) *Tracker {
	if p == nil {
		p = NewProgress()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		progress: p,
		store:    store,
		logger:   logger.With("session_id", p.ID.String()),
	}
}

// Handle is an encounter.EventHandler.
func (t *Tracker) Handle(ev encounter.Event) {
	switch ev.Type {
	case encounter.EventEncounterStarted:
		if ev.NPCIndex == 0 || t.progress.LevelIndex != ev.LevelIndex || t.progress.LevelName != ev.Level {
			t.progress.StartLevel(ev.LevelIndex, ev.Level)
		}
	case encounter.EventEncounterDecided:
		if ev.Decision != nil {
			t.progress.Record(*ev.Decision)
			t.save()
		}
	case encounter.EventLevelCompleted:
		if t.progress.LevelIndex != ev.LevelIndex || t.progress.LevelName != ev.Level {
			t.progress.StartLevel(ev.LevelIndex, ev.Level)
		}
		t.progress.CompleteLevel(ev.Level)
		correct, total := t.progress.LevelScore()
		t.logger.Info("Level complete", "level", ev.Level, "correct", correct, "total", total)
		t.save()
	}
}

// Progress returns the tracked progress. Callers must not mutate it while the
// tracker is in use.
func (t *Tracker) Progress() *Progress {
	return t.progress
}

func (t *Tracker) save() {
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := t.store.SaveProgress(ctx, t.progress.ID, t.progress); err != nil {
		t.logger.Error("Failed to save progress", "error", err)
	}
}
