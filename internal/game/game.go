// Package game assembles the level repository, question registry, encounter
// controller and session tracking into one playable unit.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/qa"
	"github.com/jwebster45206/gatekeeper/pkg/session"
)

// LevelSource supplies level definitions in play order.
type LevelSource interface {
	LoadLevels(ctx context.Context) ([]level.Level, error)
}

// Presentation is everything the front end provides.
type Presentation struct {
	Dialogue  encounter.DialogueDisplay
	Character encounter.CharacterPresenter
	Slots     qa.SlotView
}

type Options struct {
	SlotCount         int
	AppearanceTimeout time.Duration
	Scheduler         encounter.Scheduler // required for AppearanceTimeout
}

type Game struct {
	Levels    *level.Repository
	Questions *qa.Registry
	Flow      *encounter.Controller
	Tracker   *session.Tracker

	source LevelSource
	logger *slog.Logger
}

// New wires a game. saver may be nil to keep progress in memory only.
func New(source LevelSource, saver session.Saver, progress *session.Progress, p Presentation, opts Options, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}

	levels := level.NewRepository(logger.With("component", "levels"))
	questions := qa.NewRegistry(opts.SlotCount, p.Slots, p.Dialogue, logger.With("component", "questions"))
	flow := encounter.New(levels, questions, p.Dialogue, p.Character, logger.With("component", "encounter"))
	if opts.AppearanceTimeout > 0 {
		if opts.Scheduler == nil {
			logger.Warn("Appearance timeout set without a scheduler, ignoring", "timeout", opts.AppearanceTimeout)
		} else {
			flow.SetAppearanceTimeout(opts.Scheduler, opts.AppearanceTimeout)
		}
	}

	tracker := session.NewTracker(progress, saver, logger)
	flow.OnEvent(tracker.Handle)

	return &Game{
		Levels:    levels,
		Questions: questions,
		Flow:      flow,
		Tracker:   tracker,
		source:    source,
		logger:    logger,
	}
}

// OnEvent registers an extra handler for encounter events.
func (g *Game) OnEvent(h encounter.EventHandler) {
	g.Flow.OnEvent(h)
}

// Reload reads every level from the source again. The cursor returns to the
// first level.
func (g *Game) Reload(ctx context.Context) error {
	if g.source == nil {
		return errors.New("level source not set")
	}
	levels, err := g.source.LoadLevels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load levels: %w", err)
	}
	g.Levels.Load(levels)
	if g.Levels.Count() == 0 {
		return level.ErrNoLevels
	}
	return nil
}

// Resume jumps to the level a saved session was on. An index that no longer
// exists leaves the cursor alone.
func (g *Game) Resume(levelIndex int) {
	if levelIndex < 0 {
		return
	}
	if err := g.Levels.JumpTo(levelIndex); err != nil {
		g.logger.Warn("Cannot resume saved level", "level_index", levelIndex, "error", err)
	}
}

// Start plays the current level from its first NPC.
func (g *Game) Start() error {
	return g.Flow.StartLevel()
}

// RetryLevel replays the current level.
func (g *Game) RetryLevel() error {
	return g.Flow.StartLevel()
}

// NextLevel moves to the following level and starts it.
func (g *Game) NextLevel() error {
	if err := g.Levels.Advance(); err != nil {
		return err
	}
	return g.Flow.StartLevel()
}

// PreviousLevel moves to the preceding level and starts it.
func (g *Game) PreviousLevel() error {
	if err := g.Levels.Retreat(); err != nil {
		return err
	}
	return g.Flow.StartLevel()
}

// Finished reports whether the last level has been completed.
func (g *Game) Finished() bool {
	return g.Flow.State() == encounter.StateLevelComplete && g.Levels.CurrentIndex() == g.Levels.Count()-1
}
