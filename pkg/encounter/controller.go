package encounter

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/qa"
)

var (
	ErrNoRepository      = errors.New("level repository not set")
	ErrAppearanceTimeout = errors.New("appearance setup timed out")
)

// Controller owns the NPC cursor and the decision gate for one level at a
// time. It is not safe for concurrent use: every method and every collaborator
// callback must run on the same goroutine.
//
// Each asynchronous request (appearance setup, exit movement) is issued under
// a fresh token. Only the completion carrying the current token is honoured,
// so a superseded or repeated callback can't advance the flow twice.
type Controller struct {
	levels    *level.Repository
	registry  *qa.Registry
	dialogue  DialogueDisplay
	presenter CharacterPresenter
	logger    *slog.Logger

	scheduler         Scheduler
	appearanceTimeout time.Duration
	cancelTimeout     func()

	levelName        string
	levelIndex       int
	npcs             []level.NPC
	npcIndex         int
	decisionsEnabled bool
	state            State
	pending          uint64
	lastToken        uint64
	decisions        []Decision
	handlers         []EventHandler
}

// New wires a controller. Missing collaborators are reported here, once;
// calls to them are skipped afterwards and asynchronous ones resolve at once.
func New(levels *level.Repository, registry *qa.Registry, dialogue DialogueDisplay, presenter CharacterPresenter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if levels == nil {
		logger.Error("Level repository not set, levels cannot be started")
	}
	if registry == nil {
		logger.Error("Question registry not set, NPC questions will not be shown")
	}
	if dialogue == nil {
		logger.Error("Dialogue display not set")
		dialogue = nopDialogue{}
	}
	if presenter == nil {
		logger.Error("Character presenter not set, characters will not be animated")
		presenter = immediatePresenter{}
	}
	return &Controller{
		levels:     levels,
		registry:   registry,
		dialogue:   dialogue,
		presenter:  presenter,
		logger:     logger,
		levelIndex: -1,
		npcIndex:   -1,
		state:      StateIdle,
	}
}

// SetAppearanceTimeout makes the controller stop waiting for appearance setup
// after d and carry on as if it had failed. A zero d waits forever.
func (c *Controller) SetAppearanceTimeout(scheduler Scheduler, d time.Duration) {
	c.scheduler = scheduler
	c.appearanceTimeout = d
}

// OnEvent registers a handler for controller events.
func (c *Controller) OnEvent(h EventHandler) {
	if h != nil {
		c.handlers = append(c.handlers, h)
	}
}

// StartLevel snapshots the current level's NPCs and shows the first one.
// Anything still in flight from a previous level is abandoned.
func (c *Controller) StartLevel() error {
	if c.levels == nil {
		return ErrNoRepository
	}
	lvl, err := c.levels.Current()
	if err != nil {
		c.logger.Error("Unable to start level", "error", err)
		return fmt.Errorf("failed to start level: %w", err)
	}

	c.abandonPending()
	c.dialogue.Hide()
	c.presenter.ResetPosition()

	c.levelName = lvl.Name
	c.levelIndex = c.levels.CurrentIndex()
	c.npcs = lvl.NPCs
	c.npcIndex = -1
	c.decisions = nil
	c.decisionsEnabled = false
	c.state = StateIdle

	c.logger.Info("Starting level", "level", c.levelName, "index", c.levelIndex, "npcs", len(c.npcs))
	c.ShowNext()
	return nil
}

// ShowNext advances to the next NPC, or completes the level when none remain.
func (c *Controller) ShowNext() {
	c.npcIndex++
	c.decisionsEnabled = false

	if c.npcIndex >= len(c.npcs) {
		c.abandonPending()
		if c.state != StateLevelComplete {
			c.state = StateLevelComplete
			c.logger.Info("All NPCs in level handled", "level", c.levelName, "decisions", len(c.decisions))
			c.emit(Event{Type: EventLevelCompleted})
		}
		return
	}

	npc := c.npcs[c.npcIndex].Clone()
	c.logger.Debug("Showing NPC",
		"level", c.levelName,
		"npc_index", c.npcIndex,
		"character_id", npc.CharacterID,
		"skin", npc.SkinName,
		"questions", len(npc.QAPairs),
	)

	if c.registry != nil {
		c.registry.ReplaceAll(npc.QAPairs)
	}

	c.state = StateAwaitingAppearanceSetup
	c.emit(Event{Type: EventEncounterStarted, NPC: &npc})

	token := c.begin()
	if c.scheduler != nil && c.appearanceTimeout > 0 {
		c.cancelTimeout = c.scheduler.Schedule(c.appearanceTimeout, func() {
			c.appearanceDone(token, ErrAppearanceTimeout)
		})
	}
	c.presenter.SetAppearance(npc.CharacterID, npc.SkinName, func(err error) {
		c.appearanceDone(token, err)
	})
}

func (c *Controller) appearanceDone(token uint64, err error) {
	if !c.settle(token) {
		c.logger.Debug("Ignoring stale appearance completion", "token", token)
		return
	}
	if err != nil {
		c.logger.Warn("Character appearance setup failed, continuing",
			"npc_index", c.npcIndex, "error", err)
	}

	c.presenter.Enter()
	c.decisionsEnabled = true
	c.state = StateAwaitingDecision

	npc := c.npcs[c.npcIndex].Clone()
	c.emit(Event{Type: EventEncounterReady, NPC: &npc})
}

// OnDecision applies the player's verdict. It is ignored unless the controller
// is waiting for one, so a double click only counts once.
func (c *Controller) OnDecision(dir Direction) bool {
	if c.state != StateAwaitingDecision || !c.decisionsEnabled {
		c.logger.Debug("Ignoring decision", "direction", dir, "state", c.state)
		return false
	}

	c.decisionsEnabled = false
	c.state = StateTransitioning

	npc := c.npcs[c.npcIndex].Clone()
	d := NewDecision(c.npcIndex, npc, dir)
	c.decisions = append(c.decisions, d)
	c.logger.Info("Decision made",
		"level", c.levelName,
		"npc_index", c.npcIndex,
		"direction", dir,
		"kind", npc.Kind,
		"correct", d.Correct,
	)
	c.emit(Event{Type: EventEncounterDecided, NPC: &npc, Decision: &d})

	// The dialogue must be gone before the character starts walking.
	c.dialogue.Hide()

	token := c.begin()
	c.presenter.MoveTo(dir, func() {
		if !c.settle(token) {
			c.logger.Debug("Ignoring stale movement completion", "token", token)
			return
		}
		c.ShowNext()
	})
	return true
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) CurrentNPCIndex() int {
	return c.npcIndex
}

// CurrentNPC returns a copy of the NPC at the cursor, if any.
func (c *Controller) CurrentNPC() (level.NPC, bool) {
	if c.npcIndex < 0 || c.npcIndex >= len(c.npcs) {
		return level.NPC{}, false
	}
	return c.npcs[c.npcIndex].Clone(), true
}

func (c *Controller) DecisionsEnabled() bool {
	return c.decisionsEnabled
}

// NPCCount is the number of NPCs in the running level.
func (c *Controller) NPCCount() int {
	return len(c.npcs)
}

// LevelName is the name of the running level.
func (c *Controller) LevelName() string {
	return c.levelName
}

// Decisions returns the verdicts made so far in the running level.
func (c *Controller) Decisions() []Decision {
	out := make([]Decision, len(c.decisions))
	copy(out, c.decisions)
	return out
}

// begin opens the pending slot for a new asynchronous request, superseding
// whatever held it before.
func (c *Controller) begin() uint64 {
	c.abandonPending()
	c.lastToken++
	c.pending = c.lastToken
	return c.pending
}

// settle closes the pending slot if token still owns it.
func (c *Controller) settle(token uint64) bool {
	if token == 0 || token != c.pending {
		return false
	}
	c.pending = 0
	if c.cancelTimeout != nil {
		c.cancelTimeout()
		c.cancelTimeout = nil
	}
	return true
}

func (c *Controller) abandonPending() {
	c.pending = 0
	if c.cancelTimeout != nil {
		c.cancelTimeout()
		c.cancelTimeout = nil
	}
}

func (c *Controller) emit(ev Event) {
	ev.Level = c.levelName
	ev.LevelIndex = c.levelIndex
	ev.NPCIndex = c.npcIndex
	for _, h := range c.handlers {
		h(ev)
	}
}

type nopDialogue struct{}

func (nopDialogue) Show(string)     {}
func (nopDialogue) Hide()           {}
func (nopDialogue) IsShowing() bool { return false }

// immediatePresenter stands in for a missing presenter and resolves every
// request on the spot.
type immediatePresenter struct{}

func (immediatePresenter) SetAppearance(_ int, _ string, onComplete func(error)) {
	onComplete(nil)
}
func (immediatePresenter) Enter() {}
func (immediatePresenter) MoveTo(_ Direction, onComplete func()) {
	onComplete()
}
func (immediatePresenter) ResetPosition() {}
