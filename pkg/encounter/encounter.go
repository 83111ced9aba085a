// Package encounter drives a level's NPCs through appearance, interrogation
// and the player's pass/dismiss decision.
package encounter

import (
	"fmt"
	"time"

	"github.com/jwebster45206/gatekeeper/pkg/level"
)

// State is the controller's position in the encounter cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingAppearanceSetup
	StateAwaitingDecision
	StateTransitioning
	StateLevelComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAppearanceSetup:
		return "awaiting_appearance_setup"
	case StateAwaitingDecision:
		return "awaiting_decision"
	case StateTransitioning:
		return "transitioning"
	case StateLevelComplete:
		return "level_complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Direction is the player's verdict on an NPC. Pass walks the NPC out to the
// right, Dismiss sends them back to the left.
type Direction int

const (
	Pass Direction = iota
	Dismiss
)

func (d Direction) String() string {
	switch d {
	case Pass:
		return "pass"
	case Dismiss:
		return "dismiss"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case Pass, Dismiss:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*d = Pass
	case "dismiss":
		*d = Dismiss
	default:
		return fmt.Errorf("invalid direction %q", string(text))
	}
	return nil
}

// DialogueDisplay shows NPC answers.
type DialogueDisplay interface {
	Show(text string)
	Hide()
	IsShowing() bool
}

// CharacterPresenter moves and dresses the on-screen character.
//
// SetAppearance must call onComplete exactly once, with a nil error on success
// or the load error on failure. A request superseded by a later SetAppearance
// or by ResetPosition may be dropped without completing.
//
// MoveTo must stop any animation in flight before starting the new one and
// call onComplete when the character has left.
type CharacterPresenter interface {
	SetAppearance(characterID int, skinName string, onComplete func(error))
	Enter()
	MoveTo(dir Direction, onComplete func())
	ResetPosition()
}

// Scheduler runs fn after d on the same goroutine that drives the controller.
// The returned cancel func prevents fn from running if it hasn't yet.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// Decision records the player's verdict on one NPC. Correct means a real NPC
// was let through or a fake one was turned away.
type Decision struct {
	NPCIndex      int        `json:"npc_index"`
	CharacterID   int        `json:"character_id"`
	CharacterName string     `json:"character_name"`
	Kind          level.Kind `json:"kind"`
	Direction     Direction  `json:"direction"`
	Correct       bool       `json:"correct"`
}

// NewDecision judges dir against the NPC's kind.
func NewDecision(npcIndex int, npc level.NPC, dir Direction) Decision {
	return Decision{
		NPCIndex:      npcIndex,
		CharacterID:   npc.CharacterID,
		CharacterName: npc.CharacterName,
		Kind:          npc.Kind,
		Direction:     dir,
		Correct:       (npc.Kind == level.KindReal && dir == Pass) || (npc.Kind == level.KindFake && dir == Dismiss),
	}
}

// EventType names a controller transition worth telling the outside world about.
type EventType string

const (
	EventEncounterStarted EventType = "encounter.started"
	EventEncounterReady   EventType = "encounter.ready"
	EventEncounterDecided EventType = "encounter.decided"
	EventLevelCompleted   EventType = "level.completed"
)

// Event is emitted to every registered handler as the flow progresses.
type Event struct {
	Type       EventType  `json:"type"`
	Level      string     `json:"level"`
	LevelIndex int        `json:"level_index"`
	NPCIndex   int        `json:"npc_index"`
	NPC        *level.NPC `json:"npc,omitempty"`
	Decision   *Decision  `json:"decision,omitempty"`
}

// EventHandler receives controller events synchronously.
type EventHandler func(Event)
