package level

import (
	"errors"
	"fmt"
)

// Kind marks whether an NPC is who they claim to be.
type Kind string

const (
	KindReal Kind = "real"
	KindFake Kind = "fake"
)

// QAPair is one question the player can ask and the NPC's answer.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// NPC is a single scripted encounter in a level.
type NPC struct {
	Kind          Kind     `json:"type" yaml:"type"`                   // "real" or "fake"
	CharacterID   int      `json:"characterId" yaml:"characterId"`     // resolves the visual asset
	CharacterName string   `json:"characterName" yaml:"characterName"` // display name
	SkinID        int      `json:"skinId" yaml:"skinId"`
	SkinName      string   `json:"skinName" yaml:"skinName"`
	QAPairs       []QAPair `json:"qaPairs" yaml:"qaPairs"`
}

// Level is an ordered queue of NPC encounters.
type Level struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	NPCs        []NPC  `json:"npcs" yaml:"npcs"`
}

var ErrInvalidLevel = errors.New("invalid level")

// Validate reports the first problem that makes the level unusable.
func (l Level) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	for i, npc := range l.NPCs {
		if err := npc.Validate(); err != nil {
			return fmt.Errorf("%w: npc %d in level %q: %v", ErrInvalidLevel, i, l.Name, err)
		}
	}
	return nil
}

func (n NPC) Validate() error {
	switch n.Kind {
	case KindReal, KindFake:
	default:
		return fmt.Errorf("unknown type %q, expected %q or %q", n.Kind, KindReal, KindFake)
	}
	if n.CharacterID < 0 {
		return fmt.Errorf("characterId must be non-negative, got %d", n.CharacterID)
	}
	for i, qa := range n.QAPairs {
		if qa.Question == "" {
			return fmt.Errorf("qaPairs[%d] has an empty question", i)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate loaded data.
func (l Level) Clone() Level {
	out := l
	out.NPCs = make([]NPC, len(l.NPCs))
	for i, npc := range l.NPCs {
		out.NPCs[i] = npc.Clone()
	}
	return out
}

func (n NPC) Clone() NPC {
	out := n
	out.QAPairs = ClonePairs(n.QAPairs)
	return out
}

// ClonePairs copies a QA slice. A nil input yields an empty, non-nil slice.
func ClonePairs(pairs []QAPair) []QAPair {
	out := make([]QAPair, len(pairs))
	copy(out, pairs)
	return out
}

// AssetKey returns the asset path for a character: the id zero-padded to two
// digits as the folder, then the bare id. Character 7 resolves to "07/7".
func AssetKey(characterID int) string {
	return fmt.Sprintf("%02d/%d", characterID, characterID)
}
