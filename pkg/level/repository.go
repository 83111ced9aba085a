package level

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrNoLevels     = errors.New("no levels loaded")
	ErrOutOfRange   = errors.New("level index out of range")
	ErrAtFirstLevel = errors.New("already at the first level")
	ErrAtLastLevel  = errors.New("already at the last level")
	ErrNPCNotFound  = errors.New("npc not found in current level")
)

const noLevelSelected = -1

// Repository holds the ordered levels of a play session and a cursor to the
// current one. Navigation never wraps: moves past either end fail and leave
// the cursor where it was.
type Repository struct {
	mu      sync.RWMutex
	levels  []Level
	current int
	logger  *slog.Logger
}

// NewRepository creates an empty repository.
func NewRepository(logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		current: noLevelSelected,
		logger:  logger,
	}
}

// Load replaces every level. Levels that fail validation are skipped with a
// warning so one bad record doesn't block the rest. It returns how many were
// skipped.
func (r *Repository) Load(levels []Level) int {
	loaded := make([]Level, 0, len(levels))
	skipped := 0
	for i, l := range levels {
		if err := l.Validate(); err != nil {
			r.logger.Warn("Skipping malformed level", "index", i, "name", l.Name, "error", err)
			skipped++
			continue
		}
		loaded = append(loaded, l.Clone())
		r.logger.Debug("Loaded level", "index", len(loaded)-1, "name", l.Name, "npcs", len(l.NPCs))
	}

	r.mu.Lock()
	r.levels = loaded
	if len(loaded) > 0 {
		r.current = 0
	} else {
		r.current = noLevelSelected
	}
	r.mu.Unlock()

	r.logger.Info("Levels loaded", "count", len(loaded), "skipped", skipped)
	return skipped
}

// Current returns a copy of the current level.
func (r *Repository) Current() (Level, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentLocked()
}

func (r *Repository) currentLocked() (Level, error) {
	if len(r.levels) == 0 {
		return Level{}, ErrNoLevels
	}
	if r.current < 0 || r.current >= len(r.levels) {
		return Level{}, ErrOutOfRange
	}
	return r.levels[r.current].Clone(), nil
}

// Advance moves to the next level.
func (r *Repository) Advance() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return ErrNoLevels
	}
	if r.current >= len(r.levels)-1 {
		return ErrAtLastLevel
	}
	r.current++
	r.logger.Info("Switched level", "index", r.current, "name", r.levels[r.current].Name)
	return nil
}

// Retreat moves to the previous level.
func (r *Repository) Retreat() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return ErrNoLevels
	}
	if r.current <= 0 {
		return ErrAtFirstLevel
	}
	r.current--
	r.logger.Info("Switched level", "index", r.current, "name", r.levels[r.current].Name)
	return nil
}

// JumpTo selects the level at index.
func (r *Repository) JumpTo(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return ErrNoLevels
	}
	if index < 0 || index >= len(r.levels) {
		return ErrOutOfRange
	}
	r.current = index
	r.logger.Info("Switched level", "index", r.current, "name", r.levels[r.current].Name)
	return nil
}

func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.levels)
}

// CurrentIndex returns the cursor, or -1 when nothing is loaded.
func (r *Repository) CurrentIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Levels returns a copy of every loaded level in order.
func (r *Repository) Levels() []Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Level, len(r.levels))
	for i, l := range r.levels {
		out[i] = l.Clone()
	}
	return out
}

// CurrentNPCs returns the NPCs of the current level, or nil when there is none.
func (r *Repository) CurrentNPCs() []NPC {
	l, err := r.Current()
	if err != nil {
		return nil
	}
	return l.NPCs
}

func (r *Repository) RealNPCs() []NPC {
	return filterKind(r.CurrentNPCs(), KindReal)
}

func (r *Repository) FakeNPCs() []NPC {
	return filterKind(r.CurrentNPCs(), KindFake)
}

// NPCByCharacterID finds the first NPC in the current level with the given id.
func (r *Repository) NPCByCharacterID(characterID int) (NPC, error) {
	for _, npc := range r.CurrentNPCs() {
		if npc.CharacterID == characterID {
			return npc, nil
		}
	}
	return NPC{}, ErrNPCNotFound
}

func filterKind(npcs []NPC, kind Kind) []NPC {
	var out []NPC
	for _, npc := range npcs {
		if npc.Kind == kind {
			out = append(out, npc)
		}
	}
	return out
}
