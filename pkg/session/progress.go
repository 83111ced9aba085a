// Package session keeps score across a play session.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
)

// Progress is the persisted record of a play session.
type Progress struct {
	ID              uuid.UUID            `json:"id"`
	LevelIndex      int                  `json:"level_index"`
	LevelName       string               `json:"level_name,omitempty"`
	Decisions       []encounter.Decision `json:"decisions,omitempty"` // decisions in the running level
	Correct         int                  `json:"correct"`             // across all levels
	Incorrect       int                  `json:"incorrect"`
	CompletedLevels []string             `json:"completed_levels,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func NewProgress() *Progress {
	return &Progress{
		ID:         uuid.New(),
		LevelIndex: -1,
		Decisions:  make([]encounter.Decision, 0),
	}
}

// StartLevel resets the per-level decision list.
func (p *Progress) StartLevel(index int, name string) {
	p.LevelIndex = index
	p.LevelName = name
	p.Decisions = make([]encounter.Decision, 0)
}

// Record adds a decision to the running level and the session totals.
func (p *Progress) Record(d encounter.Decision) {
	p.Decisions = append(p.Decisions, d)
	if d.Correct {
		p.Correct++
	} else {
		p.Incorrect++
	}
}

// CompleteLevel marks a level as finished. Replaying a level doesn't list it twice.
func (p *Progress) CompleteLevel(name string) {
	for _, done := range p.CompletedLevels {
		if done == name {
			return
		}
	}
	p.CompletedLevels = append(p.CompletedLevels, name)
}

// Score returns correct decisions over all decisions made.
func (p *Progress) Score() (correct, total int) {
	return p.Correct, p.Correct + p.Incorrect
}

// LevelScore is like Score but for the running level only.
func (p *Progress) LevelScore() (correct, total int) {
	for _, d := range p.Decisions {
		if d.Correct {
			correct++
		}
	}
	return correct, len(p.Decisions)
}
