// Package qa binds an NPC's question/answer pairs to the fixed set of
// question slots shown to the player.
package qa

import (
	"log/slog"

	"github.com/jwebster45206/gatekeeper/pkg/level"
)

// DefaultSlotCount is the number of question buttons on screen.
const DefaultSlotCount = 3

// SlotView renders the visible question texts, one per active slot.
type SlotView interface {
	Refresh(slotTexts []string)
}

// AnswerDisplay shows an answer when a question slot is selected.
type AnswerDisplay interface {
	Show(text string)
}

// Registry holds the active NPC's pairs and which of them are bound to slots.
// Every mutation pushes the new slot texts to the SlotView.
type Registry struct {
	pairs     []level.QAPair
	slots     []int
	slotCount int
	view      SlotView
	display   AnswerDisplay
	logger    *slog.Logger
}

// NewRegistry creates a registry with slotCount slots. A nil view or display is
// reported once and the matching side effects are skipped.
func NewRegistry(slotCount int, view SlotView, display AnswerDisplay, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if slotCount <= 0 {
		logger.Warn("Invalid question slot count, using default", "slot_count", slotCount, "default", DefaultSlotCount)
		slotCount = DefaultSlotCount
	}
	if view == nil {
		logger.Error("Question slot view not set, slot refreshes are disabled")
	}
	if display == nil {
		logger.Error("Answer display not set, selecting a question shows nothing")
	}
	return &Registry{
		pairs:     []level.QAPair{},
		slots:     []int{},
		slotCount: slotCount,
		view:      view,
		display:   display,
		logger:    logger,
	}
}

// ReplaceAll swaps in a copy of pairs and resets the slots to the first
// slotCount indices. Slot indices past the end of pairs are dropped from the
// tail, so an NPC with fewer pairs than slots shows fewer questions.
func (r *Registry) ReplaceAll(pairs []level.QAPair) {
	r.pairs = level.ClonePairs(pairs)

	r.slots = make([]int, r.slotCount)
	for i := range r.slots {
		r.slots[i] = i
	}
	for len(r.slots) > 0 && r.slots[len(r.slots)-1] >= len(r.pairs) {
		r.slots = r.slots[:len(r.slots)-1]
	}

	r.refresh()
}

// Append adds pairs after the existing ones. Slot bindings are left alone.
// An empty append changes nothing, so the view is not refreshed.
func (r *Registry) Append(pairs []level.QAPair) {
	if len(pairs) == 0 {
		return
	}
	r.pairs = append(r.pairs, pairs...)
	r.refresh()
}

// SetSlotIndices binds slots to the given pair indices. Invalid indices are
// dropped, extra ones truncated, and missing slots padded with
// len(slots) % len(pairs). With no pairs there is nothing to pad with.
func (r *Registry) SetSlotIndices(indices []int) {
	slots := make([]int, 0, r.slotCount)
	for _, idx := range indices {
		if idx >= 0 && idx < len(r.pairs) {
			slots = append(slots, idx)
		}
	}
	if len(slots) > r.slotCount {
		slots = slots[:r.slotCount]
	}
	if len(r.pairs) > 0 {
		for len(slots) < r.slotCount {
			slots = append(slots, len(slots)%len(r.pairs))
		}
	}
	r.slots = slots
	r.refresh()
}

// Update replaces the pair at index in place.
func (r *Registry) Update(index int, pair level.QAPair) bool {
	if index < 0 || index >= len(r.pairs) {
		return false
	}
	r.pairs[index] = pair
	r.refresh()
	return true
}

// AnswerFor resolves a slot to the answer it is bound to.
func (r *Registry) AnswerFor(slot int) (string, bool) {
	pair, ok := r.pairFor(slot)
	if !ok {
		return "", false
	}
	return pair.Answer, true
}

// Select shows the answer bound to slot. It reports whether a slot was bound.
func (r *Registry) Select(slot int) bool {
	answer, ok := r.AnswerFor(slot)
	if !ok {
		r.logger.Debug("Ignoring selection of empty question slot", "slot", slot)
		return false
	}
	if r.display != nil {
		r.display.Show(answer)
	}
	return true
}

// Snapshot returns a copy of all current pairs.
func (r *Registry) Snapshot() []level.QAPair {
	return level.ClonePairs(r.pairs)
}

// SlotIndices returns a copy of the active slot bindings.
func (r *Registry) SlotIndices() []int {
	out := make([]int, len(r.slots))
	copy(out, r.slots)
	return out
}

// SlotTexts returns the question text for each active slot.
func (r *Registry) SlotTexts() []string {
	texts := make([]string, 0, len(r.slots))
	for slot := range r.slots {
		if pair, ok := r.pairFor(slot); ok {
			texts = append(texts, pair.Question)
		}
	}
	return texts
}

func (r *Registry) SlotCount() int {
	return r.slotCount
}

func (r *Registry) pairFor(slot int) (level.QAPair, bool) {
	if slot < 0 || slot >= len(r.slots) {
		return level.QAPair{}, false
	}
	idx := r.slots[slot]
	if idx < 0 || idx >= len(r.pairs) {
		return level.QAPair{}, false
	}
	return r.pairs[idx], true
}

func (r *Registry) refresh() {
	if r.view == nil {
		return
	}
	r.view.Refresh(r.SlotTexts())
}
