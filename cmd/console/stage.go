package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/level"
)

const frameInterval = 40 * time.Millisecond

type timerMsg struct{ id int }

type frameMsg struct {
	id int
	at time.Time
}

type appearanceLoadedMsg struct {
	id          int
	characterID int
	skin        string
	art         []byte
	err         error
}

type animation struct {
	id       int
	from, to int
	start    time.Time
	duration time.Duration
	onDone   func()
}

// stage is the console's presentation layer: dialogue box, question slots,
// the walking character and a scheduler. Everything is driven by bubbletea
// messages so every callback runs inside Update.
type stage struct {
	artDir       string
	moveDuration time.Duration
	distance     int

	dialogueText string
	showing      bool

	questions []string

	visible  bool
	pos      int
	art      []string
	skin     string
	assetErr error
	anim     *animation

	// Only the latest appearance request may change the art. Older replies
	// are dropped when they arrive.
	appearanceID int
	onAppearance func(error)

	timers map[int]func()
	nextID int
	cmds   []tea.Cmd
}

var (
	_ encounter.DialogueDisplay = (*stage)(nil)
	_ encounter.TimedPresenter  = (*stage)(nil)
	_ encounter.Scheduler       = (*stage)(nil)
)

func newStage(dataDir string, moveDuration time.Duration, distance int) *stage {
	return &stage{
		artDir:       filepath.Join(dataDir, "characters"),
		moveDuration: moveDuration,
		distance:     distance,
		timers:       make(map[int]func()),
	}
}

func (s *stage) push(cmd tea.Cmd) {
	s.cmds = append(s.cmds, cmd)
}

// drain hands queued commands to the bubbletea runtime.
func (s *stage) drain() tea.Cmd {
	if len(s.cmds) == 0 {
		return nil
	}
	cmds := s.cmds
	s.cmds = nil
	if len(cmds) == 1 {
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

func (s *stage) id() int {
	s.nextID++
	return s.nextID
}

// Dialogue

// Show displays text. An empty text repeats the last line shown.
func (s *stage) Show(text string) {
	if text == "" {
		text = s.dialogueText
	}
	if text == "" {
		return
	}
	s.dialogueText = text
	s.showing = true
}

func (s *stage) Hide() {
	s.showing = false
}

func (s *stage) IsShowing() bool {
	return s.showing
}

// Question slots

func (s *stage) Refresh(slotTexts []string) {
	s.questions = append([]string(nil), slotTexts...)
}

// Character

// SetAppearance loads the character's art off the Update goroutine and
// completes when the result comes back as a message. A newer request
// supersedes any still in flight.
func (s *stage) SetAppearance(characterID int, skinName string, onComplete func(error)) {
	id := s.id()
	s.appearanceID = id
	s.onAppearance = onComplete
	path := filepath.Join(s.artDir, level.AssetKey(characterID)+".txt")
	s.push(func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("failed to load character asset %s: %w", level.AssetKey(characterID), err)
		}
		return appearanceLoadedMsg{id: id, characterID: characterID, skin: skinName, art: data, err: err}
	})
}

func (s *stage) appearanceLoaded(msg appearanceLoadedMsg) {
	if msg.id != s.appearanceID || s.onAppearance == nil {
		return
	}
	onComplete := s.onAppearance
	s.onAppearance = nil

	s.skin = msg.skin
	s.assetErr = msg.err
	if msg.err != nil {
		s.art = placeholderArt(msg.characterID)
	} else {
		s.art = strings.Split(strings.TrimRight(string(msg.art), "\n"), "\n")
	}
	onComplete(msg.err)
}

// Enter walks the character in from the left.
func (s *stage) Enter() {
	s.visible = true
	s.pos = -s.distance
	s.animate(0, nil)
}

// Move walks the character off to the right for Pass or the left for
// Dismiss. Any animation still running is dropped first. Completion is
// reported by the DelayedMotion wrapping the stage.
func (s *stage) Move(dir encounter.Direction) {
	target := s.distance
	if dir == encounter.Dismiss {
		target = -s.distance
	}
	s.animate(target, func() { s.visible = false })
}

// ResetPosition stops any animation, hides the character and drops a
// pending appearance load.
func (s *stage) ResetPosition() {
	s.anim = nil
	s.pos = 0
	s.visible = false
	s.appearanceID = 0
	s.onAppearance = nil
}

func (s *stage) animate(to int, onDone func()) {
	s.anim = &animation{
		id:       s.id(),
		from:     s.pos,
		to:       to,
		start:    time.Now(),
		duration: s.moveDuration,
		onDone:   onDone,
	}
	s.push(frameTick(s.anim.id))
}

func frameTick(id int) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{id: id, at: t}
	})
}

func (s *stage) frame(id int, now time.Time) {
	a := s.anim
	if a == nil || a.id != id {
		return
	}

	progress := 1.0
	if a.duration > 0 {
		progress = float64(now.Sub(a.start)) / float64(a.duration)
	}
	if progress >= 1 {
		s.pos = a.to
		s.anim = nil
		if a.onDone != nil {
			a.onDone()
		}
		return
	}

	s.pos = a.from + int(math.Round(float64(a.to-a.from)*cubicOut(progress)))
	s.push(frameTick(id))
}

func cubicOut(t float64) float64 {
	t--
	return t*t*t + 1
}

// Scheduler

func (s *stage) Schedule(d time.Duration, fn func()) func() {
	id := s.id()
	s.timers[id] = fn
	s.push(tea.Tick(d, func(time.Time) tea.Msg {
		return timerMsg{id: id}
	}))
	return func() { delete(s.timers, id) }
}

func (s *stage) fire(id int) {
	fn, ok := s.timers[id]
	if !ok {
		return
	}
	delete(s.timers, id)
	fn()
}

func placeholderArt(characterID int) []string {
	return []string{
		"  .---.  ",
		" ( o o ) ",
		"  \\ - /  ",
		fmt.Sprintf(" /|%3d|\\ ", characterID),
		"  /   \\  ",
	}
}
