package encounter

import (
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/jwebster45206/gatekeeper/pkg/qa"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// callLog records collaborator calls across fakes so tests can assert order.
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) {
	l.calls = append(l.calls, call)
}

type fakeDialogue struct {
	log     *callLog
	showing bool
	text    string
}

func (d *fakeDialogue) Show(text string) {
	d.log.add("dialogue.show")
	d.showing = true
	d.text = text
}

func (d *fakeDialogue) Hide() {
	d.log.add("dialogue.hide")
	d.showing = false
}

func (d *fakeDialogue) IsShowing() bool {
	return d.showing
}

// fakePresenter holds completions until the test releases them.
type fakePresenter struct {
	log         *callLog
	appearances []func(error)
	moves       []func()
	lastDir     Direction
	entered     int
}

func (p *fakePresenter) SetAppearance(characterID int, skinName string, onComplete func(error)) {
	p.log.add("presenter.appearance")
	p.appearances = append(p.appearances, onComplete)
}

func (p *fakePresenter) Enter() {
	p.log.add("presenter.enter")
	p.entered++
}

func (p *fakePresenter) MoveTo(dir Direction, onComplete func()) {
	p.log.add("presenter.move." + dir.String())
	p.lastDir = dir
	p.moves = append(p.moves, onComplete)
}

func (p *fakePresenter) ResetPosition() {
	p.log.add("presenter.reset")
}

func (p *fakePresenter) finishAppearance(err error) {
	cb := p.appearances[len(p.appearances)-1]
	cb(err)
}

func (p *fakePresenter) finishMove() {
	cb := p.moves[len(p.moves)-1]
	cb()
}

type slotRecorder struct {
	calls [][]string
}

func (s *slotRecorder) Refresh(texts []string) {
	s.calls = append(s.calls, texts)
}

// manualScheduler runs tasks when the test advances its clock.
type manualScheduler struct {
	now   time.Duration
	tasks []*scheduledTask
}

type scheduledTask struct {
	at        time.Duration
	fn        func()
	cancelled bool
	done      bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() {
	task := &scheduledTask{at: s.now + d, fn: fn}
	s.tasks = append(s.tasks, task)
	return func() { task.cancelled = true }
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.now += d
	due := []*scheduledTask{}
	for _, t := range s.tasks {
		if !t.done && !t.cancelled && t.at <= s.now {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		if t.cancelled {
			continue
		}
		t.done = true
		t.fn()
	}
}

func (s *manualScheduler) pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.done && !t.cancelled {
			n++
		}
	}
	return n
}

type harness struct {
	controller *Controller
	repo       *level.Repository
	registry   *qa.Registry
	dialogue   *fakeDialogue
	presenter  *fakePresenter
	slots      *slotRecorder
	log        *callLog
	events     []Event
}

func newHarness(levels ...level.Level) *harness {
	h := &harness{log: &callLog{}, slots: &slotRecorder{}}
	h.dialogue = &fakeDialogue{log: h.log}
	h.presenter = &fakePresenter{log: h.log}
	h.repo = level.NewRepository(testLogger())
	h.repo.Load(levels)
	h.registry = qa.NewRegistry(qa.DefaultSlotCount, h.slots, h.dialogue, testLogger())
	h.controller = New(h.repo, h.registry, h.dialogue, h.presenter, testLogger())
	h.controller.OnEvent(func(ev Event) { h.events = append(h.events, ev) })
	return h
}

func (h *harness) eventTypes() []EventType {
	out := make([]EventType, len(h.events))
	for i, ev := range h.events {
		out[i] = ev.Type
	}
	return out
}

func testLevel(name string, npcs ...level.NPC) level.Level {
	return level.Level{Name: name, Description: "test", NPCs: npcs}
}

func realNPC(id int, questions int) level.NPC {
	return npcWith(level.KindReal, id, questions)
}

func fakeNPC(id int, questions int) level.NPC {
	return npcWith(level.KindFake, id, questions)
}

func npcWith(kind level.Kind, id int, questions int) level.NPC {
	npc := level.NPC{
		Kind:          kind,
		CharacterID:   id,
		CharacterName: "npc",
		SkinName:      "default",
		QAPairs:       []level.QAPair{},
	}
	for i := 0; i < questions; i++ {
		npc.QAPairs = append(npc.QAPairs, level.QAPair{
			Question: "question",
			Answer:   "answer",
		})
	}
	return npc
}
