package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/gatekeeper/internal/game"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/level"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type keyMap struct {
	Ask      key.Binding
	Repeat   key.Binding
	Pass     key.Binding
	Dismiss  key.Binding
	Copy     key.Binding
	Next     key.Binding
	Previous key.Binding
	Retry    key.Binding
	Quit     key.Binding
}

func newKeyMap(slotCount int) keyMap {
	askKeys := make([]string, 0, slotCount)
	for i := 1; i <= slotCount && i <= 9; i++ {
		askKeys = append(askKeys, strconv.Itoa(i))
	}
	return keyMap{
		Ask:      key.NewBinding(key.WithKeys(askKeys...), key.WithHelp(fmt.Sprintf("1-%d", len(askKeys)), "ask")),
		Repeat:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "repeat")),
		Pass:     key.NewBinding(key.WithKeys("p", "right"), key.WithHelp("p/→", "pass")),
		Dismiss:  key.NewBinding(key.WithKeys("d", "left"), key.WithHelp("d/←", "dismiss")),
		Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy answer")),
		Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next level")),
		Previous: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous level")),
		Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry level")),
		Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Pass, k.Dismiss, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Ask, k.Repeat, k.Copy},
		{k.Pass, k.Dismiss},
		{k.Next, k.Previous, k.Retry, k.Quit},
	}
}

// ConsoleUI is the BubbleTea model for the checkpoint.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	game  *game.Game
	stage *stage
	keys  keyMap
	help  help.Model
	title cases.Caser

	width  int
	height int
	status string
	err    error

	showQuitModal bool
}

var (
	panelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	dialogueStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Foreground(lipgloss.Color("86")). // green
			Padding(0, 1)

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Padding(0, 1).
			Bold(true)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

func NewConsoleUI(g *game.Game, s *stage) ConsoleUI {
	return ConsoleUI{
		game:  g,
		stage: s,
		keys:  newKeyMap(g.Questions.SlotCount()),
		help:  help.New(),
		title: cases.Title(language.English),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.stage.drain()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.showQuitModal {
			return m.updateQuitModal(msg)
		}
		m = m.handleKey(msg)

	case timerMsg:
		m.stage.fire(msg.id)

	case frameMsg:
		m.stage.frame(msg.id, msg.at)

	case appearanceLoadedMsg:
		m.stage.appearanceLoaded(msg)
	}

	return m, m.stage.drain()
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) ConsoleUI {
	m.err = nil
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.showQuitModal = true

	case key.Matches(msg, m.keys.Ask):
		slot, _ := strconv.Atoi(msg.String())
		if m.game.Flow.State() != encounter.StateAwaitingDecision {
			return m
		}
		if !m.game.Questions.Select(slot - 1) {
			m.status = "Nobody to ask."
		}

	case key.Matches(msg, m.keys.Repeat):
		if m.game.Flow.State() == encounter.StateAwaitingDecision {
			m.stage.Show("")
		}

	case key.Matches(msg, m.keys.Pass):
		m.decide(encounter.Pass)

	case key.Matches(msg, m.keys.Dismiss):
		m.decide(encounter.Dismiss)

	case key.Matches(msg, m.keys.Copy):
		if !m.stage.IsShowing() {
			return m
		}
		if err := clipboard.WriteAll(m.stage.dialogueText); err != nil {
			m.err = fmt.Errorf("failed to copy answer: %w", err)
			return m
		}
		m.status = "Answer copied."

	case key.Matches(msg, m.keys.Next):
		if m.game.Flow.State() != encounter.StateLevelComplete {
			return m
		}
		if err := m.game.NextLevel(); err != nil {
			if errors.Is(err, level.ErrAtLastLevel) {
				m.status = "That was the last level."
				return m
			}
			m.err = err
		}

	case key.Matches(msg, m.keys.Previous):
		if err := m.game.PreviousLevel(); err != nil {
			if errors.Is(err, level.ErrAtFirstLevel) {
				m.status = "Already at the first level."
				return m
			}
			m.err = err
		}

	case key.Matches(msg, m.keys.Retry):
		if err := m.game.RetryLevel(); err != nil {
			m.err = err
		}
	}
	return m
}

func (m *ConsoleUI) decide(dir encounter.Direction) {
	if !m.game.Flow.OnDecision(dir) {
		return
	}
	decisions := m.game.Flow.Decisions()
	if len(decisions) == 0 {
		return
	}
	if decisions[len(decisions)-1].Correct {
		m.status = "Good call."
	} else {
		m.status = "That was a mistake."
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEnter:
		return m, tea.Quit
	default:
		switch msg.String() {
		case "y", "Y", "q":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}
	return m, nil
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	width := m.width - 6
	var sections []string
	sections = append(sections, m.renderHeader(width))

	if m.game.Flow.State() == encounter.StateLevelComplete {
		sections = append(sections, m.renderLevelComplete())
	} else {
		sections = append(sections, m.renderStage(), m.renderDialogue(width), m.renderQuestions(width), m.renderButtons())
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		sections = append(sections, promptStyle.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keys))

	return panelStyle.Width(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m ConsoleUI) renderHeader(width int) string {
	lvl, err := m.game.Levels.Current()
	if err != nil {
		return errorStyle.Render("No level loaded")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Level %d/%d: %s",
		m.game.Levels.CurrentIndex()+1, m.game.Levels.Count(), m.title.String(lvl.Name))))
	if lvl.Description != "" {
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(wordwrap.String(lvl.Description, width)))
	}

	correct, total := m.game.Tracker.Progress().Score()
	b.WriteString("\n")
	b.WriteString(promptStyle.Render(fmt.Sprintf("Visitor %d/%d   Score %d/%d",
		min(m.game.Flow.CurrentNPCIndex()+1, m.game.Flow.NPCCount()), m.game.Flow.NPCCount(), correct, total)))
	b.WriteString("\n")
	return b.String()
}

func (m ConsoleUI) renderStage() string {
	s := m.stage
	lane := 2*s.distance + 12
	if !s.visible {
		return strings.Repeat("\n", len(placeholderArt(0))) + promptStyle.Render(strings.Repeat("─", lane))
	}

	pad := strings.Repeat(" ", max(s.distance+s.pos, 0))
	var b strings.Builder
	for _, line := range s.art {
		b.WriteString(pad)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(promptStyle.Render(strings.Repeat("─", lane)))

	if npc, ok := m.game.Flow.CurrentNPC(); ok && m.game.Flow.State() == encounter.StateAwaitingDecision {
		b.WriteString("\n")
		name := speakerStyle.Render(npc.CharacterName)
		if s.skin != "" {
			name += promptStyle.Render(" (" + s.skin + ")")
		}
		b.WriteString(name)
	}
	return b.String()
}

func (m ConsoleUI) renderDialogue(width int) string {
	if !m.stage.IsShowing() {
		return ""
	}
	return dialogueStyle.Render(wordwrap.String(m.stage.dialogueText, max(width-4, 10)))
}

func (m ConsoleUI) renderQuestions(width int) string {
	if m.game.Flow.State() != encounter.StateAwaitingDecision {
		return ""
	}
	var b strings.Builder
	for i, q := range m.stage.questions {
		if q == "" {
			continue
		}
		b.WriteString(questionStyle.Render(wordwrap.String(fmt.Sprintf("[%d] %s", i+1, q), width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m ConsoleUI) renderButtons() string {
	style := disabledButtonStyle
	if m.game.Flow.DecisionsEnabled() {
		style = buttonStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, style.Render("Dismiss"), "  ", style.Render("Pass")) + "\n"
}

func (m ConsoleUI) renderLevelComplete() string {
	correct, total := m.game.Tracker.Progress().LevelScore()

	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Level complete"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("You judged %d of %d visitors correctly.", correct, total))
	b.WriteString("\n\n")
	if m.game.Finished() {
		b.WriteString(promptStyle.Render("That was the last level. Press R to retry or Q to quit."))
	} else {
		b.WriteString(promptStyle.Render("Press N for the next level or R to retry."))
	}
	return modalStyle.Width(50).Render(b.String())
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave your post?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress so far has been recorded.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}
