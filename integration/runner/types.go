package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions
const (
	ActionAsk      = "ask"
	ActionRepeat   = "repeat"
	ActionPass     = "pass"
	ActionDismiss  = "dismiss"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionRetry    = "retry"
	ActionReload   = "reload"
	ActionNone     = "none" // check expectations without acting
)

// TestSuite defines a complete scripted playthrough.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name       string     `json:"name"`
	StartLevel int        `json:"start_level,omitempty"` // level index to resume at
	Steps      []TestStep `json:"steps,omitempty"`       // Used for regular tests
	Cases      []string   `json:"cases,omitempty"`       // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is a single player action and its expected outcome
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Slot         int          `json:"slot,omitempty"` // 1-based, for "ask"
	ExpectError  bool         `json:"expect_error,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	State           *string  `json:"state,omitempty"`
	LevelName       *string  `json:"level_name,omitempty"`
	LevelIndex      *int     `json:"level_index,omitempty"`
	NPCIndex        *int     `json:"npc_index,omitempty"`
	CharacterName   *string  `json:"character_name,omitempty"`
	DecisionsOpen   *bool    `json:"decisions_open,omitempty"`
	Questions       []string `json:"questions,omitempty"` // slot texts in order
	DialogueShowing *bool    `json:"dialogue_showing,omitempty"`
	Dialogue        *string  `json:"dialogue,omitempty"`

	// Session score, read back from storage
	Correct *int `json:"correct,omitempty"`
	Total   *int `json:"total,omitempty"`

	// Event types broadcast during this step, in order
	Events []string `json:"events,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Events   []string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the progress record used for this run
}
