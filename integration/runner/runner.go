package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/gatekeeper/internal/game"
	"github.com/jwebster45206/gatekeeper/internal/services/events"
	"github.com/jwebster45206/gatekeeper/internal/storage"
	"github.com/jwebster45206/gatekeeper/pkg/encounter"
	"github.com/jwebster45206/gatekeeper/pkg/session"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted suites against the real level data, Redis-backed
// progress and the event broadcaster
type Runner struct {
	DataDir           string
	RedisURL          string // empty starts an in-process miniredis per suite
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	Log               *slog.Logger
}

// NewRunner creates a new test runner
func NewRunner(dataDir string) *Runner {
	return &Runner{
		DataDir:           dataDir,
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
		Log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// dialogueRecorder stands in for the on-screen dialogue box.
type dialogueRecorder struct {
	text    string
	showing bool
}

func (d *dialogueRecorder) Show(text string) {
	if text == "" {
		text = d.text
	}
	d.text = text
	d.showing = text != ""
}

func (d *dialogueRecorder) Hide()           { d.showing = false }
func (d *dialogueRecorder) IsShowing() bool { return d.showing }

// play is everything one suite run needs.
type play struct {
	game      *game.Game
	dialogue  *dialogueRecorder
	store     *storage.RedisStorage
	collector *EventCollector
	progress  *session.Progress
	emitted   int
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	p, cleanup, err := r.setup(ctx, suite)
	if err != nil {
		result.Error = fmt.Errorf("failed to set up suite: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	defer cleanup()
	result.Session = p.progress.ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, p, suite.Name, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) setup(ctx context.Context, suite TestSuite) (*play, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	redisURL := r.RedisURL
	if redisURL == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		closers = append(closers, mr.Close)
		redisURL = mr.Addr()
	}

	store, err := storage.NewRedisStorage(redisURL, r.DataDir, 0, r.Log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = store.Close() })
	if err := store.WaitForConnection(ctx, 5, 200*time.Millisecond); err != nil {
		cleanup()
		return nil, nil, err
	}

	p := &play{
		dialogue: &dialogueRecorder{},
		store:    store,
		progress: session.NewProgress(),
	}
	p.collector, err = SubscribeEvents(ctx, store.Client(), p.progress.ID)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = p.collector.Close() })

	// No character presenter: moves and appearance setup complete at once.
	p.game = game.New(store, store, p.progress, game.Presentation{Dialogue: p.dialogue}, game.Options{}, r.Log)
	p.game.OnEvent(func(encounter.Event) { p.emitted++ })
	p.game.OnEvent(events.NewBroadcaster(store.Client(), r.Log).Handler(p.progress.ID))

	if err := p.game.Reload(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	p.game.Resume(suite.StartLevel)
	if err := p.game.Start(); err != nil {
		cleanup()
		return nil, nil, err
	}

	// Swallow the opening events so step expectations only see their own.
	if _, err := p.collector.WaitFor(ctx, p.emitted); err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func (r *Runner) runStep(ctx context.Context, p *play, testName string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{TestName: testName, StepName: step.Name}

	before := p.emitted
	err := r.executeAction(ctx, p, step)
	switch {
	case err != nil && !step.ExpectError:
		result.Error = err
	case err == nil && step.ExpectError:
		result.Error = fmt.Errorf("action %q succeeded, expected an error", step.Action)
	}
	if result.Error != nil {
		result.Duration = time.Since(start)
		return result
	}

	received, err := p.collector.WaitFor(ctx, p.emitted)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	for _, ev := range received[before:p.emitted] {
		result.Events = append(result.Events, string(ev.Type))
	}

	result.Error = r.checkExpectations(ctx, p, step.Expectations, result.Events)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) executeAction(ctx context.Context, p *play, step TestStep) error {
	g := p.game
	switch step.Action {
	case ActionAsk:
		if !g.Questions.Select(step.Slot - 1) {
			return fmt.Errorf("question slot %d is empty", step.Slot)
		}
	case ActionRepeat:
		p.dialogue.Show("")
	case ActionPass, ActionDismiss:
		dir := encounter.Pass
		if step.Action == ActionDismiss {
			dir = encounter.Dismiss
		}
		if !g.Flow.OnDecision(dir) {
			return errors.New("decision ignored")
		}
	case ActionNext:
		return g.NextLevel()
	case ActionPrevious:
		return g.PreviousLevel()
	case ActionRetry:
		return g.RetryLevel()
	case ActionReload:
		if err := g.Reload(ctx); err != nil {
			return err
		}
		return g.Start()
	case ActionNone, "":
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func (r *Runner) checkExpectations(ctx context.Context, p *play, exp Expectations, gotEvents []string) error {
	var errs []string
	g := p.game

	if exp.State != nil && g.Flow.State().String() != *exp.State {
		errs = append(errs, fmt.Sprintf("state: expected %q, got %q", *exp.State, g.Flow.State()))
	}
	if exp.LevelName != nil && g.Flow.LevelName() != *exp.LevelName {
		errs = append(errs, fmt.Sprintf("level name: expected %q, got %q", *exp.LevelName, g.Flow.LevelName()))
	}
	if exp.LevelIndex != nil && g.Levels.CurrentIndex() != *exp.LevelIndex {
		errs = append(errs, fmt.Sprintf("level index: expected %d, got %d", *exp.LevelIndex, g.Levels.CurrentIndex()))
	}
	if exp.NPCIndex != nil && g.Flow.CurrentNPCIndex() != *exp.NPCIndex {
		errs = append(errs, fmt.Sprintf("npc index: expected %d, got %d", *exp.NPCIndex, g.Flow.CurrentNPCIndex()))
	}
	if exp.CharacterName != nil {
		npc, ok := g.Flow.CurrentNPC()
		if !ok || npc.CharacterName != *exp.CharacterName {
			errs = append(errs, fmt.Sprintf("character: expected %q, got %q", *exp.CharacterName, npc.CharacterName))
		}
	}
	if exp.DecisionsOpen != nil && g.Flow.DecisionsEnabled() != *exp.DecisionsOpen {
		errs = append(errs, fmt.Sprintf("decisions open: expected %v", *exp.DecisionsOpen))
	}
	if exp.Questions != nil && !slices.Equal(g.Questions.SlotTexts(), exp.Questions) {
		errs = append(errs, fmt.Sprintf("questions: expected %q, got %q", exp.Questions, g.Questions.SlotTexts()))
	}
	if exp.DialogueShowing != nil && p.dialogue.IsShowing() != *exp.DialogueShowing {
		errs = append(errs, fmt.Sprintf("dialogue showing: expected %v", *exp.DialogueShowing))
	}
	if exp.Dialogue != nil && p.dialogue.text != *exp.Dialogue {
		errs = append(errs, fmt.Sprintf("dialogue: expected %q, got %q", *exp.Dialogue, p.dialogue.text))
	}
	if exp.Events != nil && !slices.Equal(gotEvents, exp.Events) {
		errs = append(errs, fmt.Sprintf("events: expected %q, got %q", exp.Events, gotEvents))
	}

	if exp.Correct != nil || exp.Total != nil {
		saved, err := p.store.LoadProgress(ctx, p.progress.ID)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("failed to load saved progress: %v", err))
		case saved == nil:
			errs = append(errs, "no progress saved")
		default:
			correct, total := saved.Score()
			if exp.Correct != nil && correct != *exp.Correct {
				errs = append(errs, fmt.Sprintf("correct: expected %d, got %d", *exp.Correct, correct))
			}
			if exp.Total != nil && total != *exp.Total {
				errs = append(errs, fmt.Sprintf("total: expected %d, got %d", *exp.Total, total))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
