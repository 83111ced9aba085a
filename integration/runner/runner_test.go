package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gateLevel = `{
  "name": "gate",
  "npcs": [
    {"type": "real", "characterId": 1, "characterName": "Ana", "qaPairs": [{"question": "Name?", "answer": "Ana."}]},
    {"type": "fake", "characterId": 2, "characterName": "Ana", "qaPairs": [{"question": "Name?", "answer": "Anna?"}]}
  ]
}`

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "levels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "levels", "01_gate.json"), []byte(gateLevel), 0o644))
	return NewRunner(dir)
}

func ptr[T any](v T) *T { return &v }

func TestRunSuite_Passes(t *testing.T) {
	r := newTestRunner(t)

	suite := TestSuite{
		Name: "gate",
		Steps: []TestStep{
			{Name: "ask", Action: ActionAsk, Slot: 1, Expectations: Expectations{Dialogue: ptr("Ana."), Events: []string{}}},
			{Name: "pass", Action: ActionPass, Expectations: Expectations{
				Events:   []string{"encounter.decided", "encounter.started", "encounter.ready"},
				NPCIndex: ptr(1),
				Correct:  ptr(1),
			}},
			{Name: "dismiss", Action: ActionDismiss, Expectations: Expectations{
				Events: []string{"encounter.decided", "level.completed"},
				State:  ptr("level_complete"),
				Total:  ptr(2),
			}},
			{Name: "no next level", Action: ActionNext, ExpectError: true},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 4)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
	}
}

func TestRunSuite_ReportsMismatch(t *testing.T) {
	r := newTestRunner(t)

	suite := TestSuite{
		Name: "wrong",
		Steps: []TestStep{
			{Name: "wrong name", Action: ActionNone, Expectations: Expectations{CharacterName: ptr("Bob")}},
			{Name: "bogus", Action: "dance"},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong name")
	require.Len(t, result.Results, 2, "continue mode runs every step")
	assert.ErrorContains(t, result.Results[1].Error, "unknown action")

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_NoLevels(t *testing.T) {
	r := NewRunner(t.TempDir())
	_, err := r.RunSuite(context.Background(), TestSuite{Name: "empty"})
	assert.Error(t, err)
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("a.json", `{"name":"a","steps":[{"action":"pass"}]}`)
	write("b.json", `{"name":"b","start_level":1}`)
	write("inner.json", `{"name":"inner","cases":["b.json"]}`)
	write("all.json", `{"name":"all","cases":["a.json","inner.json"]}`)
	write("broken.json", `{"name":"broken","cases":["missing.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(filepath.Join(dir, "all.json"), dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "b", jobs[1].Name)
	assert.Equal(t, 1, jobs[1].Suite.StartLevel)

	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.Error(t, err)
}
