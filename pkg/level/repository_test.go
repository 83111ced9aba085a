package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Empty(t *testing.T) {
	r := NewRepository(testLogger())

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, -1, r.CurrentIndex())

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNoLevels)
	assert.ErrorIs(t, r.Advance(), ErrNoLevels)
	assert.ErrorIs(t, r.Retreat(), ErrNoLevels)
	assert.ErrorIs(t, r.JumpTo(0), ErrNoLevels)
	assert.Equal(t, -1, r.CurrentIndex())
	assert.Nil(t, r.CurrentNPCs())
}

func TestRepository_LoadResetsCursor(t *testing.T) {
	r := NewRepository(testLogger())
	r.Load(sampleLevels("a", "b", "c"))
	require.NoError(t, r.JumpTo(2))

	skipped := r.Load(sampleLevels("x", "y"))
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, 0, r.CurrentIndex())

	r.Load(nil)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, -1, r.CurrentIndex())
}

func TestRepository_LoadSkipsMalformed(t *testing.T) {
	levels := sampleLevels("a", "b", "c")
	levels[1].NPCs[0].Kind = "robot"

	r := NewRepository(testLogger())
	skipped := r.Load(levels)

	assert.Equal(t, 1, skipped)
	require.Equal(t, 2, r.Count())
	names := []string{}
	for _, l := range r.Levels() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestRepository_Navigation(t *testing.T) {
	r := NewRepository(testLogger())
	r.Load(sampleLevels("a", "b", "c"))

	assert.ErrorIs(t, r.Retreat(), ErrAtFirstLevel)
	assert.Equal(t, 0, r.CurrentIndex())

	require.NoError(t, r.Advance())
	require.NoError(t, r.Advance())
	assert.Equal(t, 2, r.CurrentIndex())

	assert.ErrorIs(t, r.Advance(), ErrAtLastLevel)
	assert.Equal(t, 2, r.CurrentIndex())

	cur, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "c", cur.Name)

	require.NoError(t, r.Retreat())
	assert.Equal(t, 1, r.CurrentIndex())
}

func TestRepository_JumpTo(t *testing.T) {
	r := NewRepository(testLogger())
	r.Load(sampleLevels("a", "b", "c"))
	require.NoError(t, r.JumpTo(1))

	assert.ErrorIs(t, r.JumpTo(5), ErrOutOfRange)
	assert.Equal(t, 1, r.CurrentIndex())
	assert.ErrorIs(t, r.JumpTo(-1), ErrOutOfRange)
	assert.Equal(t, 1, r.CurrentIndex())

	require.NoError(t, r.JumpTo(2))
	assert.Equal(t, 2, r.CurrentIndex())
}

func TestRepository_ReturnsCopies(t *testing.T) {
	r := NewRepository(testLogger())
	source := sampleLevels("a")
	r.Load(source)

	source[0].Name = "mutated after load"
	cur, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "a", cur.Name)

	cur.NPCs[0].QAPairs[0].Answer = "mutated copy"
	again, _ := r.Current()
	assert.Equal(t, "Here it is.", again.NPCs[0].QAPairs[0].Answer)
}

func TestRepository_NPCQueries(t *testing.T) {
	r := NewRepository(testLogger())
	r.Load(sampleLevels("a"))

	assert.Len(t, r.CurrentNPCs(), 2)
	realNPCs := r.RealNPCs()
	require.Len(t, realNPCs, 1)
	assert.Equal(t, 1, realNPCs[0].CharacterID)
	fakeNPCs := r.FakeNPCs()
	require.Len(t, fakeNPCs, 1)
	assert.Equal(t, 12, fakeNPCs[0].CharacterID)

	npc, err := r.NPCByCharacterID(12)
	require.NoError(t, err)
	assert.Equal(t, KindFake, npc.Kind)

	_, err = r.NPCByCharacterID(99)
	assert.ErrorIs(t, err, ErrNPCNotFound)
}
