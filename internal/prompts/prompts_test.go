package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLibrary_SeedsDefaultCatalog(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)

	for _, variant := range []string{"analytical", "intuitive", "systematic", "creative", "verification"} {
		v, ok := lib.Active(StrategyTreeOfThought, variant)
		require.True(t, ok, "missing tree-of-thought variant %q", variant)
		assert.Contains(t, v.Template, "{problem}")
		assert.Equal(t, variant, v.Variant)
	}
	for _, variant := range []string{"math", "logic", "code", "general"} {
		v, ok := lib.Active(StrategySelfConsistency, variant)
		require.True(t, ok, "missing self-consistency variant %q", variant)
		assert.Contains(t, v.Template, "{problem}")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render("Solve this: {problem}\nCarefully.", "What is 2 + 2?")
	assert.Equal(t, "Solve this: What is 2 + 2?\nCarefully.", out)
	assert.NotContains(t, out, "{problem}")
}

func TestDeploy_VersionLineage(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)

	before, ok := lib.Active(StrategySelfConsistency, "math")
	require.True(t, ok)

	v2, err := lib.Deploy(StrategySelfConsistency, "math", "Improved: {problem}")
	require.NoError(t, err)
	assert.Greater(t, v2.ID, before.ID)
	assert.Equal(t, before.ID, v2.BackupOf)

	active, ok := lib.Active(StrategySelfConsistency, "math")
	require.True(t, ok)
	assert.Equal(t, v2.ID, active.ID)
	assert.Equal(t, "Improved: {problem}", active.Template)
}

func TestDeploy_RejectsEmptyTemplate(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)
	_, err = lib.Deploy(StrategySelfConsistency, "math", "   ")
	assert.Error(t, err)
}

func TestDeploy_IDsStrictlyIncrease(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)

	last := 0
	for i := 0; i < 3; i++ {
		v, err := lib.Deploy(StrategyTreeOfThought, "analytical", "Template v: {problem}")
		require.NoError(t, err)
		assert.Greater(t, v.ID, last)
		last = v.ID
	}
}

func TestRollback_RestoresBackupWithoutNewID(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)

	original, ok := lib.Active(StrategySelfConsistency, "logic")
	require.True(t, ok)

	_, err = lib.Deploy(StrategySelfConsistency, "logic", "Replacement: {problem}")
	require.NoError(t, err)
	historyLen := len(lib.History(StrategySelfConsistency))

	restored, err := lib.Rollback(StrategySelfConsistency, "logic")
	require.NoError(t, err)
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Template, restored.Template)

	active, _ := lib.Active(StrategySelfConsistency, "logic")
	assert.Equal(t, original.ID, active.ID)
	// Rollback reactivates; it never mints a version.
	assert.Len(t, lib.History(StrategySelfConsistency), historyLen)
}

func TestRollback_WithoutBackupFails(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)
	_, err = lib.Rollback(StrategySelfConsistency, "math")
	assert.Error(t, err)

	_, err = lib.Rollback(StrategySelfConsistency, "nonexistent")
	assert.Error(t, err)
}

func TestClone_IsolatesDeploys(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)
	clone := lib.Clone()

	_, err = clone.Deploy(StrategySelfConsistency, "math", "Staged: {problem}")
	require.NoError(t, err)

	live, _ := lib.Active(StrategySelfConsistency, "math")
	staged, _ := clone.Active(StrategySelfConsistency, "math")
	assert.NotEqual(t, live.Template, staged.Template)
	assert.True(t, strings.HasPrefix(staged.Template, "Staged:"))
}

func TestRestore_ReplaysPersistedLineage(t *testing.T) {
	t.Parallel()

	// First process: deploy an optimized template and capture the full
	// lineage as the store would persist it.
	first, err := NewLibrary()
	require.NoError(t, err)
	deployed, err := first.Deploy(StrategySelfConsistency, "math", "Optimized: {problem}")
	require.NoError(t, err)
	lineage := append(first.History(StrategyTreeOfThought), first.History(StrategySelfConsistency)...)

	// Second process: fresh seed, then replay.
	second, err := NewLibrary()
	require.NoError(t, err)
	second.Restore(lineage)

	active, ok := second.Active(StrategySelfConsistency, "math")
	require.True(t, ok)
	assert.Equal(t, deployed.ID, active.ID)
	assert.Equal(t, "Optimized: {problem}", active.Template)
	assert.NotZero(t, active.BackupOf)

	// The replayed backup chain makes rollback work after a restart.
	restored, err := second.Rollback(StrategySelfConsistency, "math")
	require.NoError(t, err)
	assert.Equal(t, active.BackupOf, restored.ID)

	// A later deploy must mint an ID above everything restored.
	next, err := second.Deploy(StrategySelfConsistency, "logic", "Next: {problem}")
	require.NoError(t, err)
	assert.Greater(t, next.ID, deployed.ID)
}

func TestRestore_SkipsKnownVersions(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)
	before := len(lib.History(StrategyTreeOfThought))

	// Re-reading the seeded defaults from storage must not duplicate
	// them or disturb the active set.
	lib.Restore(lib.History(StrategyTreeOfThought))
	assert.Len(t, lib.History(StrategyTreeOfThought), before)

	v, ok := lib.Active(StrategyTreeOfThought, "analytical")
	require.True(t, ok)
	assert.Equal(t, "analytical", v.Variant)
	assert.Zero(t, v.BackupOf)
}

func TestActiveSet(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary()
	require.NoError(t, err)

	tot := lib.ActiveSet(StrategyTreeOfThought)
	assert.Len(t, tot, 5)
	sc := lib.ActiveSet(StrategySelfConsistency)
	assert.Len(t, sc, 4)
}
