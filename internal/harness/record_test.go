package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("inv-1", "502 errors", 5)
	assert.Equal(t, "inv-1", rec.ID)
	assert.Equal(t, "502 errors", rec.Subject)
	assert.Equal(t, 0, rec.Iteration)
	assert.Equal(t, 5, rec.IterationLimit)
	assert.Equal(t, StatusInvestigating, rec.Status)
	assert.NotNil(t, rec.Hypotheses)
	assert.NotNil(t, rec.Findings)
	assert.NotNil(t, rec.Invocations)
	assert.Nil(t, rec.ConcludedAt)
}

func TestRecord_RecentWindows(t *testing.T) {
	rec := NewRecord("inv-1", "s", 5)
	for i := 0; i < 5; i++ {
		rec.appendFindings([]Finding{{Text: string(rune('a' + i))}})
		rec.appendHypotheses([]Hypothesis{{Text: string(rune('a' + i))}})
	}

	recent := rec.RecentFindings(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Text)
	assert.Equal(t, "e", recent[2].Text)

	assert.Len(t, rec.RecentFindings(10), 5, "window larger than history returns everything")
	assert.Len(t, rec.RecentHypotheses(3), 3)
}

func TestRecord_RecentInvocationsSkipsFailed(t *testing.T) {
	rec := NewRecord("inv-1", "s", 5)
	rec.appendInvocation(ToolInvocation{Tool: "a"})
	rec.appendInvocation(ToolInvocation{Tool: "b", Failed: true})
	rec.appendInvocation(ToolInvocation{Tool: "c"})
	rec.appendInvocation(ToolInvocation{Tool: "d", Failed: true})
	rec.appendInvocation(ToolInvocation{Tool: "e"})

	recent := rec.RecentInvocations(4)
	require.Len(t, recent, 3, "failed calls never feed downstream analysis")
	assert.Equal(t, "a", recent[0].Tool, "chronological order is preserved")
	assert.Equal(t, "c", recent[1].Tool)
	assert.Equal(t, "e", recent[2].Tool)

	capped := rec.RecentInvocations(2)
	require.Len(t, capped, 2)
	assert.Equal(t, "c", capped[0].Tool)
	assert.Equal(t, "e", capped[1].Tool)
}

func TestRecord_Snapshot(t *testing.T) {
	rec := NewRecord("inv-1", "s", 5)
	rec.appendFindings([]Finding{{Text: "f1"}})
	rec.Resolution = &Resolution{Action: "rollback"}
	now := time.Now()
	rec.ConcludedAt = &now

	snap := rec.Snapshot()
	require.Equal(t, rec.ID, snap.ID)

	// Mutating the original must not leak into the snapshot.
	rec.appendFindings([]Finding{{Text: "f2"}})
	rec.Resolution.Action = "changed"

	assert.Len(t, snap.Findings, 1)
	assert.Equal(t, "rollback", snap.Resolution.Action)
	assert.NotSame(t, rec.Resolution, snap.Resolution)
	assert.NotSame(t, rec.ConcludedAt, snap.ConcludedAt)
}
