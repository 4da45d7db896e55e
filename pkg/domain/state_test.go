package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewState(t *testing.T) {
	s := NewState("essay on rivers", 3)

	assert.Equal(t, "essay on rivers", s.Task)
	assert.Equal(t, 1, s.RevisionNumber)
	assert.Equal(t, 3, s.MaxRevisions)
	assert.Empty(t, s.Plan)
	assert.Empty(t, s.Draft)
	assert.Empty(t, s.Critique)
	assert.NotNil(t, s.Content)
	assert.Empty(t, s.Content)
}

func TestMerge_OverwritesPresentFields(t *testing.T) {
	base := NewState("task", 2)
	base.Plan = "old plan"
	base.Draft = "old draft"

	got := Merge(base, Update{
		Plan:           Ptr("new plan"),
		RevisionNumber: Ptr(2),
	})

	assert.Equal(t, "new plan", got.Plan)
	assert.Equal(t, 2, got.RevisionNumber)
	assert.Equal(t, "old draft", got.Draft, "absent fields must be left untouched")
	assert.Equal(t, "task", got.Task)
}

func TestMerge_AppendsContent(t *testing.T) {
	base := NewState("task", 2)
	base.Content = []string{"a"}

	got := Merge(base, Update{Content: []string{"b", "c"}})

	assert.Equal(t, []string{"a", "b", "c"}, got.Content)
	assert.Equal(t, []string{"a"}, base.Content, "base must not be modified")
}

func TestMerge_DoesNotAlias(t *testing.T) {
	base := NewState("task", 2)
	base.Content = make([]string, 1, 10)
	base.Content[0] = "a"
	delta := Update{Content: []string{"b"}}

	got := Merge(base, delta)
	got.Content[0] = "mutated"
	delta.Content[0] = "mutated"

	assert.Equal(t, "a", base.Content[0])
	assert.Equal(t, "b", got.Content[1])
	assert.Len(t, base.Content, 1)
}

func TestMerge_EmptyUpdateIsIdentity(t *testing.T) {
	base := NewState("task", 2)
	base.Content = []string{"x"}
	base.Critique = "needs more sources"

	assert.Equal(t, base, Merge(base, Update{}))
}

func TestMerge_ReappliedContentAppendsAgain(t *testing.T) {
	base := NewState("task", 2)
	delta := Update{Content: []string{"x"}, Draft: Ptr("d")}

	twice := Merge(Merge(base, delta), delta)
	doubled := Merge(base, Update{Content: []string{"x", "x"}, Draft: Ptr("d")})

	// Both append twice; the engine relies on at-most-once application per step index.
	assert.Equal(t, doubled, twice)
	assert.Len(t, twice.Content, 2)
}

func TestUpdate_Fields(t *testing.T) {
	u := Update{Draft: Ptr("d"), RevisionNumber: Ptr(2)}
	fs := u.Fields()

	assert.True(t, fs.Has(FieldDraft))
	assert.True(t, fs.Has(FieldRevisionNumber))
	assert.False(t, fs.Has(FieldContent))
	assert.Equal(t, "{draft,revision_number}", fs.String())
	assert.True(t, Update{}.IsEmpty())
	assert.True(t, Update{Content: []string{}}.IsEmpty())
}

func TestFieldSet_Without(t *testing.T) {
	declared := Fields(FieldDraft, FieldRevisionNumber)
	written := Fields(FieldDraft, FieldPlan)

	assert.Equal(t, Fields(FieldPlan), written.Without(declared))
}

func TestParseStepID(t *testing.T) {
	for _, id := range Steps() {
		got, err := ParseStepID(string(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	got, err := ParseStepID("__end__")
	require.NoError(t, err)
	assert.Equal(t, End, got)

	_, err = ParseStepID("publish")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.False(t, End.Valid())
}

func TestRoute(t *testing.T) {
	next, ok := Continue(StepReflect).Target()
	assert.True(t, ok)
	assert.Equal(t, StepReflect, next)

	_, ok = Terminate().Target()
	assert.False(t, ok)
	assert.True(t, Terminate().IsTerminal())
	assert.True(t, Continue(End).IsTerminal())
	assert.Equal(t, End, Route{}.Step())
}

func TestCheckpoint_Equivalent(t *testing.T) {
	a := Checkpoint{ThreadID: "t", StepIndex: 1, Step: StepPlanner, Next: StepResearchPlan, State: NewState("x", 1)}
	b := a.Clone()
	b.State.Content = nil

	assert.True(t, a.Equivalent(b), "nil and empty content are the same payload")

	b.State.Plan = "different"
	assert.False(t, a.Equivalent(b))
}

func TestMerge_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := NewState(rapid.String().Draw(t, "task"), rapid.IntRange(-1, 10).Draw(t, "max"))
		base.Content = rapid.SliceOf(rapid.String()).Draw(t, "content")

		var delta Update
		if rapid.Bool().Draw(t, "hasDraft") {
			delta.Draft = Ptr(rapid.String().Draw(t, "draft"))
		}
		if rapid.Bool().Draw(t, "hasRevision") {
			delta.RevisionNumber = Ptr(rapid.Int().Draw(t, "revision"))
		}
		delta.Content = rapid.SliceOf(rapid.String()).Draw(t, "delta")

		got := Merge(base, delta)

		// Content never shrinks and keeps its prefix.
		if len(got.Content) != len(base.Content)+len(delta.Content) {
			t.Fatalf("content length %d, want %d", len(got.Content), len(base.Content)+len(delta.Content))
		}
		for i := range base.Content {
			if got.Content[i] != base.Content[i] {
				t.Fatalf("content prefix changed at %d", i)
			}
		}

		// Any other present field is fully replaced; absent fields are untouched.
		if delta.Draft != nil && got.Draft != *delta.Draft {
			t.Fatalf("draft not replaced")
		}
		if delta.Draft == nil && got.Draft != base.Draft {
			t.Fatalf("draft changed without delta")
		}
		if delta.RevisionNumber != nil && got.RevisionNumber != *delta.RevisionNumber {
			t.Fatalf("revision not replaced")
		}
		if got.Task != base.Task || got.Plan != base.Plan || got.MaxRevisions != base.MaxRevisions {
			t.Fatalf("untouched fields changed")
		}
	})
}
