package woot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────
// Boundary behaviors
// ─────────────────────────────────────────────────────────────

func TestGenerateInsOnEmptySequenceUsesSentinels(t *testing.T) {
	s := NewSite(1, nil)
	op, err := s.GenerateIns(1, "x")
	require.NoError(t, err)
	require.NotNil(t, op.Arg1)
	require.NotNil(t, op.Arg2)
	assert.Equal(t, CBID, op.Arg1.ID)
	assert.Equal(t, CEID, op.Arg2.ID)
	assert.Equal(t, "x", s.Text())
}

func TestGenerateDelOnEmptySequenceFails(t *testing.T) {
	s := NewSite(1, nil)
	_, err := s.GenerateDel(0)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestClockAdvancesStrictlyOnGeneration(t *testing.T) {
	s := NewSite(1, nil)
	before := s.Clock()
	_, err := s.GenerateIns(1, "a")
	require.NoError(t, err)
	assert.Greater(t, s.Clock(), before)
}

// ─────────────────────────────────────────────────────────────
// Scenario 1-3: single-site sequential edits
// ─────────────────────────────────────────────────────────────

func TestScenario1SingleSiteSequentialInsert(t *testing.T) {
	s := NewSite(1, nil)
	mustIns(t, s, 1, "a")
	mustIns(t, s, 2, "b")
	mustIns(t, s, 1, "b")
	mustIns(t, s, 3, "c")
	assert.Equal(t, "bacb", s.Text())
}

func TestScenario2InsertThenDelete(t *testing.T) {
	s := NewSite(1, nil)
	mustIns(t, s, 1, "a")
	mustIns(t, s, 2, "b")
	mustIns(t, s, 1, "b")
	mustIns(t, s, 3, "c")
	require.Equal(t, "bacb", s.Text())

	_, err := s.GenerateDel(4)
	require.NoError(t, err)
	_, err = s.GenerateDel(2)
	require.NoError(t, err)
	assert.Equal(t, "bc", s.Text())
}

func TestScenario3ReinsertAtTombstonedGap(t *testing.T) {
	s := NewSite(1, nil)
	mustIns(t, s, 1, "a")
	mustIns(t, s, 2, "b")
	mustIns(t, s, 1, "b")
	mustIns(t, s, 3, "c")
	_, err := s.GenerateDel(4)
	require.NoError(t, err)
	_, err = s.GenerateDel(2)
	require.NoError(t, err)
	require.Equal(t, "bc", s.Text())

	mustIns(t, s, 2, "a")
	assert.Equal(t, "bac", s.Text())
}

// ─────────────────────────────────────────────────────────────
// Scenario 4-6: concurrent edits across two sites
// ─────────────────────────────────────────────────────────────

func TestScenario4ConcurrentInsertSamePosition(t *testing.T) {
	s1 := NewSite(1, nil)
	s2 := NewSite(2, nil)

	opA, err := s1.GenerateIns(1, "a")
	require.NoError(t, err)
	opB, err := s2.GenerateIns(1, "b")
	require.NoError(t, err)

	_, err = s1.Execute(opB)
	require.NoError(t, err)
	_, err = s2.Execute(opA)
	require.NoError(t, err)

	assert.Equal(t, "ab", s1.Text())
	assert.Equal(t, s1.Text(), s2.Text())
}

func TestScenario5ConcurrentInsertInsideAnotherSite(t *testing.T) {
	s1 := NewSite(1, nil)
	s2 := NewSite(2, nil)

	opX, err := s1.GenerateIns(1, "x")
	require.NoError(t, err)
	require.Equal(t, "x", s1.Text())

	opY, err := s2.GenerateIns(1, "y")
	require.NoError(t, err)
	require.Equal(t, "y", s2.Text())

	_, err = s1.Execute(opY)
	require.NoError(t, err)
	_, err = s2.Execute(opX)
	require.NoError(t, err)

	assert.Equal(t, s1.Text(), s2.Text())
	assert.Len(t, s1.Text(), 2)
}

func TestScenario6DeleteThenInsertInterleave(t *testing.T) {
	s1 := NewSite(1, nil)
	s2 := NewSite(2, nil)

	opX, err := s1.GenerateIns(1, "x")
	require.NoError(t, err)
	_, err = s2.Execute(opX)
	require.NoError(t, err)
	require.Equal(t, "x", s1.Text())
	require.Equal(t, "x", s2.Text())

	opDel, err := s1.GenerateDel(1)
	require.NoError(t, err)

	opY, err := s2.GenerateIns(2, "y")
	require.NoError(t, err)

	_, err = s1.Execute(opY)
	require.NoError(t, err)
	_, err = s2.Execute(opDel)
	require.NoError(t, err)

	assert.Equal(t, "y", s1.Text())
	assert.Equal(t, "y", s2.Text())
}

// ─────────────────────────────────────────────────────────────
// Laws
// ─────────────────────────────────────────────────────────────

func TestIdempotenceOfIntegration(t *testing.T) {
	s1 := NewSite(1, nil)
	s2 := NewSite(2, nil)

	op, err := s1.GenerateIns(1, "a")
	require.NoError(t, err)

	_, err = s2.Execute(op)
	require.NoError(t, err)
	_, err = s2.Execute(op)
	require.NoError(t, err)

	assert.Equal(t, "a", s2.Text())
}

func TestIdempotenceOfDeletion(t *testing.T) {
	s1 := NewSite(1, nil)
	op, err := s1.GenerateIns(1, "a")
	require.NoError(t, err)

	delOp, err := s1.GenerateDel(1)
	require.NoError(t, err)

	s2 := NewSite(2, nil)
	_, err = s2.Execute(op)
	require.NoError(t, err)
	_, err = s2.Execute(delOp)
	require.NoError(t, err)
	_, err = s2.Execute(delOp)
	require.NoError(t, err)
	assert.Equal(t, "", s2.Text())
}

func TestCausalPreconditionQueuesAndRetries(t *testing.T) {
	s1 := NewSite(1, nil)
	opA, err := s1.GenerateIns(1, "a")
	require.NoError(t, err)
	opB, err := s1.GenerateIns(2, "b")
	require.NoError(t, err)
	require.Equal(t, "ab", s1.Text())

	s2 := NewSite(2, nil)
	// Deliver out of causal order: b depends on a's identifier as its
	// origin predecessor, but arrives first.
	_, err = s2.Execute(opB)
	assert.ErrorIs(t, err, ErrContextMissing)
	assert.Equal(t, "", s2.Text())

	_, err = s2.Execute(opA)
	require.NoError(t, err)

	assert.Equal(t, "ab", s2.Text())
}

func TestExecuteUnknownOperation(t *testing.T) {
	s := NewSite(1, nil)
	_, err := s.Execute(Operation{Op: "XYZ"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestExecuteMalformedInsert(t *testing.T) {
	s := NewSite(1, nil)
	_, err := s.Execute(Operation{Op: OpInsert, C: Character{ID: ID{1, 1}}})
	assert.ErrorIs(t, err, ErrMalformedOperation)
}

// ─────────────────────────────────────────────────────────────
// Invariants I1-I5
// ─────────────────────────────────────────────────────────────

func TestInvariantsHoldAfterMixedOperations(t *testing.T) {
	s := NewSite(1, nil)
	mustIns(t, s, 1, "a")
	mustIns(t, s, 2, "b")
	mustIns(t, s, 1, "c")
	_, err := s.GenerateDel(2)
	require.NoError(t, err)

	first, ok := s.seq.CharacterAt(0)
	require.True(t, ok)
	assert.True(t, first.Equal(CB)) // I1

	last, ok := s.seq.CharacterAt(s.seq.Len() - 1)
	require.True(t, ok)
	assert.True(t, last.Equal(CE)) // I1

	seen := make(map[ID]bool)
	for i := 0; i < s.seq.Len(); i++ {
		c, _ := s.seq.CharacterAt(i)
		assert.False(t, seen[c.ID], "duplicate identifier %+v", c.ID) // I2
		seen[c.ID] = true
	}
}

// ─────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────

func mustIns(t *testing.T, s *Site, p int, glyph string) Operation {
	t.Helper()
	op, err := s.GenerateIns(p, glyph)
	require.NoError(t, err)
	return op
}
