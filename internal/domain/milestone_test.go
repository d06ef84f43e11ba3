package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newMilestone(status MilestoneStatus) *Milestone {
	return &Milestone{
		ID:         "m1",
		ContractID: "c1",
		Title:      "Design",
		Amount:     dec("600.00"),
		Status:     status,
		Version:    1,
	}
}

func TestMilestoneValidate(t *testing.T) {
	m := newMilestone(MilestonePending)
	require.NoError(t, m.Validate())

	m.Amount = decimal.Zero
	assert.ErrorIs(t, m.Validate(), ErrValidation)

	m.Amount = dec("-5")
	assert.ErrorIs(t, m.Validate(), ErrValidation)

	m = newMilestone(MilestonePending)
	m.Title = "   "
	assert.ErrorIs(t, m.Validate(), ErrValidation)

	m = newMilestone(MilestonePending)
	m.OrderIndex = -1
	assert.ErrorIs(t, m.Validate(), ErrValidation)
}

func TestMilestone_ForwardPath(t *testing.T) {
	m := newMilestone(MilestonePending)
	require.NoError(t, m.Start(testNow))
	assert.Equal(t, MilestoneInProgress, m.Status)

	require.NoError(t, m.MarkComplete(testNow))
	assert.Equal(t, MilestoneCompleted, m.Status)
	require.NotNil(t, m.CompletedDate)
	assert.Equal(t, testNow, *m.CompletedDate)

	require.NoError(t, m.MarkPaid(testNow))
	assert.Equal(t, MilestonePaid, m.Status)
	require.NotNil(t, m.PaidDate)
}

func TestMilestone_NoSkips(t *testing.T) {
	pending := newMilestone(MilestonePending)
	assert.ErrorIs(t, pending.MarkComplete(testNow), ErrInvalidState)
	assert.ErrorIs(t, pending.MarkPaid(testNow), ErrInvalidState)
	assert.Equal(t, MilestonePending, pending.Status)

	inProgress := newMilestone(MilestoneInProgress)
	assert.ErrorIs(t, inProgress.MarkPaid(testNow), ErrInvalidState)
	assert.ErrorIs(t, inProgress.Start(testNow), ErrInvalidState)

	paid := newMilestone(MilestonePaid)
	assert.ErrorIs(t, paid.MarkComplete(testNow), ErrInvalidState)
	assert.ErrorIs(t, paid.MarkPaid(testNow), ErrInvalidState)
}

func TestMilestone_ApplyPatch(t *testing.T) {
	m := newMilestone(MilestonePending)
	title := "  Research  "
	amount := dec("650.50")
	require.NoError(t, m.ApplyPatch(MilestonePatch{Title: &title, Amount: &amount}, testNow))
	assert.Equal(t, "Research", m.Title)
	assert.True(t, amount.Equal(m.Amount))
	assert.Equal(t, testNow, m.UpdatedAt)
}

func TestMilestone_ApplyPatch_InvalidLeavesUnchanged(t *testing.T) {
	m := newMilestone(MilestonePending)
	zero := decimal.Zero
	err := m.ApplyPatch(MilestonePatch{Amount: &zero}, testNow)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, dec("600.00").Equal(m.Amount))
}

func TestMilestone_ApplyPatch_NotPending(t *testing.T) {
	for _, st := range []MilestoneStatus{MilestoneInProgress, MilestoneCompleted, MilestonePaid} {
		m := newMilestone(st)
		title := "x"
		assert.ErrorIs(t, m.ApplyPatch(MilestonePatch{Title: &title}, testNow), ErrInvalidState, "status=%s", st)
		assert.ErrorIs(t, m.CheckDeletable(), ErrInvalidState, "status=%s", st)
	}
	assert.NoError(t, newMilestone(MilestonePending).CheckDeletable())
}

func TestMilestone_CheckPayable(t *testing.T) {
	assert.NoError(t, newMilestone(MilestoneCompleted).CheckPayable())
	for _, st := range []MilestoneStatus{MilestonePending, MilestoneInProgress, MilestonePaid} {
		assert.ErrorIs(t, newMilestone(st).CheckPayable(), ErrConflict, "status=%s", st)
	}
}

func TestAllMilestonesPaid(t *testing.T) {
	assert.False(t, AllMilestonesPaid(nil))
	assert.True(t, AllMilestonesPaid([]*Milestone{newMilestone(MilestonePaid), newMilestone(MilestonePaid)}))
	assert.False(t, AllMilestonesPaid([]*Milestone{newMilestone(MilestonePaid), newMilestone(MilestoneCompleted)}))
}

func TestParseMilestoneStatus(t *testing.T) {
	s, err := ParseMilestoneStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, MilestoneInProgress, s)

	_, err = ParseMilestoneStatus("DONE")
	assert.ErrorIs(t, err, ErrValidation)
}
