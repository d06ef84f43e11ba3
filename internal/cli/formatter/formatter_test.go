package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ansiPattern matches ANSI escape sequences so assertions are terminal-independent.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRenderTable_RightAlignsAmounts(t *testing.T) {
	out := stripANSI(RenderTable(
		[]string{"TITLE", "AMOUNT"},
		[][]string{{"Design", "600.00"}, {"Build", "1400.00"}},
		1,
	))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Design   600.00", lines[2])
	assert.Equal(t, "Build   1400.00", lines[3])
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil))
}

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		pct  string
		want string
	}{
		{"0", "[░░░░░░░░░░]   0%"},
		{"50", "[█████░░░░░]  50%"},
		{"100", "[██████████] 100%"},
		{"150", "[██████████] 100%"},
		{"-5", "[░░░░░░░░░░]   0%"},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(RenderProgress(decimal.RequireFromString(tt.pct), 10)))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "600.00 USD", Money(decimal.RequireFromString("600"), "USD"))
	assert.Equal(t, "0.50", Money(decimal.RequireFromString("0.5"), ""))
}

func TestHumanDateFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today", HumanDateFrom(now.Add(-time.Hour), now))
	assert.Equal(t, "Yesterday", HumanDateFrom(now.AddDate(0, 0, -1), now))
	assert.Equal(t, "Sep 30, 2022", HumanDateFrom(time.Date(2022, 9, 30, 0, 0, 0, 0, time.UTC), now))
}

func TestRenderTree(t *testing.T) {
	out := stripANSI(RenderTree([]TreeItem{
		{Title: "Website"},
		{Title: "Design", Level: 1, Pill: "done", Detail: "600.00"},
		{Title: "payment", Level: 2, IsLast: true, Pill: "paid"},
		{Title: "Build", Level: 1, IsLast: true, Pill: "pending", Detail: "400.00"},
	}))
	assert.Equal(t, ""+
		"Website\n"+
		"├─ Design      done     [ 600.00 ]\n"+
		"│  └─ payment  paid\n"+
		"└─ Build       pending  [ 400.00 ]\n", out)
}

func TestFormatContractDetail(t *testing.T) {
	c := testutil.NewTestContract("Website", testutil.WithContractStatus(domain.ContractActive))
	m1 := testutil.NewTestMilestone(c.ID, "Design", "600", testutil.WithMilestoneStatus(domain.MilestonePaid))
	m2 := testutil.NewTestMilestone(c.ID, "Build", "400", testutil.WithOrderIndex(1))
	p := testutil.NewTestPaymentRequest(c, m1)
	p.Status = domain.PaymentPaid

	ms := []*domain.Milestone{m1, m2}
	d := &app.ContractDetail{
		Contract:        app.NewContractView(c),
		Milestones:      app.NewMilestoneViews(ms),
		PaymentRequests: app.NewPaymentRequestViews([]*domain.PaymentRequest{p}),
		Summary:         app.NewSummaryView(domain.Summarize(c, ms)),
		AllowedActions:  []domain.Action{domain.ActionAddMilestone},
	}

	out := stripANSI(FormatContractDetail(d))
	assert.Contains(t, out, "WEBSITE")
	assert.Contains(t, out, "● Active")
	assert.Contains(t, out, "1/2 milestones")
	assert.Contains(t, out, "Paid      600.00 USD of 1000.00 USD")
	assert.Contains(t, out, "✔ Paid")
	assert.Contains(t, out, "○ Pending")
	assert.Contains(t, out, "payment "+p.ID[:8])
	assert.Contains(t, out, "You can: add_milestone")
	assert.NotContains(t, out, "Milestones total")
}

func TestFormatContractDetail_FlagsUnbalancedMilestones(t *testing.T) {
	c := testutil.NewTestContract("Website")
	ms := []*domain.Milestone{testutil.NewTestMilestone(c.ID, "Design", "600")}
	d := &app.ContractDetail{
		Contract:   app.NewContractView(c),
		Milestones: app.NewMilestoneViews(ms),
		Summary:    app.NewSummaryView(domain.Summarize(c, ms)),
	}
	out := stripANSI(FormatContractDetail(d))
	assert.Contains(t, out, "Milestones total 600.00 USD; contract total is 1000.00 USD")
	assert.NotContains(t, out, "You can:")
}

func TestFormatEvent(t *testing.T) {
	c := testutil.NewTestContract("Website")
	m := testutil.NewTestMilestone(c.ID, "Design", "600")
	out := stripANSI(FormatEvent(events.ForMilestone(events.MilestoneUpdated, c, m, testutil.Client, testutil.Now())))
	assert.Contains(t, out, "milestone.updated")
	assert.Contains(t, out, "Design")
	assert.Contains(t, out, c.ID[:8])
}

func TestFormatError(t *testing.T) {
	err := domain.Errorf(domain.ErrValidation, "reject reason is required")
	assert.Equal(t, "Error: validation error: reject reason is required", stripANSI(FormatError(err)))
}
