package formatter

import (
	"fmt"
	"strings"

	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
)

const contractProgressBarWidth = 12

func FormatContractList(contracts []app.ContractView) string {
	headers := []string{"ID", "TITLE", "STATUS", "TOTAL", "START", "END"}
	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, []string{
			TruncID(c.ID),
			Bold(c.Title),
			ContractStatusPill(c.Status),
			Money(c.TotalAmount, c.Currency),
			c.StartDate,
			c.EndDate,
		})
	}
	return RenderTable(headers, rows, 3)
}

// FormatContractDetail renders the contract header, progress, the
// milestone/payment tree and the actions available to the viewer.
func FormatContractDetail(d *app.ContractDetail) string {
	c := d.Contract
	s := d.Summary

	var b strings.Builder
	b.WriteString(Header(c.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s  %s → %s  v%d\n",
		ContractStatusPill(c.Status), Money(c.TotalAmount, c.Currency), c.StartDate, c.EndDate, c.Version)
	if c.Description != "" {
		b.WriteString(Dim(c.Description) + "\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Progress  %s  %d/%d milestones\n",
		RenderProgress(s.ProgressPercentage, contractProgressBarWidth), s.CompletedMilestones, s.TotalMilestones)
	fmt.Fprintf(&b, "Paid      %s of %s\n", Money(s.PaidAmount, c.Currency), Money(c.TotalAmount, c.Currency))
	if !s.AmountValid {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("Milestones total %s; contract total is %s",
			Money(s.MilestoneTotal, c.Currency), Money(c.TotalAmount, c.Currency))) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(RenderTree(contractTree(d)))

	if len(d.AllowedActions) > 0 {
		names := make([]string, len(d.AllowedActions))
		for i, a := range d.AllowedActions {
			names[i] = string(a)
		}
		b.WriteString("\n" + Dim("You can: ") + strings.Join(names, ", ") + "\n")
	}
	return b.String()
}

func contractTree(d *app.ContractDetail) []TreeItem {
	byMilestone := make(map[string][]app.PaymentRequestView)
	for _, p := range d.PaymentRequests {
		byMilestone[p.MilestoneID] = append(byMilestone[p.MilestoneID], p)
	}

	items := []TreeItem{{Title: TruncID(d.Contract.ID) + " " + d.Contract.Title}}
	for i, m := range d.Milestones {
		items = append(items, TreeItem{
			Title:  fmt.Sprintf("%s %s", TruncID(m.ID), m.Title),
			Level:  1,
			IsLast: i == len(d.Milestones)-1,
			Pill:   MilestoneStatusPill(m.Status),
			Detail: Money(m.Amount, d.Contract.Currency),
		})
		requests := byMilestone[m.ID]
		for j, p := range requests {
			items = append(items, TreeItem{
				Title:  "payment " + TruncID(p.ID),
				Level:  2,
				IsLast: j == len(requests)-1,
				Pill:   PaymentStatusPill(p.Status),
				Detail: HumanDate(p.RequestedAt),
			})
		}
	}
	return items
}

func FormatMilestoneList(milestones []app.MilestoneView, currency string) string {
	headers := []string{"#", "ID", "TITLE", "STATUS", "AMOUNT", "DUE"}
	rows := make([][]string, 0, len(milestones))
	for _, m := range milestones {
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.OrderIndex),
			TruncID(m.ID),
			m.Title,
			MilestoneStatusPill(m.Status),
			Money(m.Amount, currency),
			OptionalString(m.DueDate),
		})
	}
	return RenderTable(headers, rows, 0, 4)
}

func FormatPaymentList(requests []app.PaymentRequestView) string {
	headers := []string{"ID", "MILESTONE", "STATUS", "AMOUNT", "REQUESTED", "NOTE"}
	rows := make([][]string, 0, len(requests))
	for _, p := range requests {
		note := p.RejectionReason
		if p.PaymentReference != "" {
			note = "ref " + p.PaymentReference
		}
		rows = append(rows, []string{
			TruncID(p.ID),
			TruncID(p.MilestoneID),
			PaymentStatusPill(p.Status),
			Money(p.Amount, p.Currency),
			HumanDate(p.RequestedAt),
			note,
		})
	}
	return RenderTable(headers, rows, 3)
}

// FormatMilestone is the one-line confirmation printed after a change.
func FormatMilestone(m *app.MilestoneView) string {
	return fmt.Sprintf("Milestone %s %q is %s (v%d)", TruncID(m.ID), m.Title, MilestoneStatusPill(m.Status), m.Version)
}

func FormatPayment(p *app.PaymentRequestView) string {
	return fmt.Sprintf("Payment request %s for %s is %s (v%d)",
		TruncID(p.ID), Money(p.Amount, p.Currency), PaymentStatusPill(p.Status), p.Version)
}

func FormatContract(c *app.ContractView) string {
	return fmt.Sprintf("Contract %s %q is %s (v%d)", TruncID(c.ID), c.Title, ContractStatusPill(c.Status), c.Version)
}

// FormatEvent renders a live update as a single log line.
func FormatEvent(e events.Event) string {
	ts := Dim(e.OccurredAt.Format("15:04:05"))
	what := string(e.Type)
	switch {
	case e.Contract != nil:
		what += " " + ContractStatusPill(e.Contract.Status) + " " + e.Contract.Title
	case e.Milestone != nil:
		what += " " + MilestoneStatusPill(e.Milestone.Status) + " " + e.Milestone.Title
	case e.PaymentRequest != nil:
		what += " " + PaymentStatusPill(e.PaymentRequest.Status) + " " + Money(e.PaymentRequest.Amount, e.PaymentRequest.Currency)
	case e.MilestoneID != "":
		what += " " + TruncID(e.MilestoneID)
	}
	return fmt.Sprintf("%s %s %s", ts, TruncID(e.ContractID), what)
}

// FormatError colours an error by kind for terminal display.
func FormatError(err error) string {
	style := StyleRed
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInvalidState:
		style = StyleYellow
	case domain.KindNetwork:
		style = StylePurple
	}
	return style.Render("Error: " + err.Error())
}
