package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/muesli/termenv"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// UseColor switches ANSI styling on or off for all output.
func UseColor(enabled bool) {
	if enabled {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func ContractStatusPill(s domain.ContractStatus) string {
	switch s {
	case domain.ContractPending:
		return StyleBlue.Render("○ Pending")
	case domain.ContractActive:
		return StyleGreen.Render("● Active")
	case domain.ContractCompleted:
		return StyleDim.Render("✔ Completed")
	case domain.ContractCancelled:
		return StyleRed.Render("✖ Cancelled")
	default:
		return StyleDim.Render(string(s))
	}
}

func MilestoneStatusPill(s domain.MilestoneStatus) string {
	switch s {
	case domain.MilestonePending:
		return StyleBlue.Render("○ Pending")
	case domain.MilestoneInProgress:
		return StyleYellow.Render("▶ In Progress")
	case domain.MilestoneCompleted:
		return StyleGreen.Render("● Completed")
	case domain.MilestonePaid:
		return StyleDim.Render("✔ Paid")
	default:
		return StyleDim.Render(string(s))
	}
}

func PaymentStatusPill(s domain.PaymentRequestStatus) string {
	switch s {
	case domain.PaymentPending:
		return StyleYellow.Render("○ Pending")
	case domain.PaymentApproved:
		return StyleGreen.Render("● Approved")
	case domain.PaymentPaid:
		return StyleDim.Render("✔ Paid")
	case domain.PaymentRejected:
		return StyleRed.Render("✖ Rejected")
	case domain.PaymentWithdrawn:
		return StyleDim.Render("⊘ Withdrawn")
	default:
		return StyleDim.Render(string(s))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
