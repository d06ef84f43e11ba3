package cli

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
)

// freelanceHuhTheme matches the formatter palette.
func freelanceHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// rejectReasonForm asks for the reason a payment request is refused.
func rejectReasonForm(value *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Rejection reason").
				Description("The freelancer sees this note.").
				Value(value).
				Validate(domain.ValidateRejectReason),
		),
	).WithTheme(freelanceHuhTheme()).WithShowHelp(false)
}

// promptRejectReason fills an empty reason interactively. Off-terminal the
// reason is returned unchanged so validation reports it.
func promptRejectReason(app *App, reason string) (string, error) {
	if strings.TrimSpace(reason) != "" || app.IsTerminal == nil || !app.IsTerminal() {
		return reason, nil
	}
	if err := rejectReasonForm(&reason).Run(); err != nil {
		return "", err
	}
	return reason, nil
}
