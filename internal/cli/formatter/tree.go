package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem is one line of a tree. Level 0 is the root.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	Pill   string
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders items as an indented tree with box-drawing connectors.
// Status pills and detail badges are aligned in columns to the right.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	contents := make([]string, len(items))
	maxContent, maxPill := 0, 0
	for idx, item := range items {
		var prefix string
		if item.Level > 0 {
			prefix = strings.Repeat(treePipe, item.Level-1)
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}
		title := item.Title
		if item.Level == 0 {
			title = Bold(title)
		}
		contents[idx] = StyleDim.Render(prefix) + title
		if w := lipgloss.Width(contents[idx]); w > maxContent {
			maxContent = w
		}
		if w := lipgloss.Width(item.Pill); w > maxPill {
			maxPill = w
		}
	}

	var b strings.Builder
	for idx, item := range items {
		line := contents[idx]
		if item.Pill != "" || item.Detail != "" {
			line += strings.Repeat(" ", maxContent-lipgloss.Width(line)+2) + item.Pill
		}
		if item.Detail != "" {
			line += strings.Repeat(" ", maxPill-lipgloss.Width(item.Pill)+2) + StyleBlue.Render("[ "+item.Detail+" ]")
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}
