package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed above a view.
type Header struct {
	Title  string            // e.g., "SETTINGS"
	Source string            // e.g., "/var/lib/cointhing" or "ws://10.0.0.5:8480/link"
	Params map[string]string // e.g., {"Device": "cointhing-desk"}
	Width  int               // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, source string, params map[string]string) *Header {
	return &Header{
		Title:  title,
		Source: source,
		Params: params,
		Width:  GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	sourceLine := HeaderCommandStyle.Render(h.Source)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, sourceLine)

	content := topSection
	if len(h.Params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		divider := "  " + RenderHorizontalDivider(dividerWidth, "─")

		keys := make([]string, 0, len(h.Params))
		for k := range h.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		paramLines := make([]string, 0, len(keys))
		for _, key := range keys {
			paramLines = append(paramLines,
				HeaderParamKeyStyle.Render(key+":")+" "+HeaderParamValueStyle.Render(h.Params[key]))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, topSection, divider, strings.Join(paramLines, "\n"))
	}

	return HeaderBorderStyle(width).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
