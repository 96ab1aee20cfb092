package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pipedream/notes"
	"pipedream/theme"
)

// NoneLit means no chanter button is highlighted
const NoneLit = notes.Symbol(255)

// RenderButton renders one note button: its two-line label over the key
// that plays it
func RenderButton(th *theme.Theme, s notes.Symbol, lit bool) string {
	i := int(s)
	color := th.NoteColor(i, len(notes.All))
	style := lipgloss.NewStyle().
		Width(5).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color)
	if lit {
		style = style.
			Foreground(th.BG()).
			Background(th.Active()).
			BorderForeground(th.Active())
	}
	label := notes.ShortLabel(s)
	if !strings.Contains(label, "\n") {
		label = "\n" + label
	}
	label += "\n" + strings.ToUpper(string(notes.Letter(s)))
	return style.Render(label)
}

// RenderChanter renders all nine buttons low to high, lighting one
func RenderChanter(th *theme.Theme, lit notes.Symbol) string {
	buttons := make([]string, 0, len(notes.All))
	for _, s := range notes.All {
		buttons = append(buttons, RenderButton(th, s, s == lit))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

// RenderTune renders the tune as a wrapped strip of note names. cursor is
// the play position (negative = none) and sel the edit selection
// (negative = none).
func RenderTune(th *theme.Theme, seq notes.Sequence, cursor, sel, width int) string {
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	if len(seq) == 0 {
		return dim.Render("No notes yet. Press a s d f g h j k l to add some.")
	}

	base := lipgloss.NewStyle().Foreground(th.FG())
	selStyle := lipgloss.NewStyle().Underline(true)
	playStyle := lipgloss.NewStyle().Foreground(th.BG()).Background(th.Cursor())

	cell := 4
	perLine := max(1, width/cell)

	var lines []string
	var line strings.Builder
	for i, s := range seq {
		text := notes.Key(s)
		style := base.Foreground(th.NoteColor(int(s), len(notes.All)))
		if i == sel {
			style = style.Inherit(selStyle)
		}
		if i == cursor {
			text = string(th.Symbols.Playhead) + text
			style = playStyle
		}
		line.WriteString(lipgloss.NewStyle().Width(cell).Render(style.Render(text)))
		if (i+1)%perLine == 0 {
			lines = append(lines, line.String())
			line.Reset()
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
