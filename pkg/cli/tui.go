package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of a Frame.
type Theme struct {
	Accent lipgloss.Color
	Dim    lipgloss.Color
	Alert  lipgloss.Color
}

// DefaultTheme is green on the terminal default.
var DefaultTheme = Theme{
	Accent: lipgloss.Color("#00ff9f"),
	Dim:    lipgloss.Color("#6e7681"),
	Alert:  lipgloss.Color("#ff5f5f"),
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Alert  lipgloss.Style
}

// NewStyles derives styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Border: lipgloss.NewStyle().Foreground(t.Accent),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Alert:  lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
	}
}

// Section is a labeled block of a Frame. Only its last lines are shown
// when it does not fit.
type Section struct {
	Label string
	Lines []string

	// Weight shares the free height between sections. Zero counts as 1.
	Weight int
}

// Frame is a bordered full-screen view.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Alert    string
	Sections []Section
	Help     string
}

// Render draws the frame in a width x height terminal.
func (f Frame) Render(width, height int) string {
	if width < 8 || height < 6 {
		return f.Title
	}
	border := f.Styles.Border
	inner := width - 4
	var out []string

	out = append(out, border.Render("╭"+strings.Repeat("─", width-2)+"╮"))

	head := f.Styles.Title.Render(clip(f.Title, inner/2)) + " " + f.Styles.Help.Render("["+f.Status+"]")
	if f.Alert != "" {
		head += " " + f.Styles.Alert.Render(f.Alert)
	}
	out = append(out, f.row(head, inner))

	// Fixed rows: top, head, one label per section, bottom, help.
	free := height - 4 - len(f.Sections)
	total := 0
	for _, s := range f.Sections {
		total += weight(s)
	}
	for i, s := range f.Sections {
		rows := 1
		if total > 0 {
			rows = max(free*weight(s)/total, 1)
		}
		if i == len(f.Sections)-1 {
			// The last section absorbs rounding.
			used := 0
			for _, p := range f.Sections[:i] {
				used += max(free*weight(p)/total, 1)
			}
			rows = max(free-used, 1)
		}
		out = append(out, f.section(s, rows, width, inner)...)
	}

	out = append(out, border.Render("╰"+strings.Repeat("─", width-2)+"╯"))
	out = append(out, f.Styles.Help.Render(clip(f.Help, width)))
	return strings.Join(out, "\n")
}

func weight(s Section) int {
	return max(s.Weight, 1)
}

func (f Frame) section(s Section, rows, width, inner int) []string {
	border := f.Styles.Border
	label := f.Styles.Label.Render(" " + s.Label + " ")
	fill := max(0, width-3-lipgloss.Width(label))
	out := []string{border.Render("├─") + label + border.Render(strings.Repeat("─", fill)+"┤")}

	lines := s.Lines
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for i := range rows {
		text := ""
		if i < len(lines) {
			text = clip(lines[i], inner)
		}
		out = append(out, f.row(text, inner))
	}
	return out
}

func (f Frame) row(text string, inner int) string {
	bar := f.Styles.Border.Render("│")
	pad := max(0, inner-lipgloss.Width(text))
	return bar + " " + text + strings.Repeat(" ", pad) + " " + bar
}

// clip shortens s to width cells, ending in an ellipsis when cut.
func clip(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return ""
	}
	var sb strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			break
		}
		sb.WriteRune(r)
		used += w
	}
	return sb.String() + "…"
}

// Wrap splits text into lines of at most width cells at spaces. Words
// longer than width are kept whole.
func Wrap(text string, width int) []string {
	var lines []string
	for para := range strings.SplitSeq(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case lipgloss.Width(line)+1+lipgloss.Width(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}
