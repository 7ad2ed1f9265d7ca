package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/timecode"
	"github.com/desertthunder/godctl/internal/tracktable"
)

// tableLine is one selectable line of the track table: a group header or a visible row.
type tableLine struct {
	group *tracktable.Group
	open  bool
	row   models.TrackRow
}

func (l tableLine) isGroup() bool { return l.group != nil }

// rowIndex holds the paths materialized into the view, per directory, in the order
// the table handed them out.
type rowIndex struct {
	byDir map[string][]string
}

func newRowIndex() *rowIndex {
	return &rowIndex{byDir: make(map[string][]string)}
}

// attach takes the rows the table has not handed out yet and returns how many there were.
func (x *rowIndex) attach(t *tracktable.Table) int {
	rows := t.TakeUnattached()
	for _, row := range rows {
		x.byDir[row.DirName] = append(x.byDir[row.DirName], row.Path)
	}
	return len(rows)
}

// lines flattens the attached rows into visible lines, groups in first-seen order.
// Rows are read back from t so tags and visibility are current.
func (x *rowIndex) lines(t *tracktable.Table) []tableLine {
	var lines []tableLine
	for _, g := range t.Groups() {
		lines = append(lines, tableLine{group: g, open: t.Open(g)})
		for _, p := range x.byDir[g.DirName] {
			if row, ok := t.Row(p); ok && row.Visible {
				lines = append(lines, tableLine{row: row})
			}
		}
	}
	return lines
}

// render draws the line truncated to width. Learning marks the row of a pending enrollment.
func (l tableLine) render(width int, learning bool) string {
	var s string
	if l.isGroup() {
		marker := "▸"
		if l.open {
			marker = "▾"
		}
		s = fmt.Sprintf("%s %s (%d)", marker, l.group.DirName, l.group.Len())
	} else {
		s = fmt.Sprintf("    %s  %s/%s", l.row.DisplayName(),
			timecode.MustFormat(l.row.CurrentSeconds), timecode.MustFormat(l.row.DurationSeconds))
		if l.row.TagID != "" {
			s += "  #" + l.row.TagID
		}
		if learning {
			s += "  ◉"
		}
	}

	if width > 0 {
		s = ansi.Truncate(s, width, "…")
	}
	return s
}

// renderTable draws the header and lines, highlighting cursor.
func renderTable(lines []tableLine, cursor, width int, anyExpanded bool, learningPath string) string {
	var b strings.Builder

	header := "TRACKS"
	if anyExpanded {
		b.WriteString(styles.header.Render(header))
	} else {
		b.WriteString(styles.dim.Render(header))
	}
	b.WriteString("\n")

	if len(lines) == 0 {
		b.WriteString(styles.help.Render("  waiting for the device to send its track list"))
		return b.String()
	}

	for i, l := range lines {
		text := l.render(width, !l.isGroup() && l.row.Path == learningPath)
		if i == cursor {
			text = styles.selected.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
