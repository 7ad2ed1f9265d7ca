// package formatter provides functions to export the track table and enrollment history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/desertthunder/godctl/internal/timecode"
	"github.com/desertthunder/godctl/internal/tracktable"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "text"
)

// Export is a snapshot of the track table.
type Export struct {
	Device string
	Taken  time.Time
	Groups []Group
}

// Group is one directory of an [Export].
type Group struct {
	DirName string
	Rows    []models.TrackRow
}

// Len returns the number of rows across all groups.
func (e *Export) Len() int {
	n := 0
	for _, g := range e.Groups {
		n += len(g.Rows)
	}
	return n
}

// FromTable snapshots t, keeping group and row order.
func FromTable(t *tracktable.Table, device string) *Export {
	export := &Export{Device: device, Taken: time.Now()}
	for _, g := range t.Groups() {
		export.Groups = append(export.Groups, Group{DirName: g.DirName, Rows: t.GroupRows(g)})
	}
	return export
}

// Render encodes export in the named format.
func Render(export *Export, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "markdown":
		return ExportToMarkdown(export)
	case FormatText, "txt", "":
		return ExportToText(export)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// ExportToCSV converts an Export to CSV with columns: Group, Path, Name, Position, Duration, Tag
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Group", "Path", "Name", "Position", "Duration", "Tag"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, g := range export.Groups {
		for _, row := range g.Rows {
			record := []string{
				g.DirName,
				row.Path,
				row.DisplayName(),
				timecode.MustFormat(row.CurrentSeconds),
				timecode.MustFormat(row.DurationSeconds),
				row.TagID,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an Export to Markdown with one section per group
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Tracks on %s\n\n", orUnknown(export.Device))
	fmt.Fprintf(&buf, "**Tracks**: %d\n", export.Len())
	fmt.Fprintf(&buf, "**Groups**: %d\n\n", len(export.Groups))

	for _, g := range export.Groups {
		fmt.Fprintf(&buf, "## %s\n\n", g.DirName)
		buf.WriteString("| Name | Position | Duration | Tag |\n")
		buf.WriteString("|---|---|---|---|\n")
		for _, row := range g.Rows {
			fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n",
				escapeCell(row.DisplayName()),
				timecode.MustFormat(row.CurrentSeconds),
				timecode.MustFormat(row.DurationSeconds),
				escapeCell(row.TagID),
			)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Export to an indented plain text listing
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Device: %s\n", orUnknown(export.Device))
	fmt.Fprintf(&buf, "Tracks: %d\n\n", export.Len())

	for _, g := range export.Groups {
		fmt.Fprintf(&buf, "%s/\n", g.DirName)
		for i, row := range g.Rows {
			tag := ""
			if row.TagID != "" {
				tag = " #" + row.TagID
			}
			fmt.Fprintf(&buf, "  %d. %s [%s/%s]%s\n", i+1, row.DisplayName(),
				timecode.MustFormat(row.CurrentSeconds), timecode.MustFormat(row.DurationSeconds), tag)
		}
	}

	return buf.Bytes(), nil
}

// WriteExport renders export and writes it to path, defaulting to tracks.{format}.
func WriteExport(export *Export, format, path string) (string, error) {
	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		ext := format
		if ext == "" {
			ext = "txt"
		}
		path = "tracks." + ext
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// HistoryToText renders enrollments as an aligned table.
func HistoryToText(enrollments []*models.Enrollment) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "#\tSTARTED\tOUTCOME\tELAPSED\tTAG\tPATH")
	for _, e := range enrollments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Sequence(),
			e.StartedAt().Local().Format(time.DateTime),
			e.Outcome(),
			e.Elapsed().Round(time.Second),
			orDash(e.TagID()),
			e.TrackPath(),
		)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write history: %w", err)
	}
	return buf.Bytes(), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown device"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
