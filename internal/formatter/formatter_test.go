package formatter

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
	th "github.com/desertthunder/godctl/internal/testing"
	"github.com/desertthunder/godctl/internal/tracktable"
)

func fixtureExport() *Export {
	table := tracktable.New(log.New(io.Discard))
	table.Upsert([]models.TrackRow{
		{Path: "music/a.mp3", Name: "Alpha", DirName: "music", CurrentSeconds: 30, DurationSeconds: 185},
		{Path: "books/long.m4b", DirName: "books", DurationSeconds: 3661, TagID: "04:a2"},
		{Path: "music/b|c.mp3", DirName: "music", DurationSeconds: 60},
	})
	return FromTable(table, "127.0.0.1:1234")
}

func TestExporters(t *testing.T) {
	t.Run("FromTable Keeps First Seen Order", func(t *testing.T) {
		export := fixtureExport()
		if len(export.Groups) != 2 || export.Groups[0].DirName != "music" || export.Groups[1].DirName != "books" {
			t.Fatalf("unexpected groups: %+v", export.Groups)
		}
		if export.Len() != 3 {
			t.Errorf("expected 3 rows, got %d", export.Len())
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(fixtureExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		want := []string{
			"Group,Path,Name,Position,Duration,Tag",
			"music,music/a.mp3,Alpha,00:30,03:05,",
			"music,music/b|c.mp3,b|c,00:00,01:00,",
			"books,books/long.m4b,long,00:00,01:01:01,04:a2",
		}
		if len(lines) != len(want) {
			t.Fatalf("expected %d lines, got %d: %s", len(want), len(lines), data)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
			}
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(fixtureExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Tracks on 127.0.0.1:1234",
			"**Tracks**: 3",
			"## music",
			"| Alpha | 00:30 | 03:05 |  |",
			`| b\|c |`,
			"| long | 00:00 | 01:01:01 | 04:a2 |",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Index(output, "## music") > strings.Index(output, "## books") {
			t.Error("groups should appear in first-seen order")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(fixtureExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"Device: 127.0.0.1:1234", "Tracks: 3", "music/\n  1. Alpha [00:30/03:05]", "  1. long [00:00/01:01:01] #04:a2"} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("Empty Export", func(t *testing.T) {
		data, err := ExportToText(&Export{})
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "unknown device") {
			t.Errorf("expected unknown device, got %s", data)
		}
	})

	t.Run("Render Unknown Format", func(t *testing.T) {
		if _, err := Render(fixtureExport(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		got, err := WriteExport(fixtureExport(), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		th.AssertFileExists(t, got)
		if !strings.HasPrefix(th.MustReadFile(t, got), "Group,Path") {
			t.Error("expected CSV content")
		}
	})

	t.Run("Bad Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.md")
		if _, err := WriteExport(fixtureExport(), FormatMarkdown, path); err == nil {
			t.Error("expected error writing to a missing directory")
		}
	})
}

func TestHistoryToText(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ok := models.NewEnrollment("music/a.mp3", models.OutcomeSucceeded, "04:a2", start, start.Add(3*time.Second))
	ok.SetSequence(2)
	expired := models.NewEnrollment("books/c.mp3", models.OutcomeExpired, "", start, start.Add(10*time.Second))
	expired.SetSequence(1)

	data, err := HistoryToText([]*models.Enrollment{ok, expired})
	if err != nil {
		t.Fatalf("HistoryToText failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "OUTCOME") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "succeeded") || !strings.Contains(lines[1], "04:a2") || !strings.Contains(lines[1], "3s") {
		t.Errorf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[2], "expired") || !strings.Contains(lines[2], " - ") {
		t.Errorf("unexpected row %q", lines[2])
	}
}
