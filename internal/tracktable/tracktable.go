// Package tracktable keeps the device's track list as directory groups that
// expand and collapse by path prefix.
//
// Rows are keyed by full path and inserted at most once. Re-delivered rows
// are ignored even when their durations changed. Groups appear in first-seen
// order and start collapsed.
//
// A Table is not safe for concurrent use.
package tracktable

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
)

// Group is the set of rows sharing a directory.
type Group struct {
	DirName  string
	Expanded bool
	paths    []string
}

// Len returns the number of rows directly in the group.
func (g *Group) Len() int { return len(g.paths) }

// Table holds rows and groups.
type Table struct {
	logger *log.Logger
	groups []*Group
	byDir  map[string]*Group
	rows   map[string]*models.TrackRow
}

// New creates an empty table.
func New(logger *log.Logger) *Table {
	return &Table{
		logger: logger,
		byDir:  make(map[string]*Group),
		rows:   make(map[string]*models.TrackRow),
	}
}

// Upsert inserts rows whose path is not yet known and returns how many were added.
//
// Rows missing a path or a directory are skipped with a warning.
func (t *Table) Upsert(rows []models.TrackRow) int {
	inserted := 0
	for _, row := range rows {
		if row.Path == "" || row.DirName == "" {
			t.logger.Warn("skipping malformed track row", "path", row.Path, "dirname", row.DirName)
			continue
		}
		if _, ok := t.rows[row.Path]; ok {
			continue
		}

		group, ok := t.byDir[row.DirName]
		if !ok {
			group = &Group{DirName: row.DirName}
			t.byDir[row.DirName] = group
			t.groups = append(t.groups, group)
		}

		r := row
		r.Visible = t.expandedFor(r.DirName)
		r.Attached = false
		t.rows[r.Path] = &r
		group.paths = append(group.paths, r.Path)
		inserted++
	}
	return inserted
}

// expandedFor reports whether any expanded group's name is a prefix of dirName.
func (t *Table) expandedFor(dirName string) bool {
	for _, g := range t.groups {
		if g.Expanded && strings.HasPrefix(dirName, g.DirName) {
			return true
		}
	}
	return false
}

// Open reports whether g's rows are shown, either because g is expanded or
// because a group whose name prefixes it is.
func (t *Table) Open(g *Group) bool {
	return t.expandedFor(g.DirName)
}

// ToggleGroup flips the group's expanded flag and recomputes visibility of every
// row whose directory starts with dirName, so nested directories follow their
// parent unless they are expanded themselves. It returns false for an unknown group.
func (t *Table) ToggleGroup(dirName string) bool {
	group, ok := t.byDir[dirName]
	if !ok {
		return false
	}
	group.Expanded = !group.Expanded

	for _, row := range t.rows {
		if strings.HasPrefix(row.DirName, dirName) {
			row.Visible = t.expandedFor(row.DirName)
		}
	}
	t.logger.Debug("toggled group", "dirname", dirName, "expanded", group.Expanded)
	return true
}

// IsAnyGroupExpanded reports whether at least one group is expanded. The table header dims when it is false.
func (t *Table) IsAnyGroupExpanded() bool {
	for _, g := range t.groups {
		if g.Expanded {
			return true
		}
	}
	return false
}

// SetTag records the tag associated with path. It returns false for an unknown path.
func (t *Table) SetTag(path, tag string) bool {
	row, ok := t.rows[path]
	if !ok {
		return false
	}
	row.TagID = tag
	return true
}

// Groups returns the groups in first-seen order.
func (t *Table) Groups() []*Group {
	return t.groups
}

// Rows returns copies of every row, grouped in first-seen order and in insertion order within a group.
func (t *Table) Rows() []models.TrackRow {
	out := make([]models.TrackRow, 0, len(t.rows))
	for _, g := range t.groups {
		out = append(out, t.GroupRows(g)...)
	}
	return out
}

// GroupRows returns copies of the rows directly in g.
func (t *Table) GroupRows(g *Group) []models.TrackRow {
	out := make([]models.TrackRow, 0, len(g.paths))
	for _, p := range g.paths {
		out = append(out, *t.rows[p])
	}
	return out
}

// Row returns a copy of the row at path.
func (t *Table) Row(path string) (models.TrackRow, bool) {
	row, ok := t.rows[path]
	if !ok {
		return models.TrackRow{}, false
	}
	return *row, true
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// TakeUnattached returns rows not yet handed to the view, in table order, and marks them attached.
func (t *Table) TakeUnattached() []models.TrackRow {
	var out []models.TrackRow
	for _, g := range t.groups {
		for _, p := range g.paths {
			row := t.rows[p]
			if row.Attached {
				continue
			}
			row.Attached = true
			out = append(out, *row)
		}
	}
	return out
}
