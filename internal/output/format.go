// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasklink/internal/service"
	"tasklink/internal/viewmodel"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// timeFormat is used for task timestamps.
	timeFormat = "2006-01-02 15:04"
)

// FormatTask formats a task line.
// Format: "[x] {ID:>6}  {TITLE}\n"; completed tasks are marked with x.
func FormatTask(w io.Writer, task service.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %6s  %s\n", mark, task.ID, normalizeTitle(task.Title))
}

// FormatTaskDetail formats every field of a task.
func FormatTaskDetail(w io.Writer, task service.Task) {
	status := "pending"
	if task.Completed {
		status = "completed"
	}
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		fmt.Fprintf(w, "description: %s\n", *task.Description)
	}
	fmt.Fprintf(w, "status:      %s\n", status)
	if !task.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created:     %s\n", task.CreatedAt.Local().Format(timeFormat))
	}
	if !task.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "updated:     %s\n", task.UpdatedAt.Local().Format(timeFormat))
	}
}

// FormatHeader formats the section header for a filter.
func FormatHeader(w io.Writer, filter service.Filter) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s tasks\n", filter)
	fmt.Fprintln(w, ListSeparator)
}

// FormatSnapshot formats a loaded view-model page: header, tasks, counts.
func FormatSnapshot(w io.Writer, snap viewmodel.Snapshot) {
	FormatHeader(w, snap.Filter)
	for _, task := range snap.Tasks {
		FormatTask(w, task)
	}
	FormatCounts(w, snap)
}

// FormatCounts formats the page-local counts and the server total.
func FormatCounts(w io.Writer, snap viewmodel.Snapshot) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%d shown of %d, %d pending, %d completed\n",
		len(snap.Tasks), snap.Total, snap.PendingCount, snap.CompletedCount)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
