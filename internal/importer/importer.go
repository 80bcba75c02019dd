// Package importer copies open tasks from another task provider into the
// task-storage service.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"tasklink/internal/service"
)

// List is a task list in the source provider.
type List struct {
	ID        string
	Title     string
	IsDefault bool
}

// Item is an open task in the source provider.
type Item struct {
	ID    string
	Title string
	Notes string
}

// Source is a provider tasks can be imported from.
type Source interface {
	// DefaultList returns the user's default list.
	DefaultList(ctx context.Context) (List, error)

	// ResolveList finds a list by name (case-insensitive, trimmed).
	ResolveList(ctx context.Context, name string) (List, error)

	// ListOpenTasks returns every open task of a list, in provider order.
	ListOpenTasks(ctx context.Context, listID string) ([]Item, error)
}

// Result summarizes an import.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Importer copies items from a Source into a service.Service.
type Importer struct {
	src    Source
	dst    service.Service
	logger *slog.Logger
}

// New creates an Importer.
func New(src Source, dst service.Service, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{src: src, dst: dst, logger: logger}
}

// Run imports the open tasks of listName (or the default list when empty)
// for ownerID. Items without a title are skipped; oversized fields are
// truncated to the storage limits. An unauthorized failure stops the run.
func (im *Importer) Run(ctx context.Context, ownerID, listName string) (Result, error) {
	var list List
	var err error
	if strings.TrimSpace(listName) != "" {
		list, err = im.src.ResolveList(ctx, listName)
	} else {
		list, err = im.src.DefaultList(ctx)
	}
	if err != nil {
		return Result{}, err
	}

	items, err := im.src.ListOpenTasks(ctx, list.ID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, item := range items {
		in, ok := toCreateInput(item)
		if !ok {
			res.Skipped++
			continue
		}
		if _, err := im.dst.Create(ctx, ownerID, in); err != nil {
			if service.KindOf(err) == service.KindUnauthorized {
				return res, err
			}
			im.logger.Warn("Failed to import task",
				slog.String("source_id", item.ID), slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		res.Imported++
	}
	if res.Failed > 0 {
		return res, fmt.Errorf("%d of %d tasks failed to import", res.Failed, len(items))
	}
	return res, nil
}

func toCreateInput(item Item) (service.CreateInput, bool) {
	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" {
		return service.CreateInput{}, false
	}
	in := service.CreateInput{Title: truncate(title, service.MaxTitleLen)}
	if notes := strings.TrimSpace(item.Notes); notes != "" {
		in.Description = service.String(truncate(notes, service.MaxDescriptionLen))
	}
	return in, true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
