package importer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklink/internal/importer"
	"tasklink/internal/service"
	"tasklink/internal/testutil"
)

type fakeSource struct {
	lists    []importer.List
	items    map[string][]importer.Item
	listsErr error
}

func (s *fakeSource) DefaultList(ctx context.Context) (importer.List, error) {
	for _, l := range s.lists {
		if l.IsDefault {
			return l, nil
		}
	}
	return importer.List{}, errors.New("no default list")
}

func (s *fakeSource) ResolveList(ctx context.Context, name string) (importer.List, error) {
	if s.listsErr != nil {
		return importer.List{}, s.listsErr
	}
	for _, l := range s.lists {
		if strings.EqualFold(l.Title, strings.TrimSpace(name)) {
			return l, nil
		}
	}
	return importer.List{}, errors.New("list not found: " + name)
}

func (s *fakeSource) ListOpenTasks(ctx context.Context, listID string) ([]importer.Item, error) {
	return s.items[listID], nil
}

func newSource() *fakeSource {
	return &fakeSource{
		lists: []importer.List{
			{ID: "@default", Title: "My Tasks", IsDefault: true},
			{ID: "shop", Title: "Shopping"},
		},
		items: map[string][]importer.Item{
			"@default": {
				{ID: "g1", Title: "Write report", Notes: "by friday"},
				{ID: "g2", Title: "   "},
				{ID: "g3", Title: "Call\nmom"},
			},
			"shop": {
				{ID: "g4", Title: "Milk"},
			},
		},
	}
}

func TestRun_DefaultList(t *testing.T) {
	svc := testutil.NewFakeService()
	res, err := importer.New(newSource(), svc, nil).Run(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, importer.Result{Imported: 2, Skipped: 1}, res)

	tasks := svc.Tasks("u1")
	require.Len(t, tasks, 2)
	assert.Equal(t, "Write report", tasks[0].Title)
	require.NotNil(t, tasks[0].Description)
	assert.Equal(t, "by friday", *tasks[0].Description)
	assert.Equal(t, "Call mom", tasks[1].Title)
	assert.Nil(t, tasks[1].Description)
}

func TestRun_NamedList(t *testing.T) {
	svc := testutil.NewFakeService()
	res, err := importer.New(newSource(), svc, nil).Run(context.Background(), "u1", " shopping ")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, "Milk", svc.Tasks("u1")[0].Title)
}

func TestRun_UnknownList(t *testing.T) {
	svc := testutil.NewFakeService()
	_, err := importer.New(newSource(), svc, nil).Run(context.Background(), "u1", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list not found")
	assert.Empty(t, svc.Tasks("u1"))
}

func TestRun_TruncatesLongFields(t *testing.T) {
	src := newSource()
	src.items["@default"] = []importer.Item{{
		ID:    "g1",
		Title: strings.Repeat("t", service.MaxTitleLen+50),
		Notes: strings.Repeat("n", service.MaxDescriptionLen+50),
	}}
	svc := testutil.NewFakeService()

	res, err := importer.New(src, svc, nil).Run(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	task := svc.Tasks("u1")[0]
	assert.Len(t, task.Title, service.MaxTitleLen)
	assert.Len(t, *task.Description, service.MaxDescriptionLen)
}

func TestRun_StopsWhenUnauthorized(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = service.Errorf(service.KindUnauthorized, "credential expired")

	res, err := importer.New(newSource(), svc, nil).Run(context.Background(), "u1", "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 0, res.Failed)
}

func TestRun_CountsFailures(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = &service.Error{Kind: service.KindRequestFailed, Status: 500}

	res, err := importer.New(newSource(), svc, nil).Run(context.Background(), "u1", "")
	require.Error(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Skipped)
}
