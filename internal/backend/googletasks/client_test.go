package googletasks_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"tasklink/internal/backend/googletasks"
	"tasklink/internal/importer"
)

func newClient(t *testing.T, h http.HandlerFunc) *googletasks.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := googletasks.NewWithHTTPClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func fakeTasksAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/users/@me/lists/@default"):
		fmt.Fprint(w, `{"id":"L0","title":"My Tasks"}`)
	case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
		fmt.Fprint(w, `{"items":[{"id":"L0","title":"My Tasks"},{"id":"L1","title":"Work"},{"id":"L2","title":"Home"},{"id":"L3","title":" home "}]}`)
	case strings.HasSuffix(r.URL.Path, "/lists/L1/tasks"):
		if r.URL.Query().Get("showCompleted") != "false" {
			http.Error(w, `{"error":{"code":400,"message":"expected showCompleted=false"}}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"t1","title":"Write report","notes":"by friday"},{"id":"t2","title":"Review"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Not Found"}}`)
	}
}

func TestDefaultList(t *testing.T) {
	c := newClient(t, fakeTasksAPI)

	list, err := c.DefaultList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, importer.List{ID: googletasks.DefaultListID, Title: "My Tasks", IsDefault: true}, list)
}

func TestResolveList(t *testing.T) {
	c := newClient(t, fakeTasksAPI)
	ctx := context.Background()

	list, err := c.ResolveList(ctx, "  WORK ")
	require.NoError(t, err)
	assert.Equal(t, "L1", list.ID)

	_, err = c.ResolveList(ctx, "home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous list name")

	_, err = c.ResolveList(ctx, "Garden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list not found")
}

func TestListOpenTasks(t *testing.T) {
	c := newClient(t, fakeTasksAPI)

	items, err := c.ListOpenTasks(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, []importer.Item{
		{ID: "t1", Title: "Write report", Notes: "by friday"},
		{ID: "t2", Title: "Review"},
	}, items)
}

func TestListOpenTasks_NotFound(t *testing.T) {
	c := newClient(t, fakeTasksAPI)

	_, err := c.ListOpenTasks(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())
}

func TestExpiredGoogleToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	_, err := c.DefaultList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasklink login")
}
