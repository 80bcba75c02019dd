package taskapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"tasklink/internal/backend/taskapi"
	"tasklink/internal/credential"
	"tasklink/internal/metrics"
	"tasklink/internal/service"
	"tasklink/internal/session"
	"tasklink/internal/testutil"
)

const secret = "test-secret"

var (
	alice = session.Identity{UserID: "u-alice", Email: "alice@example.com"}
	bob   = session.Identity{UserID: "u-bob", Email: "bob@example.com"}
)

func newBridge(t *testing.T) *credential.Bridge {
	t.Helper()
	b, err := credential.New(secret, false)
	require.NoError(t, err)
	return b
}

// newFake starts a FakeServer and a client signed in as alice.
func newFake(t *testing.T) (*testutil.FakeServer, *taskapi.Client) {
	t.Helper()
	b := newBridge(t)
	srv := testutil.NewFakeServer(b)
	t.Cleanup(srv.Close)

	c, err := taskapi.New(b.TokenSource(alice), taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return srv, c
}

// newRaw starts a server answering every request with h.
func newRaw(t *testing.T, h http.HandlerFunc) *taskapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := taskapi.New(newBridge(t).TokenSource(alice), taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := taskapi.New(nil, taskapi.Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_SendsBearerCredential(t *testing.T) {
	srv, c := newFake(t)

	_, err := c.List(context.Background(), alice.UserID, service.ListOptions{})
	require.NoError(t, err)

	req := srv.LastRequest()
	require.NotNil(t, req)
	auth := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "), "got %q", auth)

	claims, err := srv.Bridge.Verify(strings.TrimPrefix(auth, "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, claims.Subject)
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
}

func TestClient_ListQuery(t *testing.T) {
	tests := []struct {
		name       string
		opts       service.ListOptions
		wantStatus string
		hasStatus  bool
	}{
		{"all omits status", service.ListOptions{Filter: service.FilterAll, Limit: 100}, "", false},
		{"pending", service.ListOptions{Filter: service.FilterPending, Limit: 100}, "pending", true},
		{"completed", service.ListOptions{Filter: service.FilterCompleted, Limit: 100}, "completed", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, c := newFake(t)
			_, err := c.List(context.Background(), alice.UserID, tt.opts)
			require.NoError(t, err)

			q := srv.LastRequest().URL.Query()
			assert.Equal(t, tt.hasStatus, q.Has("status"))
			assert.Equal(t, tt.wantStatus, q.Get("status"))
			assert.Equal(t, "100", q.Get("limit"))
			assert.Equal(t, "/api/u-alice/tasks", srv.LastRequest().URL.Path)
		})
	}
}

func TestClient_ListNewestFirstWithTotal(t *testing.T) {
	srv, c := newFake(t)
	srv.Store.AddTask(alice.UserID, "first", false)
	srv.Store.AddTask(alice.UserID, "second", true)
	srv.Store.AddTask(alice.UserID, "third", false)
	srv.Store.AddTask(bob.UserID, "not mine", false)

	res, err := c.List(context.Background(), alice.UserID, service.ListOptions{Limit: 2})
	require.NoError(t, err)

	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "third", res.Tasks[0].Title)
	assert.Equal(t, "second", res.Tasks[1].Title)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Limit)

	res, err = c.List(context.Background(), alice.UserID, service.ListOptions{Filter: service.FilterPending, Limit: 100})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, 2, res.Total)
	for _, task := range res.Tasks {
		assert.False(t, task.Completed)
		assert.Equal(t, alice.UserID, task.OwnerID)
	}
}

func TestClient_CreateUpdateToggleDelete(t *testing.T) {
	srv, c := newFake(t)
	ctx := context.Background()

	created, err := c.Create(ctx, alice.UserID, service.CreateInput{Title: "Buy milk", Description: service.String("2 litres")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, alice.UserID, created.OwnerID)
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.IsZero())
	require.NotNil(t, created.Description)
	assert.Equal(t, "2 litres", *created.Description)

	updated, err := c.Update(ctx, alice.UserID, created.ID, service.UpdateInput{Title: service.String("Buy oat milk")})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "2 litres", *updated.Description, "unspecified fields are unchanged")

	toggled, err := c.Toggle(ctx, alice.UserID, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, http.MethodPatch, srv.LastRequest().Method)
	assert.Equal(t, "/api/u-alice/tasks/"+created.ID+"/complete", srv.LastRequest().URL.Path)

	got, err := c.Get(ctx, alice.UserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, toggled, got)

	require.NoError(t, c.Delete(ctx, alice.UserID, created.ID))
	assert.Empty(t, srv.Store.Tasks(alice.UserID))
}

func TestClient_UpdateSendsOnlyProvidedFields(t *testing.T) {
	var body map[string]any
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 7, "user_id": "u-alice", "title": "t", "completed": false}`)
	})

	_, err := c.Update(context.Background(), alice.UserID, "7", service.UpdateInput{Completed: service.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"completed": false}, body)
}

func TestClient_ToggleTwiceRestores(t *testing.T) {
	_, c := newFake(t)
	ctx := context.Background()

	created, err := c.Create(ctx, alice.UserID, service.CreateInput{Title: "A", Description: service.String("d")})
	require.NoError(t, err)

	first, err := c.Toggle(ctx, alice.UserID, created.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)

	second, err := c.Toggle(ctx, alice.UserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Completed, second.Completed)
	assert.Equal(t, "A", second.Title)
}

func TestClient_UpdateCompletedOnly(t *testing.T) {
	_, c := newFake(t)
	ctx := context.Background()

	created, err := c.Create(ctx, alice.UserID, service.CreateInput{Title: "A", Description: service.String("d")})
	require.NoError(t, err)

	updated, err := c.Update(ctx, alice.UserID, created.ID, service.UpdateInput{Completed: service.Bool(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "A", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "d", *updated.Description)

	got, err := c.Get(ctx, alice.UserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestClient_DeleteNoContent(t *testing.T) {
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.Delete(context.Background(), alice.UserID, "1"))
}

func TestClient_OtherOwnerIsUnauthorized(t *testing.T) {
	srv, _ := newFake(t)

	// Signed in as bob, asking for alice's tasks.
	c, err := taskapi.New(srv.Bridge.TokenSource(bob), taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.List(context.Background(), alice.UserID, service.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Equal(t, "Access denied to this resource", err.Error())
}

func TestClient_UnauthorizedVsNotFound(t *testing.T) {
	srv, c := newFake(t)

	_, err := c.Get(context.Background(), alice.UserID, "999")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrUnauthorized)

	wrong, err := credential.New("another-secret", false)
	require.NoError(t, err)
	bad, err := taskapi.New(wrong.TokenSource(alice), taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = bad.Get(context.Background(), alice.UserID, "999")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.NotErrorIs(t, err, service.ErrNotFound)
}

func TestClient_NoCredentialSendsNothing(t *testing.T) {
	srv, _ := newFake(t)

	c, err := taskapi.New(nil, taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.List(context.Background(), alice.UserID, service.ListOptions{})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Empty(t, srv.Requests)
}

func TestClient_ExpiredCredential(t *testing.T) {
	srv, _ := newFake(t)

	expired := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	})
	c, err := taskapi.New(expired, taskapi.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.List(context.Background(), alice.UserID, service.ListOptions{})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Empty(t, srv.Requests)
}

func TestClient_ErrorDetail(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    service.Kind
		message string
	}{
		{"string detail", 404, `{"detail":"Task not found"}`, service.KindNotFound, "Task not found"},
		{"validation list", 422, `{"detail":[{"loc":["body","title"],"msg":"field required"},{"msg":"too long"}]}`, service.KindValidation, "field required; too long"},
		{"bad request", 400, `{"detail":"Title cannot be empty"}`, service.KindValidation, "Title cannot be empty"},
		{"no detail", 500, `{"error":"boom"}`, service.KindRequestFailed, "an error occurred (status 500)"},
		{"not json", 502, `<html>Bad Gateway</html>`, service.KindRequestFailed, "an error occurred (status 502)"},
		{"empty body", 401, ``, service.KindUnauthorized, "an error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Get(context.Background(), alice.UserID, "1")
			require.Error(t, err)

			var svcErr *service.Error
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.kind, svcErr.Kind)
			assert.Equal(t, tt.status, svcErr.Status)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "ok"},
		{"wrong shape", `{"tasks": "nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.List(context.Background(), alice.UserID, service.ListOptions{})
			require.Error(t, err)

			var svcErr *service.Error
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, service.KindRequestFailed, svcErr.Kind)
			assert.Equal(t, http.StatusOK, svcErr.Status)
		})
	}
}

func TestClient_DropsTasksOfOtherOwners(t *testing.T) {
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tasks":[
			{"id":1,"user_id":"u-alice","title":"mine","completed":false,"created_at":"2026-01-01T10:00:00"},
			{"id":2,"user_id":"u-bob","title":"theirs","completed":false,"created_at":"2026-01-01T09:00:00"}
		],"total":2,"skip":0,"limit":100}`)
	})

	res, err := c.List(context.Background(), alice.UserID, service.ListOptions{Limit: 100})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "1", res.Tasks[0].ID)
	assert.Equal(t, "mine", res.Tasks[0].Title)
}

func TestClient_GetOtherOwnerFails(t *testing.T) {
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"5","user_id":"u-bob","title":"theirs","completed":false}`)
	})

	_, err := c.Get(context.Background(), alice.UserID, "5")
	assert.ErrorIs(t, err, service.ErrRequestFailed)
}

func TestClient_DropsTasksWithoutOwner(t *testing.T) {
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tasks":[
			{"id":1,"user_id":"u-alice","title":"mine","completed":false},
			{"id":2,"title":"orphan","completed":false},
			{"id":3,"user_id":"","title":"blank owner","completed":false}
		],"total":3,"skip":0,"limit":100}`)
	})

	res, err := c.List(context.Background(), alice.UserID, service.ListOptions{Limit: 100})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "mine", res.Tasks[0].Title)
}

func TestClient_TaskWithoutOwnerFails(t *testing.T) {
	c := newRaw(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"5","title":"orphan","completed":true}`)
	})

	_, err := c.Toggle(context.Background(), alice.UserID, "5")
	assert.ErrorIs(t, err, service.ErrRequestFailed)
}

func TestClient_CreateValidatesLocally(t *testing.T) {
	srv, c := newFake(t)

	_, err := c.Create(context.Background(), alice.UserID, service.CreateInput{Title: "   "})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = c.Create(context.Background(), alice.UserID, service.CreateInput{Title: strings.Repeat("x", service.MaxTitleLen+1)})
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.Empty(t, srv.Requests)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := taskapi.New(newBridge(t).TokenSource(alice), taskapi.Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.List(context.Background(), alice.UserID, service.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrRequestFailed)
	assert.Contains(t, err.Error(), "request timed out")
}

func TestClient_RecordsMetrics(t *testing.T) {
	b := newBridge(t)
	srv := testutil.NewFakeServer(b)
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	c, err := taskapi.New(b.TokenSource(alice), taskapi.Options{BaseURL: srv.URL, Metrics: metrics.NewStore(reg)})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.List(ctx, alice.UserID, service.ListOptions{})
	require.NoError(t, err)
	_, err = c.Get(ctx, alice.UserID, "404")
	require.Error(t, err)

	n, err := promtest.GatherAndCount(reg, "tasklink_store_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per op and code")
}
