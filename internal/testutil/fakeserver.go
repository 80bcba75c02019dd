package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"tasklink/internal/credential"
	"tasklink/internal/service"
)

// FakeServer is an httptest server speaking the task-storage HTTP API,
// backed by a FakeService. It verifies bearer tokens with Bridge and only
// serves the owner named by the token's subject.
type FakeServer struct {
	*httptest.Server

	Store  *FakeService
	Bridge *credential.Bridge

	mu sync.Mutex
	// Requests records every request that reached the router.
	Requests []*http.Request
}

// NewFakeServer starts a FakeServer. Close it when done.
func NewFakeServer(bridge *credential.Bridge) *FakeServer {
	fs := &FakeServer{Store: NewFakeService(), Bridge: bridge}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/{owner}").Subrouter()
	api.Use(fs.record, fs.authorize)
	api.HandleFunc("/tasks", fs.list).Methods(http.MethodGet)
	api.HandleFunc("/tasks", fs.create).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", fs.get).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", fs.update).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", fs.remove).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/complete", fs.toggle).Methods(http.MethodPatch)

	fs.Server = httptest.NewServer(r)
	return fs
}

// LastRequest returns the most recent recorded request, or nil.
func (fs *FakeServer) LastRequest() *http.Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.Requests) == 0 {
		return nil
	}
	return fs.Requests[len(fs.Requests)-1]
}

func (fs *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.Requests = append(fs.Requests, r.Clone(r.Context()))
		fs.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (fs *FakeServer) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := fs.Bridge.Verify(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if claims.Subject != mux.Vars(r)["owner"] {
			writeDetail(w, http.StatusForbidden, "Access denied to this resource")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fs *FakeServer) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{Filter: service.FilterAll}
	if s := q.Get("status"); s != "" {
		f, err := service.ParseFilter(s)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid status")
			return
		}
		opts.Filter = f
	}
	opts.Offset, _ = strconv.Atoi(q.Get("skip"))
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))

	res, err := fs.Store.List(r.Context(), mux.Vars(r)["owner"], opts)
	writeResult(w, http.StatusOK, res, err)
}

func (fs *FakeServer) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := fs.Store.Get(r.Context(), vars["owner"], vars["id"])
	writeResult(w, http.StatusOK, t, err)
}

func (fs *FakeServer) create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request payload")
		return
	}
	t, err := fs.Store.Create(r.Context(), mux.Vars(r)["owner"], in)
	writeResult(w, http.StatusCreated, t, err)
}

func (fs *FakeServer) update(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request payload")
		return
	}
	vars := mux.Vars(r)
	t, err := fs.Store.Update(r.Context(), vars["owner"], vars["id"], in)
	writeResult(w, http.StatusOK, t, err)
}

func (fs *FakeServer) toggle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := fs.Store.Toggle(r.Context(), vars["owner"], vars["id"])
	writeResult(w, http.StatusOK, t, err)
}

func (fs *FakeServer) remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := fs.Store.Delete(r.Context(), vars["owner"], vars["id"]); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeResult(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		var svcErr *service.Error
		code := http.StatusInternalServerError
		if errors.As(err, &svcErr) {
			switch svcErr.Kind {
			case service.KindNotFound:
				code = http.StatusNotFound
			case service.KindValidation:
				code = http.StatusUnprocessableEntity
			case service.KindUnauthorized:
				code = http.StatusUnauthorized
			}
			if svcErr.Status != 0 {
				code = svcErr.Status
			}
		}
		writeDetail(w, code, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
