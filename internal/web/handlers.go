package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"tasklink/internal/guard"
	"tasklink/internal/service"
	"tasklink/internal/session"
	"tasklink/internal/viewmodel"
)

// dashboardView is the JSON form of a view-model snapshot.
type dashboardView struct {
	State          string         `json:"state"`
	Filter         service.Filter `json:"filter"`
	Tasks          []service.Task `json:"tasks"`
	Total          int            `json:"total"`
	Error          string         `json:"error,omitempty"`
	PendingCount   int            `json:"pending_count"`
	CompletedCount int            `json:"completed_count"`
}

func newDashboardView(s viewmodel.Snapshot) dashboardView {
	return dashboardView{
		State:          s.State.String(),
		Filter:         s.Filter,
		Tasks:          s.Tasks,
		Total:          s.Total,
		Error:          s.Err,
		PendingCount:   s.PendingCount,
		CompletedCount: s.CompletedCount,
	}
}

// handleHome handles GET /.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "tasklink")
	fmt.Fprintf(w, "sign in: POST %s\n", guard.SignInPath)
	fmt.Fprintf(w, "tasks:   GET %s\n", guard.LandingPath)
}

// handleSignInPage handles GET /login.
func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "POST %s to start a session for the account signed in with 'tasklink login'.\n", guard.SignInPath)
}

// handleSignUpPage handles GET /register.
func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Accounts are created on first sign-in: run 'tasklink login'.")
}

// handleSignIn handles POST /login. It hands out the stored session id
// as the session cookie.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opts.Sessions.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeDetail(w, http.StatusUnauthorized, "not logged in (run: tasklink login)")
			return
		}
		s.logger.Error("Failed to load session", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	setCookie(w, rec.ID)
	s.logger.Info("Session started", slog.String("user_id", rec.Identity.UserID))
	http.Redirect(w, r, guard.LandingPath, http.StatusSeeOther)
}

// handleSignOut handles POST /logout.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		s.forget(cookie.Value)
	}
	clearCookie(w)
	http.Redirect(w, r, guard.SignInPath, http.StatusSeeOther)
}

// handleDashboard handles GET /dashboard. An optional filter query
// switches the filter; otherwise the current filter is reloaded.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	vm, ok := s.board(w, r)
	if !ok {
		return
	}

	var in viewmodel.Intent = viewmodel.Reload{}
	if raw := r.URL.Query().Get("filter"); raw != "" {
		f, err := service.ParseFilter(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		in = viewmodel.ChangeFilter{Filter: f}
	}

	snap, err := vm.Dispatch(r.Context(), in)
	if err != nil {
		s.logger.Warn("Failed to load tasks", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), newDashboardView(snap))
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(snap))
}

// handleCreate handles POST /dashboard/tasks.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	s.mutate(w, r, viewmodel.Create{Input: in}, http.StatusCreated)
}

// handleUpdate handles PUT /dashboard/tasks/{taskID}.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	s.mutate(w, r, viewmodel.Update{ID: mux.Vars(r)["taskID"], Patch: patch}, http.StatusOK)
}

// handleToggle handles PATCH /dashboard/tasks/{taskID}/toggle.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, viewmodel.Toggle{ID: mux.Vars(r)["taskID"]}, http.StatusOK)
}

// handleDelete handles DELETE /dashboard/tasks/{taskID}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, viewmodel.Delete{ID: mux.Vars(r)["taskID"]}, http.StatusOK)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, in viewmodel.Intent, okStatus int) {
	vm, ok := s.board(w, r)
	if !ok {
		return
	}
	snap, err := vm.Dispatch(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, okStatus, newDashboardView(snap))
}

func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeDetail(w, statusFor(err), err.Error())
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
