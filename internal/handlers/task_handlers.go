package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/repository"
	"taskboard/internal/session"
	"taskboard/internal/store"
	"taskboard/internal/validate"
	"taskboard/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskHandler adapts the dashboard operations to HTTP. One gate exists per
// routed owner; the gate itself refuses to serve a session that does not own
// the route.
type TaskHandler struct {
	identity session.IdentityProvider
	repo     repository.TaskRepository
	newStore func(owner uuid.UUID) *store.Store

	mtx   sync.Mutex
	gates map[uuid.UUID]*session.Gate
}

func NewTaskHandler(identity session.IdentityProvider, repo repository.TaskRepository, newStore func(owner uuid.UUID) *store.Store) *TaskHandler {
	return &TaskHandler{
		identity: identity,
		repo:     repo,
		newStore: newStore,
		gates:    make(map[uuid.UUID]*session.Gate),
	}
}

// logNavigator records the gate's asynchronous routing decisions. Redirects
// for in-flight requests are issued from the error mapping; there is no live
// page to navigate outside a request.
type logNavigator struct{}

func (logNavigator) ToDashboard(userID uuid.UUID) {
	logger.Info("redirecting to canonical dashboard", zap.String("user_id", userID.String()))
}

func (logNavigator) ToSignIn() {
	logger.Info("redirecting to sign-in")
}

func (h *TaskHandler) gateFor(owner uuid.UUID) *session.Gate {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	g, ok := h.gates[owner]
	if !ok {
		g = session.NewGate(h.identity, logNavigator{}, h.newStore)
		h.gates[owner] = g
	}
	return g
}

// bind resolves the routed owner and runs the session gate. It writes the
// response itself on failure and returns nil.
func (h *TaskHandler) bind(w http.ResponseWriter, r *http.Request) *store.Store {
	ownerParam := chi.URLParam(r, "ownerID")
	owner, err := uuid.Parse(ownerParam)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid owner id")
		return nil
	}

	st, err := h.gateFor(owner).Bind(r.Context(), owner)
	if err != nil {
		respondStoreError(w, r, err)
		return nil
	}
	return st
}

// GetTasks returns the derived view for the requested filter mode and search
// term. Filter and search live on the store so the next request sees them
// unchanged.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	q := r.URL.Query()
	if q.Has("filter") {
		st.SetFilter(view.Mode(q.Get("filter")))
	}
	if q.Has("q") {
		st.SetSearch(q.Get("q"))
	}

	responseWithJSON(w, http.StatusOK, map[string]any{
		"tasks":  st.Visible(),
		"filter": st.Filter(),
		"search": st.Search(),
		"state":  st.State(),
	})
}

func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	responseWithJSON(w, http.StatusOK, st.Stats())
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	var draft validate.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := st.Save(r.Context(), draft, nil); err != nil {
		respondStoreError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusCreated, st.Visible())
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var draft validate.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := st.Save(r.Context(), draft, &id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusOK, st.Visible())
}

type toggleRequest struct {
	// Completed is the task's current value as the caller sees it; the
	// store writes its negation.
	Completed bool `json:"completed"`
}

func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := st.Toggle(r.Context(), id, req.Completed); err != nil {
		respondStoreError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusOK, st.Visible())
}

// DeleteTask soft-deletes. The confirm parameter is the cancelable
// confirmation step: without it nothing is written.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	st := h.bind(w, r)
	if st == nil {
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		responseWithError(w, http.StatusPreconditionRequired, "deletion must be confirmed with confirm=true")
		return
	}

	if err := st.Remove(r.Context(), id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	responseWithJSON(w, http.StatusOK, st.Visible())
}

// GetProfile returns the session's display attributes and a greeting, the
// header content of the dashboard.
func (h *TaskHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if h.bind(w, r) == nil {
		return
	}

	sess, err := h.identity.CurrentSession(r.Context())
	if err != nil || sess == nil {
		responseWithError(w, http.StatusUnauthorized, "no active session")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{
		"session":  sess,
		"greeting": greeting(time.Now()),
	})
}

func (h *TaskHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, err := h.identity.CurrentSession(r.Context())
	if err != nil || sess == nil {
		http.Redirect(w, r, "/signin", http.StatusTemporaryRedirect)
		return
	}

	h.mtx.Lock()
	g := h.gates[sess.UserID]
	delete(h.gates, sess.UserID)
	h.mtx.Unlock()

	if g != nil {
		if err := g.SignOut(r.Context()); err != nil {
			responseWithError(w, http.StatusBadGateway, "failed to sign out")
			return
		}
	} else if err := h.identity.SignOut(r.Context()); err != nil {
		responseWithError(w, http.StatusBadGateway, "failed to sign out")
		return
	}

	http.Redirect(w, r, "/signin", http.StatusTemporaryRedirect)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.HealthCheck(r.Context()); err != nil {
		responseWithError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	responseWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		responseWithError(w, http.StatusBadRequest, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

func greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good Morning"
	case hour < 17:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}
