package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/api/shared"
	"github.com/phrazzld/tasklist-api/internal/config"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/mocks"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/phrazzld/tasklist-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	router http.Handler
	store  *mocks.InMemoryTaskStore
	userID uuid.UUID
}

// newTaskFixture wires a TaskHandler to a real TaskService over the
// in-memory store. Requests are authenticated as userID unless they carry
// an X-Test-User header.
func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	log, _ := logger.GetTestLogger(t)

	mem := mocks.NewInMemoryTaskStore()
	svc, err := service.NewTaskService(mem, nil, config.TasksConfig{DefaultPageSize: 10, MaxPageSize: 50}, log)
	require.NoError(t, err)
	h := NewTaskHandler(svc, log)

	f := &taskFixture{store: mem, userID: uuid.New()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := f.userID
			if v := req.Header.Get("X-Test-User"); v != "" {
				id = uuid.MustParse(v)
			}
			next.ServeHTTP(w, req.WithContext(shared.WithUserID(req.Context(), id)))
		})
	})
	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Post("/reorder", h.ReorderTasks)
		r.Post("/compact", h.CompactTasks)
		r.Put("/{id}", h.UpdateTask)
		r.Patch("/{id}/title", h.UpdateTaskTitle)
		r.Delete("/{id}", h.DeleteTask)
	})
	f.router = r
	return f
}

func (f *taskFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *taskFixture) seed(titles ...string) []*domain.Task {
	tasks := make([]*domain.Task, len(titles))
	for i, title := range titles {
		tasks[i] = &domain.Task{UserID: f.userID, Title: title, Position: i}
	}
	f.store.Seed(tasks...)
	return tasks
}

func (f *taskFixture) titles() []string {
	var out []string
	for _, t := range f.store.Snapshot(f.userID) {
		out = append(out, t.Title)
	}
	return out
}

func decodeTask(t *testing.T, rr *httptest.ResponseRecorder) TaskResponse {
	t.Helper()
	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "valid", body: `{"title":"write tests","description":"soon"}`, wantStatus: http.StatusCreated},
		{name: "missing title", body: `{"description":"x"}`, wantStatus: http.StatusBadRequest, wantError: "Invalid title: required field"},
		{name: "blank title", body: `{"title":"   "}`, wantStatus: http.StatusBadRequest, wantError: "task title cannot be empty"},
		{
			name:       "title too long",
			body:       `{"title":"` + strings.Repeat("x", 256) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid title: too long",
		},
		{name: "malformed", body: `{"title":`, wantStatus: http.StatusBadRequest, wantError: "Invalid request format"},
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantError: "Invalid request format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTaskFixture(t)
			f.seed("existing")

			rr := f.do(t, http.MethodPost, "/api/tasks", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rr))
				assert.Equal(t, []string{"existing"}, f.titles())
				return
			}
			got := decodeTask(t, rr)
			assert.Equal(t, "write tests", got.Title)
			assert.Equal(t, "soon", got.Description)
			assert.Equal(t, 1, got.Position)
			assert.Equal(t, f.userID, got.UserID)
			assert.NotZero(t, got.ID)
		})
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	f.seed("a", "b", "c", "d")
	// Another user's tasks never show up.
	f.store.Seed(&domain.Task{UserID: uuid.New(), Title: "foreign", Position: 0})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		want       []string
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, want: []string{"a", "b", "c", "d"}},
		{name: "page", query: "?skip=1&limit=2", wantStatus: http.StatusOK, want: []string{"b", "c"}},
		{name: "negative skip", query: "?skip=-5&limit=1", wantStatus: http.StatusOK, want: []string{"a"}},
		{name: "past the end", query: "?skip=10", wantStatus: http.StatusOK, want: []string{}},
		{name: "bad limit", query: "?limit=ten", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodGet, "/api/tasks"+tt.query, "")
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []TaskResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			got := make([]string, 0, len(resp))
			for _, task := range resp {
				got = append(got, task.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskHandler_UpdateTaskTitle(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	tasks := f.seed("old", "other")

	rr := f.do(t, http.MethodPatch, "/api/tasks/"+idPath(tasks[0].ID)+"/title", `{"title":"new"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeTask(t, rr)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, 0, got.Position)

	rr = f.do(t, http.MethodPatch, "/api/tasks/999/title", `{"title":"new"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Task not found", decodeError(t, rr))

	rr = f.do(t, http.MethodPatch, "/api/tasks/abc/title", `{"title":"new"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPatch, "/api/tasks/"+idPath(tasks[1].ID)+"/title", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid title: required field", decodeError(t, rr))
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	tasks := f.seed("a", "b")

	path := "/api/tasks/" + idPath(tasks[1].ID)

	rr := f.do(t, http.MethodPut, path, `{"title":"b2","completed":true,"description":"details"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeTask(t, rr)
	assert.Equal(t, "b2", got.Title)
	assert.True(t, got.Completed)
	assert.Equal(t, "details", got.Description)
	assert.Equal(t, 1, got.Position)

	// Omitting description keeps it.
	rr = f.do(t, http.MethodPut, path, `{"title":"b3","completed":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got = decodeTask(t, rr)
	assert.Equal(t, "details", got.Description)
	assert.False(t, got.Completed)

	// Another user cannot see the task.
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(`{"title":"stolen"}`))
	req.Header.Set("X-Test-User", uuid.New().String())
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"a", "b3"}, f.titles())
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	tasks := f.seed("a", "b", "c")

	rr := f.do(t, http.MethodDelete, "/api/tasks/"+idPath(tasks[0].ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	remaining := f.store.Snapshot(f.userID)
	require.Len(t, remaining, 2)
	assert.Equal(t, "b", remaining[0].Title)
	assert.Equal(t, 0, remaining[0].Position)
	assert.Equal(t, "c", remaining[1].Title)
	assert.Equal(t, 1, remaining[1].Position)

	rr = f.do(t, http.MethodDelete, "/api/tasks/"+idPath(tasks[0].ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Task not found", decodeError(t, rr))
}

func TestTaskHandler_ReorderTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       func(ids []int64) string
		wantStatus int
		wantError  string
		want       []string
	}{
		{
			name: "swap",
			body: func(ids []int64) string {
				return reorderBody(ids[0], 1, ids[1], 0)
			},
			wantStatus: http.StatusOK,
			want:       []string{"b", "a", "c"},
		},
		{
			name:       "empty list",
			body:       func([]int64) string { return `{"tasks":[]}` },
			wantStatus: http.StatusOK,
			want:       []string{"a", "b", "c"},
		},
		{
			name:       "missing tasks field",
			body:       func([]int64) string { return `{}` },
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid tasks: required field",
			want:       []string{"a", "b", "c"},
		},
		{
			name: "unknown task",
			body: func(ids []int64) string {
				return reorderBody(ids[0], 1, 999, 0)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Some tasks not found: [999]",
			want:       []string{"a", "b", "c"},
		},
		{
			name: "duplicate task",
			body: func(ids []int64) string {
				return reorderBody(ids[0], 1, ids[0], 2)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Duplicate tasks in request: [" + idPath(1) + "]",
			want:       []string{"a", "b", "c"},
		},
		{
			name: "position past end",
			body: func(ids []int64) string {
				return reorderBody(ids[0], 3)
			},
			wantStatus: http.StatusBadRequest,
			want:       []string{"a", "b", "c"},
		},
		{
			name:       "negative position",
			body:       func(ids []int64) string { return reorderBody(ids[0], -1) },
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid tasks[0].position: too small",
			want:       []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTaskFixture(t)
			tasks := f.seed("a", "b", "c")
			ids := []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID}

			rr := f.do(t, http.MethodPost, "/api/tasks/reorder", tt.body(ids))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"message":"Tasks reordered successfully"}`, rr.Body.String())
			}
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rr))
			}
			assert.Equal(t, tt.want, f.titles())
		})
	}
}

func TestTaskHandler_ReorderConflict(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	tasks := f.seed("a", "b", "c")

	fired := false
	f.store.BeforeCommit = func() {
		if fired {
			return
		}
		fired = true
		rival, err := f.store.GetByID(t.Context(), f.userID, tasks[0].ID)
		require.NoError(t, err)
		rival.Title = "a2"
		require.NoError(t, f.store.Update(t.Context(), rival))
	}

	rr := f.do(t, http.MethodPost, "/api/tasks/reorder", reorderBody(tasks[0].ID, 2, tasks[2].ID, 0))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decodeError(t, rr), "Data conflict error")
	assert.Equal(t, []string{"a2", "b", "c"}, f.titles())
}

func TestTaskHandler_UpdateTitleConflict(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	tasks := f.seed("a", "b")

	fired := false
	f.store.BeforeCommit = func() {
		if fired {
			return
		}
		fired = true
		rival, err := f.store.GetByID(t.Context(), f.userID, tasks[1].ID)
		require.NoError(t, err)
		rival.Title = "b2"
		require.NoError(t, f.store.Update(t.Context(), rival))
	}

	rr := f.do(t, http.MethodPatch, "/api/tasks/"+idPath(tasks[1].ID)+"/title", `{"title":"mine"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decodeError(t, rr), "was modified by another request")
	assert.Equal(t, []string{"a", "b2"}, f.titles())
}

func TestTaskHandler_CompactTasks(t *testing.T) {
	t.Parallel()
	f := newTaskFixture(t)
	f.store.Seed(
		&domain.Task{UserID: f.userID, Title: "a", Position: 3},
		&domain.Task{UserID: f.userID, Title: "b", Position: 7},
	)

	rr := f.do(t, http.MethodPost, "/api/tasks/compact", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	snapshot := f.store.Snapshot(f.userID)
	require.Len(t, snapshot, 2)
	assert.Equal(t, 0, snapshot[0].Position)
	assert.Equal(t, 1, snapshot[1].Position)
}

func TestTaskHandler_RequiresUser(t *testing.T) {
	t.Parallel()
	log, _ := logger.GetTestLogger(t)
	svc, err := service.NewTaskService(mocks.NewInMemoryTaskStore(), nil, config.TasksConfig{}, log)
	require.NoError(t, err)
	h := NewTaskHandler(svc, log)

	rr := httptest.NewRecorder()
	h.ListTasks(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "User ID not found or invalid", decodeError(t, rr))
}

func TestIndex(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()
	Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp IndexResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Documentation, "/api/tasks")
}

func idPath(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

// reorderBody builds a reorder payload from id, position pairs.
func reorderBody(pairs ...int64) string {
	items := make([]map[string]int64, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		items = append(items, map[string]int64{"id": pairs[i], "position": pairs[i+1]})
	}
	b, _ := json.Marshal(map[string]any{"tasks": items})
	return string(b)
}
