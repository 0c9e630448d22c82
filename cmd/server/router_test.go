package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tasklist-api/internal/api"
	apiMiddleware "github.com/phrazzld/tasklist-api/internal/api/middleware"
	"github.com/phrazzld/tasklist-api/internal/config"
	"github.com/phrazzld/tasklist-api/internal/mocks"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/phrazzld/tasklist-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()
	log, _ := logger.GetTestLogger(t)

	app := &application{
		config: &config.Config{
			Server: config.ServerConfig{
				Port:           8080,
				LogLevel:       "debug",
				AllowedOrigins: []string{"http://localhost:3000"},
			},
			Auth:  auth.DefaultJWTConfig(),
			Tasks: config.TasksConfig{DefaultPageSize: 10, MaxPageSize: 100},
		},
		logger:           log,
		userStore:        mocks.NewMockUserStore(),
		taskStore:        mocks.NewInMemoryTaskStore(),
		passwordVerifier: &mocks.MockPasswordVerifier{ShouldSucceed: true},
	}
	require.NoError(t, app.initServices(t.Context()))
	return app
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func (c *client) register(email string) {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/api/auth/register", api.RegisterRequest{Email: email, Password: "password1234567"})
	require.Equal(c.t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp api.AuthResponse
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(c.t, resp.AccessToken)
	c.token = resp.AccessToken
}

func (c *client) titles() []string {
	c.t.Helper()
	rr := c.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(c.t, http.StatusOK, rr.Code)

	var tasks []api.TaskResponse
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &tasks))
	out := make([]string, len(tasks))
	for i, task := range tasks {
		assert.Equal(c.t, i, task.Position)
		out[i] = task.Title
	}
	return out
}

func (c *client) create(title string) api.TaskResponse {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/api/tasks", api.CreateTaskRequest{Title: title})
	require.Equal(c.t, http.StatusCreated, rr.Code, rr.Body.String())

	var task api.TaskResponse
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &task))
	return task
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()
	router := newTestApplication(t).setupRouter()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK, wantBody: "OK"},
		{name: "index", path: "/", wantStatus: http.StatusOK, wantBody: "documentation"},
		{name: "unknown", path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rr.Header().Get(apiMiddleware.TraceIDHeader))
		})
	}
}

func TestRouter_TaskRoutesRequireAuth(t *testing.T) {
	t.Parallel()
	router := newTestApplication(t).setupRouter()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodPost, "/api/tasks/reorder"},
		{http.MethodPost, "/api/tasks/compact"},
		{http.MethodPut, "/api/tasks/1"},
		{http.MethodPatch, "/api/tasks/1/title"},
		{http.MethodDelete, "/api/tasks/1"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(route.method, route.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	router := newTestApplication(t).setupRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_TaskLifecycle(t *testing.T) {
	t.Parallel()
	router := newTestApplication(t).setupRouter()

	alice := &client{t: t, router: router}
	alice.register("alice@example.com")
	bob := &client{t: t, router: router}
	bob.register("bob@example.com")

	a := alice.create("a")
	b := alice.create("b")
	c := alice.create("c")
	bob.create("bob's")
	assert.Equal(t, []string{"a", "b", "c"}, alice.titles())

	rr := alice.do(http.MethodPost, "/api/tasks/reorder", map[string]any{
		"tasks": []map[string]int64{{"id": c.ID, "position": 0}, {"id": a.ID, "position": 2}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"c", "b", "a"}, alice.titles())

	// Bob cannot reorder or delete Alice's tasks.
	rr = bob.do(http.MethodPost, "/api/tasks/reorder", map[string]any{
		"tasks": []map[string]int64{{"id": b.ID, "position": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = bob.do(http.MethodDelete, "/api/tasks/"+jsonID(b.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = alice.do(http.MethodPatch, "/api/tasks/"+jsonID(b.ID)+"/title", api.UpdateTaskTitleRequest{Title: "b2"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = alice.do(http.MethodDelete, "/api/tasks/"+jsonID(c.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"b2", "a"}, alice.titles())

	rr = alice.do(http.MethodPost, "/api/tasks/compact", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"b2", "a"}, alice.titles())
	assert.Equal(t, []string{"bob's"}, bob.titles())
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
