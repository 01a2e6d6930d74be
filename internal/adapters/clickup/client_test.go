package clickup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Configured(t *testing.T) {
	assert.False(t, NewClient(Config{}).Configured())
	assert.True(t, NewClient(Config{APIKey: "pk_123"}).Configured())
}

func TestGetTask_DecodesTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/abc123", r.URL.Path)
		assert.Equal(t, "pk_123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "abc123",
			"name":   "Build dashboard",
			"status": map[string]any{"status": "Closed Won"},
			"space":  map[string]any{"id": "space-1"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "pk_123", BaseURL: srv.URL})
	task, err := client.GetTask(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "abc123", task.ID)
	assert.Equal(t, "Closed Won", task.Status)
	assert.Equal(t, "space-1", task.SpaceID)
}

func TestGetTask_NotFoundIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "pk_123", BaseURL: srv.URL})
	task, err := client.GetTask(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestGetTask_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "pk_123", BaseURL: srv.URL})
	_, err := client.GetTask(context.Background(), "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestListTasks_PagesWithClosedIncluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list/L1/task", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "true", r.URL.Query().Get("include_closed"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tasks": []map[string]any{
				{"id": "t1", "status": map[string]any{"status": "New"}},
				{"id": "t2", "status": map[string]any{"status": "Closed Lost"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "pk_123", BaseURL: srv.URL})
	tasks, err := client.ListTasks(context.Background(), "L1", 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Closed Lost", tasks[1].Status)
}

func TestUpdateTaskStatus_SendsStatusBody(t *testing.T) {
	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task/t1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "pk_123", BaseURL: srv.URL})
	err := client.UpdateTaskStatus(context.Background(), "t1", "Proposal Sent")
	require.NoError(t, err)
	assert.Equal(t, "Proposal Sent", captured["status"])
}
