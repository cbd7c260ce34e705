package gtasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"taskflow-backend/internal/task/domain"

	"google.golang.org/api/option"
)

// fakeTasksAPI serves the subset of the Tasks REST API the client uses
type fakeTasksAPI struct {
	mu          sync.Mutex
	lists       []map[string]any
	tasks       map[string]map[string]any
	listCalls   int
	createdList string
	lastPatch   map[string]any
	pages       int
}

func newFakeTasksAPI() *fakeTasksAPI {
	return &fakeTasksAPI{tasks: make(map[string]map[string]any)}
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/tasks/v1")

	switch {
	case path == "/users/@me/lists" && r.Method == http.MethodGet:
		f.listCalls++
		json.NewEncoder(w).Encode(map[string]any{"items": f.lists})
	case path == "/users/@me/lists" && r.Method == http.MethodPost:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "L-new"
		f.createdList = body["title"].(string)
		f.lists = append(f.lists, body)
		json.NewEncoder(w).Encode(body)
	case strings.HasSuffix(path, "/tasks") && r.Method == http.MethodPost:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "T1"
		f.tasks["T1"] = body
		json.NewEncoder(w).Encode(body)
	case strings.HasSuffix(path, "/tasks") && r.Method == http.MethodGet:
		f.pages++
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"items":         []map[string]any{{"id": "A", "status": "needsAction", "due": "2026-05-01T00:00:00.000Z"}},
				"nextPageToken": "p2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{"id": "B", "status": "completed"}},
		})
	case strings.Contains(path, "/tasks/"):
		id := path[strings.LastIndex(path, "/")+1:]
		task, ok := f.tasks[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(task)
		case http.MethodPatch:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.lastPatch = body
			for k, v := range body {
				task[k] = v
			}
			json.NewEncoder(w).Encode(task)
		case http.MethodDelete:
			delete(f.tasks, id)
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func newTestClient(t *testing.T, api *fakeTasksAPI, title string) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), title,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestTasklistIDFindsAndCaches(t *testing.T) {
	api := newFakeTasksAPI()
	api.lists = []map[string]any{{"id": "L1", "title": "Other"}, {"id": "L2", "title": "Task manager"}}
	client := newTestClient(t, api, "Task manager")

	for i := 0; i < 3; i++ {
		id, err := client.TasklistID(context.Background())
		if err != nil {
			t.Fatalf("TasklistID failed: %v", err)
		}
		if id != "L2" {
			t.Errorf("Expected L2, got %s", id)
		}
	}
	if api.listCalls != 1 {
		t.Errorf("Expected tasklist lookup cached after 1 call, got %d", api.listCalls)
	}
}

func TestTasklistIDCreatesMissingList(t *testing.T) {
	api := newFakeTasksAPI()
	client := newTestClient(t, api, "Task manager")

	id, err := client.TasklistID(context.Background())
	if err != nil {
		t.Fatalf("TasklistID failed: %v", err)
	}
	if id != "L-new" || api.createdList != "Task manager" {
		t.Errorf("Expected created list L-new titled 'Task manager', got %s / %q", id, api.createdList)
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	api := newFakeTasksAPI()
	api.lists = []map[string]any{{"id": "L1", "title": "Task manager"}}
	client := newTestClient(t, api, "Task manager")
	ctx := context.Background()

	due := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	id, err := client.Create(ctx, "Write draft", "notes", due, domain.TaskStatusTracked)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if api.tasks[id]["status"] != domain.RemoteStatusNeedsAction {
		t.Errorf("Expected needsAction, got %v", api.tasks[id]["status"])
	}
	if api.tasks[id]["due"] != "2026-05-02T08:30:00Z" {
		t.Errorf("Expected RFC3339 due, got %v", api.tasks[id]["due"])
	}

	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Write draft" || got.Due == nil || !got.Due.Equal(due) || !got.DueDateOnly {
		t.Errorf("Unexpected remote task: %+v", got)
	}

	completed := domain.TaskStatusCompleted
	if err := client.Update(ctx, id, domain.RemoteUpdate{Status: &completed}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if api.lastPatch["status"] != domain.RemoteStatusCompleted {
		t.Errorf("Expected completed patch, got %v", api.lastPatch)
	}
	if _, ok := api.lastPatch["title"]; ok {
		t.Errorf("Expected title omitted from patch, got %v", api.lastPatch)
	}

	reopened := domain.TaskStatusPublished
	if err := client.Update(ctx, id, domain.RemoteUpdate{Status: &reopened}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if v, ok := api.lastPatch["completed"]; !ok || v != nil {
		t.Errorf("Expected completed cleared on reopen, got %v", api.lastPatch)
	}

	if err := client.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := client.Get(ctx, id); !errors.Is(err, domain.ErrRemoteNotFound) {
		t.Errorf("Expected ErrRemoteNotFound after delete, got %v", err)
	}
	if err := client.Delete(ctx, id); !errors.Is(err, domain.ErrRemoteNotFound) {
		t.Errorf("Expected ErrRemoteNotFound on second delete, got %v", err)
	}
}

func TestListFollowsPages(t *testing.T) {
	api := newFakeTasksAPI()
	api.lists = []map[string]any{{"id": "L1", "title": "Task manager"}}
	client := newTestClient(t, api, "Task manager")

	items, err := client.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != "A" || items[1].ID != "B" {
		t.Fatalf("Expected [A B], got %+v", items)
	}
	if !items[1].IsCompleted() {
		t.Error("Expected B completed")
	}
	if items[0].Due == nil || items[0].Due.Day() != 1 {
		t.Errorf("Expected A due on the 1st, got %v", items[0].Due)
	}
	if api.pages != 2 {
		t.Errorf("Expected 2 page requests, got %d", api.pages)
	}
}

func TestParseDue(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-05-01T08:00:00Z", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-05-01T08:00:00.000Z", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-05-01T10:00:00+02:00", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-05-01T08:00:00", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2026-05-01", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDue(tt.in)
		if err != nil {
			t.Errorf("ParseDue(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDue(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := ParseDue(""); err == nil {
		t.Error("Expected error for empty value")
	}
	if _, err := ParseDue("tomorrow"); err == nil {
		t.Error("Expected error for garbage value")
	}
}

func TestFormatDueConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got := FormatDue(time.Date(2026, 5, 1, 15, 0, 0, 0, loc))
	if got != "2026-05-01T08:00:00Z" {
		t.Errorf("Expected 2026-05-01T08:00:00Z, got %s", got)
	}
}
