package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authRepo "taskflow-backend/internal/auth/repository"
	authUsecase "taskflow-backend/internal/auth/usecase"
	taskUsecase "taskflow-backend/internal/task/usecase"
	"taskflow-backend/internal/testutil"
)

func newTestRouter(t *testing.T, tokenUc authUsecase.TokenUsecase) http.Handler {
	t.Helper()
	db := testutil.NewTestDB(t)
	if err := authRepo.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	works, tasks := testutil.NewTestRepos(t)
	svc := taskUsecase.NewServices(works, tasks, testutil.NewFakeRemote(), nil, taskUsecase.AdvisoryEverySnooze)
	return NewHandler(svc, nil, authRepo.NewDeviceTokenRepository(db), tokenUc).Router()
}

func serve(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireTokenWhenConfigured(t *testing.T) {
	tokens := authUsecase.NewTokenUsecase("test-secret")
	r := newTestRouter(t, tokens)

	if w := serve(r, http.MethodGet, "/api/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("Expected health to be public, got %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/works", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}

	token, err := tokens.IssueToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if w := serve(r, http.MethodGet, "/api/works", token, ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodPost, "/api/devices", token, `{"token":"device-1"}`); w.Code != http.StatusOK {
		t.Errorf("Expected device registration to succeed, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoutesOpenWithoutSecret(t *testing.T) {
	r := newTestRouter(t, nil)

	if w := serve(r, http.MethodGet, "/api/tasks", "", ""); w.Code != http.StatusOK {
		t.Errorf("Expected open API, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/api/reconcile", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a reconciler, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/works", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Expected origin echoed, got %q", got)
	}
}
