package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epoch-iith/qmashup/internal/scheduler"
	testutil "github.com/epoch-iith/qmashup/internal/testing"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return j.name }

func setupSystemRouter(h *SystemHandlers) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/api/system/status", h.HandleSystemStatus)
	router.Post("/api/system/jobs/{name}", h.HandleTriggerJob)
	return router
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	libraryDB, cleanupLibrary := testutil.NewTestDB(t, "library")
	defer cleanupLibrary()
	runsDB, cleanupRuns := testutil.NewTestDB(t, "runs")
	defer cleanupRuns()

	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), "/tmp/qmashup", libraryDB, runsDB)
	h.SetJobs(&stubJob{name: "purge_old_runs"}, &stubJob{name: "check_databases"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	w := httptest.NewRecorder()
	setupSystemRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "/tmp/qmashup", response.DataDir)
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(0))
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
	assert.Equal(t, []string{"check_databases", "purge_old_runs"}, response.Jobs)

	require.Len(t, response.Databases, 2)
	assert.Equal(t, "library", response.Databases[0].Name)
	assert.Equal(t, "runs", response.Databases[1].Name)
	assert.Positive(t, response.Databases[0].PageSize)
}

func TestSystemHandlers_HandleSystemStatus_Degraded(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "runs")
	cleanup()

	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), "", db)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	w := httptest.NewRecorder()
	setupSystemRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "degraded", response.Status)
	assert.Empty(t, response.Databases)
}

func TestSystemHandlers_HandleTriggerJob(t *testing.T) {
	ok := &stubJob{name: "check_databases"}
	failing := &stubJob{name: "purge_old_runs", err: errors.New("disk full")}

	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), "")
	h.SetJobs(ok, failing)
	router := setupSystemRouter(h)

	tests := []struct {
		name   string
		job    string
		status int
	}{
		{"runs job", "check_databases", http.StatusOK},
		{"job error", "purge_old_runs", http.StatusInternalServerError},
		{"unknown job", "rebuild_everything", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/"+tt.job, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
}

func TestSystemHandlers_TriggerRecordedByScheduler(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := &stubJob{name: "check_databases"}

	sched := scheduler.New(log)
	require.NoError(t, sched.AddJob("0 15 4 * * *", job))

	h := NewSystemHandlers(log, "")
	h.SetJobs(job)
	h.SetScheduler(sched)
	router := setupSystemRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/check_databases", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Schedules, 1)
	assert.Equal(t, "check_databases", response.Schedules[0].Job)
	assert.Equal(t, 1, response.Schedules[0].Runs)
}
