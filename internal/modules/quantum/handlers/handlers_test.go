package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

var square = [][]float64{
	{0, 1, 0, 1},
	{1, 0, 1, 0},
	{0, 1, 0, 1},
	{1, 0, 1, 0},
}

func setupRouter() http.Handler {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(quantum.NewEngine(logger), pathing.NewExtractor(logger), logger)
	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router
}

func post(t *testing.T, router http.Handler, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response, "metadata")
	}
	return w, response
}

func TestHandleOperator(t *testing.T) {
	router := setupRouter()

	w, response := post(t, router, "/api/quantum/operator", map[string]interface{}{"adjacency": square})
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	ham := data["hamiltonian"].([]interface{})
	require.Len(t, ham, 4)
	assert.Equal(t, []interface{}{2.0, -1.0, 0.0, -1.0}, ham[0])

	// Laplacian of the 4-cycle has eigenvalues 0, 2, 2, 4
	spectrum := data["spectrum"].(map[string]interface{})
	assert.InDelta(t, 0, spectrum["min"].(float64), 1e-9)
	assert.InDelta(t, 4, spectrum["max"].(float64), 1e-9)
}

func TestHandleEvolve(t *testing.T) {
	router := setupRouter()

	w, response := post(t, router, "/api/quantum/evolve", map[string]interface{}{
		"adjacency": square,
		"operator":  map[string]interface{}{"mode": "laplacian", "bio": map[string]interface{}{"strength": 0.3}},
		"start":     2,
		"walk":      map[string]interface{}{"steps": 25, "dt": 0.05, "noise": 0.15},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, 25.0, data["steps"])
	assert.Equal(t, 4.0, data["nodes"])
	rows := data["rows"].([]interface{})
	require.Len(t, rows, 25)
	assert.Equal(t, []interface{}{0.0, 0.0, 1.0, 0.0}, rows[0])

	for _, row := range rows {
		sum := 0.0
		for _, v := range row.([]interface{}) {
			sum += v.(float64)
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}
}

func TestHandleEvolve_Hamiltonian(t *testing.T) {
	router := setupRouter()

	w, response := post(t, router, "/api/quantum/evolve", map[string]interface{}{
		"hamiltonian": [][]float64{{1, 0.5}, {0.5, -1}},
		"walk":        map[string]interface{}{"steps": 3, "dt": 0.1},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].(map[string]interface{})["rows"], 3)
}

func TestHandleEvolve_BadInput(t *testing.T) {
	router := setupRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"no operator", map[string]interface{}{"walk": map[string]interface{}{"steps": 3, "dt": 0.1}}},
		{"asymmetric hamiltonian", map[string]interface{}{
			"hamiltonian": [][]float64{{0, 1}, {0, 0}},
			"walk":        map[string]interface{}{"steps": 3, "dt": 0.1},
		}},
		{"noise above one", map[string]interface{}{
			"adjacency": square,
			"walk":      map[string]interface{}{"steps": 3, "dt": 0.1, "noise": 1.5},
		}},
		{"start out of range", map[string]interface{}{
			"adjacency": square,
			"start":     4,
			"walk":      map[string]interface{}{"steps": 3, "dt": 0.1},
		}},
		{"zero dt", map[string]interface{}{
			"adjacency": square,
			"walk":      map[string]interface{}{"steps": 3},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := post(t, router, "/api/quantum/evolve", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleExtract(t *testing.T) {
	router := setupRouter()

	trajectory := [][]float64{
		{0.7, 0.1, 0.1, 0.1},
		{0.6, 0.3, 0.05, 0.05},
		{0.5, 0.2, 0.2, 0.1},
	}
	w, response := post(t, router, "/api/quantum/extract", map[string]interface{}{
		"trajectory": trajectory,
		"adjacency":  square,
		"options":    map[string]interface{}{"length": 3, "memory_window": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)

	path := response["data"].(map[string]interface{})
	// Node 0 stays masked for two picks
	assert.Equal(t, []interface{}{0.0, 1.0, 2.0}, path["nodes"])
	assert.Equal(t, false, path["truncated"])

	w, _ = post(t, router, "/api/quantum/extract", map[string]interface{}{
		"trajectory": trajectory,
		"options":    map[string]interface{}{"length": 4, "short_path": "error"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCompare(t *testing.T) {
	router := setupRouter()

	w, response := post(t, router, "/api/quantum/compare", map[string]interface{}{
		"path_a":       []int{0, 1, 2, 3},
		"path_b":       []int{0, 1, 3},
		"trajectory_a": [][]float64{{1, 0}, {0.5, 0.5}},
		"trajectory_b": [][]float64{{1, 0}, {0.25, 0.75}},
		"groups":       []string{"a", "a", "b", "b"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	paths := data["paths"].(map[string]interface{})
	assert.Equal(t, 2.0, paths["first_divergence"])
	assert.Equal(t, 2.0, paths["differing"])

	traj := data["trajectories"].(map[string]interface{})
	assert.InDelta(t, 0.25, traj["mean_l1"].(float64), 1e-12)

	groups := data["groups_a"].(map[string]interface{})
	assert.Equal(t, []interface{}{"a", "a", "b", "b"}, groups["sequence"])

	w, _ = post(t, router, "/api/quantum/compare", map[string]interface{}{
		"path_a":       []int{0},
		"path_b":       []int{0},
		"trajectory_a": [][]float64{{1, 0}},
		"trajectory_b": [][]float64{{1, 0, 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, nil, logger)

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(chi.NewRouter())
	})
}
