package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxelmesh/internal/config"
	"voxelmesh/internal/meshsink"
	"voxelmesh/internal/voxel"
	"voxelmesh/internal/world"
)

type flatOracle int

func (h flatOracle) HasSolid(p voxel.Pos) bool { return p.Y < int(h) }
func (h flatOracle) ColumnHeight(x, z int) int { return int(h) }

func testWorld(t *testing.T) *world.World {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ChunkSizeX = 8
	cfg.ChunkSizeZ = 8
	cfg.WorldHeight = 16
	cfg.BaseHeight = 2
	cfg.Workers = 1
	w := world.New(*cfg, flatOracle(2))
	t.Cleanup(w.Close)
	if _, err := w.LoadArea(t.Context(), world.ChunkCoord{}, 1); err != nil {
		t.Fatalf("load: %v", err)
	}
	return w
}

func TestEditHandler(t *testing.T) {
	w := testWorld(t)
	h := editHandler(w)

	cases := []struct {
		name   string
		method string
		query  string
		status int
	}{
		{"place", http.MethodPost, "x=1&y=2&z=1&data=1", http.StatusOK},
		{"get", http.MethodGet, "x=1&y=2&z=1&data=1", http.StatusMethodNotAllowed},
		{"missing coordinate", http.MethodPost, "x=1&z=1&data=1", http.StatusBadRequest},
		{"unknown material", http.MethodPost, "x=1&y=2&z=1&data=99", http.StatusBadRequest},
		{"above the world", http.MethodPost, "x=1&y=16&z=1&data=1", http.StatusBadRequest},
		{"unloaded chunk", http.MethodPost, "x=400&y=2&z=400&data=1", http.StatusConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(c.method, "/edit?"+c.query, nil))
			if rec.Code != c.status {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, c.status, rec.Body.String())
			}
		})
	}

	if solid, err := w.SolidAt(voxel.Pos{X: 1, Y: 2, Z: 1}); err != nil || !solid {
		t.Errorf("Expected the placed voxel to be solid, got %v (%v)", solid, err)
	}

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/edit?x=1&y=2&z=1&data=1", nil))
	var res world.EditResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Changed {
		t.Errorf("Expected a repeated edit to change nothing")
	}
}

func TestStatsHandler(t *testing.T) {
	w := testWorld(t)
	rec := httptest.NewRecorder()
	statsHandler(w, meshsink.NewHub(4))(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var resp statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chunks != 5 || resp.Viewers != 0 {
		t.Errorf("stats: %+v", resp)
	}
	if resp.Quads == 0 {
		t.Errorf("Expected loaded chunks to hold quads")
	}
}
