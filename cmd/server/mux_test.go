package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxelspawn.ai/internal/persistence/indexdb"
	"voxelspawn.ai/internal/sim/catalogs"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/sim/spawn"
)

const testSpawnYAML = `spawn:
  x: {min: 0, max: 0}
  z: {min: 0, max: 0}
  force_ground_spawn: true
  max_tries: 3
enabled_worlds: [OVERWORLD]
`

func newTestApp(t *testing.T, withIndex bool) *app {
	t.Helper()
	cat, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	dir := t.TempDir()
	spawnPath := filepath.Join(dir, "spawn.yaml")
	if err := os.WriteFile(spawnPath, []byte(testSpawnYAML), 0o644); err != nil {
		t.Fatalf("write spawn.yaml: %v", err)
	}
	scfg, err := loadSpawnConfig(spawnPath)
	if err != nil {
		t.Fatalf("load spawn config: %v", err)
	}

	a := &app{spawnPath: spawnPath, log: log.New(io.Discard, "", 0)}
	var recorders []multiworld.Recorder
	if withIndex {
		a.idx, err = indexdb.OpenSQLite(filepath.Join(dir, "index", "spawns.sqlite"))
		if err != nil {
			t.Fatalf("open index: %v", err)
		}
		t.Cleanup(func() { _ = a.idx.Close() })
		recorders = append(recorders, a.idx)
	}

	wcfg := multiworld.Config{
		DefaultWorldID: "OVERWORLD",
		Seed:           7,
		Worlds: []multiworld.WorldSpec{
			{ID: "OVERWORLD", Height: 32, SeaLevel: 10},
			{ID: "CALDERA", Height: 32, SeaLevel: 10},
		},
	}
	a.mgr, err = multiworld.NewManager(wcfg, cat, scfg, multiworld.Options{Recorders: recorders, Rand: spawn.Seeded(3)})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	s := a.mgr.Store("OVERWORLD")
	for y := 0; y < s.MaxHeight(); y++ {
		s.SetBlock(0, y, 0, cat.Air())
	}
	s.SetBlock(0, 9, 0, cat.MustID("STONE"))
	return a
}

func serve(mux http.Handler, method, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMux_AdminSpawnAndStats(t *testing.T) {
	a := newTestApp(t, true)
	mux := a.mux(true)

	rec := serve(mux, http.MethodPost, "/admin/v1/spawn?world=OVERWORLD", "8.8.8.8:1234")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-loopback spawn, got %d", rec.Code)
	}

	rec = serve(mux, http.MethodPost, "/admin/v1/spawn?world=OVERWORLD&trigger=join", "127.0.0.1:1234")
	if rec.Code != http.StatusOK {
		t.Fatalf("spawn status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got adminSpawnResp
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.OK || got.Outcome != multiworld.OutcomeAccepted || got.Pos == nil || *got.Pos != [3]float64{0.5, 10, 0.5} {
		t.Fatalf("unexpected spawn response: %+v", got)
	}

	rec = serve(mux, http.MethodPost, "/admin/v1/spawn?world=CALDERA", "127.0.0.1:1234")
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "E_NOT_APPLICABLE") {
		t.Fatalf("expected not applicable conflict, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(mux, http.MethodPost, "/admin/v1/spawn?world=NOWHERE", "127.0.0.1:1234")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown world, got %d", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	rec = serve(mux, http.MethodGet, "/admin/v1/stats", "127.0.0.1:1234")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rec.Code)
	}
	var stats struct {
		Worlds  []multiworld.WorldStats `json:"worlds"`
		History []indexdb.WorldStats    `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if len(stats.Worlds) != 2 || stats.Worlds[0].WorldID != "OVERWORLD" || stats.Worlds[0].Accepted != 1 || stats.Worlds[0].CachedPoints != 1 {
		t.Fatalf("unexpected world stats: %+v", stats.Worlds)
	}
	if len(stats.History) != 2 || stats.History[0].ByOutcome[multiworld.OutcomeAccepted] != 1 || stats.History[1].ByOutcome[multiworld.OutcomeNotApplicable] != 1 {
		t.Fatalf("unexpected history: %+v", stats.History)
	}

	rec = serve(mux, http.MethodGet, "/metrics", "8.8.8.8:1234")
	if !strings.Contains(rec.Body.String(), `voxelspawn_spawn_total{world="OVERWORLD",outcome="accepted"} 1`) {
		t.Fatalf("metrics missing accepted counter:\n%s", rec.Body.String())
	}
}

func TestMux_ReloadClearsCacheAndAppliesFile(t *testing.T) {
	a := newTestApp(t, false)
	mux := a.mux(true)

	if rec := serve(mux, http.MethodPost, "/admin/v1/spawn", "127.0.0.1:1"); rec.Code != http.StatusOK {
		t.Fatalf("spawn status=%d body=%s", rec.Code, rec.Body.String())
	}
	if n := a.mgr.Search().Cache().Len("OVERWORLD"); n != 1 {
		t.Fatalf("expected one cached point, got %d", n)
	}

	updated := strings.Replace(testSpawnYAML, "[OVERWORLD]", "[OVERWORLD, CALDERA]", 1)
	if err := os.WriteFile(a.spawnPath, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite spawn.yaml: %v", err)
	}
	if rec := serve(mux, http.MethodGet, "/admin/v1/reload", "127.0.0.1:1"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET reload, got %d", rec.Code)
	}
	rec := serve(mux, http.MethodPost, "/admin/v1/reload", "127.0.0.1:1")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status=%d body=%s", rec.Code, rec.Body.String())
	}
	if a.mgr.Reloads() != 1 || !a.mgr.Search().IsWorldEnabled("CALDERA") {
		t.Fatalf("reload not applied: reloads=%d", a.mgr.Reloads())
	}
	if n := a.mgr.Search().Cache().Len("OVERWORLD"); n != 0 {
		t.Fatalf("expected cache cleared by reload, got %d", n)
	}

	if err := os.WriteFile(a.spawnPath, []byte("spawn: ["), 0o644); err != nil {
		t.Fatalf("rewrite spawn.yaml: %v", err)
	}
	rec = serve(mux, http.MethodPost, "/admin/v1/reload", "127.0.0.1:1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken spawn.yaml, got %d", rec.Code)
	}
	if !a.mgr.Search().IsWorldEnabled("CALDERA") {
		t.Fatalf("failed reload must keep the previous config")
	}
}

func TestMux_AdminDisabled(t *testing.T) {
	a := newTestApp(t, false)
	mux := a.mux(false)
	if rec := serve(mux, http.MethodPost, "/admin/v1/reload", "127.0.0.1:1"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with admin disabled, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/healthz", "8.8.8.8:1"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestEnableAdminHTTP(t *testing.T) {
	t.Setenv("VOXELSPAWN_ENABLE_ADMIN_HTTP", "")
	t.Setenv("DEPLOY_ENV", "production")
	if on, err := enableAdminHTTP(); err != nil || on {
		t.Fatalf("expected admin off in production, got %v err=%v", on, err)
	}
	t.Setenv("VOXELSPAWN_ENABLE_ADMIN_HTTP", "true")
	if on, err := enableAdminHTTP(); err != nil || !on {
		t.Fatalf("expected explicit enable, got %v err=%v", on, err)
	}
	t.Setenv("VOXELSPAWN_ENABLE_ADMIN_HTTP", "nope")
	if _, err := enableAdminHTTP(); err == nil {
		t.Fatalf("expected parse error")
	}
}
