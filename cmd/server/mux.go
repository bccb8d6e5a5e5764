package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"voxelspawn.ai/internal/persistence/indexdb"
	"voxelspawn.ai/internal/protocol"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/transport/ws"
)

type app struct {
	mgr       *multiworld.Manager
	idx       *indexdb.SQLiteIndex
	spawnPath string
	log       *log.Logger

	ws *ws.Server
}

func (a *app) reload() error {
	cfg, err := loadSpawnConfig(a.spawnPath)
	if err != nil {
		return err
	}
	return a.mgr.Reload(cfg)
}

func (a *app) mux(enableAdmin bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	if enableAdmin {
		mux.HandleFunc("/admin/v1/reload", a.handleReload)
		mux.HandleFunc("/admin/v1/spawn", a.handleSpawn)
		mux.HandleFunc("/admin/v1/stats", a.handleStats)
	}
	if a.ws == nil {
		a.ws = ws.NewServer(a.mgr, a.log)
	}
	mux.HandleFunc("/v1/ws", a.ws.Handler())
	return mux
}

func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(rw, "# HELP voxelspawn_reload_total Spawn config reloads since start.\n")
	fmt.Fprintf(rw, "# TYPE voxelspawn_reload_total counter\n")
	fmt.Fprintf(rw, "voxelspawn_reload_total %d\n", a.mgr.Reloads())

	fmt.Fprintf(rw, "# HELP voxelspawn_spawn_total Spawn requests by outcome.\n")
	fmt.Fprintf(rw, "# TYPE voxelspawn_spawn_total counter\n")
	for _, s := range a.mgr.Stats() {
		fmt.Fprintf(rw, "voxelspawn_spawn_total{world=%q,outcome=%q} %d\n", s.WorldID, "accepted", s.Accepted)
		fmt.Fprintf(rw, "voxelspawn_spawn_total{world=%q,outcome=%q} %d\n", s.WorldID, "cached", s.FromCache)
		fmt.Fprintf(rw, "voxelspawn_spawn_total{world=%q,outcome=%q} %d\n", s.WorldID, "not_found", s.NotFound)
		fmt.Fprintf(rw, "voxelspawn_spawn_total{world=%q,outcome=%q} %d\n", s.WorldID, "rejected", s.Rejected)
	}

	fmt.Fprintf(rw, "# HELP voxelspawn_cached_points Cached safe points per world.\n")
	fmt.Fprintf(rw, "# TYPE voxelspawn_cached_points gauge\n")
	for _, s := range a.mgr.Stats() {
		fmt.Fprintf(rw, "voxelspawn_cached_points{world=%q} %d\n", s.WorldID, s.CachedPoints)
	}

	if a.idx != nil {
		st := a.idx.Stats()
		fmt.Fprintf(rw, "# HELP voxelspawn_index_queue_depth Spawn index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE voxelspawn_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelspawn_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP voxelspawn_index_dropped_total Spawn records dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelspawn_index_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelspawn_index_dropped_total %d\n", st.DropTotal)
	}
}

func (a *app) handleReload(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := a.reload(); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	cfg := a.mgr.Search().Config()
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"ok":             true,
		"reloads":        a.mgr.Reloads(),
		"enabled_worlds": cfg.EnabledWorlds,
		"force_ground":   cfg.ForceGroundSpawn,
		"max_tries":      cfg.MaxTries,
	})
}

type adminSpawnResp struct {
	OK       bool        `json:"ok"`
	World    string      `json:"world"`
	Outcome  string      `json:"outcome"`
	Code     string      `json:"code,omitempty"`
	Error    string      `json:"error,omitempty"`
	Source   string      `json:"source,omitempty"`
	Attempts int         `json:"attempts"`
	Pos      *[3]float64 `json:"pos,omitempty"`
	Yaw      float32     `json:"yaw"`
}

// handleSpawn runs one search: POST /admin/v1/spawn?world=ID&trigger=JOIN.
func (a *app) handleSpawn(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	req := multiworld.Request{
		WorldID: strings.TrimSpace(q.Get("world")),
		AgentID: "admin",
		Trigger: strings.ToUpper(strings.TrimSpace(q.Get("trigger"))),
	}
	if req.WorldID == "" {
		req.WorldID = a.mgr.DefaultWorldID()
	}
	if req.Trigger == "" {
		req.Trigger = protocol.TriggerManual
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res, err := a.mgr.Spawn(ctx, req)

	out := adminSpawnResp{
		OK:       err == nil,
		World:    req.WorldID,
		Outcome:  multiworld.Outcome(res, err),
		Attempts: res.Attempts,
	}
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		out.Code = multiworld.ErrorCode(err)
		out.Error = err.Error()
		rw.WriteHeader(statusForCode(out.Code))
		_ = json.NewEncoder(rw).Encode(out)
		return
	}
	out.Source = string(res.Source)
	out.Pos = &[3]float64{res.Point.X, res.Point.Y, res.Point.Z}
	out.Yaw = res.Point.Yaw
	_ = json.NewEncoder(rw).Encode(out)
}

func statusForCode(code string) int {
	switch code {
	case protocol.ErrWorldNotFound:
		return http.StatusNotFound
	case protocol.ErrBadRequest:
		return http.StatusBadRequest
	case protocol.ErrNotApplicable, protocol.ErrFeatureDisabled:
		return http.StatusConflict
	case protocol.ErrNotFound:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *app) handleStats(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	out := map[string]any{
		"reloads": a.mgr.Reloads(),
		"worlds":  a.mgr.Stats(),
	}
	if a.idx != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		history := make([]indexdb.WorldStats, 0, len(a.mgr.WorldIDs()))
		for _, id := range a.mgr.WorldIDs() {
			ws, err := a.idx.WorldStats(ctx, id)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			history = append(history, ws)
		}
		out["history"] = history
		out["index"] = a.idx.Stats()
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(out)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
