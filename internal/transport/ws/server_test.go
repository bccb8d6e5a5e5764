package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelspawn.ai/internal/protocol"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/sim/spawn"
)

type fakeSpawner struct {
	mu   sync.Mutex
	reqs []multiworld.Request
}

func (f *fakeSpawner) DefaultWorldID() string { return "OVERWORLD" }
func (f *fakeSpawner) WorldIDs() []string     { return []string{"OVERWORLD", "CALDERA"} }
func (f *fakeSpawner) Manifest() []protocol.WorldRef {
	return []protocol.WorldRef{
		{WorldID: "OVERWORLD", Height: 128, SpawnEnabled: true},
		{WorldID: "CALDERA", Height: 64},
	}
}
func (f *fakeSpawner) Features() protocol.FeatureFlags {
	return protocol.FeatureFlags{FirstJoin: true}
}

func (f *fakeSpawner) Spawn(_ context.Context, req multiworld.Request) (spawn.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	switch {
	case req.WorldID == "CALDERA":
		return spawn.Result{}, spawn.ErrNotApplicable
	case req.Trigger == protocol.TriggerRespawn:
		return spawn.Result{}, fmt.Errorf("%w: %s", multiworld.ErrFeatureDisabled, req.Trigger)
	}
	return spawn.Result{
		Point:    spawn.Point{World: req.WorldID, X: 0.5, Y: 6, Z: 0.5, Yaw: 90},
		Source:   spawn.SourceSearch,
		Attempts: 1,
	}, nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestServer_HelloSpawnRoundTrip(t *testing.T) {
	fs := &fakeSpawner{}
	srv := httptest.NewServer(NewServer(fs, nil).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: "tester", WorldPreference: "CALDERA"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.AgentID != "A1" || welcome.CurrentWorldID != "CALDERA" {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
	if len(welcome.WorldManifest) != 2 || !welcome.Features.FirstJoin {
		t.Fatalf("unexpected manifest/features: %+v", welcome)
	}

	// Current world is not enabled.
	_ = conn.WriteJSON(protocol.SpawnRequestMsg{Type: protocol.TypeSpawnRequest, ProtocolVersion: protocol.Version, RequestID: "r1", Trigger: "join"})
	var res protocol.SpawnResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Accepted || res.Code != protocol.ErrNotApplicable || res.RequestID != "r1" || res.WorldID != "CALDERA" {
		t.Fatalf("unexpected r1 result: %+v", res)
	}

	_ = conn.WriteJSON(protocol.SpawnRequestMsg{Type: protocol.TypeSpawnRequest, ProtocolVersion: protocol.Version, RequestID: "r2", WorldID: "OVERWORLD", Trigger: protocol.TriggerJoin})
	res = protocol.SpawnResultMsg{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if !res.Accepted || res.Pos == nil || *res.Pos != [3]float64{0.5, 6, 0.5} || res.Source != "SEARCH" || res.Yaw != 90 {
		t.Fatalf("unexpected r2 result: %+v", res)
	}

	// Accepted spawn moved the session to OVERWORLD.
	_ = conn.WriteJSON(protocol.SpawnRequestMsg{Type: protocol.TypeSpawnRequest, ProtocolVersion: protocol.Version, RequestID: "r3", Trigger: protocol.TriggerRespawn})
	res = protocol.SpawnResultMsg{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Accepted || res.Code != protocol.ErrFeatureDisabled || res.WorldID != "OVERWORLD" {
		t.Fatalf("unexpected r3 result: %+v", res)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.reqs) != 3 || fs.reqs[0].Trigger != protocol.TriggerJoin || fs.reqs[0].AgentID != "A1" {
		t.Fatalf("unexpected requests: %+v", fs.reqs)
	}
}

func TestServer_BadVersionRejected(t *testing.T) {
	srv := httptest.NewServer(NewServer(&fakeSpawner{}, nil).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	_ = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.9"})
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestServer_SpawnRequestVersionMismatch(t *testing.T) {
	fs := &fakeSpawner{}
	srv := httptest.NewServer(NewServer(fs, nil).Handler())
	defer srv.Close()
	conn := dial(t, srv)

	_ = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, WorldPreference: "NOWHERE"})
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.CurrentWorldID != "OVERWORLD" {
		t.Fatalf("unknown preference should fall back to default, got %q", welcome.CurrentWorldID)
	}

	_ = conn.WriteJSON(protocol.SpawnRequestMsg{Type: protocol.TypeSpawnRequest, ProtocolVersion: "2.0", RequestID: "x"})
	var res protocol.SpawnResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Code != protocol.ErrProtoBadRequest || res.RequestID != "x" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fs.reqs) != 0 {
		t.Fatalf("spawner should not be called")
	}
}

func TestServer_CloseAllEndsSessions(t *testing.T) {
	s := NewServer(&fakeSpawner{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	conn := dial(t, srv)

	_ = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version})
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if s.Active() != 1 {
		t.Fatalf("expected one active session, got %d", s.Active())
	}

	s.CloseAll()
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Active() != 0 {
		t.Fatalf("session still tracked after CloseAll")
	}

	late := dial(t, srv)
	if _, _, err := late.ReadMessage(); err == nil {
		t.Fatalf("expected new sessions to be refused after CloseAll")
	}
}
