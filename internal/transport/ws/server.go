package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelspawn.ai/internal/protocol"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/sim/spawn"
)

// Spawner is the part of multiworld.Manager the socket needs.
type Spawner interface {
	DefaultWorldID() string
	WorldIDs() []string
	Manifest() []protocol.WorldRef
	Features() protocol.FeatureFlags
	Spawn(ctx context.Context, req multiworld.Request) (spawn.Result, error)
}

type Server struct {
	spawner Spawner
	log     *log.Logger
	nextID  atomic.Uint64

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool

	upgrader websocket.Upgrader
}

func NewServer(sp Spawner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		spawner: sp,
		log:     logger,
		conns:   map[*websocket.Conn]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	agentID string
	worldID string
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if !s.track(conn) {
			return
		}
		defer s.untrack(conn)

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("agent %s connected (world=%s)", sess.agentID, sess.worldID)
		defer s.log.Printf("agent %s disconnected", sess.agentID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			resp := s.handle(ctx, sess, msg)
			if resp == nil {
				continue
			}
			if resp.Accepted {
				sess.worldID = resp.WorldID
			}
			if err := writeJSON(conn, resp); err != nil {
				return
			}
		}
	}
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// CloseAll closes every open session and refuses new ones. http.Server.Shutdown
// does not see hijacked connections, so register this with RegisterOnShutdown.
func (s *Server) CloseAll() {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = c.Close()
	}
}

// Active reports the number of open sessions.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) handshake(conn *websocket.Conn) (*session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil, false
	}

	sess := &session{
		agentID: fmt.Sprintf("A%d", s.nextID.Add(1)),
		worldID: s.spawner.DefaultWorldID(),
	}
	if pref := strings.TrimSpace(hello.WorldPreference); pref != "" && slices.Contains(s.spawner.WorldIDs(), pref) {
		sess.worldID = pref
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         sess.agentID,
		CurrentWorldID:  sess.worldID,
		WorldManifest:   s.spawner.Manifest(),
		Features:        s.spawner.Features(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	return sess, true
}

// handle answers one client message. Unknown message types are ignored.
func (s *Server) handle(ctx context.Context, sess *session, msg []byte) *protocol.SpawnResultMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeSpawnRequest {
		return nil
	}
	var req protocol.SpawnRequestMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return rejected("", sess.worldID, protocol.ErrProtoBadRequest, "malformed SPAWN_REQUEST")
	}
	if req.ProtocolVersion != protocol.Version {
		return rejected(req.RequestID, sess.worldID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	worldID := strings.TrimSpace(req.WorldID)
	if worldID == "" {
		worldID = sess.worldID
	}
	trigger := strings.ToUpper(strings.TrimSpace(req.Trigger))

	res, err := s.spawner.Spawn(ctx, multiworld.Request{WorldID: worldID, AgentID: sess.agentID, Trigger: trigger})
	out := &protocol.SpawnResultMsg{
		Type:            protocol.TypeSpawnResult,
		ProtocolVersion: protocol.Version,
		RequestID:       req.RequestID,
		WorldID:         worldID,
		Attempts:        res.Attempts,
	}
	if err != nil {
		out.Code = multiworld.ErrorCode(err)
		out.Message = err.Error()
		return out
	}
	p := res.Point
	out.Accepted = true
	out.Source = string(res.Source)
	out.Pos = &[3]float64{p.X, p.Y, p.Z}
	out.Yaw = p.Yaw
	out.Pitch = p.Pitch
	return out
}

func rejected(requestID, worldID, code, message string) *protocol.SpawnResultMsg {
	return &protocol.SpawnResultMsg{
		Type:            protocol.TypeSpawnResult,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		WorldID:         worldID,
		Code:            code,
		Message:         message,
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
