package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"voxelspawn.ai/internal/protocol"
)

// bot connects as one agent: HELLO, then n spawn requests, printing each result.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "agent name")
		worldID = flag.String("world", "", "world id (default: server default world)")
		trigger = flag.String("trigger", protocol.TriggerJoin, "spawn trigger (JOIN, FIRST_JOIN, RESPAWN, MANUAL)")
		count   = flag.Int("n", 5, "number of spawn requests")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	welcome, err := hello(conn, *name, *worldID)
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("WELCOME agent_id=%s world=%s first_join=%v respawn=%v", welcome.AgentID, welcome.CurrentWorldID, welcome.Features.FirstJoin, welcome.Features.RespawnOnDeath)
	for _, w := range welcome.WorldManifest {
		logger.Printf("  world %s height=%d spawn_enabled=%v", w.WorldID, w.Height, w.SpawnEnabled)
	}

	sum, err := requestSpawns(conn, *count, *worldID, *trigger, logger)
	if err != nil {
		logger.Fatalf("spawn: %v", err)
	}
	logger.Printf("done: %d/%d accepted (%d from cache)", sum.accepted, sum.sent, sum.cached)
}

func hello(conn *websocket.Conn, name, worldID string) (protocol.WelcomeMsg, error) {
	var welcome protocol.WelcomeMsg
	msg := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       name,
		WorldPreference: worldID,
	}
	if err := conn.WriteJSON(msg); err != nil {
		return welcome, fmt.Errorf("send HELLO: %w", err)
	}
	if err := readTyped(conn, protocol.TypeWelcome, &welcome); err != nil {
		return welcome, fmt.Errorf("WELCOME: %w", err)
	}
	return welcome, nil
}

type summary struct {
	sent     int
	accepted int
	cached   int
	rejected map[string]int
}

func requestSpawns(conn *websocket.Conn, n int, worldID, trigger string, logger *log.Logger) (summary, error) {
	sum := summary{rejected: map[string]int{}}
	for i := 0; i < n; i++ {
		req := protocol.SpawnRequestMsg{
			Type:            protocol.TypeSpawnRequest,
			ProtocolVersion: protocol.Version,
			RequestID:       fmt.Sprintf("R%d", i+1),
			WorldID:         worldID,
			Trigger:         trigger,
		}
		if err := conn.WriteJSON(req); err != nil {
			return sum, fmt.Errorf("send SPAWN_REQUEST: %w", err)
		}
		sum.sent++
		var res protocol.SpawnResultMsg
		if err := readTyped(conn, protocol.TypeSpawnResult, &res); err != nil {
			return sum, fmt.Errorf("SPAWN_RESULT: %w", err)
		}
		if !res.Accepted {
			sum.rejected[res.Code]++
			logger.Printf("%s %s rejected code=%s attempts=%d: %s", res.RequestID, res.WorldID, res.Code, res.Attempts, res.Message)
			continue
		}
		sum.accepted++
		if res.Source == "CACHE" {
			sum.cached++
		}
		logger.Printf("%s %s pos=(%.1f, %.1f, %.1f) yaw=%.1f source=%s attempts=%d", res.RequestID, res.WorldID, res.Pos[0], res.Pos[1], res.Pos[2], res.Yaw, res.Source, res.Attempts)
	}
	return sum, nil
}

func readTyped(conn *websocket.Conn, typ string, v any) error {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != typ {
			continue
		}
		return json.Unmarshal(msg, v)
	}
}
