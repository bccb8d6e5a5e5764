package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeSpawnRequest = "SPAWN_REQUEST"
	TypeSpawnResult  = "SPAWN_RESULT"
)

// Spawn triggers carried by SPAWN_REQUEST.
const (
	TriggerJoin      = "JOIN"
	TriggerFirstJoin = "FIRST_JOIN"
	TriggerRespawn   = "RESPAWN"
	TriggerManual    = "MANUAL"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
