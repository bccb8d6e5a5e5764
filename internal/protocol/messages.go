package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	WorldPreference string `json:"world_preference,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	AgentID         string       `json:"agent_id"`
	CurrentWorldID  string       `json:"current_world_id"`
	WorldManifest   []WorldRef   `json:"world_manifest"`
	Features        FeatureFlags `json:"features"`
}

type WorldRef struct {
	WorldID      string `json:"world_id"`
	WorldType    string `json:"world_type,omitempty"`
	Height       int    `json:"height"`
	SpawnEnabled bool   `json:"spawn_enabled"`
}

type FeatureFlags struct {
	FirstJoin      bool `json:"first_join"`
	RespawnOnDeath bool `json:"respawn_on_death"`
}

// SPAWN_REQUEST (client -> server)
type SpawnRequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id"`
	WorldID         string `json:"world_id,omitempty"`
	Trigger         string `json:"trigger"`
}

// SPAWN_RESULT (server -> client). Pos is set only when Accepted.
type SpawnResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	RequestID       string      `json:"request_id"`
	WorldID         string      `json:"world_id"`
	Accepted        bool        `json:"accepted"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	Source          string      `json:"source,omitempty"`
	Attempts        int         `json:"attempts"`
	Pos             *[3]float64 `json:"pos,omitempty"`
	Yaw             float32     `json:"yaw"`
	Pitch           float32     `json:"pitch"`
}
