package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing.
	ErrWorldNotFound = "E_WORLD_NOT_FOUND"

	// Spawn search outcomes.
	ErrNotApplicable   = "E_NOT_APPLICABLE"
	ErrNotFound        = "E_NOT_FOUND"
	ErrFeatureDisabled = "E_FEATURE_DISABLED"
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldNotFound:   {},
	ErrNotApplicable:   {},
	ErrNotFound:        {},
	ErrFeatureDisabled: {},
	ErrBadRequest:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

var knownTriggers = map[string]struct{}{
	TriggerJoin:      {},
	TriggerFirstJoin: {},
	TriggerRespawn:   {},
	TriggerManual:    {},
}

func IsKnownTrigger(t string) bool {
	_, ok := knownTriggers[t]
	return ok
}
