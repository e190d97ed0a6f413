package game

// Action kinds emitted by the room layer. Every other kind belongs to the
// rules engine and passes through untouched.
const (
	ActionPlayerJoin  = "playerJoin"
	ActionPlayerLeave = "playerLeave"
)

// Action is an opaque rules-engine message. The "action" key names its kind.
type Action map[string]any

// PlayerJoin announces a new seat.
func PlayerJoin(uuid, name string) Action {
	return Action{"action": ActionPlayerJoin, "uuid": uuid, "name": name}
}

// PlayerLeave announces that a seat's connection closed.
func PlayerLeave(uuid string) Action {
	return Action{"action": ActionPlayerLeave, "uuid": uuid}
}

// Kind returns the action's kind, or "" when it has none.
func (a Action) Kind() string {
	kind, _ := a["action"].(string)
	return kind
}

// Get returns the string stored under key, or "" when absent.
func (a Action) Get(key string) string {
	v, _ := a[key].(string)
	return v
}
