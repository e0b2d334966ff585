package feed

// ConnState tracks the upstream connection lifecycle.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status strings delivered to listeners. Failures are surfaced this way,
// never as panics or returned errors from the fan-out path.
const (
	StatusConnecting     = "connecting"
	StatusAuthenticating = "authenticating"
	StatusSubscribed     = "subscribed"
	StatusReconnecting   = "reconnecting"
	StatusDisconnected   = "disconnected"
	StatusAuthFailed     = "auth_failed"
)

// Wildcard subscribes a listener to every symbol on the feed.
const Wildcard = "*"
