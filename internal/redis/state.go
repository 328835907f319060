package redis

// ConnectionState tracks the lifecycle of the shared Redis connection:
// Disconnected -> Connecting -> Connected -> (Error | Closed). Error is
// recoverable (the watchdog keeps probing); Closed is terminal.
type ConnectionState int

const (
	// StateDisconnected is the initial state before Connect is called
	StateDisconnected ConnectionState = iota
	// StateConnecting means a connection attempt is in progress
	StateConnecting
	// StateConnected means the connection is healthy and commands flow
	StateConnected
	// StateError means the connection is degraded; commands fail fast
	StateError
	// StateClosed means the client has been closed and cannot be reused
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateObserver receives connection state transitions.
type StateObserver func(old, new ConnectionState)
