package session

// State is the session's position in the job lifecycle. Transitions only
// move forward; a new job needs a fresh Print call, which restarts from
// the invalidate step.
type State int

const (
	StateDisconnected State = iota
	StateInvalidated
	StateInitialized
	StateMediaConfigured
	StateStreaming
	StateFinalizing
	StateAwaitingCompletion
	StateCompleted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInvalidated:
		return "invalidated"
	case StateInitialized:
		return "initialized"
	case StateMediaConfigured:
		return "media-configured"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateAwaitingCompletion:
		return "awaiting-completion"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
