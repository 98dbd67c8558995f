package solstream

// State is the lifecycle state of a session
type State int

// State values, in lifecycle order
const (
	Idle State = iota
	Connected
	Subscribed
	Streaming
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case Subscribed:
		return "subscribed"
	case Streaming:
		return "streaming"
	case Stopped:
		return "stopped"
	default:
		return "invalid"
	}
}
