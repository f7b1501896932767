package ws

// Status is the state of a Client's connection to its relay.
type Status int32

const (
	// Disconnected is the state before the first connection and after a
	// connection is lost, while reconnection is pending.
	Disconnected Status = iota
	// Connecting is a dial in progress.
	Connecting
	// Connected has a live socket with reader and writer running.
	Connected
	// Closing is a Close in progress.
	Closing
	// Closed is final, every operation fails.
	Closed
)

var statusNames = []st{"disconnected", "connecting", "connected", "closing", "closed"}

func (s Status) String() st {
	if s < 0 || no(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}
