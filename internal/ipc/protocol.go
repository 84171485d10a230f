// Package ipc carries control commands to the process that owns the session,
// as one JSON line each way over a unix socket.
package ipc

// Commands understood by the session owner.
const (
	CommandStatus     = "status"
	CommandStart      = "start"
	CommandStop       = "stop"
	CommandToggle     = "toggle"
	CommandCharacter  = "character"
	CommandHistory    = "history"
	// CommandWhiteboard uploads the image at Arg, or clears the upload when Arg is empty.
	CommandWhiteboard = "whiteboard"
)

// Request is one client command. Arg carries the command operand, such as a
// character name.
type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// Response reports the owner's state after handling a Request.
type Response struct {
	OK         bool     `json:"ok"`
	State      string   `json:"state,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	Sentiment  string   `json:"sentiment,omitempty"`
	Character  string   `json:"character,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Failure builds an error response.
func Failure(state string, err error) Response {
	return Response{OK: false, State: state, Error: err.Error()}
}
