package assistant

import "fmt"

// Sender identifies who authored a transcript message.
type Sender int

const (
	User Sender = iota
	Assistant
)

func (s Sender) String() string {
	switch s {
	case User:
		return "user"
	case Assistant:
		return "assistant"
	default:
		return fmt.Sprintf("sender(%d)", int(s))
	}
}

func (s Sender) MarshalText() ([]byte, error) {
	switch s {
	case User, Assistant:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown sender %d", int(s))
}

func (s *Sender) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*s = User
	case "assistant":
		*s = Assistant
	default:
		return fmt.Errorf("unknown sender %q", b)
	}
	return nil
}

// Message is a single transcript entry.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// State is a snapshot of a widget for rendering. Snapshots never share
// memory with the widget.
type State struct {
	Open       bool      `json:"open"`
	Busy       bool      `json:"busy"`
	Draft      string    `json:"draft"`
	Transcript []Message `json:"messages"`
}

func (s State) clone() State {
	cp := s
	cp.Transcript = make([]Message, len(s.Transcript))
	copy(cp.Transcript, s.Transcript)
	return cp
}
