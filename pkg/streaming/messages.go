package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/cargotrack/routeplay/pkg/core"
)

// Message type constants of the display protocol.
const (
	TypeMarkerAdd      = "marker_add"
	TypeMarkerMove     = "marker_move"
	TypeMarkerGlyph    = "marker_glyph"
	TypeMarkerRemove   = "marker_remove"
	TypeStep           = "step"
	TypeSweep          = "sweep"
	TypeSweepReset     = "sweep_reset"
	TypeHighlight      = "highlight"
	TypeHighlightClear = "highlight_clear"
	TypeRoute          = "route"
	TypeError          = "error"
	TypeStatus         = "status"
	TypeReply          = "reply"

	// Sent by clients.
	TypeLayout  = "layout"
	TypeCommand = "command"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func MarshalEnvelope(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// MarkerPayload carries marker_add, marker_move, marker_glyph and
// marker_remove. Unused fields are omitted.
type MarkerPayload struct {
	ID       string              `json:"id"`
	Position *core.GeoCoordinate `json:"position,omitempty"`
	Glyph    string              `json:"glyph,omitempty"`
}

// StepPayload activates a progress step.
type StepPayload struct {
	Step     string `json:"step"`
	Element  string `json:"element"`
	Progress int    `json:"progress"`
}

// SweepPayload moves the sweep icon of a flight card.
type SweepPayload struct {
	FlightIndex int     `json:"flightIndex"`
	Element     string  `json:"element"`
	Fraction    float64 `json:"fraction"`
}

// HighlightPayload highlights a flight card.
type HighlightPayload struct {
	FlightIndex int    `json:"flightIndex"`
	Element     string `json:"element"`
}

// ErrorPayload reports a playback error to the page.
type ErrorPayload struct {
	Message string `json:"message"`
}

// LayoutPayload lists the element ids a client renders.
type LayoutPayload struct {
	Elements []string `json:"elements"`
}

// CommandPayload asks the server to run a command.
type CommandPayload struct {
	ID      string   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ReplyPayload answers a CommandPayload with the same ID.
type ReplyPayload struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}
