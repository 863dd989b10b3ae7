package realtime

type SSEEvent string

const (
	SSEEventHandoffCreated  SSEEvent = "HandoffCreated"
	SSEEventHandoffAssigned SSEEvent = "HandoffAssigned"
	SSEEventHandoffAccepted SSEEvent = "HandoffAccepted"
	SSEEventHandoffDeclined SSEEvent = "HandoffDeclined"
	SSEEventHandoffExpired  SSEEvent = "HandoffExpired"
)

// SSEMessage is the wire unit pushed to connected agents. Channel is the
// receiving agent's ID.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
