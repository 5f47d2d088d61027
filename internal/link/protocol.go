package link

import (
	"encoding/json"
	"fmt"

	"github.com/cointhing/cointhing/internal/settings"
)

// Message types. Requests carry a non-zero ID which the reply echoes.
// Pushes from the device have ID 0.
const (
	TypeSettings   = "settings"    // request: apply data; push and get reply: current settings
	TypeBrightness = "brightness"  // request: set brightness to value
	TypeGet        = "get"         // request: current settings and brightness
	TypeStats      = "stats"       // request and reply: stats document
	TypeResetStats = "reset_stats" // request: zero the counters
	TypeAck        = "ack"         // reply: request accepted
	TypeError      = "error"       // reply: request rejected
)

// Message is the JSON envelope carried in every text frame.
type Message struct {
	Type       string           `json:"type"`
	ID         uint64           `json:"id,omitempty"`
	Data       json.RawMessage  `json:"data,omitempty"`
	Value      *int             `json:"value,omitempty"`
	Brightness *uint8           `json:"brightness,omitempty"`
	Report     *settings.Report `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (m Message) String() string {
	return fmt.Sprintf("%s#%d", m.Type, m.ID)
}

// RemoteError is an error reply from the device.
type RemoteError struct {
	Request string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("device rejected %s: %s", e.Request, e.Message)
}

// Update is a settings push from the device.
type Update struct {
	Settings   settings.Snapshot
	Brightness uint8
}

func settingsMessage(typ string, id uint64, snap settings.Snapshot, brightness uint8) Message {
	return Message{
		Type:       typ,
		ID:         id,
		Data:       settings.Encode(snap),
		Brightness: &brightness,
	}
}

// decodeSettingsMessage reads a settings push or get reply.
func decodeSettingsMessage(m Message) (Update, error) {
	snap, _, err := settings.Decode(m.Data)
	if err != nil {
		return Update{}, err
	}
	u := Update{Settings: snap, Brightness: settings.MaxBrightness}
	if m.Brightness != nil {
		u.Brightness = *m.Brightness
	}
	return u, nil
}
